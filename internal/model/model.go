// Package model defines the persisted copas data: clipboard entries, tabs,
// user settings and the state blob that holds all three.
package model

import (
	"encoding/json"
	"runtime"
	"strings"
	"time"
)

// Kind selects which content field of a ClipItem is populated.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// Category is the derived classification of an entry's content.
type Category string

const (
	CategoryText  Category = "text"
	CategoryLink  Category = "link"
	CategoryEmail Category = "email"
	CategoryPhone Category = "phone"
	CategoryCode  Category = "code"
	CategoryImage Category = "image"
)

// Fixed tab ids. TabAll and TabLinks are virtual views; TabImportant is the
// default user tab created on first run.
const (
	TabAll       = "all"
	TabLinks     = "links"
	TabImportant = "important"
)

// ClipItem is one recorded clipboard capture.
type ClipItem struct {
	ID          string    `json:"id" yaml:"id"`
	Kind        Kind      `json:"kind" yaml:"kind"`
	ContentText string    `json:"contentText,omitempty" yaml:"contentText,omitempty"`
	ImagePath   string    `json:"imagePath,omitempty" yaml:"imagePath,omitempty"`
	Category    Category  `json:"category" yaml:"category"`
	TabID       *string   `json:"tabId" yaml:"tabId"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
	Pinned      bool      `json:"pinned" yaml:"pinned"`
	Label       string    `json:"label" yaml:"label"`
	InVault     bool      `json:"inVault" yaml:"inVault"`
}

// Text returns the text payload, or "" for image entries.
func (c ClipItem) Text() string {
	if c.Kind == KindImage {
		return ""
	}
	return c.ContentText
}

// InTab reports whether the entry is assigned to tab id.
func (c ClipItem) InTab(id string) bool {
	return c.TabID != nil && *c.TabID == id
}

// Clearable reports whether a clear-history may remove the entry. Only
// pinned entries survive a clear; vaulted entries are not exempt.
func (c ClipItem) Clearable() bool { return !c.Pinned }

// UnmarshalJSON accepts the legacy "content" field written by older
// versions when "contentText" is absent, and defaults the kind to text.
func (c *ClipItem) UnmarshalJSON(b []byte) error {
	type plain ClipItem
	var aux struct {
		plain
		Content string `json:"content"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*c = ClipItem(aux.plain)
	if c.Kind == "" {
		c.Kind = KindText
	}
	if c.Kind == KindText && c.ContentText == "" {
		c.ContentText = aux.Content
	}
	if c.Category == "" {
		c.Category = CategoryText
	}
	return nil
}

// StrPtr returns a pointer to s, or nil when s is empty.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Tab is an organizational bucket. System tabs are immutable.
type Tab struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Icon   string `json:"icon" yaml:"icon"`
	System bool   `json:"system" yaml:"system"`
}

// DefaultTabs returns the first-run tab set.
func DefaultTabs() []Tab {
	return []Tab{
		{ID: TabAll, Name: "All", Icon: "📋", System: true},
		{ID: TabLinks, Name: "Links", Icon: "🔗", System: true},
		{ID: TabImportant, Name: "Important", Icon: "⭐", System: false},
	}
}

// Settings is the user-facing configuration persisted with the history.
type Settings struct {
	PollInterval      int    `json:"pollInterval" yaml:"pollInterval"` // milliseconds
	MaxHistory        int    `json:"maxHistory" yaml:"maxHistory"`
	ShortcutToggle    string `json:"shortcutToggle" yaml:"shortcutToggle"`
	ShortcutPaste     string `json:"shortcutPaste" yaml:"shortcutPaste"`
	PasteDelimiter    string `json:"pasteDelimiter" yaml:"pasteDelimiter"`
	Theme             string `json:"theme" yaml:"theme"`
	ShowNotifications bool   `json:"showNotifications" yaml:"showNotifications"`
	AutoStart         bool   `json:"autoStart" yaml:"autoStart"`
}

const (
	DefaultPollInterval = 500
	MinPollInterval     = 50
	DefaultMaxHistory   = 1000
)

// DefaultSettings returns the hard-coded defaults that persisted settings
// are merged over.
func DefaultSettings() Settings {
	mod := "Ctrl"
	if runtime.GOOS == "darwin" {
		mod = "Cmd"
	}
	return Settings{
		PollInterval:      DefaultPollInterval,
		MaxHistory:        DefaultMaxHistory,
		ShortcutToggle:    mod + "+Shift+V",
		ShortcutPaste:     mod + "+Shift+B",
		PasteDelimiter:    `\n`,
		Theme:             "light",
		ShowNotifications: true,
	}
}

// Poll returns the poll interval as a duration.
func (s Settings) Poll() time.Duration {
	return time.Duration(s.PollInterval) * time.Millisecond
}

var delimiterEscapes = strings.NewReplacer(`\\`, `\`, `\n`, "\n", `\t`, "\t", `\r`, "\r")

// Delimiter returns PasteDelimiter with escape sequences resolved.
func (s Settings) Delimiter() string {
	return UnescapeDelimiter(s.PasteDelimiter)
}

// UnescapeDelimiter resolves \n, \t, \r and \\ in a configured delimiter.
func UnescapeDelimiter(d string) string {
	return delimiterEscapes.Replace(d)
}

// Vault holds the persisted part of the vault: only the PIN hash.
// Unlock state is never persisted.
type Vault struct {
	PinHash string `json:"pinHash,omitempty"`
}

// State is the persisted blob.
type State struct {
	Tabs     []Tab      `json:"tabs"`
	Items    []ClipItem `json:"items"`
	Settings Settings   `json:"settings"`
	Vault    Vault      `json:"vault"`
}

// NewState returns the first-run state.
func NewState() *State {
	return &State{
		Tabs:     DefaultTabs(),
		Items:    []ClipItem{},
		Settings: DefaultSettings(),
	}
}

// UnmarshalJSON merges the decoded blob over the defaults: a missing tab
// list becomes DefaultTabs and settings are overlaid field by field.
func (s *State) UnmarshalJSON(b []byte) error {
	type plain State
	aux := plain{Settings: DefaultSettings()}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*s = State(aux)
	if s.Tabs == nil {
		s.Tabs = DefaultTabs()
	}
	if s.Items == nil {
		s.Items = []ClipItem{}
	}
	return nil
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	out := &State{
		Tabs:     append([]Tab(nil), s.Tabs...),
		Items:    make([]ClipItem, len(s.Items)),
		Settings: s.Settings,
		Vault:    s.Vault,
	}
	for i, it := range s.Items {
		out.Items[i] = it.Clone()
	}
	return out
}

// Clone returns a copy that shares no pointers with c.
func (c ClipItem) Clone() ClipItem {
	if c.TabID != nil {
		id := *c.TabID
		c.TabID = &id
	}
	return c
}

// FindItem returns the index of the item with id, or -1.
func (s *State) FindItem(id string) int {
	for i := range s.Items {
		if s.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// FindTab returns the index of the tab with id, or -1.
func (s *State) FindTab(id string) int {
	for i := range s.Tabs {
		if s.Tabs[i].ID == id {
			return i
		}
	}
	return -1
}
