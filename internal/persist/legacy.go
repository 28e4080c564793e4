package persist

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"go.klb.dev/copas/internal/model"
)

// LegacyFile is the state file written by the Electron build of copas.
const LegacyFile = "copas-data.json"

// LegacyDirs returns the directories the Electron build used for its data,
// in lookup order.
func LegacyDirs() []string {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil
	}
	return []string{
		filepath.Join(base, "copas"),
		filepath.Join(base, "CoPas"),
		filepath.Join(base, "com.copas.clipboard-manager"),
	}
}

// firstRun returns the state for an adapter with nothing stored: the first
// importable legacy file in dirs, or model.NewState.
func firstRun(dirs []string) *model.State {
	for _, dir := range dirs {
		path := filepath.Join(dir, LegacyFile)
		b, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			slog.Warn("legacy state unreadable", "path", path, "err", err)
			continue
		}
		st, ok := importLegacy(b)
		if !ok {
			slog.Warn("legacy state not imported", "path", path)
			continue
		}
		slog.Info("imported legacy state", "path", path, "items", len(st.Items), "tabs", len(st.Tabs))
		return st
	}
	return model.NewState()
}

// importLegacy decodes an Electron state file. Items there carry their text
// in "content", which ClipItem decoding already accepts. When the document
// as a whole does not decode, items are salvaged one by one.
func importLegacy(b []byte) (*model.State, bool) {
	st, err := decode(b)
	if err != nil {
		if st = salvage(b); st == nil {
			return nil, false
		}
	}
	for i := range st.Items {
		if st.Items[i].Kind != model.KindImage {
			st.Items[i].Kind = model.KindText
		}
	}
	return st, true
}

func salvage(b []byte) *model.State {
	var doc struct {
		Tabs     json.RawMessage   `json:"tabs"`
		Items    []json.RawMessage `json:"items"`
		Settings json.RawMessage   `json:"settings"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil
	}

	st := model.NewState()
	var tabs []model.Tab
	if len(doc.Tabs) > 0 && json.Unmarshal(doc.Tabs, &tabs) == nil && len(tabs) > 0 {
		st.Tabs = tabs
	}
	for _, raw := range doc.Items {
		var it model.ClipItem
		if err := json.Unmarshal(raw, &it); err != nil || it.ID == "" {
			continue
		}
		st.Items = append(st.Items, it)
	}
	if len(doc.Settings) > 0 {
		settings := model.DefaultSettings()
		if json.Unmarshal(doc.Settings, &settings) == nil {
			st.Settings = settings
		}
	}

	if len(st.Items) == 0 && len(st.Tabs) <= len(model.DefaultTabs()) {
		return nil
	}
	return st
}
