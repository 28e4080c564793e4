// Package tabs manages the organisational buckets entries can be assigned
// to. Tab state lives in the history store; the registry only enforces the
// rules around it.
package tabs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.klb.dev/copas/internal/clock"
	"go.klb.dev/copas/internal/history"
	"go.klb.dev/copas/internal/model"
)

var (
	ErrSystemTab = errors.New("system tabs cannot be changed")
	ErrEmptyName = errors.New("tab name is empty")
)

// DefaultIcon is used when a tab is created without one.
const DefaultIcon = "📁"

// Registry is CRUD over tabs.
type Registry struct {
	store *history.Store
	ids   clock.IDGenerator
}

// New returns a Registry backed by store.
func New(store *history.Store, ids clock.IDGenerator) *Registry {
	if ids == nil {
		ids = clock.UUIDs{}
	}
	return &Registry{store: store, ids: ids}
}

// List returns every tab in display order.
func (r *Registry) List() []model.Tab {
	var out []model.Tab
	r.store.View(func(st *model.State) {
		out = append([]model.Tab(nil), st.Tabs...)
	})
	return out
}

// Create adds a user tab with a fresh id.
func (r *Registry) Create(ctx context.Context, name, icon string) (model.Tab, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Tab{}, ErrEmptyName
	}
	if icon == "" {
		icon = DefaultIcon
	}
	tab := model.Tab{ID: "tab-" + r.ids.New(), Name: name, Icon: icon}
	err := r.store.Transact(ctx, func(st *model.State) bool {
		st.Tabs = append(st.Tabs, tab)
		return true
	})
	return tab, err
}

// Rename changes a user tab's name and/or icon; empty arguments leave the
// field unchanged. Unknown ids report false.
func (r *Registry) Rename(ctx context.Context, id, name, icon string) (bool, error) {
	name = strings.TrimSpace(name)
	var (
		found   bool
		ruleErr error
	)
	err := r.store.Transact(ctx, func(st *model.State) bool {
		i := st.FindTab(id)
		if i < 0 {
			return false
		}
		found = true
		if st.Tabs[i].System {
			ruleErr = fmt.Errorf("rename %s: %w", id, ErrSystemTab)
			return false
		}
		if name == "" && icon == "" {
			return false
		}
		if name != "" {
			st.Tabs[i].Name = name
		}
		if icon != "" {
			st.Tabs[i].Icon = icon
		}
		return true
	})
	if ruleErr != nil {
		return false, ruleErr
	}
	return found, err
}

// Delete removes a user tab and unassigns every entry that referenced it.
// Entries themselves are kept.
func (r *Registry) Delete(ctx context.Context, id string) (bool, error) {
	var (
		found   bool
		ruleErr error
	)
	err := r.store.Transact(ctx, func(st *model.State) bool {
		i := st.FindTab(id)
		if i < 0 {
			return false
		}
		found = true
		if st.Tabs[i].System {
			ruleErr = fmt.Errorf("delete %s: %w", id, ErrSystemTab)
			return false
		}
		st.Tabs = append(st.Tabs[:i], st.Tabs[i+1:]...)
		for j := range st.Items {
			if st.Items[j].InTab(id) {
				st.Items[j].TabID = nil
			}
		}
		return true
	})
	if ruleErr != nil {
		return false, ruleErr
	}
	return found, err
}
