package settings

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/copas/internal/history"
	"go.klb.dev/copas/internal/model"
	"go.klb.dev/copas/internal/persist"
)

func ptr[T any](v T) *T { return &v }

func newService(t *testing.T) (*Service, *history.Store, *persist.Memory) {
	t.Helper()
	db := persist.NewMemory()
	store, err := history.Open(context.Background(), db)
	require.NoError(t, err)
	return New(store), store, db
}

func TestGet_Defaults(t *testing.T) {
	s, _, _ := newService(t)
	assert.Equal(t, model.DefaultSettings(), s.Get())
}

func TestSet_PartialMerge(t *testing.T) {
	s, _, db := newService(t)
	ctx := context.Background()

	got, err := s.Set(ctx, Patch{Theme: ptr("dark"), PollInterval: ptr(250)})
	require.NoError(t, err)
	assert.Equal(t, "dark", got.Theme)
	assert.Equal(t, 250, got.PollInterval)
	assert.Equal(t, model.DefaultMaxHistory, got.MaxHistory)

	stored, err := db.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, got, stored.Settings)
}

func TestSet_Validation(t *testing.T) {
	s, _, db := newService(t)
	ctx := context.Background()

	for _, p := range []Patch{
		{PollInterval: ptr(10)},
		{MaxHistory: ptr(0)},
		{Theme: ptr("neon")},
	} {
		_, err := s.Set(ctx, p)
		assert.ErrorIs(t, err, ErrInvalid)
	}
	assert.Equal(t, model.DefaultSettings(), s.Get())
	assert.Zero(t, db.Saves())
}

func TestSet_StoredValueOutsidePatchIsNotRechecked(t *testing.T) {
	ctx := context.Background()
	st := model.NewState()
	st.Settings.Theme = "auto"
	db, err := persist.NewMemoryFrom(st)
	require.NoError(t, err)
	store, err := history.Open(ctx, db)
	require.NoError(t, err)
	s := New(store)

	got, err := s.Set(ctx, Patch{MaxHistory: ptr(50)})
	require.NoError(t, err)
	assert.Equal(t, 50, got.MaxHistory)
	assert.Equal(t, "auto", got.Theme)

	_, err = s.Set(ctx, Patch{Theme: ptr("auto")})
	assert.ErrorIs(t, err, ErrInvalid, "a patch naming the theme is still checked")
}

func TestSet_ListenersSeeChanges(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()

	var calls []time.Duration
	s.OnChange(func(old, cur model.Settings) {
		assert.NotEqual(t, old, cur)
		calls = append(calls, cur.Poll())
	})

	_, err := s.Set(ctx, Patch{PollInterval: ptr(300)})
	require.NoError(t, err)
	_, err = s.Set(ctx, Patch{PollInterval: ptr(300)})
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{300 * time.Millisecond}, calls)
}

func TestSet_ShrinkingCapacityEvicts(t *testing.T) {
	s, store, _ := newService(t)
	ctx := context.Background()
	for i := range 5 {
		require.NoError(t, store.Insert(ctx, model.ClipItem{
			ID: fmt.Sprint(i), Kind: model.KindText, ContentText: "x",
			Category: model.CategoryText, Timestamp: time.Now(),
		}))
	}
	_, _, _ = store.TogglePin(ctx, "0")

	_, err := s.Set(ctx, Patch{MaxHistory: ptr(2)})
	require.NoError(t, err)
	assert.Len(t, store.Snapshot().Items, 3)
}

func TestSet_PersistFailureStillApplies(t *testing.T) {
	s, _, db := newService(t)
	db.SetFailure(errors.New("read-only"))

	notified := false
	s.OnChange(func(model.Settings, model.Settings) { notified = true })

	got, err := s.Set(context.Background(), Patch{Theme: ptr("dark")})
	var pe *history.PersistError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "dark", got.Theme)
	assert.Equal(t, "dark", s.Get().Theme)
	assert.True(t, notified)
}

func TestParsePatch(t *testing.T) {
	p, err := ParsePatch(map[string]string{
		"pollInterval":      "750",
		"MAXHISTORY":        "20",
		"showNotifications": "false",
		"autoStart":         "1",
		"pasteDelimiter":    `\t`,
		"theme":             "dark",
	})
	require.NoError(t, err)

	var s model.Settings
	p.Apply(&s)
	assert.Equal(t, 750, s.PollInterval)
	assert.Equal(t, 20, s.MaxHistory)
	assert.False(t, s.ShowNotifications)
	assert.True(t, s.AutoStart)
	assert.Equal(t, `\t`, s.PasteDelimiter)
	assert.Equal(t, "\t", s.Delimiter())
	assert.Equal(t, "dark", s.Theme)
}

func TestParsePatch_Errors(t *testing.T) {
	for _, kv := range []map[string]string{
		{"pollInterval": "fast"},
		{"autoStart": "maybe"},
		{"colour": "red"},
	} {
		_, err := ParsePatch(kv)
		assert.ErrorIs(t, err, ErrInvalid)
	}
}
