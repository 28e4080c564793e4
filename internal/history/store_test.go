package history

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/copas/internal/model"
	"go.klb.dev/copas/internal/persist"
)

var base = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func textItem(id string, minute int) model.ClipItem {
	return model.ClipItem{
		ID:          id,
		Kind:        model.KindText,
		ContentText: "content " + id,
		Category:    model.CategoryText,
		Timestamp:   base.Add(time.Duration(minute) * time.Minute),
	}
}

func newStore(t *testing.T, maxHistory int, opts ...Option) (*Store, *persist.Memory) {
	t.Helper()
	st := model.NewState()
	st.Settings.MaxHistory = maxHistory
	db, err := persist.NewMemoryFrom(st)
	require.NoError(t, err)
	s, err := Open(context.Background(), db, opts...)
	require.NoError(t, err)
	return s, db
}

func countUnpinned(s *Store) int {
	n := 0
	for _, it := range s.Snapshot().Items {
		if !it.Pinned {
			n++
		}
	}
	return n
}

func TestInsert_PrependsAndPersists(t *testing.T) {
	ctx := context.Background()
	s, db := newStore(t, 10)

	require.NoError(t, s.Insert(ctx, textItem("a", 0)))
	require.NoError(t, s.Insert(ctx, textItem("b", 1)))

	items := s.Snapshot().Items
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].ID)
	assert.Equal(t, 2, db.Saves())

	reloaded, err := db.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, reloaded.Items, 2)
}

func TestInsert_RejectsDuplicateAndEmptyID(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, 10)
	require.NoError(t, s.Insert(ctx, textItem("a", 0)))

	assert.ErrorIs(t, s.Insert(ctx, textItem("a", 1)), ErrDuplicateID)
	assert.Error(t, s.Insert(ctx, textItem("", 1)))
	assert.Len(t, s.Snapshot().Items, 1)
}

func TestInsert_CapacityNeverExceeded(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, 3)

	for i := range 10 {
		require.NoError(t, s.Insert(ctx, textItem(fmt.Sprint(i), i)))
		assert.LessOrEqual(t, countUnpinned(s), 3)
	}

	var ids []string
	for _, it := range s.Snapshot().Items {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"9", "8", "7"}, ids)
}

func TestInsert_PinnedNeverEvicted(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, 2)

	require.NoError(t, s.Insert(ctx, textItem("keep", 0)))
	pinned, ok, err := s.TogglePin(ctx, "keep")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, pinned)

	for i := range 5 {
		require.NoError(t, s.Insert(ctx, textItem(fmt.Sprint(i), i+1)))
	}

	_, found := s.Get("keep")
	assert.True(t, found)
	assert.Equal(t, 2, countUnpinned(s))
	assert.Len(t, s.Snapshot().Items, 3)
}

func TestTogglePin_RemovesFromEvictionAccounting(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, 2)
	require.NoError(t, s.Insert(ctx, textItem("a", 0)))
	require.NoError(t, s.Insert(ctx, textItem("b", 1)))

	_, _, err := s.TogglePin(ctx, "a")
	require.NoError(t, err)

	// Two more unpinned fit because "a" no longer counts.
	require.NoError(t, s.Insert(ctx, textItem("c", 2)))
	_, found := s.Get("b")
	assert.True(t, found)
	assert.Len(t, s.Snapshot().Items, 3)
}

func TestTogglePin_Unknown(t *testing.T) {
	s, _ := newStore(t, 10)
	_, ok, err := s.TogglePin(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	var removed []model.ClipItem
	s, _ := newStore(t, 10, WithRemoveHook(func(items []model.ClipItem) {
		removed = append(removed, items...)
	}))
	for i := range 4 {
		require.NoError(t, s.Insert(ctx, textItem(fmt.Sprint(i), i)))
	}

	ok, err := s.Delete(ctx, "1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Delete(ctx, "1")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := s.DeleteMany(ctx, []string{"0", "3", "nope"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, s.Snapshot().Items, 1)
	assert.Len(t, removed, 3)
}

func TestSetLabelAndMove(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, 10)
	require.NoError(t, s.Insert(ctx, textItem("a", 0)))

	ok, err := s.SetLabel(ctx, "a", "greeting")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.MoveToTab(ctx, "a", model.TabImportant)
	require.NoError(t, err)
	assert.True(t, ok)
	it, _ := s.Get("a")
	assert.Equal(t, "greeting", it.Label)
	assert.True(t, it.InTab(model.TabImportant))

	ok, err = s.MoveToTab(ctx, "a", "no-such-tab")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.MoveToTab(ctx, "a", model.TabAll)
	require.NoError(t, err)
	assert.True(t, ok)
	it, _ = s.Get("a")
	assert.Nil(t, it.TabID)

	ok, err = s.SetLabel(ctx, "missing", "x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) *Store {
		s, _ := newStore(t, 100)
		for i := range 6 {
			require.NoError(t, s.Insert(ctx, textItem(fmt.Sprint(i), i)))
		}
		_, _ = s.MoveToTab(ctx, "0", model.TabImportant)
		_, _ = s.MoveToTab(ctx, "1", model.TabImportant)
		_, _, _ = s.TogglePin(ctx, "1")
		_, _, _ = s.TogglePin(ctx, "2")
		_, _ = s.SetVault(ctx, "3", true)
		return s
	}

	t.Run("tab scoped", func(t *testing.T) {
		s := setup(t)
		n, err := s.Clear(ctx, model.TabImportant)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		_, found := s.Get("1")
		assert.True(t, found, "pinned survives")
	})

	t.Run("vault entry in tab", func(t *testing.T) {
		s := setup(t)
		_, _ = s.MoveToTab(ctx, "3", model.TabImportant)
		n, err := s.Clear(ctx, model.TabImportant)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		_, found := s.Get("3")
		assert.False(t, found, "unpinned vault entry is cleared")
	})

	t.Run("pinned vault entry survives", func(t *testing.T) {
		s := setup(t)
		_, _, _ = s.TogglePin(ctx, "3")
		_, err := s.Clear(ctx, model.TabAll)
		require.NoError(t, err)
		it, found := s.Get("3")
		require.True(t, found)
		assert.True(t, it.InVault)
	})

	for _, tab := range []string{"", model.TabAll} {
		t.Run("global "+tab, func(t *testing.T) {
			s := setup(t)
			n, err := s.Clear(ctx, tab)
			require.NoError(t, err)
			assert.Equal(t, 4, n)

			var ids []string
			for _, it := range s.Snapshot().Items {
				ids = append(ids, it.ID)
				assert.True(t, it.Pinned)
			}
			assert.ElementsMatch(t, []string{"1", "2"}, ids)
		})
	}
}

func TestPersistFailureKeepsMutation(t *testing.T) {
	ctx := context.Background()
	s, db := newStore(t, 10)
	boom := errors.New("disk full")
	db.SetFailure(boom)

	err := s.Insert(ctx, textItem("a", 0))
	var pe *PersistError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, boom)

	_, found := s.Get("a")
	assert.True(t, found)
}

func TestTransact_EnforcesCapacity(t *testing.T) {
	ctx := context.Background()
	var removed int
	s, _ := newStore(t, 10, WithRemoveHook(func(items []model.ClipItem) { removed += len(items) }))
	for i := range 5 {
		require.NoError(t, s.Insert(ctx, textItem(fmt.Sprint(i), i)))
	}

	require.NoError(t, s.Transact(ctx, func(st *model.State) bool {
		st.Settings.MaxHistory = 2
		return true
	}))
	assert.Len(t, s.Snapshot().Items, 2)
	assert.Equal(t, 3, removed)
	assert.Equal(t, 2, s.Settings().MaxHistory)
}

func TestTransact_NoChangeSkipsSave(t *testing.T) {
	s, db := newStore(t, 10)
	before := db.Saves()
	require.NoError(t, s.Transact(context.Background(), func(*model.State) bool { return false }))
	assert.Equal(t, before, db.Saves())
}

func TestOpen_Repair(t *testing.T) {
	ctx := context.Background()
	st := model.NewState()
	st.Settings.MaxHistory = 2
	st.Tabs = []model.Tab{{ID: "work", Name: "Work"}}
	st.Items = []model.ClipItem{
		textItem("a", 4), textItem("a", 3), textItem("b", 2), textItem("c", 1), textItem("d", 0),
	}
	st.Items[3].Pinned = true
	db, err := persist.NewMemoryFrom(st)
	require.NoError(t, err)

	s, err := Open(ctx, db)
	require.NoError(t, err)
	got := s.Snapshot()

	var ids []string
	for _, it := range got.Items {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.GreaterOrEqual(t, got.FindTab(model.TabAll), 0)
	assert.GreaterOrEqual(t, got.FindTab(model.TabLinks), 0)
	assert.GreaterOrEqual(t, got.FindTab("work"), 0)
	assert.Equal(t, 1, db.Saves())
}

func TestOpen_CleanStateNotResaved(t *testing.T) {
	_, db := newStore(t, 10)
	assert.Zero(t, db.Saves())
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, 10)
	for i := range 3 {
		require.NoError(t, s.Insert(ctx, textItem(fmt.Sprint(i), i)))
	}
	_, _, _ = s.TogglePin(ctx, "0")
	_, _ = s.SetVault(ctx, "1", true)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalItems)
	assert.Equal(t, 1, st.PinnedItems)
	assert.Equal(t, 1, st.VaultItems)
	assert.Positive(t, st.StorageSize)
}

func TestImagePaths(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, 10)
	require.NoError(t, s.Insert(ctx, textItem("t", 0)))
	require.NoError(t, s.Insert(ctx, model.ClipItem{
		ID: "i", Kind: model.KindImage, ImagePath: "/blobs/x.png",
		Category: model.CategoryImage, Timestamp: base,
	}))
	assert.Equal(t, []string{"/blobs/x.png"}, s.ImagePaths())
}
