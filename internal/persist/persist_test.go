package persist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/copas/internal/model"
)

func sampleState() *model.State {
	s := model.NewState()
	s.Items = append(s.Items,
		model.ClipItem{
			ID:          "a",
			Kind:        model.KindText,
			ContentText: "https://example.com",
			Category:    model.CategoryLink,
			TabID:       model.StrPtr(model.TabLinks),
			Timestamp:   time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
			Pinned:      true,
			Label:       "docs",
		},
		model.ClipItem{
			ID:          "b",
			Kind:        model.KindText,
			ContentText: "hello",
			Category:    model.CategoryText,
			Timestamp:   time.Date(2024, 1, 15, 10, 29, 0, 0, time.UTC),
			InVault:     true,
		},
	)
	s.Settings.MaxHistory = 42
	s.Vault.PinHash = "hash"
	return s
}

// adapters returns one of each durable adapter plus Memory, each fresh.
func adapters(t *testing.T) map[string]Adapter {
	t.Helper()
	dir := t.TempDir()

	f, err := NewFile(filepath.Join(dir, JSONFile))
	require.NoError(t, err)
	db, err := OpenSQLite(filepath.Join(dir, SQLiteFile))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return map[string]Adapter{
		"file":   f,
		"sqlite": db,
		"memory": NewMemory(),
	}
}

func TestAdapters_FirstRunDefaults(t *testing.T) {
	for name, a := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			s, err := a.Load(context.Background())
			require.NoError(t, err)
			assert.Equal(t, model.DefaultTabs(), s.Tabs)
			assert.Empty(t, s.Items)
			assert.Equal(t, model.DefaultSettings(), s.Settings)
		})
	}
}

func TestAdapters_RoundTrip(t *testing.T) {
	for name, a := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := sampleState()
			require.NoError(t, a.Save(ctx, want))

			got, err := a.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			size, err := a.Size(ctx)
			require.NoError(t, err)
			assert.Positive(t, size)
		})
	}
}

func TestAdapters_SaveReplaces(t *testing.T) {
	for name, a := range adapters(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, a.Save(ctx, sampleState()))

			next := model.NewState()
			next.Settings.Theme = "dark"
			require.NoError(t, a.Save(ctx, next))

			got, err := a.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, got.Items)
			assert.Equal(t, "dark", got.Settings.Theme)
		})
	}
}

func TestFile_CorruptIsBackedUp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, JSONFile)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	f, err := NewFile(path)
	require.NoError(t, err)
	s, err := f.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultTabs(), s.Tabs)

	bak, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(bak))
}

func TestFile_PartialBlobMergesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, JSONFile)
	require.NoError(t, os.WriteFile(path, []byte(`{"settings":{"theme":"dark"}}`), 0o600))

	f, err := NewFile(path)
	require.NoError(t, err)
	s, err := f.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultTabs(), s.Tabs)
	assert.Equal(t, "dark", s.Settings.Theme)
	assert.Equal(t, model.DefaultMaxHistory, s.Settings.MaxHistory)
}

func TestFile_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(filepath.Join(dir, JSONFile))
	require.NoError(t, err)
	require.NoError(t, f.Save(context.Background(), sampleState()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, JSONFile, entries[0].Name())
}

func TestFile_SizeMissing(t *testing.T) {
	f, err := NewFile(filepath.Join(t.TempDir(), JSONFile))
	require.NoError(t, err)
	n, err := f.Size(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemory_Failure(t *testing.T) {
	m := NewMemory()
	boom := errors.New("disk full")
	m.SetFailure(boom)
	assert.ErrorIs(t, m.Save(context.Background(), sampleState()), boom)
	assert.Zero(t, m.Saves())

	m.SetFailure(nil)
	require.NoError(t, m.Save(context.Background(), sampleState()))
	assert.Equal(t, 1, m.Saves())
}

func TestDecode_Corrupt(t *testing.T) {
	_, err := decode([]byte("nope"))
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	a, err := Open("", dir)
	require.NoError(t, err)
	assert.IsType(t, &File{}, a)

	b, err := Open(KindSQLite, dir)
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, b)
	require.NoError(t, b.Close())

	_, err = Open("redis", dir)
	assert.Error(t, err)
}
