package persist

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/copas/internal/model"
)

const electronState = `{
  "tabs": [
    {"id": "all", "name": "All", "icon": "📋", "system": true},
    {"id": "links", "name": "Links", "icon": "🔗", "system": true},
    {"id": "important", "name": "Important", "icon": "⭐", "system": false},
    {"id": "work", "name": "Work", "icon": "💼", "system": false}
  ],
  "items": [
    {"id": "e1", "content": "https://example.com", "category": "link", "tabId": "work",
     "timestamp": "2023-05-01T08:00:00Z", "pinned": true, "label": "site"},
    {"id": "e2", "content": "hello", "category": "text",
     "timestamp": "2023-05-01T07:00:00Z"}
  ],
  "settings": {"maxHistory": 250, "theme": "dark"}
}`

func writeLegacy(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, LegacyFile), []byte(body), 0o600))
}

func TestOpen_ImportsLegacyOnFirstRun(t *testing.T) {
	for _, kind := range []string{KindJSON, KindSQLite} {
		t.Run(kind, func(t *testing.T) {
			legacy := filepath.Join(t.TempDir(), "CoPas")
			writeLegacy(t, legacy, electronState)

			a, err := Open(kind, t.TempDir(), filepath.Join(t.TempDir(), "copas"), legacy)
			require.NoError(t, err)
			t.Cleanup(func() { a.Close() })

			s, err := a.Load(context.Background())
			require.NoError(t, err)
			require.Len(t, s.Items, 2)
			assert.Len(t, s.Tabs, 4)
			assert.Equal(t, 250, s.Settings.MaxHistory)
			assert.Equal(t, "dark", s.Settings.Theme)

			e1 := s.Items[0]
			assert.Equal(t, model.KindText, e1.Kind)
			assert.Equal(t, "https://example.com", e1.ContentText)
			assert.True(t, e1.InTab("work"))
			assert.True(t, e1.Pinned)
			assert.Equal(t, "site", e1.Label)
		})
	}
}

func TestOpen_StoredStateWinsOverLegacy(t *testing.T) {
	ctx := context.Background()
	legacy := t.TempDir()
	writeLegacy(t, legacy, electronState)

	a, err := Open(KindJSON, t.TempDir(), legacy)
	require.NoError(t, err)
	require.NoError(t, a.Save(ctx, sampleState()))

	s, err := a.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleState(), s)
}

func TestImportLegacy_SalvagesGoodItems(t *testing.T) {
	body := `{"items": [
	  {"id": "ok", "content": "kept", "timestamp": "2023-05-01T07:00:00Z"},
	  {"id": "bad", "content": "dropped", "timestamp": "yesterday"},
	  {"content": "no id", "timestamp": "2023-05-01T07:00:00Z"}
	]}`
	st, ok := importLegacy([]byte(body))
	require.True(t, ok)
	require.Len(t, st.Items, 1)
	assert.Equal(t, "ok", st.Items[0].ID)
	assert.Equal(t, "kept", st.Items[0].ContentText)
	assert.Equal(t, model.DefaultTabs(), st.Tabs)
}

func TestFirstRun_NothingWorthImporting(t *testing.T) {
	empty := t.TempDir()
	writeLegacy(t, empty, `{"items": [{"id": 7}], "tabs": "x"}`)
	garbage := t.TempDir()
	writeLegacy(t, garbage, "{not json")

	s := firstRun([]string{empty, garbage, filepath.Join(t.TempDir(), "missing")})
	assert.Equal(t, model.NewState(), s)
}
