package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/copas/internal/config"
	"go.klb.dev/copas/internal/message"
	"go.klb.dev/copas/internal/model"
)

func TestBindViper_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "copas.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir = "/tmp/from-file"

[storage]
type = "sqlite"

[paste]
delay = "300ms"

[clipboard]
headless = true
`), 0o600))

	load := func(args ...string) *config.Config {
		t.Helper()
		cmd := newDaemonCmd()
		require.NoError(t, cmd.ParseFlags(append([]string{"--config", path}, args...)))
		v := viper.New()
		require.NoError(t, bindViper(cmd, v))
		cfg, err := config.FromViper(v)
		require.NoError(t, err)
		return cfg
	}

	cfg := load()
	assert.Equal(t, "/tmp/from-file", cfg.DataDir)
	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, 300*time.Millisecond, cfg.Paste.Delay.Duration)
	assert.True(t, cfg.Clipboard.Headless, "unset --headless must not mask the file value")

	t.Setenv("COPAS_STORAGE_TYPE", "json")
	t.Setenv("COPAS_PASTE_DELAY", "50ms")
	cfg = load()
	assert.Equal(t, "json", cfg.Storage.Type)
	assert.Equal(t, 50*time.Millisecond, cfg.Paste.Delay.Duration)

	cfg = load("--storage", "sqlite", "--paste-delay", "1s", "--data-dir", "/tmp/from-flag")
	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, time.Second, cfg.Paste.Delay.Duration)
	assert.Equal(t, "/tmp/from-flag", cfg.DataDir)
}

func TestBindViper_BadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "copas.toml")
	require.NoError(t, os.WriteFile(path, []byte("storage = [unterminated"), 0o600))

	cmd := newDaemonCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--config", path}))
	assert.Error(t, bindViper(cmd, viper.New()))
}

func TestRenderTo(t *testing.T) {
	data := message.Count{Count: 3}
	text := func(w io.Writer) error {
		_, err := io.WriteString(w, "three\n")
		return err
	}

	var buf bytes.Buffer
	require.NoError(t, renderTo(&buf, "", data, text))
	assert.Equal(t, "three\n", buf.String())

	buf.Reset()
	require.NoError(t, renderTo(&buf, "json", data, text))
	assert.JSONEq(t, `{"count":3}`, buf.String())

	buf.Reset()
	require.NoError(t, renderTo(&buf, "YAML", data, text))
	assert.Equal(t, "count: 3\n", buf.String())

	assert.Error(t, renderTo(&buf, "xml", data, text))
}

func TestContentRequest(t *testing.T) {
	txt := model.ClipItem{ID: "a", Kind: model.KindText, ContentText: "hello"}
	img := model.ClipItem{ID: "b", Kind: model.KindImage, ImagePath: "/data/images/x.png"}

	op, a, err := contentRequest([]model.ClipItem{txt}, message.OpCopyToClipboard, message.OpBulkCopy)
	require.NoError(t, err)
	assert.Equal(t, message.OpCopyToClipboard, op)
	assert.Equal(t, message.ContentArgs{Content: "hello"}, a)

	op, a, err = contentRequest([]model.ClipItem{img}, message.OpPasteAndHide, message.OpBulkPasteAndHide)
	require.NoError(t, err)
	assert.Equal(t, message.OpPasteAndHide, op)
	assert.Equal(t, message.ContentArgs{ImagePath: img.ImagePath}, a)

	op, a, err = contentRequest([]model.ClipItem{txt, txt}, message.OpCopyToClipboard, message.OpBulkCopy)
	require.NoError(t, err)
	assert.Equal(t, message.OpBulkCopy, op)
	assert.Equal(t, message.ContentsArgs{Contents: []string{"hello", "hello"}}, a)

	_, _, err = contentRequest([]model.ClipItem{txt, img}, message.OpCopyToClipboard, message.OpBulkCopy)
	assert.Error(t, err)
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "a b c", oneLine("a\n\tb   c", 20))
	assert.Equal(t, "abcd…", oneLine("abcdefgh", 5))
	assert.Equal(t, "héllo", oneLine("héllo", 5))
}

func TestFmtBytes(t *testing.T) {
	assert.Equal(t, "512 B", fmtBytes(512))
	assert.Equal(t, "1.5 KiB", fmtBytes(1536))
	assert.Equal(t, "2.0 MiB", fmtBytes(2<<20))
}

func TestFlags(t *testing.T) {
	tab := "work"
	assert.Equal(t, "-", flags(model.ClipItem{}))
	assert.Equal(t, "PVT", flags(model.ClipItem{Pinned: true, InVault: true, TabID: &tab}))
}
