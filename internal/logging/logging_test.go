package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatText, ParseFormat("Text"))
	assert.Equal(t, FormatText, ParseFormat("tint"))
	assert.Equal(t, FormatJSON, ParseFormat(" json "))
	assert.Equal(t, FormatAuto, ParseFormat("xml"))
	assert.Equal(t, FormatAuto, ParseFormat(""))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("loud"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestIsTTY_Buffer(t *testing.T) {
	assert.False(t, IsTTY(&bytes.Buffer{}))
}

func TestNewHandler_JSONHonoursLevelVar(t *testing.T) {
	var buf bytes.Buffer
	var lv slog.LevelVar
	lv.Set(slog.LevelWarn)
	log := slog.New(NewHandler(&buf, FormatJSON, &lv))

	log.Info("hidden")
	assert.Zero(t, buf.Len())

	lv.Set(slog.LevelInfo)
	log.Info("shown", "k", "v")
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "v", rec["k"])
}

func TestNewHandler_AutoOnBufferIsJSON(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewHandler(&buf, FormatAuto, slog.LevelInfo)).Info("x")
	assert.True(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestSetLevel(t *testing.T) {
	prev := Level()
	t.Cleanup(func() { level.Set(prev) })

	SetLevel(slog.LevelError)
	assert.Equal(t, slog.LevelError, Level())
}
