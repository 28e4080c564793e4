package hub

import (
	"context"
	"log/slog"

	"go.klb.dev/copas/internal/model"
)

const previewLen = 120

// LogItem logs a captured entry at INFO (id, kind, category) and DEBUG
// (text preview up to 120 chars, or the image path).
func LogItem(event string, it model.ClipItem) {
	slog.Info(event, "id", it.ID, "kind", it.Kind, "category", it.Category)

	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	if it.Kind == model.KindImage {
		slog.Debug("clipboard item", "id", it.ID, "image", it.ImagePath)
		return
	}
	slog.Debug("clipboard item", "id", it.ID, "preview", Preview(it.ContentText))
}

// Preview truncates s to 120 runes.
func Preview(s string) string {
	r := []rune(s)
	if len(r) <= previewLen {
		return s
	}
	return string(r[:previewLen]) + "…"
}
