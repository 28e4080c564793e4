// Package logging configures the process-wide slog logger for copas.
//
// The level lives in a LevelVar so the daemon can change it when its config
// file is edited without rebuilding the handler.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pwntr/tinter"
)

// Format selects the log output format.
type Format string

const (
	FormatAuto Format = "auto"
	FormatText Format = "text"
	FormatJSON Format = "json"
)

var level slog.LevelVar

// ParseFormat converts a string to a Format. Unknown values mean auto.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "tint", "human":
		return FormatText
	case "json":
		return FormatJSON
	default:
		return FormatAuto
	}
}

// ParseLevel converts a string to a slog.Level, defaulting to Info.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// NewHandler returns the handler Setup would install, writing to w.
func NewHandler(w io.Writer, format Format, lv slog.Leveler) slog.Handler {
	if format == FormatText || (format == FormatAuto && IsTTY(w)) {
		return tinter.NewHandler(w, &tinter.Options{
			Level:      lv,
			TimeFormat: "15:04:05.000",
		})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lv})
}

// Setup installs the global logger on stderr. Call once after flags are
// parsed.
func Setup(format Format, lv slog.Level) {
	level.Set(lv)
	slog.SetDefault(slog.New(NewHandler(os.Stderr, format, &level)))
}

// SetLevel changes the level of the logger installed by Setup.
func SetLevel(lv slog.Level) {
	if level.Level() == lv {
		return
	}
	level.Set(lv)
	slog.Info("log level changed", "level", lv)
}

// Level returns the current global level.
func Level() slog.Level { return level.Level() }
