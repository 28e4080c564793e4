// Package clip provides a unified interface to the system clipboard.
//
//	native.go  - golang.design/x/clipboard (macOS, Windows, Linux X11)
//	memory.go  - in-process clipboard for headless hosts and tests
package clip

import "errors"

// ErrUnavailable is returned by New when the system clipboard cannot be
// initialised and headless fallback was not requested.
var ErrUnavailable = errors.New("system clipboard unavailable")

// Backend is the interface that all clipboard implementations satisfy.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// ReadText returns the current text contents, or "" when the clipboard
	// holds no text.
	ReadText() (string, error)

	// ReadImage returns the current PNG contents, or nil when the clipboard
	// holds no image.
	ReadImage() ([]byte, error)

	// WriteText replaces the clipboard contents with text.
	WriteText(text string) error

	// WriteImage replaces the clipboard contents with a PNG image.
	WriteImage(png []byte) error

	// Close releases any resources held by the backend.
	Close()
}
