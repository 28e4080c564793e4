package clip

import (
	"fmt"
	"log/slog"

	"golang.design/x/clipboard"
)

type nativeBackend struct{}

// New returns the system clipboard backend. When the display environment is
// unavailable (a server without X11, a container) it returns an in-memory
// backend if headless is true and ErrUnavailable otherwise.
// clipboard.Init is called here rather than in init() so that CLI commands
// that never touch the clipboard don't trigger the warning.
func New(headless bool) (Backend, error) {
	if err := clipboard.Init(); err != nil {
		if headless {
			slog.Warn("clipboard unavailable, running headless", "err", err)
			return NewMemory(), nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nativeBackend{}, nil
}

func (nativeBackend) Name() string { return "system clipboard" }

func (nativeBackend) ReadText() (string, error) {
	return string(clipboard.Read(clipboard.FmtText)), nil
}

func (nativeBackend) ReadImage() ([]byte, error) {
	return clipboard.Read(clipboard.FmtImage), nil
}

func (nativeBackend) WriteText(text string) error {
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

func (nativeBackend) WriteImage(png []byte) error {
	if len(png) == 0 {
		return fmt.Errorf("write image: empty payload")
	}
	clipboard.Write(clipboard.FmtImage, png)
	return nil
}

func (nativeBackend) Close() {}
