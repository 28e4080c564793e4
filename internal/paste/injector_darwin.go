//go:build darwin

package paste

import "os/exec"

// NewInjector returns the macOS injector. osascript needs the accessibility
// permission; without it injection fails and the dispatch degrades.
func NewInjector() Injector {
	if _, err := exec.LookPath("osascript"); err != nil {
		return Unavailable{Reason: "osascript not found"}
	}
	return NewCommand("osascript", "osascript", "-e",
		`tell application "System Events" to keystroke "v" using command down`)
}
