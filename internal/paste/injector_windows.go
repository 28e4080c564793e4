//go:build windows

package paste

import "os/exec"

// NewInjector returns a PowerShell SendKeys injector.
func NewInjector() Injector {
	if _, err := exec.LookPath("powershell.exe"); err != nil {
		return Unavailable{Reason: "powershell.exe not found"}
	}
	return NewCommand("powershell", "powershell.exe", "-NoProfile", "-NonInteractive", "-Command",
		`(New-Object -ComObject WScript.Shell).SendKeys('^v')`)
}
