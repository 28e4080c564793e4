//go:build !windows

package ipc

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

func socketPath() string {
	// Linux: prefer XDG_RUNTIME_DIR
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "copas.sock")
	}
	// macOS / fallback
	return filepath.Join(os.TempDir(), "copas-"+uid()+".sock")
}

func uid() string {
	return strconv.Itoa(os.Getuid())
}

func listenIPC(path string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

func dialIPC(path string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", path, timeout)
}

func removeStale(path string) error {
	return os.Remove(path)
}
