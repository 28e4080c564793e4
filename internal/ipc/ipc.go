// Package ipc provides the local channel between the copas daemon and CLI
// tools: a Unix domain socket, or a named pipe on Windows.
package ipc

import (
	"errors"
	"io/fs"
	"net"
	"os"
	"time"
)

// SocketPath returns the IPC address. An explicit override wins, then
// $COPAS_SOCKET, then the platform default.
func SocketPath(override string) string {
	if override != "" {
		return override
	}
	if s := os.Getenv("COPAS_SOCKET"); s != "" {
		return s
	}
	return socketPath()
}

// IsRunning reports whether a daemon appears to be listening on path. It
// does a cheap dial-and-close; no data is exchanged.
func IsRunning(path string) bool {
	c, err := dialIPC(path, time.Second)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// ErrAlreadyRunning is returned by Listen when another daemon owns path.
var ErrAlreadyRunning = errors.New("copas daemon already running")

// Listen creates a listener on path. A stale socket from a crashed run is
// removed first; a live one is an error.
func Listen(path string) (net.Listener, error) {
	if IsRunning(path) {
		return nil, ErrAlreadyRunning
	}
	if err := removeStale(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return listenIPC(path)
}

// Dial connects to the daemon at path.
func Dial(path string) (net.Conn, error) {
	return dialIPC(path, 2*time.Second)
}
