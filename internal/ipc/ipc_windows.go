//go:build windows

package ipc

import (
	"net"
	"time"

	"github.com/Microsoft/go-winio"
)

const pipeName = `\\.\pipe\copas`

func socketPath() string { return pipeName }

func listenIPC(path string) (net.Listener, error) {
	// Restrict the pipe to the current user.
	return winio.ListenPipe(path, &winio.PipeConfig{SecurityDescriptor: "D:P(A;;GA;;;OW)"})
}

func dialIPC(path string, timeout time.Duration) (net.Conn, error) {
	return winio.DialPipe(path, &timeout)
}

// Named pipes vanish with their owner.
func removeStale(string) error { return nil }
