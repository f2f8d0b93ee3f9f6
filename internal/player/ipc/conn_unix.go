//go:build !windows

package ipc

import (
	"net"
	"os"
	"time"
)

// dial opens the player's local IPC socket.
func dial(path string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", path, timeout)
}

// socketExists reports whether the player has created its socket yet.
func socketExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
