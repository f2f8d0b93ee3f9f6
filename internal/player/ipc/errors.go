package ipc

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
)

// Sentinel errors surfaced by the client.
var (
	// ErrClientClosed is returned for any operation after the client has
	// been intentionally closed. It never triggers a reconnect.
	ErrClientClosed = errors.New("ipc client intentionally closed")

	// ErrSocketNotFound means the player never created its socket within
	// the configured connect budget.
	ErrSocketNotFound = errors.New("ipc socket not found")

	// ErrResponseTimeout means no matching response arrived within the
	// configured timeout.
	ErrResponseTimeout = errors.New("ipc response timeout")

	// ErrPropertyUnavailable maps mpv's "property unavailable" status.
	ErrPropertyUnavailable = errors.New("property unavailable")
)

// CommandError is a non-success status reported by the player for a command.
type CommandError struct {
	Status string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("mpv: %s", e.Status)
}

// Is lets callers match the property-unavailable status as a sentinel.
func (e *CommandError) Is(target error) bool {
	return target == ErrPropertyUnavailable && e.Status == "property unavailable"
}

// terminal reports whether an error indicates the player process has exited.
// Terminal errors latch the intentionally-closed flag and disable
// reconnection; treating them as transient would mask process death.
func terminal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ENOENT) {
		return true
	}
	if errors.Is(err, os.ErrNotExist) {
		return true
	}
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	return false
}
