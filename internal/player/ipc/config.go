package ipc

import "time"

// Defaults for IPC connections.
const (
	DefaultTimeout              = 5 * time.Second
	DefaultPollInterval         = 100 * time.Millisecond
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectDelay       = 500 * time.Millisecond

	// maxBackoffDelay caps the exponential connect/reconnect backoff.
	maxBackoffDelay = time.Second
)

// Config holds IPC connection options.
type Config struct {
	// Timeout bounds every blocking response read.
	Timeout time.Duration
	// PollInterval is the suggested property polling interval for
	// consumers of this client.
	PollInterval time.Duration
	// AutoReconnect enables a single reconnect attempt on transient
	// I/O errors.
	AutoReconnect bool
	// MaxReconnectAttempts bounds connect retries and reconnects.
	MaxReconnectAttempts int
	// ReconnectDelay is the backoff base delay between attempts.
	ReconnectDelay time.Duration
}

// DefaultConfig returns the standard connection options.
func DefaultConfig() Config {
	return Config{
		Timeout:              DefaultTimeout,
		PollInterval:         DefaultPollInterval,
		AutoReconnect:        true,
		MaxReconnectAttempts: DefaultMaxReconnectAttempts,
		ReconnectDelay:       DefaultReconnectDelay,
	}
}

// WithoutReconnect returns options with reconnection disabled.
func WithoutReconnect() Config {
	cfg := DefaultConfig()
	cfg.AutoReconnect = false
	cfg.MaxReconnectAttempts = 0
	return cfg
}

// AggressiveReconnect returns options that retry harder and sooner.
func AggressiveReconnect() Config {
	cfg := DefaultConfig()
	cfg.MaxReconnectAttempts = 10
	cfg.ReconnectDelay = 250 * time.Millisecond
	return cfg
}

// normalize fills zero fields with defaults.
func (c Config) normalize() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.MaxReconnectAttempts < 0 {
		c.MaxReconnectAttempts = 0
	}
	return c
}

// backoffDelay returns the delay before the given zero-based attempt,
// doubling from the base and capped at maxBackoffDelay.
func (c Config) backoffDelay(attempt int) time.Duration {
	delay := c.ReconnectDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= maxBackoffDelay {
			return maxBackoffDelay
		}
	}
	if delay > maxBackoffDelay {
		return maxBackoffDelay
	}
	return delay
}
