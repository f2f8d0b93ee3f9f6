package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/playadev/playa/pkg/playa"
)

// response is one line of the player's wire protocol. Unsolicited event
// notifications carry Event and no RequestID.
type response struct {
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
	RequestID *uint64         `json:"request_id"`
	Event     string          `json:"event"`
}

// Client is a synchronous JSON-line IPC client for one player process.
// All request/response cycles are serialized by an internal mutex, so a
// Client may be shared between a control path and a monitoring path.
type Client struct {
	log  *zap.Logger
	cfg  Config
	path string

	closed    atomic.Bool // sticky: once true, nothing reconnects
	connected atomic.Bool

	mu            sync.Mutex // serializes request/response cycles
	nextID        uint64
	observed      map[string]uint64 // property name -> subscription id
	reconnects    int
	lastReconnect time.Time

	connMu          sync.Mutex // guards conn/reader swaps, also taken by Close
	conn            net.Conn
	reader          *bufio.Reader
	transportClosed bool
}

// Connect opens the player socket at path, retrying with exponential
// backoff while the socket file does not exist yet.
func Connect(path string, cfg Config, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cfg = cfg.normalize()

	attempts := cfg.MaxReconnectAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			time.Sleep(cfg.backoffDelay(attempt - 1))
		}
		if !socketExists(path) {
			lastErr = fmt.Errorf("%w: %s", ErrSocketNotFound, path)
			continue
		}
		conn, err := dial(path, cfg.Timeout)
		if err != nil {
			lastErr = err
			continue
		}
		c := &Client{
			log:      log.With(zap.String("socket", path)),
			cfg:      cfg,
			path:     path,
			nextID:   1,
			observed: map[string]uint64{},
			conn:     conn,
			reader:   bufio.NewReader(conn),
		}
		c.connected.Store(true)
		c.log.Debug("connected to player socket")
		return c, nil
	}
	return nil, fmt.Errorf("connect %s: %w", path, lastErr)
}

// Command sends a named command with arguments and returns the data field
// of the matching response.
func (c *Client) Command(name string, args ...any) (json.RawMessage, error) {
	cmd := make([]any, 0, len(args)+1)
	cmd = append(cmd, name)
	cmd = append(cmd, args...)
	return c.roundTrip(cmd)
}

// GetProperty reads a property value.
func (c *Client) GetProperty(name string) (json.RawMessage, error) {
	return c.roundTrip([]any{"get_property", name})
}

// GetPropertyFloat reads a numeric property.
func (c *Client) GetPropertyFloat(name string) (float64, error) {
	raw, err := c.GetProperty(name)
	if err != nil {
		return 0, err
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("property %s: %w", name, err)
	}
	return v, nil
}

// GetPropertyBool reads a boolean property.
func (c *Client) GetPropertyBool(name string) (bool, error) {
	raw, err := c.GetProperty(name)
	if err != nil {
		return false, err
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, fmt.Errorf("property %s: %w", name, err)
	}
	return v, nil
}

// GetPropertyString reads a string property.
func (c *Client) GetPropertyString(name string) (string, error) {
	raw, err := c.GetProperty(name)
	if err != nil {
		return "", err
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("property %s: %w", name, err)
	}
	return v, nil
}

// SetProperty writes a property value.
func (c *Client) SetProperty(name string, value any) error {
	_, err := c.roundTrip([]any{"set_property", name, value})
	return err
}

// ObserveProperty registers a property for change reporting and returns
// the subscription id. Observing an already-observed property returns the
// existing id.
func (c *Client) ObserveProperty(name string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.observed[name]; ok {
		return id, nil
	}

	id := c.nextID
	if _, err := c.roundTripLocked([]any{"observe_property", id, name}); err != nil {
		return 0, err
	}
	c.observed[name] = id
	return id, nil
}

// UnobserveProperty cancels a property subscription.
func (c *Client) UnobserveProperty(id uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.roundTripLocked([]any{"unobserve_property", id}); err != nil {
		return err
	}
	for name, observed := range c.observed {
		if observed == id {
			delete(c.observed, name)
			break
		}
	}
	return nil
}

// Seek jumps to an absolute position in seconds.
func (c *Client) Seek(position float64) error {
	_, err := c.roundTrip([]any{"seek", position, "absolute"})
	return err
}

// SetPause pauses or resumes playback.
func (c *Client) SetPause(paused bool) error {
	return c.SetProperty(playa.PropPause, paused)
}

// SetVolume sets the player volume (0-100).
func (c *Client) SetVolume(volume float64) error {
	return c.SetProperty(playa.PropVolume, volume)
}

// PlaybackStatus returns a coarse status string: "idle", "paused" or
// "playing". It is a best-effort heuristic over idle-active, core-idle
// and pause.
func (c *Client) PlaybackStatus() (string, error) {
	idle, err := c.GetPropertyBool(playa.PropIdleActive)
	if err != nil {
		return "", err
	}
	if idle {
		return "idle", nil
	}
	// core-idle goes false only while playback is actually advancing.
	coreIdle, err := c.GetPropertyBool(playa.PropCoreIdle)
	if err != nil {
		return "", err
	}
	if !coreIdle {
		return "playing", nil
	}
	paused, err := c.GetPropertyBool(playa.PropPause)
	if err != nil {
		return "", err
	}
	if paused {
		return "paused", nil
	}
	return "playing", nil
}

// Quit asks the player to exit and marks the client intentionally closed.
// The player may die before replying, so the response is not awaited. A
// quit is still attempted when the sticky closed flag is already set, so
// teardown paths that latch the flag first can shut the player down
// gracefully.
func (c *Client) Quit() error {
	c.mu.Lock()
	var err error
	if c.conn != nil {
		err = c.writeLocked([]any{"quit"})
	} else {
		err = ErrClientClosed
	}
	c.mu.Unlock()

	c.Close()
	return err
}

// Close marks the client intentionally closed and shuts the transport
// down so any in-flight read fails fast. It is idempotent, and the two
// halves are independent: a Close after MarkIntentionallyClosed still
// closes the transport.
func (c *Client) Close() {
	first := !c.closed.Swap(true)
	c.connected.Store(false)

	c.connMu.Lock()
	if c.conn != nil && !c.transportClosed {
		_ = c.conn.Close()
		c.transportClosed = true
	}
	c.connMu.Unlock()

	if first {
		c.log.Debug("ipc client closed")
	}
}

// MarkIntentionallyClosed latches the sticky closed flag without touching
// the transport. Used when a peer's exit has been detected elsewhere.
func (c *Client) MarkIntentionallyClosed() {
	c.closed.Store(true)
	c.connected.Store(false)
}

// IsIntentionallyClosed reports the sticky closed flag.
func (c *Client) IsIntentionallyClosed() bool {
	return c.closed.Load()
}

// IsConnected reports whether the transport was healthy after the last
// request cycle.
func (c *Client) IsConnected() bool {
	return c.connected.Load() && !c.closed.Load()
}

// SocketPath returns the path this client dialed.
func (c *Client) SocketPath() string {
	return c.path
}

// PollInterval returns the configured polling interval for consumers.
func (c *Client) PollInterval() time.Duration {
	return c.cfg.PollInterval
}

// IsRunning is a best-effort liveness probe. It combines a pid read with
// idle/eof indicators; when the player reports idle or end-of-file the
// client latches intentionally closed, anticipating imminent exit.
func (c *Client) IsRunning() bool {
	if c.closed.Load() {
		return false
	}
	if _, err := c.GetProperty(playa.PropPID); err != nil {
		return false
	}
	if _, err := c.GetPropertyString(playa.PropPath); err != nil {
		if !errors.Is(err, ErrPropertyUnavailable) {
			return false
		}
	}
	idle, err := c.GetPropertyBool(playa.PropIdleActive)
	if err == nil && idle {
		c.log.Debug("player reports idle, marking client closed")
		c.MarkIntentionallyClosed()
		return false
	}
	eof, err := c.GetPropertyBool(playa.PropEOFReached)
	if err == nil && eof {
		c.log.Debug("player reports eof, marking client closed")
		c.MarkIntentionallyClosed()
		return false
	}
	return true
}

// roundTrip runs one serialized request/response cycle.
func (c *Client) roundTrip(cmd []any) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roundTripLocked(cmd)
}

// roundTripLocked performs the cycle, classifying failures: terminal
// errors latch the closed flag; transient errors get one reconnect and a
// single retry of the original call.
func (c *Client) roundTripLocked(cmd []any) (json.RawMessage, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	raw, err := c.exchangeLocked(cmd)
	if err == nil {
		return raw, nil
	}

	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		// The player answered, so the transport is fine. A property
		// reported unavailable on a previously healthy connection almost
		// always precedes process exit; latch rather than retry.
		if errors.Is(err, ErrPropertyUnavailable) && c.connected.Load() {
			c.log.Debug("property unavailable on live connection, marking closed")
			c.closed.Store(true)
			c.connected.Store(false)
		}
		return nil, err
	}

	if terminal(err) {
		c.log.Debug("terminal ipc error", zap.Error(err))
		c.closed.Store(true)
		c.connected.Store(false)
		return nil, err
	}

	c.connected.Store(false)
	if !c.cfg.AutoReconnect {
		return nil, err
	}
	if rerr := c.reconnectLocked(); rerr != nil {
		c.log.Debug("reconnect failed", zap.Error(rerr))
		return nil, err
	}
	return c.exchangeLocked(cmd)
}

// exchangeLocked writes one request and scans lines for its response.
func (c *Client) exchangeLocked(cmd []any) (json.RawMessage, error) {
	id := c.nextID
	c.nextID++

	if err := c.writeRequestLocked(id, cmd); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(c.cfg.Timeout)
	_ = c.conn.SetReadDeadline(deadline)
	defer c.conn.SetReadDeadline(time.Time{})

	for {
		line, err := c.reader.ReadBytes('\n')
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				return nil, fmt.Errorf("%w after %s", ErrResponseTimeout, c.cfg.Timeout)
			}
			return nil, err
		}

		var resp response
		if err := json.Unmarshal(line, &resp); err != nil {
			c.log.Warn("skipping malformed ipc line", zap.ByteString("line", line))
			continue
		}
		if resp.Event != "" {
			// Unsolicited notification, not the response we wait for.
			continue
		}
		if resp.RequestID == nil || *resp.RequestID != id {
			c.log.Warn("skipping response for unexpected request id",
				zap.Uint64("want", id))
			continue
		}

		c.connected.Store(true)
		if resp.Error != "" && resp.Error != "success" {
			return nil, &CommandError{Status: resp.Error}
		}
		return resp.Data, nil
	}
}

// writeRequestLocked serializes and writes one request line.
func (c *Client) writeRequestLocked(id uint64, cmd []any) error {
	payload, err := json.Marshal(map[string]any{
		"command":    cmd,
		"request_id": id,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	payload = append(payload, '\n')

	_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.Timeout))
	defer c.conn.SetWriteDeadline(time.Time{})
	_, err = c.conn.Write(payload)
	return err
}

// writeLocked writes a request without awaiting its response.
func (c *Client) writeLocked(cmd []any) error {
	id := c.nextID
	c.nextID++
	return c.writeRequestLocked(id, cmd)
}

// reconnectLocked dials the socket again, respecting the attempt budget
// and a minimum inter-attempt delay, and replays property subscriptions.
func (c *Client) reconnectLocked() error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	if c.reconnects >= c.cfg.MaxReconnectAttempts {
		return fmt.Errorf("reconnect attempts exhausted (%d)", c.reconnects)
	}
	if since := time.Since(c.lastReconnect); since < c.cfg.ReconnectDelay {
		time.Sleep(c.cfg.ReconnectDelay - since)
	}
	c.reconnects++
	c.lastReconnect = time.Now()

	conn, err := dial(c.path, c.cfg.Timeout)
	if err != nil {
		return err
	}

	c.connMu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.connMu.Unlock()
	c.connected.Store(true)
	c.log.Debug("reconnected to player socket", zap.Int("attempt", c.reconnects))

	// Replay subscriptions so observers keep working across the gap.
	for name, id := range c.observed {
		if _, err := c.exchangeLocked([]any{"observe_property", id, name}); err != nil {
			c.log.Warn("failed to replay property observer",
				zap.String("property", name), zap.Error(err))
		}
	}
	return nil
}
