// Package events turns raw player property polls into a deduplicated
// stream of semantic playback events.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/playadev/playa/internal/player/ipc"
	"github.com/playadev/playa/pkg/playa"
)

// Type discriminates listener event variants.
type Type string

// Event types delivered to callbacks.
const (
	TypePaused          Type = "playback-paused"
	TypeResumed         Type = "playback-resumed"
	TypeCompleted       Type = "playback-completed"
	TypeClosed          Type = "playback-closed"
	TypePositionChanged Type = "time-position-changed"
	TypePercentChanged  Type = "percent-position-changed"
	TypeProcessExited   Type = "process-exited"
	TypePropertyChanged Type = "property-changed"
)

// Registration keys for Subscribe. KeyAll receives every event.
const (
	KeyPause   = playa.PropPause
	KeyTimePos = playa.PropTimePos
	KeyPercent = playa.PropPercentPos
	KeyEOF     = playa.PropEOFReached
	KeyIdle    = playa.PropIdleActive
	KeyProcess = "process"
	KeyAll     = "all"
)

// Event is one translated player event.
type Event struct {
	Type     Type
	Property string
	Value    json.RawMessage
	Position float64
	Percent  float64
}

// Callback receives events. Callbacks must not block; they run on the
// polling goroutine.
type Callback func(Event)

// DefaultPositionThreshold is the minimum position delta, in seconds,
// that produces a position event.
const DefaultPositionThreshold = 5.0

// pollState holds per-listener previous values for edge detection. One
// instance per listener keeps concurrent players from corrupting each
// other's transitions.
type pollState struct {
	pause        *bool
	eof          *bool
	idle         *bool
	position     *float64
	wasConnected bool
}

// Listener polls a dedicated IPC client and fans events out to
// registered callbacks.
type Listener struct {
	log       *zap.Logger
	client    *ipc.Client
	threshold float64

	mu            sync.Mutex
	callbacks     map[string][]Callback
	observed      map[string]uint64
	running       bool
	done          chan struct{}
	exitDelivered bool
	state         pollState
}

// NewListener creates a listener over its own IPC client.
func NewListener(client *ipc.Client, log *zap.Logger) *Listener {
	if log == nil {
		log = zap.NewNop()
	}
	return &Listener{
		log:       log,
		client:    client,
		threshold: DefaultPositionThreshold,
		callbacks: map[string][]Callback{},
		observed:  map[string]uint64{},
	}
}

// SetPositionThreshold overrides the minimum position delta in seconds.
func (l *Listener) SetPositionThreshold(seconds float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if seconds > 0 {
		l.threshold = seconds
	}
}

// Subscribe registers a callback under an event key. Property keys are
// additionally registered with the player for change reporting; a
// property is never registered twice.
func (l *Listener) Subscribe(key string, cb Callback) error {
	l.mu.Lock()
	l.callbacks[key] = append(l.callbacks[key], cb)
	l.mu.Unlock()

	switch key {
	case KeyPause, KeyTimePos, KeyPercent, KeyEOF, KeyIdle:
		return l.observe(key)
	}
	return nil
}

// observe registers a property subscription exactly once.
func (l *Listener) observe(property string) error {
	l.mu.Lock()
	if _, ok := l.observed[property]; ok {
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()

	id, err := l.client.ObserveProperty(property)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.observed[property] = id
	l.mu.Unlock()
	return nil
}

// Start launches the polling goroutine. Starting twice is a no-op.
func (l *Listener) Start() error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = true
	l.done = make(chan struct{})
	done := l.done
	l.mu.Unlock()

	go l.run(done)
	l.log.Debug("event listener started")
	return nil
}

// Stop halts polling, joins the goroutine, best-effort unobserves every
// tracked property, and clears tracked state. Safe to call repeatedly
// and after the player has already exited.
func (l *Listener) Stop() {
	l.mu.Lock()
	l.running = false
	done := l.done
	l.mu.Unlock()

	if done != nil {
		<-done
	}

	l.mu.Lock()
	observed := l.observed
	l.observed = map[string]uint64{}
	l.state = pollState{}
	l.mu.Unlock()

	for property, id := range observed {
		if err := l.client.UnobserveProperty(id); err != nil {
			l.log.Debug("unobserve failed",
				zap.String("property", property), zap.Error(err))
		}
	}
	l.log.Debug("event listener stopped")
}

// HandleProcessExit closes the client and delivers one process-exit
// notification. Used when an owner detects exit out-of-band.
func (l *Listener) HandleProcessExit() {
	l.client.Close()
	l.Stop()
	l.emitProcessExit()
}

// emitProcessExit delivers the process-exit notification at most once,
// whichever of the poll loop or HandleProcessExit gets there first.
func (l *Listener) emitProcessExit() {
	l.mu.Lock()
	if l.exitDelivered {
		l.mu.Unlock()
		return
	}
	l.exitDelivered = true
	l.mu.Unlock()
	l.emit(KeyProcess, Event{Type: TypeProcessExited})
}

// IsRunning reports whether the polling goroutine is active.
func (l *Listener) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

func (l *Listener) run(done chan struct{}) {
	defer close(done)

	interval := l.client.PollInterval()
	for {
		l.mu.Lock()
		running := l.running
		l.mu.Unlock()
		if !running {
			return
		}

		if l.client.IsIntentionallyClosed() {
			l.log.Debug("client closed, delivering process exit")
			l.emitProcessExit()
			l.mu.Lock()
			l.running = false
			l.mu.Unlock()
			return
		}

		l.trackReconnect()
		l.poll()
		time.Sleep(interval)
	}
}

// trackReconnect re-registers property observers after the connection
// comes back. The IPC client replays its own subscriptions on reconnect;
// re-issuing here covers observers registered while disconnected.
func (l *Listener) trackReconnect() {
	connected := l.client.IsConnected()

	l.mu.Lock()
	was := l.state.wasConnected
	l.state.wasConnected = connected
	observed := make([]string, 0, len(l.observed))
	for property := range l.observed {
		observed = append(observed, property)
	}
	l.mu.Unlock()

	if connected && !was {
		for _, property := range observed {
			if _, err := l.client.ObserveProperty(property); err != nil {
				l.log.Debug("re-observe failed",
					zap.String("property", property), zap.Error(err))
			}
		}
	}
}

// poll reads the fixed property set and emits edge-triggered events.
func (l *Listener) poll() {
	if paused, err := l.client.GetPropertyBool(playa.PropPause); err == nil {
		l.mu.Lock()
		prev := l.state.pause
		l.state.pause = &paused
		l.mu.Unlock()

		if prev == nil || *prev != paused {
			if paused {
				l.emit(KeyPause, Event{Type: TypePaused})
			} else if prev != nil {
				// The very first poll of an unpaused player is not a
				// resume transition.
				l.emit(KeyPause, Event{Type: TypeResumed})
			}
		}
	}

	if pos, err := l.client.GetPropertyFloat(playa.PropTimePos); err == nil {
		l.mu.Lock()
		prev := l.state.position
		threshold := l.threshold
		changed := prev == nil || abs(pos-*prev) >= threshold
		if changed {
			l.state.position = &pos
		}
		l.mu.Unlock()

		if changed {
			l.emit(KeyTimePos, Event{Type: TypePositionChanged, Position: pos})
		}
	}

	if percent, err := l.client.GetPropertyFloat(playa.PropPercentPos); err == nil {
		l.emit(KeyPercent, Event{Type: TypePercentChanged, Percent: percent})
	}

	if eof, err := l.client.GetPropertyBool(playa.PropEOFReached); err == nil {
		l.mu.Lock()
		prev := l.state.eof
		l.state.eof = &eof
		l.mu.Unlock()

		if eof && (prev == nil || !*prev) {
			l.emit(KeyEOF, Event{Type: TypeCompleted})
		}
	}

	if idle, err := l.client.GetPropertyBool(playa.PropIdleActive); err == nil {
		l.mu.Lock()
		prev := l.state.idle
		l.state.idle = &idle
		l.mu.Unlock()

		if idle && (prev == nil || !*prev) {
			l.emit(KeyIdle, Event{Type: TypeClosed})
		}
	}
}

// emit invokes the callbacks registered for key, then the "all" group,
// in registration order.
func (l *Listener) emit(key string, ev Event) {
	l.mu.Lock()
	direct := append([]Callback(nil), l.callbacks[key]...)
	all := append([]Callback(nil), l.callbacks[KeyAll]...)
	l.mu.Unlock()

	for _, cb := range direct {
		cb(ev)
	}
	for _, cb := range all {
		cb(ev)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
