package manager

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/playadev/playa/pkg/playa"
)

// subscriberBuffer bounds each subscriber channel. Slow subscribers
// drop events instead of blocking the monitor loops.
const subscriberBuffer = 100

// Subscription is one subscriber's view of the event stream.
type Subscription struct {
	id string
	ch chan playa.Event
}

// ID returns the subscription identifier used for Unsubscribe.
func (s *Subscription) ID() string {
	return s.id
}

// Events returns the receive side of the subscription.
func (s *Subscription) Events() <-chan playa.Event {
	return s.ch
}

// Subscribe registers a new event subscriber.
func (m *Manager) Subscribe() *Subscription {
	sub := &Subscription{
		id: uuid.NewString(),
		ch: make(chan playa.Event, subscriberBuffer),
	}

	m.subMu.Lock()
	m.subs[sub.id] = sub.ch
	m.subMu.Unlock()
	return sub
}

// Unsubscribe removes a subscriber and closes its channel.
func (m *Manager) Unsubscribe(id string) {
	m.subMu.Lock()
	ch, ok := m.subs[id]
	if ok {
		delete(m.subs, id)
	}
	m.subMu.Unlock()

	if ok {
		close(ch)
	}
}

// publish fans an event out to every subscriber without blocking.
// Terminal kinds are delivered at most once per instance no matter how
// many detection paths fire.
func (m *Manager) publish(ev playa.Event) {
	if ev.Terminal() && !m.firstTerminal(ev.ID, ev.Kind) {
		m.log.Debug("suppressing duplicate terminal event",
			zap.Stringer("instance", ev.ID), zap.String("kind", string(ev.Kind)))
		return
	}

	m.subMu.Lock()
	defer m.subMu.Unlock()
	for id, ch := range m.subs {
		select {
		case ch <- ev:
		default:
			m.log.Debug("subscriber channel full, dropping event",
				zap.String("subscription", id), zap.String("kind", string(ev.Kind)))
		}
	}
}

// firstTerminal records a terminal emission and reports whether it was
// the first for this instance and kind.
func (m *Manager) firstTerminal(id playa.InstanceID, kind playa.EventKind) bool {
	m.dedupMu.Lock()
	defer m.dedupMu.Unlock()

	kinds, ok := m.notified[id]
	if !ok {
		kinds = map[playa.EventKind]struct{}{}
		m.notified[id] = kinds
	}
	if _, seen := kinds[kind]; seen {
		return false
	}
	kinds[kind] = struct{}{}
	return true
}
