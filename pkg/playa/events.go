package playa

// EventKind discriminates playback event variants.
type EventKind string

// Event kinds emitted by the instance manager and its monitors.
const (
	EventProgress EventKind = "progress"
	EventStarted  EventKind = "started"
	EventPaused   EventKind = "paused"
	EventResumed  EventKind = "resumed"
	EventEnded    EventKind = "ended"
	EventClosed   EventKind = "closed"
	EventError    EventKind = "error"
)

// Event is one semantic playback event. Progress fields are only
// meaningful for EventProgress; Message only for EventError.
type Event struct {
	Kind     EventKind  `json:"kind"`
	ID       InstanceID `json:"id"`
	Position float64    `json:"position,omitempty"`
	Duration float64    `json:"duration,omitempty"`
	Percent  float64    `json:"percent,omitempty"`
	Message  string     `json:"message,omitempty"`
	TS       int64      `json:"ts"`
}

// Terminal reports whether the event kind ends an instance's event stream.
func (e Event) Terminal() bool {
	return e.Kind == EventEnded || e.Kind == EventClosed
}
