package playa

import (
	"fmt"

	"github.com/google/uuid"
)

// InstanceID identifies one player process and its IPC connections.
type InstanceID struct {
	id uuid.UUID
}

// NewInstanceID returns a random instance identifier.
func NewInstanceID() InstanceID {
	return InstanceID{id: uuid.New()}
}

// ParseInstanceID parses the string form of an instance identifier.
func ParseInstanceID(s string) (InstanceID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return InstanceID{}, fmt.Errorf("invalid instance id %q: %w", s, err)
	}
	return InstanceID{id: id}, nil
}

// String returns the canonical UUID form.
func (i InstanceID) String() string {
	return i.id.String()
}

// IsZero reports whether the id is the zero value.
func (i InstanceID) IsZero() bool {
	return i.id == uuid.UUID{}
}

// MarshalText implements encoding.TextMarshaler.
func (i InstanceID) MarshalText() ([]byte, error) {
	return []byte(i.id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *InstanceID) UnmarshalText(text []byte) error {
	parsed, err := ParseInstanceID(string(text))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// WindowOptions configures the player window.
type WindowOptions struct {
	Borderless  bool    `json:"borderless"`
	X           *int    `json:"x,omitempty"`
	Y           *int    `json:"y,omitempty"`
	Width       *int    `json:"width,omitempty"`
	Height      *int    `json:"height,omitempty"`
	AlwaysOnTop bool    `json:"alwaysOnTop"`
	Opacity     *float64 `json:"opacity,omitempty"`
	StartHidden bool    `json:"startHidden"`
}

// PlaybackOptions configures one playback request.
type PlaybackOptions struct {
	// StartTime is the initial playback offset in seconds.
	StartTime *float64 `json:"startTime,omitempty"`
	// Preset names a static player configuration set; empty means none.
	Preset string `json:"preset,omitempty"`
	// ExtraArgs are appended after preset flags and override them.
	ExtraArgs []string `json:"extraArgs,omitempty"`
	Title     string   `json:"title,omitempty"`
	// ReportProgress enables the event connection and monitoring loop.
	ReportProgress bool `json:"reportProgress"`
	// ProgressIntervalMS is the monitoring poll interval; 0 means 1000.
	ProgressIntervalMS int64          `json:"progressIntervalMs,omitempty"`
	Window             *WindowOptions `json:"window,omitempty"`
	// ConnectTimeoutMS bounds the initial IPC connect; 0 means default.
	ConnectTimeoutMS int64 `json:"connectTimeoutMs,omitempty"`
}

// DefaultPlaybackOptions returns the options used when a caller passes none.
func DefaultPlaybackOptions() PlaybackOptions {
	return PlaybackOptions{
		ReportProgress:     true,
		ProgressIntervalMS: 1000,
	}
}

// PlaybackProgress is a point-in-time progress snapshot.
type PlaybackProgress struct {
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`
	Percent  float64 `json:"percent"`
	Paused   bool    `json:"paused"`
}

// VideoInfo is the detailed state of one instance.
type VideoInfo struct {
	Path     string  `json:"path"`
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`
	Percent  float64 `json:"percent"`
	Volume   float64 `json:"volume"`
	Speed    float64 `json:"speed"`
	Paused   bool    `json:"paused"`
	Muted    bool    `json:"muted"`
}

// InstanceSummary describes a registered instance for listings.
type InstanceSummary struct {
	ID         InstanceID `json:"id"`
	Source     string     `json:"source"`
	SocketPath string     `json:"socketPath"`
	Monitored  bool       `json:"monitored"`
}
