package ports

import (
	"context"

	"github.com/playadev/playa/pkg/playa"
)

// Broker publishes commands and reads retained state/presence.
type Broker interface {
	ReplyTopic() string
	PublishCommand(ctx context.Context, nodeID string, cmd playa.CommandEnvelope) (playa.ReplyEnvelope, error)
	ListPresence(ctx context.Context) ([]playa.Presence, error)
	GetNodeState(ctx context.Context, nodeID string) (playa.NodeState, error)
	WatchNode(ctx context.Context, nodeID string) (<-chan playa.NodeState, <-chan playa.Event, <-chan error)
}

// Clock returns the current unix time in seconds.
type Clock interface {
	NowUnix() int64
}

// IDGen returns unique correlation IDs.
type IDGen interface {
	NewID() string
}
