package core

import (
	"context"
	"strings"

	"github.com/playadev/playa/pkg/playa"
)

// PresenceLister reads retained node presence.
type PresenceLister interface {
	ListPresence(ctx context.Context) ([]playa.Presence, error)
}

// Resolver maps node selectors to node ids.
type Resolver struct {
	Presence PresenceLister
	Config   Config
}

// ResolveNode resolves a selector to a node id. An empty selector falls
// back to the configured default node, then to the single online player
// node when exactly one exists.
func (r Resolver) ResolveNode(ctx context.Context, selector string) (string, error) {
	selector = strings.TrimSpace(selector)
	if selector != "" {
		return r.Config.ResolveAlias(selector), nil
	}
	if r.Config.DefaultNode != "" {
		return r.Config.ResolveAlias(r.Config.DefaultNode), nil
	}

	presences, err := r.Presence.ListPresence(ctx)
	if err != nil {
		return "", WrapError(ExitRuntime, "list nodes", err)
	}

	players := make([]playa.Presence, 0, len(presences))
	for _, presence := range presences {
		if presence.Kind == "player" {
			players = append(players, presence)
		}
	}
	switch len(players) {
	case 0:
		return "", &CLIError{Code: ExitNotFound, Msg: "no player nodes online"}
	case 1:
		return players[0].NodeID, nil
	default:
		return "", &CLIError{Code: ExitUsage, Msg: "multiple player nodes online; name one"}
	}
}
