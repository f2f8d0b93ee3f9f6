package core

import (
	"context"
	"encoding/json"

	"github.com/playadev/playa/internal/ports"
	"github.com/playadev/playa/pkg/playa"
)

// Service implements CLI operations against a player node over MQTT.
type Service struct {
	Broker   ports.Broker
	Resolver Resolver
	Clock    ports.Clock
	IDGen    ports.IDGen
	Config   Config
}

// Nodes lists online nodes.
func (s Service) Nodes(ctx context.Context) (NodesResult, error) {
	presences, err := s.Broker.ListPresence(ctx)
	if err != nil {
		return NodesResult{}, WrapError(ExitRuntime, "list nodes", err)
	}
	return NodesResult{Nodes: presences}, nil
}

// Play starts playback of a source on a node.
func (s Service) Play(ctx context.Context, selector string, source string, opts playa.PlaybackOptions) (PlayResult, error) {
	node, err := s.Resolver.ResolveNode(ctx, selector)
	if err != nil {
		return PlayResult{}, err
	}

	var result playa.PlayResult
	if err := s.send(ctx, node, "playback.play", playa.PlayBody{Source: source, Options: opts}, &result); err != nil {
		return PlayResult{}, err
	}
	return PlayResult{Node: node, ID: result.ID}, nil
}

// Close tears down one instance.
func (s Service) Close(ctx context.Context, selector string, idArg string) error {
	node, id, err := s.resolveInstance(ctx, selector, idArg)
	if err != nil {
		return err
	}
	return s.send(ctx, node, "playback.close", playa.InstanceBody{ID: id}, nil)
}

// CloseAll tears down every instance on a node.
func (s Service) CloseAll(ctx context.Context, selector string) error {
	node, err := s.Resolver.ResolveNode(ctx, selector)
	if err != nil {
		return err
	}
	return s.send(ctx, node, "playback.closeAll", playa.EmptyBody{}, nil)
}

// Instances lists registered instances on a node.
func (s Service) Instances(ctx context.Context, selector string) (InstancesResult, error) {
	node, err := s.Resolver.ResolveNode(ctx, selector)
	if err != nil {
		return InstancesResult{}, err
	}

	var result playa.ListResult
	if err := s.send(ctx, node, "playback.list", playa.EmptyBody{}, &result); err != nil {
		return InstancesResult{}, err
	}
	return InstancesResult{Node: node, Instances: result.Instances}, nil
}

// Status reads a node's retained state.
func (s Service) Status(ctx context.Context, selector string) (StatusResult, error) {
	node, err := s.Resolver.ResolveNode(ctx, selector)
	if err != nil {
		return StatusResult{}, err
	}
	state, err := s.Broker.GetNodeState(ctx, node)
	if err != nil {
		return StatusResult{}, WrapError(ExitRuntime, "get state", err)
	}
	return StatusResult{Node: node, State: state}, nil
}

// Pause pauses one instance.
func (s Service) Pause(ctx context.Context, selector string, idArg string) error {
	node, id, err := s.resolveInstance(ctx, selector, idArg)
	if err != nil {
		return err
	}
	return s.send(ctx, node, "playback.pause", playa.InstanceBody{ID: id}, nil)
}

// Resume resumes one instance.
func (s Service) Resume(ctx context.Context, selector string, idArg string) error {
	node, id, err := s.resolveInstance(ctx, selector, idArg)
	if err != nil {
		return err
	}
	return s.send(ctx, node, "playback.resume", playa.InstanceBody{ID: id}, nil)
}

// Seek seeks one instance to an absolute position in seconds.
func (s Service) Seek(ctx context.Context, selector string, idArg string, position float64) error {
	node, id, err := s.resolveInstance(ctx, selector, idArg)
	if err != nil {
		return err
	}
	return s.send(ctx, node, "playback.seek", playa.SeekBody{ID: id, Position: position}, nil)
}

// Volume sets one instance's volume.
func (s Service) Volume(ctx context.Context, selector string, idArg string, volume float64) error {
	node, id, err := s.resolveInstance(ctx, selector, idArg)
	if err != nil {
		return err
	}
	return s.send(ctx, node, "playback.setVolume", playa.SetVolumeBody{ID: id, Volume: volume}, nil)
}

// Window updates one instance's window properties.
func (s Service) Window(ctx context.Context, selector string, idArg string, window playa.WindowOptions) error {
	node, id, err := s.resolveInstance(ctx, selector, idArg)
	if err != nil {
		return err
	}
	return s.send(ctx, node, "playback.updateWindow", playa.UpdateWindowBody{ID: id, Window: window}, nil)
}

// Progress returns a progress snapshot of one instance.
func (s Service) Progress(ctx context.Context, selector string, idArg string) (ProgressResult, error) {
	node, id, err := s.resolveInstance(ctx, selector, idArg)
	if err != nil {
		return ProgressResult{}, err
	}

	var progress playa.PlaybackProgress
	if err := s.send(ctx, node, "playback.progress", playa.InstanceBody{ID: id}, &progress); err != nil {
		return ProgressResult{}, err
	}
	return ProgressResult{Node: node, ID: id, Progress: progress}, nil
}

// Info returns detailed state of one instance.
func (s Service) Info(ctx context.Context, selector string, idArg string) (InfoResult, error) {
	node, id, err := s.resolveInstance(ctx, selector, idArg)
	if err != nil {
		return InfoResult{}, err
	}

	var info playa.VideoInfo
	if err := s.send(ctx, node, "playback.info", playa.InstanceBody{ID: id}, &info); err != nil {
		return InfoResult{}, err
	}
	return InfoResult{Node: node, ID: id, Info: info}, nil
}

// Presets lists presets available on a node.
func (s Service) Presets(ctx context.Context, selector string) (PresetsResult, error) {
	node, err := s.Resolver.ResolveNode(ctx, selector)
	if err != nil {
		return PresetsResult{}, err
	}

	var result playa.PresetListResult
	if err := s.send(ctx, node, "presets.list", playa.EmptyBody{}, &result); err != nil {
		return PresetsResult{}, err
	}
	return PresetsResult{Presets: result.Presets}, nil
}

// Preset returns details for a named preset.
func (s Service) Preset(ctx context.Context, selector string, name string) (PresetResult, error) {
	node, err := s.Resolver.ResolveNode(ctx, selector)
	if err != nil {
		return PresetResult{}, err
	}

	var result playa.PresetDetailsResult
	if err := s.send(ctx, node, "presets.details", playa.PresetDetailsBody{Name: name}, &result); err != nil {
		return PresetResult{}, err
	}
	return PresetResult{Preset: result}, nil
}

// Recommended returns the preset a node recommends for its hardware.
func (s Service) Recommended(ctx context.Context, selector string) (RecommendedResult, error) {
	node, err := s.Resolver.ResolveNode(ctx, selector)
	if err != nil {
		return RecommendedResult{}, err
	}

	var result playa.PresetRecommendedResult
	if err := s.send(ctx, node, "presets.recommended", playa.EmptyBody{}, &result); err != nil {
		return RecommendedResult{}, err
	}
	return RecommendedResult{Preset: result.Preset}, nil
}

// Watch streams state and events for a node.
func (s Service) Watch(ctx context.Context, selector string) (string, <-chan playa.NodeState, <-chan playa.Event, <-chan error, error) {
	node, err := s.Resolver.ResolveNode(ctx, selector)
	if err != nil {
		return "", nil, nil, nil, err
	}
	stateCh, eventCh, errCh := s.Broker.WatchNode(ctx, node)
	return node, stateCh, eventCh, errCh, nil
}

func (s Service) resolveInstance(ctx context.Context, selector string, idArg string) (string, playa.InstanceID, error) {
	node, err := s.Resolver.ResolveNode(ctx, selector)
	if err != nil {
		return "", playa.InstanceID{}, err
	}
	id, err := playa.ParseInstanceID(idArg)
	if err != nil {
		return "", playa.InstanceID{}, WrapError(ExitUsage, "instance id", err)
	}
	return node, id, nil
}

func (s Service) send(ctx context.Context, node string, cmdType string, body any, out any) error {
	cmd, err := playa.NewCommand(cmdType, body)
	if err != nil {
		return WrapError(ExitRuntime, "build command", err)
	}
	cmd.ID = s.IDGen.NewID()
	cmd.TS = s.Clock.NowUnix()
	cmd.From = s.Config.Identity
	cmd.ReplyTo = s.Broker.ReplyTopic()

	if err := playa.ValidateCommandEnvelope(cmd); err != nil {
		return WrapError(ExitUsage, "invalid command", err)
	}

	reply, err := s.Broker.PublishCommand(ctx, node, cmd)
	if err != nil {
		return WrapError(ExitRuntime, cmdType, err)
	}
	if reply.Err != nil {
		return ErrorForReplyCode(reply.Err.Code, reply.Err.Message)
	}
	if out != nil && len(reply.Body) > 0 {
		if err := json.Unmarshal(reply.Body, out); err != nil {
			return WrapError(ExitRuntime, "decode reply", err)
		}
	}
	return nil
}
