package core

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/playadev/playa/pkg/playa"
)

type fakeBroker struct {
	published []publishedCommand
	replies   map[string]playa.ReplyEnvelope
	presences []playa.Presence
	state     playa.NodeState
}

type publishedCommand struct {
	node string
	cmd  playa.CommandEnvelope
}

func (f *fakeBroker) ReplyTopic() string { return "playa/v1/reply/test" }

func (f *fakeBroker) PublishCommand(_ context.Context, nodeID string, cmd playa.CommandEnvelope) (playa.ReplyEnvelope, error) {
	f.published = append(f.published, publishedCommand{node: nodeID, cmd: cmd})
	if reply, ok := f.replies[cmd.Type]; ok {
		reply.ID = cmd.ID
		return reply, nil
	}
	return playa.ReplyEnvelope{ID: cmd.ID, Type: "ack", OK: true, TS: 1}, nil
}

func (f *fakeBroker) ListPresence(context.Context) ([]playa.Presence, error) {
	return f.presences, nil
}

func (f *fakeBroker) GetNodeState(context.Context, string) (playa.NodeState, error) {
	return f.state, nil
}

func (f *fakeBroker) WatchNode(context.Context, string) (<-chan playa.NodeState, <-chan playa.Event, <-chan error) {
	return nil, nil, nil
}

type fixedClock struct{}

func (fixedClock) NowUnix() int64 { return 1700000000 }

type fixedIDGen struct{}

func (fixedIDGen) NewID() string { return "cmd-1" }

func newTestService(broker *fakeBroker) Service {
	cfg := Config{Identity: "tester@host", DefaultNode: "living-room"}
	return Service{
		Broker:   broker,
		Resolver: Resolver{Presence: broker, Config: cfg},
		Clock:    fixedClock{},
		IDGen:    fixedIDGen{},
		Config:   cfg,
	}
}

func okReply(body any) playa.ReplyEnvelope {
	payload, _ := json.Marshal(body)
	return playa.ReplyEnvelope{Type: "ack", OK: true, TS: 1, Body: payload}
}

func TestPlaySendsCommand(t *testing.T) {
	wantID := playa.NewInstanceID()
	broker := &fakeBroker{replies: map[string]playa.ReplyEnvelope{
		"playback.play": okReply(playa.PlayResult{ID: wantID}),
	}}
	service := newTestService(broker)

	result, err := service.Play(context.Background(), "", "/media/movie.mkv", playa.DefaultPlaybackOptions())
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if result.ID != wantID {
		t.Fatalf("expected instance id %s, got %s", wantID, result.ID)
	}
	if result.Node != "living-room" {
		t.Fatalf("expected default node, got %s", result.Node)
	}

	if len(broker.published) != 1 {
		t.Fatalf("expected one command, got %d", len(broker.published))
	}
	sent := broker.published[0]
	if sent.node != "living-room" {
		t.Fatalf("command routed to %s", sent.node)
	}
	if sent.cmd.Type != "playback.play" {
		t.Fatalf("command type %s", sent.cmd.Type)
	}
	if sent.cmd.From != "tester@host" || sent.cmd.ID != "cmd-1" || sent.cmd.TS != 1700000000 {
		t.Fatalf("envelope fields not filled: %+v", sent.cmd)
	}

	var body playa.PlayBody
	if err := json.Unmarshal(sent.cmd.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Source != "/media/movie.mkv" {
		t.Fatalf("body source %q", body.Source)
	}
}

func TestSeekBody(t *testing.T) {
	broker := &fakeBroker{}
	service := newTestService(broker)
	id := playa.NewInstanceID()

	if err := service.Seek(context.Background(), "", id.String(), 42.5); err != nil {
		t.Fatalf("seek: %v", err)
	}

	var body playa.SeekBody
	if err := json.Unmarshal(broker.published[0].cmd.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.ID != id || body.Position != 42.5 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestInvalidInstanceIDIsUsageError(t *testing.T) {
	service := newTestService(&fakeBroker{})

	err := service.Pause(context.Background(), "", "not-a-uuid")
	if err == nil {
		t.Fatalf("expected error")
	}
	if ExitCode(err) != ExitUsage {
		t.Fatalf("expected usage exit, got %d", ExitCode(err))
	}
}

func TestReplyErrorMapping(t *testing.T) {
	broker := &fakeBroker{replies: map[string]playa.ReplyEnvelope{
		"playback.close": {Type: "error", OK: false, TS: 1, Err: &playa.ReplyError{Code: "NOT_FOUND", Message: "no such instance"}},
	}}
	service := newTestService(broker)

	err := service.Close(context.Background(), "", playa.NewInstanceID().String())
	if err == nil {
		t.Fatalf("expected error")
	}
	if ExitCode(err) != ExitNotFound {
		t.Fatalf("expected not-found exit, got %d", ExitCode(err))
	}
}

func TestInstancesParsesReply(t *testing.T) {
	id := playa.NewInstanceID()
	broker := &fakeBroker{replies: map[string]playa.ReplyEnvelope{
		"playback.list": okReply(playa.ListResult{Instances: []playa.InstanceSummary{
			{ID: id, Source: "/media/movie.mkv", Monitored: true},
		}}),
	}}
	service := newTestService(broker)

	result, err := service.Instances(context.Background(), "")
	if err != nil {
		t.Fatalf("instances: %v", err)
	}
	if len(result.Instances) != 1 || result.Instances[0].ID != id {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestPresetsCommand(t *testing.T) {
	broker := &fakeBroker{replies: map[string]playa.ReplyEnvelope{
		"presets.list": okReply(playa.PresetListResult{Presets: []string{"linux-fast", "linux-balanced"}}),
	}}
	service := newTestService(broker)

	result, err := service.Presets(context.Background(), "")
	if err != nil {
		t.Fatalf("presets: %v", err)
	}
	if len(result.Presets) != 2 {
		t.Fatalf("unexpected presets: %v", result.Presets)
	}
}
