//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/playadev/playa/internal/adapters/clock"
	"github.com/playadev/playa/internal/adapters/idgen"
	"github.com/playadev/playa/internal/adapters/mqtt"
	"github.com/playadev/playa/internal/adapters/mqttserver"
	"github.com/playadev/playa/internal/core"
	embeddedmqtt "github.com/playadev/playa/internal/modules/embedded_mqtt"
	playermpv "github.com/playadev/playa/internal/modules/player_mpv"
	"github.com/playadev/playa/internal/player/manager"
	"github.com/playadev/playa/pkg/playa"
)

// fakePlayer stands in for the instance manager so the integration
// tests exercise the full MQTT path without spawning mpv.
type fakePlayer struct {
	mu        sync.Mutex
	instances map[playa.InstanceID]playa.InstanceSummary
	events    chan playa.Event
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{
		instances: map[playa.InstanceID]playa.InstanceSummary{},
		events:    make(chan playa.Event, 16),
	}
}

func (f *fakePlayer) Play(source string, opts playa.PlaybackOptions) (playa.InstanceID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := playa.NewInstanceID()
	f.instances[id] = playa.InstanceSummary{
		ID:        id,
		Source:    source,
		Monitored: opts.ReportProgress,
	}
	return id, nil
}

func (f *fakePlayer) Close(id playa.InstanceID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.instances[id]; !ok {
		return manager.ErrInstanceNotFound
	}
	delete(f.instances, id)
	return nil
}

func (f *fakePlayer) CloseAll() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.instances = map[playa.InstanceID]playa.InstanceSummary{}
	return nil
}

func (f *fakePlayer) List() []playa.InstanceSummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]playa.InstanceSummary, 0, len(f.instances))
	for _, summary := range f.instances {
		out = append(out, summary)
	}
	return out
}

func (f *fakePlayer) lookup(id playa.InstanceID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.instances[id]; !ok {
		return manager.ErrInstanceNotFound
	}
	return nil
}

func (f *fakePlayer) Pause(id playa.InstanceID) error  { return f.lookup(id) }
func (f *fakePlayer) Resume(id playa.InstanceID) error { return f.lookup(id) }

func (f *fakePlayer) Seek(id playa.InstanceID, position float64) error { return f.lookup(id) }

func (f *fakePlayer) SetVolume(id playa.InstanceID, volume float64) error { return f.lookup(id) }

func (f *fakePlayer) UpdateWindow(id playa.InstanceID, window playa.WindowOptions) error {
	return f.lookup(id)
}

func (f *fakePlayer) Progress(id playa.InstanceID) (playa.PlaybackProgress, error) {
	if err := f.lookup(id); err != nil {
		return playa.PlaybackProgress{}, err
	}
	return playa.PlaybackProgress{Position: 12.5, Duration: 100, Percent: 12.5}, nil
}

func (f *fakePlayer) Info(id playa.InstanceID) (playa.VideoInfo, error) {
	if err := f.lookup(id); err != nil {
		return playa.VideoInfo{}, err
	}
	return playa.VideoInfo{Position: 12.5, Duration: 100, Volume: 100, Speed: 1}, nil
}

func (f *fakePlayer) Subscribe() (<-chan playa.Event, func()) {
	return f.events, func() {}
}

var (
	ctlBinOnce sync.Once
	ctlBinPath string
	ctlBinErr  error
)

type integrationOptions struct {
	allowAnonymous bool
	username       string
	password       string
}

type integrationHarness struct {
	ctx        context.Context
	cancel     context.CancelFunc
	logger     *zap.Logger
	brokerURL  string
	playerNode string
	player     *fakePlayer
	client     *mqtt.Client
	service    core.Service
}

func TestPlaybackRoundTrip(t *testing.T) {
	h := setupIntegration(t)
	ctx := h.ctx

	nodes, err := h.service.Nodes(ctx)
	if err != nil {
		t.Fatalf("nodes: %v", err)
	}
	if len(nodes.Nodes) != 1 || nodes.Nodes[0].NodeID != h.playerNode {
		t.Fatalf("expected player node %s, got %+v", h.playerNode, nodes.Nodes)
	}

	playResult, err := h.service.Play(ctx, "", "https://example.com/clip.mkv", playa.DefaultPlaybackOptions())
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if playResult.ID.IsZero() {
		t.Fatalf("expected instance id")
	}

	instances, err := h.service.Instances(ctx, "")
	if err != nil {
		t.Fatalf("instances: %v", err)
	}
	if len(instances.Instances) != 1 || instances.Instances[0].Source != "https://example.com/clip.mkv" {
		t.Fatalf("unexpected instances: %+v", instances.Instances)
	}

	if err := h.service.Seek(ctx, "", playResult.ID.String(), 42); err != nil {
		t.Fatalf("seek: %v", err)
	}
	progress, err := h.service.Progress(ctx, "", playResult.ID.String())
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if progress.Progress.Duration != 100 {
		t.Fatalf("unexpected progress: %+v", progress.Progress)
	}

	if err := h.service.Close(ctx, "", playResult.ID.String()); err != nil {
		t.Fatalf("close: %v", err)
	}
	instances, err = h.service.Instances(ctx, "")
	if err != nil {
		t.Fatalf("instances after close: %v", err)
	}
	if len(instances.Instances) != 0 {
		t.Fatalf("expected no instances, got %+v", instances.Instances)
	}
}

func TestPresetsRoundTrip(t *testing.T) {
	h := setupIntegration(t)
	ctx := h.ctx

	presets, err := h.service.Presets(ctx, "")
	if err != nil {
		t.Fatalf("presets: %v", err)
	}
	if len(presets.Presets) == 0 {
		t.Fatalf("expected presets")
	}

	detail, err := h.service.Preset(ctx, "", presets.Presets[0])
	if err != nil {
		t.Fatalf("preset details: %v", err)
	}
	if detail.Preset.Name != presets.Presets[0] {
		t.Fatalf("unexpected detail: %+v", detail.Preset)
	}

	recommended, err := h.service.Recommended(ctx, "")
	if err != nil {
		t.Fatalf("recommended: %v", err)
	}
	if recommended.Preset == "" {
		t.Fatalf("expected recommended preset")
	}
}

func TestUnknownInstanceReturnsNotFound(t *testing.T) {
	h := setupIntegration(t)

	err := h.service.Close(h.ctx, "", playa.NewInstanceID().String())
	if err == nil {
		t.Fatalf("expected error")
	}
	if core.ExitCode(err) != core.ExitNotFound {
		t.Fatalf("expected not found exit code, got %d (%v)", core.ExitCode(err), err)
	}
}

func TestUnknownCommandReturnsInvalid(t *testing.T) {
	h := setupIntegration(t)

	cmd, err := playa.NewCommand("playback.unknown", struct{}{})
	if err != nil {
		t.Fatalf("build command: %v", err)
	}
	cmd.ID = idgen.Generator{}.NewID()
	cmd.TS = time.Now().Unix()
	cmd.From = "integration"
	cmd.ReplyTo = h.client.ReplyTopic()

	ctx, cancel := context.WithTimeout(h.ctx, 3*time.Second)
	defer cancel()
	reply, err := h.client.PublishCommand(ctx, h.playerNode, cmd)
	if err != nil {
		t.Fatalf("publish command: %v", err)
	}
	if reply.Err == nil || reply.Err.Code != playa.ErrCodeInvalid {
		t.Fatalf("expected INVALID, got %+v", reply.Err)
	}
}

func TestTerminalEventRepublishesState(t *testing.T) {
	h := setupIntegration(t)
	ctx := h.ctx

	node, stateCh, eventCh, errCh, err := h.service.Watch(ctx, "")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if node != h.playerNode {
		t.Fatalf("unexpected node %s", node)
	}

	id := playa.NewInstanceID()
	h.player.events <- playa.Event{
		Kind: playa.EventEnded,
		ID:   id,
		TS:   time.Now().UnixMilli(),
	}

	deadline := time.After(3 * time.Second)
	var sawEvent, sawState bool
	for !sawEvent || !sawState {
		select {
		case ev := <-eventCh:
			if ev.ID == id {
				sawEvent = true
			}
		case <-stateCh:
			sawState = true
		case err := <-errCh:
			t.Fatalf("watch error: %v", err)
		case <-deadline:
			t.Fatalf("timed out waiting for event/state (event=%v state=%v)", sawEvent, sawState)
		}
	}
}

func TestPlayactlCLIIntegration(t *testing.T) {
	h := setupIntegration(t)
	ctlPath := ctlBinary(t)
	env := cliEnv(t)
	baseArgs := []string{
		"--broker", h.brokerURL,
		"--topic-base", playa.BaseTopic,
		"--identity", "integration-cli",
		"--timeout", "3s",
	}

	out := runCtl(t, ctlPath, env, append(baseArgs, "--json", "nodes")...)
	var nodes core.NodesResult
	decodeJSON(t, out, &nodes)
	if len(nodes.Nodes) != 1 || nodes.Nodes[0].NodeID != h.playerNode {
		t.Fatalf("expected player node %s, got %+v", h.playerNode, nodes.Nodes)
	}

	out = runCtl(t, ctlPath, env, append(baseArgs, "--json", "play", "https://example.com/cli.mkv")...)
	var playOut core.PlayResult
	decodeJSON(t, out, &playOut)
	if playOut.ID.IsZero() {
		t.Fatalf("expected instance id, got %s", out)
	}

	out = runCtl(t, ctlPath, env, append(baseArgs, "--json", "ls")...)
	var listOut core.InstancesResult
	decodeJSON(t, out, &listOut)
	if len(listOut.Instances) != 1 || listOut.Instances[0].Source != "https://example.com/cli.mkv" {
		t.Fatalf("unexpected instances: %+v", listOut.Instances)
	}

	runCtl(t, ctlPath, env, append(baseArgs, "close-all")...)
}

func TestEmbeddedMQTTAuth(t *testing.T) {
	h := setupIntegrationWithOptions(t, integrationOptions{
		allowAnonymous: false,
		username:       "playa",
		password:       "secret",
	})

	unauth, err := mqtt.NewClient(mqtt.Options{
		BrokerURL: h.brokerURL,
		ClientID:  "playa-int-unauth-" + idgen.Generator{}.NewID(),
		TopicBase: playa.BaseTopic,
		Timeout:   500 * time.Millisecond,
	})
	if err == nil {
		_ = unauth
		t.Fatalf("expected unauthenticated connection to fail")
	}

	if _, err := h.service.Nodes(h.ctx); err != nil {
		t.Fatalf("authenticated nodes: %v", err)
	}
}

func setupIntegration(t *testing.T) *integrationHarness {
	return setupIntegrationWithOptions(t, integrationOptions{allowAnonymous: true})
}

func setupIntegrationWithOptions(t *testing.T, opts integrationOptions) *integrationHarness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := testLogger()
	listen := freeListenAddr(t)
	brokerURL := embeddedmqtt.BrokerURL(listen, false)

	mqttModule, err := embeddedmqtt.NewModule(logger, embeddedmqtt.Config{
		Listen:         listen,
		AllowAnonymous: opts.allowAnonymous,
		Username:       opts.username,
		Password:       opts.password,
	})
	if err != nil {
		t.Fatalf("embedded mqtt module: %v", err)
	}
	runModule(t, ctx, "embedded_mqtt", mqttModule.Run)
	waitForBrokerReady(t, listen)

	serverClient := waitForMQTTServerClient(t, brokerURL, opts.username, opts.password)
	player := newFakePlayer()
	playerNode := fmt.Sprintf("playa-int-%s", idgen.Generator{}.NewID())
	playerModule, err := playermpv.NewModule(logger, serverClient, player, playermpv.Config{
		NodeID:    playerNode,
		TopicBase: playa.BaseTopic,
		Name:      "Integration Player",
	})
	if err != nil {
		t.Fatalf("player module: %v", err)
	}
	runModule(t, ctx, "player", playerModule.Run)

	client := waitForMQTTClient(t, brokerURL, opts.username, opts.password)
	cfg := core.Config{
		Identity:    "integration",
		TopicBase:   playa.BaseTopic,
		DefaultNode: playerNode,
	}
	service := core.Service{
		Broker:   client,
		Resolver: core.Resolver{Presence: client, Config: cfg},
		Clock:    clock.Clock{},
		IDGen:    idgen.Generator{},
		Config:   cfg,
	}

	waitForPresence(t, client, playerNode)
	return &integrationHarness{
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger,
		brokerURL:  brokerURL,
		playerNode: playerNode,
		player:     player,
		client:     client,
		service:    service,
	}
}

func runModule(t *testing.T, ctx context.Context, name string, run func(context.Context) error) {
	t.Helper()
	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx)
	}()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("%s module failed: %v", name, err)
		}
	default:
	}
	t.Cleanup(func() {
		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				t.Fatalf("%s module failed: %v", name, err)
			}
		case <-time.After(200 * time.Millisecond):
		}
	})
}

func waitForMQTTClient(t *testing.T, brokerURL string, username string, password string) *mqtt.Client {
	t.Helper()
	gen := idgen.Generator{}
	var lastErr error
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		client, err := mqtt.NewClient(mqtt.Options{
			BrokerURL: brokerURL,
			ClientID:  "playa-int-" + gen.NewID(),
			TopicBase: playa.BaseTopic,
			Timeout:   2 * time.Second,
			Username:  username,
			Password:  password,
		})
		if err == nil {
			return client
		}
		lastErr = err
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("connect controller client: %v", lastErr)
	return nil
}

func waitForMQTTServerClient(t *testing.T, brokerURL string, username string, password string) *mqttserver.Client {
	t.Helper()
	gen := idgen.Generator{}
	var lastErr error
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		client, err := mqttserver.NewClient(mqttserver.Options{
			BrokerURL: brokerURL,
			ClientID:  "playad-int-" + gen.NewID(),
			Timeout:   2 * time.Second,
			Username:  username,
			Password:  password,
		})
		if err == nil {
			return client
		}
		lastErr = err
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("connect daemon client: %v", lastErr)
	return nil
}

func waitForPresence(t *testing.T, client *mqtt.Client, nodeID string) {
	t.Helper()
	deadline := time.Now().Add(4 * time.Second)
	for time.Now().Before(deadline) {
		presence, err := client.ListPresence(context.Background())
		if err == nil {
			for _, p := range presence {
				if p.NodeID == nodeID {
					return
				}
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for presence: %s", nodeID)
}

func freeListenAddr(t *testing.T) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		if errors.Is(err, syscall.EPERM) || strings.Contains(err.Error(), "operation not permitted") {
			t.Skip("network listen not permitted in this environment")
		}
		t.Fatalf("listen: %v", err)
	}
	addr := listener.Addr().String()
	if err := listener.Close(); err != nil {
		t.Fatalf("close listener: %v", err)
	}
	return addr
}

func waitForBrokerReady(t *testing.T, listen string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	var lastErr error
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", listen, 200*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return
		}
		if errors.Is(err, syscall.EPERM) || strings.Contains(err.Error(), "operation not permitted") {
			t.Skip("network dial not permitted in this environment")
		}
		lastErr = err
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("broker not ready: %v", lastErr)
}

func testLogger() *zap.Logger {
	if strings.EqualFold(os.Getenv("PLAYA_INTEGRATION_DEBUG"), "1") || strings.EqualFold(os.Getenv("PLAYA_INTEGRATION_DEBUG"), "true") {
		logger, err := zap.NewDevelopment()
		if err == nil {
			return logger
		}
	}
	return zap.NewNop()
}

func decodeJSON(t *testing.T, payload string, dest any) {
	t.Helper()
	if err := json.Unmarshal([]byte(payload), dest); err != nil {
		t.Fatalf("decode json: %v\npayload: %s", err, payload)
	}
}

func runCtl(t *testing.T, ctlPath string, env []string, args ...string) string {
	t.Helper()
	cmd := exec.Command(ctlPath, args...)
	cmd.Env = env
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("playactl %s failed: %v\nstderr: %s", strings.Join(args, " "), err, stderr.String())
	}
	return stdout.String()
}

func cliEnv(t *testing.T) []string {
	t.Helper()
	cfgDir := t.TempDir()
	env := append([]string{}, os.Environ()...)
	env = append(env, "XDG_CONFIG_HOME="+cfgDir)
	return env
}

func ctlBinary(t *testing.T) string {
	t.Helper()
	ctlBinOnce.Do(func() {
		dir, err := os.MkdirTemp("", "playactl-bin-*")
		if err != nil {
			ctlBinErr = err
			return
		}
		binPath := filepath.Join(dir, "playactl")
		cmd := exec.Command("go", "build", "-o", binPath, "./cmd/playactl")
		cmd.Dir = repoRoot(t)
		output, err := cmd.CombinedOutput()
		if err != nil {
			ctlBinErr = fmt.Errorf("build playactl: %w: %s", err, strings.TrimSpace(string(output)))
			return
		}
		ctlBinPath = binPath
	})
	if ctlBinErr != nil {
		t.Fatalf("build playactl binary: %v", ctlBinErr)
	}
	return ctlBinPath
}

func repoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("repo root not found from %s", dir)
		}
		dir = parent
	}
}
