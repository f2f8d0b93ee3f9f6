// Package manager owns player process lifecycles: spawning, the
// instance registry, control operations, monitoring, and subscriber
// fan-out.
package manager

import (
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/playadev/playa/internal/player/events"
	"github.com/playadev/playa/internal/player/ipc"
	"github.com/playadev/playa/internal/player/process"
	"github.com/playadev/playa/pkg/playa"
)

// ErrInstanceNotFound is returned by control operations on unknown ids.
var ErrInstanceNotFound = errors.New("player instance not found")

// DefaultGracePeriod is how long a player gets to act on a quit command
// before it is killed.
const DefaultGracePeriod = 100 * time.Millisecond

// Proc is the slice of process control the manager needs. The real
// implementation wraps exec.Cmd.
type Proc interface {
	Pid() int
	Kill() error
	Wait() error
}

// Spawner launches a player for a source and returns its process handle
// and IPC socket path.
type Spawner func(source string, opts process.SpawnOptions) (Proc, string, error)

// Connector dials a player's IPC socket.
type Connector func(socketPath string, cfg ipc.Config) (*ipc.Client, error)

type execProc struct {
	cmd *exec.Cmd
}

func (p *execProc) Pid() int    { return p.cmd.Process.Pid }
func (p *execProc) Kill() error { return p.cmd.Process.Kill() }
func (p *execProc) Wait() error { return p.cmd.Wait() }

// instance bundles everything owned by one running player.
type instance struct {
	id          playa.InstanceID
	source      string
	socketPath  string
	proc        Proc
	client      *ipc.Client
	eventClient *ipc.Client
	listener    *events.Listener
	monitorDone chan struct{}
}

// Manager is the public entry point for playback. All methods are safe
// for concurrent use.
type Manager struct {
	log     *zap.Logger
	spawn   Spawner
	connect Connector
	grace   time.Duration
	binary  string

	mu        sync.Mutex
	instances map[playa.InstanceID]*instance

	subMu sync.Mutex
	subs  map[string]chan playa.Event

	// notified suppresses duplicate terminal events per instance. Both
	// the monitor loop and explicit close can decide an instance is
	// done; only the first emission of each terminal kind goes out.
	dedupMu  sync.Mutex
	notified map[playa.InstanceID]map[playa.EventKind]struct{}
}

// Option customizes a Manager.
type Option func(*Manager)

// WithSpawner substitutes the process spawner. Used by tests.
func WithSpawner(s Spawner) Option {
	return func(m *Manager) { m.spawn = s }
}

// WithConnector substitutes the IPC dialer. Used by tests.
func WithConnector(c Connector) Option {
	return func(m *Manager) { m.connect = c }
}

// WithGracePeriod overrides the quit-to-kill grace period.
func WithGracePeriod(d time.Duration) Option {
	return func(m *Manager) { m.grace = d }
}

// WithBinary overrides the player executable used when a playback
// request names none.
func WithBinary(binary string) Option {
	return func(m *Manager) { m.binary = binary }
}

// New creates a Manager.
func New(log *zap.Logger, opts ...Option) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{
		log:       log,
		grace:     DefaultGracePeriod,
		instances: map[playa.InstanceID]*instance{},
		subs:      map[string]chan playa.Event{},
		notified:  map[playa.InstanceID]map[playa.EventKind]struct{}{},
	}
	m.spawn = func(source string, spawnOpts process.SpawnOptions) (Proc, string, error) {
		if spawnOpts.Binary == "" && m.binary != "" {
			spawnOpts.Binary = m.binary
		}
		cmd, socketPath, err := process.Spawn(source, spawnOpts, log)
		if err != nil {
			return nil, "", err
		}
		return &execProc{cmd: cmd}, socketPath, nil
	}
	m.connect = func(socketPath string, cfg ipc.Config) (*ipc.Client, error) {
		return ipc.Connect(socketPath, cfg, log)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Play launches a player for a source and registers the instance. The
// control connection is mandatory: if it cannot be established the
// spawned process is killed and the error returned. Monitoring is
// optional: failures to set it up degrade to playback without progress
// events.
func (m *Manager) Play(source string, opts playa.PlaybackOptions) (playa.InstanceID, error) {
	id := playa.NewInstanceID()
	log := m.log.With(zap.Stringer("instance", id))

	proc, socketPath, err := m.spawn(source, process.FromPlayback(opts))
	if err != nil {
		return playa.InstanceID{}, fmt.Errorf("spawn player: %w", err)
	}

	cfg := ipc.DefaultConfig()
	if opts.ConnectTimeoutMS > 0 {
		cfg.Timeout = time.Duration(opts.ConnectTimeoutMS) * time.Millisecond
	}

	client, err := m.connect(socketPath, cfg)
	if err != nil {
		log.Debug("control connection failed, killing process", zap.Error(err))
		_ = proc.Kill()
		go func() { _ = proc.Wait() }()
		return playa.InstanceID{}, fmt.Errorf("connect control channel: %w", err)
	}

	inst := &instance{
		id:         id,
		source:     source,
		socketPath: socketPath,
		proc:       proc,
		client:     client,
	}

	if opts.ReportProgress {
		m.attachMonitoring(inst, cfg, opts, log)
	}

	m.mu.Lock()
	m.instances[id] = inst
	m.mu.Unlock()

	log.Info("playback started",
		zap.String("source", source),
		zap.String("socket", socketPath),
		zap.Bool("monitored", inst.monitorDone != nil))
	return id, nil
}

// attachMonitoring wires the event connection, listener, and monitor
// loop onto an instance. Any failure leaves the instance playable but
// unmonitored.
func (m *Manager) attachMonitoring(inst *instance, cfg ipc.Config, opts playa.PlaybackOptions, log *zap.Logger) {
	// The event connection should ride out hiccups the control path
	// gives up on, so it gets the more persistent reconnect budget.
	eventCfg := ipc.AggressiveReconnect()
	eventCfg.Timeout = cfg.Timeout
	eventCfg.PollInterval = cfg.PollInterval
	eventClient, err := m.connect(inst.socketPath, eventCfg)
	if err != nil {
		log.Debug("event connection failed, continuing without monitoring", zap.Error(err))
		return
	}

	listener := events.NewListener(eventClient, log)
	if err := listener.Start(); err != nil {
		log.Debug("event listener failed to start, continuing without monitoring", zap.Error(err))
		eventClient.Close()
		return
	}

	// A listener-detected process exit is one more way to learn the
	// instance is gone; terminal dedup collapses it with the monitor's
	// own detection.
	id := inst.id
	_ = listener.Subscribe(events.KeyProcess, func(events.Event) {
		m.publish(playa.Event{Kind: playa.EventClosed, ID: id, TS: time.Now().UnixMilli()})
	})

	interval := time.Duration(opts.ProgressIntervalMS) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}

	inst.eventClient = eventClient
	inst.listener = listener
	inst.monitorDone = make(chan struct{})
	go m.monitor(inst.id, inst.client, interval, inst.monitorDone)
}

// Close tears one instance down: registry removal first so concurrent
// lookups never see a half-dead instance, then graceful quit, then
// force kill. Closing an unknown id is a no-op because the monitor loop
// may have detected the exit and raced this call.
func (m *Manager) Close(id playa.InstanceID) error {
	m.mu.Lock()
	inst, ok := m.instances[id]
	if ok {
		delete(m.instances, id)
	}
	m.mu.Unlock()

	if !ok {
		m.log.Debug("close of unknown instance ignored", zap.Stringer("instance", id))
		return nil
	}
	m.teardown(inst)
	return nil
}

// CloseAll tears down every registered instance. Used for shutdown.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	all := make([]*instance, 0, len(m.instances))
	for id, inst := range m.instances {
		all = append(all, inst)
		delete(m.instances, id)
	}
	m.mu.Unlock()

	for _, inst := range all {
		m.teardown(inst)
	}
	return nil
}

func (m *Manager) teardown(inst *instance) {
	log := m.log.With(zap.Stringer("instance", inst.id))
	log.Debug("closing instance")

	// Latch the sticky flag before anything else so no teardown step
	// triggers a reconnect attempt.
	inst.client.MarkIntentionallyClosed()

	if inst.listener != nil {
		inst.listener.HandleProcessExit()
	} else if inst.eventClient != nil {
		inst.eventClient.Close()
	}

	if err := inst.client.Quit(); err != nil {
		log.Debug("graceful quit failed", zap.Error(err))
	}

	// Give the player a moment to act on the quit before killing it.
	time.Sleep(m.grace)
	_ = inst.proc.Kill()

	if inst.monitorDone != nil {
		<-inst.monitorDone
	}
	go func() { _ = inst.proc.Wait() }()

	m.publish(playa.Event{Kind: playa.EventClosed, ID: inst.id, TS: time.Now().UnixMilli()})
	log.Info("instance closed")
}

// lookup returns the registered instance for id.
func (m *Manager) lookup(id playa.InstanceID) (*instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, id)
	}
	return inst, nil
}

// List summarizes all registered instances.
func (m *Manager) List() []playa.InstanceSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]playa.InstanceSummary, 0, len(m.instances))
	for _, inst := range m.instances {
		out = append(out, playa.InstanceSummary{
			ID:         inst.id,
			Source:     inst.source,
			SocketPath: inst.socketPath,
			Monitored:  inst.monitorDone != nil,
		})
	}
	return out
}

// Pause pauses playback and notifies subscribers.
func (m *Manager) Pause(id playa.InstanceID) error {
	inst, err := m.lookup(id)
	if err != nil {
		return err
	}
	if err := inst.client.SetPause(true); err != nil {
		return err
	}
	m.publish(playa.Event{Kind: playa.EventPaused, ID: id, TS: time.Now().UnixMilli()})
	return nil
}

// Resume resumes playback and notifies subscribers.
func (m *Manager) Resume(id playa.InstanceID) error {
	inst, err := m.lookup(id)
	if err != nil {
		return err
	}
	if err := inst.client.SetPause(false); err != nil {
		return err
	}
	m.publish(playa.Event{Kind: playa.EventResumed, ID: id, TS: time.Now().UnixMilli()})
	return nil
}

// Seek jumps to an absolute position in seconds.
func (m *Manager) Seek(id playa.InstanceID, position float64) error {
	inst, err := m.lookup(id)
	if err != nil {
		return err
	}
	return inst.client.Seek(position)
}

// SetVolume sets the player volume (0-100).
func (m *Manager) SetVolume(id playa.InstanceID, volume float64) error {
	inst, err := m.lookup(id)
	if err != nil {
		return err
	}
	return inst.client.SetVolume(volume)
}

// UpdateWindow applies window options to a running instance. Properties
// are applied one by one; the first failure aborts and is returned.
func (m *Manager) UpdateWindow(id playa.InstanceID, w playa.WindowOptions) error {
	inst, err := m.lookup(id)
	if err != nil {
		return err
	}
	client := inst.client

	if w.X != nil && w.Y != nil {
		pos := fmt.Sprintf("%d+%d", *w.X, *w.Y)
		if err := client.SetProperty(playa.PropWindowPos, pos); err != nil {
			return err
		}
	}
	if w.Width != nil && w.Height != nil {
		size := fmt.Sprintf("%dx%d", *w.Width, *w.Height)
		if err := client.SetProperty(playa.PropGeometry, size); err != nil {
			return err
		}
	}
	if w.AlwaysOnTop {
		if err := client.SetProperty(playa.PropOnTop, true); err != nil {
			return err
		}
	}
	if w.Opacity != nil {
		opacity := *w.Opacity
		if opacity < 0 {
			opacity = 0
		}
		if opacity > 1 {
			opacity = 1
		}
		if err := client.SetProperty(playa.PropAlpha, opacity); err != nil {
			return err
		}
	}
	if w.StartHidden {
		if err := client.SetProperty(playa.PropMinimized, true); err != nil {
			return err
		}
	}
	return nil
}

// Progress reads a point-in-time progress snapshot. Unreadable
// properties report zero values rather than failing.
func (m *Manager) Progress(id playa.InstanceID) (playa.PlaybackProgress, error) {
	inst, err := m.lookup(id)
	if err != nil {
		return playa.PlaybackProgress{}, err
	}
	client := inst.client

	position, _ := client.GetPropertyFloat(playa.PropPlaybackTime)
	duration, _ := client.GetPropertyFloat(playa.PropDuration)
	paused, _ := client.GetPropertyBool(playa.PropPause)

	return playa.PlaybackProgress{
		Position: position,
		Duration: duration,
		Percent:  percentOf(position, duration),
		Paused:   paused,
	}, nil
}

// Info reads the detailed state of one instance.
func (m *Manager) Info(id playa.InstanceID) (playa.VideoInfo, error) {
	inst, err := m.lookup(id)
	if err != nil {
		return playa.VideoInfo{}, err
	}
	client := inst.client

	position, _ := client.GetPropertyFloat(playa.PropPlaybackTime)
	duration, _ := client.GetPropertyFloat(playa.PropDuration)
	paused, _ := client.GetPropertyBool(playa.PropPause)
	muted, _ := client.GetPropertyBool(playa.PropMute)
	path, _ := client.GetPropertyString(playa.PropPath)

	volume, err := client.GetPropertyFloat(playa.PropVolume)
	if err != nil {
		volume = 100
	}
	speed, err := client.GetPropertyFloat(playa.PropSpeed)
	if err != nil {
		speed = 1
	}

	return playa.VideoInfo{
		Path:     path,
		Position: position,
		Duration: duration,
		Percent:  percentOf(position, duration),
		Volume:   volume,
		Speed:    speed,
		Paused:   paused,
		Muted:    muted,
	}, nil
}

func percentOf(position, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	return position / duration * 100
}
