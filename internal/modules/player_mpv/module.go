// Package playermpv exposes a managed mpv player fleet over MQTT. It
// answers playback and preset commands on the node's command topic,
// mirrors the instance registry as retained state, and forwards
// playback events to the node's event topic.
package playermpv

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/playadev/playa/internal/player/manager"
	"github.com/playadev/playa/internal/presets"
	"github.com/playadev/playa/pkg/playa"
)

type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Subscribe(topic string, qos byte, handler paho.MessageHandler) error
	Unsubscribe(topic string) error
}

// Controller is the slice of the instance manager the module drives.
type Controller interface {
	Play(source string, opts playa.PlaybackOptions) (playa.InstanceID, error)
	Close(id playa.InstanceID) error
	CloseAll() error
	List() []playa.InstanceSummary
	Pause(id playa.InstanceID) error
	Resume(id playa.InstanceID) error
	Seek(id playa.InstanceID, position float64) error
	SetVolume(id playa.InstanceID, volume float64) error
	UpdateWindow(id playa.InstanceID, window playa.WindowOptions) error
	Progress(id playa.InstanceID) (playa.PlaybackProgress, error)
	Info(id playa.InstanceID) (playa.VideoInfo, error)
	Subscribe() (<-chan playa.Event, func())
}

// ManagerController adapts a *manager.Manager to the Controller interface.
type ManagerController struct {
	*manager.Manager
}

// Subscribe returns the manager's event stream and a cancel func.
func (c ManagerController) Subscribe() (<-chan playa.Event, func()) {
	sub := c.Manager.Subscribe()
	return sub.Events(), func() { c.Manager.Unsubscribe(sub.ID()) }
}

// Config configures the player module.
type Config struct {
	NodeID    string
	TopicBase string
	Name      string
	// DefaultPreset is applied when a play command names no preset.
	DefaultPreset string
	// ProgressIntervalMS is used when a monitored play command sets none.
	ProgressIntervalMS int64
}

// Module implements the MQTT control surface for one player node.
type Module struct {
	log      *zap.Logger
	client   mqttClient
	player   Controller
	config   Config
	cmdTopic string
	mu       sync.Mutex
}

// NewModule creates a player module.
func NewModule(log *zap.Logger, client mqttClient, player Controller, cfg Config) (*Module, error) {
	if strings.TrimSpace(cfg.NodeID) == "" {
		return nil, errors.New("node_id required")
	}
	if strings.TrimSpace(cfg.TopicBase) == "" {
		cfg.TopicBase = playa.BaseTopic
	}
	if strings.TrimSpace(cfg.Name) == "" {
		cfg.Name = "Playa Player"
	}

	return &Module{
		log:      log,
		client:   client,
		player:   player,
		config:   cfg,
		cmdTopic: playa.TopicCommands(cfg.TopicBase, cfg.NodeID),
	}, nil
}

// Run starts the player module.
func (m *Module) Run(ctx context.Context) error {
	if err := m.publishPresence(); err != nil {
		return err
	}
	if err := m.publishState(); err != nil {
		return err
	}

	events, cancel := m.player.Subscribe()
	defer cancel()
	go m.forwardEvents(ctx, events)

	handler := func(_ paho.Client, msg paho.Message) {
		m.handleMessage(msg)
	}
	if err := m.client.Subscribe(m.cmdTopic, 1, handler); err != nil {
		return err
	}
	defer m.client.Unsubscribe(m.cmdTopic)

	<-ctx.Done()

	// The daemon owns the player processes; do not leave orphans.
	if err := m.player.CloseAll(); err != nil {
		m.log.Warn("close all on shutdown", zap.Error(err))
	}
	return nil
}

func (m *Module) publishPresence() error {
	presence := playa.Presence{
		NodeID: m.config.NodeID,
		Kind:   "player",
		Name:   m.config.Name,
		Caps: map[string]any{
			"play":     true,
			"seek":     true,
			"volume":   true,
			"window":   true,
			"progress": true,
			"presets":  true,
		},
		TS: time.Now().Unix(),
	}
	payload, err := json.Marshal(presence)
	if err != nil {
		return err
	}
	return m.client.Publish(playa.TopicPresence(m.config.TopicBase, m.config.NodeID), 1, true, payload)
}

func (m *Module) publishState() error {
	state := playa.NodeState{Instances: m.player.List(), TS: time.Now().Unix()}
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return m.client.Publish(playa.TopicState(m.config.TopicBase, m.config.NodeID), 1, true, payload)
}

func (m *Module) forwardEvents(ctx context.Context, events <-chan playa.Event) {
	topic := playa.TopicEvents(m.config.TopicBase, m.config.NodeID)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := m.client.Publish(topic, 1, false, payload); err != nil {
				m.log.Debug("event publish failed", zap.Error(err))
			}
			if ev.Terminal() {
				if err := m.publishState(); err != nil {
					m.log.Debug("state publish failed", zap.Error(err))
				}
			}
		}
	}
}

func (m *Module) handleMessage(msg paho.Message) {
	var cmd playa.CommandEnvelope
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		m.log.Warn("invalid command payload", zap.Error(err))
		return
	}

	var reply playa.ReplyEnvelope
	if err := playa.ValidateCommandEnvelope(cmd); err != nil {
		reply = errorReply(cmd, playa.ErrCodeInvalid, err.Error())
	} else {
		m.mu.Lock()
		reply = m.dispatch(cmd)
		m.mu.Unlock()
	}

	if cmd.ReplyTo != "" {
		payload, err := json.Marshal(reply)
		if err == nil {
			_ = m.client.Publish(cmd.ReplyTo, 1, false, payload)
		}
	}
	if strings.HasPrefix(cmd.Type, "playback.") {
		if err := m.publishState(); err != nil {
			m.log.Debug("state publish failed", zap.Error(err))
		}
	}
}

func (m *Module) dispatch(cmd playa.CommandEnvelope) playa.ReplyEnvelope {
	switch cmd.Type {
	case "playback.play":
		return m.handlePlay(cmd)
	case "playback.close":
		return m.instanceOp(cmd, m.player.Close)
	case "playback.closeAll":
		if err := m.player.CloseAll(); err != nil {
			return runtimeReply(cmd, err)
		}
		return okReply(cmd, playa.EmptyBody{})
	case "playback.list":
		return okReply(cmd, playa.ListResult{Instances: m.player.List()})
	case "playback.pause":
		return m.instanceOp(cmd, m.player.Pause)
	case "playback.resume":
		return m.instanceOp(cmd, m.player.Resume)
	case "playback.seek":
		var body playa.SeekBody
		if err := json.Unmarshal(cmd.Body, &body); err != nil {
			return errorReply(cmd, playa.ErrCodeInvalid, "invalid body")
		}
		if err := m.player.Seek(body.ID, body.Position); err != nil {
			return playerErrorReply(cmd, err)
		}
		return okReply(cmd, playa.EmptyBody{})
	case "playback.setVolume":
		var body playa.SetVolumeBody
		if err := json.Unmarshal(cmd.Body, &body); err != nil {
			return errorReply(cmd, playa.ErrCodeInvalid, "invalid body")
		}
		if err := m.player.SetVolume(body.ID, body.Volume); err != nil {
			return playerErrorReply(cmd, err)
		}
		return okReply(cmd, playa.EmptyBody{})
	case "playback.updateWindow":
		var body playa.UpdateWindowBody
		if err := json.Unmarshal(cmd.Body, &body); err != nil {
			return errorReply(cmd, playa.ErrCodeInvalid, "invalid body")
		}
		if err := m.player.UpdateWindow(body.ID, body.Window); err != nil {
			return playerErrorReply(cmd, err)
		}
		return okReply(cmd, playa.EmptyBody{})
	case "playback.progress":
		var body playa.InstanceBody
		if err := json.Unmarshal(cmd.Body, &body); err != nil {
			return errorReply(cmd, playa.ErrCodeInvalid, "invalid body")
		}
		progress, err := m.player.Progress(body.ID)
		if err != nil {
			return playerErrorReply(cmd, err)
		}
		return okReply(cmd, progress)
	case "playback.info":
		var body playa.InstanceBody
		if err := json.Unmarshal(cmd.Body, &body); err != nil {
			return errorReply(cmd, playa.ErrCodeInvalid, "invalid body")
		}
		info, err := m.player.Info(body.ID)
		if err != nil {
			return playerErrorReply(cmd, err)
		}
		return okReply(cmd, info)
	case "presets.list":
		return okReply(cmd, playa.PresetListResult{Presets: presets.List()})
	case "presets.details":
		var body playa.PresetDetailsBody
		if err := json.Unmarshal(cmd.Body, &body); err != nil {
			return errorReply(cmd, playa.ErrCodeInvalid, "invalid body")
		}
		preset, ok := presets.Details(body.Name)
		if !ok {
			return errorReply(cmd, playa.ErrCodeNotFound, "unknown preset")
		}
		return okReply(cmd, playa.PresetDetailsResult{
			Name:        preset.Name,
			Description: preset.Description,
			Platform:    string(preset.Platform),
			Level:       string(preset.Level),
			Args:        preset.Args(),
		})
	case "presets.recommended":
		return okReply(cmd, playa.PresetRecommendedResult{Preset: presets.Recommended()})
	default:
		return errorReply(cmd, playa.ErrCodeInvalid, "unknown command type")
	}
}

func (m *Module) handlePlay(cmd playa.CommandEnvelope) playa.ReplyEnvelope {
	var body playa.PlayBody
	if err := json.Unmarshal(cmd.Body, &body); err != nil {
		return errorReply(cmd, playa.ErrCodeInvalid, "invalid body")
	}
	if strings.TrimSpace(body.Source) == "" {
		return errorReply(cmd, playa.ErrCodeInvalid, "source required")
	}

	opts := body.Options
	if opts.Preset == "" && m.config.DefaultPreset != "" {
		opts.Preset = m.config.DefaultPreset
	}
	if opts.ReportProgress && opts.ProgressIntervalMS <= 0 {
		opts.ProgressIntervalMS = m.config.ProgressIntervalMS
	}

	id, err := m.player.Play(body.Source, opts)
	if err != nil {
		return runtimeReply(cmd, err)
	}
	return okReply(cmd, playa.PlayResult{ID: id})
}

func (m *Module) instanceOp(cmd playa.CommandEnvelope, op func(playa.InstanceID) error) playa.ReplyEnvelope {
	var body playa.InstanceBody
	if err := json.Unmarshal(cmd.Body, &body); err != nil {
		return errorReply(cmd, playa.ErrCodeInvalid, "invalid body")
	}
	if err := op(body.ID); err != nil {
		return playerErrorReply(cmd, err)
	}
	return okReply(cmd, playa.EmptyBody{})
}

func okReply(cmd playa.CommandEnvelope, body any) playa.ReplyEnvelope {
	payload, err := json.Marshal(body)
	if err != nil {
		return runtimeReply(cmd, err)
	}
	return playa.ReplyEnvelope{
		ID:   cmd.ID,
		Type: "ack",
		OK:   true,
		TS:   time.Now().Unix(),
		Body: payload,
	}
}

func errorReply(cmd playa.CommandEnvelope, code string, message string) playa.ReplyEnvelope {
	return playa.ReplyEnvelope{
		ID:   cmd.ID,
		Type: "error",
		OK:   false,
		TS:   time.Now().Unix(),
		Err: &playa.ReplyError{
			Code:    code,
			Message: message,
		},
	}
}

func runtimeReply(cmd playa.CommandEnvelope, err error) playa.ReplyEnvelope {
	return errorReply(cmd, playa.ErrCodeRuntime, err.Error())
}

func playerErrorReply(cmd playa.CommandEnvelope, err error) playa.ReplyEnvelope {
	if errors.Is(err, manager.ErrInstanceNotFound) {
		return errorReply(cmd, playa.ErrCodeNotFound, err.Error())
	}
	return runtimeReply(cmd, err)
}
