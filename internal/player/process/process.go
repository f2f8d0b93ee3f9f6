// Package process owns the player spawn boundary: argument assembly,
// unique socket paths, and process handles.
package process

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/playadev/playa/internal/config"
	"github.com/playadev/playa/internal/presets"
	"github.com/playadev/playa/pkg/playa"
)

// DefaultBinary is the player executable resolved via PATH.
const DefaultBinary = "mpv"

// SpawnOptions configures one player launch.
type SpawnOptions struct {
	// Binary overrides the player executable; empty means DefaultBinary.
	Binary    string
	Preset    string
	ExtraArgs []string
	StartTime *float64
	Title     string
	Window    *playa.WindowOptions
}

// FromPlayback translates public playback options into spawn options.
func FromPlayback(opts playa.PlaybackOptions) SpawnOptions {
	spawn := SpawnOptions{
		Preset:    opts.Preset,
		ExtraArgs: append([]string(nil), opts.ExtraArgs...),
		StartTime: opts.StartTime,
		Title:     opts.Title,
		Window:    opts.Window,
	}
	return spawn
}

// GenerateSocketPath returns a unique IPC socket path for one spawn.
func GenerateSocketPath() string {
	if runtime.GOOS == "windows" {
		return fmt.Sprintf(`\\.\pipe\playa-mpv-%s`, uuid.New())
	}
	return fmt.Sprintf("%s/playa-mpv-%s", config.SocketDir(), uuid.New())
}

// Spawn launches the player for a source and returns the process handle
// together with the socket path it was told to listen on. The caller
// owns the process; killing it on a failed IPC connect is the caller's
// job.
func Spawn(source string, opts SpawnOptions, log *zap.Logger) (*exec.Cmd, string, error) {
	if log == nil {
		log = zap.NewNop()
	}

	// Config problems are repaired where possible and never block launch.
	if err := config.ValidateConfigFiles(log); err != nil {
		log.Warn("config validation failed, continuing", zap.Error(err))
	}

	socketPath := GenerateSocketPath()
	args := buildArgs(source, socketPath, opts, log)

	binary := opts.Binary
	if binary == "" {
		binary = DefaultBinary
	}

	log.Debug("spawning player",
		zap.String("binary", binary),
		zap.String("source", source),
		zap.String("socket", socketPath),
		zap.Strings("args", args))

	cmd := exec.Command(binary, args...)
	if err := cmd.Start(); err != nil {
		return nil, "", fmt.Errorf("start %s: %w", binary, err)
	}
	log.Debug("player spawned", zap.Int("pid", cmd.Process.Pid))
	return cmd, socketPath, nil
}

// buildArgs assembles the argument vector. Order matters: preset flags
// come before extra args so callers can override preset settings, and
// the source is always last.
func buildArgs(source, socketPath string, opts SpawnOptions, log *zap.Logger) []string {
	if log == nil {
		log = zap.NewNop()
	}

	args := []string{
		"--msg-level=all=v",
		fmt.Sprintf("--config-dir=%s", config.AssetsPath()),
		"--osc=no",
		"--osd-bar=no",
		fmt.Sprintf("--input-ipc-server=%s", socketPath),
	}

	if opts.Preset != "" {
		presetArgs, err := presets.Apply(opts.Preset)
		if err != nil {
			log.Warn("preset not applied", zap.String("preset", opts.Preset), zap.Error(err))
		} else {
			args = append(args, presetArgs...)
		}
	}

	if opts.Window != nil {
		args = append(args, windowArgs(*opts.Window)...)
	} else {
		args = append(args, "--border=no")
	}

	if opts.StartTime != nil {
		args = append(args, fmt.Sprintf("--start=%g", *opts.StartTime))
	}
	if opts.Title != "" {
		args = append(args, fmt.Sprintf("--title=%s", opts.Title))
	}

	args = append(args, opts.ExtraArgs...)
	args = append(args, source)
	return args
}

// windowArgs translates window options into player flags.
func windowArgs(w playa.WindowOptions) []string {
	var args []string

	if w.Borderless {
		args = append(args, "--border=no")
	}

	geometry := ""
	if w.Width != nil && w.Height != nil {
		geometry = fmt.Sprintf("%dx%d", *w.Width, *w.Height)
	}
	if w.X != nil && w.Y != nil {
		geometry += fmt.Sprintf("+%d+%d", *w.X, *w.Y)
	}
	if geometry != "" {
		args = append(args, fmt.Sprintf("--geometry=%s", geometry))
	}

	if w.AlwaysOnTop {
		args = append(args, "--ontop")
	}
	if w.Opacity != nil {
		opacity := clamp(*w.Opacity, 0, 1)
		args = append(args, fmt.Sprintf("--alpha=%g", opacity))
	}
	if w.StartHidden {
		args = append(args, "--force-window=yes", "--window-minimized=yes")
	}
	return args
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
