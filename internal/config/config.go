// Package config manages the on-disk player configuration tree and the
// IPC socket directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

// Environment overrides for the configuration and socket directories.
const (
	EnvAssetsDir = "PLAYA_ASSETS_DIR"
	EnvSocketDir = "PLAYA_SOCKET_DIR"
)

const defaultMpvConf = `# Auto-generated default configuration

# Video output settings
vo=libmpv
hwdec=auto

# Audio settings
audio-channels=stereo
volume=80

# UI settings
osc=yes
osd-font-size=30
osd-bar=yes
`

// AssetsPath returns the directory handed to the player as its config
// dir. The directory is not guaranteed to exist; see EnsureConfigDir.
func AssetsPath() string {
	if dir := os.Getenv(EnvAssetsDir); dir != "" {
		return dir
	}
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "playa", "mpv_config")
}

// SocketDir returns the directory IPC sockets are created in.
func SocketDir() string {
	if dir := os.Getenv(EnvSocketDir); dir != "" {
		return dir
	}
	if runtime.GOOS == "windows" {
		return os.TempDir()
	}
	return "/tmp"
}

// EnsureConfigDir creates the assets directory if missing.
func EnsureConfigDir() (string, error) {
	dir := AssetsPath()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir %s: %w", dir, err)
	}
	return dir, nil
}

// InitializeDefaultConfig makes sure a usable player configuration
// exists: the assets directory, a default mpv.conf if none is present,
// and no stale sockets left behind by crashed players.
func InitializeDefaultConfig(log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	dir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	confPath := filepath.Join(dir, "mpv.conf")
	if _, err := os.Stat(confPath); os.IsNotExist(err) {
		log.Info("writing default player configuration", zap.String("path", confPath))
		if err := os.WriteFile(confPath, []byte(defaultMpvConf), 0o644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}

	CleanupStaleSockets(log)
	return nil
}

// CleanupStaleSockets removes socket files left over from previous
// runs. Windows named pipes are cleaned up by the OS.
func CleanupStaleSockets(log *zap.Logger) {
	if runtime.GOOS == "windows" {
		return
	}
	if log == nil {
		log = zap.NewNop()
	}

	entries, err := os.ReadDir(SocketDir())
	if err != nil {
		log.Debug("socket dir scan failed", zap.Error(err))
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "playa-mpv-") {
			continue
		}
		path := filepath.Join(SocketDir(), entry.Name())
		if err := os.Remove(path); err != nil {
			log.Debug("stale socket removal failed",
				zap.String("path", path), zap.Error(err))
		} else {
			log.Debug("removed stale socket", zap.String("path", path))
		}
	}
}

// ValidateConfigFiles repairs known issues in script configuration
// files, currently trailing spaces after boolean values which the
// player's option parser rejects.
func ValidateConfigFiles(log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	scriptOptsDir := filepath.Join(AssetsPath(), "script-opts")
	if _, err := os.Stat(scriptOptsDir); os.IsNotExist(err) {
		return nil
	}

	for _, name := range []string{"uosc.conf"} {
		path := filepath.Join(scriptOptsDir, name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		if err := validateConfigFile(path, log); err != nil {
			return err
		}
	}
	return nil
}

func validateConfigFile(path string, log *zap.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	lines := strings.Split(string(data), "\n")
	fixed := false
	for i, line := range lines {
		if strings.Contains(line, "=yes ") || strings.Contains(line, "=no ") {
			lines[i] = strings.ReplaceAll(
				strings.ReplaceAll(line, "=yes ", "=yes"), "=no ", "=no")
			fixed = true
			log.Warn("fixed trailing space in boolean value",
				zap.String("path", path), zap.String("line", line))
		}
	}

	if fixed {
		if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
			return fmt.Errorf("write fixed config file %s: %w", path, err)
		}
		log.Info("repaired configuration file", zap.String("path", path))
	}
	return nil
}
