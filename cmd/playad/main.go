package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/playadev/playa/internal/adapters/mqttserver"
	"github.com/playadev/playa/internal/config"
	embeddedmqtt "github.com/playadev/playa/internal/modules/embedded_mqtt"
	playermpv "github.com/playadev/playa/internal/modules/player_mpv"
	"github.com/playadev/playa/internal/playad"
	"github.com/playadev/playa/internal/player/manager"
	"github.com/playadev/playa/pkg/playa"
)

func main() {
	var (
		configPath  string
		broker      string
		nodeID      string
		topicBase   string
		logLevel    string
		logFormat   string
		logOutput   string
		logUTC      bool
		printConfig bool
		dryRun      bool
		moduleOnly  string
	)

	defaultConfig, err := playad.DefaultConfigPath()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	flag.StringVar(&configPath, "config", defaultConfig, "config file path")
	flag.StringVar(&broker, "broker", "", "MQTT broker URL override")
	flag.StringVar(&nodeID, "node-id", "", "player node id override")
	flag.StringVar(&topicBase, "topic-base", "", "topic base override")
	flag.StringVar(&logLevel, "log-level", "", "log level override")
	flag.StringVar(&logFormat, "log-format", "", "log format override (text|json)")
	flag.StringVar(&logOutput, "log-output", "", "log output override (stdout|stderr)")
	flag.BoolVar(&logUTC, "log-utc", false, "use UTC timestamps in logs")
	flag.StringVar(&moduleOnly, "module", "", "limit to a single module")
	flag.BoolVar(&printConfig, "print-config", false, "print resolved config and exit")
	flag.BoolVar(&dryRun, "dry-run", false, "validate config and exit")
	flag.Parse()

	cfg, err := playad.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	applyOverrides(&cfg, broker, nodeID, topicBase, logLevel, logFormat, logOutput, logUTC)

	if printConfig {
		fmt.Fprintf(os.Stdout,
			"broker=%s identity=%s topic_base=%s node_id=%s log_level=%s modules=%v\n",
			cfg.Server.Broker,
			cfg.Server.Identity,
			cfg.Server.TopicBase,
			cfg.Modules.Player.NodeID,
			cfg.Server.LogLevel,
			enabledModules(cfg),
		)
		return
	}
	if dryRun {
		return
	}

	logger := playad.NewLogger(playad.LogConfig{
		Level:  cfg.Server.LogLevel,
		Format: cfg.Server.LogFormat,
		Output: cfg.Server.LogOutput,
		UTC:    cfg.Server.LogUTC,
	})
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	embeddedURL := embeddedBrokerURL(cfg)
	skipEmbedded := false

	if moduleOnly != "embedded_mqtt" && cfg.Modules.EmbeddedMQTT.Enabled && cfg.Server.Broker == embeddedURL {
		if err := startEmbeddedBroker(ctx, cfg, logger, cancel); err != nil {
			logger.Error("embedded mqtt failed", zap.Error(err))
			os.Exit(1)
		}
		skipEmbedded = true
	}

	if cfg.Server.Broker == "" && !(moduleOnly == "embedded_mqtt" && cfg.Modules.EmbeddedMQTT.Enabled) {
		logger.Error("broker is required")
		os.Exit(1)
	}
	logger.Info("playad starting",
		zap.String("broker", cfg.Server.Broker),
		zap.String("identity", cfg.Server.Identity),
		zap.String("topic_base", cfg.Server.TopicBase),
		zap.Strings("modules", enabledModules(cfg)),
	)

	var client *mqttserver.Client
	if moduleOnly != "embedded_mqtt" {
		var err error
		client, err = mqttserver.NewClient(mqttserver.Options{
			BrokerURL: cfg.Server.Broker,
			ClientID:  fmt.Sprintf("playad-%d", time.Now().UnixNano()),
			Username:  cfg.Server.Auth.User,
			Password:  cfg.Server.Auth.Pass,
			TLSCA:     cfg.Server.TLS.CA,
			TLSCert:   cfg.Server.TLS.Cert,
			TLSKey:    cfg.Server.TLS.Key,
			Timeout:   2 * time.Second,
			Logger:    logger,
		})
		if err != nil {
			logger.Error("mqtt connection failed", zap.Error(err))
			os.Exit(1)
		}
	}

	modules, err := buildModules(cfg, client, logger, moduleOnly, skipEmbedded)
	if err != nil {
		logger.Error("failed to build modules", zap.Error(err))
		os.Exit(1)
	}

	supervisor := playad.Supervisor{Logger: logger}
	if err := supervisor.Run(ctx, modules); err != nil {
		logger.Error("supervisor error", zap.Error(err))
		os.Exit(1)
	}
}

func applyOverrides(cfg *playad.Config, broker string, nodeID string, topicBase string, logLevel string, logFormat string, logOutput string, logUTC bool) {
	if broker != "" {
		cfg.Server.Broker = broker
	}
	if nodeID != "" {
		cfg.Modules.Player.NodeID = nodeID
	}
	if topicBase != "" {
		cfg.Server.TopicBase = topicBase
	}
	if logLevel != "" {
		cfg.Server.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.Server.LogFormat = logFormat
	}
	if logOutput != "" {
		cfg.Server.LogOutput = logOutput
	}
	if logUTC {
		cfg.Server.LogUTC = true
	}
	if cfg.Server.TopicBase == "" {
		cfg.Server.TopicBase = playa.BaseTopic
	}
	if cfg.Modules.Player.NodeID == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "playa-node"
		}
		cfg.Modules.Player.NodeID = host
	}
	if cfg.Server.Broker == "" && cfg.Modules.EmbeddedMQTT.Enabled {
		cfg.Server.Broker = embeddedBrokerURL(*cfg)
	}
}

func buildModules(cfg playad.Config, client *mqttserver.Client, logger *zap.Logger, moduleOnly string, skipEmbedded bool) ([]playad.ModuleRunner, error) {
	modules := []playad.ModuleRunner{}
	if cfg.Modules.EmbeddedMQTT.Enabled && !skipEmbedded {
		if moduleOnly == "" || moduleOnly == "embedded_mqtt" {
			mod, err := embeddedmqtt.NewModule(logger.With(zap.String("module", "embedded_mqtt")), embeddedmqtt.Config{
				Listen:         cfg.Modules.EmbeddedMQTT.Listen,
				AllowAnonymous: cfg.Modules.EmbeddedMQTT.AllowAnonymous,
				Username:       cfg.Modules.EmbeddedMQTT.Username,
				Password:       cfg.Modules.EmbeddedMQTT.Password,
				TLSCA:          cfg.Modules.EmbeddedMQTT.TLSCA,
				TLSCert:        cfg.Modules.EmbeddedMQTT.TLSCert,
				TLSKey:         cfg.Modules.EmbeddedMQTT.TLSKey,
			})
			if err != nil {
				return nil, err
			}
			modules = append(modules, playad.ModuleRunner{
				Name: "embedded_mqtt",
				Run:  mod.Run,
			})
		}
	}

	if cfg.Modules.Player.Enabled {
		if moduleOnly == "" || moduleOnly == "player" {
			playerLog := logger.With(zap.String("module", "player"))
			if err := config.InitializeDefaultConfig(playerLog); err != nil {
				return nil, err
			}

			mgr := manager.New(playerLog, manager.WithBinary(cfg.Modules.Player.Binary))
			mod, err := playermpv.NewModule(playerLog, client, playermpv.ManagerController{Manager: mgr}, playermpv.Config{
				NodeID:             cfg.Modules.Player.NodeID,
				TopicBase:          cfg.Server.TopicBase,
				Name:               cfg.Modules.Player.Name,
				DefaultPreset:      cfg.Modules.Player.DefaultPreset,
				ProgressIntervalMS: cfg.Modules.Player.ProgressIntervalMS,
			})
			if err != nil {
				return nil, err
			}
			modules = append(modules, playad.ModuleRunner{
				Name: "player",
				Run:  mod.Run,
			})
		}
	}

	if moduleOnly != "" && len(modules) == 0 {
		return nil, errors.New("no modules enabled")
	}
	return modules, nil
}

func enabledModules(cfg playad.Config) []string {
	out := []string{}
	if cfg.Modules.EmbeddedMQTT.Enabled {
		out = append(out, "embedded_mqtt")
	}
	if cfg.Modules.Player.Enabled {
		out = append(out, "player")
	}
	return out
}

func embeddedBrokerURL(cfg playad.Config) string {
	listen := cfg.Modules.EmbeddedMQTT.Listen
	if listen == "" {
		listen = "127.0.0.1:1883"
	}
	tlsEnabled := cfg.Modules.EmbeddedMQTT.TLSCert != "" || cfg.Modules.EmbeddedMQTT.TLSKey != "" || cfg.Modules.EmbeddedMQTT.TLSCA != ""
	return embeddedmqtt.BrokerURL(listen, tlsEnabled)
}

func startEmbeddedBroker(ctx context.Context, cfg playad.Config, logger *zap.Logger, cancel context.CancelFunc) error {
	mod, err := embeddedmqtt.NewModule(logger.With(zap.String("module", "embedded_mqtt")), embeddedmqtt.Config{
		Listen:         cfg.Modules.EmbeddedMQTT.Listen,
		AllowAnonymous: cfg.Modules.EmbeddedMQTT.AllowAnonymous,
		Username:       cfg.Modules.EmbeddedMQTT.Username,
		Password:       cfg.Modules.EmbeddedMQTT.Password,
		TLSCA:          cfg.Modules.EmbeddedMQTT.TLSCA,
		TLSCert:        cfg.Modules.EmbeddedMQTT.TLSCert,
		TLSKey:         cfg.Modules.EmbeddedMQTT.TLSKey,
	})
	if err != nil {
		return err
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- mod.Run(ctx)
	}()
	go func() {
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("embedded mqtt exited", zap.Error(err))
			cancel()
		}
	}()

	listen := cfg.Modules.EmbeddedMQTT.Listen
	if listen == "" {
		listen = "127.0.0.1:1883"
	}
	return waitForListen(listen, 3*time.Second)
}

func waitForListen(listen string, timeout time.Duration) error {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return err
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	addr := net.JoinHostPort(host, port)
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("embedded mqtt not ready at %s", addr)
}
