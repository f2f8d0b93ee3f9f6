package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"time"

	"github.com/spf13/cobra"

	"github.com/playadev/playa/internal/adapters/clock"
	"github.com/playadev/playa/internal/adapters/config"
	"github.com/playadev/playa/internal/adapters/idgen"
	"github.com/playadev/playa/internal/adapters/mqtt"
	"github.com/playadev/playa/internal/adapters/output"
	"github.com/playadev/playa/internal/core"
	"github.com/playadev/playa/pkg/playa"
)

type app struct {
	service core.Service
	printer output.Printer
	quiet   bool
	json    bool
	timeout time.Duration
}

func main() {
	root := &cobra.Command{
		Use:   "playactl",
		Short: "Control playa player nodes",
	}

	var (
		broker    string
		topicBase string
		identity  string
		node      string
		timeout   time.Duration
		quiet     bool
		jsonOut   bool
		tlsCA     string
		tlsCert   string
		tlsKey    string
		userOpt   string
		passOpt   string
	)

	root.PersistentFlags().StringVarP(&broker, "broker", "b", "", "MQTT broker URL")
	root.PersistentFlags().StringVar(&topicBase, "topic-base", playa.BaseTopic, "MQTT topic base")
	root.PersistentFlags().StringVarP(&identity, "identity", "i", "", "controller identity")
	root.PersistentFlags().StringVarP(&node, "node", "n", "", "target player node")
	root.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 2*time.Second, "command timeout")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")
	root.PersistentFlags().BoolVarP(&jsonOut, "json", "j", false, "output json")
	root.PersistentFlags().StringVar(&tlsCA, "tls-ca", "", "TLS CA path")
	root.PersistentFlags().StringVar(&tlsCert, "tls-cert", "", "TLS cert path")
	root.PersistentFlags().StringVar(&tlsKey, "tls-key", "", "TLS key path")
	root.PersistentFlags().StringVar(&userOpt, "user", "", "MQTT username")
	root.PersistentFlags().StringVar(&passOpt, "pass", "", "MQTT password")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		identity = defaultIdentity(identity, cfg.Identity)
		if broker == "" {
			broker = cfg.Broker
		}
		if topicBase == playa.BaseTopic && cfg.TopicBase != "" {
			topicBase = cfg.TopicBase
		}
		if node == "" {
			node = cfg.DefaultNode
		}
		if broker == "" {
			return errors.New("broker is required (set --broker or config)")
		}

		clientID := fmt.Sprintf("playactl-%d", time.Now().UnixNano())
		mqttClient, err := mqtt.NewClient(mqtt.Options{
			BrokerURL: broker,
			ClientID:  clientID,
			Username:  userOpt,
			Password:  passOpt,
			TLSCA:     tlsCA,
			TLSCert:   tlsCert,
			TLSKey:    tlsKey,
			TopicBase: topicBase,
			Timeout:   timeout,
		})
		if err != nil {
			return err
		}

		coreCfg := core.Config{
			Broker:      broker,
			Identity:    identity,
			TopicBase:   topicBase,
			Aliases:     cfg.Aliases,
			DefaultNode: node,
		}

		service := core.Service{
			Broker:   mqttClient,
			Resolver: core.Resolver{Presence: mqttClient, Config: coreCfg},
			Clock:    clock.Clock{},
			IDGen:    idgen.Generator{},
			Config:   coreCfg,
		}

		var printer output.Printer
		if jsonOut {
			printer = output.JSONPrinter{}
		} else {
			printer = output.HumanPrinter{}
		}

		cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, &app{
			service: service,
			printer: printer,
			quiet:   quiet,
			json:    jsonOut,
			timeout: timeout,
		}))
		return nil
	}

	root.AddCommand(nodesCommand())
	root.AddCommand(statusCommand())
	root.AddCommand(playCommand())
	root.AddCommand(lsCommand())
	root.AddCommand(closeCommand())
	root.AddCommand(closeAllCommand())
	root.AddCommand(pauseCommand())
	root.AddCommand(resumeCommand())
	root.AddCommand(seekCommand())
	root.AddCommand(volumeCommand())
	root.AddCommand(windowCommand())
	root.AddCommand(progressCommand())
	root.AddCommand(infoCommand())
	root.AddCommand(watchCommand())
	root.AddCommand(presetsCommand())

	if err := root.Execute(); err != nil {
		os.Exit(core.ExitCode(err))
	}
}

type appKey struct{}

func fromContext(cmd *cobra.Command) *app {
	val := cmd.Context().Value(appKey{})
	if val == nil {
		return nil
	}
	return val.(*app)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout)
}

func defaultIdentity(flagVal string, cfgVal string) string {
	if flagVal != "" {
		return flagVal
	}
	if cfgVal != "" {
		return cfgVal
	}
	usr, _ := user.Current()
	host, _ := os.Hostname()
	if usr != nil && host != "" {
		return fmt.Sprintf("%s@%s", usr.Username, host)
	}
	if host != "" {
		return host
	}
	return "playactl-unknown"
}
