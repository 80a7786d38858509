// Command poke-mcp starts the Pokemon MCP bridge on a chosen transport.
package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"poke-mcp/internal/config"
	"poke-mcp/internal/server"
)

// Set via ldflags at build time.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "poke-mcp",
		Short:        "Pokemon MCP bridge server",
		Long:         "poke-mcp exposes a greeting tool and a PokeAPI lookup tool over a standard-stream or streaming-http transport.",
		SilenceUsage: true,
		RunE:         run,
	}
	cmd.Version = version
	cmd.SetVersionTemplate(fmt.Sprintf("poke-mcp version %s\n", version))

	cmd.Flags().String("config", "", "Path to config.toml (default: ~/.poke-mcp/config.toml)")
	cmd.Flags().StringP("transport", "t", "", fmt.Sprintf("Transport: %s or %s", config.TransportStandardStream, config.TransportStreamingHTTP))
	cmd.Flags().String("host", "", "Listen host (streaming-http)")
	cmd.Flags().StringP("port", "p", "", "Listen port (streaming-http)")
	cmd.Flags().String("log-level", "info", "Log level: debug, info, warn, error")
	cmd.Flags().Duration("shutdown-grace", 10*time.Second, "How long shutdown waits for draining sessions")
	cmd.Flags().Duration("session-idle-timeout", 5*time.Minute, "Idle bound before a session is drained (0 disables)")
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	levelName, _ := cmd.Flags().GetString("log-level")
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", levelName, err)
	}
	// Logs go to stderr so the standard-stream transport keeps stdout to itself.
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if v, _ := cmd.Flags().GetString("transport"); v != "" {
		cfg.Transport = v
	}
	if v, _ := cmd.Flags().GetString("host"); v != "" {
		cfg.Host = v
	}
	if v, _ := cmd.Flags().GetString("port"); v != "" {
		cfg.Port = v
	}
	grace, _ := cmd.Flags().GetDuration("shutdown-grace")
	idle, _ := cmd.Flags().GetDuration("session-idle-timeout")

	if cfg.APIKey == "" {
		logrus.Info("POKE_API_KEY not set; provider requests are unauthenticated")
	}

	srv, err := server.New(server.Config{
		PokeBaseURL:        cfg.BaseURL,
		PokeAPIKey:         cfg.APIKey,
		ShutdownGrace:      grace,
		SessionIdleTimeout: idle,
	})
	if err != nil {
		return fmt.Errorf("building server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cfg.Transport {
	case config.TransportStandardStream:
		return srv.RunStandardStream(ctx, os.Stdin, os.Stdout)
	case config.TransportStreamingHTTP:
		return srv.RunStreamingHTTP(ctx, net.JoinHostPort(cfg.Host, cfg.Port))
	default:
		return fmt.Errorf("unsupported transport %q: choose %s or %s",
			cfg.Transport, config.TransportStandardStream, config.TransportStreamingHTTP)
	}
}
