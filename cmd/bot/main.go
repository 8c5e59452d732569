// spotbot — a spot-market making bot core: one supervisor runs a strategy
// against one or more exchange connectors, driven from a bot-profile YAML.
//
// Architecture:
//
//	main.go                  — CLI entry point: loads config, starts the supervisor, waits for SIGINT/SIGTERM
//	supervisor/supervisor.go — orchestrator: wires connector → exchange loop → strategy, manages bot lifecycle
//	strategy/                — registry of quoting strategies, invoked once per loop interval
//	exchange/spotexchange.go — per-venue loop: fetch data, run strategy, reconcile order batches
//	connector/                — uniform HTTP pipeline + per-venue connectors (registry §9)
//	ordermanager/            — order lifecycle state machine per pair (submanager.go), aggregated per exchange (manager.go)
//	status/                  — HTTP+WebSocket surface exposing live bot/exchange state
//	metrics/                 — Prometheus counters/gauges for the loop and connector pipeline
//	config/                  — bot-profile YAML + per-venue settings JSON loaders
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"spotbot/internal/config"
	"spotbot/internal/metrics"
	"spotbot/internal/status"
	"spotbot/internal/supervisor"
)

var (
	configPath   string
	botID        string
	dryRun       bool
	logLevel     string
	logFormat    string
	statusAddr   string
	metricsAddr  string
	enableStatus bool
)

func main() {
	root := &cobra.Command{
		Use:   "bot",
		Short: "Run a spot-market making bot from a bot-profile config",
		RunE:  run,
	}

	root.Flags().StringVar(&configPath, "config", "configs/bots.yaml", "path to the bot-profile YAML")
	root.Flags().StringVar(&botID, "bot-id", "", "bot id to run (required)")
	root.Flags().BoolVar(&dryRun, "dry-run", false, "fake order create/cancel/query calls instead of sending them to the venue")
	root.Flags().StringVar(&logLevel, "log-level", "", "overrides the profile's log_level (debug|info|warn|error)")
	root.Flags().StringVar(&logFormat, "log-format", "", "overrides the profile's log_format (text|json)")
	root.Flags().StringVar(&statusAddr, "status-addr", ":8090", "listen address for the status HTTP/WebSocket server")
	root.Flags().StringVar(&metricsAddr, "metrics-addr", ":9100", "listen address for the Prometheus /metrics endpoint")
	root.Flags().BoolVar(&enableStatus, "status", true, "serve the status HTTP/WebSocket surface and metrics endpoint")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if botID == "" {
		return fmt.Errorf("--bot-id is required")
	}

	profile, err := config.LoadProfile(configPath, botID)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if logLevel != "" {
		profile.LogLevel = logLevel
	}
	if logFormat != "" {
		profile.LogFormat = logFormat
	}
	if !dryRun {
		dryRun = profile.DryRun
	}

	logger := newLogger(profile.LogLevel, profile.LogFormat)

	venueSettings, err := config.LoadProfileVenueSettings(profile)
	if err != nil {
		return fmt.Errorf("load venue settings: %w", err)
	}

	bot, err := supervisor.New(profile, venueSettings, dryRun, logger)
	if err != nil {
		return fmt.Errorf("construct bot %q: %w", botID, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var statusServer *status.Server
	var metricsServer *http.Server
	if enableStatus {
		statusServer = status.NewServer(status.Config{Addr: statusAddr}, []status.BotView{bot}, logger)
		go func() {
			if err := statusServer.Start(); err != nil {
				logger.Error("status server failed", "error", err)
			}
		}()

		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{Addr: metricsAddr, Handler: metricsMux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	logger.Info("bot starting", "bot_id", botID, "dry_run", dryRun, "exchanges", len(bot.Exchanges()))
	bot.Start(ctx)

	<-ctx.Done()
	logger.Info("shutdown signal received", "bot_id", botID)

	bot.Stop()
	bot.Wait()

	if statusServer != nil {
		if err := statusServer.Stop(); err != nil {
			logger.Error("failed to stop status server", "error", err)
		}
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(context.Background()); err != nil {
			logger.Error("failed to stop metrics server", "error", err)
		}
	}

	logger.Info("bot stopped", "bot_id", botID)
	return nil
}

func newLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug", "":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
