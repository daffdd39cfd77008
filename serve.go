package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"promptgate/pkg/channels"
	"promptgate/pkg/config"
	"promptgate/pkg/engine"
	"promptgate/pkg/gateway"
	"promptgate/pkg/monitor"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"
)

func serveFlags() []cli.Flag {
	return append(commonFlags(),
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "listen address; overrides the system config",
			Destination: &listenAddr,
		},
	)
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Serve the REST API and configured channels (default)",
		Action: serve,
	}
}

// loadSystem reads the system config and applies CLI overrides.
func loadSystem() *config.SystemConfig {
	sys := config.LoadSystemConfig(systemPath)
	if listenAddr != "" {
		sys.Addr = listenAddr
	}
	if logLevel != "" {
		sys.LogLevel = logLevel
	}
	return sys
}

// loadConfig falls back to an empty config so the server still starts
// without a config file.
func loadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Warn("Failed to load config, using empty config", "path", configPath, "error", err)
		return &config.Config{}
	}
	return cfg
}

func serve(ctx context.Context, _ *cli.Command) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	sys := loadSystem()
	monitor.SetupSlog(sys.LogLevel)
	cfg := loadConfig()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := monitor.NewMetricsMonitor(reg)
	if err != nil {
		return err
	}
	monitors := monitor.Multi{metrics}
	if sys.ShowMonitor {
		monitors = append(monitors, monitor.NewCLIMonitor())
	}

	eng, err := engine.New(cfg, sys, engine.WithMonitor(monitors))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng.ConfigureDefault(ctx, cfg.DefaultModel)

	gw, err := gateway.NewGatewayBuilder().
		WithSystemConfig(sys).
		WithMonitor(monitors).
		WithService(eng).
		WithGatherer(reg).
		WithChannel(channels.Load(cfg.Channels, sys)...).
		Build()
	if err != nil {
		return err
	}
	defer gw.StopAll()

	go watch(ctx, eng)

	err = gw.Serve(ctx)
	slog.Info("Shutting down")
	return err
}

// watch reloads metric expressions and the log level when the config
// files change. Listen address and channels need a restart.
func watch(ctx context.Context, eng *engine.Engine) {
	cfgAbs, _ := filepath.Abs(configPath)
	sysAbs, _ := filepath.Abs(systemPath)

	for path := range config.WatchConfig(ctx, configPath, systemPath) {
		switch path {
		case sysAbs:
			sys := loadSystem()
			monitor.SetLevel(sys.LogLevel)
			slog.Info("System config reloaded", "log_level", sys.LogLevel)
		case cfgAbs:
			cfg, err := config.Load(configPath)
			if err != nil {
				slog.Error("Config reload failed, keeping previous config", "error", err)
				continue
			}
			if err := eng.Reload(cfg); err != nil {
				slog.Error("Config reload failed, keeping previous config", "error", err)
				continue
			}
			slog.Info("Config reloaded", "metrics", len(cfg.Metrics))
		}
	}
}
