package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudflare/tableflip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/7etsuo/shellserve/internal/config"
	"github.com/7etsuo/shellserve/internal/credstore"
	"github.com/7etsuo/shellserve/internal/health"
	"github.com/7etsuo/shellserve/internal/logging"
	"github.com/7etsuo/shellserve/internal/metrics"
	"github.com/7etsuo/shellserve/internal/server"
	"github.com/7etsuo/shellserve/internal/supervisor"
)

func newServeCommand() *cobra.Command {
	f := &config.Flags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept connections and spawn an isolated session worker per client",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(f)
		},
	}

	cmd.Flags().StringVar(&f.ConfigPath, "config", "./shellserve.toml", "Path to configuration file")
	cmd.Flags().StringVar(&f.ListenAddress, "listen", "", "Listen address (overrides config)")
	cmd.Flags().StringVar(&f.CredentialsPath, "credentials", "", "Path to the credentials file (overrides config)")
	cmd.Flags().StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.Flags().IntVar(&f.MaxConnections, "max-connections", 0, "Maximum concurrent connections")

	return cmd
}

func runServe(f *config.Flags) error {
	cfg, err := config.LoadWithFlags(f)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := config.ValidateStruct(&cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel)

	store := credstore.New()
	if err := store.Load(cfg.CredentialsPath); err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}
	logger.Info("loaded credentials", slog.Int("records", store.Len()))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := store.Watch(ctx, cfg.CredentialsPath, logger); err != nil {
			logger.Warn("credential watch exited", slog.String("error", err.Error()))
		}
	}()

	var collector metrics.Collector = &metrics.NoopCollector{}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		promCollector := metrics.NewPrometheusCollector(reg)
		collector = promCollector

		metricsSrv := metrics.NewPrometheusServer(cfg.Metrics.Address, cfg.Metrics.Path, reg)
		go func() {
			if err := metricsSrv.Start(ctx); err != nil {
				logger.Warn("metrics server exited", slog.String("error", err.Error()))
			}
		}()
	}

	var healthSrv *health.Server
	if cfg.Admin.Enabled {
		healthSrv = health.New(logger)
		go func() {
			if err := healthSrv.Start(ctx, cfg.Admin.GRPCAddress); err != nil {
				logger.Warn("health server exited", slog.String("error", err.Error()))
			}
		}()
	}

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving executable path: %w", err)
	}

	upg, err := tableflip.New(tableflip.Options{})
	if err != nil {
		return fmt.Errorf("initializing restart upgrader: %w", err)
	}
	defer upg.Stop()

	go func() {
		sighup := make(chan os.Signal, 1)
		signal.Notify(sighup, syscall.SIGHUP)
		for range sighup {
			logger.Info("received SIGHUP, upgrading listener")
			if err := upg.Upgrade(); err != nil {
				logger.Warn("upgrade failed", slog.String("error", err.Error()))
			}
		}
	}()

	ln, err := upg.Fds.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("binding listener: %w", err)
	}

	srv, err := server.New(server.Config{Cfg: &cfg, Logger: logger, Listener: ln})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	sv := supervisor.New(execPath, f.ConfigPath, logger).WithCollector(collector)
	srv.SetHandler(sv.Handler())

	if err := upg.Ready(); err != nil {
		return fmt.Errorf("signaling readiness: %w", err)
	}
	if healthSrv != nil {
		healthSrv.SetServing(true)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	select {
	case <-upg.Exit():
		cancel()
		return <-errCh
	case err := <-errCh:
		return err
	}
}
