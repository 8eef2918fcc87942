package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/7etsuo/shellserve/internal/config"
	"github.com/7etsuo/shellserve/internal/credstore"
	"github.com/7etsuo/shellserve/internal/logging"
	"github.com/7etsuo/shellserve/internal/metrics"
	"github.com/7etsuo/shellserve/internal/session"
)

// workerConnFD is the descriptor the supervisor hands a worker its client
// socket on via exec.Cmd.ExtraFiles; 0-2 are stdin/stdout/stderr, so the
// first ExtraFiles entry lands at 3.
const workerConnFD = 3

// workerMetricsFD is the descriptor the supervisor hands a worker the
// write end of its metrics-event pipe on, the second ExtraFiles entry.
const workerMetricsFD = 4

// newWorkerCommand builds the hidden session-worker subcommand. It is never
// invoked directly by an operator; the supervisor re-execs the server
// binary with this subcommand for every accepted connection, passing the
// client socket as an inherited file descriptor.
func newWorkerCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:    "session-worker",
		Short:  "Serve one client connection inherited on file descriptor 3 (internal use only)",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "./shellserve.toml", "Path to configuration file")
	return cmd
}

func runWorker(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		cfg = config.Default()
	}

	logger := logging.NewLogger(cfg.LogLevel)

	connFile := os.NewFile(uintptr(workerConnFD), "client-conn")
	if connFile == nil {
		return fmt.Errorf("file descriptor %d is not open", workerConnFD)
	}
	conn, err := net.FileConn(connFile)
	if err != nil {
		return fmt.Errorf("reconstructing connection from descriptor: %w", err)
	}
	connFile.Close()
	defer conn.Close()

	clientID := parseClientID(os.Getenv("SHELLSERVE_CLIENT_ID"))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store := credstore.New()
	if err := store.Load(cfg.CredentialsPath); err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	io := session.NewIOContext(conn)
	sess := session.New(clientID, io)

	// This worker's own metrics (auth attempts, commands, transfers) have
	// nowhere local to be recorded, so they are forwarded down the
	// inherited metrics pipe and replayed against the supervisor's
	// collector there (see internal/supervisor.spawnWorker and
	// metrics.ServePipeEvents). Absence of the descriptor (e.g. when this
	// subcommand is invoked standalone) falls back to a no-op rather than
	// failing the session.
	var collector metrics.Collector = &metrics.NoopCollector{}
	if metricsFile := os.NewFile(uintptr(workerMetricsFD), "metrics-pipe"); metricsFile != nil {
		if _, err := metricsFile.Stat(); err == nil {
			collector = metrics.NewPipeCollector(metricsFile)
			defer metricsFile.Close()
		}
	}

	if cfg.Banner != "" {
		if _, err := fmt.Fprint(io.Write, cfg.Banner); err != nil {
			return fmt.Errorf("writing banner: %w", err)
		}
	}

	if err := session.Authenticate(sess, store, cfg.MaxLoginAttempts, collector, logger); err != nil {
		return nil
	}

	return session.RunLoop(ctx, sess, cfg.Limits.MaxPipelineLen, collector, logger)
}

func parseClientID(s string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
