// Package supervisor implements the session supervisor: it accepts
// connections and isolates each one in its own OS process by re-executing
// the server binary with a hidden subcommand, passing the accepted socket
// as an inherited file descriptor.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync/atomic"
	"syscall"

	"github.com/7etsuo/shellserve/internal/metrics"
	"github.com/7etsuo/shellserve/internal/server"
)

// connFD is the file descriptor a spawned worker finds its client socket
// on. Descriptors 0-2 are stdin/stdout/stderr; ExtraFiles begins at 3.
const connFD = 3

// metricsFD is the file descriptor a spawned worker finds the write end
// of its metrics-event pipe on, immediately after the client socket.
const metricsFD = 4

// WorkerSubcommand is the hidden subcommand name the supervisor re-execs
// itself with for each accepted connection.
const WorkerSubcommand = "session-worker"

// Supervisor spawns one isolated worker process per accepted connection.
type Supervisor struct {
	execPath   string
	configPath string
	logger     *slog.Logger
	collector  metrics.Collector

	nextClientID atomic.Int64
}

// New builds a Supervisor that re-execs execPath (typically
// os.Executable()) with --config configPath for every accepted
// connection.
func New(execPath, configPath string, logger *slog.Logger) *Supervisor {
	return &Supervisor{execPath: execPath, configPath: configPath, logger: logger, collector: &metrics.NoopCollector{}}
}

// WithCollector attaches a metrics collector. The supervisor records
// connection open/close counts against it directly; per-auth,
// per-command, and per-transfer counts are recorded by each worker
// process and replayed against the same collector over a pipe (see
// spawnWorker and metrics.ServePipeEvents).
func (sv *Supervisor) WithCollector(c metrics.Collector) *Supervisor {
	sv.collector = c
	return sv
}

// Handler returns a server.ConnectionHandler that spawns an isolated
// worker for each connection it is given.
func (sv *Supervisor) Handler() server.ConnectionHandler {
	return func(ctx context.Context, conn *server.Connection) {
		clientID := sv.nextClientID.Add(1)
		sv.collector.ConnectionOpened()
		sv.logger.Info("client connected", slog.Int64("client_id", clientID), slog.String("remote", conn.RawConn().RemoteAddr().String()))

		if err := sv.spawnWorker(ctx, conn, clientID); err != nil {
			sv.logger.Error("failed to spawn session worker", slog.Int64("client_id", clientID), slog.String("error", err.Error()))
			sv.collector.ConnectionClosed()
			_ = conn.Close()
		}
	}
}

// spawnWorker dup's the connection's file descriptor, re-execs the
// server binary with the hidden session-worker subcommand, and then waits
// for (reaps) the resulting process, so the caller's connection-limiter
// slot stays held for the session's lifetime. The connection is closed in
// the parent once the child has inherited its own copy of the descriptor,
// whether or not the spawn succeeded.
func (sv *Supervisor) spawnWorker(ctx context.Context, conn *server.Connection, clientID int64) error {
	tcpConn, ok := conn.RawConn().(interface {
		File() (*os.File, error)
	})
	if !ok {
		conn.Close()
		return fmt.Errorf("connection type %T does not support descriptor passing", conn.RawConn())
	}

	connFile, err := tcpConn.File()
	// conn.RawConn().File() duplicates the descriptor; the original
	// socket is closed here either way, in the parent, right after the
	// fork-equivalent step, whether or not the dup succeeded.
	defer conn.Close()
	if err != nil {
		return fmt.Errorf("duplicating connection descriptor: %w", err)
	}

	// The worker records its own per-auth, per-command, and per-transfer
	// events (it is a separate process with no Prometheus registry of its
	// own) by writing them down metricsWrite; this end is read back here
	// and replayed against the supervisor's collector.
	metricsRead, metricsWrite, err := os.Pipe()
	if err != nil {
		connFile.Close()
		return fmt.Errorf("creating metrics pipe: %w", err)
	}

	cmd := exec.Command(sv.execPath, WorkerSubcommand, "--config", sv.configPath)
	cmd.ExtraFiles = []*os.File{connFile, metricsWrite}
	cmd.Env = append(inheritEnv("PATH", "HOME", "USER", "TMPDIR", "TMP", "TEMP"),
		fmt.Sprintf("SHELLSERVE_CLIENT_ID=%d", clientID))
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		connFile.Close()
		metricsRead.Close()
		metricsWrite.Close()
		return fmt.Errorf("starting session worker: %w", err)
	}
	connFile.Close()
	metricsWrite.Close()

	go func() {
		defer metricsRead.Close()
		if err := metrics.ServePipeEvents(metricsRead, sv.collector, sv.logger); err != nil {
			sv.logger.Warn("metrics pipe closed with error",
				slog.Int64("client_id", clientID), slog.String("error", err.Error()))
		}
	}()

	_ = conn.Close()
	sv.reap(cmd, clientID)
	return nil
}

// reap waits for a spawned worker to exit, records the connection as
// closed, and logs its disposition.
func (sv *Supervisor) reap(cmd *exec.Cmd, clientID int64) {
	err := cmd.Wait()
	sv.collector.ConnectionClosed()
	if err == nil {
		sv.logger.Info("client disconnected", slog.Int64("client_id", clientID))
		return
	}

	var exitErr *exec.ExitError
	if ok := asExitError(err, &exitErr); ok {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			sv.logger.Warn("session worker killed by signal",
				slog.Int64("client_id", clientID), slog.String("signal", ws.Signal().String()))
			return
		}
		sv.logger.Info("client disconnected", slog.Int64("client_id", clientID), slog.Int("exit_code", exitErr.ExitCode()))
		return
	}
	sv.logger.Error("session worker wait failed", slog.Int64("client_id", clientID), slog.String("error", err.Error()))
}

func asExitError(err error, target **exec.ExitError) bool {
	if ee, ok := err.(*exec.ExitError); ok {
		*target = ee
		return true
	}
	return false
}

func inheritEnv(keys ...string) []string {
	env := make([]string, 0, len(keys))
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			env = append(env, k+"="+v)
		}
	}
	return env
}
