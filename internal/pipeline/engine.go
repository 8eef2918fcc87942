package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/7etsuo/shellserve/internal/shellserveerr"
)

// ErrEmptyStage is returned when a pipeline stage has no argv tokens
// (e.g. two adjacent "|" delimiters).
var ErrEmptyStage = errors.New("pipeline stage has no command")

// Run wires stdin/stdout across stages and runs them concurrently:
// stage 0's stdin is in, the last stage's stdout is out, and every
// adjacent pair of stages is connected by an os.Pipe. The parent closes
// every pipe descriptor once all stages are started, and waits for every
// stage to exit before returning.
func Run(ctx context.Context, stages []Stage, in io.Reader, out io.Writer, stderr io.Writer, logger *slog.Logger) error {
	if len(stages) == 0 {
		return shellserveerr.New(shellserveerr.KindExec, "pipeline.Run", errors.New("no stages to run"))
	}
	for _, s := range stages {
		if len(s.Argv) == 0 {
			return shellserveerr.New(shellserveerr.KindExec, "pipeline.Run", ErrEmptyStage)
		}
	}

	cmds := make([]*exec.Cmd, len(stages))
	var pipes []*os.File // every pipe end opened, closed by the parent after Start

	var prevRead io.Reader = in
	for i, stage := range stages {
		cmd := exec.CommandContext(ctx, stage.Argv[0], stage.Argv[1:]...)
		cmd.Stderr = stderr
		cmd.Env = os.Environ()
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

		cmd.Stdin = prevRead

		if i == len(stages)-1 {
			cmd.Stdout = out
		} else {
			r, w, err := os.Pipe()
			if err != nil {
				closeAll(pipes)
				return shellserveerr.New(shellserveerr.KindExec, "pipeline.Run", fmt.Errorf("creating pipe for stage %d: %w", i, err))
			}
			pipes = append(pipes, r, w)
			cmd.Stdout = w
			prevRead = r
		}

		cmds[i] = cmd
	}

	// A stage that fails to start (binary not found, not executable, ...)
	// is an ExecError for that stage alone: it is logged and treated the
	// same as a nonzero exit, not a reason to tear down the stages that
	// already started. Its downstream neighbor simply sees EOF once the
	// unwritten end of its input pipe is closed below.
	for i, cmd := range cmds {
		if err := cmd.Start(); err != nil {
			logger.Warn("pipeline stage failed to start",
				slog.Int("stage", i), slog.String("path", cmd.Path), slog.String("error", err.Error()))
		}
	}

	// Every pipe fd has now been duplicated into the relevant children;
	// the parent's copies must be closed or a reader stage will never see
	// EOF from a writer stage that has already exited (or never started).
	closeAll(pipes)

	var wg sync.WaitGroup
	errs := make([]error, len(cmds))
	for i, cmd := range cmds {
		if cmd.Process == nil {
			// Never started; nothing to wait for.
			continue
		}
		wg.Add(1)
		go func(i int, cmd *exec.Cmd) {
			defer wg.Done()
			errs[i] = waitAndLog(cmd, logger)
		}(i, cmd)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func closeAll(files []*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

// waitAndLog waits for cmd to exit and logs its disposition: normal exit
// code, or termination by signal. A non-zero exit from a pipeline stage
// is not itself an engine error; the caller only cares whether the stage
// could be spawned and reaped.
func waitAndLog(cmd *exec.Cmd, logger *slog.Logger) error {
	err := cmd.Wait()
	if err == nil {
		logger.Debug("pipeline stage exited", slog.String("path", cmd.Path), slog.Int("code", 0))
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if ws.Signaled() {
				logger.Warn("pipeline stage killed by signal",
					slog.String("path", cmd.Path), slog.String("signal", ws.Signal().String()))
				return nil
			}
			logger.Debug("pipeline stage exited", slog.String("path", cmd.Path), slog.Int("code", ws.ExitStatus()))
			return nil
		}
		return nil
	}

	return shellserveerr.New(shellserveerr.KindExec, "pipeline.Run", fmt.Errorf("waiting for stage %s: %w", cmd.Path, err))
}
