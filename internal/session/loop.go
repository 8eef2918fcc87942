package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/7etsuo/shellserve/internal/metrics"
	"github.com/7etsuo/shellserve/internal/pipeline"
	"github.com/7etsuo/shellserve/internal/shellserveerr"
	"github.com/7etsuo/shellserve/internal/transfer"
)

const prompt = "server> "

// RunLoop drives the interactive command loop after authentication
// succeeds: prompt, read one line, dispatch to a built-in file-transfer
// verb or run the line as a pipeline, repeat until "exit" or the
// connection is lost.
func RunLoop(ctx context.Context, sess *Session, maxPipelineStages int, collector metrics.Collector, logger *slog.Logger) error {
	sess.State = StateServing
	io := sess.IO

	for {
		if ctx.Err() != nil {
			return nil
		}

		if _, err := fmt.Fprint(io.Write, prompt); err != nil {
			return shellserveerr.New(shellserveerr.KindIO, "session.RunLoop", err)
		}

		line, err := io.ReadLine()
		if err != nil {
			logger.Info("client disconnected", slog.Int64("client_id", sess.ClientID))
			return nil
		}
		if line == "" {
			continue
		}

		switch line {
		case "get":
			collector.CommandProcessed("get")
			if err := handleGet(io, collector); err != nil {
				logger.Warn("get failed", slog.Int64("client_id", sess.ClientID), slog.String("error", err.Error()))
			}
		case "put":
			collector.CommandProcessed("put")
			if err := handlePut(io, collector); err != nil {
				logger.Warn("put failed", slog.Int64("client_id", sess.ClientID), slog.String("error", err.Error()))
			}
		case "help":
			collector.CommandProcessed("help")
			if _, err := fmt.Fprint(io.Write, transfer.HelpText); err != nil {
				return shellserveerr.New(shellserveerr.KindIO, "session.RunLoop", err)
			}
		case "exit":
			collector.CommandProcessed("exit")
			logger.Info("client disconnected", slog.Int64("client_id", sess.ClientID))
			sess.State = StateClosing
			return nil
		default:
			collector.CommandProcessed("pipeline")
			runPipeline(ctx, io, line, maxPipelineStages, collector, logger, sess.ClientID)
		}
	}
}

// handleGet opens the requested file and retargets the IOContext's Read
// field to it for the duration of the transfer, so transfer.Get streams
// through the same Read/Write seam every other command uses rather than
// taking a raw *os.File of its own.
func handleGet(io *IOContext, collector metrics.Collector) error {
	filename, err := transfer.ReadFilename(io.Write, io.Reader)
	if err != nil {
		return err
	}

	f, err := os.Open(filename)
	if err != nil {
		return shellserveerr.New(shellserveerr.KindIO, "session.handleGet", err)
	}
	defer f.Close()

	prevRead := io.RetargetRead(f)
	defer io.RestoreRead(prevRead)

	n, err := transfer.Get(io.Write, io.Read, io.Scratch()[:transfer.ChunkSize])
	if err != nil {
		return err
	}
	collector.TransferCompleted("get", n)
	return nil
}

// handlePut opens (creating, truncating, owner-only) the requested file
// and retargets the IOContext's Write field to it for the duration of
// the transfer, so transfer.Put writes through the same seam other
// commands use rather than taking a raw *os.File of its own.
func handlePut(io *IOContext, collector metrics.Collector) error {
	filename, err := transfer.ReadFilename(io.Write, io.Reader)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return shellserveerr.New(shellserveerr.KindIO, "session.handlePut", err)
	}
	defer f.Close()

	prevWrite := io.RetargetWrite(f)
	defer io.RestoreWrite(prevWrite)

	n, err := transfer.Put(io.Reader, io.Write)
	if err != nil {
		return err
	}
	collector.TransferCompleted("put", n)
	return nil
}

func runPipeline(ctx context.Context, io *IOContext, line string, maxStages int, collector metrics.Collector, logger *slog.Logger, clientID int64) {
	tokens := pipeline.ParseArgv(line)
	if len(tokens) == 0 {
		return
	}
	stages := pipeline.ParsePipeline(tokens)
	if len(stages) > maxStages {
		stages = stages[:maxStages]
	}

	if err := pipeline.Run(ctx, stages, io.Conn, io.Write, io.Write, logger); err != nil {
		logger.Warn("pipeline failed", slog.Int64("client_id", clientID), slog.String("error", err.Error()))
		fmt.Fprintf(io.Write, "pipeline error: %v\n", err)
		return
	}
	collector.PipelineExecuted(len(stages))
}
