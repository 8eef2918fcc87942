package session

import (
	"io"
	"log/slog"
)

func newCapturingLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, nil))
}
