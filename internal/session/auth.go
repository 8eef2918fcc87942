package session

import (
	"fmt"
	"log/slog"

	"github.com/7etsuo/shellserve/internal/credstore"
	"github.com/7etsuo/shellserve/internal/metrics"
	"github.com/7etsuo/shellserve/internal/shellserveerr"
)

// ErrAuthFailed is returned by Authenticate once every attempt has been
// exhausted without a match.
var ErrAuthFailed = fmt.Errorf("authentication failed")

// Authenticate runs the username/password challenge up to maxAttempts
// times. Each round prompts "Username: " then "Password: " (no trailing
// newline on either prompt), reads one line for each, and checks it
// against store. No password is ever logged, on success or failure; only
// the fact of a failed attempt is logged.
func Authenticate(sess *Session, store *credstore.Store, maxAttempts int, collector metrics.Collector, logger *slog.Logger) error {
	sess.State = StateAuthenticating
	io := sess.IO

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := writePrompt(io, "Username: "); err != nil {
			return shellserveerr.New(shellserveerr.KindIO, "session.Authenticate", err)
		}
		username, err := io.ReadLine()
		if err != nil {
			return shellserveerr.New(shellserveerr.KindIO, "session.Authenticate", err)
		}

		if err := writePrompt(io, "Password: "); err != nil {
			return shellserveerr.New(shellserveerr.KindIO, "session.Authenticate", err)
		}
		password, err := io.ReadLine()
		if err != nil {
			return shellserveerr.New(shellserveerr.KindIO, "session.Authenticate", err)
		}

		if idx := store.Verify(username, password); idx >= 0 {
			sess.Username = username
			sess.State = StateServing
			collector.AuthAttempt(true)
			if _, err := fmt.Fprintf(io.Write, "welcome back %s\n", username); err != nil {
				return shellserveerr.New(shellserveerr.KindIO, "session.Authenticate", err)
			}
			return nil
		}

		collector.AuthAttempt(false)
		logger.Info("client failed password attempt", slog.Int64("client_id", sess.ClientID))
	}

	if _, err := fmt.Fprint(io.Write, "login failed\n"); err != nil {
		return shellserveerr.New(shellserveerr.KindIO, "session.Authenticate", err)
	}
	return shellserveerr.New(shellserveerr.KindAuth, "session.Authenticate", ErrAuthFailed)
}

func writePrompt(io *IOContext, prompt string) error {
	if _, err := fmt.Fprint(io.Write, prompt); err != nil {
		return err
	}
	if f, ok := io.Write.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}
