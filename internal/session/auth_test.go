package session

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/7etsuo/shellserve/internal/credstore"
)

func newStore(t *testing.T, content string) *credstore.Store {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.txt")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	s := credstore.New()
	if err := s.Load(path); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return s
}

func TestAuthenticateSucceedsFirstTry(t *testing.T) {
	store := newStore(t, "alice secret\n")
	var out bytes.Buffer
	io := newTestIOContext("alice\nsecret\n", &out)
	sess := New(1, io)
	coll := &countingCollector{}

	if err := Authenticate(sess, store, 3, coll, discardLogger()); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if sess.Username != "alice" {
		t.Errorf("Username = %q, want alice", sess.Username)
	}
	if sess.State != StateServing {
		t.Errorf("State = %v, want StateServing", sess.State)
	}
	if !bytes.Contains(out.Bytes(), []byte("welcome back alice")) {
		t.Errorf("expected welcome message, got %q", out.String())
	}
	if out.String() != "Username: Password: welcome back alice\n" {
		t.Errorf("unexpected transcript: %q", out.String())
	}
}

func TestAuthenticateRetriesThenSucceeds(t *testing.T) {
	store := newStore(t, "alice secret\n")
	var out bytes.Buffer
	io := newTestIOContext("alice\nwrong\nalice\nsecret\n", &out)
	sess := New(1, io)
	coll := &countingCollector{}

	if err := Authenticate(sess, store, 3, coll, discardLogger()); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if sess.Username != "alice" {
		t.Errorf("Username = %q, want alice", sess.Username)
	}
}

func TestAuthenticateFailsAfterMaxAttempts(t *testing.T) {
	store := newStore(t, "alice secret\n")
	var out bytes.Buffer
	io := newTestIOContext("alice\nwrong\nalice\nwrong\nalice\nwrong\n", &out)
	sess := New(1, io)
	coll := &countingCollector{}

	err := Authenticate(sess, store, 3, coll, discardLogger())
	if err == nil {
		t.Fatal("expected authentication to fail after exhausting attempts")
	}
	if !bytes.Contains(out.Bytes(), []byte("login failed")) {
		t.Errorf("expected login failed message, got %q", out.String())
	}
	if bytes.Contains(out.Bytes(), []byte("wrong")) {
		t.Error("password must never be echoed back to the client")
	}
}

func TestAuthenticateNeverLogsPassword(t *testing.T) {
	store := newStore(t, "alice secret\n")
	var out bytes.Buffer
	io := newTestIOContext("alice\nwrongpassword123\nalice\nsecret\n", &out)
	sess := New(1, io)
	coll := &countingCollector{}

	var logBuf bytes.Buffer
	logger := newCapturingLogger(&logBuf)

	if err := Authenticate(sess, store, 3, coll, logger); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if bytes.Contains(logBuf.Bytes(), []byte("wrongpassword123")) {
		t.Error("log output must never contain the attempted password")
	}
	if bytes.Contains(logBuf.Bytes(), []byte("secret")) {
		t.Error("log output must never contain the correct password")
	}
}
