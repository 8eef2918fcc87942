// Package credstore implements the credential store: an ordered table of
// username/password records loaded from a flat text file and queried by
// linear scan, matching the wire-visible behavior of the original login
// table (first match wins, case-sensitive, no hashing required).
package credstore

import (
	"bufio"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/7etsuo/shellserve/internal/shellserveerr"
)

const (
	// maxFieldLen is the per-field truncation cap. Overflow past this many
	// bytes is silently discarded.
	maxFieldLen = 255
	// maxRecords bounds the size of the in-memory table.
	maxRecords = 1000
)

// Record is a single username/password entry.
type Record struct {
	Username string
	Password string
	// Hashed is true when Password holds a bcrypt hash rather than a
	// cleartext password.
	Hashed bool
}

// Store holds the loaded credential table and answers verification
// queries against it.
type Store struct {
	mu      sync.RWMutex
	records []Record
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Load reads path and replaces the store's table with the records parsed
// from it. Calling Load again on the same store is idempotent: the
// previous table is discarded, not appended to.
func (s *Store) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return shellserveerr.New(shellserveerr.KindConfig, "credstore.Load", err)
	}
	defer f.Close()

	records := make([]Record, 0, 64)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	for scanner.Scan() {
		if len(records) >= maxRecords {
			break
		}
		line := scanner.Text()
		rec, ok := parseLine(line)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return shellserveerr.New(shellserveerr.KindConfig, "credstore.Load", err)
	}

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()
	return nil
}

// parseLine splits a credential line into a username and password,
// collapsing any run of whitespace between fields and truncating each
// field to maxFieldLen bytes.
func parseLine(line string) (Record, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Record{}, false
	}
	username := truncate(fields[0])
	password := truncate(fields[1])
	if username == "" || password == "" {
		return Record{}, false
	}
	return Record{
		Username: username,
		Password: password,
		Hashed:   looksHashed(password),
	}, true
}

func truncate(s string) string {
	if len(s) <= maxFieldLen {
		return s
	}
	return s[:maxFieldLen]
}

func looksHashed(password string) bool {
	return strings.HasPrefix(password, "$2a$") ||
		strings.HasPrefix(password, "$2b$") ||
		strings.HasPrefix(password, "$2y$")
}

// UsernameAt returns the username stored at index i, and whether i was in
// range.
func (s *Store) UsernameAt(i int) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.records) {
		return "", false
	}
	return s.records[i].Username, true
}

// Len returns the number of loaded records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Verify performs a linear scan for a record matching username and
// password, returning the matching index or -1. Cleartext records are
// compared directly; bcrypt-hashed records are compared with
// bcrypt.CompareHashAndPassword.
func (s *Store) Verify(username, password string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i, r := range s.records {
		if r.Username != username {
			continue
		}
		if r.Hashed {
			if bcrypt.CompareHashAndPassword([]byte(r.Password), []byte(password)) == nil {
				return i
			}
			continue
		}
		if r.Password == password {
			return i
		}
	}
	return -1
}
