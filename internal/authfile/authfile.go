// Package authfile persists the peer-slug to shared-secret token mapping as
// a flat JSON object, the same on-disk contract the protocol has always
// used.
package authfile

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	// ErrNoPath means the store was created without a backing file, so
	// AddAuth mutated memory only.
	ErrNoPath = errors.New("no auth file path configured")
	// ErrNotFound means the auth file does not exist.
	ErrNotFound = errors.New("auth file not found")
)

// Store holds the slug→token mapping. Reads are concurrent; writes replace
// the mapping under lock so readers never observe a torn state.
type Store struct {
	mu     sync.RWMutex
	path   string
	tokens map[string]string
	log    *log.Logger
}

// New returns an empty in-memory store with no backing file.
func New(logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{tokens: make(map[string]string), log: logger.With("component", "authfile")}
}

// Load reads the mapping from path. A missing file yields ErrNotFound;
// malformed JSON is surfaced as a typed decode error, never swallowed.
func Load(path string, logger *log.Logger) (*Store, error) {
	s := New(logger)
	s.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read auth file: %w", err)
	}

	tokens := make(map[string]string)
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("parse auth file %s: %w", path, err)
	}
	s.tokens = tokens
	return s, nil
}

// LoadOrEmpty is Load, but a missing file yields an empty store bound to
// path instead of an error. Used at daemon startup where the file is
// optional.
func LoadOrEmpty(path string, logger *log.Logger) (*Store, error) {
	s, err := Load(path, logger)
	if errors.Is(err, ErrNotFound) {
		s = New(logger)
		s.path = path
		return s, nil
	}
	return s, err
}

// Len returns the number of configured peers.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

// Empty reports whether no peer tokens are configured.
func (s *Store) Empty() bool { return s == nil || s.Len() == 0 }

// Token returns the shared secret for a peer slug.
func (s *Store) Token(slug string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.tokens[slug]
	return token, ok
}

// Slugs returns all configured peer slugs.
func (s *Store) Slugs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slugs := make([]string, 0, len(s.tokens))
	for slug := range s.tokens {
		slugs = append(slugs, slug)
	}
	return slugs
}

// MatchToken scans for a peer whose token equals the candidate and returns
// its slug. Comparison is exact and case-sensitive; each candidate is
// compared in constant time so a match is not timing-distinguishable.
func (s *Store) MatchToken(candidate string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for slug, token := range s.tokens {
		if len(token) == len(candidate) &&
			subtle.ConstantTimeCompare([]byte(token), []byte(candidate)) == 1 {
			return slug, true
		}
	}
	return "", false
}

// AddAuth records a peer token. When a backing path is known the file is
// rewritten immediately; otherwise the change is memory-only and a warning
// is logged, with ErrNoPath returned so callers can tell.
func (s *Store) AddAuth(slug, token string) error {
	s.mu.Lock()
	s.tokens[slug] = token
	path := s.path
	snapshot := make(map[string]string, len(s.tokens))
	for k, v := range s.tokens {
		snapshot[k] = v
	}
	s.mu.Unlock()

	if path == "" {
		s.log.Warn("auth store has no backing file; token held in memory only", "slug", slug)
		return ErrNoPath
	}
	if err := writeAtomic(path, snapshot); err != nil {
		return fmt.Errorf("persist auth file: %w", err)
	}
	return nil
}

// writeAtomic writes the mapping to a temp file in the target directory and
// renames it into place.
func writeAtomic(path string, tokens map[string]string) error {
	data, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
