// Package auth validates the bearer credential presented by a peer against
// the configured token store.
package auth

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/sha3"

	"github.com/bumpkit/sblp/internal/authfile"
	"github.com/bumpkit/sblp/internal/bot"
)

// Reason explains a rejection.
type Reason string

const (
	ReasonNotConfigured Reason = "NOT_CONFIGURED"
	ReasonMissingHeader Reason = "MISSING_HEADER"
	ReasonInvalidToken  Reason = "INVALID_TOKEN"
)

var (
	ErrNotConfigured = errors.New("authentication required but no tokens configured")
	ErrMissingHeader = errors.New("missing authorization header")
	ErrInvalidToken  = errors.New("invalid authorization token")
)

// Result is the outcome of one authentication attempt. Slug identifies the
// matched peer on accept.
type Result struct {
	OK     bool
	Slug   string
	Reason Reason
}

// Err maps a rejection to its sentinel error.
func (r Result) Err() error {
	switch r.Reason {
	case ReasonNotConfigured:
		return ErrNotConfigured
	case ReasonMissingHeader:
		return ErrMissingHeader
	case ReasonInvalidToken:
		return ErrInvalidToken
	}
	return nil
}

// Service checks inbound credentials. Every rejection is dispatched to the
// event sink with the caller's network origin; this is a notification for
// the bot's observability hooks, not a retry trigger.
type Service struct {
	required bool
	store    *authfile.Store
	events   bot.EventSink
	log      *log.Logger
}

func NewService(store *authfile.Store, required bool, events bot.EventSink, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		required: required,
		store:    store,
		events:   events,
		log:      logger.With("component", "auth"),
	}
}

// Authenticate validates the Authorization header value. An optional
// "Bearer " prefix is stripped before comparison; token equality is exact
// and case-sensitive.
func (s *Service) Authenticate(header, origin string) Result {
	if !s.required {
		return Result{OK: true}
	}
	if s.store.Empty() {
		return s.reject(ReasonNotConfigured, origin, "")
	}
	if strings.TrimSpace(header) == "" {
		return s.reject(ReasonMissingHeader, origin, "")
	}

	token := strings.TrimPrefix(header, "Bearer ")
	slug, ok := s.store.MatchToken(token)
	if !ok {
		return s.reject(ReasonInvalidToken, origin, token)
	}
	return Result{OK: true, Slug: slug}
}

func (s *Service) reject(reason Reason, origin, token string) Result {
	fields := []any{"reason", string(reason), "origin", origin}
	if token != "" {
		fields = append(fields, "token_fp", fingerprint(token))
	}
	s.log.Warn("rejected bump request", fields...)
	if s.events != nil {
		s.events.Dispatch(bot.EventAuthRejected, origin, string(reason))
	}
	return Result{Reason: reason}
}

// fingerprint returns a short digest of a presented token so rejections can
// be correlated in logs without recording the secret itself.
func fingerprint(token string) string {
	sum := sha3.Sum256([]byte(token))
	return hex.EncodeToString(sum[:4])
}
