package httpapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bumpkit/sblp/internal/auth"
	"github.com/bumpkit/sblp/internal/metrics"
	"github.com/bumpkit/sblp/internal/model"
	"github.com/bumpkit/sblp/internal/rate"
	"github.com/bumpkit/sblp/internal/sblp"
)

// Server is the inbound transport adapter. It owns wire concerns only:
// body decoding, header parsing, status mapping. All protocol decisions
// live in the orchestrator it holds by reference.
type Server struct {
	orch    *sblp.Orchestrator
	limiter *rate.Limiter
	metrics *metrics.Metrics
	log     *log.Logger
}

func NewServer(orch *sblp.Orchestrator, limiter *rate.Limiter, m *metrics.Metrics, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{orch: orch, limiter: limiter, metrics: m, log: logger.With("component", "http")}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/", "/sblp":
		// Health probes.
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case "/sblp/request":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.handleBumpRequest(w, r)
	case "/metrics":
		if s.metrics == nil {
			notFound(w)
			return
		}
		promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	default:
		notFound(w)
	}
}

func (s *Server) handleBumpRequest(w http.ResponseWriter, r *http.Request) {
	origin := clientIP(r)

	if !s.limiter.Allow(origin) {
		writeRateLimit(w)
		return
	}

	var body model.BumpRequest
	if err := readJSON(r.Body, &body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	maxWait := parseMaxWait(r.Header.Get("maxwait"))
	result := s.orch.Handle(r.Context(), body, r.Header.Get("Authorization"), origin, maxWait)

	switch result.State {
	case sblp.StateNotReady:
		writeJSON(w, http.StatusServiceUnavailable, model.StatusResponse{
			Status:  http.StatusServiceUnavailable,
			Message: "Bot is not ready yet, please try again in a few seconds.",
		})
	case sblp.StateAuthRejected:
		status := http.StatusUnauthorized
		if result.Reason == auth.ReasonNotConfigured {
			status = http.StatusNotImplemented
		}
		writeJSON(w, status, model.StatusResponse{
			Status:  status,
			Message: authMessage(result.Reason),
		})
	case sblp.StateMalformed:
		writeError(w, http.StatusBadRequest, result.Err)
	case sblp.StateOnCooldown:
		writeJSON(w, http.StatusTooManyRequests, model.CooldownResponse{
			Status:   http.StatusTooManyRequests,
			Message:  "On cooldown!",
			Code:     model.CodeCooldown,
			NextBump: result.Remaining,
		})
	case sblp.StateFinished:
		resp := model.NewBumpFinished(s.orch.CooldownMs(),
			fmt.Sprintf("%s has successfully bumped.", s.orch.BotUsername()))
		resp.Amount = result.Amount
		writeJSON(w, http.StatusOK, resp)
	case sblp.StateTimedOut:
		s.writeTimeout(w, r, maxWait)
	default:
		resp := model.NewBumpError(model.CodeOther, 0,
			fmt.Sprintf("Internal Error: %v", result.Err))
		resp.Status = http.StatusInternalServerError
		writeJSON(w, http.StatusInternalServerError, resp)
	}
}

// writeTimeout reports an expired handler as plain text. A caller that
// insists on JSON gets 417: the computed result has no JSON shape, since a
// timed-out bump is indeterminate rather than failed.
func (s *Server) writeTimeout(w http.ResponseWriter, r *http.Request, maxWait time.Duration) {
	msg := fmt.Sprintf("bump handler did not finish within %s; the outcome is indeterminate", maxWait)
	if wantsJSON(r) {
		writeError(w, http.StatusExpectationFailed, errors.New(msg))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusGatewayTimeout)
	fmt.Fprintln(w, msg)
}

func authMessage(reason auth.Reason) string {
	switch reason {
	case auth.ReasonNotConfigured:
		return "Authentication is required but this bot has no tokens configured."
	case auth.ReasonMissingHeader:
		return "Missing Authorization header."
	default:
		return "Invalid authorization token."
	}
}

// parseMaxWait reads the maxwait header, whole seconds. Missing or
// non-numeric values fall back to the configured default.
func parseMaxWait(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// readJSON decodes without DisallowUnknownFields: peers legitimately send
// extra fields such as the originating message id.
func readJSON(body io.ReadCloser, dest any) error {
	defer body.Close()
	return json.NewDecoder(body).Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeRateLimit(w http.ResponseWriter) {
	w.Header().Set("Retry-After", "1")
	writeJSON(w, http.StatusTooManyRequests, map[string]any{
		"error": "rate limit exceeded",
	})
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, errors.New("not found"))
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}
