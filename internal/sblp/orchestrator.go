// Package sblp is the request-handling core: one entry point that a
// transport adapter calls per inbound bump request, composing
// authentication, cooldown gating, identifier resolution and dispatch.
package sblp

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bumpkit/sblp/internal/auth"
	"github.com/bumpkit/sblp/internal/bot"
	"github.com/bumpkit/sblp/internal/cooldown"
	"github.com/bumpkit/sblp/internal/dispatch"
	"github.com/bumpkit/sblp/internal/metrics"
	"github.com/bumpkit/sblp/internal/model"
	"github.com/bumpkit/sblp/internal/resolve"
	"github.com/bumpkit/sblp/internal/store"
)

// Version of the SBLP implementation, advertised in the outbound
// User-Agent.
const Version = "0.1.0"

// State is the terminal state of one request. The state machine is linear
// and evaluated in strict order; the first applicable state wins.
type State int

const (
	StateNotReady State = iota
	StateAuthRejected
	StateMalformed
	StateOnCooldown
	StateFinished
	StateFailed
	StateTimedOut
)

// Result is what the transport renders into a wire response.
type Result struct {
	State State
	// Amount is the handler-reported bump count on StateFinished, -1 when
	// unspecified.
	Amount int
	// Remaining is the cooldown left in seconds on StateOnCooldown.
	Remaining int
	// Reason is set on StateAuthRejected.
	Reason auth.Reason
	// Err carries the failure on StateMalformed and StateFailed.
	Err error
}

// Orchestrator wires the components together. It is constructed once and
// handed to the transport by reference; there is no ambient global lookup.
type Orchestrator struct {
	bot        bot.Bot
	auth       *auth.Service
	cooldowns  *cooldown.Tracker
	dispatcher *dispatch.Dispatcher
	handler    dispatch.Ref
	cooldownMs int64
	maxWait    time.Duration
	history    store.Store
	metrics    *metrics.Metrics
	log        *log.Logger
}

// Options configures an Orchestrator. Bot, Tracker, Dispatcher, Auth and
// Handler are required; History and Metrics are optional.
type Options struct {
	Bot        bot.Bot
	Auth       *auth.Service
	Cooldowns  *cooldown.Tracker
	Dispatcher *dispatch.Dispatcher
	Handler    dispatch.Ref
	// CooldownMs is the flat cooldown reported to callers and counted
	// down per channel.
	CooldownMs int64
	// MaxWait bounds handler invocations when the request carries no
	// override.
	MaxWait time.Duration
	History store.Store
	Metrics *metrics.Metrics
	Logger  *log.Logger
}

func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	maxWait := opts.MaxWait
	if maxWait <= 0 {
		maxWait = dispatch.DefaultTimeout
	}
	return &Orchestrator{
		bot:        opts.Bot,
		auth:       opts.Auth,
		cooldowns:  opts.Cooldowns,
		dispatcher: opts.Dispatcher,
		handler:    opts.Handler,
		cooldownMs: opts.CooldownMs,
		maxWait:    maxWait,
		history:    opts.History,
		metrics:    opts.Metrics,
		log:        logger.With("component", "sblp"),
	}
}

// CooldownMs returns the configured flat cooldown in milliseconds.
func (o *Orchestrator) CooldownMs() int64 { return o.cooldownMs }

// BotUsername names the backing bot for response messages.
func (o *Orchestrator) BotUsername() string { return o.bot.Username() }

// Handle runs the state machine for one inbound request. maxWait <= 0
// falls back to the configured default.
func (o *Orchestrator) Handle(ctx context.Context, raw model.BumpRequest, authHeader, origin string, maxWait time.Duration) Result {
	if !o.bot.Ready() {
		o.count(metrics.OutcomeNotReady)
		return Result{State: StateNotReady}
	}

	if res := o.auth.Authenticate(authHeader, origin); !res.OK {
		o.count(metrics.OutcomeRejected)
		if o.metrics != nil {
			o.metrics.AuthRejections.WithLabelValues(string(res.Reason)).Inc()
		}
		return Result{State: StateAuthRejected, Reason: res.Reason}
	}

	// Identifiers are validated before the cooldown table is touched so a
	// malformed request leaves no state behind.
	ids, err := resolve.ParseIDs(raw)
	if err != nil {
		o.count(metrics.OutcomeMalformed)
		return Result{State: StateMalformed, Err: err}
	}

	seconds := cooldownSeconds(o.cooldownMs)
	if !o.cooldowns.TryAcquire(ids.Channel, seconds) {
		remaining, _ := o.cooldowns.Remaining(ids.Channel)
		o.count(metrics.OutcomeCooldown)
		return Result{State: StateOnCooldown, Remaining: remaining}
	}
	// The countdown belongs to the channel, not to this request: it keeps
	// running if the request below times out or is cancelled.
	go o.cooldowns.RunCountdown(ids.Channel, seconds)

	resolved := resolve.Upgrade(ids, o.bot)
	o.bot.Dispatch(bot.EventRequestStart, resolved)
	o.log.Info("bump request accepted",
		"origin", origin, "guild", ids.Guild, "channel", ids.Channel,
		"user", ids.User, "valid", resolved.Valid())

	if maxWait <= 0 {
		maxWait = o.maxWait
	}
	outcome := o.dispatcher.Dispatch(ctx, resolved, o.handler, o.bot, maxWait)

	switch outcome.Kind {
	case dispatch.Finished:
		o.count(metrics.OutcomeFinished)
		o.bot.Dispatch(bot.EventRequestFinished, resolved, outcome.Amount)
		o.record(ids, outcome.Amount, origin)
		return Result{State: StateFinished, Amount: outcome.Amount}
	case dispatch.TimedOut:
		o.count(metrics.OutcomeTimeout)
		o.bot.Dispatch(bot.EventRequestFailed, resolved, outcome.Err)
		return Result{State: StateTimedOut, Err: outcome.Err}
	default:
		o.count(metrics.OutcomeFailed)
		o.bot.Dispatch(bot.EventRequestFailed, resolved, outcome.Err)
		return Result{State: StateFailed, Err: outcome.Err}
	}
}

func (o *Orchestrator) count(outcome string) {
	if o.metrics != nil {
		o.metrics.Requests.WithLabelValues(outcome).Inc()
	}
}

// record persists a finished bump. History is best-effort; a write failure
// is logged, never surfaced to the peer.
func (o *Orchestrator) record(ids resolve.Snowflakes, amount int, origin string) {
	if o.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := o.history.RecordBump(ctx, model.BumpRecord{
		Guild:     ids.Guild,
		Channel:   ids.Channel,
		User:      ids.User,
		Amount:    amount,
		Origin:    origin,
		CreatedAt: time.Now(),
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		o.log.Error("failed to record bump", "channel", ids.Channel, "err", err)
	}
}

func cooldownSeconds(ms int64) int {
	if ms <= 0 {
		return 0
	}
	return int((ms + 999) / 1000)
}
