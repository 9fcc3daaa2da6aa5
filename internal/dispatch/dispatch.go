// Package dispatch invokes the user-supplied bump handler under a bounded
// timeout and normalizes its outcome. Handler failures stop here; nothing a
// handler does may propagate to the transport layer.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bumpkit/sblp/internal/bot"
	"github.com/bumpkit/sblp/internal/resolve"
)

// ErrHandlerNotFound means a symbolic handler name did not resolve against
// the command registry at call time.
var ErrHandlerNotFound = errors.New("handler not found")

// Handler is the user-supplied bump callback. Its return value becomes the
// response amount when it is an integer; any other value reads as -1,
// "unspecified".
type Handler func(ctx context.Context, req *resolve.ResolvedRequest, b bot.Bot) (any, error)

// Registry looks up named handlers at call time, so a re-registered command
// takes effect without reconfiguring the dispatcher.
type Registry interface {
	Lookup(name string) (Handler, bool)
}

// Ref is a tagged handler reference: either a direct callable or a command
// name resolved through the registry per request. Fn wins when both are
// set.
type Ref struct {
	Fn      Handler
	Command string
}

// Kind tags a dispatch outcome.
type Kind int

const (
	// Finished means the handler returned.
	Finished Kind = iota
	// Failed means the handler returned an error, panicked, or could not
	// be resolved.
	Failed
	// TimedOut means the handler did not return within the deadline. The
	// invocation was cancelled; its side effects are indeterminate.
	TimedOut
)

// Outcome is the normalized result of one dispatch.
type Outcome struct {
	Kind   Kind
	Amount int
	Err    error
}

type Dispatcher struct {
	registry Registry
	log      *log.Logger
}

// DefaultTimeout bounds a handler invocation when the caller supplies none.
const DefaultTimeout = 60 * time.Second

func New(registry Registry, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{registry: registry, log: logger.With("component", "dispatch")}
}

// Dispatch resolves ref, invokes the handler with the resolved request, and
// waits at most timeout for it to return.
func (d *Dispatcher) Dispatch(ctx context.Context, req *resolve.ResolvedRequest, ref Ref, b bot.Bot, timeout time.Duration) Outcome {
	handler, err := d.resolveRef(ref)
	if err != nil {
		d.log.Error("could not resolve bump handler", "command", ref.Command, "err", err)
		return Outcome{Kind: Failed, Amount: -1, Err: err}
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value any
		err   error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("bump handler panicked: %v\n%s", r, debug.Stack())}
			}
		}()
		value, err := handler(ctx, req, b)
		done <- result{value: value, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			d.log.Error("bump handler failed",
				"guild", req.Guild.ID, "channel", req.Channel.ID, "err", res.err)
			return Outcome{Kind: Failed, Amount: -1, Err: res.err}
		}
		return Outcome{Kind: Finished, Amount: amountOf(res.value)}
	case <-ctx.Done():
		// cancel() already signalled the handler; its result, if any, is
		// discarded via the buffered channel.
		d.log.Warn("bump handler timed out",
			"guild", req.Guild.ID, "channel", req.Channel.ID, "timeout", timeout)
		return Outcome{Kind: TimedOut, Amount: -1, Err: ctx.Err()}
	}
}

func (d *Dispatcher) resolveRef(ref Ref) (Handler, error) {
	if ref.Fn != nil {
		return ref.Fn, nil
	}
	if ref.Command == "" {
		return nil, fmt.Errorf("%w: empty handler reference", ErrHandlerNotFound)
	}
	if d.registry == nil {
		return nil, fmt.Errorf("%w: no command registry", ErrHandlerNotFound)
	}
	handler, ok := d.registry.Lookup(strings.ToLower(ref.Command))
	if !ok {
		return nil, fmt.Errorf("%w: command %q", ErrHandlerNotFound, ref.Command)
	}
	return handler, nil
}

// amountOf surfaces integer handler return values as the bump amount.
func amountOf(value any) int {
	switch v := value.(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	default:
		return -1
	}
}

// MapRegistry is a mutable in-memory Registry. Command names are
// case-insensitive.
type MapRegistry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *MapRegistry {
	return &MapRegistry{handlers: make(map[string]Handler)}
}

// Register binds a handler to a name, replacing any previous binding.
func (r *MapRegistry) Register(name string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[strings.ToLower(name)] = handler
}

func (r *MapRegistry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[strings.ToLower(name)]
	return handler, ok
}
