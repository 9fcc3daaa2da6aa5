// Package cooldown tracks per-channel countdowns. A channel present in the
// table rejects new bump requests; absence means eligible. This is a soft,
// in-process lock: it does not survive restarts and does not synchronize
// across instances.
package cooldown

import (
	"sync"
	"time"
)

// Tracker owns the cooldown table. TryAcquire and the countdown loop are
// the only mutators, both under one mutex, so two concurrent requests for
// the same channel can never both insert.
type Tracker struct {
	mu    sync.Mutex
	table map[uint64]int
	tick  time.Duration
}

type Option func(*Tracker)

// WithTick overrides the one-second countdown interval. Tests use this to
// avoid real-time waits.
func WithTick(d time.Duration) Option {
	return func(t *Tracker) { t.tick = d }
}

func New(opts ...Option) *Tracker {
	t := &Tracker{
		table: make(map[uint64]int),
		tick:  time.Second,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// TryAcquire atomically claims the channel for a cooldown of the given
// number of seconds. It returns false if the channel is already cooling
// down; on true the caller is responsible for starting RunCountdown.
func (t *Tracker) TryAcquire(channelID uint64, seconds int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, busy := t.table[channelID]; busy {
		return false
	}
	t.table[channelID] = seconds
	return true
}

// Remaining reports the seconds left on a channel's cooldown.
func (t *Tracker) Remaining(channelID uint64) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	remaining, ok := t.table[channelID]
	return remaining, ok
}

// Release removes a channel's entry. Idempotent; safe to race with the
// countdown's own expiry removal.
func (t *Tracker) Release(channelID uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.table, channelID)
}

// Active returns the number of channels currently cooling down.
func (t *Tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.table)
}

// RunCountdown inserts the channel (if not already claimed) and decrements
// its counter once per tick until it reaches zero, then removes the entry.
// It blocks until done; callers start it in its own goroutine. The loop is
// deliberately detached from any request lifetime: cancelling the request
// that spawned it must not stop the cooldown.
func (t *Tracker) RunCountdown(channelID uint64, seconds int) {
	t.mu.Lock()
	if _, ok := t.table[channelID]; !ok {
		t.table[channelID] = seconds
	}
	t.mu.Unlock()

	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()

	for range ticker.C {
		t.mu.Lock()
		remaining, ok := t.table[channelID]
		if !ok {
			// Released out from under us; nothing left to count down.
			t.mu.Unlock()
			return
		}
		remaining--
		if remaining <= 0 {
			delete(t.table, channelID)
			t.mu.Unlock()
			return
		}
		t.table[channelID] = remaining
		t.mu.Unlock()
	}
}
