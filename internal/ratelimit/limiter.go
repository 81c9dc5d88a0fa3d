package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultCapacity = 10000

	LoginMaxAttempts = 5
	LoginWindow      = 15 * time.Minute
	OTPMaxAttempts   = 3
	OTPWindow        = 5 * time.Minute
)

// Store is the attempt counter consulted before an authentication call.
type Store interface {
	Allow(key string) bool
	TimeUntilReset(key string) time.Duration
	Reset(key string)
}

type Options struct {
	MaxAttempts int
	Window      time.Duration
	// Capacity bounds the number of tracked keys.
	Capacity int
	Now      func() time.Time
}

// LoginOptions returns the limits applied to password logins.
func LoginOptions() Options {
	return Options{MaxAttempts: LoginMaxAttempts, Window: LoginWindow}
}

// OTPOptions returns the limits applied to one-time code verification.
func OTPOptions() Options {
	return Options{MaxAttempts: OTPMaxAttempts, Window: OTPWindow}
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 1
	}
	if o.Window <= 0 {
		o.Window = time.Minute
	}
	if o.Capacity <= 0 {
		o.Capacity = DefaultCapacity
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type entry struct {
	count       int
	windowStart time.Time
}

// Limiter is a fixed-window attempt counter keyed by an arbitrary string.
// A refused attempt is not counted.
type Limiter struct {
	mu    sync.Mutex
	opts  Options
	items map[string]entry
}

func New(opts Options) *Limiter {
	opts = opts.withDefaults()
	return &Limiter{
		opts:  opts,
		items: make(map[string]entry),
	}
}

// Allow records an attempt for key and reports whether it is permitted.
func (l *Limiter) Allow(key string) bool {
	now := l.opts.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	curr, ok := l.items[key]
	if !ok || now.Sub(curr.windowStart) > l.opts.Window {
		if !ok && len(l.items) >= l.opts.Capacity {
			l.makeRoom(now)
		}
		l.items[key] = entry{count: 1, windowStart: now}
		return true
	}
	if curr.count >= l.opts.MaxAttempts {
		return false
	}
	curr.count++
	l.items[key] = curr
	return true
}

// TimeUntilReset returns how long until key's window ends, zero for unknown keys.
func (l *Limiter) TimeUntilReset(key string) time.Duration {
	now := l.opts.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	curr, ok := l.items[key]
	if !ok {
		return 0
	}
	remaining := l.opts.Window - now.Sub(curr.windowStart)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset forgets key, typically after a successful authentication.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	delete(l.items, key)
	l.mu.Unlock()
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Sweep drops every entry whose window has elapsed and returns how many went.
func (l *Limiter) Sweep() int {
	now := l.opts.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sweep(now)
}

// Run sweeps every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = l.opts.Window
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

func (l *Limiter) sweep(now time.Time) int {
	removed := 0
	for k, v := range l.items {
		if now.Sub(v.windowStart) > l.opts.Window {
			delete(l.items, k)
			removed++
		}
	}
	return removed
}

// makeRoom must be called with mu held.
func (l *Limiter) makeRoom(now time.Time) {
	if l.sweep(now) > 0 {
		return
	}
	var (
		oldestKey   string
		oldestStart time.Time
		found       bool
	)
	for k, v := range l.items {
		if !found || v.windowStart.Before(oldestStart) {
			oldestKey, oldestStart, found = k, v.windowStart, true
		}
	}
	if found {
		delete(l.items, oldestKey)
	}
}
