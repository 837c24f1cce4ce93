// Package ratelimit tracks per-scope command usage in fixed windows.
//
// A bucket is keyed by (command, scope id). It counts usages from the moment
// it was created and rolls over to a fresh window once the policy duration has
// elapsed. Buckets are created lazily and evicted by Sweep once expired.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Scope selects which id a policy counts usages against.
type Scope int

const (
	ScopeUser Scope = iota
	ScopeChannel
	ScopeGuild
)

func (s Scope) String() string {
	switch s {
	case ScopeChannel:
		return "channel"
	case ScopeGuild:
		return "guild"
	default:
		return "user"
	}
}

// ParseScope maps "user", "channel" and "guild" to a Scope. Anything else is
// treated as user scope.
func ParseScope(s string) Scope {
	switch s {
	case "channel":
		return ScopeChannel
	case "guild":
		return ScopeGuild
	default:
		return ScopeUser
	}
}

// Policy is a command's rate limit: at most Limit uses per Duration per scope.
type Policy struct {
	Scope    Scope
	Limit    int
	Duration time.Duration
}

// Subject is the part of an invocation a scope id is derived from.
type Subject interface {
	AuthorID() string
	ChannelID() string
	GuildID() string
	InDM() bool
}

// ScopeID returns the id usages are counted against for the given scope.
// Guild scope falls back to the channel id for direct messages.
func ScopeID(scope Scope, s Subject) string {
	switch scope {
	case ScopeGuild:
		if s.InDM() {
			return s.ChannelID()
		}
		return s.GuildID()
	case ScopeChannel:
		return s.ChannelID()
	default:
		return s.AuthorID()
	}
}

// Bucket is the usage counter for one (command, scope id) window.
type Bucket struct {
	Usages int
	Start  time.Time
}

// Decision is the result of Admit. Bucket is a copy taken after the decision.
type Decision struct {
	Admitted  bool
	Bucket    Bucket
	Remaining time.Duration
}

type key struct {
	command string
	scope   string
}

type entry struct {
	Bucket
	duration time.Duration
}

// Limiter holds every bucket. Safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[key]*entry
	now     func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New returns an empty Limiter.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		buckets: make(map[key]*entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Admit records one use of command in scopeID if the policy allows it.
// The check and the increment happen under the same lock, so two concurrent
// callers can never both take the last slot. A rejected call leaves the
// bucket untouched.
func (l *Limiter) Admit(command string, p Policy, scopeID string) Decision {
	now := l.now()
	k := key{command: command, scope: scopeID}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.buckets[k]
	if !ok {
		e = &entry{Bucket: Bucket{Start: now}, duration: p.Duration}
		l.buckets[k] = e
	}
	e.duration = p.Duration

	if now.Sub(e.Start) >= p.Duration {
		e.Usages = 0
		e.Start = now
	}

	if e.Usages+1 > p.Limit {
		return Decision{
			Admitted:  false,
			Bucket:    e.Bucket,
			Remaining: e.Start.Add(p.Duration).Sub(now),
		}
	}

	e.Usages++
	return Decision{Admitted: true, Bucket: e.Bucket}
}

// Peek returns the current bucket without modifying it.
func (l *Limiter) Peek(command, scopeID string) (Bucket, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.buckets[key{command: command, scope: scopeID}]
	if !ok {
		return Bucket{}, false
	}
	return e.Bucket, true
}

// Sweep drops buckets whose window has elapsed and returns how many it removed.
func (l *Limiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for k, e := range l.buckets {
		if now.Sub(e.Start) >= e.duration {
			delete(l.buckets, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of live buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Reset forgets every bucket.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets = make(map[key]*entry)
}

// RunJanitor calls Sweep every interval until ctx is done.
func (l *Limiter) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
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
