// Package circuit implements a consecutive-failure circuit breaker used to
// stop hammering upstream sources that are known to be down.
package circuit

import (
	"sync"
	"time"
)

// State is the breaker position.
type State int

const (
	StateClosed State = iota
	StateOpen
)

func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

// Change reports a transition caused by the last recorded outcome.
type Change struct {
	Opened bool
	Closed bool
}

// Breaker opens after a run of consecutive failures. While open it refuses
// calls until the cooldown elapses, then admits trial calls; the first
// success closes it.
type Breaker struct {
	mu sync.Mutex

	name      string
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	state    State
	failures int
	openedAt time.Time
}

type Option func(*Breaker)

func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.threshold = n
		}
	}
}

// WithCooldown lets Allow admit trial calls once the breaker has been open
// for d. Zero keeps the breaker shut until a success is recorded.
func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) {
		b.cooldown = d
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		b.now = now
	}
}

// New returns a closed breaker that opens after 5 consecutive failures.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:      name,
		threshold: 5,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name identifies the guarded upstream in logs.
func (b *Breaker) Name() string {
	return b.name
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) IsOpen() bool {
	return b.State() == StateOpen
}

// Allow reports whether a call should be attempted.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateClosed {
		return true
	}
	return b.cooldown > 0 && b.now().Sub(b.openedAt) >= b.cooldown
}

// RecordFailure counts a failure. A failed trial call restarts the cooldown.
func (b *Breaker) RecordFailure() Change {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		b.openedAt = b.now()
		return Change{}
	}
	b.failures++
	if b.failures < b.threshold {
		return Change{}
	}
	b.state = StateOpen
	b.openedAt = b.now()
	return Change{Opened: true}
}

// RecordSuccess clears the failure run and closes an open breaker.
func (b *Breaker) RecordSuccess() Change {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state == StateClosed {
		return Change{}
	}
	b.state = StateClosed
	b.openedAt = time.Time{}
	return Change{Closed: true}
}
