// Package circuit decides when a repeatedly failing dependency should stop
// being trusted. The breaker is two-state and fails open: callers keep
// probing the primary on every operation and serve from a fallback while the
// circuit is open, so recovery is observed directly instead of through a
// half-open probe phase. The verify-verdict cache failover is the consumer.
package circuit

import "sync"

// StateChange reports a transition caused by the recorded outcome. At most
// one of the fields is set; callers use it to log transitions exactly once.
type StateChange struct {
	Opened bool
	Closed bool
}

// Breaker counts consecutive outcomes for one named dependency.
// failAfter consecutive failures open the circuit; closeAfter consecutive
// successes while open close it again.
type Breaker struct {
	name       string
	failAfter  int
	closeAfter int

	mu        sync.Mutex
	open      bool
	failures  int
	successes int
}

type Option func(*Breaker)

// WithFailureThreshold sets how many consecutive failures open the circuit.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failAfter = n
		}
	}
}

// WithSuccessThreshold sets how many consecutive successes close an open
// circuit.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.closeAfter = n
		}
	}
}

// New creates a closed breaker. Defaults: open after 5 consecutive failures,
// close after 3 consecutive successes.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:       name,
		failAfter:  5,
		closeAfter: 3,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name identifies the breaker in logs and metrics.
func (b *Breaker) Name() string {
	return b.name
}

// IsOpen reports whether the dependency is currently distrusted.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// RecordFailure notes a failed operation and returns the transition, if any.
func (b *Breaker) RecordFailure() StateChange {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.successes = 0
	if b.open {
		return StateChange{}
	}

	b.failures++
	if b.failures >= b.failAfter {
		b.open = true
		return StateChange{Opened: true}
	}
	return StateChange{}
}

// RecordSuccess notes a successful operation and returns the transition, if
// any. Successes while closed only reset the failure streak.
func (b *Breaker) RecordSuccess() StateChange {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if !b.open {
		return StateChange{}
	}

	b.successes++
	if b.successes >= b.closeAfter {
		b.open = false
		b.successes = 0
		return StateChange{Closed: true}
	}
	return StateChange{}
}
