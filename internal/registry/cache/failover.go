package cache

import (
	"context"
	"log/slog"

	"docseal/internal/registry/models"
	"docseal/pkg/platform/circuit"
)

// fallibleCache is the error-aware surface Failover needs from its primary.
type fallibleCache interface {
	get(ctx context.Context, commitment models.Commitment, hash models.Hash) (bool, bool, error)
	set(ctx context.Context, commitment models.Commitment, hash models.Hash, valid bool) error
	invalidate(ctx context.Context, commitment models.Commitment) error
}

// Failover serves verdicts from a shared primary cache and degrades to an
// in-process fallback when the primary fails repeatedly. The primary is
// still attempted on every read so the circuit closes again on recovery.
// Writes and invalidations go to both caches; invalidation failures on the
// primary are surfaced to the breaker like any other failure.
type Failover struct {
	primary  fallibleCache
	fallback *Memory
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

// NewFailover wraps a primary cache with an in-process fallback.
func NewFailover(primary *Redis, fallback *Memory, logger *slog.Logger) *Failover {
	return newFailover(primary, fallback, logger)
}

func newFailover(primary fallibleCache, fallback *Memory, logger *slog.Logger) *Failover {
	return &Failover{
		primary:  primary,
		fallback: fallback,
		breaker:  circuit.New("verify-cache"),
		logger:   logger,
	}
}

func (f *Failover) Get(ctx context.Context, commitment models.Commitment, hash models.Hash) (bool, bool) {
	valid, ok, err := f.primary.get(ctx, commitment, hash)
	if err != nil {
		f.recordFailure(err)
		return f.fallback.Get(ctx, commitment, hash)
	}
	f.recordSuccess()
	return valid, ok
}

func (f *Failover) Set(ctx context.Context, commitment models.Commitment, hash models.Hash, valid bool) {
	if err := f.primary.set(ctx, commitment, hash, valid); err != nil {
		f.recordFailure(err)
	} else {
		f.recordSuccess()
	}
	f.fallback.Set(ctx, commitment, hash, valid)
}

func (f *Failover) Invalidate(ctx context.Context, commitment models.Commitment) {
	if err := f.primary.invalidate(ctx, commitment); err != nil {
		f.recordFailure(err)
	} else {
		f.recordSuccess()
	}
	f.fallback.Invalidate(ctx, commitment)
}

// Degraded reports whether the primary is currently distrusted.
func (f *Failover) Degraded() bool {
	return f.breaker.IsOpen()
}

func (f *Failover) recordFailure(err error) {
	if f.breaker.RecordFailure().Opened {
		f.logger.Warn("verify cache degraded to in-process fallback",
			"breaker", f.breaker.Name(),
			"error", err)
	}
}

func (f *Failover) recordSuccess() {
	if f.breaker.RecordSuccess().Closed {
		f.logger.Info("verify cache primary recovered",
			"breaker", f.breaker.Name())
	}
}

var _ VerifyCache = (*Failover)(nil)
