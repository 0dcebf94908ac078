// Package service implements the registry client: first issuance, hash
// rotation, and verification against the external ledger. All input
// validation happens here before any ledger call, and ledger sentinel
// errors are translated to domain errors exactly once.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"docseal/internal/audit"
	"docseal/internal/registry/cache"
	"docseal/internal/registry/ledger"
	"docseal/internal/registry/metrics"
	"docseal/internal/registry/models"
	"docseal/internal/sentinel"
	dErrors "docseal/pkg/domain-errors"
	platformsync "docseal/pkg/platform/sync"
)

const (
	defaultCallTimeout = 10 * time.Second
	defaultMaxRetries  = 3
	retryBaseDelay     = 200 * time.Millisecond

	opStoreInitial = "store_initial"
	opUpdate       = "update"
	opVerify       = "verify"

	outcomeOK        = "ok"
	outcomeDuplicate = "duplicate"
	outcomeNotFound  = "not_found"
	outcomeError     = "error"

	verifyValid   = "valid"
	verifyInvalid = "invalid"
)

type Option func(*Service)

// Service coordinates writes and reads against the ledger. Writes to the
// same commitment are serialized through a per-commitment lock so two
// authorities cannot interleave an append and a replace.
type Service struct {
	ledger  ledger.Ledger
	cache   cache.VerifyCache
	auditor audit.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger

	callTimeout time.Duration
	maxRetries  int

	// writeLocks serializes writes per commitment so two authorities cannot
	// interleave an append and a replace on the same identity.
	writeLocks *platformsync.ShardedMutex
}

func NewService(l ledger.Ledger, auditor audit.Publisher, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		ledger:      l,
		auditor:     auditor,
		logger:      logger,
		callTimeout: defaultCallTimeout,
		maxRetries:  defaultMaxRetries,
		writeLocks:  platformsync.NewShardedMutex(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.callTimeout <= 0 {
		svc.callTimeout = defaultCallTimeout
	}
	if svc.maxRetries < 0 {
		svc.maxRetries = defaultMaxRetries
	}
	return svc
}

// WithCache sets the verify read cache.
func WithCache(c cache.VerifyCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithCallTimeout bounds each ledger call. Every retry gets a fresh timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.callTimeout = d
		}
	}
}

// WithMaxRetries configures how many times a transiently failing ledger
// call is retried.
func WithMaxRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// StoreInitial records the first hash for an identity. It fails with
// CodeDuplicate if any hash already exists for the commitment, leaving the
// ledger untouched.
func (s *Service) StoreInitial(ctx context.Context, identityID, hashHex, actor string) (*models.WriteResponse, error) {
	commitment, err := models.ParseCommitment(identityID)
	if err != nil {
		return nil, err
	}
	hash, err := models.ParseHash(hashHex)
	if err != nil {
		return nil, err
	}

	s.writeLocks.Lock(commitment.String())
	defer s.writeLocks.Unlock(commitment.String())

	receipt, err := s.writeWithRetry(ctx, opStoreInitial, func(ctx context.Context) (ledger.Receipt, error) {
		return s.ledger.Append(ctx, commitment, hash)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrDuplicate) {
			s.recordWrite(opStoreInitial, outcomeDuplicate)
			return nil, dErrors.New(dErrors.CodeDuplicate, "hash already exists for this identity")
		}
		s.recordWrite(opStoreInitial, outcomeError)
		return nil, s.classifyLedgerError(err, "store initial hash")
	}

	s.afterWrite(ctx, audit.ActionStoreInitial, commitment, actor, receipt)
	s.recordWrite(opStoreInitial, outcomeOK)
	s.logger.InfoContext(ctx, "initial hash stored",
		"commitment", commitment.String(),
		"tx_hash", receipt.TxHash,
		"block", receipt.BlockNumber)

	return &models.WriteResponse{Success: true, TxHash: receipt.TxHash, BlockNumber: receipt.BlockNumber}, nil
}

// Update replaces the identity's current hash. The superseded hash stops
// verifying as soon as the ledger confirms the write.
func (s *Service) Update(ctx context.Context, identityID, newHashHex, actor string) (*models.WriteResponse, error) {
	commitment, err := models.ParseCommitment(identityID)
	if err != nil {
		return nil, err
	}
	hash, err := models.ParseHash(newHashHex)
	if err != nil {
		return nil, err
	}

	s.writeLocks.Lock(commitment.String())
	defer s.writeLocks.Unlock(commitment.String())

	receipt, err := s.writeWithRetry(ctx, opUpdate, func(ctx context.Context) (ledger.Receipt, error) {
		return s.ledger.Replace(ctx, commitment, hash)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.recordWrite(opUpdate, outcomeNotFound)
			return nil, dErrors.New(dErrors.CodeNotFound, "no hash stored for this identity")
		}
		s.recordWrite(opUpdate, outcomeError)
		return nil, s.classifyLedgerError(err, "update hash")
	}

	s.afterWrite(ctx, audit.ActionUpdateHash, commitment, actor, receipt)
	s.recordWrite(opUpdate, outcomeOK)
	s.logger.InfoContext(ctx, "hash updated",
		"commitment", commitment.String(),
		"tx_hash", receipt.TxHash,
		"block", receipt.BlockNumber)

	return &models.WriteResponse{Success: true, TxHash: receipt.TxHash, BlockNumber: receipt.BlockNumber}, nil
}

// Verify reports whether hash is the identity's current hash. A commitment
// with no entry, a superseded hash, and a never-stored hash are all simply
// invalid, not errors.
func (s *Service) Verify(ctx context.Context, identityID, hashHex string) (*models.VerifyResponse, error) {
	commitment, err := models.ParseCommitment(identityID)
	if err != nil {
		return nil, err
	}
	hash, err := models.ParseHash(hashHex)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if valid, ok := s.cache.Get(ctx, commitment, hash); ok {
			s.recordCacheHit()
			s.recordVerifyOutcome(valid)
			return &models.VerifyResponse{Success: true, Valid: valid}, nil
		}
		s.recordCacheMiss()
	}

	current, err := s.readWithRetry(ctx, opVerify, commitment)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			if s.cache != nil {
				s.cache.Set(ctx, commitment, hash, false)
			}
			s.recordVerifyOutcome(false)
			return &models.VerifyResponse{Success: true, Valid: false}, nil
		}
		if s.metrics != nil {
			s.metrics.RecordVerify(outcomeError)
		}
		return nil, s.classifyLedgerError(err, "verify hash")
	}

	valid := current == hash
	if s.cache != nil {
		s.cache.Set(ctx, commitment, hash, valid)
	}
	s.recordVerifyOutcome(valid)
	return &models.VerifyResponse{Success: true, Valid: valid}, nil
}

// writeWithRetry runs a ledger write, retrying only transient failures.
// Duplicate, not-found, and reverted outcomes are definitive and returned
// immediately.
func (s *Service) writeWithRetry(ctx context.Context, op string, call func(context.Context) (ledger.Receipt, error)) (ledger.Receipt, error) {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			if err := s.backoff(ctx, attempt); err != nil {
				return ledger.Receipt{}, err
			}
			if s.metrics != nil {
				s.metrics.RecordRetry(op)
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		start := time.Now()
		receipt, err := call(callCtx)
		cancel()
		if s.metrics != nil {
			s.metrics.ObserveLedgerCall(op, time.Since(start).Seconds())
		}

		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, sentinel.ErrUnavailable) {
			return ledger.Receipt{}, err
		}
		lastErr = err
		s.logger.WarnContext(ctx, "ledger call failed, will retry",
			"operation", op,
			"attempt", attempt+1,
			"error", err)
	}
	return ledger.Receipt{}, lastErr
}

func (s *Service) readWithRetry(ctx context.Context, op string, commitment models.Commitment) (models.Hash, error) {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			if err := s.backoff(ctx, attempt); err != nil {
				return "", err
			}
			if s.metrics != nil {
				s.metrics.RecordRetry(op)
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		start := time.Now()
		current, err := s.ledger.Current(callCtx, commitment)
		cancel()
		if s.metrics != nil {
			s.metrics.ObserveLedgerCall(op, time.Since(start).Seconds())
		}

		if err == nil {
			return current, nil
		}
		if !errors.Is(err, sentinel.ErrUnavailable) {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}

// backoff waits 200ms, 400ms, 800ms... between attempts, honoring
// context cancellation.
func (s *Service) backoff(ctx context.Context, attempt int) error {
	delay := retryBaseDelay << (attempt - 1)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "ledger call abandoned")
	case <-timer.C:
		return nil
	}
}

func (s *Service) classifyLedgerError(err error, action string) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeChain, "registry unavailable: "+action)
	case errors.Is(err, sentinel.ErrReverted):
		return dErrors.Wrap(err, dErrors.CodeChain, "registry rejected transaction: "+action)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+action)
	}
}

// afterWrite invalidates cached verdicts for the commitment and records the
// audit event. Neither failure mode rolls back the confirmed write.
func (s *Service) afterWrite(ctx context.Context, action string, commitment models.Commitment, actor string, receipt ledger.Receipt) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, commitment)
	}
	event := audit.NewEvent(action, commitment.String(), actor, receipt.TxHash, receipt.BlockNumber)
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", action,
			"commitment", commitment.String(),
			"error", err)
	}
}

func (s *Service) recordWrite(op, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordWrite(op, outcome)
	}
}

func (s *Service) recordVerifyOutcome(valid bool) {
	if s.metrics == nil {
		return
	}
	if valid {
		s.metrics.RecordVerify(verifyValid)
	} else {
		s.metrics.RecordVerify(verifyInvalid)
	}
}

func (s *Service) recordCacheHit() {
	if s.metrics != nil {
		s.metrics.RecordCacheHit()
	}
}

func (s *Service) recordCacheMiss() {
	if s.metrics != nil {
		s.metrics.RecordCacheMiss()
	}
}
