package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"docseal/internal/audit"
	"docseal/internal/registry/cache"
	"docseal/internal/registry/ledger"
	"docseal/internal/registry/models"
	"docseal/internal/sentinel"
	dErrors "docseal/pkg/domain-errors"
	"docseal/pkg/testutil"
)

const (
	identityHex = "e3ee8913713e06550399231579a297149ceea238c568acb2d88dbb85e25074f5"
	hashHexA    = "3705bdc2a7ae99d7a2b69963fb767b2d1313f8b04395f67d8e016da886426aa1"
	hashHexB    = "8797969aeaac3aa04a7762427b025aa62343b52a0873bdcc2625832cac414d52"
)

// flakyLedger wraps an inner ledger and fails the first failures calls of
// each operation with the given error.
type flakyLedger struct {
	inner ledger.Ledger
	err   error

	mu           sync.Mutex
	failures     int
	appendCalls  int
	replaceCalls int
	currentCalls int
}

func (f *flakyLedger) Append(ctx context.Context, c models.Commitment, h models.Hash) (ledger.Receipt, error) {
	f.mu.Lock()
	f.appendCalls++
	fail := f.failures > 0
	if fail {
		f.failures--
	}
	f.mu.Unlock()
	if fail {
		return ledger.Receipt{}, f.err
	}
	return f.inner.Append(ctx, c, h)
}

func (f *flakyLedger) Replace(ctx context.Context, c models.Commitment, h models.Hash) (ledger.Receipt, error) {
	f.mu.Lock()
	f.replaceCalls++
	fail := f.failures > 0
	if fail {
		f.failures--
	}
	f.mu.Unlock()
	if fail {
		return ledger.Receipt{}, f.err
	}
	return f.inner.Replace(ctx, c, h)
}

func (f *flakyLedger) Current(ctx context.Context, c models.Commitment) (models.Hash, error) {
	f.mu.Lock()
	f.currentCalls++
	fail := f.failures > 0
	if fail {
		f.failures--
	}
	f.mu.Unlock()
	if fail {
		return "", f.err
	}
	return f.inner.Current(ctx, c)
}

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	ledger  *flakyLedger
	auditor *audit.MemoryPublisher
	svc     *Service
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.ledger = &flakyLedger{inner: ledger.NewMemory(), err: sentinel.ErrUnavailable}
	s.auditor = audit.NewMemoryPublisher()
	s.svc = NewService(s.ledger, s.auditor, slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithCache(cache.NewMemory(time.Minute)),
		WithMaxRetries(2),
	)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) TestStoreInitialSucceeds() {
	resp, err := s.svc.StoreInitial(s.ctx, identityHex, hashHexA, "authority-1")
	s.Require().NoError(err)
	s.True(resp.Success)
	s.NotEmpty(resp.TxHash)
	s.NotZero(resp.BlockNumber)

	events := s.auditor.Events()
	s.Require().Len(events, 1)
	s.Equal(audit.ActionStoreInitial, events[0].Action)
	s.Equal("authority-1", events[0].Actor)
	s.Equal("0x"+identityHex, events[0].Commitment)
}

func (s *ServiceSuite) TestStoreInitialRejectsDuplicate() {
	_, err := s.svc.StoreInitial(s.ctx, identityHex, hashHexA, "authority-1")
	s.Require().NoError(err)

	_, err = s.svc.StoreInitial(s.ctx, identityHex, hashHexB, "authority-1")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicate))

	// Only the first write reaches the audit trail.
	s.Len(s.auditor.Events(), 1)

	// The original hash is untouched.
	resp, err := s.svc.Verify(s.ctx, identityHex, hashHexA)
	s.Require().NoError(err)
	s.True(resp.Valid)
}

func (s *ServiceSuite) TestInvalidHexRejectedBeforeLedger() {
	_, err := s.svc.StoreInitial(s.ctx, "not-hex", hashHexA, "authority-1")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.svc.StoreInitial(s.ctx, identityHex, hashHexA[:40], "authority-1")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	s.Equal(0, s.ledger.appendCalls)
}

func (s *ServiceSuite) TestPrefixAndCaseNormalization() {
	upper := "0x" + "E3EE8913713E06550399231579A297149CEEA238C568ACB2D88DBB85E25074F5"
	_, err := s.svc.StoreInitial(s.ctx, upper, hashHexA, "authority-1")
	s.Require().NoError(err)

	// Bare lowercase resolves to the same commitment.
	resp, err := s.svc.Verify(s.ctx, identityHex, "0X"+hashHexA)
	s.Require().NoError(err)
	s.True(resp.Valid)
}

func (s *ServiceSuite) TestUpdateRequiresExistingEntry() {
	_, err := s.svc.Update(s.ctx, identityHex, hashHexB, "authority-1")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestUpdateSupersedesPreviousHash() {
	_, err := s.svc.StoreInitial(s.ctx, identityHex, hashHexA, "authority-1")
	s.Require().NoError(err)

	// Warm the cache with the old hash.
	resp, err := s.svc.Verify(s.ctx, identityHex, hashHexA)
	s.Require().NoError(err)
	s.True(resp.Valid)

	_, err = s.svc.Update(s.ctx, identityHex, hashHexB, "authority-1")
	s.Require().NoError(err)

	// The write invalidated the cached verdict; the old hash no longer
	// verifies anywhere.
	resp, err = s.svc.Verify(s.ctx, identityHex, hashHexA)
	s.Require().NoError(err)
	s.False(resp.Valid)

	resp, err = s.svc.Verify(s.ctx, identityHex, hashHexB)
	s.Require().NoError(err)
	s.True(resp.Valid)

	s.Len(s.auditor.Events(), 2)
}

func (s *ServiceSuite) TestVerifyUnknownIdentityIsInvalidNotError() {
	resp, err := s.svc.Verify(s.ctx, identityHex, hashHexA)
	s.Require().NoError(err)
	s.True(resp.Success)
	s.False(resp.Valid)
}

func (s *ServiceSuite) TestVerifyServedFromCache() {
	_, err := s.svc.StoreInitial(s.ctx, identityHex, hashHexA, "authority-1")
	s.Require().NoError(err)

	_, err = s.svc.Verify(s.ctx, identityHex, hashHexA)
	s.Require().NoError(err)
	before := s.ledger.currentCalls

	_, err = s.svc.Verify(s.ctx, identityHex, hashHexA)
	s.Require().NoError(err)
	s.Equal(before, s.ledger.currentCalls)
}

func (s *ServiceSuite) TestTransientFailuresAreRetried() {
	s.ledger.failures = 2

	resp, err := s.svc.StoreInitial(s.ctx, identityHex, hashHexA, "authority-1")
	s.Require().NoError(err)
	s.True(resp.Success)
	s.Equal(3, s.ledger.appendCalls)
}

func (s *ServiceSuite) TestExhaustedRetriesSurfaceChainError() {
	s.ledger.failures = 10

	_, err := s.svc.StoreInitial(s.ctx, identityHex, hashHexA, "authority-1")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeChain))
	s.Equal(3, s.ledger.appendCalls) // initial attempt + 2 retries
}

func (s *ServiceSuite) TestRevertedWriteIsNotRetried() {
	s.ledger.err = sentinel.ErrReverted
	s.ledger.failures = 1

	_, err := s.svc.StoreInitial(s.ctx, identityHex, hashHexA, "authority-1")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeChain))
	s.Equal(1, s.ledger.appendCalls)
}

func (s *ServiceSuite) TestConcurrentWritesToSameIdentitySerialize() {
	result := testutil.RunConcurrent(4, func(int) error {
		_, err := s.svc.StoreInitial(s.ctx, identityHex, hashHexA, "authority-1")
		return err
	})

	s.Equal(int32(1), result.Successes)
	s.Equal(int32(3), result.Duplicates)
	s.Equal(int32(0), result.Errors)
}
