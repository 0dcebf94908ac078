package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"docseal/internal/disclosure"
	"docseal/internal/disclosure/keys"
	"docseal/internal/document"
	"docseal/internal/document/canonical"
	"docseal/internal/identity"
	regmodels "docseal/internal/registry/models"
	"docseal/internal/sentinel"
	"docseal/internal/verifier/models"
	dErrors "docseal/pkg/domain-errors"
)

// stubRegistry answers verify calls from a fixed current-hash map and counts
// how often it is consulted.
type stubRegistry struct {
	mu      sync.Mutex
	current map[string]string // bare commitment hex -> bare hash hex
	calls   int
	err     error
	delay   time.Duration
}

func (r *stubRegistry) Verify(ctx context.Context, identityID, hashHex string) (*regmodels.VerifyResponse, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()

	if r.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "verify abandoned")
		case <-time.After(r.delay):
		}
	}
	if r.err != nil {
		return nil, r.err
	}

	commitment, err := regmodels.ParseCommitment(identityID)
	if err != nil {
		return nil, err
	}
	hash, err := regmodels.ParseHash(hashHex)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.current[commitment.Bare()]
	return &regmodels.VerifyResponse{Success: true, Valid: ok && current == hash.Bare()}, nil
}

func (r *stubRegistry) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type SessionSuite struct {
	suite.Suite
	ctx      context.Context
	registry *stubRegistry
	svc      *Service

	record    *document.Record
	keyPair   keys.Pair
	plain     string
	encrypted string
}

// SetupSuite builds one record and its plain and encrypted transport
// payloads; RSA keygen is slow enough to share across tests.
func (s *SessionSuite) SetupSuite() {
	s.record = &document.Record{
		Kind: document.KindIdentityCard,
		Fields: map[string]string{
			"idNumber":    "912345678V",
			"fullName":    "John Doe",
			"dateOfBirth": "1991-02-03",
			"issuedDate":  "2020-01-01",
		},
	}
	canonical.Stamp(s.record)

	pair, err := keys.GenerateKeyPair()
	s.Require().NoError(err)
	s.keyPair = pair

	plain, err := disclosure.Encode(s.record, []string{"idNumber", "fullName"}, nil)
	s.Require().NoError(err)
	s.plain = plain

	pub, err := keys.ParsePublicKey(pair.PublicKeyPEM)
	s.Require().NoError(err)
	encrypted, err := disclosure.Encode(s.record, []string{"idNumber", "fullName"}, pub)
	s.Require().NoError(err)
	s.encrypted = encrypted
}

func (s *SessionSuite) SetupTest() {
	s.ctx = context.Background()

	commitment, err := identity.Commit(s.record.NaturalID())
	s.Require().NoError(err)

	s.registry = &stubRegistry{current: map[string]string{commitment: s.record.Fingerprint}}
	s.svc = NewService(s.registry, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) TestGarbageLandsInDecodeError() {
	sess := s.svc.Begin(s.ctx, "!!!not-base64url!!!")
	snap := sess.Result()
	s.Equal(models.StateDecodeError, snap.State)
	s.Empty(snap.Fields)

	// Terminal: a verify attempt changes nothing.
	snap = s.svc.Verify(s.ctx, sess)
	s.Equal(models.StateDecodeError, snap.State)
	s.Equal(0, s.registry.callCount())
}

func (s *SessionSuite) TestPlainPayloadVerifies() {
	sess := s.svc.Begin(s.ctx, s.plain)
	s.Equal(models.StatePlain, sess.Result().State)

	snap := s.svc.Verify(s.ctx, sess)
	s.Equal(models.StateVerified, snap.State)
	s.True(snap.Valid)
	s.Equal("John Doe", snap.Fields["fullName"])
	s.Equal(s.record.Fingerprint, snap.Hash)
}

func (s *SessionSuite) TestSupersededHashIsUnverified() {
	s.registry.current = map[string]string{} // nothing current anymore

	sess := s.svc.Begin(s.ctx, s.plain)
	snap := s.svc.Verify(s.ctx, sess)
	s.Equal(models.StateUnverified, snap.State)
	s.False(snap.Valid)
	// Data stays visible either way.
	s.NotEmpty(snap.Fields)
}

func (s *SessionSuite) TestEncryptedPayloadNeedsKey() {
	sess := s.svc.Begin(s.ctx, s.encrypted)
	snap := sess.Result()
	s.Equal(models.StateEncrypted, snap.State)
	s.Empty(snap.Fields)

	snap = s.svc.SubmitKey(s.ctx, sess, s.keyPair.PrivateKeyPEM)
	s.Equal(models.StateDecrypted, snap.State)
	s.Equal("912345678V", snap.Fields["idNumber"])

	snap = s.svc.Verify(s.ctx, sess)
	s.Equal(models.StateVerified, snap.State)
	s.True(snap.Valid)
}

func (s *SessionSuite) TestWrongKeyIsRetryable() {
	wrong, err := keys.GenerateKeyPair()
	s.Require().NoError(err)

	sess := s.svc.Begin(s.ctx, s.encrypted)

	snap := s.svc.SubmitKey(s.ctx, sess, wrong.PrivateKeyPEM)
	s.Equal(models.StateDecryptionError, snap.State)
	s.Empty(snap.Fields)
	s.NotContains(snap.Message, wrong.PrivateKeyPEM)

	// The right key still works afterwards.
	snap = s.svc.SubmitKey(s.ctx, sess, s.keyPair.PrivateKeyPEM)
	s.Equal(models.StateDecrypted, snap.State)
}

func (s *SessionSuite) TestRegistryOutageIsVerificationErrorWithDataVisible() {
	s.registry.err = dErrors.Wrap(sentinel.ErrUnavailable, dErrors.CodeChain, "registry unavailable: verify hash")

	sess := s.svc.Begin(s.ctx, s.plain)
	snap := s.svc.Verify(s.ctx, sess)
	s.Equal(models.StateVerificationError, snap.State)
	s.False(snap.Valid)
	s.NotEmpty(snap.Fields)
	s.NotEmpty(snap.Message)
}

func (s *SessionSuite) TestMissingIdentifierCannotVerify() {
	payload, err := disclosure.Encode(s.record, []string{"fullName"}, nil)
	s.Require().NoError(err)

	sess := s.svc.Begin(s.ctx, payload)
	snap := s.svc.Verify(s.ctx, sess)
	s.Equal(models.StateVerificationError, snap.State)
	s.Equal(0, s.registry.callCount())
}

func (s *SessionSuite) TestRegistryConsultedExactlyOnce() {
	sess := s.svc.Begin(s.ctx, s.plain)

	first := s.svc.Verify(s.ctx, sess)
	second := s.svc.Verify(s.ctx, sess)
	s.Equal(models.StateVerified, first.State)
	s.Equal(first.State, second.State)
	s.Equal(1, s.registry.callCount())
}

func (s *SessionSuite) TestStragglerFlightReusesSettledVerdict() {
	sess := s.svc.Begin(s.ctx, s.plain)
	snap := s.svc.Verify(s.ctx, sess)
	s.Require().Equal(models.StateVerified, snap.State)
	s.Require().Equal(1, s.registry.callCount())

	// A caller that observed the verifying state can start a fresh flight
	// after the owner's flight completed and was forgotten. The settled
	// session must answer it without another registry check.
	late := s.svc.settle(s.ctx, sess, nil, models.StatePlain)
	s.Equal(models.StateVerified, late.State)
	s.True(late.Valid)
	s.Equal(1, s.registry.callCount())
}

func (s *SessionSuite) TestConcurrentVerifySharesOneCheck() {
	s.registry.delay = 20 * time.Millisecond
	sess := s.svc.Begin(s.ctx, s.plain)

	var wg sync.WaitGroup
	snaps := make([]models.Snapshot, 4)
	for i := range snaps {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			snaps[i] = s.svc.Verify(s.ctx, sess)
		}()
	}
	wg.Wait()

	s.Equal(1, s.registry.callCount())
	final := sess.Result()
	s.Equal(models.StateVerified, final.State)
	for _, snap := range snaps {
		s.Equal(models.StateVerified, snap.State)
	}
}

func (s *SessionSuite) TestCancelledVerifyCanBeRetried() {
	s.registry.delay = 50 * time.Millisecond
	sess := s.svc.Begin(s.ctx, s.plain)

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	snap := s.svc.Verify(ctx, sess)
	s.Equal(models.StatePlain, snap.State)

	s.registry.delay = 0
	snap = s.svc.Verify(s.ctx, sess)
	s.Equal(models.StateVerified, snap.State)
}
