// Package service drives a verification session from transport payload to
// verdict. A session decodes, optionally decrypts, and verifies exactly once
// against the registry; every intermediate outcome is observable so a caller
// can prompt for a key or show unverified data.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"docseal/internal/disclosure"
	"docseal/internal/disclosure/keys"
	"docseal/internal/document"
	"docseal/internal/identity"
	regmodels "docseal/internal/registry/models"
	"docseal/internal/verifier/metrics"
	"docseal/internal/verifier/models"
	"docseal/internal/verifier/tracer"
	dErrors "docseal/pkg/domain-errors"
)

const (
	decryptOutcomeOK     = "ok"
	decryptOutcomeFailed = "failed"
)

// Registry is the verification port. The registry service satisfies it.
type Registry interface {
	Verify(ctx context.Context, identityID, hashHex string) (*regmodels.VerifyResponse, error)
}

type Option func(*Service)

// Service runs verification sessions against the registry.
type Service struct {
	registry Registry
	logger   *slog.Logger
	tracer   tracer.Tracer
	metrics  *metrics.Metrics

	// group collapses concurrent Verify calls for the same session into a
	// single registry check.
	group singleflight.Group
}

func NewService(registry Registry, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		registry: registry,
		logger:   logger,
		tracer:   tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// WithTracer sets the tracer for the service.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// Session is one payload's journey to a verdict. All methods are safe for
// concurrent use; the registry is consulted at most once per session.
type Session struct {
	id string

	mu       sync.Mutex
	state    models.State
	decoded  *disclosure.Decoded
	envelope *disclosure.EncryptedEnvelope
	valid    bool
	message  string
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Result returns the current view of the session.
func (s *Session) Result() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() models.Snapshot {
	snap := models.Snapshot{
		SessionID: s.id,
		State:     s.state,
		Valid:     s.valid,
		Message:   s.message,
	}
	if s.decoded != nil {
		fields := make(map[string]string, len(s.decoded.Fields))
		for k, v := range s.decoded.Fields {
			fields[k] = v
		}
		snap.Fields = fields
		snap.Hash = s.decoded.Fingerprint
	}
	return snap
}

// Begin decodes a transport payload into a new session. The session lands
// in plain, encrypted, or decode_error.
func (s *Service) Begin(ctx context.Context, transport string) *Session {
	sess := &Session{id: uuid.New().String(), state: models.StateLoading}

	_, span := s.tracer.Start(ctx, tracer.SpanDecode,
		tracer.String(tracer.AttrSessionID, sess.id))

	decoded, envelope, err := disclosure.Decode(transport)
	switch {
	case err != nil:
		sess.state = models.StateDecodeError
		sess.message = "payload could not be decoded"
		s.recordTerminal(sess.state)
	case envelope != nil:
		sess.state = models.StateEncrypted
		sess.envelope = envelope
	default:
		sess.state = models.StatePlain
		sess.decoded = decoded
	}

	span.SetAttributes(
		tracer.Bool(tracer.AttrEncrypted, envelope != nil),
		tracer.String(tracer.AttrState, string(sess.state)),
	)
	span.End(err)

	return sess
}

// SubmitKey attempts to decrypt an encrypted session with the given private
// key. A failed attempt leaves the session in decryption_error, from which
// another key may be submitted. Key material never reaches logs or traces.
func (s *Service) SubmitKey(ctx context.Context, sess *Session, privateKeyPEM string) models.Snapshot {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.state != models.StateEncrypted && sess.state != models.StateDecryptionError {
		sess.message = "session is not awaiting a key"
		return sess.snapshotLocked()
	}

	_, span := s.tracer.Start(ctx, tracer.SpanDecrypt,
		tracer.String(tracer.AttrSessionID, sess.id))

	priv, err := keys.ParsePrivateKey(privateKeyPEM)
	if err == nil {
		var decoded *disclosure.Decoded
		decoded, err = disclosure.DecryptWith(sess.envelope, priv)
		if err == nil {
			sess.state = models.StateDecrypted
			sess.decoded = decoded
			sess.message = ""
		}
	}
	if err != nil {
		sess.state = models.StateDecryptionError
		sess.message = "decryption failed; check the private key"
		s.recordDecrypt(decryptOutcomeFailed)
	} else {
		s.recordDecrypt(decryptOutcomeOK)
	}

	span.SetAttributes(tracer.String(tracer.AttrState, string(sess.state)))
	span.End(err)

	return sess.snapshotLocked()
}

// Verify checks the session's fingerprint against the registry. The session
// must hold readable data (plain or decrypted). Concurrent calls share a
// single registry check; once a verdict lands it is final and returned
// as-is on subsequent calls. A context cancelled mid-check leaves the
// session where it was so a later call can complete the verification.
func (s *Service) Verify(ctx context.Context, sess *Session) models.Snapshot {
	sess.mu.Lock()
	switch sess.state {
	case models.StatePlain, models.StateDecrypted:
		sess.state = models.StateVerifying
	case models.StateVerifying:
		// Another caller owns the in-flight check; fall through and join it.
	default:
		defer sess.mu.Unlock()
		return sess.snapshotLocked()
	}
	// Where to roll back to if the check is abandoned mid-flight.
	resumeState := models.StatePlain
	if sess.envelope != nil {
		resumeState = models.StateDecrypted
	}
	decoded := sess.decoded
	sess.mu.Unlock()

	snap, _, _ := s.group.Do(sess.id, func() (any, error) {
		return s.settle(ctx, sess, decoded, resumeState), nil
	})
	return snap.(models.Snapshot)
}

// settle runs the registry check and records the outcome while it still owns
// the shared flight. The verdict lands on the session before the flight is
// released, so a caller that observed the verifying state but arrives after
// completion re-reads the settled session instead of repeating the check.
func (s *Service) settle(ctx context.Context, sess *Session, decoded *disclosure.Decoded, resumeState models.State) models.Snapshot {
	sess.mu.Lock()
	if sess.state != models.StateVerifying {
		defer sess.mu.Unlock()
		return sess.snapshotLocked()
	}
	sess.mu.Unlock()

	valid, err := s.check(ctx, sess.id, decoded)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			sess.state = resumeState
			sess.message = "verification abandoned"
			return sess.snapshotLocked()
		}
		sess.state = models.StateVerificationError
		sess.message = verificationErrorMessage(err)
		s.recordTerminal(sess.state)
		s.logger.ErrorContext(ctx, "verification failed",
			"session_id", sess.id,
			"error", err)
		return sess.snapshotLocked()
	}

	if valid {
		sess.state = models.StateVerified
		sess.valid = true
	} else {
		sess.state = models.StateUnverified
	}
	sess.message = ""
	s.recordTerminal(sess.state)
	return sess.snapshotLocked()
}

// check derives the identity commitment from the disclosed natural
// identifier and asks the registry whether the fingerprint is current.
func (s *Service) check(ctx context.Context, sessionID string, decoded *disclosure.Decoded) (bool, error) {
	naturalID, ok := disclosedNaturalID(decoded.Fields)
	if !ok {
		return false, dErrors.New(dErrors.CodeInvalidInput,
			"disclosure does not include an identifier field; verification is impossible")
	}

	commitment, err := identity.Commit(naturalID)
	if err != nil {
		return false, err
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanVerify,
		tracer.String(tracer.AttrSessionID, sessionID),
		tracer.String(tracer.AttrIdentifier, tracer.HashIdentifier(naturalID)),
	)

	start := time.Now()
	resp, err := s.registry.Verify(ctx, commitment, decoded.Fingerprint)
	if s.metrics != nil {
		s.metrics.ObserveVerify(time.Since(start).Seconds())
	}
	if err != nil {
		span.End(err)
		return false, err
	}

	span.SetAttributes(tracer.Bool(tracer.AttrVerdict, resp.Valid))
	span.End(nil)
	return resp.Valid, nil
}

// disclosedNaturalID finds the natural identifier among disclosed fields by
// checking each document kind's identifier key.
func disclosedNaturalID(fields map[string]string) (string, bool) {
	for _, kind := range document.Kinds() {
		if value, ok := fields[kind.NaturalIDField()]; ok && value != "" {
			return value, true
		}
	}
	return "", false
}

func verificationErrorMessage(err error) string {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return "verification could not be completed"
}

func (s *Service) recordTerminal(state models.State) {
	if s.metrics != nil {
		s.metrics.RecordSession(string(state))
	}
}

func (s *Service) recordDecrypt(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordDecryptAttempt(outcome)
	}
}
