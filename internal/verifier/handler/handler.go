// Package handler exposes the verifier over HTTP: minting verification
// requests and running a session over a scanned transport payload.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"docseal/internal/disclosure/keys"
	"docseal/internal/platform/middleware"
	"docseal/internal/verifier/models"
	"docseal/internal/verifier/service"
	"docseal/internal/verifier/store"
	dErrors "docseal/pkg/domain-errors"
	"docseal/pkg/platform/httputil"
)

const defaultRequestTTL = time.Hour

// Sessions drives verification sessions; the verifier service satisfies it.
type Sessions interface {
	Begin(ctx context.Context, transport string) *service.Session
	SubmitKey(ctx context.Context, sess *service.Session, privateKeyPEM string) models.Snapshot
	Verify(ctx context.Context, sess *service.Session) models.Snapshot
}

type Option func(*Handler)

// Handler handles verifier endpoints.
type Handler struct {
	logger     *slog.Logger
	sessions   Sessions
	keyStore   store.KeyStore
	baseURL    string
	requestTTL time.Duration
}

// New creates a new verifier Handler. baseURL is the externally reachable
// prefix used in minted verify URLs.
func New(sessions Sessions, keyStore store.KeyStore, baseURL string, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		logger:     logger,
		sessions:   sessions,
		keyStore:   keyStore,
		baseURL:    baseURL,
		requestTTL: defaultRequestTTL,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// WithRequestTTL configures how long a minted verification request stays
// decryptable.
func WithRequestTTL(ttl time.Duration) Option {
	return func(h *Handler) {
		if ttl > 0 {
			h.requestTTL = ttl
		}
	}
}

// Register registers the verifier routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/verification-requests", h.handleMintRequest)
	r.Get("/verify", h.handleVerify)
}

// handleMintRequest mints a verification request: a fresh RSA key pair whose
// public half the holder encrypts to, plus the verifier's name, document kind,
// and purpose so the holder can judge the request. The private half stays in
// the key store and never appears in the response.
func (h *Handler) handleMintRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.MintRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	pair, err := keys.GenerateKeyPair()
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate verification request key pair",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint verification request"))
		return
	}

	id := uuid.New().String()
	if err := h.keyStore.Put(ctx, id, pair.PrivateKeyPEM); err != nil {
		h.logger.ErrorContext(ctx, "failed to store verification request key",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint verification request"))
		return
	}

	now := time.Now().UTC()
	httputil.WriteJSON(w, http.StatusCreated, models.RequestDescriptor{
		ID:           id,
		VerifierName: req.VerifierName,
		DocumentKind: req.DocumentKind,
		Description:  req.Description,
		VerifyURL:    h.baseURL + "/verify",
		PublicKeyPEM: pair.PublicKeyPEM,
		CreatedAt:    now,
		ExpiresAt:    now.Add(h.requestTTL),
	})
}

// handleVerify runs a session over the transport payload in ?data=. When the
// payload is encrypted and ?requestId= names a minted request, the stored
// private key is applied automatically; otherwise the encrypted state is
// returned and the caller must supply a key out of band.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data := r.URL.Query().Get("data")
	if data == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "data query parameter is required"))
		return
	}

	sess := h.sessions.Begin(ctx, data)
	snap := sess.Result()

	if snap.State == models.StateDecodeError {
		httputil.WriteJSON(w, http.StatusBadRequest, snap)
		return
	}

	if snap.State == models.StateEncrypted {
		if requestID := r.URL.Query().Get("requestId"); requestID != "" {
			privateKeyPEM, err := h.keyStore.Get(ctx, requestID)
			if err != nil {
				httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown or expired verification request"))
				return
			}
			snap = h.sessions.SubmitKey(ctx, sess, privateKeyPEM)
		} else {
			// Nothing to decrypt with; report the state so the caller can
			// prompt for a key.
			httputil.WriteJSON(w, http.StatusOK, snap)
			return
		}
	}

	if snap.State == models.StatePlain || snap.State == models.StateDecrypted {
		snap = h.sessions.Verify(ctx, sess)
	}

	httputil.WriteJSON(w, http.StatusOK, snap)
}
