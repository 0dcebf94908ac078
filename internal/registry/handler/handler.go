// Package handler exposes the registry over HTTP. Writes require an
// authority token; verification is public so any holder of a disclosure
// can check it.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"docseal/internal/platform/middleware"
	"docseal/internal/registry/models"
	dErrors "docseal/pkg/domain-errors"
	"docseal/pkg/platform/httputil"
	"docseal/pkg/platform/middleware/auth"
)

// Service defines the registry operations the handler depends on.
type Service interface {
	StoreInitial(ctx context.Context, identityID, hashHex, actor string) (*models.WriteResponse, error)
	Update(ctx context.Context, identityID, newHashHex, actor string) (*models.WriteResponse, error)
	Verify(ctx context.Context, identityID, hashHex string) (*models.VerifyResponse, error)
}

// Handler handles registry endpoints.
type Handler struct {
	logger   *slog.Logger
	registry Service
}

// New creates a new registry Handler.
func New(registry Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, registry: registry}
}

// RegisterProtected registers the write routes. Mount behind authority auth.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/store-initial", h.handleStoreInitial)
	r.Post("/update-hash", h.handleUpdateHash)
}

// RegisterPublic registers the read routes.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/verify/{identityId}/{hash}", h.handleVerify)
}

func (h *Handler) handleStoreInitial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.StoreInitialRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	resp, err := h.registry.StoreInitial(ctx, req.IdentityID, req.HashHex, auth.GetSubject(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to store initial hash",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleUpdateHash(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.UpdateHashRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	resp, err := h.registry.Update(ctx, req.IdentityID, req.NewHashHex, auth.GetSubject(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to update hash",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identityID := chi.URLParam(r, "identityId")
	hash := chi.URLParam(r, "hash")
	if identityID == "" || hash == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "identityId and hash are required"))
		return
	}

	resp, err := h.registry.Verify(ctx, identityID, hash)
	if err != nil {
		h.logger.ErrorContext(ctx, "verification failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}
