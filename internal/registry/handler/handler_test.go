package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"docseal/internal/registry/models"
	dErrors "docseal/pkg/domain-errors"
)

const (
	identityHex = "e3ee8913713e06550399231579a297149ceea238c568acb2d88dbb85e25074f5"
	hashHex     = "3705bdc2a7ae99d7a2b69963fb767b2d1313f8b04395f67d8e016da886426aa1"
)

type stubService struct {
	storeInitialFn func(ctx context.Context, identityID, hashHex, actor string) (*models.WriteResponse, error)
	updateFn       func(ctx context.Context, identityID, newHashHex, actor string) (*models.WriteResponse, error)
	verifyFn       func(ctx context.Context, identityID, hashHex string) (*models.VerifyResponse, error)
}

func (s *stubService) StoreInitial(ctx context.Context, identityID, hashHex, actor string) (*models.WriteResponse, error) {
	return s.storeInitialFn(ctx, identityID, hashHex, actor)
}

func (s *stubService) Update(ctx context.Context, identityID, newHashHex, actor string) (*models.WriteResponse, error) {
	return s.updateFn(ctx, identityID, newHashHex, actor)
}

func (s *stubService) Verify(ctx context.Context, identityID, hashHex string) (*models.VerifyResponse, error) {
	return s.verifyFn(ctx, identityID, hashHex)
}

type HandlerSuite struct {
	suite.Suite
	service *stubService
	router  chi.Router
}

func (s *HandlerSuite) SetupTest() {
	s.service = &stubService{}
	h := New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.router = chi.NewRouter()
	h.RegisterProtected(s.router)
	h.RegisterPublic(s.router)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) post(path string, body any) *httptest.ResponseRecorder {
	payload, err := json.Marshal(body)
	s.Require().NoError(err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestStoreInitialReturns201() {
	s.service.storeInitialFn = func(_ context.Context, identityID, hash, _ string) (*models.WriteResponse, error) {
		s.Equal(identityHex, identityID)
		s.Equal(hashHex, hash)
		return &models.WriteResponse{Success: true, TxHash: "0xabc", BlockNumber: 7}, nil
	}

	rec := s.post("/store-initial", models.StoreInitialRequest{
		IdentityID: identityHex,
		HashHex:    hashHex,
	})
	s.Equal(http.StatusCreated, rec.Code)

	var resp models.WriteResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.True(resp.Success)
	s.Equal("0xabc", resp.TxHash)
	s.Equal(uint64(7), resp.BlockNumber)
}

func (s *HandlerSuite) TestStoreInitialRejectsMalformedHexBeforeService() {
	called := false
	s.service.storeInitialFn = func(context.Context, string, string, string) (*models.WriteResponse, error) {
		called = true
		return nil, nil
	}

	rec := s.post("/store-initial", models.StoreInitialRequest{
		IdentityID: "zz",
		HashHex:    hashHex,
	})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.False(called)
}

func (s *HandlerSuite) TestStoreInitialDuplicateMapsTo409() {
	s.service.storeInitialFn = func(context.Context, string, string, string) (*models.WriteResponse, error) {
		return nil, dErrors.New(dErrors.CodeDuplicate, "hash already exists for this identity")
	}

	rec := s.post("/store-initial", models.StoreInitialRequest{
		IdentityID: identityHex,
		HashHex:    hashHex,
	})
	s.Equal(http.StatusConflict, rec.Code)

	var body map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal("duplicate", body["error"])
}

func (s *HandlerSuite) TestUpdateHashReturns200() {
	s.service.updateFn = func(_ context.Context, _, newHash, _ string) (*models.WriteResponse, error) {
		s.Equal(hashHex, newHash)
		return &models.WriteResponse{Success: true, TxHash: "0xdef", BlockNumber: 8}, nil
	}

	rec := s.post("/update-hash", models.UpdateHashRequest{
		IdentityID: identityHex,
		NewHashHex: hashHex,
	})
	s.Equal(http.StatusOK, rec.Code)
}

func (s *HandlerSuite) TestUpdateHashUnknownIdentityMapsTo404() {
	s.service.updateFn = func(context.Context, string, string, string) (*models.WriteResponse, error) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no hash stored for this identity")
	}

	rec := s.post("/update-hash", models.UpdateHashRequest{
		IdentityID: identityHex,
		NewHashHex: hashHex,
	})
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestVerifyReturnsVerdict() {
	s.service.verifyFn = func(_ context.Context, identityID, hash string) (*models.VerifyResponse, error) {
		s.Equal(identityHex, identityID)
		s.Equal(hashHex, hash)
		return &models.VerifyResponse{Success: true, Valid: true}, nil
	}

	rec := s.get("/verify/" + identityHex + "/" + hashHex)
	s.Equal(http.StatusOK, rec.Code)

	var resp models.VerifyResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.True(resp.Valid)
}

func (s *HandlerSuite) TestVerifyLedgerOutageMapsTo502() {
	s.service.verifyFn = func(context.Context, string, string) (*models.VerifyResponse, error) {
		return nil, dErrors.New(dErrors.CodeChain, "registry unavailable: verify hash")
	}

	rec := s.get("/verify/" + identityHex + "/" + hashHex)
	s.Equal(http.StatusBadGateway, rec.Code)
}
