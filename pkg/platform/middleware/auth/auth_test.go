package auth

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"docseal/internal/jwtauth"
)

type AuthMiddlewareSuite struct {
	suite.Suite
	jwt    *jwtauth.Service
	logger *slog.Logger
}

func (s *AuthMiddlewareSuite) SetupTest() {
	s.jwt = jwtauth.NewService("test-key", "docseal-test", time.Minute)
	s.logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestAuthMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(AuthMiddlewareSuite))
}

func (s *AuthMiddlewareSuite) protected(roles ...string) http.Handler {
	var inner http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if len(roles) > 0 {
		inner = RequireRole(s.logger, roles...)(inner)
	}
	return RequireAuth(s.jwt, s.logger)(inner)
}

func (s *AuthMiddlewareSuite) TestMissingToken() {
	req := httptest.NewRequest(http.MethodPost, "/store-initial", nil)
	rec := httptest.NewRecorder()
	s.protected().ServeHTTP(rec, req)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *AuthMiddlewareSuite) TestMalformedHeader() {
	req := httptest.NewRequest(http.MethodPost, "/store-initial", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	s.protected().ServeHTTP(rec, req)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *AuthMiddlewareSuite) TestValidAuthorityToken() {
	token, err := s.jwt.GenerateToken("office-1", jwtauth.RoleAuthority)
	s.Require().NoError(err)

	req := httptest.NewRequest(http.MethodPost, "/store-initial", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.protected(jwtauth.RoleAuthority).ServeHTTP(rec, req)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *AuthMiddlewareSuite) TestRoleEnforced() {
	token, err := s.jwt.GenerateToken("office-1", jwtauth.RoleAdmin)
	s.Require().NoError(err)

	req := httptest.NewRequest(http.MethodPost, "/store-initial", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.protected(jwtauth.RoleAuthority).ServeHTTP(rec, req)
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *AuthMiddlewareSuite) TestContextCarriesPrincipal() {
	token, err := s.jwt.GenerateToken("office-1", jwtauth.RoleAuthority)
	s.Require().NoError(err)

	var subject, role string
	handler := RequireAuth(s.jwt, s.logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = GetSubject(r.Context())
		role = GetRole(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	s.Equal("office-1", subject)
	s.Equal(jwtauth.RoleAuthority, role)
}
