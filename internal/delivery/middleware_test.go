package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"store_service/internal/domain"
	"store_service/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(nopWriter{})
	return logger
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

// stubUserUseCase serves a fixed token-to-principal table; the other methods
// are unused by the middleware under test.
type stubUserUseCase struct {
	principals map[string]domain.Principal
}

func (s *stubUserUseCase) Register(context.Context, string, string, string) (*domain.UserProfile, error) {
	return nil, errors.New("not implemented")
}

func (s *stubUserUseCase) Login(context.Context, string, string) (*usecase.AuthResult, error) {
	return nil, errors.New("not implemented")
}

func (s *stubUserUseCase) Logout(context.Context, string) error { return nil }

func (s *stubUserUseCase) GetProfile(context.Context, int64) (*domain.UserProfile, error) {
	return nil, errors.New("not implemented")
}

func (s *stubUserUseCase) ListUsers(context.Context, int, int) ([]domain.UserProfile, error) {
	return nil, errors.New("not implemented")
}

func (s *stubUserUseCase) Authenticate(_ context.Context, token string) (*domain.Principal, error) {
	principal, ok := s.principals[token]
	if !ok {
		return nil, fmt.Errorf("invalid token: %w", domain.ErrUnauthorized)
	}
	return &principal, nil
}

func newAuthRouter(users usecase.UserUseCase) *gin.Engine {
	router := gin.New()
	authed := router.Group("", AuthMiddleware(users, quietLogger()))
	authed.GET("/whoami", func(c *gin.Context) {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": principal.UserID, "role": principal.Role})
	})
	admin := authed.Group("", RequireAdmin(quietLogger()))
	admin.GET("/admin-only", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestAuthMiddleware(t *testing.T) {
	users := &stubUserUseCase{principals: map[string]domain.Principal{
		"client-token": {UserID: 7, Role: domain.RoleClient},
		"admin-token":  {UserID: 1, Role: domain.RoleAdmin},
	}}
	router := newAuthRouter(users)

	do := func(token string, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("valid token reaches the handler with a principal", func(t *testing.T) {
		w := do("client-token", "/whoami")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user_id":7`)
	})

	t.Run("missing header", func(t *testing.T) {
		w := do("", "/whoami")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Token abc")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejected token", func(t *testing.T) {
		w := do("expired-token", "/whoami")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("admin route forbids clients", func(t *testing.T) {
		w := do("client-token", "/admin-only")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin route admits admins", func(t *testing.T) {
		w := do("admin-token", "/admin-only")
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}
