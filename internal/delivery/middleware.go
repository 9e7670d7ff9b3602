package delivery

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"store_service/internal/domain"
	"store_service/internal/usecase"
)

const principalKey = "principal"

// AuthMiddleware resolves the bearer token into a Principal and attaches it
// to the request context. Everything behind it can assume an authenticated
// caller.
func AuthMiddleware(users usecase.UserUseCase, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Warn("Middleware: Authorization header is missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Status: "Fail", Message: "Authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Warnf("Middleware: Invalid Authorization header format")
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Status: "Fail", Message: "Invalid Authorization header format"})
			return
		}

		principal, err := users.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			log.Warnf("Middleware: Token rejected: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Status: "Fail", Message: "Invalid or expired token"})
			return
		}

		c.Set(principalKey, *principal)
		c.Next()
	}
}

// PrincipalFromContext returns the authenticated principal set by
// AuthMiddleware. The bool is false on routes that skipped it.
func PrincipalFromContext(c *gin.Context) (domain.Principal, bool) {
	value, exists := c.Get(principalKey)
	if !exists {
		return domain.Principal{}, false
	}
	principal, ok := value.(domain.Principal)
	return principal, ok
}

// RequireAdmin gates catalog and bill administration routes.
func RequireAdmin(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Status: "Fail", Message: "Authentication required"})
			return
		}
		if !principal.Role.CanManageCatalog() {
			log.Warnf("Middleware: User %d (role %s) denied admin route %s", principal.UserID, principal.Role, c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, Response{Status: "Fail", Message: "Admin role required"})
			return
		}
		c.Next()
	}
}

func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		latency := time.Since(startTime)
		statusCode := c.Writer.Status()

		entry := logger.WithFields(logrus.Fields{
			"status_code": statusCode,
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"remote_ip":   c.ClientIP(),
			"latency_ms":  latency.Milliseconds(),
		})

		switch {
		case statusCode >= 500:
			entry.Error("Request completed with server error")
		case statusCode >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}
