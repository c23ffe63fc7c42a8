package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gamestore/storefront/internal/infrastructure/backend"
	"github.com/gamestore/storefront/internal/infrastructure/logger"
	"github.com/gamestore/storefront/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserKey is the gin context key of the authenticated backend user
const UserKey = "user"

// LoginPath is where shoppers are sent to authenticate
const LoginPath = "/login"

// UserSource resolves the account behind the forwarded backend session
type UserSource interface {
	UserInfo(ctx context.Context) (*backend.User, error)
}

// RequireAdmin lets only administrators through. Browsers are redirected
// to the login page; API clients get a JSON error.
func RequireAdmin(users UserSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := users.UserInfo(c.Request.Context())
		if err != nil || user == nil {
			logger.GetGinLogger(c).Info("Admin access without session", zap.Error(err))
			deny(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "No autenticado")
			return
		}
		if !user.IsAdmin() {
			logger.GetGinLogger(c).Warn("Admin access denied", zap.String("username", user.Username))
			deny(c, http.StatusForbidden, dto.ErrCodeForbidden, "Acceso denegado")
			return
		}
		c.Set(UserKey, user)
		c.Next()
	}
}

func deny(c *gin.Context, status int, code, message string) {
	if WantsJSON(c) {
		c.AbortWithStatusJSON(status, dto.NewErrorResponseWithRequestID(code, message, c.GetString("request_id")))
		return
	}
	c.Redirect(http.StatusFound, LoginPath+"?next="+url.QueryEscape(c.Request.URL.RequestURI()))
	c.Abort()
}

// GetUser returns the user stored by RequireAdmin
func GetUser(c *gin.Context) *backend.User {
	if v, ok := c.Get(UserKey); ok {
		if u, ok := v.(*backend.User); ok {
			return u
		}
	}
	return nil
}

// WantsJSON reports whether the client asked for a JSON response rather
// than a page
func WantsJSON(c *gin.Context) bool {
	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		return true
	}
	return c.GetHeader("X-Requested-With") == "XMLHttpRequest"
}
