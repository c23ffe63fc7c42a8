package middleware

import (
	"net/http"

	"github.com/gamestore/storefront/internal/infrastructure/backend"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionIDKey is the gin context key of the storefront session ID
const SessionIDKey = "session_id"

// SessionConfig names the cookies the session middleware handles
type SessionConfig struct {
	CookieName    string
	BackendCookie string
	Path          string
	Secure        bool
	MaxAge        int // seconds
}

// Session identifies the browser with a storefront session cookie and
// forwards the backend session cookie on every backend call made while
// serving the request.
//
// The storefront session ID keys the cart snapshot, the badge streams and
// the checkout session. Tabs of the same browser share it.
func Session(cfg SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(cfg.CookieName)
		if err != nil || uuid.Validate(sid) != nil {
			sid = uuid.NewString()
		}
		// Refresh the cookie so active shoppers keep their session
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cfg.CookieName, sid, cfg.MaxAge, cfg.Path, "", cfg.Secure, true)
		c.Set(SessionIDKey, sid)

		if bc, err := c.Request.Cookie(cfg.BackendCookie); err == nil {
			ctx := backend.WithCookies(c.Request.Context(), []*http.Cookie{bc})
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

// GetSessionID returns the storefront session ID set by Session
func GetSessionID(c *gin.Context) string {
	return c.GetString(SessionIDKey)
}
