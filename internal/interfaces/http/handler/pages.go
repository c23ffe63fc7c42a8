package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gamestore/storefront/internal/domain/badge"
	"github.com/gamestore/storefront/internal/infrastructure/backend"
	"github.com/gamestore/storefront/internal/interfaces/http/middleware"
	"github.com/gamestore/storefront/internal/interfaces/http/view"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NoticeCookie carries a notice across a redirect
const NoticeCookie = "sf_notice"

// UserLoader returns the logged-in user, or nil when nobody is
type UserLoader interface {
	CurrentUser(ctx context.Context) *backend.User
}

// BadgeSyncer returns the authoritative badge of a session
type BadgeSyncer interface {
	Sync(ctx context.Context, sessionID string) (badge.State, error)
}

// Pages renders HTML pages with the layout every page shares
type Pages struct {
	renderer *view.Renderer
	users    UserLoader
	badges   BadgeSyncer
	logger   *zap.Logger
	secure   bool // notice cookie is HTTPS-only
}

// PagesOption configures Pages
type PagesOption func(*Pages)

// WithSecureCookies marks the notice cookie Secure, matching the session cookie
func WithSecureCookies(secure bool) PagesOption {
	return func(p *Pages) {
		p.secure = secure
	}
}

// NewPages creates a new Pages
func NewPages(renderer *view.Renderer, users UserLoader, badges BadgeSyncer, logger *zap.Logger, opts ...PagesOption) *Pages {
	p := &Pages{
		renderer: renderer,
		users:    users,
		badges:   badges,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Layout builds the shared page data, syncing the badge with the backend
func (p *Pages) Layout(c *gin.Context, title string) view.Layout {
	l := p.layout(c, title)
	// Sync falls back to the last applied state on failure
	l.Badge, _ = p.badges.Sync(c.Request.Context(), middleware.GetSessionID(c))
	return l
}

// LayoutWithCount builds the shared page data for a page that already
// knows the cart count
func (p *Pages) LayoutWithCount(c *gin.Context, title string, count int) view.Layout {
	l := p.layout(c, title)
	l.Badge = badge.StateFor(count)
	return l
}

func (p *Pages) layout(c *gin.Context, title string) view.Layout {
	l := view.Layout{Title: title, Notice: p.takeNotice(c)}

	user := middleware.GetUser(c)
	if user == nil {
		user = p.users.CurrentUser(c.Request.Context())
	}
	if user != nil {
		l.User = &view.User{Username: user.Username, Admin: user.IsAdmin()}
	}
	return l
}

// Render writes a full page
func (p *Pages) Render(c *gin.Context, status int, page string, data any) {
	var buf bytes.Buffer
	if err := p.renderer.Render(&buf, page, data); err != nil {
		p.renderFailed(c, page, err)
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// Fragment writes a block of a page without the layout
func (p *Pages) Fragment(c *gin.Context, status int, page, fragment string, data any) {
	var buf bytes.Buffer
	if err := p.renderer.Fragment(&buf, page, fragment, data); err != nil {
		p.renderFailed(c, page, err)
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// ErrorPage renders the fallback error page
func (p *Pages) ErrorPage(c *gin.Context, status int, message string) {
	p.Render(c, status, view.PageError, view.ErrorPage{
		Layout:  p.layout(c, "Error"),
		Status:  status,
		Message: message,
	})
}

func (p *Pages) renderFailed(c *gin.Context, page string, err error) {
	p.logger.Error("Failed to render page",
		zap.String("page", page),
		zap.String("request_id", getRequestID(c)),
		zap.Error(err))
	c.String(http.StatusInternalServerError, "Algo salió mal")
}

// Redirect sends the browser to location, flashing notice when set
func (p *Pages) Redirect(c *gin.Context, location string, notice *view.Notice) {
	if notice != nil {
		p.setNotice(c, *notice)
	}
	c.Redirect(http.StatusSeeOther, location)
}

func (p *Pages) setNotice(c *gin.Context, n view.Notice) {
	raw, err := json.Marshal(n)
	if err != nil {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(NoticeCookie, base64.RawURLEncoding.EncodeToString(raw), 60, "/", "", p.secure, true)
}

// takeNotice returns the flashed notice, if any, and clears it
func (p *Pages) takeNotice(c *gin.Context) *view.Notice {
	value, err := c.Cookie(NoticeCookie)
	if err != nil || value == "" {
		return nil
	}
	c.SetCookie(NoticeCookie, "", -1, "/", "", p.secure, true)

	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil
	}
	var n view.Notice
	if err := json.Unmarshal(raw, &n); err != nil || n.Message == "" {
		return nil
	}
	return &n
}

func success(message string) *view.Notice {
	if message == "" {
		return nil
	}
	return &view.Notice{Kind: view.NoticeSuccess, Message: message}
}

func failure(err error) *view.Notice {
	return &view.Notice{Kind: view.NoticeError, Message: err.Error()}
}

func warning(message string) *view.Notice {
	return &view.Notice{Kind: view.NoticeWarning, Message: message}
}
