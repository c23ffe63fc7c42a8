package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	badgeapp "github.com/gamestore/storefront/internal/application/badge"
	"github.com/gamestore/storefront/internal/domain/badge"
	"github.com/gamestore/storefront/internal/interfaces/http/dto"
	"github.com/gamestore/storefront/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SSEMessage represents a message to be sent to SSE clients
type SSEMessage struct {
	Event string `json:"event"`
	Data  string `json:"data"`
	ID    string `json:"id,omitempty"`
}

// SSE event names
const (
	EventConnected = "connected"
	EventBadge     = "badge"
	EventHeartbeat = "heartbeat"
)

// BadgeHandler serves the cart badge state and streams its changes.
// Every open page holds one stream; the broadcaster keeps all of a
// session's streams on the same count.
type BadgeHandler struct {
	BaseHandler
	broadcaster *badgeapp.Broadcaster
	logger      *zap.Logger
	heartbeat   time.Duration
	refresh     time.Duration
}

// BadgeOption is a functional option for configuring the handler
type BadgeOption func(*BadgeHandler)

// WithBadgeLogger sets the logger for the handler
func WithBadgeLogger(logger *zap.Logger) BadgeOption {
	return func(h *BadgeHandler) {
		h.logger = logger
	}
}

// WithBadgeHeartbeat sets the heartbeat interval
func WithBadgeHeartbeat(interval time.Duration) BadgeOption {
	return func(h *BadgeHandler) {
		h.heartbeat = interval
	}
}

// WithBadgeRefresh sets how often an open stream resyncs its count
func WithBadgeRefresh(interval time.Duration) BadgeOption {
	return func(h *BadgeHandler) {
		h.refresh = interval
	}
}

// NewBadgeHandler creates a new BadgeHandler
func NewBadgeHandler(broadcaster *badgeapp.Broadcaster, opts ...BadgeOption) *BadgeHandler {
	h := &BadgeHandler{
		broadcaster: broadcaster,
		logger:      zap.NewNop(),
		heartbeat:   15 * time.Second,
		refresh:     30 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Show returns the session's badge after syncing it with the backend.
// Pages call it when they become visible again or are resized.
// @Summary     Current cart badge
// @Tags        badge
// @Produce     json
// @Success     200 {object} dto.Response{data=badge.State}
// @Router      /carrito/badge [get]
func (h *BadgeHandler) Show(c *gin.Context) {
	sid := middleware.GetSessionID(c)

	state, err := h.broadcaster.Sync(c.Request.Context(), sid)
	if err != nil {
		// keep showing what the widgets last showed
		state = h.broadcaster.Reapply(sid)
	}
	h.Success(c, state)
}

// Stream opens a Server-Sent Events stream of badge states
// @Summary     Stream cart badge updates
// @Description Server-Sent Events; each "badge" event carries a badge state.
// @Tags        badge
// @Produce     text/event-stream
// @Success     200 {object} badge.State
// @Failure     503 {object} dto.Response
// @Router      /carrito/badge/stream [get]
func (h *BadgeHandler) Stream(c *gin.Context) {
	sid := middleware.GetSessionID(c)

	widget, err := h.broadcaster.Register(sid)
	if errors.Is(err, badgeapp.ErrTooManyWidgets) {
		h.ErrorWithCode(c, dto.ErrCodeMaxConnections, "Se alcanzó el máximo de conexiones")
		return
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer h.broadcaster.Unregister(widget)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	c.Status(http.StatusOK)

	h.logger.Debug("Badge stream opened",
		zap.String("widget_id", widget.ID),
		zap.String("session_id", sid))

	ctx := c.Request.Context()

	h.sendEvent(c.Writer, SSEMessage{
		Event: EventConnected,
		Data:  fmt.Sprintf(`{"widget_id":"%s","timestamp":%d}`, widget.ID, time.Now().Unix()),
	})
	// Sync delivers the current count to this widget through Updates
	if _, err := h.broadcaster.Sync(ctx, sid); err != nil {
		h.writeState(c.Writer, h.broadcaster.Current(sid))
	}
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()
	refresh := time.NewTicker(h.refresh)
	defer refresh.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("Badge stream closed", zap.String("widget_id", widget.ID))
			return
		case state := <-widget.Updates():
			h.writeState(c.Writer, state)
		case <-refresh.C:
			_, _ = h.broadcaster.Sync(ctx, sid)
			continue
		case <-heartbeat.C:
			h.sendEvent(c.Writer, SSEMessage{
				Event: EventHeartbeat,
				Data:  fmt.Sprintf(`{"timestamp":%d}`, time.Now().Unix()),
			})
		}
		c.Writer.Flush()
	}
}

func (h *BadgeHandler) writeState(w io.Writer, state badge.State) {
	data, err := json.Marshal(state)
	if err != nil {
		h.logger.Error("Failed to marshal badge state", zap.Error(err))
		return
	}
	h.sendEvent(w, SSEMessage{
		Event: EventBadge,
		Data:  string(data),
		ID:    strconv.FormatInt(time.Now().UnixMilli(), 10),
	})
}

// sendEvent writes an SSE event to the response writer
func (h *BadgeHandler) sendEvent(w io.Writer, msg SSEMessage) {
	if msg.Event != "" {
		fmt.Fprintf(w, "event: %s\n", msg.Event)
	}
	if msg.ID != "" {
		fmt.Fprintf(w, "id: %s\n", msg.ID)
	}
	fmt.Fprintf(w, "data: %s\n\n", msg.Data)
}
