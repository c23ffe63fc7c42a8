package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gamestore/storefront/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// BreakerReporter reports the backend circuit breaker state
type BreakerReporter interface {
	BreakerState() string
}

// WidgetCounter reports the number of open badge streams
type WidgetCounter interface {
	WidgetCount() int
}

// SystemHandler handles the health endpoint
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	backend   BreakerReporter
	widgets   WidgetCounter
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name, version string, backend BreakerReporter, widgets WidgetCounter) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		backend:   backend,
		widgets:   widgets,
		startTime: time.Now(),
	}
}

// HealthResponse represents the health response
type HealthResponse struct {
	Status      string `json:"status"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	GoVersion   string `json:"go_version"`
	Uptime      string `json:"uptime"`
	Backend     string `json:"backend"`
	BadgeStream int    `json:"badge_streams"`
}

// Health reports whether the storefront can serve pages. An open backend
// breaker makes the storefront degraded: pages render, but with empty carts
// and error panels.
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:      "ok",
		Name:        h.name,
		Version:     h.version,
		GoVersion:   runtime.Version(),
		Uptime:      time.Since(h.startTime).Round(time.Second).String(),
		Backend:     h.backend.BreakerState(),
		BadgeStream: h.widgets.WidgetCount(),
	}
	status := http.StatusOK
	if resp.Backend == "open" {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, dto.NewSuccessResponse(resp))
}
