// Package v1 provides the HTTP handlers of the assistant read API.
package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/assistant/internal/domain"
	"github.com/xiaot623/gogo/assistant/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the v1 routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/v1/sessions/:session_id/transcript", h.GetTranscript)
	e.GET("/v1/sessions/:session_id/events", h.GetSessionEvents)
	e.GET("/v1/queries", h.GetQueries)

	e.GET("/v1/evaluations", h.GetEvaluations)
	e.GET("/v1/feedback/stats", h.GetFeedbackStats)
	e.GET("/v1/preferences", h.GetPreferences)
	e.POST("/v1/rank", h.Rank)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

func errorJSON(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrPreferencesNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidCategory), errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}

func intParam(c echo.Context, name string, def int) int {
	if v := c.QueryParam(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
