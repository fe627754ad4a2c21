package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// GetTranscript retrieves the transcript of a session.
// GET /v1/sessions/:session_id/transcript
func (h *Handler) GetTranscript(c echo.Context) error {
	sessionID := c.Param("session_id")
	limit := intParam(c, "limit", 0)

	lines, err := h.service.GetTranscript(c.Request().Context(), sessionID, limit)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"lines":      lines,
	})
}

// GetSessionEvents retrieves the trace events of a session.
// GET /v1/sessions/:session_id/events?after_ts=&types=a,b&limit=
func (h *Handler) GetSessionEvents(c echo.Context) error {
	sessionID := c.Param("session_id")
	limit := intParam(c, "limit", 100)
	afterTs := int64(0)
	if t := c.QueryParam("after_ts"); t != "" {
		if val, err := strconv.ParseInt(t, 10, 64); err == nil {
			afterTs = val
		}
	}
	var types []string
	if raw := c.QueryParam("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, t)
			}
		}
	}

	events, err := h.service.GetSessionEvents(c.Request().Context(), sessionID, afterTs, types, limit)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"events": events,
	})
}

// GetQueries retrieves the raw query log.
// GET /v1/queries?session_id=
func (h *Handler) GetQueries(c echo.Context) error {
	queries, err := h.service.GetQueries(c.Request().Context(), c.QueryParam("session_id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"queries": queries,
	})
}
