package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

// GetEvaluations lists the feedback ledger.
// GET /v1/evaluations
func (h *Handler) GetEvaluations(c echo.Context) error {
	records, err := h.service.GetEvaluations(c.Request().Context())
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"evaluations": records,
	})
}

// GetFeedbackStats returns per-item rating aggregates.
// GET /v1/feedback/stats
func (h *Handler) GetFeedbackStats(c echo.Context) error {
	stats, err := h.service.GetFeedbackStats(c.Request().Context())
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"items": stats,
	})
}

// GetPreferences returns the preference document.
// GET /v1/preferences
func (h *Handler) GetPreferences(c echo.Context) error {
	prefs, err := h.service.GetPreferences(c.Request().Context())
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, prefs)
}

// RankRequest is the body of POST /v1/rank.
type RankRequest struct {
	Category    string       `json:"category"`
	Candidates  []domain.POI `json:"candidates"`
	UseFeedback bool         `json:"use_feedback"`
}

// Rank scores an ad-hoc candidate list against the stored preferences.
// POST /v1/rank
func (h *Handler) Rank(c echo.Context) error {
	var req RankRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	category, ok := domain.ParseCategory(req.Category)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown category: " + req.Category})
	}

	ranked, err := h.service.Rank(c.Request().Context(), category, req.Candidates, req.UseFeedback)
	if err != nil {
		return errorJSON(c, err)
	}
	if ranked == nil {
		ranked = []domain.RankedPOI{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"category":  category,
		"shortlist": ranked,
	})
}
