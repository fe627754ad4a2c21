package retriever

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xiaot623/gogo/assistant/internal/domain"
	"github.com/xiaot623/gogo/assistant/internal/metrics"
	"github.com/xiaot623/gogo/assistant/internal/policy"
)

// Retriever matches dialogue.Retriever.
type Retriever interface {
	Retrieve(ctx context.Context, prefs domain.CategoryPreferences, intent domain.Intent, loc domain.Location) ([]domain.POI, error)
}

// Admitter decides whether a candidate may be proposed.
type Admitter interface {
	Admit(ctx context.Context, category domain.Category, poi domain.POI, prefs domain.CategoryPreferences) (policy.Decision, error)
}

// AdmissionFilter drops candidates blocked by the admission policy.
type AdmissionFilter struct {
	next     Retriever
	admitter Admitter
	logger   *zap.Logger
}

// NewAdmissionFilter wraps next.
func NewAdmissionFilter(next Retriever, admitter Admitter, logger *zap.Logger) *AdmissionFilter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdmissionFilter{next: next, admitter: admitter, logger: logger}
}

// Retrieve implements dialogue.Retriever.
func (f *AdmissionFilter) Retrieve(ctx context.Context, prefs domain.CategoryPreferences, intent domain.Intent, loc domain.Location) ([]domain.POI, error) {
	pois, err := f.next.Retrieve(ctx, prefs, intent, loc)
	if err != nil {
		return nil, err
	}

	category := intent.Category
	if category == "" {
		category = prefs.Category
	}

	admitted := make([]domain.POI, 0, len(pois))
	for _, p := range pois {
		d, err := f.admitter.Admit(ctx, category, p, prefs)
		if err != nil {
			return nil, fmt.Errorf("admission policy: %w", err)
		}
		metrics.PolicyDecisions.WithLabelValues(string(category), d.Decision).Inc()
		if !d.Allowed() {
			f.logger.Debug("candidate blocked",
				zap.String("name", p.Name),
				zap.String("reason", d.Reason))
			continue
		}
		admitted = append(admitted, p)
	}
	return admitted, nil
}
