package retriever

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xiaot623/gogo/assistant/internal/domain"
	"github.com/xiaot623/gogo/assistant/internal/metrics"
)

// GuardConfig configures the rate limit and circuit breaker of a source.
type GuardConfig struct {
	RequestsPerSecond float64
	Burst             int
	FailureThreshold  uint32
	OpenTimeout       time.Duration
}

// Guarded wraps a Source with a client-side rate limit and a circuit
// breaker. Upstream failures are returned as they are, never retried.
type Guarded struct {
	source  Source
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]domain.POI]
	logger  *zap.Logger
}

var _ Source = (*Guarded)(nil)

// NewGuarded wraps source.
func NewGuarded(source Source, cfg GuardConfig, logger *zap.Logger) *Guarded {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	name := source.Name()
	logger = logger.With(zap.String("source", name))
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]domain.POI](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &Guarded{
		source:  source,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		cb:      cb,
		logger:  logger,
	}
}

// Name implements Source.
func (g *Guarded) Name() string { return g.source.Name() }

// Search implements Source.
func (g *Guarded) Search(ctx context.Context, q Query) ([]domain.POI, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limit: %w", g.Name(), err)
	}

	start := time.Now()
	pois, err := g.cb.Execute(func() ([]domain.POI, error) {
		return g.source.Search(ctx, q)
	})
	metrics.ObserveRetrieval(g.Name(), start, err)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			g.logger.Warn("request rejected by circuit breaker", zap.Error(err))
		}
		return nil, fmt.Errorf("%s: %w", g.Name(), err)
	}
	return pois, nil
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return 0
}
