// Package metrics holds the Prometheus instrumentation of the assistant.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

var (
	// Conversation
	StateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_state_transitions_total",
			Help: "Total number of conversation state transitions",
		},
		[]string{"from", "to"},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "assistant_sessions_active",
			Help: "Number of conversation sessions currently running",
		},
	)

	SessionsEnded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_sessions_ended_total",
			Help: "Total number of sessions the user left with a goodbye",
		},
	)

	ShortlistSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_shortlist_size",
			Help:    "Number of ranked options per query",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20, 50},
		},
		[]string{"category"},
	)

	CandidatesFiltered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_candidates_filtered_total",
			Help: "Total number of retrieved candidates left out of the shortlist",
		},
		[]string{"category"},
	)

	SelectionLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_selection_latency_seconds",
			Help:    "Time from the first proposal to the user's choice",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"category"},
	)

	// Upstream
	RetrievalRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_retrieval_requests_total",
			Help: "Total number of POI retrieval requests per source",
		},
		[]string{"source", "status"},
	)

	RetrievalDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_retrieval_duration_seconds",
			Help:    "Duration of POI retrieval requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	LLMRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_llm_requests_total",
			Help: "Total number of language model calls",
		},
		[]string{"operation", "status"},
	)

	LLMDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_llm_duration_seconds",
			Help:    "Duration of language model calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "assistant_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	LocationCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_location_cache_hits_total",
			Help: "Total number of location lookups served from cache",
		},
	)

	LocationCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_location_cache_misses_total",
			Help: "Total number of location lookups sent upstream",
		},
	)

	PolicyDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_policy_decisions_total",
			Help: "Total number of POI admission decisions",
		},
		[]string{"category", "decision"},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "assistant_websocket_connections",
			Help: "Number of open voice gateway connections",
		},
	)
)

// DialogueObserver feeds controller measurements into the collectors above.
type DialogueObserver struct{}

// Transition implements dialogue.Observer.
func (DialogueObserver) Transition(from, to domain.State) {
	StateTransitions.WithLabelValues(string(from), string(to)).Inc()
}

// Shortlist implements dialogue.Observer.
func (DialogueObserver) Shortlist(c domain.Category, candidates, ranked int) {
	ShortlistSize.WithLabelValues(string(c)).Observe(float64(ranked))
	if dropped := candidates - ranked; dropped > 0 {
		CandidatesFiltered.WithLabelValues(string(c)).Add(float64(dropped))
	}
}

// Selected implements dialogue.Observer.
func (DialogueObserver) Selected(c domain.Category, latency time.Duration) {
	SelectionLatency.WithLabelValues(string(c)).Observe(latency.Seconds())
}

// SessionEnded implements dialogue.Observer.
func (DialogueObserver) SessionEnded() {
	SessionsEnded.Inc()
}

// ObserveLLM records the outcome of a language model call.
func ObserveLLM(operation string, start time.Time, err error) {
	LLMDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	LLMRequests.WithLabelValues(operation, status(err)).Inc()
}

// ObserveRetrieval records the outcome of a retrieval request.
func ObserveRetrieval(source string, start time.Time, err error) {
	RetrievalDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	RetrievalRequests.WithLabelValues(source, status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
