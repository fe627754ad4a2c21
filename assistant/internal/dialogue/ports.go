package dialogue

import (
	"context"
	"time"

	"github.com/xiaot623/gogo/assistant/internal/domain"
	"github.com/xiaot623/gogo/assistant/internal/ranking"
)

// Capturer returns the next user utterance. An empty string means nothing
// was heard within maxDuration; an error means the input channel is gone.
type Capturer interface {
	Capture(ctx context.Context, maxDuration time.Duration) (string, error)
}

// Speaker says a line to the user.
type Speaker interface {
	Say(ctx context.Context, text string) error
}

// Classifier derives the intent of a user query.
type Classifier interface {
	Classify(ctx context.Context, query string) (domain.Intent, error)
}

// Retriever returns the unranked candidates near a location. An empty result
// means nothing was found.
type Retriever interface {
	Retrieve(ctx context.Context, prefs domain.CategoryPreferences, intent domain.Intent, loc domain.Location) ([]domain.POI, error)
}

// Ranker scores and orders candidates.
type Ranker interface {
	Strategy(c domain.Category) (ranking.Strategy, error)
	Rank(ctx context.Context, strategy ranking.Strategy, prefs domain.CategoryPreferences, candidates []domain.POI, useFeedback bool) ([]domain.RankedPOI, error)
}

// Generator turns a prompt and the conversation so far into an utterance.
// It never fails; provider errors produce a fallback apology.
type Generator interface {
	Generate(ctx context.Context, prompt, transcript string) string
}

// PreferenceStore loads preferences and appends selection history.
type PreferenceStore interface {
	Load(ctx context.Context) (*domain.Preferences, error)
	AppendHistory(ctx context.Context, c domain.Category, entry domain.HistoryEntry) error
}

// FeedbackLedger stores evaluation records.
type FeedbackLedger interface {
	Append(ctx context.Context, rec domain.EvaluationRecord) error
}

// TranscriptStore persists transcript lines.
type TranscriptStore interface {
	AppendLine(ctx context.Context, sessionID string, role domain.Role, text string) error
}

// QueryLog records raw user queries.
type QueryLog interface {
	LogQuery(ctx context.Context, sessionID, query string) error
}

// EventRecorder records session trace events.
type EventRecorder interface {
	RecordEvent(ctx context.Context, event *domain.Event) error
}

// Locator returns the current vehicle location.
type Locator interface {
	Locate(ctx context.Context) (domain.Location, error)
}

// RatingCollector asks the user to rate the presented items.
type RatingCollector interface {
	Collect(ctx context.Context, items []domain.RankedPOI) (map[string]int, error)
}

// QualityScorer scores a generated utterance against the proposed names.
type QualityScorer interface {
	Score(utterance string, proposed []string) domain.Quality
}

// Observer receives controller measurements.
type Observer interface {
	Transition(from, to domain.State)
	Shortlist(c domain.Category, candidates, ranked int)
	Selected(c domain.Category, latency time.Duration)
	SessionEnded()
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type nopObserver struct{}

func (nopObserver) Transition(from, to domain.State) {}
func (nopObserver) Shortlist(c domain.Category, candidates, n int) {}
func (nopObserver) Selected(c domain.Category, d time.Duration) {}
func (nopObserver) SessionEnded() {}
