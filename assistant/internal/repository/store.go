package repository

import (
	"context"
	"errors"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

// SessionStore is the session side of the persistence layer, implemented by
// SQLiteStore and Memory.
type SessionStore interface {
	// Session operations
	GetOrCreateSession(ctx context.Context, sessionID, userID string) (*domain.SessionRecord, error)
	GetSession(ctx context.Context, sessionID string) (*domain.SessionRecord, error)
	EndSession(ctx context.Context, sessionID string) error
	ReopenSession(ctx context.Context, sessionID string) error

	// Transcript operations
	AppendLine(ctx context.Context, sessionID string, role domain.Role, text string) error
	ListLines(ctx context.Context, sessionID string, limit int) ([]domain.TranscriptLine, error)

	// Query log
	LogQuery(ctx context.Context, sessionID, query string) error
	ListQueries(ctx context.Context, sessionID string) ([]domain.QueryRecord, error)

	// Event operations
	RecordEvent(ctx context.Context, event *domain.Event) error
	GetEvents(ctx context.Context, filter EventFilter) ([]domain.Event, error)

	// Lifecycle
	Close() error
}

// EventFilter provides filtering options for events.
type EventFilter struct {
	SessionID string
	AfterTs   int64
	Types     []string
	Limit     int
}

var (
	_ SessionStore = (*SQLiteStore)(nil)
	_ SessionStore = (*Memory)(nil)
)

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
