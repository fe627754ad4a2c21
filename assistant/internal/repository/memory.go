package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

// Memory is an in-process SessionStore. Sessions idle for longer than the
// retention are evicted together with their lines, queries and events.
type Memory struct {
	mu       sync.Mutex
	sessions *cache.Cache
	now      func() time.Time
}

type memorySession struct {
	record  domain.SessionRecord
	lines   []domain.TranscriptLine
	queries []domain.QueryRecord
	events  []domain.Event
}

// NewMemory creates a memory store. A retention of zero keeps sessions
// forever.
func NewMemory(retention time.Duration) *Memory {
	if retention <= 0 {
		retention = cache.NoExpiration
	}
	return &Memory{
		sessions: cache.New(retention, 10*time.Minute),
		now:      time.Now,
	}
}

func (m *Memory) get(sessionID string) (*memorySession, bool) {
	if x, found := m.sessions.Get(sessionID); found {
		return x.(*memorySession), true
	}
	return nil, false
}

// touch returns the session, creating it with an empty user when needed.
func (m *Memory) touch(sessionID string) *memorySession {
	s, ok := m.get(sessionID)
	if !ok {
		s = &memorySession{record: domain.SessionRecord{SessionID: sessionID, CreatedAt: m.now()}}
	}
	m.sessions.Set(sessionID, s, cache.DefaultExpiration)
	return s
}

// GetOrCreateSession gets an existing session or creates a new one.
func (m *Memory) GetOrCreateSession(ctx context.Context, sessionID, userID string) (*domain.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.touch(sessionID)
	if s.record.UserID == "" {
		s.record.UserID = userID
	}
	rec := s.record
	return &rec, nil
}

// GetSession retrieves a session by ID, or domain.ErrNotFound.
func (m *Memory) GetSession(ctx context.Context, sessionID string) (*domain.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.get(sessionID)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	rec := s.record
	return &rec, nil
}

// EndSession marks a session as ended.
func (m *Memory) EndSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.get(sessionID)
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	now := m.now()
	s.record.EndedAt = &now
	return nil
}

// ReopenSession clears the end mark of a resumed session.
func (m *Memory) ReopenSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.get(sessionID)
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	s.record.EndedAt = nil
	return nil
}

// AppendLine implements dialogue.TranscriptStore.
func (m *Memory) AppendLine(ctx context.Context, sessionID string, role domain.Role, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.touch(sessionID)
	s.lines = append(s.lines, domain.TranscriptLine{
		LineID:    "line_" + uuid.New().String()[:8],
		SessionID: sessionID,
		Role:      role,
		Text:      text,
		CreatedAt: m.now(),
	})
	return nil
}

// ListLines returns the transcript of a session in order.
func (m *Memory) ListLines(ctx context.Context, sessionID string, limit int) ([]domain.TranscriptLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.get(sessionID)
	if !ok {
		return nil, nil
	}
	lines := s.lines
	if limit > 0 && len(lines) > limit {
		lines = lines[:limit]
	}
	return append([]domain.TranscriptLine(nil), lines...), nil
}

// LogQuery implements dialogue.QueryLog.
func (m *Memory) LogQuery(ctx context.Context, sessionID, query string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.touch(sessionID)
	s.queries = append(s.queries, domain.QueryRecord{
		QueryID:   "qry_" + uuid.New().String()[:8],
		SessionID: sessionID,
		Query:     query,
		CreatedAt: m.now(),
	})
	return nil
}

// ListQueries returns the raw queries of a session, or of every session when
// sessionID is empty.
func (m *Memory) ListQueries(ctx context.Context, sessionID string) ([]domain.QueryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sessionID != "" {
		s, ok := m.get(sessionID)
		if !ok {
			return nil, nil
		}
		return append([]domain.QueryRecord(nil), s.queries...), nil
	}
	var out []domain.QueryRecord
	for _, item := range m.sessions.Items() {
		out = append(out, item.Object.(*memorySession).queries...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// RecordEvent implements dialogue.EventRecorder.
func (m *Memory) RecordEvent(ctx context.Context, event *domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.touch(event.SessionID)
	s.events = append(s.events, *event)
	return nil
}

// GetEvents retrieves the events of a session.
func (m *Memory) GetEvents(ctx context.Context, filter EventFilter) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.get(filter.SessionID)
	if !ok {
		return nil, nil
	}
	var out []domain.Event
	for _, e := range s.events {
		if filter.AfterTs > 0 && e.Ts <= filter.AfterTs {
			continue
		}
		if len(filter.Types) > 0 && !containsType(filter.Types, e.Type) {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// Close implements SessionStore.
func (m *Memory) Close() error {
	m.sessions.Flush()
	return nil
}

func containsType(types []string, t domain.EventType) bool {
	for _, v := range types {
		if strings.EqualFold(v, string(t)) {
			return true
		}
	}
	return false
}

// MemoryPreferences is an in-process preference store.
type MemoryPreferences struct {
	mu    sync.Mutex
	prefs *domain.Preferences
}

// NewMemoryPreferences creates a store holding prefs. A nil document behaves
// like a missing file.
func NewMemoryPreferences(prefs *domain.Preferences) *MemoryPreferences {
	return &MemoryPreferences{prefs: prefs}
}

// Load returns a copy of the stored document.
func (m *MemoryPreferences) Load(ctx context.Context) (*domain.Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prefs == nil {
		return nil, domain.ErrPreferencesNotFound
	}
	cp := *m.prefs
	return &cp, nil
}

// Save replaces the stored document.
func (m *MemoryPreferences) Save(ctx context.Context, prefs *domain.Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *prefs
	m.prefs = &cp
	return nil
}

// AppendHistory implements dialogue.PreferenceStore.
func (m *MemoryPreferences) AppendHistory(ctx context.Context, c domain.Category, entry domain.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prefs == nil {
		return domain.ErrPreferencesNotFound
	}
	return m.prefs.AppendHistory(c, entry)
}

// MemoryLedger is an in-process feedback ledger.
type MemoryLedger struct {
	mu      sync.Mutex
	records []domain.EvaluationRecord
}

// NewMemoryLedger creates a ledger holding records.
func NewMemoryLedger(records ...domain.EvaluationRecord) *MemoryLedger {
	return &MemoryLedger{records: records}
}

// Append implements dialogue.FeedbackLedger.
func (m *MemoryLedger) Append(ctx context.Context, rec domain.EvaluationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// ReadAll returns a copy of every record.
func (m *MemoryLedger) ReadAll(ctx context.Context) ([]domain.EvaluationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.EvaluationRecord{}, m.records...), nil
}
