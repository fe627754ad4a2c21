package dialogue

import (
	"time"

	"github.com/xiaot623/gogo/assistant/internal/domain"
	"github.com/xiaot623/gogo/assistant/internal/ranking"
)

// WindowSize is the number of options proposed at once.
const WindowSize = 3

// Session is the state of one conversation. It is mutated only by the
// Controller, one turn at a time.
type Session struct {
	ID     string
	UserID string
	State  domain.State

	// Beginning is set until the first proposal of a query is made.
	Beginning            bool
	AwaitingAlternatives bool
	UserQuery            string
	LastUserUtterance    string
	Intent               domain.Intent
	Strategy             ranking.Strategy
	Preferences          domain.CategoryPreferences
	Location             domain.Location
	Candidates           []domain.POI
	Ranked               []domain.RankedPOI
	// Cursor is the offset of the current proposal window in Ranked.
	Cursor           int
	Selected         *domain.RankedPOI
	Quality          domain.Quality
	SelectionLatency time.Duration
	ProposedAt       time.Time
	ContinueAsked    bool
	Exit             bool

	// Greeted is set once the opening prompt was spoken.
	Greeted    bool
	Transcript *Transcript
}

// NewSession creates a session in the idle state.
func NewSession(id, userID string, transcript *Transcript) *Session {
	if transcript == nil {
		transcript = NewTranscript(id, nil)
	}
	s := &Session{ID: id, UserID: userID, Transcript: transcript}
	s.Reset()
	s.State = domain.StateIdle
	return s
}

// Reset restores the per-query fields to their initial values. Identity,
// greeting and the transcript binding survive; the in-memory transcript
// context starts over.
func (s *Session) Reset() {
	s.Beginning = true
	s.AwaitingAlternatives = false
	s.UserQuery = ""
	s.LastUserUtterance = ""
	s.Intent = domain.Intent{}
	s.Strategy = nil
	s.Preferences = domain.CategoryPreferences{}
	s.Location = domain.Location{}
	s.Candidates = nil
	s.Ranked = nil
	s.Cursor = 0
	s.Selected = nil
	s.Quality = domain.Quality{}
	s.SelectionLatency = 0
	s.ProposedAt = time.Time{}
	s.ContinueAsked = false
	s.Exit = false
	if s.Transcript != nil {
		s.Transcript.Clear()
	}
}

// Window returns the current proposal window.
func (s *Session) Window() []domain.RankedPOI {
	if s.Cursor >= len(s.Ranked) {
		return nil
	}
	end := s.Cursor + WindowSize
	if end > len(s.Ranked) {
		end = len(s.Ranked)
	}
	return s.Ranked[s.Cursor:end]
}

// Category returns the category of the current intent.
func (s *Session) Category() domain.Category {
	return s.Intent.Category
}
