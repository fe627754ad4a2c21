package dialogue

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

// Line is one entry of the in-memory transcript.
type Line struct {
	Role domain.Role
	Text string
}

// Transcript is the conversation context owned by a session. Lines are
// written through to the store and kept in memory for the generator.
type Transcript struct {
	sessionID string
	store     TranscriptStore

	mu    sync.Mutex
	lines []Line
}

// NewTranscript creates a transcript bound to a session. store may be nil.
func NewTranscript(sessionID string, store TranscriptStore) *Transcript {
	return &Transcript{sessionID: sessionID, store: store}
}

// Append adds a line and persists it.
func (t *Transcript) Append(ctx context.Context, role domain.Role, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if t.store != nil {
		if err := t.store.AppendLine(ctx, t.sessionID, role, text); err != nil {
			return fmt.Errorf("append transcript line: %w", err)
		}
	}
	t.mu.Lock()
	t.lines = append(t.lines, Line{Role: role, Text: text})
	t.mu.Unlock()
	return nil
}

// Lines returns a copy of the in-memory lines.
func (t *Transcript) Lines() []Line {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Line(nil), t.lines...)
}

// Clear drops the in-memory context. Persisted lines are kept.
func (t *Transcript) Clear() {
	t.mu.Lock()
	t.lines = nil
	t.mu.Unlock()
}

// String renders the transcript as the generator sees it: prompts verbatim,
// dialogue turns prefixed with the speaker.
func (t *Transcript) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var b strings.Builder
	for _, l := range t.lines {
		switch l.Role {
		case domain.RoleUser:
			b.WriteString("User: ")
		case domain.RoleAssistant:
			b.WriteString("Assistant: ")
		}
		b.WriteString(l.Text)
		b.WriteString("\n")
	}
	return b.String()
}
