package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

// PreferencesFile stores the preference document as one JSON file.
// Concurrent writers in different processes are last-writer-wins.
type PreferencesFile struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewPreferencesFile creates a preference store backed by path.
func NewPreferencesFile(path string) *PreferencesFile {
	return &PreferencesFile{path: path, now: time.Now}
}

// Path returns the backing file path.
func (p *PreferencesFile) Path() string {
	return p.path
}

// Exists reports whether the preference file exists.
func (p *PreferencesFile) Exists() bool {
	_, err := os.Stat(p.path)
	return err == nil
}

// IsEmpty reports whether the file is missing, blank or an empty object.
func (p *PreferencesFile) IsEmpty() bool {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return true
	}
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("{}"))
}

// Load reads the preference document.
func (p *PreferencesFile) Load(ctx context.Context) (*domain.Preferences, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.load()
}

func (p *PreferencesFile) load() (*domain.Preferences, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", p.path, domain.ErrPreferencesNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read preferences: %w", err)
	}
	var prefs domain.Preferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("decode preferences %s: %w", p.path, err)
	}
	return &prefs, nil
}

// Save replaces the preference document.
func (p *PreferencesFile) Save(ctx context.Context, prefs *domain.Preferences) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return writeJSON(p.path, prefs)
}

// AppendHistory implements dialogue.PreferenceStore. A zero timestamp is set
// to the current time.
func (p *PreferencesFile) AppendHistory(ctx context.Context, c domain.Category, entry domain.HistoryEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	prefs, err := p.load()
	if err != nil {
		return err
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = p.now()
	}
	if err := prefs.AppendHistory(c, entry); err != nil {
		return err
	}
	return writeJSON(p.path, prefs)
}

// LedgerFile stores evaluation records as an append-only JSON array.
type LedgerFile struct {
	mu   sync.Mutex
	path string
}

// NewLedgerFile creates a feedback ledger backed by path.
func NewLedgerFile(path string) *LedgerFile {
	return &LedgerFile{path: path}
}

// ReadAll returns every record. A missing or blank file is an empty ledger.
func (l *LedgerFile) ReadAll(ctx context.Context) ([]domain.EvaluationRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readAll()
}

func (l *LedgerFile) readAll() ([]domain.EvaluationRecord, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.EvaluationRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read feedback ledger: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []domain.EvaluationRecord{}, nil
	}
	var records []domain.EvaluationRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode feedback ledger %s: %w", l.path, err)
	}
	return records, nil
}

// Append implements dialogue.FeedbackLedger.
func (l *LedgerFile) Append(ctx context.Context, rec domain.EvaluationRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.readAll()
	if err != nil {
		return err
	}
	return writeJSON(l.path, append(records, rec))
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
