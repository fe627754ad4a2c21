package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/xiaot623/gogo/assistant/internal/domain"
	"github.com/xiaot623/gogo/assistant/internal/ranking"
	"github.com/xiaot623/gogo/assistant/internal/repository"
)

// GetTranscript returns the persisted transcript of a session.
func (s *Service) GetTranscript(ctx context.Context, sessionID string, limit int) ([]domain.TranscriptLine, error) {
	if _, err := s.deps.Store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	lines, err := s.deps.Store.ListLines(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}
	return lines, nil
}

// GetSessionEvents returns the trace events of a session.
func (s *Service) GetSessionEvents(ctx context.Context, sessionID string, afterTs int64, types []string, limit int) ([]domain.Event, error) {
	if _, err := s.deps.Store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	events, err := s.deps.Store.GetEvents(ctx, repository.EventFilter{
		SessionID: sessionID,
		AfterTs:   afterTs,
		Types:     types,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get session events: %w", err)
	}
	return events, nil
}

// GetQueries returns the raw query log, optionally for one session.
func (s *Service) GetQueries(ctx context.Context, sessionID string) ([]domain.QueryRecord, error) {
	queries, err := s.deps.Store.ListQueries(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get queries: %w", err)
	}
	return queries, nil
}

// GetEvaluations returns every evaluation record.
func (s *Service) GetEvaluations(ctx context.Context) ([]domain.EvaluationRecord, error) {
	records, err := s.deps.Ledger.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read evaluations: %w", err)
	}
	return records, nil
}

// GetFeedbackStats returns the per-item rating aggregates used by ranking.
func (s *Service) GetFeedbackStats(ctx context.Context) (ranking.FeedbackIndex, error) {
	records, err := s.GetEvaluations(ctx)
	if err != nil {
		return nil, err
	}
	return ranking.BuildFeedbackIndex(records), nil
}

// GetPreferences returns the preference document.
func (s *Service) GetPreferences(ctx context.Context) (*domain.Preferences, error) {
	return s.deps.Preferences.Load(ctx)
}

// Rank scores candidates against the stored preferences. Missing
// preferences rank against an empty document.
func (s *Service) Rank(ctx context.Context, category domain.Category, candidates []domain.POI, useFeedback bool) ([]domain.RankedPOI, error) {
	prefs, err := s.deps.Preferences.Load(ctx)
	if errors.Is(err, domain.ErrPreferencesNotFound) {
		prefs = &domain.Preferences{}
	} else if err != nil {
		return nil, err
	}
	for i, c := range candidates {
		if err := c.Validate(category); err != nil {
			if errors.Is(err, domain.ErrInvalidCategory) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: candidate %d: %v", domain.ErrInvalidInput, i, err)
		}
	}
	return s.deps.Ranker.RankCategory(ctx, prefs, category, candidates, useFeedback)
}
