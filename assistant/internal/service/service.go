// Package service wires the dialogue controller to its collaborators and
// serves the read side used by the HTTP API.
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xiaot623/gogo/assistant/internal/dialogue"
	"github.com/xiaot623/gogo/assistant/internal/domain"
	"github.com/xiaot623/gogo/assistant/internal/ranking"
	"github.com/xiaot623/gogo/assistant/internal/repository"
)

// Ledger appends and reads evaluation records.
type Ledger interface {
	dialogue.FeedbackLedger
	ReadAll(ctx context.Context) ([]domain.EvaluationRecord, error)
}

// Options holds per-session settings.
type Options struct {
	Dialogue       dialogue.Config
	RatingAttempts int
}

// Dependencies are the shared collaborators of every session.
type Dependencies struct {
	Store       repository.SessionStore
	Preferences dialogue.PreferenceStore
	Ledger      Ledger
	Classifier  dialogue.Classifier
	Retriever   dialogue.Retriever
	Ranker      *ranking.Engine
	Generator   dialogue.Generator
	Locator     dialogue.Locator
	Quality     dialogue.QualityScorer
	Observer    dialogue.Observer
	Logger      *zap.Logger
}

func (d Dependencies) validate() error {
	switch {
	case d.Store == nil:
		return errors.New("session store is required")
	case d.Preferences == nil:
		return errors.New("preference store is required")
	case d.Ledger == nil:
		return errors.New("feedback ledger is required")
	case d.Classifier == nil:
		return errors.New("classifier is required")
	case d.Retriever == nil:
		return errors.New("retriever is required")
	case d.Ranker == nil:
		return errors.New("ranker is required")
	case d.Generator == nil:
		return errors.New("generator is required")
	case d.Locator == nil:
		return errors.New("locator is required")
	}
	return nil
}

// Service creates conversations and answers read-side queries.
type Service struct {
	deps   Dependencies
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// New creates a service.
func New(deps Dependencies, opts Options) (*Service, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if opts.RatingAttempts <= 0 {
		opts.RatingAttempts = 3
	}
	return &Service{
		deps:   deps,
		opts:   opts,
		logger: deps.Logger,
		now:    time.Now,
	}, nil
}
