package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xiaot623/gogo/assistant/internal/adapter/location"
	"github.com/xiaot623/gogo/assistant/internal/dialogue"
	"github.com/xiaot623/gogo/assistant/internal/domain"
	"github.com/xiaot623/gogo/assistant/internal/evaluation"
	"github.com/xiaot623/gogo/assistant/internal/logging"
	"github.com/xiaot623/gogo/assistant/internal/metrics"
)

// DefaultUserID is used when a client does not identify itself.
const DefaultUserID = "driver"

// StartRequest describes a new or resumed conversation.
type StartRequest struct {
	// SessionID resumes a persisted session when set.
	SessionID string
	UserID    string
	Capturer  dialogue.Capturer
	Speaker   dialogue.Speaker
	// Location overrides the shared locator when the client reports its
	// own position.
	Location *domain.Location
}

// Conversation is one running session.
type Conversation struct {
	id         string
	controller *dialogue.Controller
	speaker    dialogue.Speaker
	svc        *Service
	closeOnce  sync.Once
	logger     *zap.Logger
}

// Start creates the controller of a conversation. A resumed session skips
// the opening prompt.
func (s *Service) Start(ctx context.Context, req StartRequest) (*Conversation, error) {
	if req.Capturer == nil || req.Speaker == nil {
		return nil, errors.New("capturer and speaker are required")
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = "sess_" + uuid.New().String()
	}
	userID := req.UserID
	if userID == "" {
		userID = DefaultUserID
	}

	resumed := false
	if req.SessionID != "" {
		_, err := s.deps.Store.GetSession(ctx, sessionID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
		resumed = err == nil
	}
	rec, err := s.deps.Store.GetOrCreateSession(ctx, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if resumed && rec.EndedAt != nil {
		if err := s.deps.Store.ReopenSession(ctx, rec.SessionID); err != nil {
			return nil, fmt.Errorf("failed to reopen session: %w", err)
		}
		rec.EndedAt = nil
	}

	logger := logging.Session(s.logger, rec.SessionID)
	sess := dialogue.NewSession(rec.SessionID, rec.UserID, dialogue.NewTranscript(rec.SessionID, s.deps.Store))
	sess.Greeted = resumed

	var locator dialogue.Locator = s.deps.Locator
	if req.Location != nil {
		locator = location.NewStatic(*req.Location)
	}

	controller, err := dialogue.NewController(sess, dialogue.Deps{
		Capturer:    req.Capturer,
		Classifier:  s.deps.Classifier,
		Retriever:   s.deps.Retriever,
		Ranker:      s.deps.Ranker,
		Generator:   s.deps.Generator,
		Preferences: s.deps.Preferences,
		Ledger:      s.deps.Ledger,
		Locator:     locator,
		Ratings: evaluation.NewSpokenRatingCollector(
			req.Capturer, req.Speaker, s.opts.Dialogue.CaptureDuration, s.opts.RatingAttempts, logger),
		Queries:  s.deps.Store,
		Events:   s.deps.Store,
		Quality:  s.deps.Quality,
		Observer: s.deps.Observer,
		Logger:   s.logger,
	}, s.opts.Dialogue)
	if err != nil {
		return nil, err
	}

	metrics.SessionsActive.Inc()
	logger.Info("session started", zap.String("user_id", rec.UserID), zap.Bool("resumed", resumed))

	return &Conversation{
		id:         rec.SessionID,
		controller: controller,
		speaker:    req.Speaker,
		svc:        s,
		logger:     logger,
	}, nil
}

// ID returns the session ID.
func (c *Conversation) ID() string {
	return c.id
}

// Controller returns the dialogue controller.
func (c *Conversation) Controller() *dialogue.Controller {
	return c.controller
}

// Run drives the conversation until the user leaves or ctx ends.
func (c *Conversation) Run(ctx context.Context) error {
	err := c.controller.Run(ctx, c.speaker)
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("session failed", zap.Error(err))
	}
	return err
}

// Close marks the session ended. It is safe to call more than once.
func (c *Conversation) Close(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		metrics.SessionsActive.Dec()
		err = c.svc.deps.Store.EndSession(ctx, c.id)
		c.logger.Info("session closed")
	})
	return err
}
