// Package dialogue implements the conversation controller: a state machine
// that captures the driver's request, ranks nearby options, proposes them
// three at a time and records the final choice and feedback.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xiaot623/gogo/assistant/internal/domain"
	"github.com/xiaot623/gogo/assistant/internal/evaluation"
)

// ErrSessionClosed is returned by Step once the user has left the session.
var ErrSessionClosed = errors.New("session closed")

// Replies spoken by the controller.
const (
	MsgOpening       = "What would you like to know?"
	MsgRetry         = "Sorry, I couldn't record your audio. Please try again."
	MsgNoMatch       = "None of the nearby options match your preferences."
	MsgAlternatives  = "Okay, I'll search for alternative recommendations."
	MsgFeedbackSaved = "Thanks for your feedback! It's been logged for future improvements."
	MsgAnythingElse  = "Is there anything else I can help with?"
	MsgContinue      = "Sorry, I didn't catch that. Is there anything else I can help with? Please say yes or no."
	MsgGoodbye       = "Thank you for using our service. Goodbye!"
)

// Config tunes the controller.
type Config struct {
	CaptureDuration time.Duration
	UseFeedback     bool
	Aliases         Aliases
}

// DefaultConfig returns the controller defaults.
func DefaultConfig() Config {
	return Config{
		CaptureDuration: 5 * time.Second,
		Aliases:         DefaultAliases(),
	}
}

// Deps are the collaborators of a controller. Queries, Events, Quality,
// Observer, Clock and Logger are optional.
type Deps struct {
	Capturer    Capturer
	Classifier  Classifier
	Retriever   Retriever
	Ranker      Ranker
	Generator   Generator
	Preferences PreferenceStore
	Ledger      FeedbackLedger
	Locator     Locator
	Ratings     RatingCollector

	Queries  QueryLog
	Events   EventRecorder
	Quality  QualityScorer
	Observer Observer
	Clock    Clock
	Logger   *zap.Logger
}

func (d *Deps) validate() error {
	switch {
	case d.Capturer == nil:
		return errors.New("capturer is required")
	case d.Classifier == nil:
		return errors.New("classifier is required")
	case d.Retriever == nil:
		return errors.New("retriever is required")
	case d.Ranker == nil:
		return errors.New("ranker is required")
	case d.Generator == nil:
		return errors.New("generator is required")
	case d.Preferences == nil:
		return errors.New("preference store is required")
	case d.Ledger == nil:
		return errors.New("feedback ledger is required")
	case d.Locator == nil:
		return errors.New("locator is required")
	case d.Ratings == nil:
		return errors.New("rating collector is required")
	}
	return nil
}

// Controller drives one Session through the conversation states.
type Controller struct {
	sess    *Session
	deps    Deps
	cfg     Config
	matcher *Matcher
	logger  *zap.Logger
}

// NewController creates a controller for sess.
func NewController(sess *Session, deps Deps, cfg Config) (*Controller, error) {
	if sess == nil {
		return nil, errors.New("session is required")
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	if deps.Clock == nil {
		deps.Clock = systemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.CaptureDuration <= 0 {
		cfg.CaptureDuration = DefaultConfig().CaptureDuration
	}
	if len(cfg.Aliases.Ordinals) == 0 {
		cfg.Aliases = DefaultAliases()
	}
	return &Controller{
		sess:    sess,
		deps:    deps,
		cfg:     cfg,
		matcher: NewMatcher(cfg.Aliases),
		logger:  deps.Logger.With(zap.String("session_id", sess.ID)),
	}, nil
}

// Session returns the controlled session.
func (c *Controller) Session() *Session {
	return c.sess
}

// Run steps the session until the user leaves, saying every reply.
func (c *Controller) Run(ctx context.Context, speaker Speaker) error {
	for !c.sess.Exit {
		if err := ctx.Err(); err != nil {
			return err
		}
		reply, err := c.Step(ctx)
		if err != nil {
			return err
		}
		if reply == "" {
			continue
		}
		if err := speaker.Say(ctx, reply); err != nil {
			return fmt.Errorf("say: %w", err)
		}
	}
	return nil
}

// Step performs exactly one state transition and returns the reply to say,
// which may be empty. Collaborator failures are returned unchanged apart
// from the state they occurred in.
func (c *Controller) Step(ctx context.Context) (string, error) {
	if c.sess.Exit {
		return "", ErrSessionClosed
	}

	from := c.sess.State
	var (
		reply string
		err   error
	)
	switch from {
	case domain.StateIdle:
		reply, err = c.idle(ctx)
	case domain.StateAskQuestion:
		reply, err = c.askQuestion(ctx)
	case domain.StateClassifyIntent:
		reply, err = c.classifyIntent(ctx)
	case domain.StateRetrievePOIs:
		reply, err = c.retrievePOIs(ctx)
	case domain.StateGetRecommendation:
		reply, err = c.getRecommendation(ctx)
	case domain.StateGenerateResponse:
		reply, err = c.generateResponse(ctx)
	case domain.StateWaitUserResponse:
		reply, err = c.waitUserResponse(ctx)
	case domain.StateProposeNext:
		reply, err = c.proposeNext(ctx)
	case domain.StateSaveFeedback:
		reply, err = c.saveFeedback(ctx)
	case domain.StateEnd:
		reply, err = c.end(ctx)
	default:
		err = fmt.Errorf("unknown state %q", from)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", from, err)
	}

	if err := c.transitioned(ctx, from, reply); err != nil {
		return "", err
	}
	return reply, nil
}

func (c *Controller) idle(ctx context.Context) (string, error) {
	c.sess.State = domain.StateAskQuestion
	if c.sess.Greeted {
		return "", nil
	}
	c.sess.Greeted = true
	if err := c.recordEvent(ctx, domain.EventTypeSessionStarted, nil); err != nil {
		return "", err
	}
	return MsgOpening, nil
}

func (c *Controller) askQuestion(ctx context.Context) (string, error) {
	text, err := c.deps.Capturer.Capture(ctx, c.cfg.CaptureDuration)
	if err != nil {
		return "", fmt.Errorf("capture: %w", err)
	}
	if text == "" {
		return MsgRetry, nil
	}

	c.sess.UserQuery = text
	if c.deps.Queries != nil {
		if err := c.deps.Queries.LogQuery(ctx, c.sess.ID, text); err != nil {
			return "", fmt.Errorf("log query: %w", err)
		}
	}
	if err := c.sess.Transcript.Append(ctx, domain.RoleUser, text); err != nil {
		return "", err
	}
	c.sess.State = domain.StateClassifyIntent
	return "", nil
}

func (c *Controller) classifyIntent(ctx context.Context) (string, error) {
	intent, err := c.deps.Classifier.Classify(ctx, c.sess.UserQuery)
	if err != nil {
		return "", fmt.Errorf("classify: %w", err)
	}
	category, ok := domain.ParseCategory(string(intent.Category))
	if !ok {
		category = domain.CategoryStations
	}
	intent.Category = category

	strategy, err := c.deps.Ranker.Strategy(intent.Category)
	if err != nil {
		return "", err
	}
	prefs, err := c.deps.Preferences.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load preferences: %w", err)
	}
	view, err := prefs.For(intent.Category)
	if err != nil {
		return "", err
	}

	c.sess.Intent = intent
	c.sess.Strategy = strategy
	c.sess.Preferences = view.WithIntent(intent)
	c.sess.State = domain.StateRetrievePOIs

	c.logger.Debug("intent classified",
		zap.String("category", string(intent.Category)),
		zap.Strings("keywords", intent.Keywords))
	return "", nil
}

func (c *Controller) retrievePOIs(ctx context.Context) (string, error) {
	loc, err := c.deps.Locator.Locate(ctx)
	if err != nil {
		return "", fmt.Errorf("locate: %w", err)
	}
	c.sess.Location = loc

	candidates, err := c.deps.Retriever.Retrieve(ctx, c.sess.Preferences, c.sess.Intent, loc)
	if err != nil {
		return "", fmt.Errorf("retrieve: %w", err)
	}
	c.sess.Candidates = candidates
	if len(candidates) == 0 {
		c.sess.State = domain.StateEnd
		return fmt.Sprintf("No %s found nearby.", noun(c.sess.Category())), nil
	}
	c.sess.State = domain.StateGetRecommendation
	return "", nil
}

func (c *Controller) getRecommendation(ctx context.Context) (string, error) {
	ranked, err := c.deps.Ranker.Rank(ctx, c.sess.Strategy, c.sess.Preferences, c.sess.Candidates, c.cfg.UseFeedback)
	if err != nil {
		return "", fmt.Errorf("rank: %w", err)
	}
	c.sess.Ranked = ranked
	c.sess.Cursor = 0
	c.deps.Observer.Shortlist(c.sess.Category(), len(c.sess.Candidates), len(ranked))

	if len(ranked) == 0 {
		c.sess.State = domain.StateEnd
		return MsgNoMatch, nil
	}
	c.sess.State = domain.StateGenerateResponse
	return "", nil
}

func (c *Controller) generateResponse(ctx context.Context) (string, error) {
	s := c.sess
	window := s.Window()

	switch {
	case s.Beginning, s.AwaitingAlternatives:
		reply, err := c.propose(ctx, BuildProposalPrompt(s.UserQuery, window), window)
		if err != nil {
			return "", err
		}
		if s.Beginning {
			s.ProposedAt = c.deps.Clock.Now()
		}
		s.Beginning = false
		s.AwaitingAlternatives = false
		s.State = domain.StateWaitUserResponse
		return reply, nil
	}

	history := s.Transcript.String()
	reply := c.deps.Generator.Generate(ctx, BuildFollowUpPrompt(s.LastUserUtterance, window), history)
	if err := s.Transcript.Append(ctx, domain.RoleAssistant, reply); err != nil {
		return "", err
	}
	c.scoreQuality(reply, window)

	if k, ok := c.matcher.Ordinal(s.LastUserUtterance); ok && k < len(window) {
		if err := c.selectOption(ctx, k); err != nil {
			return "", err
		}
		s.State = domain.StateSaveFeedback
		return reply, nil
	}
	s.State = domain.StateWaitUserResponse
	return reply, nil
}

func (c *Controller) propose(ctx context.Context, prompt string, window []domain.RankedPOI) (string, error) {
	history := c.sess.Transcript.String()
	if err := c.sess.Transcript.Append(ctx, domain.RolePrompt, prompt); err != nil {
		return "", err
	}
	reply := c.deps.Generator.Generate(ctx, prompt, history)
	if err := c.sess.Transcript.Append(ctx, domain.RoleAssistant, reply); err != nil {
		return "", err
	}
	c.scoreQuality(reply, window)
	return reply, nil
}

func (c *Controller) scoreQuality(reply string, window []domain.RankedPOI) {
	if c.deps.Quality == nil {
		return
	}
	c.sess.Quality = c.deps.Quality.Score(reply, domain.Names(window))
}

func (c *Controller) selectOption(ctx context.Context, k int) error {
	s := c.sess
	pos := s.Cursor + k
	item := s.Ranked[pos]
	now := c.deps.Clock.Now()

	s.Selected = &item
	if !s.ProposedAt.IsZero() {
		s.SelectionLatency = now.Sub(s.ProposedAt)
	}

	entry := domain.HistoryEntry{
		Location:  s.Location.String(),
		Name:      item.Name,
		Used:      true,
		Timestamp: now.UTC(),
	}
	if err := c.deps.Preferences.AppendHistory(ctx, s.Category(), entry); err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	c.deps.Observer.Selected(s.Category(), s.SelectionLatency)
	c.logger.Info("poi selected",
		zap.String("name", item.Name),
		zap.Int("position", pos),
		zap.Duration("latency", s.SelectionLatency))

	return c.recordEvent(ctx, domain.EventTypePOISelected, domain.POISelectedPayload{
		Category:  s.Category(),
		Name:      item.Name,
		Score:     item.Score,
		Position:  pos,
		LatencyMs: s.SelectionLatency.Milliseconds(),
	})
}

func (c *Controller) waitUserResponse(ctx context.Context) (string, error) {
	text, err := c.deps.Capturer.Capture(ctx, c.cfg.CaptureDuration)
	if err != nil {
		return "", fmt.Errorf("capture: %w", err)
	}
	if text == "" {
		return MsgRetry, nil
	}

	c.sess.LastUserUtterance = text
	if err := c.sess.Transcript.Append(ctx, domain.RoleUser, text); err != nil {
		return "", err
	}
	if c.matcher.Rejects(text) {
		c.sess.AwaitingAlternatives = true
		c.sess.State = domain.StateProposeNext
		return MsgAlternatives, nil
	}
	c.sess.State = domain.StateGenerateResponse
	return "", nil
}

func (c *Controller) proposeNext(ctx context.Context) (string, error) {
	s := c.sess
	if s.Cursor+WindowSize >= len(s.Ranked) {
		s.AwaitingAlternatives = false
		s.State = domain.StateEnd
		return fmt.Sprintf("No more %s to suggest.", noun(s.Category())), nil
	}
	s.Cursor += WindowSize
	s.State = domain.StateGenerateResponse
	return "", nil
}

func (c *Controller) saveFeedback(ctx context.Context) (string, error) {
	s := c.sess
	window := s.Window()

	ratings, err := c.deps.Ratings.Collect(ctx, window)
	if err != nil {
		return "", fmt.Errorf("collect ratings: %w", err)
	}
	rec := evaluation.Evaluate(domain.Names(window), ratings, c.deps.Clock.Now())
	rec.SessionID = s.ID
	rec.Category = s.Category()
	if err := c.deps.Ledger.Append(ctx, rec); err != nil {
		return "", fmt.Errorf("append evaluation: %w", err)
	}

	if err := c.recordEvent(ctx, domain.EventTypeFeedbackSaved, domain.FeedbackSavedPayload{
		Precision: rec.Precision,
		Recall:    rec.Recall,
		Rated:     len(ratings),
	}); err != nil {
		return "", err
	}
	s.State = domain.StateEnd
	return MsgFeedbackSaved, nil
}

func (c *Controller) end(ctx context.Context) (string, error) {
	s := c.sess
	if !s.ContinueAsked {
		s.ContinueAsked = true
		return MsgAnythingElse, nil
	}

	text, err := c.deps.Capturer.Capture(ctx, c.cfg.CaptureDuration)
	if err != nil {
		return "", fmt.Errorf("capture: %w", err)
	}
	if text == "" {
		return MsgRetry, nil
	}

	if c.matcher.Accepts(text) {
		s.Reset()
		s.State = domain.StateAskQuestion
		if err := c.recordEvent(ctx, domain.EventTypeSessionReset, nil); err != nil {
			return "", err
		}
		return MsgOpening, nil
	}
	if !c.matcher.Declines(text) {
		return MsgContinue, nil
	}

	s.Exit = true
	c.deps.Observer.SessionEnded()
	if err := c.recordEvent(ctx, domain.EventTypeSessionEnded, nil); err != nil {
		return "", err
	}
	return MsgGoodbye, nil
}

func (c *Controller) transitioned(ctx context.Context, from domain.State, reply string) error {
	to := c.sess.State
	c.deps.Observer.Transition(from, to)
	c.logger.Debug("state transition",
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return c.recordEvent(ctx, domain.EventTypeStateChanged, domain.StateChangedPayload{
		From:   from,
		To:     to,
		Output: reply,
	})
}

func (c *Controller) recordEvent(ctx context.Context, eventType domain.EventType, payload interface{}) error {
	if c.deps.Events == nil {
		return nil
	}
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", eventType, err)
		}
		raw = data
	}
	event := &domain.Event{
		EventID:   "evt_" + uuid.New().String()[:8],
		SessionID: c.sess.ID,
		Ts:        c.deps.Clock.Now().UnixMilli(),
		Type:      eventType,
		Payload:   raw,
	}
	if err := c.deps.Events.RecordEvent(ctx, event); err != nil {
		return fmt.Errorf("record %s event: %w", eventType, err)
	}
	return nil
}

func noun(c domain.Category) string {
	switch c {
	case domain.CategoryRestaurants:
		return "restaurants"
	case domain.CategoryHobbies:
		return "activities"
	}
	return "stations"
}
