package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/assistant/internal/domain"
	"github.com/xiaot623/gogo/assistant/internal/ranking"
)

type scriptCapturer struct {
	replies []string
}

func (s *scriptCapturer) Capture(ctx context.Context, d time.Duration) (string, error) {
	if len(s.replies) == 0 {
		return "", errors.New("script exhausted")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

type stubClassifier struct {
	intent domain.Intent
}

func (s stubClassifier) Classify(ctx context.Context, query string) (domain.Intent, error) {
	return s.intent, nil
}

type stubRetriever struct {
	pois  []domain.POI
	err   error
	calls int
}

func (s *stubRetriever) Retrieve(ctx context.Context, prefs domain.CategoryPreferences, intent domain.Intent, loc domain.Location) ([]domain.POI, error) {
	s.calls++
	return s.pois, s.err
}

type stubGenerator struct {
	prompts []string
}

func (g *stubGenerator) Generate(ctx context.Context, prompt, transcript string) string {
	g.prompts = append(g.prompts, prompt)
	return fmt.Sprintf("reply %d", len(g.prompts))
}

func (g *stubGenerator) last() string {
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

type memPrefs struct {
	prefs   domain.Preferences
	entries []domain.HistoryEntry
}

func (m *memPrefs) Load(ctx context.Context) (*domain.Preferences, error) {
	p := m.prefs
	return &p, nil
}

func (m *memPrefs) AppendHistory(ctx context.Context, c domain.Category, entry domain.HistoryEntry) error {
	m.entries = append(m.entries, entry)
	return m.prefs.AppendHistory(c, entry)
}

type memLedger struct {
	records []domain.EvaluationRecord
}

func (m *memLedger) Append(ctx context.Context, rec domain.EvaluationRecord) error {
	m.records = append(m.records, rec)
	return nil
}

type staticLocator struct{}

func (staticLocator) Locate(ctx context.Context) (domain.Location, error) {
	return domain.Location{Latitude: 48.1, Longitude: 11.5, Label: "Munich"}, nil
}

type stubRatings struct {
	seen []string
}

func (s *stubRatings) Collect(ctx context.Context, items []domain.RankedPOI) (map[string]int, error) {
	s.seen = domain.Names(items)
	out := make(map[string]int, len(items))
	for i, item := range items {
		out[item.Name] = 5 - i
	}
	return out, nil
}

type eventLog struct {
	events []*domain.Event
}

func (e *eventLog) RecordEvent(ctx context.Context, ev *domain.Event) error {
	e.events = append(e.events, ev)
	return nil
}

func (e *eventLog) types() []domain.EventType {
	var out []domain.EventType
	for _, ev := range e.events {
		if ev.Type != domain.EventTypeStateChanged {
			out = append(out, ev.Type)
		}
	}
	return out
}

type manualClock struct {
	t time.Time
}

func (c *manualClock) Now() time.Time { return c.t }

type recordingSpeaker struct {
	lines []string
}

func (r *recordingSpeaker) Say(ctx context.Context, text string) error {
	r.lines = append(r.lines, text)
	return nil
}

type harness struct {
	ctrl      *Controller
	capturer  *scriptCapturer
	retriever *stubRetriever
	generator *stubGenerator
	prefs     *memPrefs
	ledger    *memLedger
	ratings   *stubRatings
	events    *eventLog
	clock     *manualClock
}

func stations(n int) []domain.POI {
	out := make([]domain.POI, n)
	for i := range out {
		out[i] = domain.POI{
			Name:            fmt.Sprintf("S%d", i+1),
			Provider:        "Allego",
			DistanceKm:      float64(i + 1),
			ChargingPowerKW: 50,
		}
	}
	return out
}

func newHarness(t *testing.T, pois []domain.POI, replies ...string) *harness {
	t.Helper()
	minPower := 10.0
	h := &harness{
		capturer:  &scriptCapturer{replies: replies},
		retriever: &stubRetriever{pois: pois},
		generator: &stubGenerator{},
		prefs: &memPrefs{prefs: domain.Preferences{
			Stations: domain.StationPreferences{MaxDetourKm: 10, ChargingPowerMinKW: &minPower},
		}},
		ledger:  &memLedger{},
		ratings: &stubRatings{},
		events:  &eventLog{},
		clock:   &manualClock{t: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)},
	}
	sess := NewSession("s1", "u1", nil)
	ctrl, err := NewController(sess, Deps{
		Capturer:    h.capturer,
		Classifier:  stubClassifier{intent: domain.Intent{Category: domain.CategoryStations}},
		Retriever:   h.retriever,
		Ranker:      ranking.NewEngine(nil, nil),
		Generator:   h.generator,
		Preferences: h.prefs,
		Ledger:      h.ledger,
		Locator:     staticLocator{},
		Ratings:     h.ratings,
		Events:      h.events,
		Clock:       h.clock,
	}, DefaultConfig())
	require.NoError(t, err)
	h.ctrl = ctrl
	return h
}

func (h *harness) step(t *testing.T) string {
	t.Helper()
	reply, err := h.ctrl.Step(context.Background())
	require.NoError(t, err)
	return reply
}

func (h *harness) stepUntil(t *testing.T, state domain.State) {
	t.Helper()
	for i := 0; i < 50; i++ {
		if h.ctrl.Session().State == state {
			return
		}
		h.step(t)
	}
	t.Fatalf("state %s not reached, stuck in %s", state, h.ctrl.Session().State)
}

func TestOpeningPromptAndRetry(t *testing.T) {
	h := newHarness(t, stations(3), "", "find me a charger")

	assert.Equal(t, MsgOpening, h.step(t))
	assert.Equal(t, domain.StateAskQuestion, h.ctrl.Session().State)

	assert.Equal(t, MsgRetry, h.step(t))
	assert.Equal(t, domain.StateAskQuestion, h.ctrl.Session().State)
	assert.Empty(t, h.ctrl.Session().UserQuery)

	assert.Empty(t, h.step(t))
	assert.Equal(t, domain.StateClassifyIntent, h.ctrl.Session().State)
	assert.Equal(t, "find me a charger", h.ctrl.Session().UserQuery)
}

func TestResumedSessionSkipsOpening(t *testing.T) {
	h := newHarness(t, stations(3))
	h.ctrl.Session().Greeted = true

	assert.Empty(t, h.step(t))
	assert.Equal(t, domain.StateAskQuestion, h.ctrl.Session().State)
}

func TestEmptyRetrievalEndsWithoutGenerating(t *testing.T) {
	h := newHarness(t, nil, "find me a charger")
	h.stepUntil(t, domain.StateRetrievePOIs)

	assert.Equal(t, "No stations found nearby.", h.step(t))
	assert.Equal(t, domain.StateEnd, h.ctrl.Session().State)
	assert.Empty(t, h.generator.prompts)
}

func TestEmptyShortlistEndsWithoutGenerating(t *testing.T) {
	far := []domain.POI{{Name: "Far", Provider: "x", DistanceKm: 40, ChargingPowerKW: 50}}
	h := newHarness(t, far, "find me a charger")
	h.stepUntil(t, domain.StateGetRecommendation)

	assert.Equal(t, MsgNoMatch, h.step(t))
	assert.Equal(t, domain.StateEnd, h.ctrl.Session().State)
	assert.Empty(t, h.generator.prompts)
}

func TestFirstProposalUsesTopThree(t *testing.T) {
	h := newHarness(t, stations(5), "find me a charger")
	h.stepUntil(t, domain.StateGenerateResponse)

	assert.Equal(t, "reply 1", h.step(t))
	sess := h.ctrl.Session()
	assert.Equal(t, domain.StateWaitUserResponse, sess.State)
	assert.False(t, sess.Beginning)

	prompt := h.generator.last()
	assert.Contains(t, prompt, `User request: "find me a charger"`)
	for _, name := range []string{"S1", "S2", "S3"} {
		assert.Contains(t, prompt, name)
	}
	assert.NotContains(t, prompt, "S4")

	lines := sess.Transcript.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, domain.RoleUser, lines[0].Role)
	assert.Equal(t, domain.RolePrompt, lines[1].Role)
	assert.Equal(t, domain.RoleAssistant, lines[2].Role)
}

func TestOrdinalSelectsFromWindow(t *testing.T) {
	h := newHarness(t, stations(3), "find me a charger", "the third one please")
	h.stepUntil(t, domain.StateWaitUserResponse)
	h.clock.t = h.clock.t.Add(4 * time.Second)

	h.step(t)
	assert.Equal(t, domain.StateGenerateResponse, h.ctrl.Session().State)

	h.step(t)
	sess := h.ctrl.Session()
	assert.Equal(t, domain.StateSaveFeedback, sess.State)
	require.NotNil(t, sess.Selected)
	assert.Equal(t, sess.Ranked[2].Name, sess.Selected.Name)
	assert.Equal(t, "S3", sess.Selected.Name)
	assert.Equal(t, 4*time.Second, sess.SelectionLatency)

	require.Len(t, h.prefs.entries, 1)
	assert.Equal(t, "S3", h.prefs.entries[0].Name)
	assert.True(t, h.prefs.entries[0].Used)
	assert.Equal(t, "Munich", h.prefs.entries[0].Location)

	assert.Equal(t, MsgFeedbackSaved, h.step(t))
	assert.Equal(t, domain.StateEnd, sess.State)
	require.Len(t, h.ledger.records, 1)
	rec := h.ledger.records[0]
	assert.Equal(t, []string{"S1", "S2", "S3"}, rec.Recommended)
	assert.Equal(t, "s1", rec.SessionID)
	assert.Equal(t, []string{"S1", "S2"}, rec.Relevant)
	assert.Equal(t, 0.667, rec.Precision)
	assert.Equal(t, 1.0, rec.Recall)

	assert.Contains(t, h.events.types(), domain.EventTypePOISelected)
	assert.Contains(t, h.events.types(), domain.EventTypeFeedbackSaved)
}

func TestNoOrdinalReprompts(t *testing.T) {
	h := newHarness(t, stations(3), "find me a charger", "which is the cheapest")
	h.stepUntil(t, domain.StateWaitUserResponse)

	h.step(t)
	assert.Equal(t, "reply 2", h.step(t))
	sess := h.ctrl.Session()
	assert.Equal(t, domain.StateWaitUserResponse, sess.State)
	assert.Nil(t, sess.Selected)
	assert.Contains(t, h.generator.last(), "which is the cheapest")
}

func TestShowOtherOptionsAdvancesWindow(t *testing.T) {
	h := newHarness(t, stations(7), "find me a charger", "show me other options")
	h.stepUntil(t, domain.StateWaitUserResponse)

	assert.Equal(t, MsgAlternatives, h.step(t))
	sess := h.ctrl.Session()
	assert.Equal(t, domain.StateProposeNext, sess.State)
	assert.True(t, sess.AwaitingAlternatives)

	assert.Empty(t, h.step(t))
	assert.Equal(t, 3, sess.Cursor)
	assert.Equal(t, domain.StateGenerateResponse, sess.State)

	h.step(t)
	prompt := h.generator.last()
	for _, item := range sess.Ranked[3:6] {
		assert.Contains(t, prompt, item.Name)
	}
	assert.NotContains(t, prompt, "S1 ")
	assert.NotContains(t, prompt, "S7")
	assert.False(t, sess.AwaitingAlternatives)
	assert.Equal(t, domain.StateWaitUserResponse, sess.State)
}

func TestCursorAfterRejections(t *testing.T) {
	h := newHarness(t, stations(7), "find me a charger", "another", "none of these", "other")
	h.stepUntil(t, domain.StateWaitUserResponse)
	sess := h.ctrl.Session()

	for k := 1; k <= 2; k++ {
		h.stepUntil(t, domain.StateProposeNext)
		h.step(t)
		assert.Equal(t, 3*k, sess.Cursor)
		h.stepUntil(t, domain.StateWaitUserResponse)
	}

	h.stepUntil(t, domain.StateProposeNext)
	assert.Equal(t, "No more stations to suggest.", h.step(t))
	assert.Equal(t, domain.StateEnd, sess.State)
	assert.Equal(t, 6, sess.Cursor)
}

func TestEndAcceptResetsSession(t *testing.T) {
	h := newHarness(t, stations(3), "find me a charger", "the first one", "sure")
	h.stepUntil(t, domain.StateEnd)

	assert.Equal(t, MsgAnythingElse, h.step(t))
	assert.Equal(t, MsgOpening, h.step(t))

	sess := h.ctrl.Session()
	assert.Equal(t, domain.StateAskQuestion, sess.State)
	assert.Empty(t, sess.UserQuery)
	assert.Nil(t, sess.Selected)
	assert.Zero(t, sess.Cursor)
	assert.True(t, sess.Beginning)
	assert.Empty(t, sess.Transcript.Lines())
	assert.Equal(t, "s1", sess.ID)

	prefs, err := h.prefs.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, prefs.Stations.History, 1)
	assert.Equal(t, "S1", prefs.Stations.History[0].Name)
	assert.Contains(t, h.events.types(), domain.EventTypeSessionReset)
}

func TestEndDeclineExits(t *testing.T) {
	h := newHarness(t, nil, "find me a charger", "", "no thanks")
	h.stepUntil(t, domain.StateEnd)

	assert.Equal(t, MsgAnythingElse, h.step(t))
	assert.Equal(t, MsgRetry, h.step(t))
	assert.Equal(t, MsgGoodbye, h.step(t))
	assert.True(t, h.ctrl.Session().Exit)

	_, err := h.ctrl.Step(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestEndUnclearReplyReprompts(t *testing.T) {
	h := newHarness(t, stations(3), "find me a charger", "the first one", "find me a restaurant", "no")
	h.stepUntil(t, domain.StateEnd)

	assert.Equal(t, MsgAnythingElse, h.step(t))
	assert.Equal(t, MsgContinue, h.step(t))
	assert.Equal(t, domain.StateEnd, h.ctrl.Session().State)
	assert.False(t, h.ctrl.Session().Exit)

	assert.Equal(t, MsgGoodbye, h.step(t))
	assert.True(t, h.ctrl.Session().Exit)
}

func TestRetrievalErrorPropagates(t *testing.T) {
	h := newHarness(t, nil, "find me a charger")
	boom := errors.New("upstream 503")
	h.retriever.err = boom
	h.stepUntil(t, domain.StateRetrievePOIs)

	_, err := h.ctrl.Step(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), string(domain.StateRetrievePOIs))
}

func TestUnknownCategoryFallsBackToStations(t *testing.T) {
	h := newHarness(t, stations(3), "something")
	h.ctrl.deps.Classifier = stubClassifier{intent: domain.Intent{Category: "weather"}}
	h.stepUntil(t, domain.StateRetrievePOIs)

	sess := h.ctrl.Session()
	assert.Equal(t, domain.CategoryStations, sess.Category())
	assert.Equal(t, domain.CategoryStations, sess.Strategy.Category())
}

func TestIntentOverridesPreferences(t *testing.T) {
	h := newHarness(t, stations(7), "a charger within 2 km")
	radius := 2.0
	h.ctrl.deps.Classifier = stubClassifier{intent: domain.Intent{Category: domain.CategoryStations, MaxDistanceKm: &radius}}
	h.stepUntil(t, domain.StateGenerateResponse)

	assert.Equal(t, []string{"S1", "S2"}, domain.Names(h.ctrl.Session().Ranked))
}

func TestRunSpeaksUntilGoodbye(t *testing.T) {
	h := newHarness(t, stations(4), "find me a charger", "second please", "no")
	speaker := &recordingSpeaker{}

	require.NoError(t, h.ctrl.Run(context.Background(), speaker))
	assert.Equal(t, MsgOpening, speaker.lines[0])
	assert.Equal(t, MsgGoodbye, speaker.lines[len(speaker.lines)-1])
	assert.Contains(t, speaker.lines, MsgFeedbackSaved)
	assert.Equal(t, "S2", h.ctrl.Session().Selected.Name)
	assert.Equal(t, []string{"S1", "S2", "S3"}, h.ratings.seen)
	assert.Equal(t, domain.EventTypeSessionEnded, h.events.types()[len(h.events.types())-1])
}

func TestTranscriptString(t *testing.T) {
	tr := NewTranscript("s1", nil)
	ctx := context.Background()
	require.NoError(t, tr.Append(ctx, domain.RoleUser, "hi"))
	require.NoError(t, tr.Append(ctx, domain.RolePrompt, "PROMPT"))
	require.NoError(t, tr.Append(ctx, domain.RoleAssistant, " hello "))
	require.NoError(t, tr.Append(ctx, domain.RoleAssistant, "   "))

	assert.Equal(t, "User: hi\nPROMPT\nAssistant: hello\n", tr.String())
	assert.True(t, strings.HasSuffix(tr.String(), "\n"))
}
