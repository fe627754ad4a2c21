package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

func TestDialogueObserver(t *testing.T) {
	var o DialogueObserver

	before := testutil.ToFloat64(StateTransitions.WithLabelValues("IDLE", "ASK_QUESTION"))
	o.Transition(domain.StateIdle, domain.StateAskQuestion)
	assert.Equal(t, before+1, testutil.ToFloat64(StateTransitions.WithLabelValues("IDLE", "ASK_QUESTION")))

	filtered := testutil.ToFloat64(CandidatesFiltered.WithLabelValues("hobbies"))
	o.Shortlist(domain.CategoryHobbies, 5, 3)
	assert.Equal(t, filtered+2, testutil.ToFloat64(CandidatesFiltered.WithLabelValues("hobbies")))

	ended := testutil.ToFloat64(SessionsEnded)
	o.SessionEnded()
	assert.Equal(t, ended+1, testutil.ToFloat64(SessionsEnded))
}

func TestObserveRetrievalStatus(t *testing.T) {
	errs := testutil.ToFloat64(RetrievalRequests.WithLabelValues("test", "error"))
	ObserveRetrieval("test", time.Now(), errors.New("boom"))
	assert.Equal(t, errs+1, testutil.ToFloat64(RetrievalRequests.WithLabelValues("test", "error")))
}
