package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liyecom/adpilot/internal/models"
	"github.com/liyecom/adpilot/internal/playbook"
)

func testHandle() *playbook.Handle {
	pb := &playbook.Playbook{
		SchemaVersion: playbook.SchemaVersion,
		ObservationID: "ACOS_TOO_HIGH",
		RuleVersion:   "ACOS_TOO_HIGH@1.0.0",
		Causes:        []playbook.Cause{{ID: "SEARCH_TERM_WASTE"}},
		Actions:       []string{"add_negative_keywords"},
		Safety: playbook.SafetyLimits{
			ForbiddenTerms:       []string{"acme", "official store"},
			MinTermLength:        3,
			MaxItemsPerAction:    100,
			MaxAutoActionsPerDay: 20,
		},
	}
	store := playbook.NewStore(map[string]*playbook.Playbook{"ACOS_TOO_HIGH": pb})
	return playbook.NewHandle(store)
}

func proposal() models.ActionProposal {
	return models.ActionProposal{
		ProposalID:    "p-1",
		ObservationID: "ACOS_TOO_HIGH",
		ActionID:      "add_negative_keywords",
	}
}

func TestCheckSafe(t *testing.T) {
	limiter := NewLimiter(testHandle())

	verdict := limiter.Check(proposal(),
		models.ActionParams{Terms: []string{"cheap replacement", "used parts"}},
		models.ActionState{AutoActionsToday: 3})

	assert.True(t, verdict.Safe)
	assert.Empty(t, verdict.Violations)
}

func TestCheckForbiddenTerm(t *testing.T) {
	limiter := NewLimiter(testHandle())

	tests := []struct {
		name string
		term string
	}{
		{name: "exact match", term: "acme"},
		{name: "substring match", term: "acme pro"},
		{name: "case insensitive", term: "ACME Deluxe"},
		{name: "surrounding whitespace", term: "  Official Store  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := limiter.Check(proposal(),
				models.ActionParams{Terms: []string{tt.term}},
				models.ActionState{})
			require.False(t, verdict.Safe)
			require.Len(t, verdict.Violations, 1)
			assert.Contains(t, verdict.Violations[0], "forbidden term")
		})
	}
}

func TestCheckTermTooShort(t *testing.T) {
	limiter := NewLimiter(testHandle())

	verdict := limiter.Check(proposal(),
		models.ActionParams{Terms: []string{"ab", "valid term"}},
		models.ActionState{})

	require.False(t, verdict.Safe)
	require.Len(t, verdict.Violations, 1)
	assert.Contains(t, verdict.Violations[0], "shorter than minimum length 3")
}

func TestCheckTooManyItems(t *testing.T) {
	limiter := NewLimiter(testHandle())

	verdict := limiter.Check(proposal(),
		models.ActionParams{ItemCount: 500},
		models.ActionState{})

	require.False(t, verdict.Safe)
	assert.Contains(t, verdict.Violations[0], "500 exceeds limit 100")
}

func TestCheckItemCountDerivedFromTerms(t *testing.T) {
	limiter := NewLimiter(testHandle())

	terms := make([]string, 101)
	for i := range terms {
		terms[i] = "term number one hundred"
	}
	verdict := limiter.Check(proposal(), models.ActionParams{Terms: terms}, models.ActionState{})

	require.False(t, verdict.Safe)
	assert.Contains(t, verdict.Violations[0], "101 exceeds limit 100")
}

func TestCheckDailyCap(t *testing.T) {
	limiter := NewLimiter(testHandle())

	verdict := limiter.Check(proposal(),
		models.ActionParams{Terms: []string{"valid term"}},
		models.ActionState{AutoActionsToday: 20})

	require.False(t, verdict.Safe)
	assert.Contains(t, verdict.Violations[0], "daily action cap reached")
}

func TestCheckMultipleViolationsAllReported(t *testing.T) {
	limiter := NewLimiter(testHandle())

	verdict := limiter.Check(proposal(),
		models.ActionParams{Terms: []string{"ab", "acme pro"}, ItemCount: 300},
		models.ActionState{AutoActionsToday: 25})

	require.False(t, verdict.Safe)
	assert.Len(t, verdict.Violations, 4)
}

func TestCheckUnknownObservation(t *testing.T) {
	limiter := NewLimiter(testHandle())
	p := proposal()
	p.ObservationID = "CTR_COLLAPSE"

	verdict := limiter.Check(p, models.ActionParams{}, models.ActionState{})
	require.False(t, verdict.Safe)
	assert.Contains(t, verdict.Violations[0], "no playbook for observation")
}
