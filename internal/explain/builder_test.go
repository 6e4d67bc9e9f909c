package explain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liyecom/adpilot/internal/models"
	"github.com/liyecom/adpilot/internal/playbook"
)

// acosPlaybook mirrors the bundled ACOS_TOO_HIGH document closely enough
// to exercise ranking, confidence derivation, and template rendering.
func acosPlaybook() *playbook.Playbook {
	return &playbook.Playbook{
		SchemaVersion: playbook.SchemaVersion,
		ObservationID: "ACOS_TOO_HIGH",
		RuleVersion:   "ACOS_TOO_HIGH@1.3.0",
		Severity:      "high",
		Signals: []playbook.SignalDecl{
			{Name: "acos", Type: "number"},
			{Name: "wasted_spend_ratio", Type: "number"},
			{Name: "clicks", Type: "number"},
			{Name: "avg_cpc", Type: "number"},
			{Name: "category_avg_cpc", Type: "number"},
			{Name: "days_since_launch", Type: "number"},
			{Name: "review_count", Type: "number"},
		},
		Causes: []playbook.Cause{
			{
				ID:          "SEARCH_TERM_WASTE",
				Description: "wasted search term spend",
				Rationale:   "acos is {acos} with waste ratio {wasted_spend_ratio}",
				Evidence: []playbook.EvidenceCondition{
					{Field: "acos", Op: playbook.OpGte, Value: 0.45},
					{Field: "wasted_spend_ratio", Op: playbook.OpGte, Value: 0.5},
					{Field: "clicks", Op: playbook.OpGte, Value: 100},
				},
			},
			{
				ID:          "BID_TOO_HIGH",
				Description: "bids above category level",
				Rationale:   "cpc {avg_cpc} vs category {category_avg_cpc}",
				Evidence: []playbook.EvidenceCondition{
					{Field: "acos", Op: playbook.OpGte, Value: 0.45},
					{Field: "avg_cpc", Op: playbook.OpGte, Value: 1.8},
					{Field: "category_avg_cpc", Op: playbook.OpLte, Value: 1.2},
					{Field: "clicks", Op: playbook.OpGte, Value: 100},
				},
			},
			{
				ID:          "NEW_PRODUCT_PHASE",
				Description: "listing still in launch phase",
				Rationale:   "launched {days_since_launch} days ago",
				Evidence: []playbook.EvidenceCondition{
					{Field: "days_since_launch", Op: playbook.OpLte, Value: 60},
					{Field: "review_count", Op: playbook.OpLte, Value: 50},
				},
			},
		},
		Actions: []string{"add_negative_keywords", "adjust_bids"},
		Recommendations: []playbook.Recommendation{
			{CauseID: "SEARCH_TERM_WASTE", ActionID: "add_negative_keywords", Summary: "add negatives", Risk: models.RiskLow},
			{CauseID: "BID_TOO_HIGH", ActionID: "adjust_bids", Summary: "lower bids", Risk: models.RiskMedium},
		},
		Counterfactuals: []string{"lower waste ratio would rule out search term waste"},
		Profiles: map[string]playbook.Thresholds{
			playbook.ProfileConservative: {"clicks_gte": 200},
			playbook.ProfileBalanced:     {"clicks_gte": 100},
			playbook.ProfileAggressive:   {"clicks_gte": 50},
		},
		BoundaryPairs: []playbook.BoundaryPair{{A: "SEARCH_TERM_WASTE", B: "BID_TOO_HIGH"}},
	}
}

func newTestBuilder() *Builder {
	store := playbook.NewStore(map[string]*playbook.Playbook{"ACOS_TOO_HIGH": acosPlaybook()})
	return NewBuilder(playbook.NewHandle(store))
}

func TestBuildFullEvidenceHighConfidence(t *testing.T) {
	builder := newTestBuilder()
	signals := models.Signals{
		"acos":               models.Num(0.82),
		"wasted_spend_ratio": models.Num(0.70),
		"clicks":             models.Num(250),
		"days_since_launch":  models.Num(320),
		"review_count":       models.Num(210),
	}

	explanation, err := builder.Build("ACOS_TOO_HIGH", signals, BuildOptions{TraceID: "t-1"})
	require.NoError(t, err)

	require.NotEmpty(t, explanation.TopCauses)
	top := explanation.TopCauses[0]
	assert.Equal(t, "SEARCH_TERM_WASTE", top.CauseID)
	assert.Equal(t, ConfidenceHigh, top.Confidence)
	assert.True(t, top.FullySatisfied())
	assert.Equal(t, 3, top.SatisfiedEvidence)
	assert.Equal(t, ConfidenceHigh, explanation.ConfidenceOverall)
	assert.Equal(t, "t-1", explanation.TraceID)
	assert.Equal(t, "ACOS_TOO_HIGH@1.3.0", explanation.RuleVersion)
	assert.Contains(t, top.Rationale, "0.82")
	assert.Contains(t, top.Rationale, "0.7")
	assert.NotEmpty(t, explanation.ExecutiveSummary)
}

func TestBuildSatisfiedCountBreaksTies(t *testing.T) {
	builder := newTestBuilder()
	// Both SEARCH_TERM_WASTE (3 conditions) and BID_TOO_HIGH (4 conditions)
	// are fully satisfied; the larger evidence base wins.
	signals := models.Signals{
		"acos":               models.Num(0.95),
		"wasted_spend_ratio": models.Num(0.65),
		"clicks":             models.Num(300),
		"avg_cpc":            models.Num(2.40),
		"category_avg_cpc":   models.Num(0.90),
		"days_since_launch":  models.Num(400),
		"review_count":       models.Num(500),
	}

	explanation, err := builder.Build("ACOS_TOO_HIGH", signals, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, "BID_TOO_HIGH", explanation.TopCauses[0].CauseID)
	assert.Equal(t, ConfidenceHigh, explanation.TopCauses[0].Confidence)
	assert.Equal(t, "SEARCH_TERM_WASTE", explanation.TopCauses[1].CauseID)
}

func TestBuildLaunchPhaseOutranksPartialCauses(t *testing.T) {
	builder := newTestBuilder()
	signals := models.Signals{
		"acos":              models.Num(0.75),
		"days_since_launch": models.Num(30),
		"review_count":      models.Num(15),
		"clicks":            models.Num(45),
	}

	explanation, err := builder.Build("ACOS_TOO_HIGH", signals, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, "NEW_PRODUCT_PHASE", explanation.TopCauses[0].CauseID)
	assert.Equal(t, ConfidenceHigh, explanation.TopCauses[0].Confidence)
}

func TestBuildEmptySignalsLowOverall(t *testing.T) {
	builder := newTestBuilder()

	explanation, err := builder.Build("ACOS_TOO_HIGH", models.Signals{}, BuildOptions{})
	require.NoError(t, err)

	assert.Equal(t, ConfidenceLow, explanation.ConfidenceOverall)
	for _, cause := range explanation.TopCauses {
		assert.Equal(t, ConfidenceLow, cause.Confidence)
		assert.NotEmpty(t, cause.MissingEvidence)
	}
}

func TestBuildMissingEvidenceNeverRaisesConfidence(t *testing.T) {
	builder := newTestBuilder()
	full := models.Signals{
		"acos":               models.Num(0.82),
		"wasted_spend_ratio": models.Num(0.70),
		"clicks":             models.Num(250),
	}

	base, err := builder.Build("ACOS_TOO_HIGH", full, BuildOptions{})
	require.NoError(t, err)
	baseConf := causeConfidence(t, base, "SEARCH_TERM_WASTE")

	// Removing any one signal must not raise the cause's confidence
	for name := range full {
		reduced := models.Signals{}
		for k, v := range full {
			if k != name {
				reduced[k] = v
			}
		}
		result, err := builder.Build("ACOS_TOO_HIGH", reduced, BuildOptions{})
		require.NoError(t, err)
		got := causeConfidence(t, result, "SEARCH_TERM_WASTE")
		assert.LessOrEqual(t, got.rank(), baseConf.rank(),
			"removing %s raised confidence from %s to %s", name, baseConf, got)
	}
}

func TestBuildRemovingFailingEvidenceNeverRaisesConfidence(t *testing.T) {
	builder := newTestBuilder()
	// wasted_spend_ratio is present but fails its gte trigger. An
	// unconfirmed condition weighs the same whether it is failing or
	// absent, so dropping the failing signal must not raise the level.
	contradicted := models.Signals{
		"acos":               models.Num(0.82),
		"wasted_spend_ratio": models.Num(0.20),
		"clicks":             models.Num(250),
	}

	withFailing, err := builder.Build("ACOS_TOO_HIGH", contradicted, BuildOptions{})
	require.NoError(t, err)
	base := causeConfidence(t, withFailing, "SEARCH_TERM_WASTE")
	assert.Equal(t, ConfidenceMedium, base)

	reduced := models.Signals{
		"acos":   models.Num(0.82),
		"clicks": models.Num(250),
	}
	without, err := builder.Build("ACOS_TOO_HIGH", reduced, BuildOptions{})
	require.NoError(t, err)
	got := causeConfidence(t, without, "SEARCH_TERM_WASTE")
	assert.LessOrEqual(t, got.rank(), base.rank(),
		"removing failing wasted_spend_ratio raised confidence from %s to %s", base, got)
	assert.Equal(t, ConfidenceMedium, got)
}

func causeConfidence(t *testing.T, e *Explanation, causeID string) Confidence {
	t.Helper()
	for _, cause := range e.TopCauses {
		if cause.CauseID == causeID {
			return cause.Confidence
		}
	}
	t.Fatalf("cause %s not in top causes", causeID)
	return ConfidenceLow
}

func TestBuildPartialButConsistentEvidenceIsMedium(t *testing.T) {
	builder := newTestBuilder()
	// acos and clicks satisfied, wasted_spend_ratio absent
	signals := models.Signals{
		"acos":   models.Num(0.82),
		"clicks": models.Num(250),
	}

	explanation, err := builder.Build("ACOS_TOO_HIGH", signals, BuildOptions{})
	require.NoError(t, err)
	conf := causeConfidence(t, explanation, "SEARCH_TERM_WASTE")
	assert.Equal(t, ConfidenceMedium, conf)
}

func TestBuildUnsupportedObservation(t *testing.T) {
	builder := newTestBuilder()

	_, err := builder.Build("CTR_COLLAPSE", models.Signals{}, BuildOptions{})
	require.Error(t, err)

	var unsupported *UnsupportedObservationError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "CTR_COLLAPSE", unsupported.ObservationID)
	assert.Equal(t, []string{"ACOS_TOO_HIGH"}, unsupported.Supported)
	assert.Contains(t, err.Error(), "ACOS_TOO_HIGH")
}

func TestBuildDeterministicRanking(t *testing.T) {
	builder := newTestBuilder()
	signals := models.Signals{
		"acos":   models.Num(0.55),
		"clicks": models.Num(12),
	}

	first, err := builder.Build("ACOS_TOO_HIGH", signals, BuildOptions{Now: time.Unix(1700000000, 0)})
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := builder.Build("ACOS_TOO_HIGH", signals, BuildOptions{Now: time.Unix(1700000000, 0)})
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestBuildCapsTopCauses(t *testing.T) {
	builder := newTestBuilder()

	explanation, err := builder.Build("ACOS_TOO_HIGH", models.Signals{"acos": models.Num(0.9)}, BuildOptions{})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(explanation.TopCauses), 3)
	assert.GreaterOrEqual(t, len(explanation.TopCauses), 1)
	// The evidence map still covers every evaluated cause
	assert.Len(t, explanation.CauseEvidenceMap, 3)
}

func TestRenderTemplate(t *testing.T) {
	signals := models.Signals{
		"acos":    models.Num(0.82),
		"branded": models.Bool(true),
		"note":    models.Str("spike"),
	}

	tests := []struct {
		template string
		want     string
	}{
		{"acos is {acos}", "acos is 0.82"},
		{"branded={branded} note={note}", "branded=true note=spike"},
		{"missing {nope} stays readable", "missing unknown stays readable"},
		{"no placeholders", "no placeholders"},
		{"unclosed {acos", "unclosed {acos"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, renderTemplate(tt.template, signals))
	}
}
