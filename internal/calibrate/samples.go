// Package calibrate replays a labeled synthetic sample set through the
// eligibility checker and action executor under every threshold profile.
// It validates that the configured profile neither misses clear cases
// nor over-triggers on ambiguous ones, that profile permissiveness is
// monotonic, and that cause ranking is stable under small signal
// perturbations. The harness recommends profile changes; it never
// applies them.
package calibrate

import (
	"github.com/liyecom/adpilot/internal/executor"
	"github.com/liyecom/adpilot/internal/models"
)

// Group labels the expected pipeline outcome of a sample.
type Group string

const (
	// GroupAuto - clear cases that should auto-execute
	GroupAuto Group = "A"
	// GroupSuggest - ambiguous cases that should degrade to suggest-only
	GroupSuggest Group = "B"
	// GroupBlock - cases that must block or be denied
	GroupBlock Group = "C"
)

// Sample is one synthetic observation with its expected outcome.
type Sample struct {
	Name             string
	ObservationID    string
	Signals          models.Signals
	ActionID         string
	Params           models.ActionParams
	State            models.ActionState
	Expect           Group
	ExpectedTopCause string
}

// DefaultSamples is the fixed synthetic sample set for the bundled
// playbooks. Group A samples satisfy every gate of every profile with
// margin; group B samples sit between conservative and aggressive gates
// or lack evidence; group C samples violate safety limits or reference
// unsupported actions.
func DefaultSamples() []Sample {
	return []Sample{
		{
			Name:          "clear_search_term_waste",
			ObservationID: "ACOS_TOO_HIGH",
			Signals: models.Signals{
				"acos":               models.Num(0.82),
				"target_acos":        models.Num(0.30),
				"wasted_spend_ratio": models.Num(0.70),
				"clicks":             models.Num(250),
				"spend":              models.Num(140),
				"days_since_launch":  models.Num(320),
				"review_count":       models.Num(210),
			},
			ActionID:         executor.ActionAddNegativeKeywords,
			Params:           models.ActionParams{Terms: []string{"cheap replacement", "used parts"}},
			Expect:           GroupAuto,
			ExpectedTopCause: "SEARCH_TERM_WASTE",
		},
		{
			Name:          "clear_bid_overshoot",
			ObservationID: "ACOS_TOO_HIGH",
			Signals: models.Signals{
				"acos":               models.Num(0.95),
				"target_acos":        models.Num(0.30),
				"avg_cpc":            models.Num(2.40),
				"category_avg_cpc":   models.Num(0.90),
				"wasted_spend_ratio": models.Num(0.65),
				"clicks":             models.Num(300),
				"spend":              models.Num(200),
				"days_since_launch":  models.Num(400),
				"review_count":       models.Num(500),
			},
			ActionID:         executor.ActionAdjustBids,
			Params:           models.ActionParams{BidChangePct: -15},
			Expect:           GroupAuto,
			ExpectedTopCause: "BID_TOO_HIGH",
		},
		{
			Name:          "ambiguous_low_volume",
			ObservationID: "ACOS_TOO_HIGH",
			Signals: models.Signals{
				"acos":               models.Num(0.55),
				"target_acos":        models.Num(0.30),
				"wasted_spend_ratio": models.Num(0.35),
				"clicks":             models.Num(12),
				"spend":              models.Num(6),
			},
			ActionID: executor.ActionAddNegativeKeywords,
			Params:   models.ActionParams{Terms: []string{"irrelevant query"}},
			Expect:   GroupSuggest,
		},
		{
			Name:          "new_product_phase_no_action",
			ObservationID: "ACOS_TOO_HIGH",
			Signals: models.Signals{
				"acos":              models.Num(0.75),
				"target_acos":       models.Num(0.30),
				"days_since_launch": models.Num(30),
				"review_count":      models.Num(15),
				"clicks":            models.Num(45),
				"spend":             models.Num(25),
			},
			ActionID:         executor.ActionAdjustBids,
			Params:           models.ActionParams{BidChangePct: -10},
			Expect:           GroupSuggest,
			ExpectedTopCause: "NEW_PRODUCT_PHASE",
		},
		{
			Name:          "missing_evidence",
			ObservationID: "ACOS_TOO_HIGH",
			Signals:       models.Signals{},
			ActionID:      executor.ActionAddNegativeKeywords,
			Params:        models.ActionParams{Terms: []string{"some term"}},
			Expect:        GroupSuggest,
		},
		{
			Name:          "forbidden_brand_term",
			ObservationID: "ACOS_TOO_HIGH",
			Signals: models.Signals{
				"acos":               models.Num(0.85),
				"target_acos":        models.Num(0.30),
				"wasted_spend_ratio": models.Num(0.75),
				"clicks":             models.Num(400),
				"spend":              models.Num(250),
			},
			ActionID: executor.ActionAddNegativeKeywords,
			Params:   models.ActionParams{Terms: []string{"acme pro"}},
			Expect:   GroupBlock,
		},
		{
			Name:          "too_many_items",
			ObservationID: "WASTED_SPEND_HIGH",
			Signals: models.Signals{
				"wasted_spend_ratio": models.Num(0.80),
				"wasted_spend":       models.Num(500),
				"clicks":             models.Num(900),
				"spend":              models.Num(600),
			},
			ActionID: executor.ActionPauseTargets,
			Params:   models.ActionParams{ItemCount: 500},
			Expect:   GroupBlock,
		},
		{
			Name:          "unsupported_action",
			ObservationID: "ACOS_TOO_HIGH",
			Signals: models.Signals{
				"acos":        models.Num(0.85),
				"target_acos": models.Num(0.30),
			},
			ActionID: "delete_campaign",
			Params:   models.ActionParams{},
			Expect:   GroupBlock,
		},
	}
}
