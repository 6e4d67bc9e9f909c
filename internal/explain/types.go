// Package explain builds ranked root-cause explanations for performance
// observations. Given an observation id and a signal bag, it evaluates
// every candidate cause declared in the playbook, derives a confidence
// level per cause from the available evidence, and produces a fresh
// Explanation with an executive summary and next-best-action
// recommendations. Missing evidence degrades confidence; it never errors.
package explain

import (
	"fmt"
	"strings"
	"time"

	"github.com/liyecom/adpilot/internal/models"
	"github.com/liyecom/adpilot/internal/playbook"
)

// Confidence is the derived confidence level of a cause or explanation.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// rank orders confidence levels for sorting (higher = more confident).
func (c Confidence) rank() int {
	switch c {
	case ConfidenceHigh:
		return 2
	case ConfidenceMedium:
		return 1
	default:
		return 0
	}
}

// EvidenceStatus records how one trigger condition of a cause evaluated
// against the signal bag.
type EvidenceStatus struct {
	Field     string             `json:"field"`
	Op        playbook.CompareOp `json:"op"`
	Threshold float64            `json:"threshold"`
	Present   bool               `json:"present"`
	Satisfied bool               `json:"satisfied"`
	Observed  string             `json:"observed,omitempty"`
}

// RankedCause is one candidate cause with its derived confidence.
type RankedCause struct {
	CauseID           string     `json:"cause_id"`
	Description       string     `json:"description"`
	Confidence        Confidence `json:"confidence"`
	Rationale         string     `json:"rationale"`
	SatisfiedEvidence int        `json:"satisfied_evidence"`
	TotalEvidence     int        `json:"total_evidence"`
	MissingEvidence   []string   `json:"missing_evidence,omitempty"`
}

// FullySatisfied reports whether every trigger condition of the cause
// was present and satisfied.
func (r RankedCause) FullySatisfied() bool {
	return r.TotalEvidence > 0 && r.SatisfiedEvidence == r.TotalEvidence && len(r.MissingEvidence) == 0
}

// Explanation is the output of one build call. Produced fresh per call,
// never mutated.
type Explanation struct {
	ObservationID     string                      `json:"observation_id"`
	Severity          string                      `json:"severity"`
	TopCauses         []RankedCause               `json:"top_causes"`
	CauseEvidenceMap  map[string][]EvidenceStatus `json:"cause_evidence_map"`
	Recommendations   []playbook.Recommendation   `json:"recommendations"`
	Counterfactuals   []string                    `json:"counterfactuals,omitempty"`
	ExecutiveSummary  string                      `json:"executive_summary"`
	ConfidenceOverall Confidence                  `json:"confidence_overall"`
	RuleVersion       string                      `json:"rule_version"`
	GeneratedAt       time.Time                   `json:"generated_at"`
	TraceID           string                      `json:"trace_id,omitempty"`
}

// UnsupportedObservationError reports an observation id with no
// registered playbook. It always lists the supported alternatives so
// callers can surface them to a human.
type UnsupportedObservationError struct {
	ObservationID string
	Supported     []string
}

// Error returns the error message.
func (e *UnsupportedObservationError) Error() string {
	return fmt.Sprintf("unsupported observation %q (supported: %s)",
		e.ObservationID, strings.Join(e.Supported, ", "))
}

// NewUnsupportedObservationError creates the error with a copy of the
// supported id list.
func NewUnsupportedObservationError(observationID string, supported []string) *UnsupportedObservationError {
	ids := make([]string, len(supported))
	copy(ids, supported)
	return &UnsupportedObservationError{ObservationID: observationID, Supported: ids}
}

// evaluated bundles a cause with its evidence assessment during ranking.
type evaluated struct {
	cause     playbook.Cause
	declIndex int
	evidence  []EvidenceStatus
	satisfied int
	present   int
	missing   []string
}

func (e evaluated) confidence() Confidence {
	total := len(e.evidence)
	switch {
	case total == 0:
		// A cause with no declared evidence can never be confirmed
		return ConfidenceLow
	case e.present == total && e.satisfied == total:
		return ConfidenceHigh
	case e.satisfied > 0:
		// Some evidence agrees; the rest is unconfirmed. A condition
		// that is present but failing counts the same as one that is
		// absent, so dropping a signal can never raise the level.
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// observed formats a signal value for the evidence map.
func observed(signals models.Signals, field string) string {
	v, ok := signals[field]
	if !ok {
		return ""
	}
	return v.Format()
}
