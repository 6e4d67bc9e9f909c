// Package outcome persists and reads the append-only audit log of
// action execution attempts. Every execution attempt (auto, dry-run,
// suggest-only, blocked) produces exactly one ActionOutcomeEvent,
// written to a day-partitioned JSONL log that is never updated or
// deleted. The effectiveness evaluator and calibration harness read the
// same log back to measure how well the automation is doing.
package outcome

import (
	"time"

	"github.com/liyecom/adpilot/internal/models"
)

// Direction is the expected movement of a metric after a successful
// action ("up" or "down").
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// MetricSnapshot captures named metric values at a point in time.
type MetricSnapshot struct {
	Values     map[string]float64 `json:"values"`
	CapturedAt time.Time          `json:"captured_at"`
}

// ActionOutcomeEvent is the immutable audit record of one execution
// attempt. Append-only: never mutated after write.
type ActionOutcomeEvent struct {
	EventID         string               `json:"event_id"`
	TraceID         string               `json:"trace_id,omitempty"`
	ObservationID   string               `json:"observation_id"`
	CauseID         string               `json:"cause_id"`
	ActionID        string               `json:"action_id"`
	ExecutionMode   models.ExecutionMode `json:"execution_mode"`
	Status          string               `json:"status"`
	Success         bool                 `json:"success"`
	Before          *MetricSnapshot      `json:"before_metrics,omitempty"`
	After           *MetricSnapshot      `json:"after_metrics,omitempty"`
	Delta           map[string]float64   `json:"delta,omitempty"`
	MissingEvidence []string             `json:"missing_evidence,omitempty"`
	Notes           string               `json:"notes,omitempty"`
	Timestamp       time.Time            `json:"timestamp"`
}

// ComputeDelta returns after[k] - before[k] for every key present in
// both snapshots. A metric absent from either snapshot is omitted from
// the delta, never defaulted to zero.
func ComputeDelta(before, after *MetricSnapshot) map[string]float64 {
	if before == nil || after == nil {
		return nil
	}
	delta := make(map[string]float64)
	for key, afterValue := range after.Values {
		if beforeValue, ok := before.Values[key]; ok {
			delta[key] = afterValue - beforeValue
		}
	}
	if len(delta) == 0 {
		return nil
	}
	return delta
}

// DeriveSuccess compares the observed direction of the primary metric
// against the expected direction. Returns (success, known): known is
// false when the primary metric is absent from the delta, in which case
// the caller records the attempt without a success claim.
func DeriveSuccess(delta map[string]float64, primaryMetric string, expected Direction) (bool, bool) {
	change, ok := delta[primaryMetric]
	if !ok {
		return false, false
	}
	switch expected {
	case DirectionUp:
		return change > 0, true
	case DirectionDown:
		return change < 0, true
	default:
		return false, false
	}
}

// TimeWindow bounds a batch read of outcome events.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within the window (inclusive start,
// exclusive end).
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}
