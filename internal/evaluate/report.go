package evaluate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/liyecom/adpilot/internal/outcome"
)

// CauseStats is the per-cause hit rate over the window.
type CauseStats struct {
	CauseID   string  `json:"cause_id"`
	Total     int     `json:"total"`
	Successes int     `json:"successes"`
	HitRate   float64 `json:"hit_rate"`
}

// ActionStats is the per-action success rate and average metric delta.
type ActionStats struct {
	ActionID    string             `json:"action_id"`
	Total       int                `json:"total"`
	Successes   int                `json:"successes"`
	SuccessRate float64            `json:"success_rate"`
	MeanDelta   map[string]float64 `json:"mean_delta,omitempty"`

	eventsWithDelta int
}

// MissingEvidenceStat counts how often an evidence field was absent,
// ranked to prioritize future telemetry work.
type MissingEvidenceStat struct {
	Field string `json:"field"`
	Count int    `json:"count"`
}

// ReasonCount is one failure reason with its frequency.
type ReasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// ModeComparison compares auto-executed against dry-run outcomes.
type ModeComparison struct {
	AutoTotal         int           `json:"auto_total"`
	AutoSuccesses     int           `json:"auto_successes"`
	AutoSuccessRate   float64       `json:"auto_success_rate"`
	DryRunTotal       int           `json:"dry_run_total"`
	DryRunSuccesses   int           `json:"dry_run_successes"`
	DryRunSuccessRate float64       `json:"dry_run_success_rate"`
	TopFailureReasons []ReasonCount `json:"top_failure_reasons,omitempty"`
}

// Report is the effectiveness report for one evaluation window.
// Fresh per evaluation; input events are never mutated.
type Report struct {
	Window               outcome.TimeWindow    `json:"-"`
	TotalEvents          int                   `json:"total_events"`
	Causes               []CauseStats          `json:"causes"`
	Actions              []ActionStats         `json:"actions"`
	ObservationDiversity map[string]int        `json:"observation_diversity"`
	MissingEvidence      []MissingEvidenceStat `json:"missing_evidence"`
	Modes                *ModeComparison       `json:"modes,omitempty"`
	GeneratedAt          time.Time             `json:"generated_at"`
}

// Markdown renders the report as a human-readable document.
func (r *Report) Markdown() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Effectiveness Report\n\n")
	fmt.Fprintf(&sb, "Window: %s to %s\n\n",
		r.Window.Start.UTC().Format(time.RFC3339),
		r.Window.End.UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "Events analyzed: %d\n\n", r.TotalEvents)

	if r.TotalEvents == 0 {
		sb.WriteString("No outcome events recorded in this window.\n")
		return sb.String()
	}

	sb.WriteString("## Cause hit rates\n\n")
	sb.WriteString("| Cause | Attempts | Successes | Hit rate |\n")
	sb.WriteString("|---|---:|---:|---:|\n")
	for _, c := range r.Causes {
		fmt.Fprintf(&sb, "| %s | %d | %d | %.1f%% |\n", c.CauseID, c.Total, c.Successes, c.HitRate*100)
	}
	sb.WriteString("\n")

	sb.WriteString("## Action success rates\n\n")
	sb.WriteString("| Action | Attempts | Successes | Success rate | Mean delta |\n")
	sb.WriteString("|---|---:|---:|---:|---|\n")
	for _, a := range r.Actions {
		fmt.Fprintf(&sb, "| %s | %d | %d | %.1f%% | %s |\n",
			a.ActionID, a.Total, a.Successes, a.SuccessRate*100, formatDelta(a.MeanDelta))
	}
	sb.WriteString("\n")

	sb.WriteString("## Action diversity per observation\n\n")
	sb.WriteString("| Observation | Distinct actions |\n")
	sb.WriteString("|---|---:|\n")
	for _, observationID := range sortedKeys(r.ObservationDiversity) {
		fmt.Fprintf(&sb, "| %s | %d |\n", observationID, r.ObservationDiversity[observationID])
	}
	sb.WriteString("\n")

	if len(r.MissingEvidence) > 0 {
		sb.WriteString("## Most frequently missing evidence\n\n")
		sb.WriteString("| Evidence field | Times missing |\n")
		sb.WriteString("|---|---:|\n")
		for _, m := range r.MissingEvidence {
			fmt.Fprintf(&sb, "| %s | %d |\n", m.Field, m.Count)
		}
		sb.WriteString("\n")
	}

	if r.Modes != nil {
		sb.WriteString("## Auto execution vs dry run\n\n")
		fmt.Fprintf(&sb, "- Auto: %d/%d succeeded (%.1f%%)\n",
			r.Modes.AutoSuccesses, r.Modes.AutoTotal, r.Modes.AutoSuccessRate*100)
		fmt.Fprintf(&sb, "- Dry run: %d/%d succeeded (%.1f%%)\n",
			r.Modes.DryRunSuccesses, r.Modes.DryRunTotal, r.Modes.DryRunSuccessRate*100)
		if len(r.Modes.TopFailureReasons) > 0 {
			sb.WriteString("\nTop failure reasons:\n\n")
			for _, reason := range r.Modes.TopFailureReasons {
				fmt.Fprintf(&sb, "1. %s (%d)\n", reason.Reason, reason.Count)
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func formatDelta(delta map[string]float64) string {
	if len(delta) == 0 {
		return "-"
	}
	var parts []string
	for _, metric := range sortedFloatKeys(delta) {
		parts = append(parts, fmt.Sprintf("%s %+.2f", metric, delta[metric]))
	}
	return strings.Join(parts, ", ")
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedFloatKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
