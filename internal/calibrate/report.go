package calibrate

import (
	"fmt"
	"strings"
	"time"

	"github.com/liyecom/adpilot/internal/executor"
)

// SampleResult is the outcome of one sample under one profile.
type SampleResult struct {
	Sample    string          `json:"sample"`
	Profile   string          `json:"profile"`
	Status    executor.Status `json:"status"`
	Predicted Group           `json:"predicted"`
	Expected  Group           `json:"expected"`
	Agree     bool            `json:"agree"`
	Eligible  bool            `json:"eligible"`
	TopCause  string          `json:"top_cause,omitempty"`
}

// ProfileSummary aggregates agreement per profile.
type ProfileSummary struct {
	Profile       string `json:"profile"`
	Total         int    `json:"total"`
	Agreements    int    `json:"agreements"`
	EligibleCount int    `json:"eligible_count"`
}

// Report is the calibration result across all profiles.
type Report struct {
	Results                []SampleResult   `json:"results"`
	Profiles               []ProfileSummary `json:"profiles"`
	ContainmentViolations  []string         `json:"containment_violations,omitempty"`
	MonotonicityViolations []string         `json:"monotonicity_violations,omitempty"`
	RankingViolations      []string         `json:"ranking_violations,omitempty"`
	Recommended            string           `json:"recommended"`
	Accepted               bool             `json:"accepted"`
	GeneratedAt            time.Time        `json:"generated_at"`
}

// recommend picks the profile with the highest agreement, preferring
// the stricter profile on ties. The recommendation is only accepted
// when containment, monotonicity, and ranking stability all hold.
func (r *Report) recommend() {
	best := -1
	for _, summary := range r.Profiles {
		if summary.Agreements > best {
			best = summary.Agreements
			r.Recommended = summary.Profile
		}
	}
	r.Accepted = len(r.ContainmentViolations) == 0 &&
		len(r.MonotonicityViolations) == 0 &&
		len(r.RankingViolations) == 0
}

// Markdown renders the calibration report as a human-readable document.
func (r *Report) Markdown() string {
	var sb strings.Builder

	sb.WriteString("# Calibration Report\n\n")

	sb.WriteString("## Profile comparison\n\n")
	sb.WriteString("| Profile | Samples | Agreement | Eligible |\n")
	sb.WriteString("|---|---:|---:|---:|\n")
	for _, summary := range r.Profiles {
		fmt.Fprintf(&sb, "| %s | %d | %d/%d | %d |\n",
			summary.Profile, summary.Total, summary.Agreements, summary.Total, summary.EligibleCount)
	}
	sb.WriteString("\n")

	sb.WriteString("## Per-sample results\n\n")
	sb.WriteString("| Sample | Profile | Status | Predicted | Expected | Pass |\n")
	sb.WriteString("|---|---|---|---|---|---|\n")
	for _, result := range r.Results {
		pass := "ok"
		if !result.Agree {
			pass = "FAIL"
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s | %s |\n",
			result.Sample, result.Profile, result.Status, result.Predicted, result.Expected, pass)
	}
	sb.WriteString("\n")

	writeViolations(&sb, "Containment violations", r.ContainmentViolations)
	writeViolations(&sb, "Monotonicity violations", r.MonotonicityViolations)
	writeViolations(&sb, "Ranking stability violations", r.RankingViolations)

	fmt.Fprintf(&sb, "## Recommendation\n\n")
	if r.Accepted {
		fmt.Fprintf(&sb, "Recommended profile: **%s** (accepted)\n", r.Recommended)
	} else {
		fmt.Fprintf(&sb, "Recommended profile: %s - NOT accepted, violations present\n", r.Recommended)
	}

	return sb.String()
}

func writeViolations(sb *strings.Builder, title string, violations []string) {
	if len(violations) == 0 {
		return
	}
	fmt.Fprintf(sb, "## %s\n\n", title)
	for _, violation := range violations {
		fmt.Fprintf(sb, "- %s\n", violation)
	}
	sb.WriteString("\n")
}
