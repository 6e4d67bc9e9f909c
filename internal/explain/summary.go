package explain

import (
	"fmt"
	"strings"

	"github.com/liyecom/adpilot/internal/models"
)

// renderTemplate substitutes {signal_name} placeholders in a rationale
// template with formatted signal values. Unknown placeholders render as
// "unknown" so a partially evidenced rationale stays readable.
func renderTemplate(template string, signals models.Signals) string {
	var sb strings.Builder
	rest := template
	for {
		open := strings.Index(rest, "{")
		if open < 0 {
			sb.WriteString(rest)
			break
		}
		close := strings.Index(rest[open:], "}")
		if close < 0 {
			sb.WriteString(rest)
			break
		}
		close += open

		sb.WriteString(rest[:open])
		name := rest[open+1 : close]
		if v, ok := signals[name]; ok {
			sb.WriteString(v.Format())
		} else {
			sb.WriteString("unknown")
		}
		rest = rest[close+1:]
	}
	return sb.String()
}

// executiveSummary assembles the human-readable summary from the ranked
// causes and recommendations.
func executiveSummary(e *Explanation) string {
	if len(e.TopCauses) == 0 {
		return fmt.Sprintf("%s: no candidate causes evaluated", e.ObservationID)
	}

	top := e.TopCauses[0]
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (severity %s): most likely cause is %s (%s confidence, %d/%d evidence)",
		e.ObservationID, e.Severity, top.CauseID, top.Confidence,
		top.SatisfiedEvidence, top.TotalEvidence)

	if top.Rationale != "" {
		fmt.Fprintf(&sb, " - %s", top.Rationale)
	}

	if len(top.MissingEvidence) > 0 {
		fmt.Fprintf(&sb, ". Missing evidence: %s", strings.Join(top.MissingEvidence, ", "))
	}

	if len(e.TopCauses) > 1 {
		var others []string
		for _, c := range e.TopCauses[1:] {
			others = append(others, fmt.Sprintf("%s (%s)", c.CauseID, c.Confidence))
		}
		fmt.Fprintf(&sb, ". Also considered: %s", strings.Join(others, ", "))
	}

	for _, rec := range e.Recommendations {
		if rec.CauseID == top.CauseID {
			fmt.Fprintf(&sb, ". Suggested next step: %s (%s)", rec.Summary, rec.ActionID)
			break
		}
	}

	return sb.String()
}
