package explain

import (
	"sort"
	"time"

	"github.com/liyecom/adpilot/internal/logging"
	"github.com/liyecom/adpilot/internal/models"
	"github.com/liyecom/adpilot/internal/playbook"
)

// maxTopCauses caps the number of ranked causes in an explanation.
const maxTopCauses = 3

// BuildOptions tunes a single build call.
type BuildOptions struct {
	// TraceID correlates the explanation with the observation
	TraceID string

	// Now overrides the generation timestamp (tests)
	Now time.Time
}

// Builder produces explanations from playbooks. Stateless apart from
// the store handle; safe for concurrent use.
type Builder struct {
	playbooks *playbook.Handle
	logger    *logging.Logger
}

// NewBuilder creates an explanation builder over the playbook handle.
func NewBuilder(playbooks *playbook.Handle) *Builder {
	return &Builder{
		playbooks: playbooks,
		logger:    logging.GetLogger("explain.builder"),
	}
}

// Build evaluates every candidate cause for the observation and returns
// a ranked explanation. Missing signals degrade per-cause confidence
// rather than erroring; the only error condition is an observation id
// with no registered playbook.
func (b *Builder) Build(observationID string, signals models.Signals, opts BuildOptions) (*Explanation, error) {
	store := b.playbooks.Current()
	pb, ok := store.Get(observationID)
	if !ok {
		return nil, NewUnsupportedObservationError(observationID, store.SupportedObservations())
	}

	evaluations := make([]evaluated, 0, len(pb.Causes))
	for i, cause := range pb.Causes {
		evaluations = append(evaluations, assessCause(cause, i, signals))
	}

	rankCauses(evaluations)

	top := evaluations
	if len(top) > maxTopCauses {
		top = top[:maxTopCauses]
	}

	evidenceMap := make(map[string][]EvidenceStatus, len(evaluations))
	for _, ev := range evaluations {
		evidenceMap[ev.cause.ID] = ev.evidence
	}

	ranked := make([]RankedCause, 0, len(top))
	for _, ev := range top {
		ranked = append(ranked, RankedCause{
			CauseID:           ev.cause.ID,
			Description:       ev.cause.Description,
			Confidence:        ev.confidence(),
			Rationale:         renderTemplate(ev.cause.Rationale, signals),
			SatisfiedEvidence: ev.satisfied,
			TotalEvidence:     len(ev.evidence),
			MissingEvidence:   ev.missing,
		})
	}

	overall := ConfidenceLow
	if len(signals) > 0 && len(ranked) > 0 {
		// Minimal documented rule: overall confidence is the top cause's
		// level; low when no signals were supplied at all.
		overall = ranked[0].Confidence
	}

	generatedAt := opts.Now
	if generatedAt.IsZero() {
		generatedAt = time.Now().UTC()
	}

	explanation := &Explanation{
		ObservationID:     observationID,
		Severity:          pb.Severity,
		TopCauses:         ranked,
		CauseEvidenceMap:  evidenceMap,
		Recommendations:   recommendationsFor(pb, ranked),
		Counterfactuals:   pb.Counterfactuals,
		ConfidenceOverall: overall,
		RuleVersion:       pb.RuleVersion,
		GeneratedAt:       generatedAt,
		TraceID:           opts.TraceID,
	}
	explanation.ExecutiveSummary = executiveSummary(explanation)

	b.logger.DebugWithFields("explanation built",
		logging.Field("observation_id", observationID),
		logging.Field("top_cause", ranked[0].CauseID),
		logging.Field("confidence", string(overall)),
		logging.Field("signals", len(signals)),
	)

	return explanation, nil
}

// assessCause evaluates every trigger condition of a cause against the
// signal bag.
func assessCause(cause playbook.Cause, declIndex int, signals models.Signals) evaluated {
	ev := evaluated{cause: cause, declIndex: declIndex}

	seen := make(map[string]bool, len(cause.Evidence))
	for _, cond := range cause.Evidence {
		status := EvidenceStatus{
			Field:     cond.Field,
			Op:        cond.Op,
			Threshold: cond.Value,
			Observed:  observed(signals, cond.Field),
		}
		if signals.Has(cond.Field) {
			status.Present = true
			status.Satisfied = evalCondition(cond, signals)
		}

		ev.evidence = append(ev.evidence, status)
		if status.Present {
			ev.present++
			if status.Satisfied {
				ev.satisfied++
			}
		} else if !seen[cond.Field] {
			seen[cond.Field] = true
			ev.missing = append(ev.missing, cond.Field)
		}
	}

	return ev
}

// evalCondition applies one comparison against a present signal.
func evalCondition(cond playbook.EvidenceCondition, signals models.Signals) bool {
	if cond.Op == playbook.OpTruthy {
		if b, ok := signals.BoolValue(cond.Field); ok {
			return b
		}
		n, ok := signals.NumberValue(cond.Field)
		return ok && n != 0
	}

	n, ok := signals.NumberValue(cond.Field)
	if !ok {
		return false
	}
	switch cond.Op {
	case playbook.OpGte:
		return n >= cond.Value
	case playbook.OpGt:
		return n > cond.Value
	case playbook.OpLte:
		return n <= cond.Value
	case playbook.OpLt:
		return n < cond.Value
	case playbook.OpEq:
		return n == cond.Value
	case playbook.OpNe:
		return n != cond.Value
	default:
		return false
	}
}

// rankCauses orders evaluations deterministically: fully satisfied
// predicates first, then confidence level, then satisfied-evidence
// count, then playbook declaration order. Never random, so a rebuilt
// explanation for the same inputs is byte-for-byte stable.
func rankCauses(evaluations []evaluated) {
	sort.SliceStable(evaluations, func(i, j int) bool {
		a, b := evaluations[i], evaluations[j]

		aFull := a.present == len(a.evidence) && a.satisfied == len(a.evidence) && len(a.evidence) > 0
		bFull := b.present == len(b.evidence) && b.satisfied == len(b.evidence) && len(b.evidence) > 0
		if aFull != bFull {
			return aFull
		}

		if ar, br := a.confidence().rank(), b.confidence().rank(); ar != br {
			return ar > br
		}

		if a.satisfied != b.satisfied {
			return a.satisfied > b.satisfied
		}

		return a.declIndex < b.declIndex
	})
}

// recommendationsFor returns the playbook recommendations attached to
// the ranked causes, in ranking order.
func recommendationsFor(pb *playbook.Playbook, ranked []RankedCause) []playbook.Recommendation {
	var recs []playbook.Recommendation
	for _, cause := range ranked {
		for _, rec := range pb.Recommendations {
			if rec.CauseID == cause.CauseID {
				recs = append(recs, rec)
			}
		}
	}
	return recs
}
