// Package eligibility evaluates whether a proposed action meets the
// numeric gates of a named threshold profile. Eligibility is a pure
// function of (proposal, signals, profile): all configured gates must be
// satisfied (AND semantics), and an action outside the playbook
// whitelist is never eligible regardless of signals.
package eligibility

import (
	"fmt"
	"sort"

	"github.com/liyecom/adpilot/internal/logging"
	"github.com/liyecom/adpilot/internal/models"
	"github.com/liyecom/adpilot/internal/playbook"
)

// Reason strings for ineligibility. Machine-readable so a presentation
// layer can render them without parsing free text.
const (
	ReasonNotInWhitelist     = "not_in_whitelist"
	ReasonUnknownObservation = "unknown_observation"
	ReasonUnknownProfile     = "unknown_profile"
)

// Options selects the threshold profile for a check.
type Options struct {
	Profile string
}

// Checker evaluates proposals against playbook threshold profiles.
type Checker struct {
	playbooks *playbook.Handle
	logger    *logging.Logger
}

// NewChecker creates a checker over the playbook handle.
func NewChecker(playbooks *playbook.Handle) *Checker {
	return &Checker{
		playbooks: playbooks,
		logger:    logging.GetLogger("eligibility.checker"),
	}
}

// Check evaluates the proposal under the named profile. The verdict
// always carries at least one reason when ineligible; it never errors
// and never has side effects.
func (c *Checker) Check(proposal models.ActionProposal, signals models.Signals, opts Options) models.EligibilityVerdict {
	verdict := models.EligibilityVerdict{Profile: opts.Profile}

	pb, ok := c.playbooks.Current().Get(proposal.ObservationID)
	if !ok {
		verdict.Reasons = []string{ReasonUnknownObservation}
		return verdict
	}

	// Whitelist check short-circuits: an unsupported action can never
	// become eligible by tuning thresholds.
	if !pb.SupportsAction(proposal.ActionID) {
		verdict.Reasons = []string{ReasonNotInWhitelist}
		return verdict
	}

	thresholds, ok := pb.Profile(opts.Profile)
	if !ok {
		verdict.Reasons = []string{ReasonUnknownProfile}
		return verdict
	}

	reasons := evaluateGates(thresholds, signals)
	if len(reasons) > 0 {
		verdict.Reasons = reasons
		c.logger.DebugWithFields("proposal ineligible",
			logging.Field("proposal_id", proposal.ProposalID),
			logging.Field("action_id", proposal.ActionID),
			logging.Field("profile", opts.Profile),
			logging.Field("reasons", reasons),
		)
		return verdict
	}

	verdict.Eligible = true
	return verdict
}

// evaluateGates checks every configured gate and returns one reason per
// failure. Gates are checked in sorted key order so reasons are stable.
func evaluateGates(thresholds playbook.Thresholds, signals models.Signals) []string {
	keys := make([]string, 0, len(thresholds))
	for key := range thresholds {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var reasons []string
	for _, key := range keys {
		limit := thresholds[key]
		signal, op, err := playbook.ParseGateKey(key)
		if err != nil {
			// Load-time validation rejects malformed keys; treat a stray
			// one as a failed gate rather than silently passing
			reasons = append(reasons, fmt.Sprintf("invalid_gate:%s", key))
			continue
		}

		value, present := signals.NumberValue(signal)
		if !present {
			reasons = append(reasons, fmt.Sprintf("missing_signal:%s", signal))
			continue
		}

		if !gateSatisfied(op, value, limit) {
			reasons = append(reasons, fmt.Sprintf("%s: %s not satisfied (got %v, need %s %v)",
				key, signal, value, op, limit))
		}
	}
	return reasons
}

func gateSatisfied(op playbook.CompareOp, value, limit float64) bool {
	switch op {
	case playbook.OpGte:
		return value >= limit
	case playbook.OpGt:
		return value > limit
	case playbook.OpLte:
		return value <= limit
	case playbook.OpLt:
		return value < limit
	case playbook.OpEq:
		return value == limit
	default:
		return false
	}
}
