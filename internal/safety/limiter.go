// Package safety enforces absolute limits that no threshold profile may
// override: forbidden terms may not enter a suppression list, candidate
// identifiers must meet a minimum length, and per-action and per-day
// quantity caps apply. Safety is independent of eligibility; a safe but
// ineligible action defers to a human, an unsafe action always blocks.
package safety

import (
	"fmt"
	"strings"

	"github.com/liyecom/adpilot/internal/logging"
	"github.com/liyecom/adpilot/internal/models"
	"github.com/liyecom/adpilot/internal/playbook"
)

// Limiter applies the playbook's safety limits to proposed actions.
type Limiter struct {
	playbooks *playbook.Handle
	logger    *logging.Logger
}

// NewLimiter creates a limiter over the playbook handle.
func NewLimiter(playbooks *playbook.Handle) *Limiter {
	return &Limiter{
		playbooks: playbooks,
		logger:    logging.GetLogger("safety.limiter"),
	}
}

// Check evaluates the proposal's parameters and current state against
// the absolute limits. Every failure is reported as a specific
// violation string, never a bare boolean, so the caller can explain the
// block to a human.
func (l *Limiter) Check(proposal models.ActionProposal, params models.ActionParams, state models.ActionState) models.SafetyVerdict {
	pb, ok := l.playbooks.Current().Get(proposal.ObservationID)
	if !ok {
		return models.SafetyVerdict{
			Violations: []string{fmt.Sprintf("no playbook for observation %q", proposal.ObservationID)},
		}
	}

	limits := pb.Safety
	var violations []string

	violations = append(violations, checkTerms(limits, params.Terms)...)

	if limits.MaxItemsPerAction > 0 && params.EffectiveItemCount() > limits.MaxItemsPerAction {
		violations = append(violations, fmt.Sprintf(
			"too many items in one action: %d exceeds limit %d",
			params.EffectiveItemCount(), limits.MaxItemsPerAction))
	}

	if limits.MaxAutoActionsPerDay > 0 && state.AutoActionsToday >= limits.MaxAutoActionsPerDay {
		violations = append(violations, fmt.Sprintf(
			"daily action cap reached: %d of %d auto actions already executed today",
			state.AutoActionsToday, limits.MaxAutoActionsPerDay))
	}

	if len(violations) > 0 {
		l.logger.WarnWithFields("safety violations",
			logging.Field("proposal_id", proposal.ProposalID),
			logging.Field("action_id", proposal.ActionID),
			logging.Field("violations", violations),
		)
		return models.SafetyVerdict{Violations: violations}
	}

	return models.SafetyVerdict{Safe: true}
}

// checkTerms validates suppression-list candidates against the
// forbidden-term filter and minimum length.
func checkTerms(limits playbook.SafetyLimits, terms []string) []string {
	var violations []string
	for _, term := range terms {
		normalized := strings.ToLower(strings.TrimSpace(term))

		if limits.MinTermLength > 0 && len(normalized) < limits.MinTermLength {
			violations = append(violations, fmt.Sprintf(
				"term %q is shorter than minimum length %d", term, limits.MinTermLength))
			continue
		}

		for _, forbidden := range limits.ForbiddenTerms {
			if strings.Contains(normalized, strings.ToLower(forbidden)) {
				violations = append(violations, fmt.Sprintf(
					"term %q matches forbidden term %q", term, forbidden))
				break
			}
		}
	}
	return violations
}
