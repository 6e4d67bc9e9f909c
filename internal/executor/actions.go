package executor

import (
	"context"
	"fmt"

	"github.com/liyecom/adpilot/internal/logging"
	"github.com/liyecom/adpilot/internal/models"
)

// Built-in action ids.
const (
	ActionAddNegativeKeywords = "add_negative_keywords"
	ActionAdjustBids          = "adjust_bids"
	ActionPauseTargets        = "pause_low_performing_targets"
)

// NewDefaultRegistry returns a registry with the built-in campaign
// action handlers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&negativeKeywordHandler{logger: logging.GetLogger("executor.negative_keywords")})
	r.Register(&bidAdjustmentHandler{logger: logging.GetLogger("executor.adjust_bids")})
	r.Register(&pauseTargetsHandler{logger: logging.GetLogger("executor.pause_targets")})
	return r
}

// negativeKeywordHandler adds terms to a campaign's negative keyword
// list. The rollback payload carries the exact terms so the write can
// be inverted by removing them again.
type negativeKeywordHandler struct {
	logger *logging.Logger
}

func (h *negativeKeywordHandler) ID() string { return ActionAddNegativeKeywords }

func (h *negativeKeywordHandler) Apply(ctx context.Context, proposal models.ActionProposal, params models.ActionParams) (*RollbackPayload, error) {
	if len(params.Terms) == 0 {
		return nil, fmt.Errorf("no terms to add")
	}
	h.logger.InfoWithFields("adding negative keywords",
		logging.Field("proposal_id", proposal.ProposalID),
		logging.Field("terms", len(params.Terms)),
	)
	return &RollbackPayload{
		ActionID: h.ID(),
		Inverse:  "remove_negative_keywords",
		Data:     map[string]interface{}{"terms": params.Terms},
	}, nil
}

func (h *negativeKeywordHandler) DryRun(ctx context.Context, proposal models.ActionProposal, params models.ActionParams) error {
	if len(params.Terms) == 0 {
		return fmt.Errorf("no terms to add")
	}
	return nil
}

// bidAdjustmentHandler applies a relative bid change. Rollback inverts
// the percentage.
type bidAdjustmentHandler struct {
	logger *logging.Logger
}

func (h *bidAdjustmentHandler) ID() string { return ActionAdjustBids }

func (h *bidAdjustmentHandler) Apply(ctx context.Context, proposal models.ActionProposal, params models.ActionParams) (*RollbackPayload, error) {
	if params.BidChangePct == 0 {
		return nil, fmt.Errorf("bid change percentage is zero")
	}
	h.logger.InfoWithFields("adjusting bids",
		logging.Field("proposal_id", proposal.ProposalID),
		logging.Field("change_pct", params.BidChangePct),
	)
	return &RollbackPayload{
		ActionID: h.ID(),
		Inverse:  "adjust_bids",
		Data:     map[string]interface{}{"bid_change_pct": -params.BidChangePct},
	}, nil
}

func (h *bidAdjustmentHandler) DryRun(ctx context.Context, proposal models.ActionProposal, params models.ActionParams) error {
	if params.BidChangePct == 0 {
		return fmt.Errorf("bid change percentage is zero")
	}
	return nil
}

// pauseTargetsHandler pauses low-performing targets. Rollback
// re-enables the same targets.
type pauseTargetsHandler struct {
	logger *logging.Logger
}

func (h *pauseTargetsHandler) ID() string { return ActionPauseTargets }

func (h *pauseTargetsHandler) Apply(ctx context.Context, proposal models.ActionProposal, params models.ActionParams) (*RollbackPayload, error) {
	if params.EffectiveItemCount() == 0 {
		return nil, fmt.Errorf("no targets to pause")
	}
	h.logger.InfoWithFields("pausing targets",
		logging.Field("proposal_id", proposal.ProposalID),
		logging.Field("targets", params.EffectiveItemCount()),
	)
	return &RollbackPayload{
		ActionID: h.ID(),
		Inverse:  "enable_targets",
		Data:     map[string]interface{}{"targets": params.Terms},
	}, nil
}

func (h *pauseTargetsHandler) DryRun(ctx context.Context, proposal models.ActionProposal, params models.ActionParams) error {
	if params.EffectiveItemCount() == 0 {
		return fmt.Errorf("no targets to pause")
	}
	return nil
}
