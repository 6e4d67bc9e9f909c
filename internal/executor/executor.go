// Package executor turns an eligible, safe action proposal into a
// terminal execution status. The state machine is evaluated strictly in
// order: unsupported action, eligibility, safety, kill switch, dry-run
// override, auto execution. The force_dry_run override is structural:
// when set, the auto-execution branch is unreachable, so zero real
// writes can occur regardless of eligibility and safety outcomes.
package executor

import (
	"context"
	"strings"

	"github.com/liyecom/adpilot/internal/config"
	"github.com/liyecom/adpilot/internal/eligibility"
	"github.com/liyecom/adpilot/internal/logging"
	"github.com/liyecom/adpilot/internal/metrics"
	"github.com/liyecom/adpilot/internal/models"
	"github.com/liyecom/adpilot/internal/outcome"
	"github.com/liyecom/adpilot/internal/safety"
)

// Status is a terminal state of the execution state machine.
type Status string

const (
	StatusAutoExecuted    Status = "AUTO_EXECUTED"
	StatusDryRun          Status = "DRY_RUN"
	StatusSuggestOnly     Status = "SUGGEST_ONLY"
	StatusBlocked         Status = "BLOCKED"
	StatusDenyUnsupported Status = "DENY_UNSUPPORTED_ACTION"
)

// Recorder is the audit sink for outcome events.
type Recorder interface {
	Append(event *outcome.ActionOutcomeEvent) error
}

// Request bundles everything one execution needs. The proposal and
// signals come from the explanation stage; params and state are the
// action snapshot needed for safety checks.
type Request struct {
	Proposal models.ActionProposal
	Signals  models.Signals
	Params   models.ActionParams
	State    models.ActionState

	// Before is the metric snapshot captured ahead of execution,
	// recorded in the outcome event for later delta computation.
	Before *outcome.MetricSnapshot

	// MissingEvidence carries the evidence fields the explanation found
	// absent, so the evaluator can rank telemetry gaps later.
	MissingEvidence []string
}

// Result is the outcome of one execution attempt.
type Result struct {
	Status     Status
	Reasons    []string // eligibility reasons when deferring to a human
	Violations []string // safety violations when blocked
	Rollback   *RollbackPayload
	Event      *outcome.ActionOutcomeEvent
}

// Executor runs the execution state machine. Stateless between
// invocations; the execution config is passed per call and read fresh,
// never cached.
type Executor struct {
	registry    *Registry
	eligibility *eligibility.Checker
	safety      *safety.Limiter
	recorder    Recorder
	metrics     *metrics.Metrics
	logger      *logging.Logger
}

// New creates an executor. metrics may be nil.
func New(registry *Registry, checker *eligibility.Checker, limiter *safety.Limiter, recorder Recorder, m *metrics.Metrics) *Executor {
	return &Executor{
		registry:    registry,
		eligibility: checker,
		safety:      limiter,
		recorder:    recorder,
		metrics:     m,
		logger:      logging.GetLogger("executor"),
	}
}

// Execute evaluates the transition rules in order and returns the
// terminal status. Every terminal state except DENY_UNSUPPORTED_ACTION
// produces exactly one outcome event; the returned status is not final
// until that audit write succeeds, so a write failure is surfaced as an
// error alongside the result and is the only condition worth retrying.
func (e *Executor) Execute(ctx context.Context, req Request, cfg config.ExecutionConfig) (*Result, error) {
	proposal := req.Proposal

	// Rule 1: unregistered action ids are denied outright. No action was
	// attempted, so no outcome event is required.
	handler, ok := e.registry.Get(proposal.ActionID)
	if !ok {
		e.count(StatusDenyUnsupported)
		e.logger.WarnWithFields("unsupported action denied",
			logging.Field("proposal_id", proposal.ProposalID),
			logging.Field("action_id", proposal.ActionID),
			logging.Field("supported", strings.Join(e.registry.IDs(), ",")),
		)
		return &Result{
			Status:  StatusDenyUnsupported,
			Reasons: []string{"supported actions: " + strings.Join(e.registry.IDs(), ", ")},
		}, nil
	}

	// Rule 2: ineligible proposals defer to a human. The action is valid
	// but confidence or thresholds are not met.
	verdict := e.eligibility.Check(proposal, req.Signals, eligibility.Options{Profile: cfg.Profile})
	if !verdict.Eligible {
		result := &Result{Status: StatusSuggestOnly, Reasons: verdict.Reasons}
		return e.finish(ctx, req, cfg, result, false, "eligibility: "+strings.Join(verdict.Reasons, "; "))
	}

	// Rule 3: safety violations always block, and always say why.
	safetyVerdict := e.safety.Check(proposal, req.Params, req.State)
	if !safetyVerdict.Safe {
		result := &Result{Status: StatusBlocked, Violations: safetyVerdict.Violations}
		return e.finish(ctx, req, cfg, result, false, "safety: "+strings.Join(safetyVerdict.Violations, "; "))
	}

	// Rule 4: a disabled kill switch fails safe to suggest-only rather
	// than silently auto-running.
	if !cfg.KillSwitchEnabled {
		result := &Result{Status: StatusSuggestOnly, Reasons: []string{"kill_switch_disabled"}}
		return e.finish(ctx, req, cfg, result, false, "kill switch disabled")
	}

	// Rule 5: the dry-run override short-circuits before any real write.
	if cfg.ForceDryRun {
		err := handler.DryRun(ctx, proposal, req.Params)
		result := &Result{Status: StatusDryRun}
		notes := "dry run ok"
		success := err == nil
		if err != nil {
			notes = "dry run failed: " + err.Error()
		}
		return e.finish(ctx, req, cfg, result, success, notes)
	}

	// Rule 6: auto execution with a rollback descriptor sufficient to
	// invert the write.
	rollback, err := handler.Apply(ctx, proposal, req.Params)
	result := &Result{Status: StatusAutoExecuted, Rollback: rollback}
	notes := "auto executed"
	success := err == nil
	if err != nil {
		notes = "execution failed: " + err.Error()
	}
	return e.finish(ctx, req, cfg, result, success, notes)
}

// finish appends the audit event for a terminal state and increments
// metrics. The result is returned even when the audit write fails so
// the caller can see what happened before deciding to retry.
func (e *Executor) finish(ctx context.Context, req Request, cfg config.ExecutionConfig, result *Result, success bool, notes string) (*Result, error) {
	e.count(result.Status)

	event := &outcome.ActionOutcomeEvent{
		TraceID:         req.Proposal.TraceID,
		ObservationID:   req.Proposal.ObservationID,
		CauseID:         req.Proposal.CauseID,
		ActionID:        req.Proposal.ActionID,
		ExecutionMode:   req.Proposal.ExecutionMode,
		Status:          string(result.Status),
		Success:         success,
		Before:          req.Before,
		MissingEvidence: req.MissingEvidence,
		Notes:           notes,
	}
	result.Event = event

	if err := e.recorder.Append(event); err != nil {
		if e.metrics != nil {
			e.metrics.OutcomeWriteErrorsTotal.Inc()
		}
		e.logger.ErrorWithErr("audit write failed", err)
		return result, err
	}
	if e.metrics != nil {
		e.metrics.OutcomeWritesTotal.Inc()
	}

	e.logger.InfoWithFields("execution finished",
		logging.Field("proposal_id", req.Proposal.ProposalID),
		logging.Field("action_id", req.Proposal.ActionID),
		logging.Field("status", string(result.Status)),
		logging.Field("success", success),
	)

	return result, nil
}

func (e *Executor) count(status Status) {
	if e.metrics != nil {
		e.metrics.ExecutionsTotal.WithLabelValues(string(status)).Inc()
	}
}
