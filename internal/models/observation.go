package models

// Observation identifies a detected performance anomaly and carries the
// evidence used to diagnose it. Observations are produced by the external
// telemetry pipeline and are immutable once created.
type Observation struct {
	// ObservationID is the anomaly type (e.g., "ACOS_TOO_HIGH")
	ObservationID string `json:"observation_id"`

	// TraceID correlates the observation across pipeline stages
	TraceID string `json:"trace_id"`

	// Signals is the typed evidence bag
	Signals Signals `json:"-"`

	// RuleVersion is the playbook version used, "<observation_id>@<semver>"
	RuleVersion string `json:"rule_version,omitempty"`
}

// ExecutionMode selects how an action proposal is carried out.
type ExecutionMode string

const (
	ModeAuto    ExecutionMode = "auto"
	ModeDryRun  ExecutionMode = "dry_run"
	ModeSuggest ExecutionMode = "suggest"
)

// RiskLevel classifies the blast radius of a proposed action.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ActionProposal links an explanation to one candidate remediation.
// Created by the caller of the Explanation Builder, consumed by the
// eligibility checker, safety limiter, and executor.
type ActionProposal struct {
	ProposalID    string        `json:"proposal_id"`
	TraceID       string        `json:"trace_id"`
	ObservationID string        `json:"observation_id"`
	CauseID       string        `json:"cause_id"`
	ActionID      string        `json:"action_id"`
	ExecutionMode ExecutionMode `json:"execution_mode"`
	RiskLevel     RiskLevel     `json:"risk_level"`
}

// ActionParams carries the concrete parameters of a proposed write.
// The safety limiter inspects these independently of any profile.
type ActionParams struct {
	// Terms are candidate entries for a suppression list
	// (e.g., negative keywords)
	Terms []string `json:"terms,omitempty"`

	// ItemCount is the number of items the action would modify.
	// Zero means "derive from Terms".
	ItemCount int `json:"item_count,omitempty"`

	// BidChangePct is the relative bid adjustment, when applicable
	BidChangePct float64 `json:"bid_change_pct,omitempty"`
}

// EffectiveItemCount returns the number of items the action touches.
func (p ActionParams) EffectiveItemCount() int {
	if p.ItemCount > 0 {
		return p.ItemCount
	}
	return len(p.Terms)
}

// ActionState is the current system-state snapshot needed for safety
// checks, supplied by the caller alongside the proposal.
type ActionState struct {
	// AutoActionsToday counts auto-executed actions in the current day
	AutoActionsToday int `json:"auto_actions_today"`
}

// EligibilityVerdict is the result of evaluating a proposal against a
// named threshold profile. Pure data; no side effects.
type EligibilityVerdict struct {
	Eligible bool     `json:"eligible"`
	Reasons  []string `json:"reasons"`
	Profile  string   `json:"profile"`
}

// SafetyVerdict is the result of the profile-independent safety check.
// Violations are always specific strings so the block can be explained
// to a human.
type SafetyVerdict struct {
	Safe       bool     `json:"safe"`
	Violations []string `json:"violations"`
}
