// Package playbook loads the declarative rule documents that drive the
// decision engine. A playbook maps one observation type to its candidate
// causes, recommended actions, counterfactuals, eligibility threshold
// profiles, and safety limits. Playbooks are hand-authored YAML, loaded
// at startup into an immutable in-memory store, and are read-only at
// runtime.
package playbook

import (
	"fmt"
	"strings"

	"github.com/liyecom/adpilot/internal/models"
)

// SchemaVersion is the only supported playbook document schema version.
const SchemaVersion = "v1"

// Known threshold profile names, ordered by strictness.
const (
	ProfileConservative = "conservative"
	ProfileBalanced     = "balanced"
	ProfileAggressive   = "aggressive"
)

// ProfileNames lists all profiles in strictness order (most strict first).
var ProfileNames = []string{ProfileConservative, ProfileBalanced, ProfileAggressive}

// CompareOp is a predicate operator for evidence conditions and gates.
type CompareOp string

const (
	OpGte    CompareOp = "gte"
	OpGt     CompareOp = "gt"
	OpLte    CompareOp = "lte"
	OpLt     CompareOp = "lt"
	OpEq     CompareOp = "eq"
	OpNe     CompareOp = "ne"
	OpTruthy CompareOp = "truthy"
)

// SignalDecl declares one signal name and its expected type for an
// observation. The enumerated key set lets loaders validate evidence
// references instead of relying on stringly-typed runtime lookups.
type SignalDecl struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"` // number, bool, string
}

// EvidenceCondition is one trigger condition of a cause. The condition
// is evaluated against the observation's signal bag; an absent field
// degrades confidence rather than failing.
type EvidenceCondition struct {
	Field string    `yaml:"field"`
	Op    CompareOp `yaml:"op"`
	Value float64   `yaml:"value,omitempty"`
}

// Cause is one candidate root cause for an observation type.
// Confidence is derived at explanation time, never stored here.
type Cause struct {
	ID          string              `yaml:"id"`
	Description string              `yaml:"description"`
	Rationale   string              `yaml:"rationale"` // template with {signal} placeholders
	Evidence    []EvidenceCondition `yaml:"evidence"`
}

// RequiredEvidenceFields returns the distinct signal names referenced by
// the cause's trigger conditions, in declaration order.
func (c Cause) RequiredEvidenceFields() []string {
	seen := make(map[string]bool, len(c.Evidence))
	var fields []string
	for _, cond := range c.Evidence {
		if !seen[cond.Field] {
			seen[cond.Field] = true
			fields = append(fields, cond.Field)
		}
	}
	return fields
}

// Recommendation links a cause to one recommended action.
type Recommendation struct {
	ActionID string           `yaml:"action_id"`
	CauseID  string           `yaml:"cause_id"`
	Summary  string           `yaml:"summary"`
	Risk     models.RiskLevel `yaml:"risk"`
}

// Thresholds is a named set of numeric eligibility gates. Keys follow
// the "<signal>_<op>" convention (e.g., "wasted_spend_ratio_gte",
// "clicks_gte"); an action is eligible under a profile only if every
// gate is satisfied.
type Thresholds map[string]float64

// SafetyLimits are absolute, profile-independent constraints.
// No threshold profile may override them.
type SafetyLimits struct {
	ForbiddenTerms       []string `yaml:"forbidden_terms"`
	MinTermLength        int      `yaml:"min_term_length"`
	MaxItemsPerAction    int      `yaml:"max_items_per_action"`
	MaxAutoActionsPerDay int      `yaml:"max_auto_actions_per_day"`
}

// BoundaryPair documents two causes whose ranking may legitimately swap
// under small signal perturbations.
type BoundaryPair struct {
	A string `yaml:"a"`
	B string `yaml:"b"`
}

// Playbook is one versioned rule document for a single observation type.
type Playbook struct {
	SchemaVersion   string                `yaml:"schema_version"`
	ObservationID   string                `yaml:"observation_id"`
	RuleVersion     string                `yaml:"rule_version"`
	Severity        string                `yaml:"severity"`
	Signals         []SignalDecl          `yaml:"signals"`
	Causes          []Cause               `yaml:"causes"`
	Actions         []string              `yaml:"actions"` // supported action whitelist
	Recommendations []Recommendation      `yaml:"recommendations"`
	Counterfactuals []string              `yaml:"counterfactuals"`
	Profiles        map[string]Thresholds `yaml:"profiles"`
	Safety          SafetyLimits          `yaml:"safety"`
	BoundaryPairs   []BoundaryPair        `yaml:"boundary_pairs"`
}

// Cause returns the cause with the given id, if declared.
func (p *Playbook) Cause(id string) (Cause, bool) {
	for _, c := range p.Causes {
		if c.ID == id {
			return c, true
		}
	}
	return Cause{}, false
}

// SupportsAction reports whether the action id is in the whitelist.
func (p *Playbook) SupportsAction(actionID string) bool {
	for _, a := range p.Actions {
		if a == actionID {
			return true
		}
	}
	return false
}

// Profile returns the named threshold profile.
func (p *Playbook) Profile(name string) (Thresholds, bool) {
	t, ok := p.Profiles[name]
	return t, ok
}

// IsBoundaryPair reports whether the two causes are a documented
// boundary pair, in either order.
func (p *Playbook) IsBoundaryPair(a, b string) bool {
	for _, pair := range p.BoundaryPairs {
		if (pair.A == a && pair.B == b) || (pair.A == b && pair.B == a) {
			return true
		}
	}
	return false
}

// declaredSignal reports whether the field is declared in the signal set.
func (p *Playbook) declaredSignal(field string) bool {
	for _, s := range p.Signals {
		if s.Name == field {
			return true
		}
	}
	return false
}

// Validate checks structural invariants of a single playbook document.
// Returns descriptive errors for every invariant a hand-authored file
// can plausibly break.
func (p *Playbook) Validate() error {
	if p.SchemaVersion != SchemaVersion {
		return models.NewValidationError(
			"unsupported schema_version: %q (expected %q)", p.SchemaVersion, SchemaVersion)
	}
	if p.ObservationID == "" {
		return models.NewValidationError("observation_id is required")
	}
	if _, _, err := ParseRuleVersion(p.RuleVersion); err != nil {
		return err
	}
	if obsID, _, _ := ParseRuleVersion(p.RuleVersion); obsID != p.ObservationID {
		return models.NewValidationError(
			"rule_version %q does not match observation_id %q", p.RuleVersion, p.ObservationID)
	}
	if len(p.Causes) == 0 {
		return models.NewValidationError("%s: at least one cause is required", p.ObservationID)
	}

	seenCauses := make(map[string]bool, len(p.Causes))
	for i, cause := range p.Causes {
		if cause.ID == "" {
			return models.NewValidationError("%s: cause[%d]: id is required", p.ObservationID, i)
		}
		if seenCauses[cause.ID] {
			return models.NewValidationError("%s: duplicate cause id %q", p.ObservationID, cause.ID)
		}
		seenCauses[cause.ID] = true
		for j, cond := range cause.Evidence {
			if cond.Field == "" {
				return models.NewValidationError(
					"%s: cause %s: evidence[%d]: field is required", p.ObservationID, cause.ID, j)
			}
			if !p.declaredSignal(cond.Field) {
				return models.NewValidationError(
					"%s: cause %s: evidence field %q is not a declared signal",
					p.ObservationID, cause.ID, cond.Field)
			}
			switch cond.Op {
			case OpGte, OpGt, OpLte, OpLt, OpEq, OpNe, OpTruthy:
			default:
				return models.NewValidationError(
					"%s: cause %s: evidence[%d]: unknown op %q", p.ObservationID, cause.ID, j, cond.Op)
			}
		}
	}

	seenActions := make(map[string]bool, len(p.Actions))
	for i, action := range p.Actions {
		if action == "" {
			return models.NewValidationError("%s: actions[%d]: empty action id", p.ObservationID, i)
		}
		if seenActions[action] {
			return models.NewValidationError("%s: duplicate action id %q", p.ObservationID, action)
		}
		seenActions[action] = true
	}

	// Every recommendation must reference a declared cause and a
	// whitelisted action.
	for i, rec := range p.Recommendations {
		if !seenCauses[rec.CauseID] {
			return models.NewValidationError(
				"%s: recommendation[%d]: unknown cause %q", p.ObservationID, i, rec.CauseID)
		}
		if !seenActions[rec.ActionID] {
			return models.NewValidationError(
				"%s: recommendation[%d]: action %q is not in the whitelist", p.ObservationID, i, rec.ActionID)
		}
	}

	for _, name := range ProfileNames {
		if _, ok := p.Profiles[name]; !ok {
			return models.NewValidationError("%s: missing threshold profile %q", p.ObservationID, name)
		}
	}
	for name, thresholds := range p.Profiles {
		for key := range thresholds {
			if _, _, err := ParseGateKey(key); err != nil {
				return models.NewValidationError(
					"%s: profile %s: %v", p.ObservationID, name, err)
			}
		}
	}

	for _, pair := range p.BoundaryPairs {
		if !seenCauses[pair.A] || !seenCauses[pair.B] {
			return models.NewValidationError(
				"%s: boundary pair references unknown cause (%s, %s)", p.ObservationID, pair.A, pair.B)
		}
	}

	return nil
}

// ParseGateKey splits a threshold key like "clicks_gte" into the signal
// name and comparison operator.
func ParseGateKey(key string) (signal string, op CompareOp, err error) {
	idx := strings.LastIndex(key, "_")
	if idx <= 0 || idx == len(key)-1 {
		return "", "", models.NewValidationError("invalid gate key %q (expected <signal>_<op>)", key)
	}
	signal, opStr := key[:idx], key[idx+1:]
	switch CompareOp(opStr) {
	case OpGte, OpGt, OpLte, OpLt, OpEq:
		return signal, CompareOp(opStr), nil
	default:
		return "", "", models.NewValidationError("invalid gate key %q (unknown op %q)", key, opStr)
	}
}

// String implements fmt.Stringer for log output.
func (p *Playbook) String() string {
	return fmt.Sprintf("%s (%s, %d causes, %d actions)",
		p.ObservationID, p.RuleVersion, len(p.Causes), len(p.Actions))
}
