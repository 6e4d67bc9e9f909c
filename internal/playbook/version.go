package playbook

import (
	"strings"

	goversion "github.com/hashicorp/go-version"

	"github.com/liyecom/adpilot/internal/models"
)

// ParseRuleVersion parses a rule version string of the form
// "<observation_id>@<semver>" and returns its two halves.
func ParseRuleVersion(ruleVersion string) (observationID string, version *goversion.Version, err error) {
	parts := strings.SplitN(ruleVersion, "@", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", nil, models.NewValidationError(
			"invalid rule_version %q (expected <observation_id>@<semver>)", ruleVersion)
	}
	v, err := goversion.NewSemver(parts[1])
	if err != nil {
		return "", nil, models.NewValidationError(
			"invalid rule_version %q: %v", ruleVersion, err)
	}
	return parts[0], v, nil
}

// NewerRuleVersion reports whether candidate carries a strictly newer
// semver than current for the same observation id. Used by the store to
// decide whether a reloaded document supersedes the loaded one.
func NewerRuleVersion(current, candidate string) bool {
	curID, curV, err := ParseRuleVersion(current)
	if err != nil {
		return true
	}
	candID, candV, err := ParseRuleVersion(candidate)
	if err != nil || curID != candID {
		return false
	}
	return candV.GreaterThan(curV)
}
