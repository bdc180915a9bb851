// Package rules evaluates entity-type business rules over ComplianceData.
// Evaluation is pure: it does not re-check inclusion or signatures, which
// callers must have done already.
package rules

import (
	"math"
	"strings"

	"zkregistry/internal/compliance/models"
)

// Rule is one independent predicate.
type Rule struct {
	Name  string
	Check func(models.ComplianceData) bool
}

// Result reports both the strict verdict and the partial-credit score.
type Result struct {
	Verdict     bool     `json:"verdict"`
	Score       int      `json:"score"`
	FailedRules []string `json:"failed_rules"`
	Total       int      `json:"total"`
}

// Evaluate applies the rule set for data.EntityType. Unknown entity types
// fail with a single "entity_type_supported" rule.
func Evaluate(data models.ComplianceData) Result {
	set, ok := ruleSets[data.EntityType]
	if !ok {
		set = []Rule{{Name: "entity_type_supported", Check: func(models.ComplianceData) bool { return false }}}
	}
	return Apply(set, data)
}

// Apply runs rules over data. Verdict is the AND of all rules; Score is
// round(100 * passed / total).
func Apply(set []Rule, data models.ComplianceData) Result {
	res := Result{Total: len(set), FailedRules: []string{}}
	passed := 0
	for _, r := range set {
		if r.Check(data) {
			passed++
			continue
		}
		res.FailedRules = append(res.FailedRules, r.Name)
	}
	res.Verdict = len(set) > 0 && passed == len(set)
	if len(set) > 0 {
		res.Score = int(math.Round(100 * float64(passed) / float64(len(set))))
	}
	return res
}

// RulesFor returns the rule names applied to t, in evaluation order.
func RulesFor(t models.EntityType) []string {
	set := ruleSets[t]
	names := make([]string, len(set))
	for i, r := range set {
		names[i] = r.Name
	}
	return names
}

// OneOf matches the role value case-insensitively against an allow-list.
// An empty allowed value admits the empty string.
func OneOf(name string, role models.Role, allowed ...string) Rule {
	return Rule{Name: name, Check: func(d models.ComplianceData) bool {
		v := strings.TrimSpace(d.Value(role))
		for _, a := range allowed {
			if strings.EqualFold(v, a) {
				return true
			}
		}
		return false
	}}
}

// Present requires every listed role to be non-empty.
func Present(name string, roles ...models.Role) Rule {
	return Rule{Name: name, Check: func(d models.ComplianceData) bool {
		for _, r := range roles {
			if strings.TrimSpace(d.Value(r)) == "" {
				return false
			}
		}
		return true
	}}
}

// Date rules check presence only; values are not parsed or ordered.
var ruleSets = map[models.EntityType][]Rule{
	models.EntityTypeGLEIF: {
		OneOf("entity_status_active", models.RoleStatus, "ACTIVE"),
		OneOf("registration_issued", models.RoleSecondaryStatus, "ISSUED"),
		OneOf("conformity_acceptable", models.RoleClassification, "CONFORMING", "UNKNOWN", ""),
		Present("identifier_present", models.RoleIdentifier),
		Present("name_present", models.RoleName),
		Present("registration_dates_present", models.RoleStartDate, models.RoleEndDate),
	},
	models.EntityTypeCorporateRegistration: {
		OneOf("company_status_active", models.RoleStatus, "ACTIVE"),
		OneOf("active_compliance", models.RoleSecondaryStatus, "ACTIVE COMPLIANT"),
		Present("identifier_present", models.RoleIdentifier),
		Present("name_present", models.RoleName),
		Present("filing_dates_present", models.RoleStartDate, models.RoleEndDate),
	},
	models.EntityTypeEXIM: {
		OneOf("iec_status_valid", models.RoleStatus, "0", "NORMAL", "VALID", "ACTIVE"),
		Present("identifier_present", models.RoleIdentifier),
		Present("name_present", models.RoleName),
		Present("iec_dates_present", models.RoleStartDate, models.RoleEndDate),
	},
}
