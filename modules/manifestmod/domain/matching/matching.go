package matching

import "github.com/driftworks/manifestmod/modules/manifestmod/domain/types"

// Matches reports whether rule's attribute predicate holds for ctx.
// Comparisons are case-sensitive exact matches; tag is the only
// multi-valued attribute. Enabled is deliberately not consulted here,
// the evaluation engine filters disabled rules.
func Matches(rule types.Rule, ctx types.ClientContext) bool {
	switch rule.ModType {
	case types.ModTypeOwner:
		return ctx.Owner == rule.Target
	case types.ModTypeUUID:
		return ctx.UUID == rule.Target
	case types.ModTypeSite:
		return ctx.Site == rule.Target
	case types.ModTypeOSVersion:
		return ctx.OSVersion == rule.Target
	case types.ModTypeTag:
		for _, tag := range ctx.Tags {
			if tag == rule.Target {
				return true
			}
		}
		return false
	default:
		return false
	}
}
