package services

import (
	"errors"
	"sort"
	"strings"
)

type RuleWriteIntent string

const (
	RuleWriteIntentCreate RuleWriteIntent = "create"
	RuleWriteIntentToggle RuleWriteIntent = "toggle"
	RuleWriteIntentDelete RuleWriteIntent = "delete"
)

type RuleWriteCapabilitiesFacts struct {
	Role      string
	ActorUUID string

	// ScopingRequested is true when the caller explicitly supplied
	// install_types or manifest_scope on create.
	ScopingRequested bool

	// RuleCreatedBy is the owner of the target rule for toggle/delete.
	RuleCreatedBy string
}

type RuleWriteCapabilitiesDecision struct {
	Enabled       bool
	AllowedFields []string
	DenyReasons   []string
}

var ruleCoreFields = []string{"mod_type", "package_display_name", "package_name", "removal", "target"}
var ruleScopingFields = []string{"install_types", "manifest_scope"}

// ResolveRuleWriteCapabilities decides whether the actor may perform
// the intent and which fields they may set. Contributors get the core
// fields only; install_types and manifest_scope stay at their
// defaults. Toggle and delete of a rule created by someone else
// require the administrator role.
func ResolveRuleWriteCapabilities(intent RuleWriteIntent, facts RuleWriteCapabilitiesFacts) (RuleWriteCapabilitiesDecision, error) {
	switch intent {
	case RuleWriteIntentCreate, RuleWriteIntentToggle, RuleWriteIntentDelete:
	default:
		return RuleWriteCapabilitiesDecision{}, errors.New("rule write capabilities: invalid intent")
	}

	role := strings.TrimSpace(strings.ToLower(facts.Role))
	admin := role == "administrator"
	contributor := role == "contributor"

	deny := []string{}
	if !admin && !contributor {
		deny = append(deny, "FORBIDDEN")
	}

	allowed := append([]string(nil), ruleCoreFields...)
	if admin {
		allowed = append(allowed, ruleScopingFields...)
	}
	sort.Strings(allowed)

	switch intent {
	case RuleWriteIntentCreate:
		if contributor && facts.ScopingRequested {
			deny = append(deny, "RULE_FIELD_NOT_ALLOWED")
		}
	case RuleWriteIntentToggle, RuleWriteIntentDelete:
		if contributor && strings.TrimSpace(facts.RuleCreatedBy) != strings.TrimSpace(facts.ActorUUID) {
			deny = append(deny, "RULE_NOT_OWNED")
		}
	}

	deny = dedupAndSortRuleDenyReasons(deny)
	if len(deny) > 0 {
		return RuleWriteCapabilitiesDecision{
			Enabled:       false,
			AllowedFields: []string{},
			DenyReasons:   deny,
		}, nil
	}

	return RuleWriteCapabilitiesDecision{
		Enabled:       true,
		AllowedFields: allowed,
		DenyReasons:   []string{},
	}, nil
}

func dedupAndSortRuleDenyReasons(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, item := range in {
		code := strings.TrimSpace(item)
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return ruleDenyReasonPriority(out[i]) < ruleDenyReasonPriority(out[j])
	})
	return out
}

func ruleDenyReasonPriority(code string) int {
	switch code {
	case "FORBIDDEN":
		return 10
	case "RULE_NOT_OWNED":
		return 20
	case "RULE_FIELD_NOT_ALLOWED":
		return 30
	default:
		return 100
	}
}
