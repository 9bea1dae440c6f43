package services

import (
	"reflect"
	"testing"
)

func TestResolveRuleWriteCapabilities_InvalidIntent(t *testing.T) {
	if _, err := ResolveRuleWriteCapabilities(RuleWriteIntent("nope"), RuleWriteCapabilitiesFacts{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestResolveRuleWriteCapabilities_CreateAdministrator(t *testing.T) {
	decision, err := ResolveRuleWriteCapabilities(RuleWriteIntentCreate, RuleWriteCapabilitiesFacts{
		Role:             "Administrator",
		ActorUUID:        "u1",
		ScopingRequested: true,
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !decision.Enabled {
		t.Fatalf("deny=%v", decision.DenyReasons)
	}
	want := []string{"install_types", "manifest_scope", "mod_type", "package_display_name", "package_name", "removal", "target"}
	if !reflect.DeepEqual(decision.AllowedFields, want) {
		t.Fatalf("allowed=%v", decision.AllowedFields)
	}
}

func TestResolveRuleWriteCapabilities_CreateContributor(t *testing.T) {
	decision, err := ResolveRuleWriteCapabilities(RuleWriteIntentCreate, RuleWriteCapabilitiesFacts{
		Role:      "contributor",
		ActorUUID: "u1",
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !decision.Enabled {
		t.Fatalf("deny=%v", decision.DenyReasons)
	}
	want := []string{"mod_type", "package_display_name", "package_name", "removal", "target"}
	if !reflect.DeepEqual(decision.AllowedFields, want) {
		t.Fatalf("allowed=%v", decision.AllowedFields)
	}
}

func TestResolveRuleWriteCapabilities_CreateContributorScoping(t *testing.T) {
	decision, err := ResolveRuleWriteCapabilities(RuleWriteIntentCreate, RuleWriteCapabilitiesFacts{
		Role:             "contributor",
		ActorUUID:        "u1",
		ScopingRequested: true,
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if decision.Enabled {
		t.Fatal("expected deny")
	}
	if !reflect.DeepEqual(decision.DenyReasons, []string{"RULE_FIELD_NOT_ALLOWED"}) {
		t.Fatalf("deny=%v", decision.DenyReasons)
	}
}

func TestResolveRuleWriteCapabilities_UnknownRole(t *testing.T) {
	decision, err := ResolveRuleWriteCapabilities(RuleWriteIntentCreate, RuleWriteCapabilitiesFacts{Role: "viewer"})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if decision.Enabled {
		t.Fatal("expected deny")
	}
	if !reflect.DeepEqual(decision.DenyReasons, []string{"FORBIDDEN"}) {
		t.Fatalf("deny=%v", decision.DenyReasons)
	}
}

func TestResolveRuleWriteCapabilities_ToggleOwnership(t *testing.T) {
	decision, err := ResolveRuleWriteCapabilities(RuleWriteIntentToggle, RuleWriteCapabilitiesFacts{
		Role:          "contributor",
		ActorUUID:     "u1",
		RuleCreatedBy: "u2",
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if decision.Enabled {
		t.Fatal("expected deny")
	}
	if !reflect.DeepEqual(decision.DenyReasons, []string{"RULE_NOT_OWNED"}) {
		t.Fatalf("deny=%v", decision.DenyReasons)
	}

	decision, err = ResolveRuleWriteCapabilities(RuleWriteIntentToggle, RuleWriteCapabilitiesFacts{
		Role:          "contributor",
		ActorUUID:     "u1",
		RuleCreatedBy: "u1",
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !decision.Enabled {
		t.Fatalf("deny=%v", decision.DenyReasons)
	}
}

func TestResolveRuleWriteCapabilities_DeleteOthersRequiresAdmin(t *testing.T) {
	decision, err := ResolveRuleWriteCapabilities(RuleWriteIntentDelete, RuleWriteCapabilitiesFacts{
		Role:          "administrator",
		ActorUUID:     "u1",
		RuleCreatedBy: "u2",
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !decision.Enabled {
		t.Fatalf("deny=%v", decision.DenyReasons)
	}

	decision, err = ResolveRuleWriteCapabilities(RuleWriteIntentDelete, RuleWriteCapabilitiesFacts{
		Role:          "contributor",
		ActorUUID:     "u1",
		RuleCreatedBy: "u2",
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if decision.Enabled {
		t.Fatal("expected deny")
	}
}

func TestDedupAndSortRuleDenyReasons(t *testing.T) {
	got := dedupAndSortRuleDenyReasons([]string{"RULE_FIELD_NOT_ALLOWED", "FORBIDDEN", "", "FORBIDDEN", "RULE_NOT_OWNED"})
	want := []string{"FORBIDDEN", "RULE_NOT_OWNED", "RULE_FIELD_NOT_ALLOWED"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got=%v", got)
	}
}
