package services

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/driftworks/manifestmod/modules/manifestmod/domain/ports"
	"github.com/driftworks/manifestmod/modules/manifestmod/domain/types"
	"github.com/driftworks/manifestmod/pkg/httperr"
	"github.com/driftworks/manifestmod/pkg/uuidv7"
)

const (
	errRuleTargetRequired     = "RULE_TARGET_REQUIRED"
	errRuleModTypeInvalid     = "RULE_MOD_TYPE_INVALID"
	errRulePackageRequired    = "RULE_PACKAGE_REQUIRED"
	errRuleInstallTypeInvalid = "RULE_INSTALL_TYPE_INVALID"
	errRuleKeyRequired        = "RULE_KEY_REQUIRED"
	errRuleVersionInvalid     = "RULE_VERSION_INVALID"
	errRuleFieldNotAllowed    = "RULE_FIELD_NOT_ALLOWED"
	errRuleNotOwned           = "RULE_NOT_OWNED"
	errRuleForbidden          = "FORBIDDEN"
)

var (
	newRuleKey      = uuidv7.NewString
	marshalRuleJSON = json.Marshal
	auditClock      = time.Now
)

type Actor struct {
	UUID string
	Role string
}

type CreateRuleRequest struct {
	Actor              Actor
	ModType            string
	Target             string
	PackageName        string
	PackageDisplayName string
	Removal            bool
	InstallTypes       []string
	ManifestScope      []string
}

type ToggleRuleRequest struct {
	Actor           Actor
	Key             string
	Enabled         bool
	ExpectedVersion int64
}

type DeleteRuleRequest struct {
	Actor           Actor
	Key             string
	ExpectedVersion int64
}

// RuleWriteService is the authorization-gated mutation surface over
// the rule store. Every accepted mutation produces an audit record.
type RuleWriteService interface {
	Create(ctx context.Context, req CreateRuleRequest) (types.Rule, error)
	SetEnabled(ctx context.Context, req ToggleRuleRequest) (int64, error)
	Delete(ctx context.Context, req DeleteRuleRequest) error
}

type ruleWriteService struct {
	store ports.RuleStore
	audit ports.AuditLog
}

func NewRuleWriteService(store ports.RuleStore, audit ports.AuditLog) RuleWriteService {
	return &ruleWriteService{store: store, audit: audit}
}

func (s *ruleWriteService) Create(ctx context.Context, req CreateRuleRequest) (types.Rule, error) {
	modType := types.ModType(strings.TrimSpace(strings.ToLower(req.ModType)))
	target := strings.TrimSpace(req.Target)
	packageName := strings.TrimSpace(req.PackageName)
	displayName := strings.TrimSpace(req.PackageDisplayName)
	installTypes := normalizeStringSet(req.InstallTypes)
	manifestScope := normalizeStringSet(req.ManifestScope)

	if !modType.Valid() {
		return types.Rule{}, httperr.NewBadRequest(errRuleModTypeInvalid)
	}
	if target == "" {
		return types.Rule{}, httperr.NewBadRequest(errRuleTargetRequired)
	}
	if packageName == "" {
		return types.Rule{}, httperr.NewBadRequest(errRulePackageRequired)
	}
	for _, it := range installTypes {
		if !types.KnownInstallType(it) {
			return types.Rule{}, httperr.NewBadRequest(errRuleInstallTypeInvalid)
		}
	}
	if displayName == "" {
		displayName = packageName
	}

	decision, err := ResolveRuleWriteCapabilities(RuleWriteIntentCreate, RuleWriteCapabilitiesFacts{
		Role:             req.Actor.Role,
		ActorUUID:        req.Actor.UUID,
		ScopingRequested: len(installTypes) > 0 || len(manifestScope) > 0,
	})
	if err != nil {
		return types.Rule{}, err
	}
	if !decision.Enabled {
		return types.Rule{}, httperr.NewForbidden(decision.DenyReasons[0])
	}

	key, err := newRuleKey()
	if err != nil {
		return types.Rule{}, err
	}

	created, err := s.store.Create(ctx, types.Rule{
		Key:                key,
		ModType:            modType,
		Target:             target,
		PackageName:        packageName,
		PackageDisplayName: displayName,
		Removal:            req.Removal,
		InstallTypes:       installTypes,
		ManifestScope:      manifestScope,
		Enabled:            true,
		CreatedBy:          strings.TrimSpace(req.Actor.UUID),
	})
	if err != nil {
		return types.Rule{}, err
	}

	if err := s.recordAudit(ctx, ports.AuditActionCreate, req.Actor, created.Key, nil, &created); err != nil {
		return types.Rule{}, err
	}
	return created, nil
}

func (s *ruleWriteService) SetEnabled(ctx context.Context, req ToggleRuleRequest) (int64, error) {
	key := strings.TrimSpace(req.Key)
	if key == "" {
		return 0, httperr.NewBadRequest(errRuleKeyRequired)
	}
	if req.ExpectedVersion < 1 {
		return 0, httperr.NewBadRequest(errRuleVersionInvalid)
	}

	before, err := s.store.Get(ctx, key)
	if err != nil {
		return 0, err
	}

	if err := s.authorizeTargeted(RuleWriteIntentToggle, req.Actor, before); err != nil {
		return 0, err
	}

	newVersion, err := s.store.SetEnabled(ctx, key, req.Enabled, req.ExpectedVersion)
	if err != nil {
		return 0, err
	}

	after := before
	after.Enabled = req.Enabled
	after.Version = newVersion

	action := ports.AuditActionEnable
	if !req.Enabled {
		action = ports.AuditActionDisable
	}
	if err := s.recordAudit(ctx, action, req.Actor, key, &before, &after); err != nil {
		return 0, err
	}
	return newVersion, nil
}

func (s *ruleWriteService) Delete(ctx context.Context, req DeleteRuleRequest) error {
	key := strings.TrimSpace(req.Key)
	if key == "" {
		return httperr.NewBadRequest(errRuleKeyRequired)
	}
	if req.ExpectedVersion < 1 {
		return httperr.NewBadRequest(errRuleVersionInvalid)
	}

	before, err := s.store.Get(ctx, key)
	if err != nil {
		return err
	}

	if err := s.authorizeTargeted(RuleWriteIntentDelete, req.Actor, before); err != nil {
		return err
	}

	final, err := s.store.Delete(ctx, key, req.ExpectedVersion)
	if err != nil {
		return err
	}

	return s.recordAudit(ctx, ports.AuditActionDelete, req.Actor, key, &final, nil)
}

func (s *ruleWriteService) authorizeTargeted(intent RuleWriteIntent, actor Actor, rule types.Rule) error {
	decision, err := ResolveRuleWriteCapabilities(intent, RuleWriteCapabilitiesFacts{
		Role:          actor.Role,
		ActorUUID:     actor.UUID,
		RuleCreatedBy: rule.CreatedBy,
	})
	if err != nil {
		return err
	}
	if !decision.Enabled {
		return httperr.NewForbidden(decision.DenyReasons[0])
	}
	return nil
}

func (s *ruleWriteService) recordAudit(ctx context.Context, action ports.AuditAction, actor Actor, key string, before *types.Rule, after *types.Rule) error {
	entry := ports.AuditEntry{
		Action:     action,
		RuleKey:    key,
		ActorUUID:  strings.TrimSpace(actor.UUID),
		ActorRole:  strings.TrimSpace(strings.ToLower(actor.Role)),
		RecordedAt: auditClock().UTC(),
	}
	if before != nil {
		raw, err := marshalRuleJSON(ruleAuditState(*before))
		if err != nil {
			return err
		}
		entry.Before = raw
	}
	if after != nil {
		raw, err := marshalRuleJSON(ruleAuditState(*after))
		if err != nil {
			return err
		}
		entry.After = raw
	}
	return s.audit.Record(ctx, entry)
}

type ruleAuditStateJSON struct {
	Key                string   `json:"key"`
	ModType            string   `json:"mod_type"`
	Target             string   `json:"target"`
	PackageName        string   `json:"package_name"`
	PackageDisplayName string   `json:"package_display_name"`
	Removal            bool     `json:"removal"`
	InstallTypes       []string `json:"install_types"`
	ManifestScope      []string `json:"manifest_scope"`
	Enabled            bool     `json:"enabled"`
	CreatedBy          string   `json:"created_by"`
	Version            int64    `json:"version"`
}

func ruleAuditState(r types.Rule) ruleAuditStateJSON {
	return ruleAuditStateJSON{
		Key:                r.Key,
		ModType:            string(r.ModType),
		Target:             r.Target,
		PackageName:        r.PackageName,
		PackageDisplayName: r.PackageDisplayName,
		Removal:            r.Removal,
		InstallTypes:       append([]string{}, r.InstallTypes...),
		ManifestScope:      append([]string{}, r.ManifestScope...),
		Enabled:            r.Enabled,
		CreatedBy:          r.CreatedBy,
		Version:            r.Version,
	}
}

func normalizeStringSet(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		item := strings.TrimSpace(raw)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}
