package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/driftworks/manifestmod/internal/routing"
	"github.com/driftworks/manifestmod/modules/manifestmod/domain/ports"
	"github.com/driftworks/manifestmod/modules/manifestmod/domain/types"
	"github.com/driftworks/manifestmod/modules/manifestmod/services"
	"github.com/driftworks/manifestmod/pkg/httperr"
)

type ruleJSON struct {
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
	ModifiedAt         string   `json:"modified_at"`
	Version            int64    `json:"version"`
}

func ruleToJSON(r types.Rule) ruleJSON {
	installTypes := r.InstallTypes
	if installTypes == nil {
		installTypes = []string{}
	}
	manifestScope := r.ManifestScope
	if manifestScope == nil {
		manifestScope = []string{}
	}
	return ruleJSON{
		Key:                r.Key,
		ModType:            string(r.ModType),
		Target:             r.Target,
		PackageName:        r.PackageName,
		PackageDisplayName: r.PackageDisplayName,
		Removal:            r.Removal,
		InstallTypes:       installTypes,
		ManifestScope:      manifestScope,
		Enabled:            r.Enabled,
		CreatedBy:          r.CreatedBy,
		ModifiedAt:         r.ModifiedAt.UTC().Format(time.RFC3339Nano),
		Version:            r.Version,
	}
}

func writeRulesError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case httperr.IsBadRequest(err):
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, err.Error(), err.Error())
	case httperr.IsForbidden(err):
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusForbidden, err.Error(), err.Error())
	case errors.Is(err, ports.ErrRuleNotFound):
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusNotFound, "rule_not_found", "rule not found")
	case errors.Is(err, ports.ErrVersionConflict):
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusConflict, "rule_version_conflict", "rule was concurrently modified, re-fetch and retry")
	case errors.Is(err, ports.ErrStoreUnavailable):
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusServiceUnavailable, "store_unavailable", "rule store unavailable")
	default:
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func requestActor(r *http.Request) services.Actor {
	p, _ := currentPrincipal(r.Context())
	return services.Actor{UUID: p.UUID, Role: p.RoleSlug}
}

type createRuleRequestJSON struct {
	ModType            string   `json:"mod_type"`
	Target             string   `json:"target"`
	PackageName        string   `json:"package_name"`
	PackageDisplayName string   `json:"package_display_name"`
	Removal            bool     `json:"removal"`
	InstallTypes       []string `json:"install_types"`
	ManifestScope      []string `json:"manifest_scope"`
}

func handleCreateRuleAPI(w http.ResponseWriter, r *http.Request, svc services.RuleWriteService) {
	var req createRuleRequestJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "bad_json", "bad json")
		return
	}

	created, err := svc.Create(r.Context(), services.CreateRuleRequest{
		Actor:              requestActor(r),
		ModType:            req.ModType,
		Target:             req.Target,
		PackageName:        req.PackageName,
		PackageDisplayName: req.PackageDisplayName,
		Removal:            req.Removal,
		InstallTypes:       req.InstallTypes,
		ManifestScope:      req.ManifestScope,
	})
	if err != nil {
		writeRulesError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(ruleToJSON(created))
}

func handleGetRuleAPI(w http.ResponseWriter, r *http.Request, store ports.RuleStore) {
	key := strings.TrimSpace(r.URL.Query().Get("key"))
	if key == "" {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "RULE_KEY_REQUIRED", "key is required")
		return
	}

	rule, err := store.Get(r.Context(), key)
	if err != nil {
		writeRulesError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(ruleToJSON(rule))
}

type listRulesResponseJSON struct {
	Rules      []ruleJSON `json:"rules"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

func handleListRulesAPI(w http.ResponseWriter, r *http.Request, store ports.RuleStore) {
	query := ports.ListQuery{
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("mod_type")); raw != "" {
		modType := types.ModType(strings.ToLower(raw))
		if !modType.Valid() {
			routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "RULE_MOD_TYPE_INVALID", "invalid mod_type")
			return
		}
		query.ModType = modType
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "RULE_LIMIT_INVALID", "invalid limit")
			return
		}
		query.Limit = limit
	}

	result, err := store.List(r.Context(), query)
	if err != nil {
		writeRulesError(w, r, err)
		return
	}

	resp := listRulesResponseJSON{Rules: make([]ruleJSON, 0, len(result.Rules)), NextCursor: result.NextCursor}
	for _, rule := range result.Rules {
		resp.Rules = append(resp.Rules, ruleToJSON(rule))
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(resp)
}

type toggleRuleRequestJSON struct {
	Key             string `json:"key"`
	Enabled         bool   `json:"enabled"`
	ExpectedVersion int64  `json:"expected_version"`
}

func handleToggleRuleAPI(w http.ResponseWriter, r *http.Request, svc services.RuleWriteService) {
	var req toggleRuleRequestJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "bad_json", "bad json")
		return
	}

	newVersion, err := svc.SetEnabled(r.Context(), services.ToggleRuleRequest{
		Actor:           requestActor(r),
		Key:             req.Key,
		Enabled:         req.Enabled,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		writeRulesError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]any{"key": strings.TrimSpace(req.Key), "enabled": req.Enabled, "version": newVersion})
}

type deleteRuleRequestJSON struct {
	Key             string `json:"key"`
	ExpectedVersion int64  `json:"expected_version"`
}

func handleDeleteRuleAPI(w http.ResponseWriter, r *http.Request, svc services.RuleWriteService) {
	var req deleteRuleRequestJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "bad_json", "bad json")
		return
	}

	if err := svc.Delete(r.Context(), services.DeleteRuleRequest{
		Actor:           requestActor(r),
		Key:             req.Key,
		ExpectedVersion: req.ExpectedVersion,
	}); err != nil {
		writeRulesError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]any{"key": strings.TrimSpace(req.Key), "deleted": true})
}
