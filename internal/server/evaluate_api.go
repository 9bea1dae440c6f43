package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/driftworks/manifestmod/internal/routing"
	"github.com/driftworks/manifestmod/modules/manifestmod/domain/types"
	"github.com/driftworks/manifestmod/modules/manifestmod/services"
)

type evaluateRequestJSON struct {
	Manifest string `json:"manifest"`
	Client   struct {
		Owner     string   `json:"owner"`
		UUID      string   `json:"uuid"`
		Site      string   `json:"site"`
		OSVersion string   `json:"os_version"`
		Tags      []string `json:"tags"`
	} `json:"client"`
}

type evaluateResponseJSON struct {
	Manifest   string                            `json:"manifest"`
	Directives map[string]types.BucketDirectives `json:"directives"`
}

// handleEvaluateAPI resolves one client's manifest directives. This is
// the endpoint the manifest-serving component calls once per client
// manifest request.
func handleEvaluateAPI(w http.ResponseWriter, r *http.Request, engine *services.EvaluationService) {
	var req evaluateRequestJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "bad_json", "bad json")
		return
	}

	manifest := strings.TrimSpace(req.Manifest)
	if manifest == "" {
		routing.WriteError(w, r, routing.RouteClassInternalAPI, http.StatusBadRequest, "MANIFEST_REQUIRED", "manifest is required")
		return
	}

	directives, err := engine.Evaluate(r.Context(), types.ClientContext{
		Owner:     req.Client.Owner,
		UUID:      req.Client.UUID,
		Site:      req.Client.Site,
		OSVersion: req.Client.OSVersion,
		Tags:      req.Client.Tags,
	}, manifest)
	if err != nil {
		writeRulesError(w, r, err)
		return
	}

	resp := evaluateResponseJSON{Manifest: manifest, Directives: map[string]types.BucketDirectives{}}
	for bucket, d := range directives {
		if d.Install == nil {
			d.Install = []string{}
		}
		if d.Remove == nil {
			d.Remove = []string{}
		}
		resp.Directives[bucket] = d
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(resp)
}
