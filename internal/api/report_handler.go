package api

import (
	"encoding/json"
	"net/http"
	"time"

	"resman/pkg/resman"
)

func (h *handler) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	scope, scopeID, ok := scopeParams(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "scope_required")
		return
	}
	period, ok := periodParams(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_period")
		return
	}
	report, err := h.manager.GetUsageReport(r.Context(), scope, scopeID, period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "manager_error")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *handler) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	scope, scopeID, ok := scopeParams(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "scope_required")
		return
	}
	suggestions, err := h.manager.GetOptimizationSuggestions(r.Context(), scope, scopeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "manager_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"suggestions": suggestions})
}

func (h *handler) handleResolveConflict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var conflict resman.ResourceConflict
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&conflict); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	resolution, err := h.manager.ResolveConflict(r.Context(), conflict)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "manager_error")
		return
	}
	writeJSON(w, http.StatusOK, resolution)
}

// scopeParams reads the scope and scope_id query parameters. GLOBAL needs no
// scope ID.
func scopeParams(r *http.Request) (resman.Scope, string, bool) {
	scope := resman.Scope(r.URL.Query().Get("scope"))
	scopeID := r.URL.Query().Get("scope_id")
	switch scope {
	case resman.ScopeGlobal:
		return scope, scopeID, true
	case resman.ScopeUser, resman.ScopeSwarm, resman.ScopeRun, resman.ScopeStep:
		return scope, scopeID, scopeID != ""
	default:
		return "", "", false
	}
}

// periodParams reads optional RFC 3339 start/end query parameters.
func periodParams(r *http.Request) (*resman.UsagePeriod, bool) {
	startParam := r.URL.Query().Get("start")
	endParam := r.URL.Query().Get("end")
	if startParam == "" && endParam == "" {
		return nil, true
	}
	start, err := time.Parse(time.RFC3339, startParam)
	if err != nil {
		return nil, false
	}
	end, err := time.Parse(time.RFC3339, endParam)
	if err != nil {
		return nil, false
	}
	return &resman.UsagePeriod{Start: start, End: end}, true
}
