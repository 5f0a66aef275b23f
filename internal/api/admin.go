package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"resman/pkg/resman"
)

type limitsResponse struct {
	Limits []resman.LimitConfig `json:"limits"`
}

type poolsResponse struct {
	Pools []resman.ResourcePool `json:"pools"`
}

func (h *handler) handleAdminLimits(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut:
		h.handleAdminPutLimit(w, r)
	case http.MethodGet:
		writeJSON(w, http.StatusOK, limitsResponse{Limits: h.manager.Limits().List()})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) handleAdminPutLimit(w http.ResponseWriter, r *http.Request) {
	cfg, err := decodeLimitConfig(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if err := h.manager.SetResourceLimits(r.Context(), cfg); err != nil {
		writeError(w, http.StatusInternalServerError, "manager_error")
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *handler) handleAdminPools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, poolsResponse{Pools: h.manager.Pools()})
}

func decodeLimitConfig(r *http.Request) (resman.LimitConfig, error) {
	var cfg resman.LimitConfig
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return resman.LimitConfig{}, err
	}
	cfg.ScopeID = strings.TrimSpace(cfg.ScopeID)
	cfg.Scope = resman.Scope(strings.TrimSpace(strings.ToUpper(string(cfg.Scope))))
	if err := validateLimitConfig(cfg); err != nil {
		return resman.LimitConfig{}, err
	}
	return cfg, nil
}

func validateLimitConfig(cfg resman.LimitConfig) error {
	switch cfg.Scope {
	case resman.ScopeGlobal:
	case resman.ScopeUser, resman.ScopeSwarm, resman.ScopeRun, resman.ScopeStep:
		if cfg.ScopeID == "" {
			return errInvalidConfig
		}
	default:
		return errInvalidConfig
	}
	if len(cfg.Limits) == 0 {
		return errInvalidConfig
	}
	for _, limit := range cfg.Limits {
		if limit.ResourceType == "" || limit.Limit < 0 {
			return errInvalidConfig
		}
	}
	return nil
}
