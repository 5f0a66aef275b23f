package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"resman/internal/manager"
	"resman/pkg/resman"
)

type usageRequest struct {
	AllocationID string       `json:"allocation_id"`
	Usage        resman.Usage `json:"usage"`
}

func (h *handler) handleUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req usageRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.AllocationID == "" {
		writeError(w, http.StatusBadRequest, "allocation_id_required")
		return
	}
	if err := h.manager.TrackUsage(r.Context(), req.AllocationID, req.Usage); err != nil {
		writeError(w, http.StatusInternalServerError, "manager_error")
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

type releaseRequest struct {
	AllocationID string `json:"allocation_id"`
	Token        string `json:"token,omitempty"`
}

func (h *handler) handleRelease(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req releaseRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.AllocationID == "" {
		writeError(w, http.StatusBadRequest, "allocation_id_required")
		return
	}
	if err := h.manager.ReleaseResources(r.Context(), req.AllocationID, req.Token); err != nil {
		if errors.Is(err, manager.ErrInvalidToken) {
			writeError(w, http.StatusForbidden, "invalid_token")
			return
		}
		writeError(w, http.StatusInternalServerError, "manager_error")
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
