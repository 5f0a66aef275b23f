package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"resman/pkg/resman"
)

type allocateRequest struct {
	Request resman.AllocationRequest `json:"request"`
	Context resman.AllocationContext `json:"context"`
}

func (h *handler) handleAllocate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req allocateRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Context.UserID = strings.TrimSpace(req.Context.UserID)
	if req.Context.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id_required")
		return
	}
	if len(req.Request.Resources) == 0 {
		writeError(w, http.StatusBadRequest, "resources_required")
		return
	}
	result, err := h.manager.AllocateResources(r.Context(), req.Request, req.Context)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "manager_error")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
