package api

import (
	"net/http"

	"resman/internal/manager"
)

// Config wires dependencies for the HTTP handler.
type Config struct {
	Manager *manager.Manager
}

// NewHandler builds an HTTP handler for the resource manager API.
func NewHandler(cfg Config) http.Handler {
	h := &handler{manager: cfg.Manager}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/allocate", h.handleAllocate)
	mux.HandleFunc("/v1/usage", h.handleUsage)
	mux.HandleFunc("/v1/release", h.handleRelease)
	mux.HandleFunc("/v1/report", h.handleReport)
	mux.HandleFunc("/v1/suggestions", h.handleSuggestions)
	mux.HandleFunc("/v1/conflict/resolve", h.handleResolveConflict)
	mux.HandleFunc("/v1/admin/limits", h.handleAdminLimits)
	mux.HandleFunc("/v1/admin/pools", h.handleAdminPools)
	return mux
}

type handler struct {
	manager *manager.Manager
}
