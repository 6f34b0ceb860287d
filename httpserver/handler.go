package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ruteri/ddssec-engine/common"
	"github.com/ruteri/ddssec-engine/engine"
	"github.com/ruteri/ddssec-engine/handles"
)

// EngineStatus is the read-only view of the engine the ops API reports on.
type EngineStatus interface {
	Pools() map[string]handles.Info
	ObjectStatus() engine.ObjectStatus
}

// Handler serves the engine status endpoints. It never runs engine commands.
type Handler struct {
	engine EngineStatus
	log    *slog.Logger
}

func NewHandler(e EngineStatus, log *slog.Logger) *Handler {
	return &Handler{
		engine: e,
		log:    log,
	}
}

// HandlePools reports capacity and allocation of every handle pool.
//
// Endpoint: GET /api/v1/pools
func (h *Handler) HandlePools(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.engine.Pools())
}

// HandlePool reports one pool by name.
//
// Endpoint: GET /api/v1/pools/{pool}
func (h *Handler) HandlePool(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("pool")
	info, ok := h.engine.Pools()[name]
	if !ok {
		http.Error(w, "Unknown pool", http.StatusNotFound)
		return
	}
	h.writeJSON(w, info)
}

// HandleStatus reports the build version and the object slot.
//
// Endpoint: GET /api/v1/status
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]interface{}{
		"version": common.Version,
		"object":  h.engine.ObjectStatus(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
