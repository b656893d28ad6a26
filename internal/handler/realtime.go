package handler

import (
	"log/slog"
	"net/http"

	"github.com/adpanel/adpanel/internal/realtime"
	"github.com/adpanel/adpanel/internal/repository"
)

type RealtimeHandler struct {
	hub *realtime.Hub
}

func NewRealtimeHandler(hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

// Viewer upgrades a display to the broadcast channel. The display joins a
// room by sending {"type":"join","user_id":"..."}.
func (h *RealtimeHandler) Viewer(w http.ResponseWriter, r *http.Request) {
	conn, err := realtime.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		slog.Debug("websocket upgrade failed", "error", err)
		return
	}
	h.hub.Serve(conn)
}

type HealthHandler struct {
	store *repository.Store
}

func NewHealthHandler(store *repository.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	err := h.store.Ping(r.Context())
	if err != nil {
		slog.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
