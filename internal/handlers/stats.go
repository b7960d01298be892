package handlers

import (
	"net/http"

	"github.com/tudasmester/elira-backend/internal/realtime"
)

// StatsHandler exposes connection counts for operational visibility (admin only).
type StatsHandler struct {
	broker *realtime.Broker
}

// NewStatsHandler creates a StatsHandler.
func NewStatsHandler(broker *realtime.Broker) *StatsHandler {
	return &StatsHandler{broker: broker}
}

// Connections handles GET /api/admin/connections.
func (h *StatsHandler) Connections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.broker.Stats())
}
