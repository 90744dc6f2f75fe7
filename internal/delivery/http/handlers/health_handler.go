package handlers

import (
	"net/http"

	"github.com/LavaJover/shvark-aggregator-service/internal/delivery/http/dto/response"
)

// HealthCheck reports liveness; routing shows whether any active aggregator can take deals
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	routing := "SERVING"
	if h.Health != nil && !h.Health.RoutingServing() {
		routing = "NOT_SERVING"
	}
	writeJSON(w, http.StatusOK, response.HealthResponse{Status: "ok", Routing: routing})
}
