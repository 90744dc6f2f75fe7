package handlers

import (
	"net/http"

	"github.com/LavaJover/shvark-aggregator-service/internal/delivery/http/dto/response"
	dealdto "github.com/LavaJover/shvark-aggregator-service/internal/usecase/dto/deal"
)

// CreateDeal handles POST /deals
func (h *Handler) CreateDeal(w http.ResponseWriter, r *http.Request) {
	var input dealdto.RouteInput
	if !h.decode(w, r, &input) {
		return
	}

	routed, err := h.Deals.Route(r.Context(), &input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, response.RoutedDealResponse{
		Deal:     dealdto.ToDealOutput(routed.Deal),
		Attempts: routed.Attempts,
	})
}
