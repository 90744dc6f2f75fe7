package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/LavaJover/shvark-aggregator-service/internal/delivery/http/dto/request"
	"github.com/LavaJover/shvark-aggregator-service/internal/delivery/http/dto/response"
	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
	dealdto "github.com/LavaJover/shvark-aggregator-service/internal/usecase/dto/deal"
)

// UpdatePriorities handles PUT /admin/aggregators/priorities
func (h *Handler) UpdatePriorities(w http.ResponseWriter, r *http.Request) {
	var req request.UpdatePrioritiesRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.Admin.UpdatePriorities(r.Context(), req.Priorities, r.Header.Get(adminHeader)); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response.PrioritiesResponse{Priorities: req.Priorities})
}

// RecalculatePriorities handles POST /admin/aggregators/priorities/recalculate
func (h *Handler) RecalculatePriorities(w http.ResponseWriter, r *http.Request) {
	updates, err := h.SLA.RecalculatePriorities(r.Context(), r.Header.Get(adminHeader))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if updates == nil {
		updates = []domain.PriorityUpdate{}
	}
	writeJSON(w, http.StatusOK, response.PrioritiesResponse{Priorities: updates})
}

// SLAReport handles GET /admin/aggregators/sla?window=1h
func (h *Handler) SLAReport(w http.ResponseWriter, r *http.Request) {
	var window time.Duration
	if raw := r.URL.Query().Get("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, r, fmt.Errorf("%w: window must be a positive duration", domain.ErrValidation))
			return
		}
		window = parsed
	}

	stats, err := h.SLA.CollectStats(r.Context(), window)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	label := "default"
	if window > 0 {
		label = window.String()
	}
	writeJSON(w, http.StatusOK, response.ToSLAReport(label, stats))
}

// ReplaceFeeRanges handles PUT /admin/aggregator-merchants/{id}/fee-ranges
func (h *Handler) ReplaceFeeRanges(w http.ResponseWriter, r *http.Request) {
	var req request.ReplaceFeeRangesRequest
	if !h.decode(w, r, &req) {
		return
	}

	saved, err := h.Admin.ReplaceFeeRanges(r.Context(), chi.URLParam(r, "id"), req.Ranges)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if saved == nil {
		saved = []domain.FeeRange{}
	}
	writeJSON(w, http.StatusOK, response.FeeRangesResponse{Ranges: saved})
}

// OverrideDeal handles POST /admin/deals/{id}/override
func (h *Handler) OverrideDeal(w http.ResponseWriter, r *http.Request) {
	var req request.OverrideDealRequest
	if !h.decode(w, r, &req) {
		return
	}
	next, ok := domain.ParseDealStatus(req.Status)
	if !ok {
		h.writeError(w, r, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, req.Status))
		return
	}

	deal, err := h.Overrides.OverrideByID(r.Context(), chi.URLParam(r, "id"), next, r.Header.Get(adminHeader), req.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dealdto.ToDealOutput(deal))
}
