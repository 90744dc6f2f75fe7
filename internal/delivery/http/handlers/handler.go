package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/LavaJover/shvark-aggregator-service/internal/delivery/http/dto/response"
	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
	callbackdto "github.com/LavaJover/shvark-aggregator-service/internal/usecase/dto/callback"
	dealdto "github.com/LavaJover/shvark-aggregator-service/internal/usecase/dto/deal"
	"github.com/LavaJover/shvark-aggregator-service/internal/usecase/sla"
)

const (
	maxBodyBytes = 1 << 20
	adminHeader  = "X-Admin-Id"
)

type DealRouter interface {
	Route(ctx context.Context, input *dealdto.RouteInput) (*dealdto.RoutedDeal, error)
}

type CallbackIngestor interface {
	Ingest(ctx context.Context, token string, payloads []callbackdto.Payload) (*callbackdto.BatchResult, error)
}

type AggregatorAdmin interface {
	UpdatePriorities(ctx context.Context, updates []domain.PriorityUpdate, actor string) error
	ReplaceFeeRanges(ctx context.Context, aggregatorMerchantID string, ranges []domain.FeeRange) ([]domain.FeeRange, error)
}

type SLAReporter interface {
	CollectStats(ctx context.Context, window time.Duration) ([]sla.AggregatorSLA, error)
	RecalculatePriorities(ctx context.Context, actor string) ([]domain.PriorityUpdate, error)
}

type DealOverrider interface {
	OverrideByID(ctx context.Context, dealID string, next domain.DealStatus, actor, reason string) (*domain.Deal, error)
}

type RoutingHealth interface {
	RoutingServing() bool
}

// Handler wires the use cases into HTTP endpoints
type Handler struct {
	Deals     DealRouter
	Callbacks CallbackIngestor
	Admin     AggregatorAdmin
	SLA       SLAReporter
	Overrides DealOverrider
	Health    RoutingHealth
	Logger    *slog.Logger
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps domain errors to status codes, anything unknown becomes 500 without details
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrNoAggregatorAvailable):
		status = http.StatusServiceUnavailable
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger().Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, response.ErrorResponse{Error: msg})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, response.ErrorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// bearerToken returns the token of "Authorization: Bearer <token>" or ""
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}
