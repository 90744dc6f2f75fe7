package callback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
	"github.com/LavaJover/shvark-aggregator-service/internal/infrastructure/metrics"
	callbackdto "github.com/LavaJover/shvark-aggregator-service/internal/usecase/dto/callback"
)

const msgDealNotFound = "Deal not found"

type Transitioner interface {
	Transition(ctx context.Context, deal *domain.Deal, next domain.DealStatus, source domain.TransitionSource, patch *domain.DealPatch) (*domain.Deal, error)
	Update(ctx context.Context, deal *domain.Deal, patch *domain.DealPatch) (*domain.Deal, error)
}

// Processor applies partner status callbacks. Items are isolated from each other:
// one bad item never stops the rest of the batch.
type Processor struct {
	Aggregators domain.AggregatorRepository
	Deals       domain.DealRepository
	Logs        domain.IntegrationLogRepository
	Machine     Transitioner
	Metrics     *metrics.AggregatorMetrics
	Logger      *slog.Logger

	maxBatch int
	now      func() time.Time
}

func NewProcessor(
	aggregators domain.AggregatorRepository,
	deals domain.DealRepository,
	logs domain.IntegrationLogRepository,
	machine Transitioner,
	aggregatorMetrics *metrics.AggregatorMetrics,
	logger *slog.Logger,
	maxBatch int,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBatch <= 0 || maxBatch > callbackdto.MaxBatchSize {
		maxBatch = callbackdto.MaxBatchSize
	}
	return &Processor{
		Aggregators: aggregators,
		Deals:       deals,
		Logs:        logs,
		Machine:     machine,
		Metrics:     aggregatorMetrics,
		Logger:      logger,
		maxBatch:    maxBatch,
		now:         time.Now,
	}
}

// Ingest authenticates the batch against the aggregator owning every referenced deal and applies items one by one
func (p *Processor) Ingest(ctx context.Context, token string, payloads []callbackdto.Payload) (*callbackdto.BatchResult, error) {
	if len(payloads) == 0 {
		return nil, fmt.Errorf("%w: empty callback batch", domain.ErrValidation)
	}
	if len(payloads) > p.maxBatch {
		return nil, fmt.Errorf("%w: batch of %d exceeds %d items", domain.ErrValidation, len(payloads), p.maxBatch)
	}

	requestedAt := p.now()
	caller, err := p.authenticate(ctx, token)
	if err != nil {
		p.appendLog(ctx, &domain.IntegrationLogEntry{
			StatusCode:  http.StatusUnauthorized,
			Error:       err.Error(),
			OurDealID:   payloads[0].OurDealID,
			RequestedAt: requestedAt,
		})
		return nil, err
	}

	// текущее состояние сделок батча; элементы применяются по порядку
	current := make(map[string]*domain.Deal, len(payloads))
	lookupErrs := make(map[string]error)
	for _, payload := range payloads {
		if payload.OurDealID == "" {
			continue
		}
		if _, seen := current[payload.OurDealID]; seen {
			continue
		}
		if _, seen := lookupErrs[payload.OurDealID]; seen {
			continue
		}
		deal, err := p.Deals.GetDealByOurDealID(ctx, payload.OurDealID)
		if err != nil {
			lookupErrs[payload.OurDealID] = err
			continue
		}
		if deal.AggregatorID != caller.ID {
			err := fmt.Errorf("%w: deal %s is not owned by the caller", domain.ErrUnauthorized, payload.OurDealID)
			p.appendLog(ctx, &domain.IntegrationLogEntry{
				AggregatorID: caller.ID,
				StatusCode:   http.StatusUnauthorized,
				Error:        err.Error(),
				OurDealID:    payload.OurDealID,
				RequestedAt:  requestedAt,
			})
			return nil, err
		}
		current[payload.OurDealID] = deal
	}

	result := &callbackdto.BatchResult{Results: make([]callbackdto.Result, 0, len(payloads))}
	for i := range payloads {
		id := payloads[i].OurDealID
		r, latest := p.processItem(ctx, caller, &payloads[i], current[id], lookupErrs[id])
		if latest != nil {
			current[id] = latest
		}
		result.Add(r)
		p.Metrics.RecordCallback(string(r.Status))
	}

	p.Logger.Info("callback batch processed",
		"aggregator_id", caller.ID,
		"total", result.TotalCount,
		"success", result.SuccessCount,
		"ignored", result.IgnoredCount,
		"errors", result.ErrorCount,
	)
	return result, nil
}

func (p *Processor) authenticate(ctx context.Context, token string) (*domain.Aggregator, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing callback token", domain.ErrUnauthorized)
	}
	caller, err := p.Aggregators.GetAggregatorByCallbackTokenHash(ctx, domain.HashCallbackToken(token))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown callback token", domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve callback token: %w", err)
	}
	return caller, nil
}

// processItem returns the item result and the latest known state of its deal
func (p *Processor) processItem(ctx context.Context, caller *domain.Aggregator, payload *callbackdto.Payload, deal *domain.Deal, lookupErr error) (callbackdto.Result, *domain.Deal) {
	t := time.Now()
	requestedAt := p.now()
	result, statusCode, latest := p.apply(ctx, payload, deal, lookupErr)

	entry := &domain.IntegrationLogEntry{
		AggregatorID:   caller.ID,
		StatusCode:     statusCode,
		ResponseTimeMs: time.Since(t).Milliseconds(),
		OurDealID:      payload.OurDealID,
		RequestedAt:    requestedAt,
		RespondedAt:    p.now(),
	}
	if result.Status == callbackdto.ResultError {
		entry.Error = result.Message
	}
	if payload.PartnerDealID != nil {
		entry.PartnerDealID = *payload.PartnerDealID
	} else if deal != nil {
		entry.PartnerDealID = deal.PartnerDealID
	}
	p.appendLog(ctx, entry)

	return result, latest
}

func (p *Processor) apply(ctx context.Context, payload *callbackdto.Payload, deal *domain.Deal, lookupErr error) (callbackdto.Result, int, *domain.Deal) {
	result := callbackdto.Result{OurDealID: payload.OurDealID}
	fail := func(code int, msg string) (callbackdto.Result, int, *domain.Deal) {
		result.Status, result.Message = callbackdto.ResultError, msg
		return result, code, deal
	}

	switch {
	case payload.OurDealID == "":
		return fail(http.StatusBadRequest, "ourDealId is required")
	case errors.Is(lookupErr, domain.ErrNotFound):
		return fail(http.StatusNotFound, msgDealNotFound)
	case lookupErr != nil:
		p.Logger.Error("failed to load deal for callback", "our_deal_id", payload.OurDealID, "error", lookupErr)
		return fail(http.StatusInternalServerError, "failed to load deal")
	}

	patch, err := toPatch(payload)
	if err != nil {
		return fail(http.StatusBadRequest, err.Error())
	}

	if payload.Status == "" {
		updated, err := p.Machine.Update(ctx, deal, patch)
		return p.outcome(result, deal, updated, err)
	}

	next, ok := domain.ParseDealStatus(payload.Status)
	if !ok {
		return fail(http.StatusBadRequest, fmt.Sprintf("unknown status %q", payload.Status))
	}

	updated, err := p.Machine.Transition(ctx, deal, next, domain.SourceCallback, patch)
	if errors.Is(err, domain.ErrConflict) {
		// один повтор против свежего состояния
		fresh, getErr := p.Deals.GetDealByID(ctx, deal.ID)
		if getErr != nil {
			err = getErr
		} else {
			deal = fresh
			updated, err = p.Machine.Transition(ctx, fresh, next, domain.SourceCallback, patch)
		}
	}
	return p.outcome(result, deal, updated, err)
}

func (p *Processor) outcome(result callbackdto.Result, deal, updated *domain.Deal, err error) (callbackdto.Result, int, *domain.Deal) {
	if err != nil {
		failed, code := p.failure(result, deal, err)
		return failed, code, deal
	}
	result.Status = callbackdto.ResultAccepted
	result.Message = fmt.Sprintf("deal status is %s", updated.Status)
	return result, http.StatusOK, updated
}

func (p *Processor) failure(result callbackdto.Result, deal *domain.Deal, err error) (callbackdto.Result, int) {
	switch {
	case errors.Is(err, domain.ErrInvalidTransition):
		result.Status = callbackdto.ResultIgnored
		result.Message = fmt.Sprintf("update not applied, deal status is %s", deal.Status)
		return result, http.StatusOK
	case errors.Is(err, domain.ErrConflict):
		result.Status = callbackdto.ResultError
		result.Message = "deal was modified concurrently"
		return result, http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		result.Status = callbackdto.ResultError
		result.Message = msgDealNotFound
		return result, http.StatusNotFound
	default:
		p.Logger.Error("failed to apply callback", "our_deal_id", result.OurDealID, "error", err)
		result.Status = callbackdto.ResultError
		result.Message = "internal error"
		return result, http.StatusInternalServerError
	}
}

func toPatch(payload *callbackdto.Payload) (*domain.DealPatch, error) {
	if payload.Amount != nil && *payload.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	patch := &domain.DealPatch{
		Amount:        payload.Amount,
		PartnerDealID: payload.PartnerDealID,
		Reason:        payload.Reason,
	}
	if len(payload.Metadata) > 0 || payload.UpdatedAt != nil {
		patch.Metadata = make(map[string]any, len(payload.Metadata)+1)
		for k, v := range payload.Metadata {
			patch.Metadata[k] = v
		}
		if payload.UpdatedAt != nil {
			patch.Metadata["partnerUpdatedAt"] = payload.UpdatedAt.UTC().Format(time.RFC3339Nano)
		}
	}
	return patch, nil
}

func (p *Processor) appendLog(ctx context.Context, entry *domain.IntegrationLogEntry) {
	entry.Direction = domain.LogDirectionIn
	entry.EventType = domain.EventTypeCallback
	if entry.RespondedAt.IsZero() {
		entry.RespondedAt = p.now()
	}
	if err := p.Logs.AppendLog(ctx, entry); err != nil {
		p.Logger.Error("failed to write integration log", "our_deal_id", entry.OurDealID, "error", err)
	}
}
