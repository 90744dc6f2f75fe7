package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
	"github.com/LavaJover/shvark-aggregator-service/internal/infrastructure/metrics"
	dealdto "github.com/LavaJover/shvark-aggregator-service/internal/usecase/dto/deal"
	"github.com/LavaJover/shvark-aggregator-service/internal/usecase/fee"
	nanoid "github.com/jaevor/go-nanoid"
)

const (
	ourDealIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	ourDealIDLength   = 20

	defaultDealTTL = 20 * time.Minute
)

type VolumeHolder interface {
	ReserveHold(ctx context.Context, deal *domain.Deal) error
}

type Options struct {
	// CallbackURL передаётся агрегатору в каждом запросе
	CallbackURL string
	DealTTL     time.Duration
}

// Selector routes a new deal through candidate aggregators strictly one after another
type Selector struct {
	Aggregators domain.AggregatorRepository
	Links       domain.AggregatorMerchantRepository
	Merchants   domain.MerchantMethodRepository
	Deals       domain.DealRepository
	Logs        domain.IntegrationLogRepository
	Client      domain.AggregatorClient
	Holds       VolumeHolder
	Metrics     *metrics.AggregatorMetrics
	Logger      *slog.Logger

	callbackURL string
	dealTTL     time.Duration
	newDealID   func() string
	now         func() time.Time
}

func NewSelector(
	aggregators domain.AggregatorRepository,
	links domain.AggregatorMerchantRepository,
	merchants domain.MerchantMethodRepository,
	deals domain.DealRepository,
	logs domain.IntegrationLogRepository,
	client domain.AggregatorClient,
	holds VolumeHolder,
	aggregatorMetrics *metrics.AggregatorMetrics,
	logger *slog.Logger,
	opts Options,
) (*Selector, error) {
	newDealID, err := nanoid.CustomASCII(ourDealIDAlphabet, ourDealIDLength)
	if err != nil {
		return nil, fmt.Errorf("init deal id generator: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DealTTL <= 0 {
		opts.DealTTL = defaultDealTTL
	}

	return &Selector{
		Aggregators: aggregators,
		Links:       links,
		Merchants:   merchants,
		Deals:       deals,
		Logs:        logs,
		Client:      client,
		Holds:       holds,
		Metrics:     aggregatorMetrics,
		Logger:      logger,
		callbackURL: opts.CallbackURL,
		dealTTL:     opts.DealTTL,
		newDealID:   newDealID,
		now:         time.Now,
	}, nil
}

// Route offers the deal to eligible aggregators in priority order until one accepts.
// Individual aggregator failures are logged and absorbed; only exhaustion is returned.
func (s *Selector) Route(ctx context.Context, input *dealdto.RouteInput) (*dealdto.RoutedDeal, error) {
	start := time.Now()
	if err := input.Validate(); err != nil {
		return nil, err
	}

	method, err := s.Merchants.GetMerchantMethod(ctx, input.MerchantID, input.MethodID)
	if err != nil {
		return nil, fmt.Errorf("merchant method %s/%s: %w", input.MerchantID, input.MethodID, err)
	}
	paymentMethod := input.PaymentMethodType
	if paymentMethod == "" {
		paymentMethod = method.PaymentMethodType
	}

	now := s.now()
	expiresAt := now.Add(s.dealTTL)
	if input.ExpiresAt != nil {
		expiresAt = *input.ExpiresAt
	}
	request := &domain.PartnerDealRequest{
		OurDealID:        s.newDealID(),
		PaymentMethod:    paymentMethod,
		Amount:           input.Amount,
		Rate:             input.Rate,
		Status:           domain.DealStatusCreated,
		ExpiryDate:       expiresAt,
		CallbackURL:      s.callbackURL,
		ClientIdentifier: input.ClientIdentifier,
		Metadata:         input.Metadata,
	}

	candidates, err := s.Aggregators.FindRoutingCandidates(ctx, input.Amount)
	if err != nil {
		return nil, fmt.Errorf("find routing candidates: %w", err)
	}

	attempts := 0
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !candidate.CanAccept(input.Amount) {
			continue
		}

		link, err := s.Links.GetAggregatorMerchant(ctx, candidate.ID, input.MerchantID, input.MethodID)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				s.Logger.Error("failed to load aggregator merchant", "aggregator_id", candidate.ID, "error", err)
			}
			continue
		}
		if !link.IsTrafficEnabled {
			continue
		}

		attempts++
		response, ok := s.attempt(ctx, candidate, request)
		if !ok {
			continue
		}

		deal := &domain.Deal{
			OurDealID:              request.OurDealID,
			MerchantID:             input.MerchantID,
			MethodID:               input.MethodID,
			AggregatorID:           candidate.ID,
			PartnerDealID:          response.Deal.PartnerDealID,
			PaymentMethodType:      paymentMethod,
			Amount:                 input.Amount,
			Rate:                   input.Rate,
			Status:                 initialStatus(response.Deal.Status),
			ClientIdentifier:       input.ClientIdentifier,
			Metadata:               input.Metadata,
			Requisites:             response.Deal.Requisites,
			MerchantFeeInPercent:   method.Commission(domain.FeeDirectionIn),
			AggregatorFeeInPercent: fee.ResolveFee(link, input.Amount, domain.FeeDirectionIn),
			CreatedAt:              now,
			UpdatedAt:              now,
			ExpiresAt:              expiresAt,
		}
		if err := s.Deals.CreateDeal(ctx, deal); err != nil {
			s.Logger.Error("aggregator accepted deal but it was not persisted",
				"aggregator_id", candidate.ID,
				"our_deal_id", deal.OurDealID,
				"partner_deal_id", deal.PartnerDealID,
				"error", err,
			)
			return nil, fmt.Errorf("persist routed deal: %w", err)
		}
		if s.Holds != nil {
			if err := s.Holds.ReserveHold(ctx, deal); err != nil {
				s.Logger.Error("failed to reserve daily volume", "aggregator_id", candidate.ID, "error", err)
			}
		}

		s.Metrics.RecordDealRouted(candidate.ID, string(paymentMethod), input.Amount)
		s.Logger.Info("deal routed",
			"our_deal_id", deal.OurDealID,
			"aggregator_id", candidate.ID,
			"attempts", attempts,
			"total_elapsed", time.Since(start),
		)
		return &dealdto.RoutedDeal{Deal: deal, Attempts: attempts}, nil
	}

	s.Metrics.RecordNoAggregator(input.MerchantID, string(paymentMethod))
	s.Logger.Warn("no aggregator accepted deal",
		"our_deal_id", request.OurDealID,
		"merchant_id", input.MerchantID,
		"candidates", len(candidates),
		"attempts", attempts,
		"total_elapsed", time.Since(start),
	)
	return nil, fmt.Errorf("%w: %d attempts", domain.ErrNoAggregatorAvailable, attempts)
}

// attempt performs one bounded deal-create call and always leaves one log entry behind
func (s *Selector) attempt(ctx context.Context, aggregator *domain.Aggregator, request *domain.PartnerDealRequest) (*domain.PartnerDealResponse, bool) {
	callCtx, cancel := context.WithTimeout(ctx, aggregator.MaxSla())
	defer cancel()

	requestedAt := s.now()
	t := time.Now()
	response, err := s.Client.CreateDeal(callCtx, aggregator, request)
	elapsed := time.Since(t)

	entry := &domain.IntegrationLogEntry{
		AggregatorID:   aggregator.ID,
		Direction:      domain.LogDirectionOut,
		EventType:      domain.EventTypeDealCreate,
		ResponseTimeMs: elapsed.Milliseconds(),
		OurDealID:      request.OurDealID,
		RequestedAt:    requestedAt,
		RespondedAt:    requestedAt.Add(elapsed),
	}
	if response != nil {
		entry.StatusCode = response.StatusCode
	}

	outcome := "accepted"
	switch {
	case err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded):
		outcome = "timeout"
		entry.Error = fmt.Errorf("%w: no answer within %s", domain.ErrSlaViolation, aggregator.MaxSla()).Error()
	case err != nil:
		outcome = "upstream_error"
		entry.Error = err.Error()
	case response == nil || response.StatusCode < 200 || response.StatusCode > 299:
		outcome = "upstream_error"
		entry.Error = domain.ErrUpstream.Error()
	case !response.Accepted || response.Deal == nil:
		outcome = "declined"
		entry.Error = "deal declined by aggregator"
	case response.Deal.OurDealID != "" && response.Deal.OurDealID != request.OurDealID:
		outcome = "upstream_error"
		entry.Error = fmt.Sprintf("%s: answered for deal %s", domain.ErrUpstream, response.Deal.OurDealID)
	case elapsed > aggregator.MaxSla():
		outcome = "timeout"
		entry.Error = domain.ErrSlaViolation.Error()
	default:
		entry.PartnerDealID = response.Deal.PartnerDealID
	}
	entry.SlaViolation = outcome != "accepted"

	if err := s.Logs.AppendLog(ctx, entry); err != nil {
		s.Logger.Error("failed to write integration log", "aggregator_id", aggregator.ID, "error", err)
	}
	s.Metrics.RecordAttempt(aggregator.ID, outcome, elapsed)
	s.Logger.Info("aggregator attempt done",
		"aggregator_id", aggregator.ID,
		"our_deal_id", request.OurDealID,
		"outcome", outcome,
		"elapsed", elapsed,
	)

	return response, !entry.SlaViolation
}

// Партнёр может сразу вернуть IN_PROGRESS; остальные статусы на старте не принимаем
func initialStatus(partnerStatus domain.DealStatus) domain.DealStatus {
	if partnerStatus == domain.DealStatusInProgress {
		return domain.DealStatusInProgress
	}
	return domain.DealStatusCreated
}
