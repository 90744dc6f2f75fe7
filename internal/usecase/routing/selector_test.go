package routing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
	"github.com/LavaJover/shvark-aggregator-service/internal/infrastructure/memory"
	"github.com/LavaJover/shvark-aggregator-service/internal/usecase/aggregator"
	dealdto "github.com/LavaJover/shvark-aggregator-service/internal/usecase/dto/deal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type behavior struct {
	delay      time.Duration
	statusCode int
	declined   bool
}

type fakePartner struct {
	mu        sync.Mutex
	behaviors map[string]behavior
	calls     []string
	inflight  int
	maxFlight int
}

func newFakePartner(behaviors map[string]behavior) *fakePartner {
	return &fakePartner{behaviors: behaviors}
}

func (p *fakePartner) CreateDeal(ctx context.Context, agg *domain.Aggregator, req *domain.PartnerDealRequest) (*domain.PartnerDealResponse, error) {
	p.mu.Lock()
	p.calls = append(p.calls, agg.ID)
	p.inflight++
	if p.inflight > p.maxFlight {
		p.maxFlight = p.inflight
	}
	b := p.behaviors[agg.ID]
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.inflight--
		p.mu.Unlock()
	}()

	select {
	case <-time.After(b.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if b.statusCode != 0 && b.statusCode != http.StatusOK {
		return &domain.PartnerDealResponse{StatusCode: b.statusCode}, fmt.Errorf("%w: status %d", domain.ErrUpstream, b.statusCode)
	}
	if b.declined {
		return &domain.PartnerDealResponse{StatusCode: http.StatusOK, Accepted: false}, nil
	}
	return &domain.PartnerDealResponse{
		StatusCode: http.StatusOK,
		Accepted:   true,
		Deal: &domain.PartnerDeal{
			PartnerDealID: "p-" + agg.ID,
			OurDealID:     req.OurDealID,
			Status:        domain.DealStatusInProgress,
			Amount:        req.Amount,
			PaymentMethod: req.PaymentMethod,
			Requisites:    domain.Requisites{BankType: "sber", PhoneNumber: "+79990000000", RecipientName: "Ivan I."},
		},
	}, nil
}

func (p *fakePartner) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

type fixture struct {
	aggregators *memory.AggregatorRepository
	links       *memory.AggregatorMerchantRepository
	merchants   *memory.MerchantMethodRepository
	deals       *memory.DealRepository
	logs        *memory.IntegrationLogRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		aggregators: memory.NewAggregatorRepository(),
		links:       memory.NewAggregatorMerchantRepository(),
		merchants:   memory.NewMerchantMethodRepository(),
		deals:       memory.NewDealRepository(),
		logs:        memory.NewIntegrationLogRepository(),
	}
	require.NoError(t, f.merchants.SaveMerchantMethod(context.Background(), &domain.MerchantMethod{
		MerchantID: "m-1", MethodID: "sbp", PaymentMethodType: domain.PaymentMethodSBP, FeeInPercent: 6,
	}))
	return f
}

func (f *fixture) addAggregator(t *testing.T, a domain.Aggregator, withLink bool) {
	t.Helper()

	ctx := context.Background()
	if a.MaxSlaMs == 0 {
		a.MaxSlaMs = 1000
	}
	require.NoError(t, f.aggregators.CreateAggregator(ctx, &a))
	if withLink {
		require.NoError(t, f.links.CreateAggregatorMerchant(ctx, &domain.AggregatorMerchant{
			AggregatorID: a.ID, MerchantID: "m-1", MethodID: "sbp",
			FeeIn:        3, IsFeeInEnabled: true, IsTrafficEnabled: true,
		}))
	}
}

func (f *fixture) selector(t *testing.T, partner domain.AggregatorClient) *Selector {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	holds := aggregator.NewService(f.aggregators, f.links, nil, logger)
	s, err := NewSelector(f.aggregators, f.links, f.merchants, f.deals, f.logs, partner, holds, nil, logger,
		Options{CallbackURL: "https://pay.example.com/aggregators/callback", DealTTL: 15 * time.Minute})
	require.NoError(t, err)
	return s
}

func sbpDeal(amount float64) *dealdto.RouteInput {
	return &dealdto.RouteInput{
		MerchantID:        "m-1",
		MethodID:          "sbp",
		Amount:            amount,
		Rate:              100,
		PaymentMethodType: domain.PaymentMethodSBP,
	}
}

func TestRoute_FallsBackAfterSlaTimeout(t *testing.T) {
	f := newFixture(t)
	f.addAggregator(t, domain.Aggregator{ID: "A", Priority: 1, IsActive: true, BalanceUsdt: 500, MaxSlaMs: 2000}, true)
	f.addAggregator(t, domain.Aggregator{ID: "B", Priority: 2, IsActive: true, BalanceUsdt: 500, MaxSlaMs: 2000}, true)
	partner := newFakePartner(map[string]behavior{
		"A": {delay: 3000 * time.Millisecond},
		"B": {delay: 500 * time.Millisecond},
	})

	routed, err := f.selector(t, partner).Route(context.Background(), sbpDeal(10000))

	require.NoError(t, err)
	assert.Equal(t, "B", routed.Deal.AggregatorID)
	assert.Equal(t, "p-B", routed.Deal.PartnerDealID)
	assert.Equal(t, 2, routed.Attempts)

	logs := f.logs.Entries()
	require.Len(t, logs, 2)
	assert.Equal(t, "A", logs[0].AggregatorID)
	assert.True(t, logs[0].SlaViolation)
	assert.Equal(t, domain.LogDirectionOut, logs[0].Direction)
	assert.Equal(t, domain.EventTypeDealCreate, logs[0].EventType)
	assert.Less(t, logs[0].ResponseTimeMs, int64(3000))
	assert.Equal(t, "B", logs[1].AggregatorID)
	assert.False(t, logs[1].SlaViolation)
	assert.Equal(t, "p-B", logs[1].PartnerDealID)

	stored, err := f.deals.GetDealByOurDealID(context.Background(), routed.Deal.OurDealID)
	require.NoError(t, err)
	assert.Equal(t, "B", stored.AggregatorID)
	assert.Equal(t, "sber", stored.Requisites.BankType)
}

func TestRoute_SkipsIneligibleAggregators(t *testing.T) {
	f := newFixture(t)
	capped := 10500.0
	f.addAggregator(t, domain.Aggregator{ID: "inactive", Priority: 1, IsActive: false, BalanceUsdt: 500}, true)
	f.addAggregator(t, domain.Aggregator{ID: "poor", Priority: 2, IsActive: true, BalanceUsdt: 5, MinBalance: 10}, true)
	f.addAggregator(t, domain.Aggregator{ID: "capped", Priority: 3, IsActive: true, BalanceUsdt: 500, MaxDailyVolume: &capped, CurrentDailyVolume: 1000}, true)
	f.addAggregator(t, domain.Aggregator{ID: "unlinked", Priority: 4, IsActive: true, BalanceUsdt: 500}, false)
	f.addAggregator(t, domain.Aggregator{ID: "ok", Priority: 5, IsActive: true, BalanceUsdt: 500}, true)
	partner := newFakePartner(map[string]behavior{})

	routed, err := f.selector(t, partner).Route(context.Background(), sbpDeal(10000))

	require.NoError(t, err)
	assert.Equal(t, "ok", routed.Deal.AggregatorID)
	assert.Equal(t, []string{"ok"}, partner.Calls())
	assert.Len(t, f.logs.Entries(), 1)
}

func TestRoute_SkipsTrafficDisabledLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addAggregator(t, domain.Aggregator{ID: "off", Priority: 1, IsActive: true, BalanceUsdt: 500}, false)
	require.NoError(t, f.links.CreateAggregatorMerchant(ctx, &domain.AggregatorMerchant{
		AggregatorID: "off", MerchantID: "m-1", MethodID: "sbp", IsTrafficEnabled: false,
	}))
	f.addAggregator(t, domain.Aggregator{ID: "on", Priority: 2, IsActive: true, BalanceUsdt: 500}, true)
	partner := newFakePartner(map[string]behavior{})

	routed, err := f.selector(t, partner).Route(ctx, sbpDeal(100))

	require.NoError(t, err)
	assert.Equal(t, "on", routed.Deal.AggregatorID)
	assert.Equal(t, []string{"on"}, partner.Calls())
}

func TestRoute_DeclineAndUpstreamErrorAreViolations(t *testing.T) {
	f := newFixture(t)
	f.addAggregator(t, domain.Aggregator{ID: "A", Priority: 1, IsActive: true, BalanceUsdt: 500}, true)
	f.addAggregator(t, domain.Aggregator{ID: "B", Priority: 2, IsActive: true, BalanceUsdt: 500}, true)
	f.addAggregator(t, domain.Aggregator{ID: "C", Priority: 3, IsActive: true, BalanceUsdt: 500}, true)
	partner := newFakePartner(map[string]behavior{
		"A": {declined: true},
		"B": {statusCode: http.StatusBadGateway},
	})

	routed, err := f.selector(t, partner).Route(context.Background(), sbpDeal(100))

	require.NoError(t, err)
	assert.Equal(t, "C", routed.Deal.AggregatorID)
	logs := f.logs.Entries()
	require.Len(t, logs, 3)
	assert.True(t, logs[0].SlaViolation)
	assert.Equal(t, http.StatusOK, logs[0].StatusCode)
	assert.True(t, logs[1].SlaViolation)
	assert.Equal(t, http.StatusBadGateway, logs[1].StatusCode)
	assert.False(t, logs[2].SlaViolation)
}

func TestRoute_NoAggregatorAvailable(t *testing.T) {
	f := newFixture(t)
	f.addAggregator(t, domain.Aggregator{ID: "A", Priority: 1, IsActive: true, BalanceUsdt: 500}, true)
	f.addAggregator(t, domain.Aggregator{ID: "B", Priority: 2, IsActive: true, BalanceUsdt: 500}, true)
	partner := newFakePartner(map[string]behavior{
		"A": {declined: true},
		"B": {statusCode: http.StatusInternalServerError},
	})

	routed, err := f.selector(t, partner).Route(context.Background(), sbpDeal(100))

	require.ErrorIs(t, err, domain.ErrNoAggregatorAvailable)
	assert.Nil(t, routed)
	assert.Len(t, f.logs.Entries(), 2)
	for _, id := range []string{"A", "B"} {
		agg, err := f.aggregators.GetAggregatorByID(context.Background(), id)
		require.NoError(t, err)
		assert.Zero(t, agg.CurrentDailyVolume)
	}
}

func TestRoute_NoCandidates(t *testing.T) {
	f := newFixture(t)

	_, err := f.selector(t, newFakePartner(nil)).Route(context.Background(), sbpDeal(100))

	assert.ErrorIs(t, err, domain.ErrNoAggregatorAvailable)
}

func TestRoute_PersistsFeesAndReservesVolume(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.aggregators.CreateAggregator(ctx, &domain.Aggregator{ID: "A", Priority: 1, IsActive: true, BalanceUsdt: 500, MaxSlaMs: 1000}))
	require.NoError(t, f.links.CreateAggregatorMerchant(ctx, &domain.AggregatorMerchant{
		AggregatorID: "A", MerchantID: "m-1", MethodID: "sbp",
		FeeIn:        3, IsFeeInEnabled: true, IsTrafficEnabled: true, UseFlexibleRates: true,
		FeeRanges: []domain.FeeRange{
			{MinAmount: 0, MaxAmount: 1000, FeeInPercent: 1, IsActive: true},
			{MinAmount: 1000.01, MaxAmount: 5000, FeeInPercent: 2, IsActive: true},
		},
	}))

	routed, err := f.selector(t, newFakePartner(nil)).Route(ctx, sbpDeal(1500))

	require.NoError(t, err)
	deal := routed.Deal
	assert.Equal(t, 2.0, deal.AggregatorFeeInPercent)
	assert.Equal(t, 6.0, deal.MerchantFeeInPercent)
	assert.Equal(t, domain.DealStatusInProgress, deal.Status)
	assert.False(t, deal.IsSettled())
	assert.Len(t, deal.OurDealID, ourDealIDLength)

	agg, err := f.aggregators.GetAggregatorByID(ctx, "A")
	require.NoError(t, err)
	assert.InDelta(t, 1500, agg.CurrentDailyVolume, 1e-9)
}

func TestRoute_CandidatesAreTriedSequentially(t *testing.T) {
	f := newFixture(t)
	for i := 1; i <= 4; i++ {
		f.addAggregator(t, domain.Aggregator{ID: fmt.Sprintf("agg-%d", i), Priority: i, IsActive: true, BalanceUsdt: 500}, true)
	}
	partner := newFakePartner(map[string]behavior{
		"agg-1": {delay: 20 * time.Millisecond, declined: true},
		"agg-2": {delay: 20 * time.Millisecond, declined: true},
		"agg-3": {delay: 20 * time.Millisecond, declined: true},
	})

	routed, err := f.selector(t, partner).Route(context.Background(), sbpDeal(100))

	require.NoError(t, err)
	assert.Equal(t, "agg-4", routed.Deal.AggregatorID)
	assert.Equal(t, []string{"agg-1", "agg-2", "agg-3", "agg-4"}, partner.Calls())
	assert.Equal(t, 1, partner.maxFlight)
}

func TestRoute_RejectsMalformedInput(t *testing.T) {
	f := newFixture(t)
	s := f.selector(t, newFakePartner(nil))

	for name, in := range map[string]*dealdto.RouteInput{
		"no merchant":    {MethodID: "sbp", Amount: 1, Rate: 1},
		"zero amount":    {MerchantID: "m-1", MethodID: "sbp", Rate: 1},
		"zero rate":      {MerchantID: "m-1", MethodID: "sbp", Amount: 1},
		"unknown method": {MerchantID: "m-1", MethodID: "sbp", Amount: 1, Rate: 1, PaymentMethodType: "CASH"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.Route(context.Background(), in)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestRoute_UnknownMerchantMethod(t *testing.T) {
	f := newFixture(t)
	in := sbpDeal(100)
	in.MethodID = "c2c"

	_, err := f.selector(t, newFakePartner(nil)).Route(context.Background(), in)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
