package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LavaJover/shvark-aggregator-service/internal/delivery/http/dto/response"
	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
	callbackdto "github.com/LavaJover/shvark-aggregator-service/internal/usecase/dto/callback"
	dealdto "github.com/LavaJover/shvark-aggregator-service/internal/usecase/dto/deal"
	"github.com/LavaJover/shvark-aggregator-service/internal/usecase/sla"
)

type stubRouter struct {
	err   error
	input *dealdto.RouteInput
}

func (s *stubRouter) Route(_ context.Context, input *dealdto.RouteInput) (*dealdto.RoutedDeal, error) {
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	return &dealdto.RoutedDeal{
		Deal: &domain.Deal{
			ID:         "d-1", OurDealID: "our-1", AggregatorID: "agg-a",
			MerchantID: input.MerchantID, MethodID: input.MethodID,
			Amount:     input.Amount, Rate: input.Rate, Status: domain.DealStatusCreated,
		},
		Attempts: 2,
	}, nil
}

type stubIngestor struct {
	token  string
	result *callbackdto.BatchResult
	err    error
	calls  int
}

func (s *stubIngestor) Ingest(_ context.Context, token string, payloads []callbackdto.Payload) (*callbackdto.BatchResult, error) {
	s.calls++
	s.token = token
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	out := &callbackdto.BatchResult{}
	for _, p := range payloads {
		out.Add(callbackdto.Result{Status: callbackdto.ResultAccepted, OurDealID: p.OurDealID})
	}
	return out, nil
}

type stubAdmin struct {
	actor   string
	updates []domain.PriorityUpdate
	linkID  string
	err     error
}

func (s *stubAdmin) UpdatePriorities(_ context.Context, updates []domain.PriorityUpdate, actor string) error {
	s.updates, s.actor = updates, actor
	return s.err
}

func (s *stubAdmin) ReplaceFeeRanges(_ context.Context, id string, ranges []domain.FeeRange) ([]domain.FeeRange, error) {
	s.linkID = id
	if s.err != nil {
		return nil, s.err
	}
	return ranges, nil
}

type stubSLA struct {
	window time.Duration
	actor  string
}

func (s *stubSLA) CollectStats(_ context.Context, window time.Duration) ([]sla.AggregatorSLA, error) {
	s.window = window
	return []sla.AggregatorSLA{{
		AggregatorID: "agg-a",
		Priority:     1,
		Stats:        domain.SLAStats{AggregatorID: "agg-a", TotalCalls: 4, SuccessfulCalls: 3, Violations: 1, AvgResponseTimeMs: 250},
	}}, nil
}

func (s *stubSLA) RecalculatePriorities(_ context.Context, actor string) ([]domain.PriorityUpdate, error) {
	s.actor = actor
	return []domain.PriorityUpdate{{AggregatorID: "agg-a", Priority: 1}}, nil
}

type stubOverrider struct {
	next  domain.DealStatus
	actor string
	err   error
}

func (s *stubOverrider) OverrideByID(_ context.Context, id string, next domain.DealStatus, actor, _ string) (*domain.Deal, error) {
	s.next, s.actor = next, actor
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Deal{ID: id, Status: next}, nil
}

type stubHealth bool

func (s stubHealth) RoutingServing() bool { return bool(s) }

type testEnv struct {
	router    *stubRouter
	callbacks *stubIngestor
	admin     *stubAdmin
	sla       *stubSLA
	overrides *stubOverrider
	handler   http.Handler
}

func newTestEnv(t *testing.T, limiter *TokenRateLimiter) *testEnv {
	t.Helper()

	env := &testEnv{
		router:    &stubRouter{},
		callbacks: &stubIngestor{},
		admin:     &stubAdmin{},
		sla:       &stubSLA{},
		overrides: &stubOverrider{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &Handler{
		Deals:     env.router,
		Callbacks: env.callbacks,
		Admin:     env.admin,
		SLA:       env.sla,
		Overrides: env.overrides,
		Health:    stubHealth(false),
		Logger:    logger,
	}
	env.handler = NewRouter(h, RouterOptions{Logger: logger, Limiter: limiter, Gatherer: prometheus.NewRegistry()})
	return env
}

func (e *testEnv) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateDeal(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/deals", `{"merchantId":"m-1","methodId":"sbp","amount":1000,"rate":95}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var body response.RoutedDealResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Attempts)
	assert.Equal(t, "agg-a", body.Deal.AggregatorID)
	assert.Equal(t, 1000.0, env.router.input.Amount)
}

func TestCreateDeal_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: amount", domain.ErrValidation), http.StatusBadRequest},
		{domain.ErrNoAggregatorAvailable, http.StatusServiceUnavailable},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrConflict, http.StatusConflict},
		{fmt.Errorf("db is down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		env := newTestEnv(t, nil)
		env.router.err = tc.err

		rec := env.do(http.MethodPost, "/deals", `{"merchantId":"m-1"}`)

		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
	}

	env := newTestEnv(t, nil)
	env.router.err = fmt.Errorf("pq: password=secret")
	rec := env.do(http.MethodPost, "/deals", `{}`)
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestCreateDeal_MalformedBody(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/deals", `{"merchantId":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, env.router.input)
}

func TestCallback_Single(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/aggregators/callback", `{"ourDealId":"our-1","status":"READY"}`, "Authorization", "Bearer tok-1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok-1", env.callbacks.token)
	var item callbackdto.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	assert.Equal(t, callbackdto.ResultAccepted, item.Status)
}

func TestCallback_SingleErrorItem(t *testing.T) {
	env := newTestEnv(t, nil)
	env.callbacks.result = &callbackdto.BatchResult{}
	env.callbacks.result.Add(callbackdto.Result{Status: callbackdto.ResultError, OurDealID: "x", Message: "Deal not found"})

	rec := env.do(http.MethodPost, "/aggregators/callback", `{"ourDealId":"x","status":"READY"}`, "Authorization", "Bearer tok-1")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCallback_Unauthorized(t *testing.T) {
	env := newTestEnv(t, nil)
	env.callbacks.err = fmt.Errorf("%w: unknown callback token", domain.ErrUnauthorized)

	rec := env.do(http.MethodPost, "/aggregators/callback/batch", `[{"ourDealId":"our-1"}]`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, env.callbacks.token)
}

func TestCallback_Batch(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/aggregators/callback/batch",
		`[{"ourDealId":"a","status":"READY"},{"ourDealId":"b","status":"CANCELED"}]`, "Authorization", "Bearer tok-1")

	require.Equal(t, http.StatusOK, rec.Code)
	var body callbackdto.BatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.TotalCount)
	assert.Equal(t, 2, body.SuccessCount)
}

func TestCallback_RateLimited(t *testing.T) {
	env := newTestEnv(t, NewTokenRateLimiter(0.001, 1))
	body := `{"ourDealId":"our-1","status":"READY"}`

	first := env.do(http.MethodPost, "/aggregators/callback", body, "Authorization", "Bearer tok-1")
	second := env.do(http.MethodPost, "/aggregators/callback", body, "Authorization", "Bearer tok-1")
	other := env.do(http.MethodPost, "/aggregators/callback", body, "Authorization", "Bearer tok-2")

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, http.StatusOK, other.Code)
	assert.Equal(t, 2, env.callbacks.calls)
}

func TestTokenRateLimiter_EvictsIdle(t *testing.T) {
	l := NewTokenRateLimiter(1, 1)
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return at }

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	at = at.Add(time.Hour)
	assert.True(t, l.Allow("b"))
	l.mu.Lock()
	_, kept := l.entries["a"]
	l.mu.Unlock()
	assert.False(t, kept)
}

func TestUpdatePriorities(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPut, "/admin/aggregators/priorities",
		`{"priorities":[{"aggregatorId":"X","priority":2},{"aggregatorId":"Y","priority":1}]}`, adminHeader, "admin-1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin-1", env.admin.actor)
	assert.Equal(t, []domain.PriorityUpdate{{AggregatorID: "X", Priority: 2}, {AggregatorID: "Y", Priority: 1}}, env.admin.updates)

	env.admin.err = domain.ErrConflict
	rec = env.do(http.MethodPut, "/admin/aggregators/priorities", `{"priorities":[{"aggregatorId":"X","priority":3}]}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRecalculatePriorities(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/admin/aggregators/priorities/recalculate", ``, adminHeader, "admin-2")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin-2", env.sla.actor)
	assert.Contains(t, rec.Body.String(), `"aggregatorId":"agg-a"`)
}

func TestSLAReport(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/admin/aggregators/sla?window=30m", ``)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 30*time.Minute, env.sla.window)
	var body response.SLAReportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Aggregators, 1)
	assert.InDelta(t, 0.75, body.Aggregators[0].SuccessRate, 1e-9)
	assert.InDelta(t, 0.25, body.Aggregators[0].SLAViolationRate, 1e-9)

	rec = env.do(http.MethodGet, "/admin/aggregators/sla?window=-5m", ``)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReplaceFeeRanges(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPut, "/admin/aggregator-merchants/link-1/fee-ranges",
		`{"ranges":[{"minAmount":0,"maxAmount":1000,"feeInPercent":1.5,"isActive":true}]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "link-1", env.admin.linkID)
	var body response.FeeRangesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Ranges, 1)
	assert.Equal(t, 1.5, body.Ranges[0].FeeInPercent)
}

func TestOverrideDeal(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/admin/deals/d-9/override", `{"status":"CANCELED","reason":"fraud"}`, adminHeader, "admin-1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.DealStatusCanceled, env.overrides.next)
	assert.Equal(t, "admin-1", env.overrides.actor)

	rec = env.do(http.MethodPost, "/admin/deals/d-9/override", `{"status":"UNKNOWN"}`, adminHeader, "admin-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.overrides.err = domain.ErrInvalidTransition
	rec = env.do(http.MethodPost, "/admin/deals/d-9/override", `{"status":"MILK"}`, adminHeader, "admin-1")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/health", ``)
	require.Equal(t, http.StatusOK, rec.Code)
	var body response.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "NOT_SERVING", body.Routing)

	rec = env.do(http.MethodGet, "/metrics", ``)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, bearerToken(req))

	req.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, bearerToken(req))

	req.Header.Set("Authorization", "bearer  tok ")
	assert.Equal(t, "tok", bearerToken(req))
}
