package partner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
)

// ответ партнёра больше этого размера считаем ошибкой
const maxResponseBytes = 1 << 20

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HTTPAggregatorClient talks to the partner API: POST {apiBaseUrl}/deals with a bearer token
type HTTPAggregatorClient struct {
	client *http.Client
}

var _ domain.AggregatorClient = (*HTTPAggregatorClient)(nil)

// NewHTTPAggregatorClient caps every call by timeout; the per-aggregator SLA comes in through ctx
func NewHTTPAggregatorClient(timeout time.Duration) *HTTPAggregatorClient {
	return &HTTPAggregatorClient{
		client: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPAggregatorClient) CreateDeal(ctx context.Context, aggregator *domain.Aggregator, req *domain.PartnerDealRequest) (*domain.PartnerDealResponse, error) {
	requestBodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal partner request: %w", err)
	}

	url := strings.TrimRight(aggregator.APIBaseURL, "/") + "/deals"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build partner request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if aggregator.APIToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+aggregator.APIToken)
	}

	response, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	responseBodyBytes, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return &domain.PartnerDealResponse{StatusCode: response.StatusCode}, fmt.Errorf("%w: read body: %v", domain.ErrUpstream, err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		var errResp errorResponse
		msg := http.StatusText(response.StatusCode)
		if json.Unmarshal(responseBodyBytes, &errResp) == nil {
			if errResp.Error != "" {
				msg = errResp.Error
			} else if errResp.Message != "" {
				msg = errResp.Message
			}
		}
		return &domain.PartnerDealResponse{StatusCode: response.StatusCode},
			fmt.Errorf("%w: status %d: %s", domain.ErrUpstream, response.StatusCode, msg)
	}

	var result domain.PartnerDealResponse
	if err := json.Unmarshal(responseBodyBytes, &result); err != nil {
		return &domain.PartnerDealResponse{StatusCode: response.StatusCode}, fmt.Errorf("%w: decode body: %v", domain.ErrUpstream, err)
	}
	result.StatusCode = response.StatusCode
	return &result, nil
}
