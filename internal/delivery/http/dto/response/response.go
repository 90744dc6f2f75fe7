package response

import (
	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
	dealdto "github.com/LavaJover/shvark-aggregator-service/internal/usecase/dto/deal"
	"github.com/LavaJover/shvark-aggregator-service/internal/usecase/sla"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type RoutedDealResponse struct {
	Deal     dealdto.DealOutput `json:"deal"`
	Attempts int                `json:"attempts"`
}

type PrioritiesResponse struct {
	Priorities []domain.PriorityUpdate `json:"priorities"`
}

type FeeRangesResponse struct {
	Ranges []domain.FeeRange `json:"ranges"`
}

type AggregatorSLA struct {
	AggregatorID      string  `json:"aggregatorId"`
	DisplayName       string  `json:"displayName,omitempty"`
	Priority          int     `json:"priority"`
	TotalCalls        int64   `json:"totalCalls"`
	SuccessRate       float64 `json:"successRate"`
	AvgResponseTimeMs float64 `json:"avgResponseTimeMs"`
	SLAViolationRate  float64 `json:"slaViolationRate"`
}

type SLAReportResponse struct {
	Window      string          `json:"window"`
	Aggregators []AggregatorSLA `json:"aggregators"`
}

func ToSLAReport(window string, items []sla.AggregatorSLA) SLAReportResponse {
	report := SLAReportResponse{Window: window, Aggregators: make([]AggregatorSLA, len(items))}
	for i, item := range items {
		report.Aggregators[i] = AggregatorSLA{
			AggregatorID:      item.AggregatorID,
			DisplayName:       item.DisplayName,
			Priority:          item.Priority,
			TotalCalls:        item.Stats.TotalCalls,
			SuccessRate:       item.Stats.SuccessRate(),
			AvgResponseTimeMs: item.Stats.AvgResponseTimeMs,
			SLAViolationRate:  item.Stats.SLAViolationRate(),
		}
	}
	return report
}

type HealthResponse struct {
	Status  string `json:"status"`
	Routing string `json:"routing"`
}
