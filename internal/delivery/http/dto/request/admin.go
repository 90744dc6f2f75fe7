package request

import "github.com/LavaJover/shvark-aggregator-service/internal/domain"

type UpdatePrioritiesRequest struct {
	Priorities []domain.PriorityUpdate `json:"priorities"`
}

type ReplaceFeeRangesRequest struct {
	Ranges []domain.FeeRange `json:"ranges"`
}

type OverrideDealRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}
