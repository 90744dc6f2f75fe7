package mappers

import (
	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
	"github.com/LavaJover/shvark-aggregator-service/internal/infrastructure/postgres/models"
)

func ToDomainAggregator(model *models.AggregatorModel) *domain.Aggregator {
	return &domain.Aggregator{
		ID:                 model.ID,
		DisplayName:        model.DisplayName,
		Priority:           model.Priority,
		IsActive:           model.IsActive,
		BalanceUsdt:        model.BalanceUsdt,
		MinBalance:         model.MinBalance,
		MaxSlaMs:           model.MaxSlaMs,
		MaxDailyVolume:     model.MaxDailyVolume,
		CurrentDailyVolume: model.CurrentDailyVolume,
		VolumeResetAt:      model.VolumeResetAt,
		APIBaseURL:         model.APIBaseURL,
		APIToken:           model.APIToken,
		CallbackTokenHash:  model.CallbackTokenHash,
		PriorityChangedBy:  model.PriorityChangedBy,
		PriorityChangedAt:  model.PriorityChangedAt,
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
	}
}

func ToGORMAggregator(aggregator *domain.Aggregator) *models.AggregatorModel {
	return &models.AggregatorModel{
		ID:                 aggregator.ID,
		DisplayName:        aggregator.DisplayName,
		Priority:           aggregator.Priority,
		IsActive:           aggregator.IsActive,
		BalanceUsdt:        aggregator.BalanceUsdt,
		MinBalance:         aggregator.MinBalance,
		MaxSlaMs:           aggregator.MaxSlaMs,
		MaxDailyVolume:     aggregator.MaxDailyVolume,
		CurrentDailyVolume: aggregator.CurrentDailyVolume,
		VolumeResetAt:      aggregator.VolumeResetAt,
		APIBaseURL:         aggregator.APIBaseURL,
		APIToken:           aggregator.APIToken,
		CallbackTokenHash:  aggregator.CallbackTokenHash,
		PriorityChangedBy:  aggregator.PriorityChangedBy,
		PriorityChangedAt:  aggregator.PriorityChangedAt,
		CreatedAt:          aggregator.CreatedAt,
		UpdatedAt:          aggregator.UpdatedAt,
	}
}
