package mappers

import (
	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
	"github.com/LavaJover/shvark-aggregator-service/internal/infrastructure/postgres/models"
)

func ToDomainIntegrationLog(model *models.IntegrationLogModel) *domain.IntegrationLogEntry {
	return &domain.IntegrationLogEntry{
		ID:             model.ID,
		AggregatorID:   model.AggregatorID,
		Direction:      domain.LogDirection(model.Direction),
		EventType:      model.EventType,
		StatusCode:     model.StatusCode,
		ResponseTimeMs: model.ResponseTimeMs,
		SlaViolation:   model.SlaViolation,
		Error:          model.Error,
		OurDealID:      model.OurDealID,
		PartnerDealID:  model.PartnerDealID,
		RequestedAt:    model.RequestedAt,
		RespondedAt:    model.RespondedAt,
		CreatedAt:      model.CreatedAt,
	}
}

func ToGORMIntegrationLog(entry *domain.IntegrationLogEntry) *models.IntegrationLogModel {
	return &models.IntegrationLogModel{
		ID:             entry.ID,
		AggregatorID:   entry.AggregatorID,
		Direction:      string(entry.Direction),
		EventType:      entry.EventType,
		StatusCode:     entry.StatusCode,
		ResponseTimeMs: entry.ResponseTimeMs,
		SlaViolation:   entry.SlaViolation,
		Error:          entry.Error,
		OurDealID:      entry.OurDealID,
		PartnerDealID:  entry.PartnerDealID,
		RequestedAt:    entry.RequestedAt,
		RespondedAt:    entry.RespondedAt,
		CreatedAt:      entry.CreatedAt,
	}
}
