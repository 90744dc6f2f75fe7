package repository

import (
	"context"
	"time"

	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
	"github.com/LavaJover/shvark-aggregator-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-aggregator-service/internal/infrastructure/postgres/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DefaultIntegrationLogRepository struct {
	DB *gorm.DB
}

var _ domain.IntegrationLogRepository = (*DefaultIntegrationLogRepository)(nil)

func NewDefaultIntegrationLogRepository(db *gorm.DB) *DefaultIntegrationLogRepository {
	return &DefaultIntegrationLogRepository{DB: db}
}

func (r *DefaultIntegrationLogRepository) AppendLog(ctx context.Context, entry *domain.IntegrationLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return r.DB.WithContext(ctx).Create(mappers.ToGORMIntegrationLog(entry)).Error
}

func (r *DefaultIntegrationLogRepository) AggregateSLA(ctx context.Context, direction domain.LogDirection, eventType string, since time.Time) ([]domain.SLAStats, error) {
	var stats []domain.SLAStats
	err := r.DB.WithContext(ctx).Model(&models.IntegrationLogModel{}).
		Select(`aggregator_id,
			COUNT(*) AS total_calls,
			COUNT(*) FILTER (WHERE status_code BETWEEN 200 AND 299 AND NOT sla_violation) AS successful_calls,
			COUNT(*) FILTER (WHERE sla_violation) AS violations,
			COALESCE(AVG(response_time_ms), 0) AS avg_response_time_ms`).
		Where("direction = ? AND event_type = ? AND requested_at >= ?", string(direction), eventType, since).
		Group("aggregator_id").
		Order("aggregator_id").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *DefaultIntegrationLogRepository) ListLogsByOurDealID(ctx context.Context, ourDealID string) ([]*domain.IntegrationLogEntry, error) {
	var logModels []models.IntegrationLogModel
	if err := r.DB.WithContext(ctx).
		Where("our_deal_id = ?", ourDealID).
		Order("requested_at ASC").
		Find(&logModels).Error; err != nil {
		return nil, err
	}

	entries := make([]*domain.IntegrationLogEntry, len(logModels))
	for i := range logModels {
		entries[i] = mappers.ToDomainIntegrationLog(&logModels[i])
	}
	return entries, nil
}
