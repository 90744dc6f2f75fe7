package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
	"github.com/LavaJover/shvark-aggregator-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-aggregator-service/internal/infrastructure/postgres/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DefaultAggregatorRepository struct {
	DB *gorm.DB
}

var _ domain.AggregatorRepository = (*DefaultAggregatorRepository)(nil)

func NewDefaultAggregatorRepository(db *gorm.DB) *DefaultAggregatorRepository {
	return &DefaultAggregatorRepository{DB: db}
}

func (r *DefaultAggregatorRepository) CreateAggregator(ctx context.Context, aggregator *domain.Aggregator) error {
	if aggregator.ID == "" {
		aggregator.ID = uuid.New().String()
	}
	if aggregator.VolumeResetAt.IsZero() {
		aggregator.VolumeResetAt = time.Now()
	}

	model := mappers.ToGORMAggregator(aggregator)
	if err := r.DB.WithContext(ctx).Create(model).Error; err != nil {
		return translate(err)
	}

	aggregator.CreatedAt = model.CreatedAt
	aggregator.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *DefaultAggregatorRepository) GetAggregatorByID(ctx context.Context, aggregatorID string) (*domain.Aggregator, error) {
	var model models.AggregatorModel
	if err := r.DB.WithContext(ctx).Where("id = ?", aggregatorID).First(&model).Error; err != nil {
		return nil, translate(err)
	}
	return mappers.ToDomainAggregator(&model), nil
}

func (r *DefaultAggregatorRepository) GetAggregatorByCallbackTokenHash(ctx context.Context, tokenHash string) (*domain.Aggregator, error) {
	if tokenHash == "" {
		return nil, domain.ErrNotFound
	}
	var model models.AggregatorModel
	if err := r.DB.WithContext(ctx).Where("callback_token_hash = ?", tokenHash).First(&model).Error; err != nil {
		return nil, translate(err)
	}
	return mappers.ToDomainAggregator(&model), nil
}

func (r *DefaultAggregatorRepository) ListActiveAggregators(ctx context.Context) ([]*domain.Aggregator, error) {
	return r.find(r.DB.WithContext(ctx).Where("is_active"))
}

func (r *DefaultAggregatorRepository) FindRoutingCandidates(ctx context.Context, amount float64) ([]*domain.Aggregator, error) {
	return r.find(r.DB.WithContext(ctx).
		Where("is_active AND balance_usdt >= min_balance").
		Where("max_daily_volume IS NULL OR current_daily_volume + ? <= max_daily_volume", amount))
}

func (r *DefaultAggregatorRepository) find(query *gorm.DB) ([]*domain.Aggregator, error) {
	var aggregatorModels []models.AggregatorModel
	if err := query.Order("priority ASC, id ASC").Find(&aggregatorModels).Error; err != nil {
		return nil, err
	}

	aggregators := make([]*domain.Aggregator, len(aggregatorModels))
	for i := range aggregatorModels {
		aggregators[i] = mappers.ToDomainAggregator(&aggregatorModels[i])
	}
	return aggregators, nil
}

// UpdatePriorities moves the batch through negative placeholders first,
// so swaps inside the batch never trip the active priority unique index.
func (r *DefaultAggregatorRepository) UpdatePriorities(ctx context.Context, updates []domain.PriorityUpdate, actor string, at time.Time) error {
	ids := make([]string, 0, len(updates))
	seen := make(map[string]struct{}, len(updates))
	for _, u := range updates {
		if _, ok := seen[u.AggregatorID]; !ok {
			seen[u.AggregatorID] = struct{}{}
			ids = append(ids, u.AggregatorID)
		}
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.AggregatorModel{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
			return err
		}
		if int(count) != len(ids) {
			return fmt.Errorf("%w: %d of %d aggregators exist", domain.ErrNotFound, count, len(ids))
		}

		for i, u := range updates {
			if err := tx.Model(&models.AggregatorModel{}).
				Where("id = ?", u.AggregatorID).
				Update("priority", -(i + 1)).Error; err != nil {
				return err
			}
		}

		for _, u := range updates {
			if err := tx.Model(&models.AggregatorModel{}).
				Where("id = ?", u.AggregatorID).
				Updates(map[string]interface{}{
					"priority":            u.Priority,
					"priority_changed_by": actor,
					"priority_changed_at": at,
					"updated_at":          at,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return translate(err)
}

func (r *DefaultAggregatorRepository) AddDailyVolume(ctx context.Context, aggregatorID string, delta float64) error {
	res := r.DB.WithContext(ctx).Model(&models.AggregatorModel{}).
		Where("id = ?", aggregatorID).
		Update("current_daily_volume", gorm.Expr("GREATEST(current_daily_volume + ?, 0)", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *DefaultAggregatorRepository) ResetDailyVolumes(ctx context.Context, resetBefore, now time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&models.AggregatorModel{}).
		Where("volume_reset_at < ?", resetBefore).
		Updates(map[string]interface{}{
			"current_daily_volume": 0,
			"volume_reset_at":      now,
		})
	return res.RowsAffected, res.Error
}
