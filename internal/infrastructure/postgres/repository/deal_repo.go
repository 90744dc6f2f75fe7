package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
	"github.com/LavaJover/shvark-aggregator-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-aggregator-service/internal/infrastructure/postgres/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// metadata может быть NULL или JSON null, слияние только поверх объекта
const mergeMetadataSQL = `CASE WHEN jsonb_typeof(metadata) = 'object' THEN metadata ELSE '{}'::jsonb END || ?::jsonb`

type DefaultDealRepository struct {
	DB *gorm.DB
}

var _ domain.DealRepository = (*DefaultDealRepository)(nil)

func NewDefaultDealRepository(db *gorm.DB) *DefaultDealRepository {
	return &DefaultDealRepository{DB: db}
}

func (r *DefaultDealRepository) CreateDeal(ctx context.Context, deal *domain.Deal) error {
	if deal.ID == "" {
		deal.ID = uuid.New().String()
	}
	model := mappers.ToGORMDeal(deal)
	if err := r.DB.WithContext(ctx).Create(model).Error; err != nil {
		return translate(err)
	}

	deal.CreatedAt = model.CreatedAt
	deal.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *DefaultDealRepository) GetDealByID(ctx context.Context, dealID string) (*domain.Deal, error) {
	var model models.DealModel
	if err := r.DB.WithContext(ctx).Where("id = ?", dealID).First(&model).Error; err != nil {
		return nil, translate(err)
	}
	return mappers.ToDomainDeal(&model), nil
}

func (r *DefaultDealRepository) GetDealByOurDealID(ctx context.Context, ourDealID string) (*domain.Deal, error) {
	var model models.DealModel
	if err := r.DB.WithContext(ctx).Where("our_deal_id = ?", ourDealID).First(&model).Error; err != nil {
		return nil, translate(err)
	}
	return mappers.ToDomainDeal(&model), nil
}

func (r *DefaultDealRepository) CompareAndSetStatus(ctx context.Context, change *domain.DealStatusChange) (*domain.Deal, error) {
	updates, err := statusChangeColumns(change)
	if err != nil {
		return nil, err
	}

	var model models.DealModel
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// UPDATE ... WHERE status = from: строка остаётся заблокированной до конца транзакции
		res := tx.Model(&models.DealModel{}).
			Where("id = ? AND status = ?", change.DealID, string(change.From)).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.DealModel{}).Where("id = ?", change.DealID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return domain.ErrNotFound
			}
			return domain.ErrConflict
		}
		return tx.Where("id = ?", change.DealID).First(&model).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return mappers.ToDomainDeal(&model), nil
}

func statusChangeColumns(change *domain.DealStatusChange) (map[string]interface{}, error) {
	updates := map[string]interface{}{
		"status":     string(change.To),
		"updated_at": change.UpdatedAt,
	}

	if p := change.Patch; p != nil {
		if p.Amount != nil {
			updates["amount"] = *p.Amount
		}
		if p.PartnerDealID != nil {
			updates["partner_deal_id"] = *p.PartnerDealID
		}
		if p.Reason != nil {
			updates["reason"] = *p.Reason
		}
		if len(p.Metadata) > 0 {
			raw, err := json.Marshal(p.Metadata)
			if err != nil {
				return nil, fmt.Errorf("%w: metadata: %v", domain.ErrValidation, err)
			}
			updates["metadata"] = gorm.Expr(mergeMetadataSQL, string(raw))
		}
	}

	if s := change.Settlement; s != nil {
		updates["merchant_fee_in_percent"] = s.MerchantFeeInPercent
		updates["aggregator_fee_in_percent"] = s.AggregatorFeeInPercent
		updates["merchant_profit"] = s.MerchantProfit
		updates["aggregator_profit"] = s.AggregatorProfit
		updates["platform_profit"] = s.PlatformProfit
		updates["settled_at"] = s.SettledAt
	}
	return updates, nil
}

func (r *DefaultDealRepository) FindExpiredDeals(ctx context.Context, now time.Time, limit int) ([]*domain.Deal, error) {
	query := r.DB.WithContext(ctx).
		Where("status IN ? AND expires_at < ?", []string{string(domain.DealStatusCreated), string(domain.DealStatusInProgress)}, now).
		Order("expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var dealModels []models.DealModel
	if err := query.Find(&dealModels).Error; err != nil {
		return nil, err
	}

	deals := make([]*domain.Deal, len(dealModels))
	for i := range dealModels {
		deals[i] = mappers.ToDomainDeal(&dealModels[i])
	}
	return deals, nil
}
