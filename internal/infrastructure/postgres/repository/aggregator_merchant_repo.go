package repository

import (
	"context"
	"time"

	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
	"github.com/LavaJover/shvark-aggregator-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-aggregator-service/internal/infrastructure/postgres/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DefaultAggregatorMerchantRepository struct {
	DB *gorm.DB
}

var _ domain.AggregatorMerchantRepository = (*DefaultAggregatorMerchantRepository)(nil)

func NewDefaultAggregatorMerchantRepository(db *gorm.DB) *DefaultAggregatorMerchantRepository {
	return &DefaultAggregatorMerchantRepository{DB: db}
}

func (r *DefaultAggregatorMerchantRepository) CreateAggregatorMerchant(ctx context.Context, link *domain.AggregatorMerchant) error {
	if link.ID == "" {
		link.ID = uuid.New().String()
	}
	for i := range link.FeeRanges {
		if link.FeeRanges[i].ID == "" {
			link.FeeRanges[i].ID = uuid.New().String()
		}
		link.FeeRanges[i].AggregatorMerchantID = link.ID
	}

	model := mappers.ToGORMAggregatorMerchant(link)
	if err := r.DB.WithContext(ctx).Create(model).Error; err != nil {
		return translate(err)
	}

	link.CreatedAt = model.CreatedAt
	link.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *DefaultAggregatorMerchantRepository) GetAggregatorMerchant(ctx context.Context, aggregatorID, merchantID, methodID string) (*domain.AggregatorMerchant, error) {
	var model models.AggregatorMerchantModel
	if err := r.withRanges(ctx).
		Where("aggregator_id = ? AND merchant_id = ? AND method_id = ?", aggregatorID, merchantID, methodID).
		First(&model).Error; err != nil {
		return nil, translate(err)
	}
	return mappers.ToDomainAggregatorMerchant(&model), nil
}

func (r *DefaultAggregatorMerchantRepository) GetAggregatorMerchantByID(ctx context.Context, id string) (*domain.AggregatorMerchant, error) {
	var model models.AggregatorMerchantModel
	if err := r.withRanges(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translate(err)
	}
	return mappers.ToDomainAggregatorMerchant(&model), nil
}

func (r *DefaultAggregatorMerchantRepository) withRanges(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).Preload("FeeRanges", func(db *gorm.DB) *gorm.DB {
		return db.Order("min_amount ASC")
	})
}

func (r *DefaultAggregatorMerchantRepository) ReplaceFeeRanges(ctx context.Context, aggregatorMerchantID string, ranges []domain.FeeRange) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// блокируем связку, параллельные замены идут по очереди
		var link models.AggregatorMerchantModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", aggregatorMerchantID).
			First(&link).Error; err != nil {
			return err
		}

		if err := tx.Where("aggregator_merchant_id = ?", aggregatorMerchantID).
			Delete(&models.FeeRangeModel{}).Error; err != nil {
			return err
		}

		if len(ranges) > 0 {
			rangeModels := make([]models.FeeRangeModel, len(ranges))
			for i := range ranges {
				if ranges[i].ID == "" {
					ranges[i].ID = uuid.New().String()
				}
				rangeModels[i] = mappers.ToGORMFeeRange(aggregatorMerchantID, &ranges[i])
			}
			if err := tx.Create(&rangeModels).Error; err != nil {
				return err
			}
		}

		return tx.Model(&link).Update("updated_at", time.Now()).Error
	})
	return translate(err)
}

type DefaultMerchantMethodRepository struct {
	DB *gorm.DB
}

var _ domain.MerchantMethodRepository = (*DefaultMerchantMethodRepository)(nil)

func NewDefaultMerchantMethodRepository(db *gorm.DB) *DefaultMerchantMethodRepository {
	return &DefaultMerchantMethodRepository{DB: db}
}

func (r *DefaultMerchantMethodRepository) SaveMerchantMethod(ctx context.Context, method *domain.MerchantMethod) error {
	model := mappers.ToGORMMerchantMethod(method)
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "merchant_id"}, {Name: "method_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payment_method_type", "fee_in_percent", "fee_out_percent", "updated_at"}),
	}).Create(model).Error
}

func (r *DefaultMerchantMethodRepository) GetMerchantMethod(ctx context.Context, merchantID, methodID string) (*domain.MerchantMethod, error) {
	var model models.MerchantMethodModel
	if err := r.DB.WithContext(ctx).
		Where("merchant_id = ? AND method_id = ?", merchantID, methodID).
		First(&model).Error; err != nil {
		return nil, translate(err)
	}
	return mappers.ToDomainMerchantMethod(&model), nil
}
