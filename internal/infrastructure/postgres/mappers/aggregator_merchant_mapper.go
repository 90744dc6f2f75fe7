package mappers

import (
	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
	"github.com/LavaJover/shvark-aggregator-service/internal/infrastructure/postgres/models"
)

func ToDomainAggregatorMerchant(model *models.AggregatorMerchantModel) *domain.AggregatorMerchant {
	ranges := make([]domain.FeeRange, len(model.FeeRanges))
	for i := range model.FeeRanges {
		ranges[i] = ToDomainFeeRange(&model.FeeRanges[i])
	}
	return &domain.AggregatorMerchant{
		ID:               model.ID,
		AggregatorID:     model.AggregatorID,
		MerchantID:       model.MerchantID,
		MethodID:         model.MethodID,
		FeeIn:            model.FeeIn,
		FeeOut:           model.FeeOut,
		IsFeeInEnabled:   model.IsFeeInEnabled,
		IsFeeOutEnabled:  model.IsFeeOutEnabled,
		IsTrafficEnabled: model.IsTrafficEnabled,
		UseFlexibleRates: model.UseFlexibleRates,
		FeeRanges:        ranges,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}

func ToGORMAggregatorMerchant(link *domain.AggregatorMerchant) *models.AggregatorMerchantModel {
	ranges := make([]models.FeeRangeModel, len(link.FeeRanges))
	for i := range link.FeeRanges {
		ranges[i] = ToGORMFeeRange(link.ID, &link.FeeRanges[i])
	}
	return &models.AggregatorMerchantModel{
		ID:               link.ID,
		AggregatorID:     link.AggregatorID,
		MerchantID:       link.MerchantID,
		MethodID:         link.MethodID,
		FeeIn:            link.FeeIn,
		FeeOut:           link.FeeOut,
		IsFeeInEnabled:   link.IsFeeInEnabled,
		IsFeeOutEnabled:  link.IsFeeOutEnabled,
		IsTrafficEnabled: link.IsTrafficEnabled,
		UseFlexibleRates: link.UseFlexibleRates,
		FeeRanges:        ranges,
		CreatedAt:        link.CreatedAt,
		UpdatedAt:        link.UpdatedAt,
	}
}

func ToDomainFeeRange(model *models.FeeRangeModel) domain.FeeRange {
	return domain.FeeRange{
		ID:                   model.ID,
		AggregatorMerchantID: model.AggregatorMerchantID,
		MinAmount:            model.MinAmount,
		MaxAmount:            model.MaxAmount,
		FeeInPercent:         model.FeeInPercent,
		FeeOutPercent:        model.FeeOutPercent,
		IsActive:             model.IsActive,
	}
}

func ToGORMFeeRange(aggregatorMerchantID string, feeRange *domain.FeeRange) models.FeeRangeModel {
	return models.FeeRangeModel{
		ID:                   feeRange.ID,
		AggregatorMerchantID: aggregatorMerchantID,
		MinAmount:            feeRange.MinAmount,
		MaxAmount:            feeRange.MaxAmount,
		FeeInPercent:         feeRange.FeeInPercent,
		FeeOutPercent:        feeRange.FeeOutPercent,
		IsActive:             feeRange.IsActive,
	}
}

func ToDomainMerchantMethod(model *models.MerchantMethodModel) *domain.MerchantMethod {
	return &domain.MerchantMethod{
		MerchantID:        model.MerchantID,
		MethodID:          model.MethodID,
		PaymentMethodType: domain.PaymentMethodType(model.PaymentMethodType),
		FeeInPercent:      model.FeeInPercent,
		FeeOutPercent:     model.FeeOutPercent,
	}
}

func ToGORMMerchantMethod(method *domain.MerchantMethod) *models.MerchantMethodModel {
	return &models.MerchantMethodModel{
		MerchantID:        method.MerchantID,
		MethodID:          method.MethodID,
		PaymentMethodType: string(method.PaymentMethodType),
		FeeInPercent:      method.FeeInPercent,
		FeeOutPercent:     method.FeeOutPercent,
	}
}
