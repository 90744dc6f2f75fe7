package mappers

import (
	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
	"github.com/LavaJover/shvark-aggregator-service/internal/infrastructure/postgres/models"
)

func ToDomainDeal(model *models.DealModel) *domain.Deal {
	return &domain.Deal{
		ID:                     model.ID,
		OurDealID:              model.OurDealID,
		MerchantID:             model.MerchantID,
		MethodID:               model.MethodID,
		AggregatorID:           model.AggregatorID,
		PartnerDealID:          model.PartnerDealID,
		PaymentMethodType:      domain.PaymentMethodType(model.PaymentMethodType),
		Amount:                 model.Amount,
		Rate:                   model.Rate,
		Status:                 model.Status,
		ClientIdentifier:       model.ClientIdentifier,
		Metadata:               model.Metadata,
		Requisites:             model.Requisites,
		Reason:                 model.Reason,
		MerchantFeeInPercent:   model.MerchantFeeInPercent,
		AggregatorFeeInPercent: model.AggregatorFeeInPercent,
		MerchantProfit:         model.MerchantProfit,
		AggregatorProfit:       model.AggregatorProfit,
		PlatformProfit:         model.PlatformProfit,
		SettledAt:              model.SettledAt,
		CreatedAt:              model.CreatedAt,
		UpdatedAt:              model.UpdatedAt,
		ExpiresAt:              model.ExpiresAt,
	}
}

func ToGORMDeal(deal *domain.Deal) *models.DealModel {
	return &models.DealModel{
		ID:                     deal.ID,
		OurDealID:              deal.OurDealID,
		MerchantID:             deal.MerchantID,
		MethodID:               deal.MethodID,
		AggregatorID:           deal.AggregatorID,
		PartnerDealID:          deal.PartnerDealID,
		PaymentMethodType:      string(deal.PaymentMethodType),
		Amount:                 deal.Amount,
		Rate:                   deal.Rate,
		Status:                 deal.Status,
		ClientIdentifier:       deal.ClientIdentifier,
		Metadata:               deal.Metadata,
		Requisites:             deal.Requisites,
		Reason:                 deal.Reason,
		MerchantFeeInPercent:   deal.MerchantFeeInPercent,
		AggregatorFeeInPercent: deal.AggregatorFeeInPercent,
		MerchantProfit:         deal.MerchantProfit,
		AggregatorProfit:       deal.AggregatorProfit,
		PlatformProfit:         deal.PlatformProfit,
		SettledAt:              deal.SettledAt,
		CreatedAt:              deal.CreatedAt,
		UpdatedAt:              deal.UpdatedAt,
		ExpiresAt:              deal.ExpiresAt,
	}
}
