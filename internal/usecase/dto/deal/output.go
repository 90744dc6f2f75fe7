package dealdto

import (
	"time"

	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
)

type RoutedDeal struct {
	Deal     *domain.Deal
	Attempts int
}

// DealOutput - представление сделки для HTTP ответов
type DealOutput struct {
	ID                     string                   `json:"id"`
	OurDealID              string                   `json:"ourDealId"`
	PartnerDealID          string                   `json:"partnerDealId,omitempty"`
	AggregatorID           string                   `json:"aggregatorId,omitempty"`
	MerchantID             string                   `json:"merchantId"`
	MethodID               string                   `json:"methodId"`
	PaymentMethod          domain.PaymentMethodType `json:"paymentMethod"`
	Status                 domain.DealStatus        `json:"status"`
	Amount                 float64                  `json:"amount"`
	Rate                   float64                  `json:"rate"`
	Requisites             domain.Requisites        `json:"requisites"`
	MerchantFeeInPercent   float64                  `json:"merchantFeeInPercent"`
	AggregatorFeeInPercent float64                  `json:"aggregatorFeeInPercent"`
	MerchantProfit         float64                  `json:"merchantProfit"`
	AggregatorProfit       float64                  `json:"aggregatorProfit"`
	PlatformProfit         float64                  `json:"platformProfit"`
	Reason                 string                   `json:"reason,omitempty"`
	SettledAt              *time.Time               `json:"settledAt,omitempty"`
	CreatedAt              time.Time                `json:"createdAt"`
	UpdatedAt              time.Time                `json:"updatedAt"`
	ExpiresAt              time.Time                `json:"expiryDate"`
}

func ToDealOutput(d *domain.Deal) DealOutput {
	return DealOutput{
		ID:                     d.ID,
		OurDealID:              d.OurDealID,
		PartnerDealID:          d.PartnerDealID,
		AggregatorID:           d.AggregatorID,
		MerchantID:             d.MerchantID,
		MethodID:               d.MethodID,
		PaymentMethod:          d.PaymentMethodType,
		Status:                 d.Status,
		Amount:                 d.Amount,
		Rate:                   d.Rate,
		Requisites:             d.Requisites,
		MerchantFeeInPercent:   d.MerchantFeeInPercent,
		AggregatorFeeInPercent: d.AggregatorFeeInPercent,
		MerchantProfit:         d.MerchantProfit,
		AggregatorProfit:       d.AggregatorProfit,
		PlatformProfit:         d.PlatformProfit,
		Reason:                 d.Reason,
		SettledAt:              d.SettledAt,
		CreatedAt:              d.CreatedAt,
		UpdatedAt:              d.UpdatedAt,
		ExpiresAt:              d.ExpiresAt,
	}
}
