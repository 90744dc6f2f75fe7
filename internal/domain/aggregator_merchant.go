package domain

import (
	"context"
	"time"
)

type FeeDirection string

const (
	FeeDirectionIn  FeeDirection = "IN"
	FeeDirectionOut FeeDirection = "OUT"
)

type FeeRange struct {
	ID                   string  `json:"id,omitempty"`
	AggregatorMerchantID string  `json:"-"`
	MinAmount            float64 `json:"minAmount"`
	MaxAmount            float64 `json:"maxAmount"`
	FeeInPercent         float64 `json:"feeInPercent"`
	FeeOutPercent        float64 `json:"feeOutPercent"`
	IsActive             bool    `json:"isActive"`
}

func (r FeeRange) Contains(amount float64) bool {
	return r.MinAmount <= amount && amount <= r.MaxAmount
}

// AggregatorMerchant - настройки связки агрегатор/мерчант/метод
type AggregatorMerchant struct {
	ID               string
	AggregatorID     string
	MerchantID       string
	MethodID         string
	FeeIn            float64
	FeeOut           float64
	IsFeeInEnabled   bool
	IsFeeOutEnabled  bool
	IsTrafficEnabled bool
	UseFlexibleRates bool
	// Отсортированы по MinAmount
	FeeRanges []FeeRange
	CreatedAt time.Time
	UpdatedAt time.Time
}

type AggregatorMerchantRepository interface {
	CreateAggregatorMerchant(ctx context.Context, link *AggregatorMerchant) error
	GetAggregatorMerchant(ctx context.Context, aggregatorID, merchantID, methodID string) (*AggregatorMerchant, error)
	GetAggregatorMerchantByID(ctx context.Context, id string) (*AggregatorMerchant, error)
	// ReplaceFeeRanges swaps the whole range set atomically
	ReplaceFeeRanges(ctx context.Context, aggregatorMerchantID string, ranges []FeeRange) error
}

// MerchantMethod - комиссия мерчанта по методу оплаты
type MerchantMethod struct {
	MerchantID        string
	MethodID          string
	PaymentMethodType PaymentMethodType
	FeeInPercent      float64
	FeeOutPercent     float64
}

func (m *MerchantMethod) Commission(direction FeeDirection) float64 {
	if direction == FeeDirectionOut {
		return m.FeeOutPercent
	}
	return m.FeeInPercent
}

type MerchantMethodRepository interface {
	SaveMerchantMethod(ctx context.Context, method *MerchantMethod) error
	GetMerchantMethod(ctx context.Context, merchantID, methodID string) (*MerchantMethod, error)
}
