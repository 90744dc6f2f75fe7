package models

import "time"

type AggregatorMerchantModel struct {
	ID               string  `gorm:"primaryKey;type:uuid"`
	AggregatorID     string  `gorm:"type:text;not null;uniqueIndex:idx_aggregator_merchant_method"`
	MerchantID       string  `gorm:"not null;uniqueIndex:idx_aggregator_merchant_method"`
	MethodID         string  `gorm:"not null;uniqueIndex:idx_aggregator_merchant_method"`
	FeeIn            float64 `gorm:"type:numeric(10,4);not null"`
	FeeOut           float64 `gorm:"type:numeric(10,4);not null"`
	IsFeeInEnabled   bool
	IsFeeOutEnabled  bool
	IsTrafficEnabled bool
	UseFlexibleRates bool
	FeeRanges        []FeeRangeModel `gorm:"foreignKey:AggregatorMerchantID;references:ID;constraint:OnDelete:CASCADE;"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (AggregatorMerchantModel) TableName() string {
	return "aggregator_merchants"
}

type FeeRangeModel struct {
	ID                   string  `gorm:"primaryKey;type:uuid"`
	AggregatorMerchantID string  `gorm:"type:uuid;not null;index"`
	MinAmount            float64 `gorm:"type:numeric(20,8);not null"`
	MaxAmount            float64 `gorm:"type:numeric(20,8);not null"`
	FeeInPercent         float64 `gorm:"type:numeric(10,4);not null"`
	FeeOutPercent        float64 `gorm:"type:numeric(10,4);not null"`
	IsActive             bool    `gorm:"not null"`
}

func (FeeRangeModel) TableName() string {
	return "fee_ranges"
}

type MerchantMethodModel struct {
	MerchantID        string  `gorm:"primaryKey"`
	MethodID          string  `gorm:"primaryKey"`
	PaymentMethodType string  `gorm:"not null"`
	FeeInPercent      float64 `gorm:"type:numeric(10,4);not null"`
	FeeOutPercent     float64 `gorm:"type:numeric(10,4);not null"`
	UpdatedAt         time.Time
}

func (MerchantMethodModel) TableName() string {
	return "merchant_methods"
}
