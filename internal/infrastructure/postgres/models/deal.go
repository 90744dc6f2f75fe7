package models

import (
	"time"

	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
)

type DealModel struct {
	ID                string `gorm:"primaryKey;type:uuid"`
	OurDealID         string `gorm:"not null;uniqueIndex"`
	MerchantID        string `gorm:"not null;index"`
	MethodID          string `gorm:"not null"`
	AggregatorID      string `gorm:"type:text;not null;index"`
	PartnerDealID     string
	PaymentMethodType string
	Amount            float64           `gorm:"type:numeric(20,8);not null"`
	Rate              float64           `gorm:"type:numeric(20,8);not null"`
	Status            domain.DealStatus `gorm:"not null;index:idx_deals_status_expires"`
	ClientIdentifier  string
	Metadata          map[string]any    `gorm:"type:jsonb;serializer:json"`
	Requisites        domain.Requisites `gorm:"type:jsonb;serializer:json"`
	Reason            string

	MerchantFeeInPercent   float64 `gorm:"type:numeric(10,4)"`
	AggregatorFeeInPercent float64 `gorm:"type:numeric(10,4)"`
	MerchantProfit         float64 `gorm:"type:numeric(20,8)"`
	AggregatorProfit       float64 `gorm:"type:numeric(20,8)"`
	PlatformProfit         float64 `gorm:"type:numeric(20,8)"`
	SettledAt              *time.Time

	ExpiresAt time.Time `gorm:"index:idx_deals_status_expires"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (DealModel) TableName() string {
	return "deals"
}
