package models

import (
	"time"
)

type AggregatorModel struct {
	ID          string `gorm:"primaryKey;type:text"`
	DisplayName string
	// уникален среди активных, см. idx_aggregators_active_priority
	Priority           int      `gorm:"not null"`
	IsActive           bool     `gorm:"not null;index"`
	BalanceUsdt        float64  `gorm:"type:numeric(20,8);not null"`
	MinBalance         float64  `gorm:"type:numeric(20,8);not null"`
	MaxSlaMs           int      `gorm:"not null"`
	MaxDailyVolume     *float64 `gorm:"type:numeric(20,8)"`
	CurrentDailyVolume float64  `gorm:"type:numeric(20,8);not null"`
	VolumeResetAt      time.Time
	APIBaseURL         string `gorm:"column:api_base_url"`
	APIToken           string `gorm:"column:api_token"`
	CallbackTokenHash  string `gorm:"index"`
	PriorityChangedBy  string
	PriorityChangedAt  *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (AggregatorModel) TableName() string {
	return "aggregators"
}
