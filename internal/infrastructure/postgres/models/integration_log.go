package models

import "time"

// IntegrationLogModel - только вставка, обновлений нет
type IntegrationLogModel struct {
	ID             string `gorm:"primaryKey;type:uuid"`
	AggregatorID   string `gorm:"type:text;index:idx_logs_sla"`
	Direction      string `gorm:"not null;index:idx_logs_sla"`
	EventType      string `gorm:"not null;index:idx_logs_sla"`
	StatusCode     int
	ResponseTimeMs int64
	SlaViolation   bool
	Error          string
	OurDealID      string `gorm:"index"`
	PartnerDealID  string
	RequestedAt    time.Time `gorm:"index:idx_logs_sla"`
	RespondedAt    time.Time
	CreatedAt      time.Time
}

func (IntegrationLogModel) TableName() string {
	return "integration_logs"
}
