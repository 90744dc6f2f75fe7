package domain

import (
	"context"
	"time"
)

type LogDirection string

const (
	LogDirectionIn  LogDirection = "IN"
	LogDirectionOut LogDirection = "OUT"
)

const (
	EventTypeDealCreate = "deal_create"
	EventTypeCallback   = "callback"
)

// IntegrationLogEntry - неизменяемая запись аудита обмена с агрегатором
type IntegrationLogEntry struct {
	ID             string
	AggregatorID   string
	Direction      LogDirection
	EventType      string
	StatusCode     int
	ResponseTimeMs int64
	SlaViolation   bool
	Error          string
	OurDealID      string
	PartnerDealID  string
	RequestedAt    time.Time
	RespondedAt    time.Time
	CreatedAt      time.Time
}

// SLAStats aggregates log entries of one aggregator over a window.
// A call is successful when the partner answered 2xx and the entry is not flagged slaViolation:
// declines and late accepts count as violations, not successes.
type SLAStats struct {
	AggregatorID      string
	TotalCalls        int64
	SuccessfulCalls   int64
	Violations        int64
	AvgResponseTimeMs float64
}

func (s SLAStats) SuccessRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.SuccessfulCalls) / float64(s.TotalCalls)
}

func (s SLAStats) SLAViolationRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.Violations) / float64(s.TotalCalls)
}

type IntegrationLogRepository interface {
	AppendLog(ctx context.Context, entry *IntegrationLogEntry) error
	AggregateSLA(ctx context.Context, direction LogDirection, eventType string, since time.Time) ([]SLAStats, error)
	ListLogsByOurDealID(ctx context.Context, ourDealID string) ([]*IntegrationLogEntry, error)
}
