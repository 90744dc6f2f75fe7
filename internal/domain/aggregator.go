package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

type Aggregator struct {
	ID          string
	DisplayName string
	// Чем меньше значение, тем раньше агрегатор получает сделку
	Priority           int
	IsActive           bool
	BalanceUsdt        float64
	MinBalance         float64
	MaxSlaMs           int
	MaxDailyVolume     *float64
	CurrentDailyVolume float64
	VolumeResetAt      time.Time

	APIBaseURL        string
	APIToken          string
	CallbackTokenHash string

	PriorityChangedBy string
	PriorityChangedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (a *Aggregator) MaxSla() time.Duration {
	return time.Duration(a.MaxSlaMs) * time.Millisecond
}

// CanAccept reports whether a deal of the given amount passes the balance and volume gates
func (a *Aggregator) CanAccept(amount float64) bool {
	if !a.IsActive || a.BalanceUsdt < a.MinBalance {
		return false
	}
	if a.MaxDailyVolume != nil && a.CurrentDailyVolume+amount > *a.MaxDailyVolume {
		return false
	}
	return true
}

type PriorityUpdate struct {
	AggregatorID string `json:"aggregatorId"`
	Priority     int    `json:"priority"`
}

type AggregatorRepository interface {
	CreateAggregator(ctx context.Context, aggregator *Aggregator) error
	GetAggregatorByID(ctx context.Context, aggregatorID string) (*Aggregator, error)
	GetAggregatorByCallbackTokenHash(ctx context.Context, tokenHash string) (*Aggregator, error)
	// ListActiveAggregators returns active aggregators ordered by priority
	ListActiveAggregators(ctx context.Context) ([]*Aggregator, error)
	// FindRoutingCandidates returns aggregators passing the balance and daily volume gates for amount, ordered by priority
	FindRoutingCandidates(ctx context.Context, amount float64) ([]*Aggregator, error)
	// UpdatePriorities writes the whole batch in one transaction or nothing
	UpdatePriorities(ctx context.Context, updates []PriorityUpdate, actor string, at time.Time) error
	// AddDailyVolume shifts currentDailyVolume by delta, never below zero
	AddDailyVolume(ctx context.Context, aggregatorID string, delta float64) error
	ResetDailyVolumes(ctx context.Context, resetBefore, now time.Time) (int64, error)
}

func HashCallbackToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
