package domain

import (
	"context"
	"time"
)

type DealStatus string

const (
	DealStatusCreated    DealStatus = "CREATED"
	DealStatusInProgress DealStatus = "IN_PROGRESS"
	DealStatusReady      DealStatus = "READY"
	DealStatusCanceled   DealStatus = "CANCELED"
	DealStatusExpired    DealStatus = "EXPIRED"
	DealStatusDispute    DealStatus = "DISPUTE"
	// Внутренний терминальный статус для сделок, помеченных как злоупотребление.
	// Для переходов эквивалентен CANCELED.
	DealStatusMilk DealStatus = "MILK"
)

func ParseDealStatus(s string) (DealStatus, bool) {
	switch status := DealStatus(s); status {
	case DealStatusCreated, DealStatusInProgress, DealStatusReady,
		DealStatusCanceled, DealStatusExpired, DealStatusDispute, DealStatusMilk:
		return status, true
	}
	return "", false
}

func (s DealStatus) IsTerminal() bool {
	return s == DealStatusCanceled || s == DealStatusExpired || s == DealStatusMilk
}

// ReleasesHold reports whether entering s must give back the reserved volume
func (s DealStatus) ReleasesHold() bool {
	return s.IsTerminal()
}

type PaymentMethodType string

const (
	PaymentMethodSBP PaymentMethodType = "SBP"
	PaymentMethodC2C PaymentMethodType = "C2C"
)

func (t PaymentMethodType) Valid() bool {
	return t == PaymentMethodSBP || t == PaymentMethodC2C
}

type TransitionSource string

const (
	SourceRouting  TransitionSource = "routing"
	SourceCallback TransitionSource = "callback"
	SourceAdmin    TransitionSource = "admin"
	SourceSystem   TransitionSource = "system"
)

type Requisites struct {
	BankType      string `json:"bankType,omitempty"`
	PhoneNumber   string `json:"phoneNumber,omitempty"`
	CardNumber    string `json:"cardNumber,omitempty"`
	RecipientName string `json:"recipientName,omitempty"`
}

type Deal struct {
	ID                string
	OurDealID         string
	MerchantID        string
	MethodID          string
	AggregatorID      string
	PartnerDealID     string
	PaymentMethodType PaymentMethodType
	Amount            float64
	Rate              float64
	Status            DealStatus
	ClientIdentifier  string
	Metadata          map[string]any
	Requisites        Requisites
	Reason            string

	MerchantFeeInPercent   float64
	AggregatorFeeInPercent float64
	MerchantProfit         float64
	AggregatorProfit       float64
	PlatformProfit         float64
	// SettledAt выставляется при первом переходе в READY, после этого прибыль не пересчитывается
	SettledAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
}

func (d *Deal) IsSettled() bool {
	return d.SettledAt != nil
}

// DealPatch - необязательные изменения полей, применяемые вместе со сменой статуса
type DealPatch struct {
	Amount        *float64
	PartnerDealID *string
	Reason        *string
	Metadata      map[string]any
}

func (p *DealPatch) IsEmpty() bool {
	return p == nil || (p.Amount == nil && p.PartnerDealID == nil && p.Reason == nil && len(p.Metadata) == 0)
}

type Settlement struct {
	MerchantFeeInPercent   float64
	AggregatorFeeInPercent float64
	MerchantProfit         float64
	AggregatorProfit       float64
	PlatformProfit         float64
	SettledAt              time.Time
}

// DealStatusChange is applied only while the persisted status still equals From.
// From == To is a field-only update guarded by the same check.
type DealStatusChange struct {
	DealID     string
	From       DealStatus
	To         DealStatus
	UpdatedAt  time.Time
	Patch      *DealPatch
	Settlement *Settlement
}

type DealRepository interface {
	CreateDeal(ctx context.Context, deal *Deal) error
	GetDealByID(ctx context.Context, dealID string) (*Deal, error)
	GetDealByOurDealID(ctx context.Context, ourDealID string) (*Deal, error)
	// CompareAndSetStatus returns ErrConflict when the status moved on, ErrNotFound when the deal is gone
	CompareAndSetStatus(ctx context.Context, change *DealStatusChange) (*Deal, error)
	FindExpiredDeals(ctx context.Context, now time.Time, limit int) ([]*Deal, error)
}
