package domain

import (
	"context"
	"time"
)

// PartnerDealRequest - тело POST {apiBaseUrl}/deals
type PartnerDealRequest struct {
	OurDealID        string            `json:"ourDealId"`
	PaymentMethod    PaymentMethodType `json:"paymentMethod"`
	Amount           float64           `json:"amount"`
	Rate             float64           `json:"rate"`
	Status           DealStatus        `json:"status"`
	ExpiryDate       time.Time         `json:"expiryDate"`
	CallbackURL      string            `json:"callbackUrl"`
	ClientIdentifier string            `json:"clientIdentifier,omitempty"`
	Metadata         map[string]any    `json:"metadata,omitempty"`
}

type PartnerDeal struct {
	PartnerDealID string            `json:"partnerDealId"`
	OurDealID     string            `json:"ourDealId"`
	Status        DealStatus        `json:"status"`
	Amount        float64           `json:"amount"`
	PaymentMethod PaymentMethodType `json:"paymentMethod"`
	Requisites    Requisites        `json:"requisites"`
	ExpiryDate    time.Time         `json:"expiryDate"`
	CreatedAt     time.Time         `json:"createdAt"`
}

type PartnerDealResponse struct {
	Accepted   bool         `json:"accepted"`
	Deal       *PartnerDeal `json:"deal"`
	StatusCode int          `json:"-"`
}

// AggregatorClient calls the partner's deal-creation endpoint.
// A non-2xx answer comes back as an error wrapping ErrUpstream together with the response.
type AggregatorClient interface {
	CreateDeal(ctx context.Context, aggregator *Aggregator, req *PartnerDealRequest) (*PartnerDealResponse, error)
}

// JobLocker guards periodic jobs so that one replica runs them at a time
type JobLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), ok bool, err error)
}
