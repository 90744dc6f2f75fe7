package dealdto

import (
	"fmt"
	"time"

	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
)

type RouteInput struct {
	MerchantID        string                   `json:"merchantId"`
	MethodID          string                   `json:"methodId"`
	Amount            float64                  `json:"amount"`
	Rate              float64                  `json:"rate"`
	PaymentMethodType domain.PaymentMethodType `json:"paymentMethod,omitempty"`
	ClientIdentifier  string                   `json:"clientIdentifier,omitempty"`
	Metadata          map[string]any           `json:"metadata,omitempty"`
	// Если не задано, берётся routing.deal_ttl
	ExpiresAt *time.Time `json:"expiryDate,omitempty"`
}

func (in *RouteInput) Validate() error {
	switch {
	case in.MerchantID == "":
		return fmt.Errorf("%w: merchantId is required", domain.ErrValidation)
	case in.MethodID == "":
		return fmt.Errorf("%w: methodId is required", domain.ErrValidation)
	case in.Amount <= 0:
		return fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	case in.Rate <= 0:
		return fmt.Errorf("%w: rate must be positive", domain.ErrValidation)
	case in.PaymentMethodType != "" && !in.PaymentMethodType.Valid():
		return fmt.Errorf("%w: unknown payment method %q", domain.ErrValidation, in.PaymentMethodType)
	}
	return nil
}
