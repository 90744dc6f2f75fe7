package fee

import (
	"fmt"
	"sort"
	"time"

	"github.com/LavaJover/shvark-aggregator-service/internal/domain"
	"github.com/shopspring/decimal"
)

// Точность USDT сумм при фиксации прибыли
const usdtPrecision = 8

var hundred = decimal.NewFromInt(100)

type Profit struct {
	MerchantFee    float64
	AggregatorFee  float64
	PlatformProfit float64
}

// ResolveFee picks the fee percentage the aggregator charges for amount.
// A disabled direction always resolves to 0.
func ResolveFee(link *domain.AggregatorMerchant, amount float64, direction domain.FeeDirection) float64 {
	if link == nil || !isEnabled(link, direction) {
		return 0
	}

	if link.UseFlexibleRates {
		for _, r := range link.FeeRanges {
			if !r.IsActive || !r.Contains(amount) {
				continue
			}
			if direction == domain.FeeDirectionOut {
				return r.FeeOutPercent
			}
			return r.FeeInPercent
		}
	}

	if direction == domain.FeeDirectionOut {
		return link.FeeOut
	}
	return link.FeeIn
}

func isEnabled(link *domain.AggregatorMerchant, direction domain.FeeDirection) bool {
	if direction == domain.FeeDirectionOut {
		return link.IsFeeOutEnabled
	}
	return link.IsFeeInEnabled
}

// ComputeProfit splits the deal amount converted to USDT into merchant and aggregator fees.
// A non-positive rate yields a zero profit.
func ComputeProfit(deal *domain.Deal, merchantCommissionPercent, aggregatorFeePercent float64) Profit {
	if deal == nil || deal.Rate <= 0 {
		return Profit{}
	}

	usdtAmount := decimal.NewFromFloat(deal.Amount).Div(decimal.NewFromFloat(deal.Rate))
	merchantFee := usdtAmount.Mul(decimal.NewFromFloat(merchantCommissionPercent)).Div(hundred).Round(usdtPrecision)
	aggregatorFee := usdtAmount.Mul(decimal.NewFromFloat(aggregatorFeePercent)).Div(hundred).Round(usdtPrecision)

	return Profit{
		MerchantFee:    merchantFee.InexactFloat64(),
		AggregatorFee:  aggregatorFee.InexactFloat64(),
		PlatformProfit: merchantFee.Sub(aggregatorFee).InexactFloat64(),
	}
}

// Settle freezes fees and profit of a deal entering READY for the first time
func Settle(deal *domain.Deal, link *domain.AggregatorMerchant, merchantCommissionPercent float64, at time.Time) *domain.Settlement {
	aggregatorFeePercent := deal.AggregatorFeeInPercent
	if link != nil {
		aggregatorFeePercent = ResolveFee(link, deal.Amount, domain.FeeDirectionIn)
	}

	profit := ComputeProfit(deal, merchantCommissionPercent, aggregatorFeePercent)
	return &domain.Settlement{
		MerchantFeeInPercent:   merchantCommissionPercent,
		AggregatorFeeInPercent: aggregatorFeePercent,
		MerchantProfit:         profit.MerchantFee,
		AggregatorProfit:       profit.AggregatorFee,
		PlatformProfit:         profit.PlatformProfit,
		SettledAt:              at,
	}
}

// ValidateRanges returns the ranges sorted by MinAmount or an ErrValidation describing the first defect
func ValidateRanges(ranges []domain.FeeRange) ([]domain.FeeRange, error) {
	sorted := make([]domain.FeeRange, len(ranges))
	copy(sorted, ranges)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinAmount < sorted[j].MinAmount
	})

	var prev *domain.FeeRange
	for i := range sorted {
		r := &sorted[i]
		if r.MinAmount < 0 || r.MinAmount > r.MaxAmount {
			return nil, fmt.Errorf("%w: fee range [%v, %v] is malformed", domain.ErrValidation, r.MinAmount, r.MaxAmount)
		}
		if !validPercent(r.FeeInPercent) || !validPercent(r.FeeOutPercent) {
			return nil, fmt.Errorf("%w: fee range [%v, %v] percent out of [0, 100]", domain.ErrValidation, r.MinAmount, r.MaxAmount)
		}
		if !r.IsActive {
			continue
		}
		if prev != nil && r.MinAmount <= prev.MaxAmount {
			return nil, fmt.Errorf("%w: fee range [%v, %v] overlaps [%v, %v]",
				domain.ErrValidation, r.MinAmount, r.MaxAmount, prev.MinAmount, prev.MaxAmount)
		}
		prev = r
	}

	return sorted, nil
}

func validPercent(p float64) bool {
	return p >= 0 && p <= 100
}
