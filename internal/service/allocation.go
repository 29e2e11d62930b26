package service

import (
	"sort"

	"github.com/shopspring/decimal"
)

// AllocationPolicy holds the named ratios used when compiling profit
// and loss lines. Ratios live in configuration so finance can tune
// revenue splits without a deploy.
type AllocationPolicy struct {
	ratios map[string]decimal.Decimal
}

// Default ratio names understood by the report compiler. Any ratio can
// be overridden or extended via ALLOCATION_RATIOS.
const (
	RatioClassRevenueShare  = "class_revenue_share"
	RatioRetailRevenueShare = "retail_revenue_share"
	RatioInstructorFee      = "instructor_fee_ratio"
	RatioTaxRate            = "tax_rate"
)

func defaultRatios() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		RatioClassRevenueShare:  decimal.NewFromFloat(0.45),
		RatioRetailRevenueShare: decimal.NewFromFloat(0.55),
		RatioInstructorFee:      decimal.NewFromFloat(0.35),
		RatioTaxRate:            decimal.NewFromFloat(0.19),
	}
}

// NewAllocationPolicy builds a policy from configured overrides layered
// over the defaults.
func NewAllocationPolicy(overrides map[string]float64) *AllocationPolicy {
	ratios := defaultRatios()
	for name, value := range overrides {
		ratios[name] = decimal.NewFromFloat(value)
	}
	return &AllocationPolicy{ratios: ratios}
}

// Ratio returns the named ratio, or zero when the name is unknown.
func (p *AllocationPolicy) Ratio(name string) decimal.Decimal {
	if r, ok := p.ratios[name]; ok {
		return r
	}
	return decimal.Zero
}

// RevenueShares returns the ratio names that split revenue, in stable
// order. Fee and tax ratios are excluded.
func (p *AllocationPolicy) RevenueShares() []string {
	names := make([]string, 0, len(p.ratios))
	for name := range p.ratios {
		switch name {
		case RatioInstructorFee, RatioTaxRate:
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
