package basket

import "github.com/shopspring/decimal"

var (
	zero = decimal.Zero
	one  = decimal.NewFromInt(1)
)

// Validate checks the Basket-level invariants spec §3 lists outright (as
// opposed to the ones enforced transactionally by native/positions and
// native/risk): revenue_destinations ratios sum to at most 1, and every
// supply_cap_ratio / multi_asset cap_ratio falls within [0, 1].
func Validate(b *Basket) error {
	sum := decimal.Zero
	for _, d := range b.RevenueDestinations {
		sum = sum.Add(d.Ratio)
	}
	if sum.GreaterThan(one) {
		return ErrRevenueRatioOverflow
	}
	for _, cap := range b.CollateralSupplyCaps {
		if cap.SupplyCapRatio.LessThan(zero) || cap.SupplyCapRatio.GreaterThan(one) {
			return ErrSupplyCapRatioRange
		}
	}
	for _, mac := range b.MultiAssetCaps {
		if mac.CapRatio.LessThan(zero) || mac.CapRatio.GreaterThan(one) {
			return ErrMultiAssetCapRatioRange
		}
	}
	return nil
}
