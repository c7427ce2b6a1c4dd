package basket

import "errors"

var (
	// ErrRevenueRatioOverflow is returned when a Basket's RevenueDestinations
	// sum to more than 1 (spec §3 "Invariants": "sum(ratio) across
	// revenue_destinations must be <= 1").
	ErrRevenueRatioOverflow = errors.New("basket: revenue destination ratios sum to more than 1")
	// ErrSupplyCapRatioRange is returned when a SupplyCap's ratio falls
	// outside [0, 1].
	ErrSupplyCapRatioRange = errors.New("basket: supply_cap_ratio must be within [0, 1]")
	// ErrMultiAssetCapRatioRange mirrors ErrSupplyCapRatioRange for
	// MultiAssetCap.CapRatio.
	ErrMultiAssetCapRatioRange = errors.New("basket: multi_asset cap_ratio must be within [0, 1]")
)
