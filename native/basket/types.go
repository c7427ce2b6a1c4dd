// Package basket holds the Basket + CollateralSpec data model: the singleton
// issuance unit shared by every Position in the protocol.
package basket

import (
	"math/big"

	"github.com/shopspring/decimal"

	"membranecore/crypto"
)

// CreditAsset tracks the fungible credit token minted against collateral.
type CreditAsset struct {
	Denom  string
	Amount *big.Int
}

// PoolInfo describes an LP-token collateral's underlying composition, used to
// derive its price by decomposing into priced underlying assets (spec §4.1
// "LP collateral pricing").
type PoolInfo struct {
	// UnderlyingDenoms lists the assets backing one LP share.
	UnderlyingDenoms []string
	// UnderlyingDecimals gives each underlying asset's base-unit decimals,
	// used to scale each underlying asset's price to six decimal places
	// before the prices are summed.
	UnderlyingDecimals []uint32
	// ShareAmount is the total LP share amount the pool info describes.
	ShareAmount *big.Int
}

// CollateralSpec describes one collateral type accepted by the Basket.
type CollateralSpec struct {
	Denom        string
	ID           DenomID
	MaxBorrowLTV decimal.Decimal
	MaxLTV       decimal.Decimal
	// RateIndex is the cumulative borrow-rate accumulator for this
	// collateral (spec §4.2 "Rate index").
	RateIndex decimal.Decimal
	// Pool is non-nil when this collateral is an LP token requiring
	// decomposed pricing.
	Pool *PoolInfo
	// RateHike marks an asset subject to a punitive surcharge
	// (config option rate_hike_rate, spec §6).
	RateHike bool
}

// IsLP reports whether this collateral is priced via LP decomposition.
func (c CollateralSpec) IsLP() bool {
	return c.Pool != nil
}

// SupplyCap tracks the current exposure and configured ceiling for one
// collateral denom (spec §3 "collateral_supply_caps").
type SupplyCap struct {
	DenomID             DenomID
	CurrentSupply       *big.Int
	DebtTotal           *big.Int
	SupplyCapRatio      decimal.Decimal
	IsLP                bool
	StabilityPoolRatio  *decimal.Decimal
}

// MultiAssetCap groups several collateral denoms under one combined exposure
// ceiling (spec §3 "multi_asset_supply_caps").
type MultiAssetCap struct {
	DenomIDs []DenomID
	CapRatio decimal.Decimal
}

// RevenueDestination is one (address, ratio) entry in the Basket's fee
// distribution table; ratios across all destinations must sum to <= 1.
type RevenueDestination struct {
	Address crypto.Address
	Ratio   decimal.Decimal
}

// CollateralRate captures the latest computed per-collateral borrow rate
// (spec §3 "latest_collateral_rates").
type CollateralRate struct {
	DenomID     DenomID
	Rate        decimal.Decimal
	ComputedAt  int64
}

// Basket is the singleton issuance unit: shared TVL, caps, and credit price
// state across every Position that deposits into it.
type Basket struct {
	CreditAsset CreditAsset
	// CreditPrice is the controller-maintained redemption price, distinct
	// from the market TWAP (spec §3).
	CreditPrice decimal.Decimal

	CollateralTypes      []CollateralSpec
	CollateralSupplyCaps []SupplyCap
	MultiAssetCaps       []MultiAssetCap
	LatestCollateralRates []CollateralRate

	PendingRevenue *big.Int

	CreditLastAccrued int64
	RatesLastAccrued  int64

	OracleSet             bool
	NegativeRatesAllowed  bool
	Frozen                bool
	RevToStakers          bool

	// CPCMarginOfError is the deadband around peg within which the
	// redemption-rate controller produces a zero rate (spec §4.2).
	CPCMarginOfError decimal.Decimal

	RevenueDestinations []RevenueDestination

	Denoms *Interner
}

// CapForDenom returns the SupplyCap entry for id, or nil if not configured.
func (b *Basket) CapForDenom(id DenomID) *SupplyCap {
	for i := range b.CollateralSupplyCaps {
		if b.CollateralSupplyCaps[i].DenomID == id {
			return &b.CollateralSupplyCaps[i]
		}
	}
	return nil
}

// SpecForDenom returns the CollateralSpec entry for id, or nil if not
// configured for this basket.
func (b *Basket) SpecForDenom(id DenomID) *CollateralSpec {
	for i := range b.CollateralTypes {
		if b.CollateralTypes[i].ID == id {
			return &b.CollateralTypes[i]
		}
	}
	return nil
}

// RateForDenom returns id's latest computed borrow rate (spec §3
// "latest_collateral_rates"), or zero if none has been recorded yet. This is
// a borrow rate, not a price — callers needing a spot price must consult a
// PriceOracle collaborator instead.
func (b *Basket) RateForDenom(id DenomID) decimal.Decimal {
	for _, r := range b.LatestCollateralRates {
		if r.DenomID == id {
			return r.Rate
		}
	}
	return decimal.Zero
}

// TotalDebt sums SupplyCap.DebtTotal across every configured collateral,
// which spec §3's invariant requires to equal CreditAsset.Amount.
func (b *Basket) TotalDebt() *big.Int {
	total := big.NewInt(0)
	for _, cap := range b.CollateralSupplyCaps {
		if cap.DebtTotal != nil {
			total.Add(total, cap.DebtTotal)
		}
	}
	return total
}
