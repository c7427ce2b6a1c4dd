// Package risk implements RiskEngine: supply-cap enforcement and debt-cap
// derivation, spec §4.3.
package risk

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"

	"membranecore/native/basket"
	"membranecore/native/rates"
)

// ErrSupplyCapExceeded is returned by CheckSupplyCap when a deposit would
// push a collateral's share of basket TVL past its configured cap (spec
// §4.3 "deposits only — withdrawals never fail the cap").
var ErrSupplyCapExceeded = errors.New("risk: collateral supply cap exceeded")

// BasketTotals bundles the cross-basket figures DebtCap needs from outside
// this engine (spec §4.3 "Debt cap derivation"): these are aggregated across
// every basket sharing the same credit asset, which is out of this package's
// scope to compute; the caller of DebtCap supplies them.
type BasketTotals struct {
	BasketTVL        *big.Int
	AllBasketsTVL    *big.Int
	TotalMultiplier  decimal.Decimal
	LiquidityMultiplier decimal.Decimal
	CreditLiquidity  *big.Int
	SPLiquidity      *big.Int
	BaseDebtCapMultiplier decimal.Decimal
	DebtMinimum      *big.Int
}

// Engine implements supply-cap enforcement and debt-cap derivation. Like
// rates.Engine it is stateless — operations read/mutate the Basket passed in.
type Engine struct {
	desiredDebtCapUtil decimal.Decimal
}

// NewEngine constructs a RiskEngine configured with the desired-utilization
// auto-turnoff threshold (spec §4.3 "Desired-util auto-turnoff").
func NewEngine(desiredDebtCapUtil decimal.Decimal) *Engine {
	return &Engine{desiredDebtCapUtil: desiredDebtCapUtil}
}

// basketTVL sums CurrentSupply across every configured collateral, used as
// the denominator for each collateral's share of basket TVL.
func basketTVL(b *basket.Basket) *big.Int {
	total := big.NewInt(0)
	for _, cap := range b.CollateralSupplyCaps {
		if cap.CurrentSupply != nil {
			total.Add(total, cap.CurrentSupply)
		}
	}
	return total
}

// CheckSupplyCap rejects a deposit that would push id's share of basket TVL
// past its configured supply_cap_ratio (spec §4.3 "Supply-cap enforcement").
// Withdrawals never call this: shrinking a denom's share can never violate a
// cap.
func (e *Engine) CheckSupplyCap(b *basket.Basket, id basket.DenomID, depositAmount *big.Int) error {
	return e.checkSupplyCap(b, id, depositAmount, nil)
}

// CheckSupplyCapWithVolatility is CheckSupplyCap but additionally narrows
// supply_cap_ratio by history's volatility multiplier before enforcing it
// (spec §4.2 "Volatility adjustment": "adjusts supply_cap_ratio by a
// multiplier derived from the asset's recent price volatility history when
// the list is full; otherwise cap unchanged"). A nil or not-yet-full history
// leaves the cap untouched, same as CheckSupplyCap.
func (e *Engine) CheckSupplyCapWithVolatility(b *basket.Basket, id basket.DenomID, depositAmount *big.Int, history *rates.VolatilityHistory) error {
	return e.checkSupplyCap(b, id, depositAmount, history)
}

func (e *Engine) checkSupplyCap(b *basket.Basket, id basket.DenomID, depositAmount *big.Int, history *rates.VolatilityHistory) error {
	cap := b.CapForDenom(id)
	if cap == nil {
		return nil
	}
	ratio := cap.SupplyCapRatio
	if history != nil {
		ratio = ratio.Mul(rates.VolatilityMultiplier(history))
	}
	if ratio.Sign() <= 0 {
		return ErrSupplyCapExceeded
	}
	tvl := basketTVL(b)
	projectedSupply := new(big.Int).Add(cap.CurrentSupply, depositAmount)
	projectedTVL := new(big.Int).Add(tvl, depositAmount)
	if projectedTVL.Sign() <= 0 {
		return nil
	}
	projectedRatio := decimal.NewFromBigInt(projectedSupply, 0).Div(decimal.NewFromBigInt(projectedTVL, 0))
	if projectedRatio.GreaterThan(ratio) {
		return ErrSupplyCapExceeded
	}
	return nil
}

// multiplier computes credit_asset_multiplier(basket) per spec §4.3: "the
// multiplier is the min of (basket_TVL/Σ_baskets_TVL)*total_multiplier and
// the basket's own liquidity_multiplier."
func multiplier(totals BasketTotals) decimal.Decimal {
	if totals.AllBasketsTVL == nil || totals.AllBasketsTVL.Sign() <= 0 {
		return totals.LiquidityMultiplier
	}
	share := decimal.NewFromBigInt(totals.BasketTVL, 0).Div(decimal.NewFromBigInt(totals.AllBasketsTVL, 0))
	tvlShare := share.Mul(totals.TotalMultiplier)
	if tvlShare.LessThan(totals.LiquidityMultiplier) {
		return tvlShare
	}
	return totals.LiquidityMultiplier
}

// DebtCap derives the basket-wide debt cap per spec §4.3 "Debt cap
// derivation".
func DebtCap(totals BasketTotals) *big.Int {
	m := multiplier(totals)
	base := decimal.Zero
	if totals.CreditLiquidity != nil {
		base = decimal.NewFromBigInt(totals.CreditLiquidity, 0).Mul(m)
	}
	spContribution := decimal.Zero
	if totals.SPLiquidity != nil && totals.TotalMultiplier.Sign() > 0 {
		spContribution = decimal.NewFromBigInt(totals.SPLiquidity, 0).Mul(m.Div(totals.TotalMultiplier))
	}
	cap := base.Add(spContribution)

	floor := decimal.Zero
	if totals.DebtMinimum != nil {
		floor = decimal.NewFromBigInt(totals.DebtMinimum, 0).Mul(totals.BaseDebtCapMultiplier)
	}
	if cap.LessThan(floor) {
		cap = floor
	}
	return cap.BigInt()
}

// AssetDebtCap derives the per-asset debt cap for id, using a
// stability-pool-backed cap override when configured (spec §4.3 "Per-asset
// cap").
func AssetDebtCap(b *basket.Basket, id basket.DenomID, basketDebtCap *big.Int, spLiquidity *big.Int) *big.Int {
	cap := b.CapForDenom(id)
	if cap == nil {
		return big.NewInt(0)
	}
	if cap.StabilityPoolRatio != nil {
		if spLiquidity == nil {
			return big.NewInt(0)
		}
		return decimal.NewFromBigInt(spLiquidity, 0).Mul(*cap.StabilityPoolRatio).BigInt()
	}
	if cap.SupplyCapRatio.Sign() <= 0 {
		return big.NewInt(0)
	}
	tvl := basketTVL(b)
	if tvl.Sign() <= 0 {
		return big.NewInt(0)
	}
	ratio := decimal.NewFromBigInt(cap.CurrentSupply, 0).Div(decimal.NewFromBigInt(tvl, 0))
	return ratio.Mul(decimal.NewFromBigInt(basketDebtCap, 0)).BigInt()
}

// DesiredUtilExceeded reports whether total_debt/debt_cap has reached
// desired_debt_cap_util, in which case the caller must disable negative
// redemption rates for this block (spec §4.3 "Desired-util auto-turnoff").
func (e *Engine) DesiredUtilExceeded(totalDebt, debtCap *big.Int) bool {
	if debtCap == nil || debtCap.Sign() <= 0 {
		return false
	}
	util := decimal.NewFromBigInt(totalDebt, 0).Div(decimal.NewFromBigInt(debtCap, 0))
	return util.GreaterThanOrEqual(e.desiredDebtCapUtil)
}
