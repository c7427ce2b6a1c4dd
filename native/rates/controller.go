package rates

import (
	"math/big"

	"github.com/shopspring/decimal"

	"membranecore/native/basket"
)

// Engine implements the redemption-rate controller and per-collateral
// borrow-rate curves of spec §4.2. It holds no persistent state of its own —
// every method takes and mutates the Basket/CollateralSpec passed to it.
type Engine struct {
	cfg      Config
	oracle   Oracle
	liq      LiquidityProbe
}

// NewEngine constructs an unwired RateEngine; call SetCollaborators before
// accruing redemption rates (borrow-rate accrual needs no collaborators).
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// SetCollaborators wires the Oracle and LiquidityProbe collaborators.
func (e *Engine) SetCollaborators(oracle Oracle, liq LiquidityProbe) {
	e.oracle = oracle
	e.liq = liq
}

// liquidityGatePasses implements spec §4.2 "Liquidity gate (repayment
// accrual)": redemption accrual is skipped, not an error, when liquidity is
// thin or the oracle is unset.
func (e *Engine) liquidityGatePasses(b *basket.Basket, creditDenom string) bool {
	if !b.OracleSet || e.liq == nil {
		return false
	}
	liquidity, err := e.liq.Liquidity(creditDenom)
	if err != nil || liquidity == nil {
		return false
	}
	if liquidity.Cmp(minLiquidity) < 0 {
		return false
	}
	supply := decimal.NewFromBigInt(b.CreditAsset.Amount, 0)
	if supply.Sign() <= 0 {
		return false
	}
	share := decimal.NewFromBigInt(liquidity, 0).Div(supply)
	return !share.LessThan(minLiquidityShare)
}

// AccrueRedemptionRate advances Basket.CreditPrice per spec §4.2 "Redemption-
// rate controller". A skip (oracle unset, liquidity gate failed) is not an
// error: it simply leaves CreditPrice and CreditLastAccrued untouched.
func (e *Engine) AccrueRedemptionRate(b *basket.Basket, creditAssetInfo string, now int64) error {
	if b == nil {
		return nil
	}
	if !e.liquidityGatePasses(b, b.CreditAsset.Denom) {
		return nil
	}
	if e.oracle == nil {
		return nil
	}
	marketPrice, _, err := e.oracle.Price(creditAssetInfo, e.cfg.CreditTwapTimeframe, e.cfg.OracleTimeLimit)
	if err != nil {
		return err
	}
	dt := now - b.CreditLastAccrued
	if dt <= 0 {
		return nil
	}

	redemption := b.CreditPrice
	if redemption.Sign() <= 0 {
		redemption = decimal.NewFromInt(1)
	}

	hi := decimal.Max(marketPrice, redemption)
	lo := decimal.Min(marketPrice, redemption)
	if lo.Sign() <= 0 {
		b.CreditLastAccrued = now
		return nil
	}
	priceDifference := hi.Div(lo).Sub(decimal.NewFromInt(1))
	negativeRate := marketPrice.GreaterThan(redemption)

	var rate decimal.Decimal
	if priceDifference.LessThanOrEqual(b.CPCMarginOfError) {
		rate = decimal.Zero
	} else {
		rate = priceDifference.Mul(e.cfg.CPCMultiplier)
	}

	if negativeRate && !b.NegativeRatesAllowed {
		rate = decimal.Zero
	}

	yearFraction := decimal.NewFromInt(dt).Div(decimal.NewFromInt(secondsPerYear))
	delta := b.CreditPrice.Mul(rate).Mul(yearFraction)
	if negativeRate {
		b.CreditPrice = b.CreditPrice.Sub(delta)
	} else {
		b.CreditPrice = b.CreditPrice.Add(delta)
	}
	b.CreditLastAccrued = now
	return nil
}

// governingProportion picks which of supply_proportion/debt_proportion
// governs the two-slope curve, per spec §4.2 step 4: "prefer
// supply_proportion unless (supply <= 1) OR (both > 1 AND supply < debt)".
func governingProportion(supplyProportion, debtProportion decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	supplyAtOrBelowOne := supplyProportion.LessThanOrEqual(one)
	bothAboveOne := supplyProportion.GreaterThan(one) && debtProportion.GreaterThan(one)
	supplyBelowDebt := supplyProportion.LessThan(debtProportion)
	if supplyAtOrBelowOne || (bothAboveOne && supplyBelowDebt) {
		return debtProportion
	}
	return supplyProportion
}

// twoSlope implements the slope-1/slope-2 curve of spec §4.2 step 3.
func twoSlope(base, proportion, slopeMultiplier decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	if proportion.LessThanOrEqual(one) {
		return base.Mul(proportion)
	}
	excess := proportion.Sub(one)
	multiplier := one.Add(excess.Mul(decimal.NewFromInt(100)).Mul(slopeMultiplier))
	rate := base.Mul(proportion).Mul(multiplier)
	if rate.GreaterThan(one) {
		return one
	}
	return rate
}

// BorrowRateInput bundles the per-collateral figures AccrueBorrowRate needs,
// kept separate from basket.CollateralSpec/SupplyCap so RateEngine never has
// to reach into RiskEngine's debt-cap derivation itself.
type BorrowRateInput struct {
	Spec           *basket.CollateralSpec
	Cap            *basket.SupplyCap
	DebtCap        *big.Int
	MultiAssetRate decimal.Decimal
	HasMultiAsset  bool
	RedemptionRate decimal.Decimal
	LastAccrued    int64
	Now            int64
}

// AccrueBorrowRate computes this block's per-collateral borrow rate, folds it
// into Spec.RateIndex, and returns the rate for the Basket's
// latest_collateral_rates snapshot (spec §4.2 steps 1-7).
func (e *Engine) AccrueBorrowRate(in BorrowRateInput) decimal.Decimal {
	spec := in.Spec
	cap := in.Cap
	if spec == nil || cap == nil || spec.MaxLTV.Sign() <= 0 {
		return decimal.Zero
	}

	base := e.cfg.BaseInterestRate.Div(spec.MaxLTV)

	debtProportion := decimal.Zero
	if in.DebtCap != nil && in.DebtCap.Sign() > 0 {
		debtProportion = decimal.NewFromBigInt(cap.DebtTotal, 0).Div(decimal.NewFromBigInt(in.DebtCap, 0))
	}
	supplyProportion := decimal.Zero
	if cap.SupplyCapRatio.Sign() > 0 {
		supplyProportion = currentRatio(cap).Div(cap.SupplyCapRatio)
	}

	proportion := governingProportion(supplyProportion, debtProportion)
	rate := twoSlope(base, proportion, e.cfg.RateSlopeMultiplier)

	if in.HasMultiAsset && in.MultiAssetRate.GreaterThan(rate) {
		rate = in.MultiAssetRate
	}

	rate = rate.Sub(in.RedemptionRate)
	if rate.Sign() < 0 {
		if in.RedemptionRate.Sign() > 0 {
			rate = decimal.Zero
		} else {
			rate = rate.Abs().Neg()
		}
	}

	if spec.RateHike {
		rate = rate.Add(e.cfg.RateHikeRate)
	}

	dt := in.Now - in.LastAccrued
	if dt < 0 {
		dt = 0
	}
	if spec.RateIndex.Sign() <= 0 {
		spec.RateIndex = decimal.NewFromInt(1)
	}
	yearFraction := decimal.NewFromInt(dt).Div(decimal.NewFromInt(secondsPerYear))
	if yearFraction.Sign() > 0 {
		spec.RateIndex = spec.RateIndex.Add(spec.RateIndex.Mul(rate).Mul(yearFraction))
	}

	return rate
}

// currentRatio stands in for the fraction of basket TVL held in this
// collateral: it returns CurrentSupply divided by DebtTotal (zero when
// DebtTotal is not positive), the same proxy the host's BorrowCaps
// enforcement used. It is not a share of basket TVL, and AccrueBorrowRate
// always uses it for supply_proportion.
func currentRatio(cap *basket.SupplyCap) decimal.Decimal {
	if cap.DebtTotal == nil || cap.DebtTotal.Sign() <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(cap.CurrentSupply, 0).Div(decimal.NewFromBigInt(cap.DebtTotal, 0))
}
