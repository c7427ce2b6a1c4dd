package rates

import (
	"github.com/shopspring/decimal"
)

// volatilityWindowSize bounds the VOLATILITY price-history list: once full,
// the oldest observation is evicted as the newest is recorded (spec §4.2
// "Volatility adjustment", persisted layout "VOLATILITY: map denom →
// {list<price>, index}").
const volatilityWindowSize = 30

// volatilityDampener scales the coefficient of variation down before it
// multiplies supply_cap_ratio, keeping the adjustment a gentle throttle
// rather than a cliff; chosen so a 100%-CV history (extreme, rarely
// observed) caps the multiplier reduction near 0.5x.
var volatilityDampener = decimal.NewFromFloat(0.5)

// VolatilityHistory is the fixed-capacity ring buffer of recent spot prices
// a collateral denom accumulates for the volatility adjustment. The zero
// value is an empty history.
type VolatilityHistory struct {
	Prices []decimal.Decimal
	Index  int
}

// NewVolatilityHistory returns an empty history.
func NewVolatilityHistory() *VolatilityHistory {
	return &VolatilityHistory{}
}

// Record appends price to the ring buffer, overwriting the oldest entry once
// the window is full.
func (h *VolatilityHistory) Record(price decimal.Decimal) {
	if h == nil {
		return
	}
	if len(h.Prices) < volatilityWindowSize {
		h.Prices = append(h.Prices, price)
		h.Index = len(h.Prices) % volatilityWindowSize
		return
	}
	h.Prices[h.Index] = price
	h.Index = (h.Index + 1) % volatilityWindowSize
}

// Full reports whether the window has accumulated enough samples to drive an
// adjustment (spec §4.2 "when the list is full; otherwise cap unchanged").
func (h *VolatilityHistory) Full() bool {
	return h != nil && len(h.Prices) >= volatilityWindowSize
}

// coefficientOfVariation is stddev/mean over the recorded window, the
// standard dimensionless volatility measure: scale-independent, so it
// compares sensibly across collateral denoms priced at wildly different
// magnitudes.
func (h *VolatilityHistory) coefficientOfVariation() decimal.Decimal {
	n := decimal.NewFromInt(int64(len(h.Prices)))
	if n.Sign() <= 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, p := range h.Prices {
		sum = sum.Add(p)
	}
	mean := sum.Div(n)
	if mean.Sign() <= 0 {
		return decimal.Zero
	}
	variance := decimal.Zero
	for _, p := range h.Prices {
		diff := p.Sub(mean)
		variance = variance.Add(diff.Mul(diff))
	}
	variance = variance.Div(n)
	return sqrtDecimal(variance).Div(mean)
}

// sqrtDecimal computes a non-negative square root via Newton's method; the
// shopspring/decimal package carries no Sqrt of its own.
func sqrtDecimal(d decimal.Decimal) decimal.Decimal {
	if d.Sign() <= 0 {
		return decimal.Zero
	}
	guess := d
	half := decimal.NewFromFloat(0.5)
	for i := 0; i < 32; i++ {
		next := guess.Add(d.Div(guess)).Mul(half)
		if next.Sub(guess).Abs().LessThan(decimal.New(1, -18)) {
			return next
		}
		guess = next
	}
	return guess
}

// VolatilityMultiplier derives the supply_cap_ratio multiplier from history,
// per spec §4.2 "adjusts supply_cap_ratio by a multiplier derived from the
// asset's recent price volatility history when the list is full; otherwise
// cap unchanged". An incomplete window leaves the cap untouched (1.0).
func VolatilityMultiplier(history *VolatilityHistory) decimal.Decimal {
	one := decimal.NewFromInt(1)
	if history == nil || !history.Full() {
		return one
	}
	cv := history.coefficientOfVariation()
	multiplier := one.Sub(cv.Mul(volatilityDampener))
	floor := decimal.NewFromFloat(0.1)
	if multiplier.LessThan(floor) {
		return floor
	}
	if multiplier.GreaterThan(one) {
		return one
	}
	return multiplier
}

// AdjustedSupplyCapRatio applies VolatilityMultiplier to baseRatio. The risk
// package does not call it: RiskEngine.CheckSupplyCapWithVolatility applies
// VolatilityMultiplier to SupplyCap.SupplyCapRatio itself.
func (e *Engine) AdjustedSupplyCapRatio(baseRatio decimal.Decimal, history *VolatilityHistory) decimal.Decimal {
	return baseRatio.Mul(VolatilityMultiplier(history))
}
