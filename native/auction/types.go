// Package auction implements DebtAuction and FeeAuction: the time-increasing
// discount recapitalization mechanisms described in spec §4.6.
package auction

import (
	"math/big"

	"github.com/shopspring/decimal"

	"membranecore/crypto"
)

// RepaymentPosition names a Position whose debt is repaid, in order, from
// DebtAuction proceeds (spec §3 "DebtAuction").
type RepaymentPosition struct {
	PositionID uint64
	Amount     *big.Int
}

// SendTo is a direct-transfer recipient for auction proceeds once every
// RepaymentPosition has been satisfied.
type SendTo struct {
	Address crypto.Address
	Amount  *big.Int
}

// DebtAuction is the singleton recapitalization auction for a basket (spec
// §3 "DebtAuction"). At most one is active at a time; additional
// insolvencies extend an already-running auction rather than starting a new
// one.
type DebtAuction struct {
	RemainingRecapitalization *big.Int
	RepaymentPositions        []RepaymentPosition
	SendTo                    []SendTo
	AuctionStartTime          int64
}

// FeeAuction sells one non-credit fee denom held by the basket for the
// configured desired_asset (spec §3 "FeeAuction").
type FeeAuction struct {
	Denom            string
	Remaining        *big.Int
	DesiredAsset     string
	AuctionStartTime int64
}

// Config holds the discount-curve parameters shared by both auction kinds
// (spec §6 "Configuration options (Auction)").
type Config struct {
	TWAPTimeframe             int64
	InitialDiscount           decimal.Decimal
	DiscountIncreaseTimeframe int64
	DiscountIncrease          decimal.Decimal
	SendToStakers             bool
}

// minSwapRatio is the 1% floor on the effective swap ratio (spec §4.6
// "effective swap ratio ... floored at 1%").
var minSwapRatio = decimal.NewFromFloat(0.01)

// Discount computes the current discount for an auction that began at
// startTime, given now and cfg (spec §4.6 "Discount curve").
func Discount(cfg Config, startTime, now int64) decimal.Decimal {
	if now <= startTime || cfg.DiscountIncreaseTimeframe <= 0 {
		return cfg.InitialDiscount
	}
	elapsed := now - startTime
	steps := elapsed / cfg.DiscountIncreaseTimeframe
	discount := cfg.InitialDiscount.Add(decimal.NewFromInt(steps).Mul(cfg.DiscountIncrease))
	if discount.GreaterThan(decimal.NewFromInt(1)) {
		discount = decimal.NewFromInt(1)
	}
	return discount
}

// SwapRatio converts a discount into the effective swap ratio, floored at 1%
// (spec §4.6 "effective swap ratio = 1 - discount").
func SwapRatio(discount decimal.Decimal) decimal.Decimal {
	ratio := decimal.NewFromInt(1).Sub(discount)
	if ratio.LessThan(minSwapRatio) {
		return minSwapRatio
	}
	return ratio
}
