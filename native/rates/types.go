// Package rates implements RateEngine: the redemption-rate controller and
// per-collateral two-slope borrow curves described in spec §4.2.
package rates

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// secondsPerYear annualizes accrual deltas the same way the rest of the
// engine packages do: every accrual here is wall-clock-seconds-denominated,
// never block-height-denominated.
const secondsPerYear = 31_536_000

// Oracle is the narrow collaborator interface for price discovery (spec §6
// "Collaborator interfaces consumed: Oracle").
type Oracle interface {
	Price(assetInfo string, twapTimeframe int64, oracleTimeLimit int64) (price decimal.Decimal, decimals uint64, err error)
}

// LiquidityProbe reports available on-chain liquidity for a denom, used by
// the redemption-rate liquidity gate (spec §4.2 "Liquidity gate").
type LiquidityProbe interface {
	Liquidity(denom string) (*big.Int, error)
}

// Config holds the RateEngine-wide parameters enumerated in spec §6
// "Configuration options (Positions)".
type Config struct {
	CPCMultiplier       decimal.Decimal
	RateSlopeMultiplier decimal.Decimal
	BaseInterestRate    decimal.Decimal
	CreditTwapTimeframe int64
	OracleTimeLimit     int64
	RateHikeRate        decimal.Decimal
}

// minLiquidity and minLiquidityShare implement the liquidity gate's two
// thresholds (spec §4.2 "Liquidity gate").
var (
	minLiquidity      = big.NewInt(2_000_000)
	minLiquidityShare = decimal.NewFromFloat(0.03)
)
