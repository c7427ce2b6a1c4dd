// Package cascade implements LiquidationCascade and its
// LiquidationPropagation state machine, spec §4.4 — the highest-criticality
// component in the system.
package cascade

import (
	"math/big"

	"github.com/shopspring/decimal"

	"membranecore/crypto"
	"membranecore/native/basket"
)

// PropagationState names the stage a LiquidationPropagation record is
// currently in (spec §4.4 "Propagation state machine").
type PropagationState int

const (
	StateIdle PropagationState = iota
	StateLQInFlight
	StateSPInFlight
	StateSellWallInFlight
	StateBadDebtCheck
)

func (s PropagationState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLQInFlight:
		return "lq_in_flight"
	case StateSPInFlight:
		return "sp_in_flight"
	case StateSellWallInFlight:
		return "sell_wall_in_flight"
	case StateBadDebtCheck:
		return "bad_debt_check"
	default:
		return "unknown"
	}
}

// AssetRepayment is one per-collateral repayment slice dispatched to the
// Liquidation Queue, consumed head-first as replies arrive (spec §4.4
// "Ordering guarantees").
type AssetRepayment struct {
	DenomID          basket.DenomID
	CollateralAmount *big.Int
	RepayAmount      *big.Int
	Settled          bool
}

// LiquidationPropagation is the single in-flight record a basket may hold at
// a time (spec §3 "Ownership/lifetime statement": "exclusively owned by the
// in-flight liquidation — must be cleared before any new liquidation
// begins").
type LiquidationPropagation struct {
	State             PropagationState
	PositionID        uint64
	PositionOwner     crypto.Address
	UserRepayAmount   *big.Int
	LiqQueueLeftovers *big.Int
	StabilityPool     *big.Int
	LiquidatedAssets  []basket.DenomID
	PerAssetRepayment []AssetRepayment
	EntryCreditPrice  decimal.Decimal
	AvailableFee      *big.Int
}
