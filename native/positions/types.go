// Package positions implements the Basket + Position state machine: the
// deposit/withdraw/increase_debt/repay/accrue/redeem/liquidate operation
// surface described in spec §4.1.
package positions

import (
	"math/big"

	"github.com/shopspring/decimal"

	"membranecore/crypto"
	"membranecore/native/basket"
)

// CollateralHolding is one (denom, amount, rate_index_snapshot) entry held by
// a Position (spec §3 "collateral_assets").
type CollateralHolding struct {
	DenomID          basket.DenomID
	Amount           *big.Int
	RateIndexSnapshot decimal.Decimal
}

// Position is owned by an Address and keyed by a monotonically increasing
// PositionID (spec §3 "Position").
type Position struct {
	ID      uint64
	Owner   crypto.Address
	Collateral []CollateralHolding

	// CreditAmount is the outstanding debt in credit units.
	CreditAmount *big.Int

	Redeemable               bool
	Premium                  uint32 // discount in integer percent
	MaxLoanRepayment         decimal.Decimal
	RestrictedCollateralIDs  []basket.DenomID
}

// IsEmpty reports whether the Position holds no collateral and no debt, the
// condition under which spec §3 requires it be destroyed.
func (p *Position) IsEmpty() bool {
	if p.CreditAmount != nil && p.CreditAmount.Sign() > 0 {
		return false
	}
	for _, c := range p.Collateral {
		if c.Amount != nil && c.Amount.Sign() > 0 {
			return false
		}
	}
	return true
}

// HoldingFor returns the CollateralHolding for id, creating and appending one
// with a zero amount if the Position has never held that denom before.
func (p *Position) HoldingFor(id basket.DenomID) *CollateralHolding {
	for i := range p.Collateral {
		if p.Collateral[i].DenomID == id {
			return &p.Collateral[i]
		}
	}
	p.Collateral = append(p.Collateral, CollateralHolding{DenomID: id, Amount: big.NewInt(0)})
	return &p.Collateral[len(p.Collateral)-1]
}

// Restricted reports whether id is excluded from redemption for this
// Position (spec §3 "restricted_collateral_assets").
func (p *Position) Restricted(id basket.DenomID) bool {
	for _, r := range p.RestrictedCollateralIDs {
		if r == id {
			return true
		}
	}
	return false
}

// AssetDeposit is one (denom, amount) pair supplied to Deposit/Withdraw.
type AssetDeposit struct {
	Denom  string
	Amount *big.Int
}
