// Package liqqueue implements the LiquidationQueue: a product/sum/epoch/scale
// bid-matching engine (the Liquity-style stability-queue algorithm) described
// in spec §4.5.
package liqqueue

import (
	"math/big"

	"github.com/shopspring/decimal"

	"membranecore/crypto"
	"membranecore/native/basket"
)

// Bid is one unit of standing liquidity offered against a bid_for denom at a
// given premium (spec §3 "Bid").
type Bid struct {
	ID      uint64
	Owner   crypto.Address
	Amount  *big.Int

	LiqPremium uint32

	ProductSnapshot decimal.Decimal
	SumSnapshot     decimal.Decimal

	PendingLiquidatedCollateral *big.Int

	// WaitEnd is the unix-second timestamp at which a waiting bid matures
	// into an active one; zero for bids that were active on entry.
	WaitEnd int64

	EpochSnapshot uint64
	ScaleSnapshot uint64
}

// Waiting reports whether the bid has not yet matured into the active pool.
func (b *Bid) Waiting() bool {
	return b.WaitEnd > 0
}

// PremiumSlot is one discrete premium level (0..max_premium) inside a bid_for
// denom's queue (spec §3 "PremiumSlot").
type PremiumSlot struct {
	BidFor  basket.DenomID
	Premium uint32

	Bids        []*Bid
	WaitingBids []*Bid

	ProductSnapshot decimal.Decimal
	SumSnapshot     decimal.Decimal

	CurrentEpoch uint64
	CurrentScale uint64

	TotalBidAmount *big.Int
	LastTotal      int64

	ResidueCollateral decimal.Decimal
	ResidueBid        decimal.Decimal
}

// NewPremiumSlot returns an empty slot with product_snapshot seeded at 1, the
// identity element the product accounting relies on.
func NewPremiumSlot(bidFor basket.DenomID, premium uint32) *PremiumSlot {
	return &PremiumSlot{
		BidFor:          bidFor,
		Premium:         premium,
		ProductSnapshot: decimal.NewFromInt(1),
		SumSnapshot:     decimal.Zero,
		TotalBidAmount:  big.NewInt(0),
		ResidueCollateral: decimal.Zero,
		ResidueBid:        decimal.Zero,
	}
}

// Config holds the queue-wide parameters from spec §6 "Configuration options
// (Queue)".
type Config struct {
	WaitingPeriod      int64
	MinimumBid         *big.Int
	MaximumWaitingBids uint32
	BidThreshold       *big.Int
	MaxPremium         uint32
}

// LiquidateResult is the aggregate outcome of one Liquidate call across every
// slot it touched (spec §4.5 step 4 "Emit events").
type LiquidateResult struct {
	RepayAmount      *big.Int
	CollateralAmount *big.Int
	CollateralToken  string
}

// CheckResult is the dry-run counterpart returned by CheckLiquidatible.
type CheckResult struct {
	TotalDebtRepaid    *big.Int
	LeftoverCollateral *big.Int
}
