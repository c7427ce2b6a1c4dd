package liqqueue

import (
	"math/big"

	"github.com/shopspring/decimal"

	"membranecore/crypto"
	"membranecore/native/basket"
)

const moduleName = "liqqueue"

// scaleFactor is the threshold the running product is compared against
// before a scale increment, mirroring the Liquity-style precision rescue:
// once the accumulated product would underflow Decimal precision, scale
// rolls over and product resets to 1.
var scaleFactor = decimal.New(1, -9)

type engineState interface {
	GetSlot(bidFor basket.DenomID, premium uint32) (*PremiumSlot, error)
	PutSlot(slot *PremiumSlot) error
	GetBid(bidFor basket.DenomID, id uint64) (*Bid, error)
	PutBid(bidFor basket.DenomID, bid *Bid) error
	DeleteBid(bidFor basket.DenomID, id uint64) error
	NextBidID() (uint64, error)
	GetQueueConfig(bidFor basket.DenomID) (*Config, error)
	PutQueueConfig(bidFor basket.DenomID, cfg *Config) error
}

// Engine implements the LiquidationQueue operation surface of spec §4.5.
type Engine struct {
	state engineState
	now   int64
}

// NewEngine constructs an unwired LiquidationQueue engine; call SetState
// before use.
func NewEngine() *Engine {
	return &Engine{}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetNow advances the engine's notion of current time, driven by the host's
// per-block clock rather than a live time.Now() read.
func (e *Engine) SetNow(now int64) { e.now = now }

func (e *Engine) requireState() error {
	if e.state == nil {
		return errNilState
	}
	return nil
}

// AddQueue creates the slot ladder for a new bid_for denom (spec §6 actor
// op "AddQueue").
func (e *Engine) AddQueue(bidFor basket.DenomID, cfg Config) error {
	if err := e.requireState(); err != nil {
		return err
	}
	for p := uint32(0); p <= cfg.MaxPremium; p++ {
		if err := e.state.PutSlot(NewPremiumSlot(bidFor, p)); err != nil {
			return err
		}
	}
	return e.state.PutQueueConfig(bidFor, &cfg)
}

// UpdateQueue adjusts max_premium (creating any new slots) and bid_threshold
// for an existing bid_for denom (spec §4.5 "UpdateQueue").
func (e *Engine) UpdateQueue(bidFor basket.DenomID, cfg Config) error {
	if err := e.requireState(); err != nil {
		return err
	}
	existing, err := e.state.GetQueueConfig(bidFor)
	if err != nil {
		return err
	}
	startAt := uint32(0)
	if existing != nil && cfg.MaxPremium > existing.MaxPremium {
		startAt = existing.MaxPremium + 1
	}
	if existing == nil || cfg.MaxPremium > existing.MaxPremium {
		for p := startAt; p <= cfg.MaxPremium; p++ {
			slot, err := e.state.GetSlot(bidFor, p)
			if err != nil {
				return err
			}
			if slot == nil {
				if err := e.state.PutSlot(NewPremiumSlot(bidFor, p)); err != nil {
					return err
				}
			}
		}
	}
	return e.state.PutQueueConfig(bidFor, &cfg)
}

// promoteMatured moves any waiting bids past their wait_end into the active
// pool, folding their amount into total_bid_amount at the slot's current
// product/sum snapshot (spec §4.5 "Waiting-bid activation").
func (e *Engine) promoteMatured(slot *PremiumSlot) {
	if len(slot.WaitingBids) == 0 {
		return
	}
	remaining := slot.WaitingBids[:0]
	for _, b := range slot.WaitingBids {
		if b.WaitEnd <= e.now {
			b.WaitEnd = 0
			b.ProductSnapshot = slot.ProductSnapshot
			b.SumSnapshot = slot.SumSnapshot
			b.EpochSnapshot = slot.CurrentEpoch
			b.ScaleSnapshot = slot.CurrentScale
			slot.Bids = append(slot.Bids, b)
			slot.TotalBidAmount = new(big.Int).Add(slot.TotalBidAmount, b.Amount)
		} else {
			remaining = append(remaining, b)
		}
	}
	slot.WaitingBids = remaining
}

// SubmitBid places amount of the credit denom at the given premium for
// bidFor, splitting into active/waiting portions per spec §4.5 "SubmitBid".
func (e *Engine) SubmitBid(owner crypto.Address, bidFor basket.DenomID, premium uint32, amount *big.Int) (*Bid, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, errInvalidAmount
	}
	cfg, err := e.state.GetQueueConfig(bidFor)
	if err != nil {
		return nil, err
	}
	if cfg == nil || premium > cfg.MaxPremium {
		return nil, errSlotNotFound
	}
	if cfg.MinimumBid != nil && amount.Cmp(cfg.MinimumBid) < 0 {
		return nil, errBelowMinimumBid
	}
	slot, err := e.state.GetSlot(bidFor, premium)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, errSlotNotFound
	}
	e.promoteMatured(slot)

	id, err := e.state.NextBidID()
	if err != nil {
		return nil, err
	}
	bid := &Bid{
		ID:                          id,
		Owner:                       owner,
		Amount:                      new(big.Int).Set(amount),
		LiqPremium:                  premium,
		PendingLiquidatedCollateral: big.NewInt(0),
	}

	waiting := cfg.BidThreshold != nil && slot.TotalBidAmount.Cmp(cfg.BidThreshold) >= 0
	if waiting {
		if cfg.MaximumWaitingBids > 0 && uint32(len(slot.WaitingBids)) >= cfg.MaximumWaitingBids {
			return nil, errTooManyWaitingBids
		}
		bid.WaitEnd = e.now + cfg.WaitingPeriod
		slot.WaitingBids = append(slot.WaitingBids, bid)
	} else {
		bid.ProductSnapshot = slot.ProductSnapshot
		bid.SumSnapshot = slot.SumSnapshot
		bid.EpochSnapshot = slot.CurrentEpoch
		bid.ScaleSnapshot = slot.CurrentScale
		slot.Bids = append(slot.Bids, bid)
		slot.TotalBidAmount = new(big.Int).Add(slot.TotalBidAmount, bid.Amount)
	}
	slot.LastTotal = e.now

	if err := e.state.PutBid(bidFor, bid); err != nil {
		return nil, err
	}
	if err := e.state.PutSlot(slot); err != nil {
		return nil, err
	}
	return bid, nil
}

// RetractBid withdraws part or all of a still-active bid (spec §4.5
// "RetractBid").
func (e *Engine) RetractBid(caller crypto.Address, bidFor basket.DenomID, id uint64, amount *big.Int) error {
	if err := e.requireState(); err != nil {
		return err
	}
	bid, err := e.state.GetBid(bidFor, id)
	if err != nil {
		return err
	}
	if bid == nil {
		return errBidNotFound
	}
	if !bid.Owner.Equal(caller) {
		return errNotBidOwner
	}
	cfg, err := e.state.GetQueueConfig(bidFor)
	if err != nil {
		return err
	}
	slot, err := e.state.GetSlot(bidFor, bid.LiqPremium)
	if err != nil {
		return err
	}
	if slot == nil {
		return errSlotNotFound
	}

	full := amount == nil || amount.Sign() <= 0 || amount.Cmp(bid.Amount) >= 0
	if !full {
		residue := new(big.Int).Sub(bid.Amount, amount)
		if cfg != nil && cfg.MinimumBid != nil && residue.Sign() > 0 && residue.Cmp(cfg.MinimumBid) < 0 {
			return errRetractBelowMinimum
		}
	}

	withdrawn := new(big.Int).Set(bid.Amount)
	if !full {
		withdrawn = new(big.Int).Set(amount)
		bid.Amount = new(big.Int).Sub(bid.Amount, amount)
	}
	slot.TotalBidAmount = new(big.Int).Sub(slot.TotalBidAmount, withdrawn)
	if slot.TotalBidAmount.Sign() < 0 {
		slot.TotalBidAmount = big.NewInt(0)
	}

	if full {
		removeBidFromSlot(slot, id)
		if err := e.state.DeleteBid(bidFor, id); err != nil {
			return err
		}
	} else {
		if err := e.state.PutBid(bidFor, bid); err != nil {
			return err
		}
	}
	return e.state.PutSlot(slot)
}

func removeBidFromSlot(slot *PremiumSlot, id uint64) {
	filtered := slot.Bids[:0]
	for _, b := range slot.Bids {
		if b.ID != id {
			filtered = append(filtered, b)
		}
	}
	slot.Bids = filtered
}

// entitlement computes a bid's current claim on slot collateral per spec §3
// PremiumSlot invariant.
func entitlement(slot *PremiumSlot, bid *Bid) decimal.Decimal {
	if bid.EpochSnapshot != slot.CurrentEpoch {
		return decimal.Zero
	}
	if bid.ProductSnapshot.IsZero() {
		return decimal.Zero
	}
	amount := decimal.NewFromBigInt(bid.Amount, 0)
	return amount.Mul(slot.SumSnapshot.Sub(bid.SumSnapshot)).Mul(bid.ProductSnapshot).Div(slot.ProductSnapshot)
}

// Liquidate walks the slot ladder from lowest to highest premium consuming
// active bids against collateralAmount, per spec §4.5 "Liquidate".
func (e *Engine) Liquidate(bidFor basket.DenomID, collateralAmount *big.Int, collateralToken string, creditPrice, collateralPrice decimal.Decimal) (*LiquidateResult, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	cfg, err := e.state.GetQueueConfig(bidFor)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, errSlotNotFound
	}

	remainingCollateral := decimal.NewFromBigInt(collateralAmount, 0)
	totalRepaid := big.NewInt(0)
	totalCollateral := big.NewInt(0)

	for premium := uint32(0); premium <= cfg.MaxPremium && remainingCollateral.Sign() > 0; premium++ {
		slot, err := e.state.GetSlot(bidFor, premium)
		if err != nil {
			return nil, err
		}
		if slot == nil || len(slot.Bids) == 0 {
			continue
		}
		e.promoteMatured(slot)

		discount := decimal.NewFromInt32(int32(premium)).Div(decimal.NewFromInt(100))
		effectivePrice := collateralPrice.Mul(decimal.NewFromInt(1).Sub(discount))
		if effectivePrice.Sign() <= 0 {
			continue
		}

		slotCollateralCapacity := decimal.NewFromBigInt(slot.TotalBidAmount, 0).Div(effectivePrice)
		consumeCollateral := decimal.Min(slotCollateralCapacity, remainingCollateral)
		if consumeCollateral.Sign() <= 0 {
			continue
		}
		consumeCredit := consumeCollateral.Mul(effectivePrice)

		slot.SumSnapshot = slot.SumSnapshot.Add(consumeCollateral.Mul(slot.ProductSnapshot))
		slot.TotalBidAmount = new(big.Int).Sub(slot.TotalBidAmount, consumeCredit.BigInt())
		if slot.TotalBidAmount.Sign() <= 0 {
			slot.TotalBidAmount = big.NewInt(0)
			slot.CurrentEpoch++
			slot.ProductSnapshot = decimal.NewFromInt(1)
			slot.SumSnapshot = decimal.Zero
			slot.Bids = nil
		} else {
			ratio := decimal.NewFromInt(1).Sub(consumeCredit.Div(decimal.NewFromBigInt(slot.TotalBidAmount, 0).Add(consumeCredit)))
			newProduct := slot.ProductSnapshot.Mul(ratio)
			if newProduct.LessThan(scaleFactor) {
				slot.CurrentScale++
				slot.ProductSnapshot = decimal.NewFromInt(1)
			} else {
				slot.ProductSnapshot = newProduct
			}
		}
		slot.LastTotal = e.now

		remainingCollateral = remainingCollateral.Sub(consumeCollateral)
		totalCollateral = new(big.Int).Add(totalCollateral, consumeCollateral.BigInt())
		totalRepaid = new(big.Int).Add(totalRepaid, consumeCredit.BigInt())

		if err := e.state.PutSlot(slot); err != nil {
			return nil, err
		}
	}

	if remainingCollateral.Sign() > 0 && totalRepaid.Sign() == 0 {
		return nil, errInsufficientBids
	}

	return &LiquidateResult{
		RepayAmount:      totalRepaid,
		CollateralAmount: totalCollateral,
		CollateralToken:  collateralToken,
	}, nil
}

// CheckLiquidatible dry-runs the slot walk without mutating state (spec
// §4.5 "CheckLiquidatible").
func (e *Engine) CheckLiquidatible(bidFor basket.DenomID, collateralAmount *big.Int, collateralPrice decimal.Decimal) (*CheckResult, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	cfg, err := e.state.GetQueueConfig(bidFor)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, errSlotNotFound
	}

	remaining := decimal.NewFromBigInt(collateralAmount, 0)
	repaid := decimal.Zero

	for premium := uint32(0); premium <= cfg.MaxPremium && remaining.Sign() > 0; premium++ {
		slot, err := e.state.GetSlot(bidFor, premium)
		if err != nil {
			return nil, err
		}
		if slot == nil || slot.TotalBidAmount.Sign() <= 0 {
			continue
		}
		discount := decimal.NewFromInt32(int32(premium)).Div(decimal.NewFromInt(100))
		effectivePrice := collateralPrice.Mul(decimal.NewFromInt(1).Sub(discount))
		if effectivePrice.Sign() <= 0 {
			continue
		}
		capacity := decimal.NewFromBigInt(slot.TotalBidAmount, 0).Div(effectivePrice)
		consume := decimal.Min(capacity, remaining)
		remaining = remaining.Sub(consume)
		repaid = repaid.Add(consume.Mul(effectivePrice))
	}

	return &CheckResult{
		TotalDebtRepaid:    repaid.BigInt(),
		LeftoverCollateral: remaining.BigInt(),
	}, nil
}

// ClaimLiquidations lets a bidder withdraw the collateral their bid has
// accumulated, deleting the bid if fully consumed (spec §4.5
// "ClaimLiquidations").
func (e *Engine) ClaimLiquidations(caller crypto.Address, bidFor basket.DenomID, id uint64) (decimal.Decimal, error) {
	if err := e.requireState(); err != nil {
		return decimal.Zero, err
	}
	bid, err := e.state.GetBid(bidFor, id)
	if err != nil {
		return decimal.Zero, err
	}
	if bid == nil {
		return decimal.Zero, errBidNotFound
	}
	if !bid.Owner.Equal(caller) {
		return decimal.Zero, errNotBidOwner
	}
	slot, err := e.state.GetSlot(bidFor, bid.LiqPremium)
	if err != nil {
		return decimal.Zero, err
	}
	if slot == nil {
		return decimal.Zero, errSlotNotFound
	}

	claim := entitlement(slot, bid)
	if bid.EpochSnapshot != slot.CurrentEpoch {
		removeBidFromSlot(slot, id)
		if err := e.state.DeleteBid(bidFor, id); err != nil {
			return decimal.Zero, err
		}
		return claim, e.state.PutSlot(slot)
	}
	return claim, e.state.PutBid(bidFor, bid)
}
