package cascade

import (
	"math/big"

	"github.com/shopspring/decimal"

	"membranecore/crypto"
	"membranecore/native/basket"
	"membranecore/native/liqqueue"
	"membranecore/native/positions"
)

const moduleName = "cascade"

// StabilityPool is the narrow collaborator interface for Stage 1 (a user's
// own SP deposit) and Stage 3 (the basket-wide SP backstop), spec §6
// "Collaborator interfaces consumed: StabilityPool".
type StabilityPool interface {
	UserDeposit(owner crypto.Address) (*big.Int, error)
	Liquidate(amount *big.Int) (*big.Int, error)
	DepositFee(denom string, amount *big.Int) error
}

// Router is the sell-wall fallback collaborator (spec §6 "Collaborator
// interfaces consumed: Router"). This Go rendition has no true async
// message-passing, so Swap resolves synchronously instead of replying later.
type Router interface {
	Swap(fromDenom, toDenom string, amount *big.Int, recipient crypto.Address) (realized *big.Int, err error)
}

// Minter mints/burns the credit asset and moves collateral the cascade seizes.
type Minter interface {
	BurnTokens(denom string, amount *big.Int, from crypto.Address) error
	Transfer(denom string, amount *big.Int, to crypto.Address) error
}

// PriceOracle resolves a spot price for a collateral denom (spec §4.4
// "Capture prices at entry", spec §6 "Collaborator interfaces consumed:
// Oracle"), the same narrow synchronous shape native/positions.PriceOracle
// consumes. Basket.LatestCollateralRates tracks the per-collateral borrow
// rate, not a price, so the cascade needs its own Oracle wiring rather than
// reusing Basket.RateForDenom.
type PriceOracle interface {
	Price(denom string) (decimal.Decimal, error)
}

// DebtAuctionStarter forwards unrecoverable bad debt to the DebtAuction
// (spec §4.4 Stage 5 "forward any remaining debt amount to DebtAuction").
type DebtAuctionStarter interface {
	StartAuction(amount *big.Int, positionID uint64, owner crypto.Address) error
}

type engineState interface {
	GetBasket() (*basket.Basket, error)
	PutBasket(b *basket.Basket) error
	GetPosition(id uint64) (*positions.Position, error)
	PutPosition(p *positions.Position) error
	DeletePosition(owner crypto.Address, id uint64) error
	GetPropagation() (*LiquidationPropagation, error)
	PutPropagation(p *LiquidationPropagation) error
	ClearPropagation() error
}

// Engine implements LiquidationCascade, spec §4.4.
type Engine struct {
	state    engineState
	queue    *liqqueue.Engine
	sp       StabilityPool
	router   Router
	minter   Minter
	auction  DebtAuctionStarter
	oracle   PriceOracle

	liqFee decimal.Decimal
}

// NewEngine constructs an unwired cascade Engine; call SetState and
// SetCollaborators before use.
func NewEngine(liqFee decimal.Decimal) *Engine {
	return &Engine{liqFee: liqFee}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetCollaborators wires the LiquidationQueue, StabilityPool, Router, Minter,
// DebtAuctionStarter and PriceOracle collaborators.
func (e *Engine) SetCollaborators(queue *liqqueue.Engine, sp StabilityPool, router Router, minter Minter, auction DebtAuctionStarter, oracle PriceOracle) {
	e.queue = queue
	e.sp = sp
	e.router = router
	e.minter = minter
	e.auction = auction
	e.oracle = oracle
}

func (e *Engine) requireState() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return nil
}

// price resolves denom's current spot price, or zero if no oracle is wired
// or the oracle fails (treated as "no price available" rather than fatal, the
// same market-precondition-skip idiom native/positions.Engine.price uses).
func (e *Engine) price(denom string) decimal.Decimal {
	if e.oracle == nil {
		return decimal.Zero
	}
	p, err := e.oracle.Price(denom)
	if err != nil {
		return decimal.Zero
	}
	return p
}

// Liquidate runs the full LiquidationCascade pipeline for an insolvent
// Position (spec §4.4 "Stages (in order)"). The host this is grounded on
// dispatches each stage as an async sub-op with a reply handler; this Go
// rendition has no concurrency to suspend across; every stage therefore runs
// to completion inline. The propagation is written to the store once, in
// StateLQInFlight, before the first stage, which enforces the "at most one
// propagation per basket" invariant, and cleared after the last; the later
// stage-to-stage State changes are made on the in-memory record only.
func (e *Engine) Liquidate(positionID uint64, owner crypto.Address, availableFee *big.Int) error {
	if err := e.requireState(); err != nil {
		return err
	}
	existing, err := e.state.GetPropagation()
	if err != nil {
		return err
	}
	if existing != nil && existing.State != StateIdle {
		return errAlreadyInFlight
	}

	b, err := e.state.GetBasket()
	if err != nil {
		return err
	}
	if b == nil {
		return errNilState
	}
	p, err := e.state.GetPosition(positionID)
	if err != nil {
		return err
	}
	if p == nil {
		return errPositionNotFound
	}

	repayAmount := e.creditRepayAmount(b, p)
	if repayAmount.Sign() <= 0 {
		return nil
	}

	prop := &LiquidationPropagation{
		State:            StateLQInFlight,
		PositionID:       positionID,
		PositionOwner:    owner,
		UserRepayAmount:  repayAmount,
		LiqQueueLeftovers: big.NewInt(0),
		StabilityPool:    big.NewInt(0),
		EntryCreditPrice: b.CreditPrice,
		AvailableFee:     availableFee,
	}
	if err := e.state.PutPropagation(prop); err != nil {
		return err
	}

	if err := e.stageUserSP(b, p, prop); err != nil {
		return err
	}
	if err := e.stageLiquidationQueue(b, p, prop); err != nil {
		return err
	}
	if err := e.stageStabilityPool(b, p, prop); err != nil {
		return err
	}
	if err := e.stageSellWall(b, p, prop); err != nil {
		return err
	}
	if err := e.stageBadDebtCheck(b, p, prop); err != nil {
		return err
	}

	prop.State = StateIdle
	if err := e.state.ClearPropagation(); err != nil {
		return err
	}
	if err := e.state.PutBasket(b); err != nil {
		return err
	}
	return e.persistOrDeletePosition(p)
}

// Status returns the currently stored LiquidationPropagation, or
// errNoPropagation when none is stored. No rpc route calls it.
func (e *Engine) Status() (*LiquidationPropagation, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	prop, err := e.state.GetPropagation()
	if err != nil {
		return nil, err
	}
	if prop == nil {
		return nil, errNoPropagation
	}
	return prop, nil
}

func (e *Engine) persistOrDeletePosition(p *positions.Position) error {
	if p.IsEmpty() {
		return e.state.DeletePosition(p.Owner, p.ID)
	}
	return e.state.PutPosition(p)
}

// creditRepayAmount derives the credit amount needed to restore max-LTV
// solvency (spec §4.4 "Preconditions" — "the repay amount needed to restore
// max-LTV solvency"). Approximated here as the Position's full outstanding
// debt, the conservative upper bound the cascade stages then work down.
func (e *Engine) creditRepayAmount(b *basket.Basket, p *positions.Position) *big.Int {
	return new(big.Int).Set(p.CreditAmount)
}

// stageUserSP consumes the liquidated user's own Stability Pool deposit
// first, at a reduced fee (spec §4.4 Stage 1).
func (e *Engine) stageUserSP(b *basket.Basket, p *positions.Position, prop *LiquidationPropagation) error {
	if e.sp == nil {
		return nil
	}
	deposit, err := e.sp.UserDeposit(prop.PositionOwner)
	if err != nil || deposit == nil || deposit.Sign() <= 0 {
		return nil
	}
	consume := deposit
	if consume.Cmp(prop.UserRepayAmount) > 0 {
		consume = new(big.Int).Set(prop.UserRepayAmount)
	}
	consumed, err := e.sp.Liquidate(consume)
	if err != nil {
		return nil
	}
	p.CreditAmount = new(big.Int).Sub(p.CreditAmount, consumed)
	prop.UserRepayAmount = new(big.Int).Sub(prop.UserRepayAmount, consumed)
	b.CreditAsset.Amount = new(big.Int).Sub(b.CreditAsset.Amount, consumed)
	return nil
}

// stageLiquidationQueue submits a per-asset repayment slice to the
// Liquidation Queue for every collateral the position holds (spec §4.4
// Stage 2). LQ errors route the slice to the sell-wall leftovers bucket
// instead of failing the cascade outright.
func (e *Engine) stageLiquidationQueue(b *basket.Basket, p *positions.Position, prop *LiquidationPropagation) error {
	prop.State = StateLQInFlight
	if e.queue == nil || prop.UserRepayAmount.Sign() <= 0 {
		return nil
	}
	n := len(p.Collateral)
	if n == 0 {
		return nil
	}
	perAsset := new(big.Int).Quo(prop.UserRepayAmount, big.NewInt(int64(n)))
	if perAsset.Sign() <= 0 {
		perAsset = new(big.Int).Set(prop.UserRepayAmount)
	}

	for i := range p.Collateral {
		h := &p.Collateral[i]
		if h.Amount == nil || h.Amount.Sign() <= 0 {
			continue
		}
		spec := b.SpecForDenom(h.DenomID)
		if spec == nil {
			continue
		}
		sliceCollateral := new(big.Int).Set(h.Amount)
		result, err := e.queue.Liquidate(h.DenomID, sliceCollateral, spec.Denom, b.CreditPrice, e.price(spec.Denom))
		if err != nil {
			prop.LiqQueueLeftovers = new(big.Int).Add(prop.LiqQueueLeftovers, perAsset)
			prop.PerAssetRepayment = append(prop.PerAssetRepayment, AssetRepayment{DenomID: h.DenomID, RepayAmount: perAsset, Settled: true})
			continue
		}
		h.Amount = new(big.Int).Sub(h.Amount, result.CollateralAmount)
		p.CreditAmount = new(big.Int).Sub(p.CreditAmount, result.RepayAmount)
		prop.UserRepayAmount = new(big.Int).Sub(prop.UserRepayAmount, result.RepayAmount)
		b.CreditAsset.Amount = new(big.Int).Sub(b.CreditAsset.Amount, result.RepayAmount)
		if cap := b.CapForDenom(h.DenomID); cap != nil {
			cap.CurrentSupply = new(big.Int).Sub(cap.CurrentSupply, result.CollateralAmount)
			if cap.CurrentSupply.Sign() < 0 {
				cap.CurrentSupply = big.NewInt(0)
			}
		}
		prop.PerAssetRepayment = append(prop.PerAssetRepayment, AssetRepayment{
			DenomID:          h.DenomID,
			CollateralAmount: result.CollateralAmount,
			RepayAmount:      result.RepayAmount,
			Settled:          true,
		})
	}
	return nil
}

// stageStabilityPool sends the remaining credit repay amount to the
// basket-wide Stability Pool (spec §4.4 Stage 3).
func (e *Engine) stageStabilityPool(b *basket.Basket, p *positions.Position, prop *LiquidationPropagation) error {
	prop.State = StateSPInFlight
	remaining := new(big.Int).Add(prop.UserRepayAmount, prop.LiqQueueLeftovers)
	if remaining.Sign() <= 0 || e.sp == nil {
		prop.StabilityPool = remaining
		return nil
	}
	consumed, err := e.sp.Liquidate(remaining)
	if err != nil {
		prop.StabilityPool = remaining
		return nil
	}
	p.CreditAmount = new(big.Int).Sub(p.CreditAmount, consumed)
	b.CreditAsset.Amount = new(big.Int).Sub(b.CreditAsset.Amount, consumed)
	prop.StabilityPool = new(big.Int).Sub(remaining, consumed)
	if prop.StabilityPool.Sign() < 0 {
		prop.StabilityPool = big.NewInt(0)
	}
	prop.UserRepayAmount = big.NewInt(0)
	prop.LiqQueueLeftovers = big.NewInt(0)
	return nil
}

// stageSellWall routes any residue repayment amount through the external
// router as a last non-bad-debt resort (spec §4.4 Stage 4).
func (e *Engine) stageSellWall(b *basket.Basket, p *positions.Position, prop *LiquidationPropagation) error {
	prop.State = StateSellWallInFlight
	residue := prop.StabilityPool
	if residue == nil || residue.Sign() <= 0 || e.router == nil {
		return nil
	}
	var holding *positions.CollateralHolding
	var collateralDenom string
	for i := range p.Collateral {
		h := &p.Collateral[i]
		if h.Amount != nil && h.Amount.Sign() > 0 {
			spec := b.SpecForDenom(h.DenomID)
			if spec != nil {
				collateralDenom = spec.Denom
				holding = h
				break
			}
		}
	}
	if holding == nil {
		return nil
	}
	realized, err := e.router.Swap(collateralDenom, b.CreditAsset.Denom, holding.Amount, prop.PositionOwner)
	if err != nil || realized == nil || realized.Sign() <= 0 {
		return nil
	}
	holding.Amount = big.NewInt(0)
	burn := realized
	if burn.Cmp(p.CreditAmount) > 0 {
		burn = new(big.Int).Set(p.CreditAmount)
	}
	if e.minter != nil {
		if err := e.minter.BurnTokens(b.CreditAsset.Denom, burn, prop.PositionOwner); err != nil {
			return nil
		}
	}
	p.CreditAmount = new(big.Int).Sub(p.CreditAmount, burn)
	b.CreditAsset.Amount = new(big.Int).Sub(b.CreditAsset.Amount, burn)
	prop.StabilityPool = new(big.Int).Sub(prop.StabilityPool, burn)
	if prop.StabilityPool.Sign() < 0 {
		prop.StabilityPool = big.NewInt(0)
	}
	return nil
}

// stageBadDebtCheck escalates any still-unrecovered debt to the DebtAuction
// after first drawing down pending_revenue (spec §4.4 Stage 5).
func (e *Engine) stageBadDebtCheck(b *basket.Basket, p *positions.Position, prop *LiquidationPropagation) error {
	prop.State = StateBadDebtCheck
	if p.CreditAmount.Sign() <= 0 {
		return nil
	}
	collateralValue := decimal.Zero
	for _, h := range p.Collateral {
		spec := b.SpecForDenom(h.DenomID)
		if spec == nil || h.Amount == nil {
			continue
		}
		collateralValue = collateralValue.Add(decimal.NewFromBigInt(h.Amount, 0).Mul(e.price(spec.Denom)))
	}
	if collateralValue.GreaterThan(decimal.NewFromInt(1)) {
		return nil
	}

	remaining := new(big.Int).Set(p.CreditAmount)
	if b.PendingRevenue != nil && b.PendingRevenue.Sign() > 0 {
		drawn := b.PendingRevenue
		if drawn.Cmp(remaining) > 0 {
			drawn = new(big.Int).Set(remaining)
		}
		b.PendingRevenue = new(big.Int).Sub(b.PendingRevenue, drawn)
		remaining = new(big.Int).Sub(remaining, drawn)
		p.CreditAmount = new(big.Int).Sub(p.CreditAmount, drawn)
	}
	if remaining.Sign() <= 0 || e.auction == nil {
		return nil
	}
	if err := e.auction.StartAuction(remaining, p.ID, p.Owner); err != nil {
		return err
	}
	p.CreditAmount = new(big.Int).Sub(p.CreditAmount, remaining)
	return nil
}
