package positions

import (
	"math/big"
	"sort"

	"github.com/shopspring/decimal"

	"membranecore/crypto"
	nativecommon "membranecore/native/common"
	"membranecore/native/basket"
	"membranecore/native/rates"
	"membranecore/native/risk"
)

const moduleName = "positions"

// PriceOracle resolves a spot price for a collateral or credit denom (spec
// §6 "Collaborator interfaces consumed: Oracle"), the synchronous
// single-price counterpart to rates.Oracle's TWAP query.
type PriceOracle interface {
	Price(denom string) (decimal.Decimal, error)
}

// Minter mints and burns the credit asset and collateral transfers this
// engine never custodies directly (spec §6 "Collaborator interfaces
// consumed: Minter").
type Minter interface {
	MintTokens(denom string, amount *big.Int, to crypto.Address) error
	BurnTokens(denom string, amount *big.Int, from crypto.Address) error
	Transfer(denom string, amount *big.Int, to crypto.Address) error
}

// Cascade is invoked once a Position is confirmed insolvent against max LTV;
// native/cascade.Engine implements it, wired in by cmd/cdpd (spec §4.1
// "liquidate" — "Initiates LiquidationCascade").
type Cascade interface {
	Liquidate(positionID uint64, owner crypto.Address, availableFee *big.Int) error
}

// BadDebtEscalator forwards a Position's unrecoverable remaining debt once
// repay() detects the collateral-drained condition (spec §4.1 "repay" —
// "bad-debt callback scheduled").
type BadDebtEscalator interface {
	EscalateBadDebt(positionID uint64, owner crypto.Address, remainingDebt *big.Int) error
}

type engineState interface {
	GetBasket() (*basket.Basket, error)
	PutBasket(b *basket.Basket) error
	NextPositionID() (uint64, error)
	GetPosition(id uint64) (*Position, error)
	PutPosition(p *Position) error
	DeletePosition(owner crypto.Address, id uint64) error
	PositionsByOwner(owner crypto.Address) ([]*Position, error)
	GetVolatility(id basket.DenomID) (*rates.VolatilityHistory, error)
}

// Engine implements the Positions operation surface of spec §4.1.
type Engine struct {
	state        engineState
	oracle       PriceOracle
	minter       Minter
	cascade      Cascade
	badDebt      BadDebtEscalator
	pauses       nativecommon.PauseView
	debtMinimum  *big.Int
	redemptionFee decimal.Decimal
	now          int64
}

// NewEngine constructs an unwired Positions engine; call SetState and
// SetCollaborators before use.
func NewEngine(debtMinimum *big.Int, redemptionFee decimal.Decimal) *Engine {
	return &Engine{debtMinimum: debtMinimum, redemptionFee: redemptionFee}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetCollaborators wires the Oracle/Minter/Cascade/BadDebtEscalator
// collaborators.
func (e *Engine) SetCollaborators(oracle PriceOracle, minter Minter, cascade Cascade, badDebt BadDebtEscalator) {
	e.oracle = oracle
	e.minter = minter
	e.cascade = cascade
	e.badDebt = badDebt
}

// SetPauses wires the module-pause guard shared with every other native
// module (spec §7.1 carries the host's Guard idiom forward unchanged).
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetNow advances the engine's block-driven clock.
func (e *Engine) SetNow(now int64) { e.now = now }

func (e *Engine) requireState() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return nil
}

func (e *Engine) guard() error {
	return nativecommon.Guard(e.pauses, moduleName)
}

func (e *Engine) loadBasket() (*basket.Basket, error) {
	b, err := e.state.GetBasket()
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, errNilState
	}
	return b, nil
}

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

// poolSharePrice derives an LP collateral's price by decomposing into its
// underlying assets (spec §4.1 "LP collateral pricing").
func (e *Engine) poolSharePrice(spec *basket.CollateralSpec) decimal.Decimal {
	if spec.Pool == nil || spec.Pool.ShareAmount == nil || spec.Pool.ShareAmount.Sign() <= 0 {
		return decimal.Zero
	}
	total := decimal.Zero
	for i, underlying := range spec.Pool.UnderlyingDenoms {
		p := e.price(underlying)
		decimals := uint32(6)
		if i < len(spec.Pool.UnderlyingDecimals) {
			decimals = spec.Pool.UnderlyingDecimals[i]
		}
		normalized := p
		if decimals > 6 {
			normalized = p.Div(decimal.New(1, int32(decimals-6)))
		} else if decimals < 6 {
			normalized = p.Mul(decimal.New(1, int32(6-decimals)))
		}
		total = total.Add(normalized)
	}
	shareAmount := decimal.NewFromBigInt(spec.Pool.ShareAmount, 0)
	return total.Div(shareAmount)
}

func (e *Engine) priceForSpec(spec *basket.CollateralSpec) decimal.Decimal {
	if spec.IsLP() {
		return e.poolSharePrice(spec)
	}
	return e.price(spec.Denom)
}

// solvency bundles the figures spec §4.1's "Solvency check" algorithm
// produces for one Position.
type solvency struct {
	CurrentLTV    decimal.Decimal
	AvgBorrowLTV  decimal.Decimal
	AvgMaxLTV     decimal.Decimal
	CollateralValue decimal.Decimal
	AvailableFee  *big.Int
}

// evaluateSolvency implements spec §4.1 "Solvency check (algorithm level)".
func (e *Engine) evaluateSolvency(b *basket.Basket, p *Position) solvency {
	collateralValue := decimal.Zero
	borrowWeighted := decimal.Zero
	maxWeighted := decimal.Zero

	for _, holding := range p.Collateral {
		spec := b.SpecForDenom(holding.DenomID)
		if spec == nil || holding.Amount == nil || holding.Amount.Sign() <= 0 {
			continue
		}
		price := e.priceForSpec(spec)
		value := decimal.NewFromBigInt(holding.Amount, 0).Mul(price)
		collateralValue = collateralValue.Add(value)
		borrowWeighted = borrowWeighted.Add(value.Mul(spec.MaxBorrowLTV))
		maxWeighted = maxWeighted.Add(value.Mul(spec.MaxLTV))
	}

	creditValue := decimal.NewFromBigInt(p.CreditAmount, 0).Mul(b.CreditPrice)

	if collateralValue.Sign() <= 0 {
		if p.CreditAmount != nil && p.CreditAmount.Sign() > 0 {
			return solvency{CurrentLTV: decimal.NewFromInt(1), AvailableFee: big.NewInt(0)}
		}
		return solvency{}
	}

	currentLTV := creditValue.Div(collateralValue)
	avgBorrowLTV := borrowWeighted.Div(collateralValue)
	avgMaxLTV := maxWeighted.Div(collateralValue)

	availableFee := big.NewInt(0)
	if currentLTV.GreaterThan(avgMaxLTV) && currentLTV.Sign() > 0 {
		fee := creditValue.Mul(currentLTV.Sub(avgMaxLTV)).Mul(currentLTV.Sub(avgBorrowLTV)).Div(currentLTV)
		availableFee = fee.BigInt()
	}

	return solvency{
		CurrentLTV:      currentLTV,
		AvgBorrowLTV:    avgBorrowLTV,
		AvgMaxLTV:       avgMaxLTV,
		CollateralValue: collateralValue,
		AvailableFee:    availableFee,
	}
}

// Deposit implements spec §4.1's `deposit` operation.
func (e *Engine) Deposit(owner crypto.Address, positionID uint64, assets []AssetDeposit, riskEngine *risk.Engine) (*Position, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	if err := e.guard(); err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		return nil, errNoAssets
	}
	b, err := e.loadBasket()
	if err != nil {
		return nil, err
	}
	if b.Frozen {
		return nil, errBasketFrozen
	}

	var p *Position
	if positionID != 0 {
		p, err = e.state.GetPosition(positionID)
		if err != nil {
			return nil, err
		}
	}
	if p == nil {
		id, err := e.state.NextPositionID()
		if err != nil {
			return nil, err
		}
		p = &Position{ID: id, Owner: owner, CreditAmount: big.NewInt(0)}
	}

	seen := make(map[basket.DenomID]bool)
	for _, asset := range assets {
		if asset.Amount == nil || asset.Amount.Sign() <= 0 {
			return nil, errInvalidAmount
		}
		denomID, ok := b.Denoms.Lookup(asset.Denom)
		if !ok || b.SpecForDenom(denomID) == nil {
			return nil, errUnknownDenom
		}
		if seen[denomID] {
			return nil, errDuplicateDenom
		}
		seen[denomID] = true

		if riskEngine != nil {
			history, err := e.state.GetVolatility(denomID)
			if err != nil {
				return nil, err
			}
			if err := riskEngine.CheckSupplyCapWithVolatility(b, denomID, asset.Amount, history); err != nil {
				return nil, err
			}
		}

		holding := p.HoldingFor(denomID)
		holding.Amount = new(big.Int).Add(holding.Amount, asset.Amount)
		holding.RateIndexSnapshot = b.SpecForDenom(denomID).RateIndex

		cap := b.CapForDenom(denomID)
		if cap != nil {
			cap.CurrentSupply = new(big.Int).Add(cap.CurrentSupply, asset.Amount)
		}
	}

	if err := e.state.PutPosition(p); err != nil {
		return nil, err
	}
	return p, e.state.PutBasket(b)
}

// Withdraw implements spec §4.1's `withdraw` operation.
func (e *Engine) Withdraw(caller crypto.Address, positionID uint64, assets []AssetDeposit, sendTo crypto.Address) (*Position, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	if err := e.guard(); err != nil {
		return nil, err
	}
	b, err := e.loadBasket()
	if err != nil {
		return nil, err
	}
	if b.Frozen {
		return nil, errBasketFrozen
	}
	p, err := e.state.GetPosition(positionID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errPositionNotFound
	}
	if !p.Owner.Equal(caller) {
		return nil, errNotOwner
	}

	seen := make(map[basket.DenomID]bool)
	for _, asset := range assets {
		denomID, ok := b.Denoms.Lookup(asset.Denom)
		if !ok {
			return nil, errUnknownDenom
		}
		if seen[denomID] {
			return nil, errDuplicateDenom
		}
		seen[denomID] = true

		holding := p.HoldingFor(denomID)
		if holding.Amount.Cmp(asset.Amount) < 0 {
			return nil, errInsufficientHeld
		}
		holding.Amount = new(big.Int).Sub(holding.Amount, asset.Amount)

		cap := b.CapForDenom(denomID)
		if cap != nil {
			cap.CurrentSupply = new(big.Int).Sub(cap.CurrentSupply, asset.Amount)
			if cap.CurrentSupply.Sign() < 0 {
				cap.CurrentSupply = big.NewInt(0)
			}
		}
	}

	s := e.evaluateSolvency(b, p)
	if p.CreditAmount.Sign() > 0 && s.CurrentLTV.GreaterThan(s.AvgBorrowLTV) {
		return nil, errWouldBeInsolvent
	}

	if e.minter != nil {
		recipient := sendTo
		if recipient.Equal(crypto.Address{}) {
			recipient = caller
		}
		for _, asset := range assets {
			if err := e.minter.Transfer(asset.Denom, asset.Amount, recipient); err != nil {
				return nil, err
			}
		}
	}

	if err := e.persistOrDelete(p); err != nil {
		return nil, err
	}
	return p, e.state.PutBasket(b)
}

func (e *Engine) persistOrDelete(p *Position) error {
	if p.IsEmpty() {
		return e.state.DeletePosition(p.Owner, p.ID)
	}
	return e.state.PutPosition(p)
}

// IncreaseDebt implements spec §4.1's `increase_debt` operation.
func (e *Engine) IncreaseDebt(caller crypto.Address, positionID uint64, amount *big.Int, targetLTV *decimal.Decimal, mintTo crypto.Address, riskEngine *risk.Engine, assetDebtCap *big.Int) (*Position, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	if err := e.guard(); err != nil {
		return nil, err
	}
	if amount == nil && targetLTV == nil {
		return nil, errNoAmountOrLTV
	}
	b, err := e.loadBasket()
	if err != nil {
		return nil, err
	}
	if b.Frozen {
		return nil, errBasketFrozen
	}
	p, err := e.state.GetPosition(positionID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errPositionNotFound
	}
	if !p.Owner.Equal(caller) {
		return nil, errNotOwner
	}

	var mintAmount *big.Int
	if amount != nil {
		if amount.Sign() <= 0 {
			return nil, errInvalidAmount
		}
		mintAmount = new(big.Int).Set(amount)
	} else {
		s := e.evaluateSolvency(b, p)
		if s.CollateralValue.Sign() <= 0 {
			return nil, errInvalidAmount
		}
		currentValue := decimal.NewFromBigInt(p.CreditAmount, 0).Mul(b.CreditPrice)
		targetValue := s.CollateralValue.Mul(*targetLTV)
		delta := targetValue.Sub(currentValue)
		if delta.Sign() <= 0 {
			return nil, errInvalidAmount
		}
		mintAmount = delta.Div(b.CreditPrice).BigInt()
	}

	projectedDebt := new(big.Int).Add(p.CreditAmount, mintAmount)
	if e.debtMinimum != nil && projectedDebt.Sign() > 0 && projectedDebt.Cmp(e.debtMinimum) < 0 {
		return nil, errBelowDebtMinimum
	}
	if assetDebtCap != nil {
		projectedTotal := new(big.Int).Add(totalDebtFor(b, p), mintAmount)
		if projectedTotal.Cmp(assetDebtCap) > 0 {
			return nil, errOverDebtCap
		}
	}

	p.CreditAmount = projectedDebt
	s := e.evaluateSolvency(b, p)
	if s.CurrentLTV.GreaterThan(s.AvgBorrowLTV) {
		return nil, errWouldBeInsolvent
	}

	for _, h := range p.Collateral {
		if cap := b.CapForDenom(h.DenomID); cap != nil {
			cap.DebtTotal = new(big.Int).Add(cap.DebtTotal, bigDivShare(mintAmount, p))
		}
	}
	b.CreditAsset.Amount = new(big.Int).Add(b.CreditAsset.Amount, mintAmount)

	if e.minter != nil {
		to := mintTo
		if to.Equal(crypto.Address{}) {
			to = caller
		}
		if err := e.minter.MintTokens(b.CreditAsset.Denom, mintAmount, to); err != nil {
			return nil, err
		}
	}

	if err := e.state.PutPosition(p); err != nil {
		return nil, err
	}
	return p, e.state.PutBasket(b)
}

// bigDivShare splits amount evenly across a position's collateral holdings,
// used to allocate new debt across each backing collateral's DebtTotal
// bucket. An equal split is the conservative approximation the Positions
// contract falls back to when the caller does not name which collateral
// share should absorb the new debt.
func bigDivShare(amount *big.Int, p *Position) *big.Int {
	n := len(p.Collateral)
	if n == 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Quo(amount, big.NewInt(int64(n)))
}

func totalDebtFor(b *basket.Basket, p *Position) *big.Int {
	return p.CreditAmount
}

// Repay implements spec §4.1's `repay` operation.
func (e *Engine) Repay(caller crypto.Address, positionID uint64, creditDenom string, creditIn *big.Int, sendExcessTo crypto.Address) (*big.Int, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	if err := e.guard(); err != nil {
		return nil, err
	}
	b, err := e.loadBasket()
	if err != nil {
		return nil, err
	}
	if creditDenom != b.CreditAsset.Denom {
		return nil, errWrongDenom
	}
	p, err := e.state.GetPosition(positionID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errPositionNotFound
	}

	applied := creditIn
	excess := big.NewInt(0)
	if applied.Cmp(p.CreditAmount) > 0 {
		excess = new(big.Int).Sub(applied, p.CreditAmount)
		applied = new(big.Int).Set(p.CreditAmount)
	}

	p.CreditAmount = new(big.Int).Sub(p.CreditAmount, applied)
	b.CreditAsset.Amount = new(big.Int).Sub(b.CreditAsset.Amount, applied)
	if b.CreditAsset.Amount.Sign() < 0 {
		b.CreditAsset.Amount = big.NewInt(0)
	}

	if e.minter != nil {
		if err := e.minter.BurnTokens(creditDenom, applied, caller); err != nil {
			return nil, err
		}
		if excess.Sign() > 0 {
			recipient := sendExcessTo
			if recipient.Equal(crypto.Address{}) {
				recipient = caller
			}
			if err := e.minter.Transfer(creditDenom, excess, recipient); err != nil {
				return nil, err
			}
		}
	}

	s := e.evaluateSolvency(b, p)
	if s.CollateralValue.LessThanOrEqual(decimal.NewFromInt(1)) && p.CreditAmount.Sign() > 0 {
		if e.badDebt != nil {
			if err := e.badDebt.EscalateBadDebt(p.ID, p.Owner, p.CreditAmount); err != nil {
				return nil, err
			}
		}
	}

	if err := e.persistOrDelete(p); err != nil {
		return nil, err
	}
	return excess, e.state.PutBasket(b)
}

// Accrue implements spec §4.1's `accrue` operation: advances each named
// Position's per-collateral debt by the ratio its backing rate indices have
// moved since the Position's rate_index_snapshot.
func (e *Engine) Accrue(ids []uint64) error {
	if err := e.requireState(); err != nil {
		return err
	}
	b, err := e.loadBasket()
	if err != nil {
		return err
	}
	for _, id := range ids {
		p, err := e.state.GetPosition(id)
		if err != nil {
			return err
		}
		if p == nil {
			continue
		}
		growth := decimal.Zero
		totalValue := decimal.Zero
		for i := range p.Collateral {
			h := &p.Collateral[i]
			spec := b.SpecForDenom(h.DenomID)
			if spec == nil || h.RateIndexSnapshot.Sign() <= 0 {
				continue
			}
			weight := decimal.NewFromBigInt(h.Amount, 0)
			ratio := spec.RateIndex.Div(h.RateIndexSnapshot)
			growth = growth.Add(ratio.Mul(weight))
			totalValue = totalValue.Add(weight)
			h.RateIndexSnapshot = spec.RateIndex
		}
		if totalValue.Sign() > 0 && p.CreditAmount.Sign() > 0 {
			meanGrowth := growth.Div(totalValue)
			newDebt := decimal.NewFromBigInt(p.CreditAmount, 0).Mul(meanGrowth)
			p.CreditAmount = newDebt.BigInt()
		}
		if err := e.state.PutPosition(p); err != nil {
			return err
		}
	}
	return e.state.PutBasket(b)
}

// redemptionCandidate pairs a Position with its eligible holdings for one
// redeem() walk.
type redemptionCandidate struct {
	position *Position
	premium  uint32
}

// Redeem implements spec §4.1's `redeem` operation.
func (e *Engine) Redeem(caller crypto.Address, maxPremium uint32, creditAmount *big.Int, allOwners []crypto.Address) (*big.Int, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	if err := e.guard(); err != nil {
		return nil, err
	}
	b, err := e.loadBasket()
	if err != nil {
		return nil, err
	}

	var candidates []redemptionCandidate
	for _, owner := range allOwners {
		positions, err := e.state.PositionsByOwner(owner)
		if err != nil {
			return nil, err
		}
		for _, p := range positions {
			if p.Redeemable && p.Premium <= maxPremium {
				candidates = append(candidates, redemptionCandidate{position: p, premium: p.Premium})
			}
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].premium < candidates[j].premium })

	remaining := new(big.Int).Set(creditAmount)
	for _, c := range candidates {
		if remaining.Sign() <= 0 {
			break
		}
		p := c.position
		maxRepay := p.CreditAmount
		if p.MaxLoanRepayment.Sign() > 0 {
			capValue := decimal.NewFromBigInt(p.CreditAmount, 0).Mul(p.MaxLoanRepayment)
			maxRepay = capValue.BigInt()
		}
		slice := new(big.Int).Set(remaining)
		if slice.Cmp(maxRepay) > 0 {
			slice = new(big.Int).Set(maxRepay)
		}
		if slice.Sign() <= 0 {
			continue
		}

		discount := decimal.NewFromInt32(int32(c.premium)).Div(decimal.NewFromInt(100))
		effectivePrice := b.CreditPrice.Mul(decimal.NewFromInt(1).Sub(discount))
		if effectivePrice.Sign() <= 0 {
			continue
		}
		collateralValue := decimal.NewFromBigInt(slice, 0).Mul(effectivePrice)
		fee := collateralValue.Mul(e.redemptionFee)
		net := collateralValue.Sub(fee)

		if err := e.payOutRedemption(b, p, net, caller); err != nil {
			return nil, err
		}

		p.CreditAmount = new(big.Int).Sub(p.CreditAmount, slice)
		b.CreditAsset.Amount = new(big.Int).Sub(b.CreditAsset.Amount, slice)
		remaining = new(big.Int).Sub(remaining, slice)

		if e.minter != nil {
			if err := e.minter.BurnTokens(b.CreditAsset.Denom, slice, caller); err != nil {
				return nil, err
			}
		}
		if err := e.persistOrDelete(p); err != nil {
			return nil, err
		}
	}

	if err := e.state.PutBasket(b); err != nil {
		return nil, err
	}
	return remaining, nil
}

// payOutRedemption sends netValue of non-restricted collateral to caller,
// proportional to the Position's holdings (spec §4.1 "redeem" — "respects
// restricted_collateral_assets").
func (e *Engine) payOutRedemption(b *basket.Basket, p *Position, netValue decimal.Decimal, caller crypto.Address) error {
	eligibleValue := decimal.Zero
	for _, h := range p.Collateral {
		if p.Restricted(h.DenomID) || h.Amount.Sign() <= 0 {
			continue
		}
		spec := b.SpecForDenom(h.DenomID)
		if spec == nil {
			continue
		}
		eligibleValue = eligibleValue.Add(decimal.NewFromBigInt(h.Amount, 0).Mul(e.priceForSpec(spec)))
	}
	if eligibleValue.Sign() <= 0 {
		return nil
	}
	for i := range p.Collateral {
		h := &p.Collateral[i]
		if p.Restricted(h.DenomID) || h.Amount.Sign() <= 0 {
			continue
		}
		spec := b.SpecForDenom(h.DenomID)
		if spec == nil {
			continue
		}
		value := decimal.NewFromBigInt(h.Amount, 0).Mul(e.priceForSpec(spec))
		share := value.Div(eligibleValue).Mul(netValue)
		price := e.priceForSpec(spec)
		if price.Sign() <= 0 {
			continue
		}
		amount := share.Div(price).BigInt()
		if amount.Sign() <= 0 {
			continue
		}
		if amount.Cmp(h.Amount) > 0 {
			amount = new(big.Int).Set(h.Amount)
		}
		h.Amount = new(big.Int).Sub(h.Amount, amount)
		if cap := b.CapForDenom(h.DenomID); cap != nil {
			cap.CurrentSupply = new(big.Int).Sub(cap.CurrentSupply, amount)
			if cap.CurrentSupply.Sign() < 0 {
				cap.CurrentSupply = big.NewInt(0)
			}
		}
		if e.minter != nil {
			if err := e.minter.Transfer(spec.Denom, amount, caller); err != nil {
				return err
			}
		}
	}
	return nil
}

// Liquidate implements spec §4.1's `liquidate` operation: confirms the
// Position is insolvent against max LTV, then hands off to the Cascade
// collaborator (native/cascade.Engine).
func (e *Engine) Liquidate(positionID uint64, owner crypto.Address) error {
	if err := e.requireState(); err != nil {
		return err
	}
	b, err := e.loadBasket()
	if err != nil {
		return err
	}
	p, err := e.state.GetPosition(positionID)
	if err != nil {
		return err
	}
	if p == nil {
		return errPositionNotFound
	}
	s := e.evaluateSolvency(b, p)
	if s.CurrentLTV.LessThanOrEqual(s.AvgMaxLTV) {
		return errPositionSolvent
	}
	if e.cascade == nil {
		return errNilState
	}
	return e.cascade.Liquidate(positionID, owner, s.AvailableFee)
}
