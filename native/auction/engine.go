package auction

import (
	"math/big"

	"github.com/shopspring/decimal"

	"membranecore/crypto"
)

const moduleName = "auction"

// Minter is the narrow collaborator interface this package consumes instead
// of importing a concrete minting module (spec §6 "Collaborator interfaces
// consumed"); cmd/cdpd wires a concrete implementation at startup.
type Minter interface {
	MintTokens(denom string, amount *big.Int, to crypto.Address) error
	BurnTokens(denom string, amount *big.Int, from crypto.Address) error
}

// PositionsRepayer lets SwapForMBRN drive a repayment against an open
// Position without this package importing native/positions directly (spec
// §4.6 "creating Repay calls to Positions").
type PositionsRepayer interface {
	RepayFromAuction(positionID uint64, amount *big.Int) (*big.Int, error)
}

// Transferer moves settled proceeds to a direct-transfer recipient (spec
// §4.6 "direct transfers").
type Transferer interface {
	Transfer(denom string, amount *big.Int, to crypto.Address) error
}

type engineState interface {
	GetDebtAuction() (*DebtAuction, error)
	PutDebtAuction(a *DebtAuction) error
	DeleteDebtAuction() error
	GetFeeAuction(denom string) (*FeeAuction, error)
	PutFeeAuction(a *FeeAuction) error
	DeleteFeeAuction(denom string) error
}

// Engine implements DebtAuction and FeeAuction per spec §4.6.
type Engine struct {
	state    engineState
	minter   Minter
	repayer  PositionsRepayer
	transfer Transferer
	cfg      Config
	now      int64
}

// NewEngine constructs an unwired auction engine; call SetState and
// SetCollaborators before use.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetCollaborators wires the Minter/PositionsRepayer/Transferer used to
// settle auction proceeds.
func (e *Engine) SetCollaborators(minter Minter, repayer PositionsRepayer, transfer Transferer) {
	e.minter = minter
	e.repayer = repayer
	e.transfer = transfer
}

// SetNow advances the engine's block-driven clock.
func (e *Engine) SetNow(now int64) { e.now = now }

func (e *Engine) requireState() error {
	if e.state == nil {
		return errNilState
	}
	return nil
}

// StartAuction creates a new DebtAuction or extends the currently active one
// at its original start_time (spec §3 "DebtAuction" lifecycle).
func (e *Engine) StartAuction(amount *big.Int, repayments []RepaymentPosition, sendTo []SendTo) error {
	if err := e.requireState(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return errNothingToRecapitalize
	}
	existing, err := e.state.GetDebtAuction()
	if err != nil {
		return err
	}
	if existing == nil {
		existing = &DebtAuction{
			RemainingRecapitalization: big.NewInt(0),
			AuctionStartTime:          e.now,
		}
	}
	existing.RemainingRecapitalization = new(big.Int).Add(existing.RemainingRecapitalization, amount)
	existing.RepaymentPositions = append(existing.RepaymentPositions, repayments...)
	existing.SendTo = append(existing.SendTo, sendTo...)
	return e.state.PutDebtAuction(existing)
}

// SwapForMBRN lets a buyer send creditAmount of the credit denom in exchange
// for newly minted governance tokens, applying proceeds to repayment
// positions then send_to recipients in order (spec §4.6 "SwapForMBRN").
func (e *Engine) SwapForMBRN(buyer crypto.Address, creditDenom, mbrnDenom string, creditAmount *big.Int, mbrnPrice decimal.Decimal) (*big.Int, *big.Int, error) {
	if err := e.requireState(); err != nil {
		return nil, nil, err
	}
	if creditAmount == nil || creditAmount.Sign() <= 0 {
		return nil, nil, errInvalidAmount
	}
	a, err := e.state.GetDebtAuction()
	if err != nil {
		return nil, nil, err
	}
	if a == nil || a.RemainingRecapitalization.Sign() <= 0 {
		return nil, nil, errNoDebtAuction
	}

	applied := creditAmount
	if applied.Cmp(a.RemainingRecapitalization) > 0 {
		applied = new(big.Int).Set(a.RemainingRecapitalization)
	}
	overpayment := new(big.Int).Sub(creditAmount, applied)

	discount := Discount(e.cfg, a.AuctionStartTime, e.now)
	ratio := SwapRatio(discount)
	effectivePrice := mbrnPrice.Mul(ratio)
	if effectivePrice.Sign() <= 0 {
		effectivePrice = decimal.New(1, 0)
	}
	creditValue := decimal.NewFromBigInt(applied, 0)
	mintAmount := creditValue.Div(effectivePrice).BigInt()

	if e.minter != nil {
		if err := e.minter.MintTokens(mbrnDenom, mintAmount, buyer); err != nil {
			return nil, nil, err
		}
		if err := e.minter.BurnTokens(creditDenom, applied, buyer); err != nil {
			return nil, nil, err
		}
	}

	remaining := new(big.Int).Set(applied)
	remaining, err = e.settleRepayments(a, remaining)
	if err != nil {
		return nil, nil, err
	}
	if _, err := e.settleSendTo(a, remaining); err != nil {
		return nil, nil, err
	}

	a.RemainingRecapitalization = new(big.Int).Sub(a.RemainingRecapitalization, applied)
	if a.RemainingRecapitalization.Sign() <= 0 {
		if err := e.state.DeleteDebtAuction(); err != nil {
			return nil, nil, err
		}
	} else {
		if err := e.state.PutDebtAuction(a); err != nil {
			return nil, nil, err
		}
	}

	return mintAmount, overpayment, nil
}

func (e *Engine) settleRepayments(a *DebtAuction, remaining *big.Int) (*big.Int, error) {
	var kept []RepaymentPosition
	for _, rp := range a.RepaymentPositions {
		if remaining.Sign() <= 0 {
			kept = append(kept, rp)
			continue
		}
		slice := rp.Amount
		if slice.Cmp(remaining) > 0 {
			slice = new(big.Int).Set(remaining)
		}
		if e.repayer != nil && slice.Sign() > 0 {
			applied, err := e.repayer.RepayFromAuction(rp.PositionID, slice)
			if err != nil {
				return remaining, err
			}
			slice = applied
		}
		remaining = new(big.Int).Sub(remaining, slice)
		leftover := new(big.Int).Sub(rp.Amount, slice)
		if leftover.Sign() > 0 {
			kept = append(kept, RepaymentPosition{PositionID: rp.PositionID, Amount: leftover})
		}
	}
	a.RepaymentPositions = kept
	return remaining, nil
}

func (e *Engine) settleSendTo(a *DebtAuction, remaining *big.Int) (*big.Int, error) {
	var kept []SendTo
	for _, st := range a.SendTo {
		if remaining.Sign() <= 0 {
			kept = append(kept, st)
			continue
		}
		slice := st.Amount
		if slice.Cmp(remaining) > 0 {
			slice = new(big.Int).Set(remaining)
		}
		if e.transfer != nil && slice.Sign() > 0 {
			if err := e.transfer.Transfer("credit", slice, st.Address); err != nil {
				return remaining, err
			}
		}
		remaining = new(big.Int).Sub(remaining, slice)
		leftover := new(big.Int).Sub(st.Amount, slice)
		if leftover.Sign() > 0 {
			kept = append(kept, SendTo{Address: st.Address, Amount: leftover})
		}
	}
	a.SendTo = kept
	return remaining, nil
}

// RemoveAuction force-clears the debt auction, used by administrative
// UpdateConfig-style operations (spec §6 "RemoveAuction").
func (e *Engine) RemoveAuction() error {
	if err := e.requireState(); err != nil {
		return err
	}
	return e.state.DeleteDebtAuction()
}

// StartFeeAuction opens (or tops up) the FeeAuction for denom.
func (e *Engine) StartFeeAuction(denom string, amount *big.Int, desiredAsset string) error {
	if err := e.requireState(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	fa, err := e.state.GetFeeAuction(denom)
	if err != nil {
		return err
	}
	if fa == nil {
		fa = &FeeAuction{Denom: denom, Remaining: big.NewInt(0), DesiredAsset: desiredAsset, AuctionStartTime: e.now}
	}
	fa.Remaining = new(big.Int).Add(fa.Remaining, amount)
	return e.state.PutFeeAuction(fa)
}

// SwapForFee lets a buyer send desiredAsset in exchange for discounted fee
// denom proceeds, routed to stakers or governance per send_to_stakers (spec
// §4.6 "FeeAuction").
func (e *Engine) SwapForFee(buyer crypto.Address, denom string, desiredAmount *big.Int, feePrice decimal.Decimal, stakerSink, governanceSink crypto.Address) (*big.Int, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	fa, err := e.state.GetFeeAuction(denom)
	if err != nil {
		return nil, err
	}
	if fa == nil || fa.Remaining.Sign() <= 0 {
		return nil, errNoFeeAuction
	}

	discount := Discount(e.cfg, fa.AuctionStartTime, e.now)
	ratio := SwapRatio(discount)
	effectivePrice := feePrice.Mul(ratio)
	if effectivePrice.Sign() <= 0 {
		effectivePrice = decimal.New(1, 0)
	}
	feeAmount := decimal.NewFromBigInt(desiredAmount, 0).Div(effectivePrice).BigInt()
	if feeAmount.Cmp(fa.Remaining) > 0 {
		feeAmount = new(big.Int).Set(fa.Remaining)
	}

	if e.transfer != nil {
		sink := governanceSink
		if e.cfg.SendToStakers {
			sink = stakerSink
		}
		if err := e.transfer.Transfer(desiredAsset(fa), desiredAmount, sink); err != nil {
			return nil, err
		}
		if err := e.transfer.Transfer(denom, feeAmount, buyer); err != nil {
			return nil, err
		}
	}

	fa.Remaining = new(big.Int).Sub(fa.Remaining, feeAmount)
	if fa.Remaining.Sign() <= 0 {
		return feeAmount, e.state.DeleteFeeAuction(denom)
	}
	return feeAmount, e.state.PutFeeAuction(fa)
}

func desiredAsset(fa *FeeAuction) string {
	return fa.DesiredAsset
}
