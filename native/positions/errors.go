package positions

import "errors"

var (
	errNilState          = errors.New("positions: state not configured")
	errInvalidAmount     = errors.New("positions: amount must be positive")
	errNoAssets          = errors.New("positions: assets list must be non-empty")
	errUnknownDenom      = errors.New("positions: denom not accepted by basket")
	errBasketFrozen      = errors.New("positions: basket is frozen")
	errPositionNotFound  = errors.New("positions: position not found")
	errNotOwner          = errors.New("positions: caller does not own this position")
	errInsufficientHeld  = errors.New("positions: withdrawal exceeds held collateral")
	errWouldBeInsolvent  = errors.New("positions: operation would leave position insolvent")
	errBelowDebtMinimum  = errors.New("positions: resulting debt below debt_minimum")
	errOverDebtCap       = errors.New("positions: debt exceeds asset debt cap")
	errWrongDenom        = errors.New("positions: repayment denom does not match credit asset")
	errNoAmountOrLTV     = errors.New("positions: must specify amount or target_LTV")
	errPositionSolvent   = errors.New("positions: position is solvent against max LTV")
	errDuplicateDenom    = errors.New("positions: duplicate denom in assets list")
	errPremiumOutOfRange = errors.New("positions: premium out of range")
)
