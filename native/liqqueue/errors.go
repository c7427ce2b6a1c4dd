package liqqueue

import "errors"

var (
	errNilState            = errors.New("liqqueue: state not configured")
	errInvalidAmount       = errors.New("liqqueue: amount must be positive")
	errBelowMinimumBid     = errors.New("liqqueue: bid below minimum_bid")
	errSlotNotFound        = errors.New("liqqueue: premium slot not configured")
	errBidNotFound         = errors.New("liqqueue: bid not found")
	errNotBidOwner         = errors.New("liqqueue: caller does not own this bid")
	errRetractBelowMinimum = errors.New("liqqueue: partial retract would leave residue below minimum_bid")
	errTooManyWaitingBids  = errors.New("liqqueue: slot has reached maximum_waiting_bids")
	errInsufficientBids    = errors.New("liqqueue: insufficient active bids to cover requested collateral")
)

// ErrInsufficientBids is the exported form of the error Liquidate returns
// when no active bid covers any of the requested collateral. native/cascade
// does not test for it by name: any Liquidate error sends that asset's
// repayment slice on to the Stability Pool stage.
var ErrInsufficientBids = errInsufficientBids
