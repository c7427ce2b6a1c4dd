package modules

import (
	"math/big"

	"membranecore/native/auction"
	"membranecore/native/basket"
	"membranecore/native/liqqueue"
	"membranecore/native/positions"
)

// The view types below are the JSON-facing counterparts of the native/*
// domain structs: they flatten DenomID back to its canonical string (via the
// Basket's Interner) and render *big.Int/decimal.Decimal as strings so the
// query API never leaks internal numeric representations to clients.

type CollateralSpecView struct {
	Denom        string `json:"denom"`
	MaxBorrowLTV string `json:"max_borrow_ltv"`
	MaxLTV       string `json:"max_ltv"`
	RateIndex    string `json:"rate_index"`
	IsLP         bool   `json:"is_lp"`
	RateHike     bool   `json:"rate_hike"`
}

type SupplyCapView struct {
	Denom          string `json:"denom"`
	CurrentSupply  string `json:"current_supply"`
	DebtTotal      string `json:"debt_total"`
	SupplyCapRatio string `json:"supply_cap_ratio"`
}

type BasketView struct {
	CreditDenom          string               `json:"credit_denom"`
	CreditAmount         string               `json:"credit_amount"`
	CreditPrice          string               `json:"credit_price"`
	Frozen               bool                 `json:"frozen"`
	PendingRevenue       string               `json:"pending_revenue"`
	CollateralTypes      []CollateralSpecView `json:"collateral_types"`
	CollateralSupplyCaps []SupplyCapView      `json:"collateral_supply_caps"`
}

func newBasketView(b *basket.Basket) *BasketView {
	if b == nil {
		return nil
	}
	v := &BasketView{
		CreditDenom:    b.CreditAsset.Denom,
		CreditAmount:   bigString(b.CreditAsset.Amount),
		CreditPrice:    b.CreditPrice.String(),
		Frozen:         b.Frozen,
		PendingRevenue: bigString(b.PendingRevenue),
	}
	for _, c := range b.CollateralTypes {
		v.CollateralTypes = append(v.CollateralTypes, CollateralSpecView{
			Denom:        c.Denom,
			MaxBorrowLTV: c.MaxBorrowLTV.String(),
			MaxLTV:       c.MaxLTV.String(),
			RateIndex:    c.RateIndex.String(),
			IsLP:         c.IsLP(),
			RateHike:     c.RateHike,
		})
	}
	for _, cap := range b.CollateralSupplyCaps {
		v.CollateralSupplyCaps = append(v.CollateralSupplyCaps, SupplyCapView{
			Denom:          b.Denoms.String(cap.DenomID),
			CurrentSupply:  bigString(cap.CurrentSupply),
			DebtTotal:      bigString(cap.DebtTotal),
			SupplyCapRatio: cap.SupplyCapRatio.String(),
		})
	}
	return v
}

type CollateralHoldingView struct {
	Denom             string `json:"denom"`
	Amount            string `json:"amount"`
	RateIndexSnapshot string `json:"rate_index_snapshot"`
}

type PositionView struct {
	ID               uint64                  `json:"id"`
	Owner            string                  `json:"owner"`
	Collateral       []CollateralHoldingView `json:"collateral"`
	CreditAmount     string                  `json:"credit_amount"`
	Redeemable       bool                    `json:"redeemable"`
	Premium          uint32                  `json:"premium"`
	MaxLoanRepayment string                  `json:"max_loan_repayment"`
}

func newPositionView(b *basket.Basket, p *positions.Position) *PositionView {
	if p == nil {
		return nil
	}
	v := &PositionView{
		ID:               p.ID,
		Owner:            p.Owner.String(),
		CreditAmount:     bigString(p.CreditAmount),
		Redeemable:       p.Redeemable,
		Premium:          p.Premium,
		MaxLoanRepayment: p.MaxLoanRepayment.String(),
	}
	for _, h := range p.Collateral {
		denom := ""
		if b != nil && b.Denoms != nil {
			denom = b.Denoms.String(h.DenomID)
		}
		v.Collateral = append(v.Collateral, CollateralHoldingView{
			Denom:             denom,
			Amount:            bigString(h.Amount),
			RateIndexSnapshot: h.RateIndexSnapshot.String(),
		})
	}
	return v
}

type BidView struct {
	ID              uint64 `json:"id"`
	Owner           string `json:"owner"`
	Amount          string `json:"amount"`
	LiqPremium      uint32 `json:"liq_premium"`
	WaitEnd         int64  `json:"wait_end"`
	ProductSnapshot string `json:"product_snapshot"`
	SumSnapshot     string `json:"sum_snapshot"`
}

func newBidView(b *liqqueue.Bid) *BidView {
	if b == nil {
		return nil
	}
	return &BidView{
		ID:              b.ID,
		Owner:           b.Owner.String(),
		Amount:          bigString(b.Amount),
		LiqPremium:      b.LiqPremium,
		WaitEnd:         b.WaitEnd,
		ProductSnapshot: b.ProductSnapshot.String(),
		SumSnapshot:     b.SumSnapshot.String(),
	}
}

type PremiumSlotView struct {
	Denom          string    `json:"denom"`
	Premium        uint32    `json:"premium"`
	TotalBidAmount string    `json:"total_bid_amount"`
	WaitingBids    int       `json:"waiting_bids"`
	ActiveBids     []BidView `json:"active_bids"`
}

func newPremiumSlotView(denom string, slot *liqqueue.PremiumSlot) *PremiumSlotView {
	if slot == nil {
		return nil
	}
	v := &PremiumSlotView{
		Denom:          denom,
		Premium:        slot.Premium,
		TotalBidAmount: bigString(slot.TotalBidAmount),
		WaitingBids:    len(slot.WaitingBids),
	}
	for _, b := range slot.Bids {
		v.ActiveBids = append(v.ActiveBids, *newBidView(b))
	}
	return v
}

type DebtAuctionView struct {
	RemainingRecapitalization string `json:"remaining_recapitalization"`
	AuctionStartTime          int64  `json:"auction_start_time"`
}

func newDebtAuctionView(a *auction.DebtAuction) *DebtAuctionView {
	if a == nil {
		return nil
	}
	return &DebtAuctionView{
		RemainingRecapitalization: bigString(a.RemainingRecapitalization),
		AuctionStartTime:          a.AuctionStartTime,
	}
}

type FeeAuctionView struct {
	Denom            string `json:"denom"`
	Remaining        string `json:"remaining"`
	DesiredAsset     string `json:"desired_asset"`
	AuctionStartTime int64  `json:"auction_start_time"`
}

func newFeeAuctionView(a *auction.FeeAuction) *FeeAuctionView {
	if a == nil {
		return nil
	}
	return &FeeAuctionView{
		Denom:            a.Denom,
		Remaining:        bigString(a.Remaining),
		DesiredAsset:     a.DesiredAsset,
		AuctionStartTime: a.AuctionStartTime,
	}
}

// bigString renders a possibly-nil *big.Int as a JSON-safe decimal string.
// big.Int.String panics on a nil receiver, so this guards that case rather
// than relying on an `== nil` check against an interface value (which would
// miss a typed-nil *big.Int).
func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
