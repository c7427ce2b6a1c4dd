package state

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	"membranecore/crypto"
	"membranecore/native/auction"
	"membranecore/native/basket"
	"membranecore/native/cascade"
	"membranecore/native/liqqueue"
	"membranecore/native/positions"
	"membranecore/storage"
)

func makeAddr(suffix byte) crypto.Address {
	raw := make([]byte, 20)
	raw[len(raw)-1] = suffix
	addr, err := crypto.NewAddress(crypto.NHBPrefix, raw)
	if err != nil {
		panic(err)
	}
	return addr
}

func newTestStore() *Store {
	return New(storage.NewMemDB())
}

func TestBasketRoundTrip(t *testing.T) {
	s := newTestStore()
	n := basket.NewInterner()
	eth := n.Intern("eth")
	spRatio := decimal.NewFromFloat(0.25)
	b := &basket.Basket{
		Denoms:      n,
		CreditAsset: basket.CreditAsset{Denom: "credit", Amount: big.NewInt(1_000)},
		CreditPrice: decimal.NewFromFloat(1.02),
		CollateralTypes: []basket.CollateralSpec{
			{Denom: "eth", ID: eth, MaxBorrowLTV: decimal.NewFromFloat(0.7), MaxLTV: decimal.NewFromFloat(0.8), RateIndex: decimal.NewFromInt(1)},
		},
		CollateralSupplyCaps: []basket.SupplyCap{
			{DenomID: eth, CurrentSupply: big.NewInt(500), DebtTotal: big.NewInt(200), SupplyCapRatio: decimal.NewFromFloat(0.9), StabilityPoolRatio: &spRatio},
		},
		LatestCollateralRates: []basket.CollateralRate{{DenomID: eth, Rate: decimal.NewFromInt(2000), ComputedAt: 42}},
		Frozen:                false,
		OracleSet:             true,
	}

	if err := s.PutBasket(b); err != nil {
		t.Fatalf("PutBasket: %v", err)
	}
	got, err := s.GetBasket()
	if err != nil {
		t.Fatalf("GetBasket: %v", err)
	}
	if got == nil {
		t.Fatalf("GetBasket returned nil after a Put")
	}
	if got.CreditAsset.Amount.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("CreditAsset.Amount = %s, want 1000", got.CreditAsset.Amount)
	}
	if !got.CreditPrice.Equal(decimal.NewFromFloat(1.02)) {
		t.Fatalf("CreditPrice = %s, want 1.02", got.CreditPrice)
	}
	if len(got.CollateralTypes) != 1 || got.CollateralTypes[0].Denom != "eth" {
		t.Fatalf("CollateralTypes round trip failed: %+v", got.CollateralTypes)
	}
	if got.CollateralSupplyCaps[0].StabilityPoolRatio == nil || !got.CollateralSupplyCaps[0].StabilityPoolRatio.Equal(spRatio) {
		t.Fatalf("StabilityPoolRatio round trip failed: %+v", got.CollateralSupplyCaps[0].StabilityPoolRatio)
	}
	if got.Denoms.Len() != 1 {
		t.Fatalf("expected the interned denom table to round trip, got len %d", got.Denoms.Len())
	}
}

func TestGetBasketAbsentReturnsNil(t *testing.T) {
	s := newTestStore()
	got, err := s.GetBasket()
	if err != nil {
		t.Fatalf("GetBasket: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil basket before any Put, got %+v", got)
	}
}

func TestPositionRoundTripAndOwnerIndex(t *testing.T) {
	s := newTestStore()
	owner := makeAddr(0x01)
	id1, err := s.NextPositionID()
	if err != nil {
		t.Fatalf("NextPositionID: %v", err)
	}
	id2, err := s.NextPositionID()
	if err != nil {
		t.Fatalf("NextPositionID: %v", err)
	}
	if id2 != id1+1 {
		t.Fatalf("expected monotonic ids, got %d then %d", id1, id2)
	}

	p1 := &positions.Position{
		ID:           id1,
		Owner:        owner,
		CreditAmount: big.NewInt(500),
		Collateral:   []positions.CollateralHolding{{DenomID: 1, Amount: big.NewInt(10), RateIndexSnapshot: decimal.NewFromInt(1)}},
	}
	p2 := &positions.Position{ID: id2, Owner: owner, CreditAmount: big.NewInt(0)}
	if err := s.PutPosition(p1); err != nil {
		t.Fatalf("PutPosition p1: %v", err)
	}
	if err := s.PutPosition(p2); err != nil {
		t.Fatalf("PutPosition p2: %v", err)
	}

	got, err := s.GetPosition(id1)
	if err != nil {
		t.Fatalf("GetPosition: %v", err)
	}
	if got == nil || got.CreditAmount.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("GetPosition round trip failed: %+v", got)
	}
	if !got.Owner.Equal(owner) {
		t.Fatalf("Owner round trip failed: %+v", got.Owner)
	}
	if len(got.Collateral) != 1 || got.Collateral[0].Amount.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("Collateral round trip failed: %+v", got.Collateral)
	}

	owned, err := s.PositionsByOwner(owner)
	if err != nil {
		t.Fatalf("PositionsByOwner: %v", err)
	}
	if len(owned) != 2 {
		t.Fatalf("PositionsByOwner = %d entries, want 2", len(owned))
	}

	if err := s.DeletePosition(owner, id1); err != nil {
		t.Fatalf("DeletePosition: %v", err)
	}
	if gone, err := s.GetPosition(id1); err != nil || gone != nil {
		t.Fatalf("expected GetPosition nil after delete, got (%+v, %v)", gone, err)
	}
	owned, err = s.PositionsByOwner(owner)
	if err != nil {
		t.Fatalf("PositionsByOwner after delete: %v", err)
	}
	if len(owned) != 1 || owned[0].ID != id2 {
		t.Fatalf("expected only id2 left in the owner index, got %+v", owned)
	}
}

func TestQueueSlotBidAndConfigRoundTrip(t *testing.T) {
	s := newTestStore()
	owner := makeAddr(0x02)
	denom := basket.DenomID(3)

	cfg := &liqqueue.Config{
		WaitingPeriod:      3600,
		MinimumBid:         big.NewInt(10),
		MaximumWaitingBids: 5,
		BidThreshold:       big.NewInt(1_000),
		MaxPremium:         10,
	}
	if err := s.PutQueueConfig(denom, cfg); err != nil {
		t.Fatalf("PutQueueConfig: %v", err)
	}
	gotCfg, err := s.GetQueueConfig(denom)
	if err != nil {
		t.Fatalf("GetQueueConfig: %v", err)
	}
	if gotCfg == nil || gotCfg.MaximumWaitingBids != 5 {
		t.Fatalf("GetQueueConfig round trip failed: %+v", gotCfg)
	}

	bidID, err := s.NextBidID()
	if err != nil {
		t.Fatalf("NextBidID: %v", err)
	}
	bid := &liqqueue.Bid{
		ID:              bidID,
		Owner:           owner,
		Amount:          big.NewInt(200),
		LiqPremium:      0,
		ProductSnapshot: decimal.NewFromInt(1),
		SumSnapshot:     decimal.Zero,
	}
	if err := s.PutBid(denom, bid); err != nil {
		t.Fatalf("PutBid: %v", err)
	}
	gotBid, err := s.GetBid(denom, bidID)
	if err != nil {
		t.Fatalf("GetBid: %v", err)
	}
	if gotBid == nil || gotBid.Amount.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("GetBid round trip failed: %+v", gotBid)
	}

	slot := &liqqueue.PremiumSlot{
		BidFor:          denom,
		Premium:         0,
		Bids:            []*liqqueue.Bid{bid},
		ProductSnapshot: decimal.NewFromInt(1),
		SumSnapshot:     decimal.Zero,
		TotalBidAmount:  big.NewInt(200),
	}
	if err := s.PutSlot(slot); err != nil {
		t.Fatalf("PutSlot: %v", err)
	}
	gotSlot, err := s.GetSlot(denom, 0)
	if err != nil {
		t.Fatalf("GetSlot: %v", err)
	}
	if gotSlot == nil || len(gotSlot.Bids) != 1 || gotSlot.Bids[0].ID != bidID {
		t.Fatalf("GetSlot round trip failed: %+v", gotSlot)
	}

	if err := s.DeleteBid(denom, bidID); err != nil {
		t.Fatalf("DeleteBid: %v", err)
	}
	if gone, err := s.GetBid(denom, bidID); err != nil || gone != nil {
		t.Fatalf("expected GetBid nil after delete, got (%+v, %v)", gone, err)
	}
}

func TestDebtAuctionRoundTripAndDelete(t *testing.T) {
	s := newTestStore()
	recipient := makeAddr(0x03)
	a := &auction.DebtAuction{
		RemainingRecapitalization: big.NewInt(1_000),
		RepaymentPositions:       []auction.RepaymentPosition{{PositionID: 1, Amount: big.NewInt(600)}},
		SendTo:                   []auction.SendTo{{Address: recipient, Amount: big.NewInt(400)}},
		AuctionStartTime:         100,
	}
	if err := s.PutDebtAuction(a); err != nil {
		t.Fatalf("PutDebtAuction: %v", err)
	}
	got, err := s.GetDebtAuction()
	if err != nil {
		t.Fatalf("GetDebtAuction: %v", err)
	}
	if got == nil || got.RemainingRecapitalization.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("GetDebtAuction round trip failed: %+v", got)
	}
	if len(got.SendTo) != 1 || !got.SendTo[0].Address.Equal(recipient) {
		t.Fatalf("SendTo round trip failed: %+v", got.SendTo)
	}

	if err := s.DeleteDebtAuction(); err != nil {
		t.Fatalf("DeleteDebtAuction: %v", err)
	}
	if gone, err := s.GetDebtAuction(); err != nil || gone != nil {
		t.Fatalf("expected nil DebtAuction after delete, got (%+v, %v)", gone, err)
	}
}

func TestFeeAuctionRoundTripAndDelete(t *testing.T) {
	s := newTestStore()
	a := &auction.FeeAuction{Denom: "eth", Remaining: big.NewInt(500), DesiredAsset: "credit", AuctionStartTime: 50}
	if err := s.PutFeeAuction(a); err != nil {
		t.Fatalf("PutFeeAuction: %v", err)
	}
	got, err := s.GetFeeAuction("eth")
	if err != nil {
		t.Fatalf("GetFeeAuction: %v", err)
	}
	if got == nil || got.Remaining.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("GetFeeAuction round trip failed: %+v", got)
	}
	if err := s.DeleteFeeAuction("eth"); err != nil {
		t.Fatalf("DeleteFeeAuction: %v", err)
	}
	if gone, err := s.GetFeeAuction("eth"); err != nil || gone != nil {
		t.Fatalf("expected nil FeeAuction after delete, got (%+v, %v)", gone, err)
	}
}

func TestPropagationRoundTripAndClear(t *testing.T) {
	s := newTestStore()
	owner := makeAddr(0x04)
	p := &cascade.LiquidationPropagation{
		State:             cascade.StateLQInFlight,
		PositionID:        7,
		PositionOwner:     owner,
		UserRepayAmount:   big.NewInt(100),
		LiqQueueLeftovers: big.NewInt(50),
		StabilityPool:     big.NewInt(0),
		LiquidatedAssets:  []basket.DenomID{1, 2},
		EntryCreditPrice:  decimal.NewFromInt(1),
		AvailableFee:      big.NewInt(10),
	}
	if err := s.PutPropagation(p); err != nil {
		t.Fatalf("PutPropagation: %v", err)
	}
	got, err := s.GetPropagation()
	if err != nil {
		t.Fatalf("GetPropagation: %v", err)
	}
	if got == nil || got.State != cascade.StateLQInFlight || got.PositionID != 7 {
		t.Fatalf("GetPropagation round trip failed: %+v", got)
	}
	if !got.PositionOwner.Equal(owner) {
		t.Fatalf("PositionOwner round trip failed: %+v", got.PositionOwner)
	}
	if len(got.LiquidatedAssets) != 2 {
		t.Fatalf("LiquidatedAssets round trip failed: %+v", got.LiquidatedAssets)
	}

	if err := s.ClearPropagation(); err != nil {
		t.Fatalf("ClearPropagation: %v", err)
	}
	if gone, err := s.GetPropagation(); err != nil || gone != nil {
		t.Fatalf("expected nil propagation after clear, got (%+v, %v)", gone, err)
	}
}
