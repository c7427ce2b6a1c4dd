package liqqueue

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	"membranecore/crypto"
	"membranecore/native/basket"
)

type slotKey struct {
	denom   basket.DenomID
	premium uint32
}

type mockState struct {
	slots   map[slotKey]*PremiumSlot
	bids    map[basket.DenomID]map[uint64]*Bid
	configs map[basket.DenomID]*Config
	nextID  uint64
}

func newMockState() *mockState {
	return &mockState{
		slots:   make(map[slotKey]*PremiumSlot),
		bids:    make(map[basket.DenomID]map[uint64]*Bid),
		configs: make(map[basket.DenomID]*Config),
	}
}

func (m *mockState) GetSlot(bidFor basket.DenomID, premium uint32) (*PremiumSlot, error) {
	return m.slots[slotKey{bidFor, premium}], nil
}

func (m *mockState) PutSlot(slot *PremiumSlot) error {
	m.slots[slotKey{slot.BidFor, slot.Premium}] = slot
	return nil
}

func (m *mockState) GetBid(bidFor basket.DenomID, id uint64) (*Bid, error) {
	if byID, ok := m.bids[bidFor]; ok {
		return byID[id], nil
	}
	return nil, nil
}

func (m *mockState) PutBid(bidFor basket.DenomID, bid *Bid) error {
	if m.bids[bidFor] == nil {
		m.bids[bidFor] = make(map[uint64]*Bid)
	}
	m.bids[bidFor][bid.ID] = bid
	return nil
}

func (m *mockState) DeleteBid(bidFor basket.DenomID, id uint64) error {
	delete(m.bids[bidFor], id)
	return nil
}

func (m *mockState) NextBidID() (uint64, error) {
	m.nextID++
	return m.nextID, nil
}

func (m *mockState) GetQueueConfig(bidFor basket.DenomID) (*Config, error) {
	return m.configs[bidFor], nil
}

func (m *mockState) PutQueueConfig(bidFor basket.DenomID, cfg *Config) error {
	m.configs[bidFor] = cfg
	return nil
}

func makeAddr(suffix byte) crypto.Address {
	raw := make([]byte, 20)
	raw[len(raw)-1] = suffix
	addr, err := crypto.NewAddress(crypto.NHBPrefix, raw)
	if err != nil {
		panic(err)
	}
	return addr
}

func TestSubmitBidActivatesBelowThreshold(t *testing.T) {
	state := newMockState()
	e := NewEngine()
	e.SetState(state)

	const denom basket.DenomID = 1
	if err := e.AddQueue(denom, Config{MaxPremium: 5, MinimumBid: big.NewInt(10), BidThreshold: big.NewInt(1_000_000)}); err != nil {
		t.Fatalf("AddQueue: %v", err)
	}

	owner := makeAddr(0x01)
	bid, err := e.SubmitBid(owner, denom, 2, big.NewInt(500))
	if err != nil {
		t.Fatalf("SubmitBid: %v", err)
	}
	if bid.Waiting() {
		t.Fatalf("expected bid to activate immediately under threshold")
	}

	slot, _ := state.GetSlot(denom, 2)
	if slot.TotalBidAmount.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("expected slot total 500, got %s", slot.TotalBidAmount)
	}
}

func TestSubmitBidBelowMinimumRejected(t *testing.T) {
	state := newMockState()
	e := NewEngine()
	e.SetState(state)
	e.AddQueue(1, Config{MaxPremium: 3, MinimumBid: big.NewInt(100)})

	if _, err := e.SubmitBid(makeAddr(0x02), 1, 0, big.NewInt(10)); err != errBelowMinimumBid {
		t.Fatalf("expected errBelowMinimumBid, got %v", err)
	}
}

func TestLiquidateConsumesAscendingPremiumsFirst(t *testing.T) {
	state := newMockState()
	e := NewEngine()
	e.SetState(state)

	const denom basket.DenomID = 7
	if err := e.AddQueue(denom, Config{MaxPremium: 2}); err != nil {
		t.Fatalf("AddQueue: %v", err)
	}
	if _, err := e.SubmitBid(makeAddr(0x10), denom, 0, big.NewInt(100)); err != nil {
		t.Fatalf("SubmitBid premium 0: %v", err)
	}
	if _, err := e.SubmitBid(makeAddr(0x11), denom, 1, big.NewInt(1_000)); err != nil {
		t.Fatalf("SubmitBid premium 1: %v", err)
	}

	result, err := e.Liquidate(denom, big.NewInt(10), "eth", decimal.NewFromInt(1), decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("Liquidate: %v", err)
	}
	if result.RepayAmount.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected the cheaper premium-0 slot consumed first, got repay=%s", result.RepayAmount)
	}

	slot0, _ := state.GetSlot(denom, 0)
	if slot0.TotalBidAmount.Sign() != 0 || slot0.CurrentEpoch != 1 {
		t.Fatalf("expected premium-0 slot fully drained and epoch incremented, got total=%s epoch=%d", slot0.TotalBidAmount, slot0.CurrentEpoch)
	}
}

func TestLiquidateInsufficientBidsWhenQueueEmpty(t *testing.T) {
	state := newMockState()
	e := NewEngine()
	e.SetState(state)
	e.AddQueue(3, Config{MaxPremium: 1})

	if _, err := e.Liquidate(3, big.NewInt(50), "eth", decimal.NewFromInt(1), decimal.NewFromInt(1)); err != errInsufficientBids {
		t.Fatalf("expected errInsufficientBids, got %v", err)
	}
}

func TestRetractBidRequiresOwnership(t *testing.T) {
	state := newMockState()
	e := NewEngine()
	e.SetState(state)
	e.AddQueue(4, Config{MaxPremium: 1, MinimumBid: big.NewInt(1)})

	owner := makeAddr(0x20)
	bid, err := e.SubmitBid(owner, 4, 0, big.NewInt(50))
	if err != nil {
		t.Fatalf("SubmitBid: %v", err)
	}

	if err := e.RetractBid(makeAddr(0x21), 4, bid.ID, nil); err != errNotBidOwner {
		t.Fatalf("expected errNotBidOwner, got %v", err)
	}
	if err := e.RetractBid(owner, 4, bid.ID, nil); err != nil {
		t.Fatalf("RetractBid: %v", err)
	}
	if stillThere, _ := state.GetBid(4, bid.ID); stillThere != nil {
		t.Fatalf("expected bid deleted after full retraction")
	}
}
