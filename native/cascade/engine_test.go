package cascade

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	"membranecore/crypto"
	"membranecore/native/basket"
	"membranecore/native/positions"
)

type mockState struct {
	basket     *basket.Basket
	positions  map[uint64]*positions.Position
	prop       *LiquidationPropagation
}

func newMockState() *mockState {
	return &mockState{positions: make(map[uint64]*positions.Position)}
}

func (m *mockState) GetBasket() (*basket.Basket, error) { return m.basket, nil }
func (m *mockState) PutBasket(b *basket.Basket) error    { m.basket = b; return nil }
func (m *mockState) GetPosition(id uint64) (*positions.Position, error) {
	return m.positions[id], nil
}
func (m *mockState) PutPosition(p *positions.Position) error {
	m.positions[p.ID] = p
	return nil
}
func (m *mockState) DeletePosition(owner crypto.Address, id uint64) error {
	delete(m.positions, id)
	return nil
}
func (m *mockState) GetPropagation() (*LiquidationPropagation, error) { return m.prop, nil }
func (m *mockState) PutPropagation(p *LiquidationPropagation) error   { m.prop = p; return nil }
func (m *mockState) ClearPropagation() error                          { m.prop = nil; return nil }

type mockSP struct {
	userDeposit *big.Int
	liquidated  *big.Int
}

func (sp *mockSP) UserDeposit(owner crypto.Address) (*big.Int, error) { return sp.userDeposit, nil }
func (sp *mockSP) Liquidate(amount *big.Int) (*big.Int, error) {
	if sp.liquidated != nil && sp.liquidated.Cmp(amount) < 0 {
		return sp.liquidated, nil
	}
	return amount, nil
}
func (sp *mockSP) DepositFee(denom string, amount *big.Int) error { return nil }

type mockRouter struct {
	realized *big.Int
	err      error
}

func (r *mockRouter) Swap(fromDenom, toDenom string, amount *big.Int, recipient crypto.Address) (*big.Int, error) {
	return r.realized, r.err
}

type mockMinter struct{}

func (mockMinter) BurnTokens(denom string, amount *big.Int, from crypto.Address) error { return nil }
func (mockMinter) Transfer(denom string, amount *big.Int, to crypto.Address) error      { return nil }

type mockAuctionStarter struct {
	started *big.Int
}

func (a *mockAuctionStarter) StartAuction(amount *big.Int, positionID uint64, owner crypto.Address) error {
	a.started = amount
	return nil
}

type mockOracle struct {
	prices map[string]decimal.Decimal
}

func (o *mockOracle) Price(denom string) (decimal.Decimal, error) {
	p, ok := o.prices[denom]
	if !ok {
		return decimal.Zero, errPositionNotFound
	}
	return p, nil
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

func newTestBasket() (*basket.Basket, basket.DenomID) {
	interner := basket.NewInterner()
	ethID := interner.Intern("eth")
	b := &basket.Basket{
		CreditAsset: basket.CreditAsset{Denom: "credit", Amount: big.NewInt(1_000)},
		CreditPrice: decimal.NewFromInt(1),
		CollateralTypes: []basket.CollateralSpec{
			{Denom: "eth", ID: ethID, MaxBorrowLTV: decimal.NewFromFloat(0.7), MaxLTV: decimal.NewFromFloat(0.8), RateIndex: decimal.NewFromInt(1)},
		},
		CollateralSupplyCaps: []basket.SupplyCap{
			{DenomID: ethID, CurrentSupply: big.NewInt(500), DebtTotal: big.NewInt(400), SupplyCapRatio: decimal.NewFromFloat(0.9)},
		},
		LatestCollateralRates: []basket.CollateralRate{
			{DenomID: ethID, Rate: decimal.NewFromInt(2)},
		},
		PendingRevenue: big.NewInt(0),
		Denoms:         interner,
	}
	return b, ethID
}

func TestLiquidateStabilityPoolCoversDebt(t *testing.T) {
	b, ethID := newTestBasket()
	owner := makeAddr(0x01)
	pos := &positions.Position{
		ID:           1,
		Owner:        owner,
		CreditAmount: big.NewInt(300),
		Collateral: []positions.CollateralHolding{
			{DenomID: ethID, Amount: big.NewInt(200)},
		},
	}

	state := newMockState()
	state.basket = b
	state.positions[1] = pos

	e := NewEngine(decimal.NewFromFloat(0.05))
	e.SetState(state)
	e.SetCollaborators(nil, &mockSP{userDeposit: big.NewInt(0), liquidated: big.NewInt(300)}, nil, mockMinter{}, nil, nil)

	if err := e.Liquidate(1, owner, big.NewInt(10)); err != nil {
		t.Fatalf("liquidate: %v", err)
	}

	if state.positions[1] == nil {
		t.Fatalf("expected position to remain with leftover collateral")
	}
	if state.positions[1].CreditAmount.Sign() != 0 {
		t.Fatalf("expected debt fully repaid, got %s", state.positions[1].CreditAmount)
	}
	if state.prop != nil {
		t.Fatalf("expected propagation cleared after completion, got %+v", state.prop)
	}
}

func TestLiquidateRejectsConcurrentPropagation(t *testing.T) {
	b, ethID := newTestBasket()
	owner := makeAddr(0x02)
	pos := &positions.Position{
		ID:           2,
		Owner:        owner,
		CreditAmount: big.NewInt(100),
		Collateral:   []positions.CollateralHolding{{DenomID: ethID, Amount: big.NewInt(50)}},
	}
	state := newMockState()
	state.basket = b
	state.positions[2] = pos
	state.prop = &LiquidationPropagation{State: StateSPInFlight}

	e := NewEngine(decimal.Zero)
	e.SetState(state)

	if err := e.Liquidate(2, owner, big.NewInt(0)); err != errAlreadyInFlight {
		t.Fatalf("expected errAlreadyInFlight, got %v", err)
	}
}

func TestLiquidateEscalatesBadDebtWhenCollateralDrained(t *testing.T) {
	b, ethID := newTestBasket()
	owner := makeAddr(0x03)
	pos := &positions.Position{
		ID:           3,
		Owner:        owner,
		CreditAmount: big.NewInt(150),
		Collateral:   []positions.CollateralHolding{{DenomID: ethID, Amount: big.NewInt(0)}},
	}
	state := newMockState()
	state.basket = b
	state.positions[3] = pos

	starter := &mockAuctionStarter{}
	e := NewEngine(decimal.Zero)
	e.SetState(state)
	e.SetCollaborators(nil, nil, nil, mockMinter{}, starter, nil)

	if err := e.Liquidate(3, owner, big.NewInt(0)); err != nil {
		t.Fatalf("liquidate: %v", err)
	}
	if starter.started == nil || starter.started.Cmp(big.NewInt(150)) != 0 {
		t.Fatalf("expected debt auction started for 150, got %v", starter.started)
	}
	if state.positions[3] != nil {
		t.Fatalf("expected position cleared once debt fully escalated")
	}
}

func TestLiquidateFallsBackToSellWall(t *testing.T) {
	b, ethID := newTestBasket()
	owner := makeAddr(0x04)
	pos := &positions.Position{
		ID:           4,
		Owner:        owner,
		CreditAmount: big.NewInt(120),
		Collateral:   []positions.CollateralHolding{{DenomID: ethID, Amount: big.NewInt(60)}},
	}
	state := newMockState()
	state.basket = b
	state.positions[4] = pos

	e := NewEngine(decimal.Zero)
	e.SetState(state)
	e.SetCollaborators(nil, nil, &mockRouter{realized: big.NewInt(120)}, mockMinter{}, nil, nil)

	if err := e.Liquidate(4, owner, big.NewInt(0)); err != nil {
		t.Fatalf("liquidate: %v", err)
	}
	if state.positions[4] != nil {
		t.Fatalf("expected position cleared once sell-wall covers the debt")
	}
}

// TestLiquidateUsesOraclePriceNotBorrowRateForBadDebtCheck guards against the
// Stage 5 bug where collateral value was computed from
// Basket.LatestCollateralRates (a borrow rate) instead of a real spot price:
// the fixture's eth borrow rate is 2, which would read as "worth $2/unit" and
// wrongly skip bad-debt escalation, while the wired PriceOracle reports eth at
// $0.50/unit, correctly triggering escalation for the single remaining unit.
func TestLiquidateUsesOraclePriceNotBorrowRateForBadDebtCheck(t *testing.T) {
	b, ethID := newTestBasket()
	owner := makeAddr(0x05)
	pos := &positions.Position{
		ID:           5,
		Owner:        owner,
		CreditAmount: big.NewInt(50),
		Collateral:   []positions.CollateralHolding{{DenomID: ethID, Amount: big.NewInt(1)}},
	}
	state := newMockState()
	state.basket = b
	state.positions[5] = pos

	starter := &mockAuctionStarter{}
	oracle := &mockOracle{prices: map[string]decimal.Decimal{"eth": decimal.NewFromFloat(0.5)}}
	e := NewEngine(decimal.Zero)
	e.SetState(state)
	e.SetCollaborators(nil, nil, nil, mockMinter{}, starter, oracle)

	if err := e.Liquidate(5, owner, big.NewInt(0)); err != nil {
		t.Fatalf("liquidate: %v", err)
	}
	if starter.started == nil || starter.started.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("expected bad debt escalated using oracle price, got %v", starter.started)
	}
}

func TestStatusReportsNoPropagation(t *testing.T) {
	state := newMockState()
	e := NewEngine(decimal.Zero)
	e.SetState(state)
	if _, err := e.Status(); err != errNoPropagation {
		t.Fatalf("expected errNoPropagation, got %v", err)
	}
}
