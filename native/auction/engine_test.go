package auction

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	"membranecore/crypto"
)

type mockState struct {
	debt *DebtAuction
	fee  map[string]*FeeAuction
}

func newMockState() *mockState {
	return &mockState{fee: make(map[string]*FeeAuction)}
}

func (m *mockState) GetDebtAuction() (*DebtAuction, error) { return m.debt, nil }
func (m *mockState) PutDebtAuction(a *DebtAuction) error   { m.debt = a; return nil }
func (m *mockState) DeleteDebtAuction() error              { m.debt = nil; return nil }
func (m *mockState) GetFeeAuction(denom string) (*FeeAuction, error) {
	return m.fee[denom], nil
}
func (m *mockState) PutFeeAuction(a *FeeAuction) error {
	m.fee[a.Denom] = a
	return nil
}
func (m *mockState) DeleteFeeAuction(denom string) error {
	delete(m.fee, denom)
	return nil
}

type mockMinter struct {
	minted map[string]*big.Int
	burned map[string]*big.Int
}

func newMockMinter() *mockMinter {
	return &mockMinter{minted: make(map[string]*big.Int), burned: make(map[string]*big.Int)}
}
func (m *mockMinter) MintTokens(denom string, amount *big.Int, to crypto.Address) error {
	m.minted[denom] = amount
	return nil
}
func (m *mockMinter) BurnTokens(denom string, amount *big.Int, from crypto.Address) error {
	m.burned[denom] = amount
	return nil
}

type mockRepayer struct {
	applied map[uint64]*big.Int
}

func (r *mockRepayer) RepayFromAuction(positionID uint64, amount *big.Int) (*big.Int, error) {
	if r.applied == nil {
		r.applied = make(map[uint64]*big.Int)
	}
	r.applied[positionID] = amount
	return amount, nil
}

type mockTransfer struct {
	sent map[string]*big.Int
}

func newMockTransfer() *mockTransfer { return &mockTransfer{sent: make(map[string]*big.Int)} }
func (t *mockTransfer) Transfer(denom string, amount *big.Int, to crypto.Address) error {
	t.sent[denom] = amount
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

func TestDiscountRisesInSteps(t *testing.T) {
	cfg := Config{
		InitialDiscount:           decimal.NewFromFloat(0.05),
		DiscountIncreaseTimeframe: 3600,
		DiscountIncrease:          decimal.NewFromFloat(0.01),
	}
	if got := Discount(cfg, 0, 0); !got.Equal(decimal.NewFromFloat(0.05)) {
		t.Fatalf("Discount at start = %s, want 0.05", got)
	}
	if got := Discount(cfg, 0, 7200); !got.Equal(decimal.NewFromFloat(0.07)) {
		t.Fatalf("Discount after two steps = %s, want 0.07", got)
	}
}

func TestSwapRatioFloorsAtOnePercent(t *testing.T) {
	if got := SwapRatio(decimal.NewFromFloat(0.999)); !got.Equal(minSwapRatio) {
		t.Fatalf("SwapRatio(0.999) = %s, want the 1%% floor", got)
	}
}

func TestStartAuctionExtendsExisting(t *testing.T) {
	state := newMockState()
	e := NewEngine(Config{})
	e.SetState(state)
	e.SetNow(100)

	if err := e.StartAuction(big.NewInt(500), []RepaymentPosition{{PositionID: 1, Amount: big.NewInt(500)}}, nil); err != nil {
		t.Fatalf("StartAuction: %v", err)
	}
	e.SetNow(200)
	if err := e.StartAuction(big.NewInt(300), []RepaymentPosition{{PositionID: 2, Amount: big.NewInt(300)}}, nil); err != nil {
		t.Fatalf("StartAuction (extend): %v", err)
	}

	if state.debt.RemainingRecapitalization.Cmp(big.NewInt(800)) != 0 {
		t.Fatalf("RemainingRecapitalization = %s, want 800", state.debt.RemainingRecapitalization)
	}
	if state.debt.AuctionStartTime != 100 {
		t.Fatalf("AuctionStartTime = %d, want the original 100 (extension keeps original start)", state.debt.AuctionStartTime)
	}
	if len(state.debt.RepaymentPositions) != 2 {
		t.Fatalf("expected both repayment positions queued, got %d", len(state.debt.RepaymentPositions))
	}
}

func TestSwapForMBRNSettlesRepaymentsBeforeSendTo(t *testing.T) {
	state := newMockState()
	recipient := makeAddr(0x01)
	state.debt = &DebtAuction{
		RemainingRecapitalization: big.NewInt(1_000),
		RepaymentPositions:        []RepaymentPosition{{PositionID: 7, Amount: big.NewInt(600)}},
		SendTo:                    []SendTo{{Address: recipient, Amount: big.NewInt(400)}},
		AuctionStartTime:          0,
	}

	minter := newMockMinter()
	repayer := &mockRepayer{}
	transfer := newMockTransfer()

	e := NewEngine(Config{InitialDiscount: decimal.Zero})
	e.SetState(state)
	e.SetCollaborators(minter, repayer, transfer)
	e.SetNow(0)

	buyer := makeAddr(0x02)
	minted, overpay, err := e.SwapForMBRN(buyer, "credit", "mbrn", big.NewInt(1_000), decimal.NewFromInt(1))
	if err != nil {
		t.Fatalf("SwapForMBRN: %v", err)
	}
	if overpay.Sign() != 0 {
		t.Fatalf("expected no overpayment, got %s", overpay)
	}
	if minted.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("minted = %s, want 1000 at a 1:1 price with zero discount", minted)
	}
	if got := repayer.applied[7]; got == nil || got.Cmp(big.NewInt(600)) != 0 {
		t.Fatalf("repayment applied = %v, want 600 against position 7", got)
	}
	if got := transfer.sent["credit"]; got == nil || got.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("send_to transfer = %v, want the remaining 400", got)
	}
	if state.debt != nil {
		t.Fatalf("expected the debt auction cleared once fully drained")
	}
}

func TestSwapForMBRNCapsAtRemainingAndReportsOverpayment(t *testing.T) {
	state := newMockState()
	state.debt = &DebtAuction{RemainingRecapitalization: big.NewInt(100), AuctionStartTime: 0}

	e := NewEngine(Config{InitialDiscount: decimal.Zero})
	e.SetState(state)
	e.SetNow(0)

	buyer := makeAddr(0x03)
	_, overpay, err := e.SwapForMBRN(buyer, "credit", "mbrn", big.NewInt(150), decimal.NewFromInt(1))
	if err != nil {
		t.Fatalf("SwapForMBRN: %v", err)
	}
	if overpay.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("overpay = %s, want 50", overpay)
	}
	if state.debt != nil {
		t.Fatalf("expected auction cleared once capped amount fully applied")
	}
}

func TestSwapForFeeRoutesToGovernanceByDefault(t *testing.T) {
	state := newMockState()
	state.fee["eth"] = &FeeAuction{Denom: "eth", Remaining: big.NewInt(1_000), DesiredAsset: "credit", AuctionStartTime: 0}

	transfer := newMockTransfer()
	e := NewEngine(Config{InitialDiscount: decimal.Zero, SendToStakers: false})
	e.SetState(state)
	e.SetCollaborators(nil, nil, transfer)
	e.SetNow(0)

	governance := makeAddr(0x04)
	staker := makeAddr(0x05)
	buyer := makeAddr(0x06)
	feeAmount, err := e.SwapForFee(buyer, "eth", big.NewInt(100), decimal.NewFromInt(1), staker, governance)
	if err != nil {
		t.Fatalf("SwapForFee: %v", err)
	}
	if feeAmount.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("feeAmount = %s, want 100 at a 1:1 price", feeAmount)
	}
	if got := transfer.sent["credit"]; got == nil || got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("desired-asset transfer = %v, want 100 sent to governance", got)
	}
}
