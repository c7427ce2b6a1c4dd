package risk

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	"membranecore/native/basket"
	"membranecore/native/rates"
)

func TestCheckSupplyCapRejectsOverCapDeposit(t *testing.T) {
	e := NewEngine(decimal.NewFromFloat(0.9))
	b := &basket.Basket{
		CollateralSupplyCaps: []basket.SupplyCap{
			{DenomID: 1, CurrentSupply: big.NewInt(90), SupplyCapRatio: decimal.NewFromFloat(0.5)},
			{DenomID: 2, CurrentSupply: big.NewInt(10), SupplyCapRatio: decimal.NewFromFloat(0.5)},
		},
	}
	if err := e.CheckSupplyCap(b, 1, big.NewInt(50)); err != ErrSupplyCapExceeded {
		t.Fatalf("CheckSupplyCap = %v, want ErrSupplyCapExceeded", err)
	}
}

func TestCheckSupplyCapAllowsWithinCapDeposit(t *testing.T) {
	e := NewEngine(decimal.NewFromFloat(0.9))
	b := &basket.Basket{
		CollateralSupplyCaps: []basket.SupplyCap{
			{DenomID: 1, CurrentSupply: big.NewInt(10), SupplyCapRatio: decimal.NewFromFloat(0.5)},
			{DenomID: 2, CurrentSupply: big.NewInt(90), SupplyCapRatio: decimal.NewFromFloat(0.5)},
		},
	}
	if err := e.CheckSupplyCap(b, 1, big.NewInt(5)); err != nil {
		t.Fatalf("CheckSupplyCap = %v, want nil", err)
	}
}

func TestCheckSupplyCapUnconfiguredDenomPasses(t *testing.T) {
	e := NewEngine(decimal.NewFromFloat(0.9))
	b := &basket.Basket{}
	if err := e.CheckSupplyCap(b, 42, big.NewInt(1_000)); err != nil {
		t.Fatalf("CheckSupplyCap = %v, want nil for unconfigured denom", err)
	}
}

func TestCheckSupplyCapWithVolatilityNarrowsCapWhenHistoryFull(t *testing.T) {
	e := NewEngine(decimal.NewFromFloat(0.9))
	b := &basket.Basket{
		CollateralSupplyCaps: []basket.SupplyCap{
			{DenomID: 1, CurrentSupply: big.NewInt(45), SupplyCapRatio: decimal.NewFromFloat(0.5)},
			{DenomID: 2, CurrentSupply: big.NewInt(55), SupplyCapRatio: decimal.NewFromFloat(0.5)},
		},
	}
	// Within the unadjusted 0.5 cap, so the plain check passes.
	if err := e.CheckSupplyCap(b, 1, big.NewInt(5)); err != nil {
		t.Fatalf("CheckSupplyCap = %v, want nil", err)
	}

	history := rates.NewVolatilityHistory()
	volatile := []int64{100, 150, 80, 160, 70, 140, 90, 170, 60, 180}
	for i := 0; i < 30; i++ {
		history.Record(decimal.NewFromInt(volatile[i%len(volatile)]))
	}
	if err := e.CheckSupplyCapWithVolatility(b, 1, big.NewInt(5), history); err != ErrSupplyCapExceeded {
		t.Fatalf("CheckSupplyCapWithVolatility = %v, want ErrSupplyCapExceeded once volatility narrows the cap", err)
	}
}

func TestCheckSupplyCapWithVolatilityNilHistoryMatchesPlainCheck(t *testing.T) {
	e := NewEngine(decimal.NewFromFloat(0.9))
	b := &basket.Basket{
		CollateralSupplyCaps: []basket.SupplyCap{
			{DenomID: 1, CurrentSupply: big.NewInt(10), SupplyCapRatio: decimal.NewFromFloat(0.5)},
			{DenomID: 2, CurrentSupply: big.NewInt(90), SupplyCapRatio: decimal.NewFromFloat(0.5)},
		},
	}
	if err := e.CheckSupplyCapWithVolatility(b, 1, big.NewInt(5), nil); err != nil {
		t.Fatalf("CheckSupplyCapWithVolatility = %v, want nil", err)
	}
}

func TestDebtCapUsesSmallerOfTVLShareAndLiquidityMultiplier(t *testing.T) {
	totals := BasketTotals{
		BasketTVL:             big.NewInt(200),
		AllBasketsTVL:         big.NewInt(1_000),
		TotalMultiplier:       decimal.NewFromInt(5),
		LiquidityMultiplier:   decimal.NewFromFloat(0.5),
		CreditLiquidity:       big.NewInt(10_000),
		SPLiquidity:           big.NewInt(0),
		BaseDebtCapMultiplier: decimal.NewFromInt(1),
		DebtMinimum:           big.NewInt(100),
	}
	// tvlShare = (200/1000)*5 = 1.0, which exceeds LiquidityMultiplier 0.5,
	// so multiplier should clamp to 0.5 and base = 10000*0.5 = 5000.
	got := DebtCap(totals)
	if got.Cmp(big.NewInt(5_000)) != 0 {
		t.Fatalf("DebtCap() = %s, want 5000", got)
	}
}

func TestDebtCapFloorsAtBaseDebtCapMultiplier(t *testing.T) {
	totals := BasketTotals{
		BasketTVL:             big.NewInt(0),
		AllBasketsTVL:         big.NewInt(1_000),
		TotalMultiplier:       decimal.NewFromInt(5),
		LiquidityMultiplier:   decimal.NewFromFloat(0.5),
		CreditLiquidity:       big.NewInt(0),
		BaseDebtCapMultiplier: decimal.NewFromInt(2),
		DebtMinimum:           big.NewInt(500),
	}
	got := DebtCap(totals)
	if got.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("DebtCap() = %s, want the 1000 floor (debt_minimum * base_debt_cap_multiplier)", got)
	}
}

func TestAssetDebtCapUsesStabilityPoolOverrideWhenConfigured(t *testing.T) {
	ratio := decimal.NewFromFloat(0.2)
	b := &basket.Basket{
		CollateralSupplyCaps: []basket.SupplyCap{
			{DenomID: 1, StabilityPoolRatio: &ratio},
		},
	}
	got := AssetDebtCap(b, 1, big.NewInt(1_000), big.NewInt(500))
	if got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("AssetDebtCap() = %s, want 100 (500 * 0.2)", got)
	}
}

func TestAssetDebtCapFallsBackToTVLShare(t *testing.T) {
	b := &basket.Basket{
		CollateralSupplyCaps: []basket.SupplyCap{
			{DenomID: 1, CurrentSupply: big.NewInt(25), SupplyCapRatio: decimal.NewFromFloat(0.5)},
			{DenomID: 2, CurrentSupply: big.NewInt(75), SupplyCapRatio: decimal.NewFromFloat(0.5)},
		},
	}
	got := AssetDebtCap(b, 1, big.NewInt(1_000), nil)
	if got.Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("AssetDebtCap() = %s, want 250 (25%% share of 1000)", got)
	}
}

func TestDesiredUtilExceeded(t *testing.T) {
	e := NewEngine(decimal.NewFromFloat(0.9))
	if !e.DesiredUtilExceeded(big.NewInt(950), big.NewInt(1_000)) {
		t.Fatalf("expected 95%% util to exceed the 90%% threshold")
	}
	if e.DesiredUtilExceeded(big.NewInt(500), big.NewInt(1_000)) {
		t.Fatalf("expected 50%% util to stay under the 90%% threshold")
	}
}
