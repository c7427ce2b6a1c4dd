package basket

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestInternerAssignsStableIDs(t *testing.T) {
	n := NewInterner()
	eth := n.Intern("eth")
	if again := n.Intern("eth"); again != eth {
		t.Fatalf("expected re-interning the same denom to return the same id, got %d vs %d", again, eth)
	}
	wbtc := n.Intern("wbtc")
	if wbtc == eth {
		t.Fatalf("expected distinct denoms to get distinct ids")
	}
	if got, ok := n.Lookup("eth"); !ok || got != eth {
		t.Fatalf("Lookup(eth) = (%d, %v), want (%d, true)", got, ok, eth)
	}
	if n.String(eth) != "eth" {
		t.Fatalf("String(%d) = %q, want eth", eth, n.String(eth))
	}
	if n.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", n.Len())
	}
}

func TestBasketLookupHelpers(t *testing.T) {
	n := NewInterner()
	eth := n.Intern("eth")
	b := &Basket{
		CollateralTypes:      []CollateralSpec{{Denom: "eth", ID: eth, MaxLTV: decimal.NewFromFloat(0.8)}},
		CollateralSupplyCaps: []SupplyCap{{DenomID: eth, CurrentSupply: big.NewInt(10), DebtTotal: big.NewInt(5)}},
		LatestCollateralRates: []CollateralRate{{DenomID: eth, Rate: decimal.NewFromInt(2000)}},
		Denoms: n,
	}

	if spec := b.SpecForDenom(eth); spec == nil || spec.Denom != "eth" {
		t.Fatalf("SpecForDenom(eth) = %v, want eth spec", spec)
	}
	if cap := b.CapForDenom(eth); cap == nil || cap.CurrentSupply.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("CapForDenom(eth) = %v, want CurrentSupply=10", cap)
	}
	if rate := b.RateForDenom(eth); !rate.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("RateForDenom(eth) = %s, want 2000", rate)
	}
	const unknown DenomID = 99
	if b.SpecForDenom(unknown) != nil || b.CapForDenom(unknown) != nil {
		t.Fatalf("expected nil lookups for an unconfigured denom")
	}
	if !b.RateForDenom(unknown).IsZero() {
		t.Fatalf("expected zero rate for an unconfigured denom")
	}
	if total := b.TotalDebt(); total.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("TotalDebt() = %s, want 5", total)
	}
}

func TestValidateRevenueRatioOverflow(t *testing.T) {
	b := &Basket{
		RevenueDestinations: []RevenueDestination{
			{Ratio: decimal.NewFromFloat(0.6)},
			{Ratio: decimal.NewFromFloat(0.6)},
		},
	}
	if err := Validate(b); err != ErrRevenueRatioOverflow {
		t.Fatalf("Validate() = %v, want ErrRevenueRatioOverflow", err)
	}
}

func TestValidateSupplyCapRatioRange(t *testing.T) {
	b := &Basket{
		CollateralSupplyCaps: []SupplyCap{{SupplyCapRatio: decimal.NewFromFloat(1.5)}},
	}
	if err := Validate(b); err != ErrSupplyCapRatioRange {
		t.Fatalf("Validate() = %v, want ErrSupplyCapRatioRange", err)
	}
}

func TestValidateAcceptsWellFormedBasket(t *testing.T) {
	b := &Basket{
		RevenueDestinations: []RevenueDestination{{Ratio: decimal.NewFromFloat(0.5)}},
		CollateralSupplyCaps: []SupplyCap{{SupplyCapRatio: decimal.NewFromFloat(0.9)}},
		MultiAssetCaps:       []MultiAssetCap{{CapRatio: decimal.NewFromFloat(0.5)}},
	}
	if err := Validate(b); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}
