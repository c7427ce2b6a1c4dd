package rates

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestVolatilityHistoryNotFullLeavesMultiplierUnchanged(t *testing.T) {
	h := NewVolatilityHistory()
	h.Record(decimal.NewFromInt(100))
	h.Record(decimal.NewFromInt(110))

	if h.Full() {
		t.Fatalf("expected history with 2 samples to not be full")
	}
	m := VolatilityMultiplier(h)
	if !m.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected multiplier 1 for a non-full history, got %s", m)
	}
}

func TestVolatilityHistoryStablePriceKeepsMultiplierAtOne(t *testing.T) {
	h := NewVolatilityHistory()
	for i := 0; i < volatilityWindowSize; i++ {
		h.Record(decimal.NewFromInt(100))
	}
	if !h.Full() {
		t.Fatalf("expected history to be full after %d samples", volatilityWindowSize)
	}
	m := VolatilityMultiplier(h)
	if !m.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected multiplier 1 for a zero-variance history, got %s", m)
	}
}

func TestVolatilityHistoryVolatilePriceReducesMultiplier(t *testing.T) {
	h := NewVolatilityHistory()
	prices := []int64{100, 150, 80, 160, 70, 140, 90, 170, 60, 180}
	for i := 0; i < volatilityWindowSize; i++ {
		h.Record(decimal.NewFromInt(prices[i%len(prices)]))
	}
	m := VolatilityMultiplier(h)
	if !m.LessThan(decimal.NewFromInt(1)) {
		t.Fatalf("expected a volatile history to reduce the multiplier below 1, got %s", m)
	}
	if m.LessThan(decimal.NewFromFloat(0.1)) {
		t.Fatalf("expected the multiplier to respect the 0.1 floor, got %s", m)
	}
}

func TestVolatilityHistoryWrapsRingBuffer(t *testing.T) {
	h := NewVolatilityHistory()
	for i := 0; i < volatilityWindowSize+5; i++ {
		h.Record(decimal.NewFromInt(int64(i)))
	}
	if len(h.Prices) != volatilityWindowSize {
		t.Fatalf("expected ring buffer capped at %d entries, got %d", volatilityWindowSize, len(h.Prices))
	}
	if !h.Prices[0].Equal(decimal.NewFromInt(volatilityWindowSize)) {
		t.Fatalf("expected oldest entries overwritten first, got %s at index 0", h.Prices[0])
	}
}

func TestAdjustedSupplyCapRatioAppliesMultiplier(t *testing.T) {
	e := NewEngine(Config{})
	h := NewVolatilityHistory()
	for i := 0; i < volatilityWindowSize; i++ {
		h.Record(decimal.NewFromInt(100))
	}
	adjusted := e.AdjustedSupplyCapRatio(decimal.NewFromFloat(0.4), h)
	if !adjusted.Equal(decimal.NewFromFloat(0.4)) {
		t.Fatalf("expected a stable history to leave the ratio unchanged, got %s", adjusted)
	}
}
