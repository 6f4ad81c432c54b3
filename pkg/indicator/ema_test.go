package indicator

import (
	"testing"
)

func TestEMA_SeedAndRecursion(t *testing.T) {
	candles := candlesFromCloses(1, 2, 3, 4, 5)

	ema := EMA(candles, 3)
	if len(ema) != 3 {
		t.Fatalf("Expected 3 values, got %d", len(ema))
	}

	// Seed is the SMA of the first 3 closes
	if ema[0].Value != 2.0 {
		t.Errorf("Expected seed 2.0, got %f", ema[0].Value)
	}
	if ema[0].Timestamp != candles[2].Timestamp {
		t.Errorf("Expected seed timestamp %d, got %d", candles[2].Timestamp, ema[0].Timestamp)
	}

	// (4 - 2.0) * 0.5 + 2.0
	if ema[1].Value != 3.0 {
		t.Errorf("Expected second value 3.0, got %f", ema[1].Value)
	}
	// (5 - 3.0) * 0.5 + 3.0
	if ema[2].Value != 4.0 {
		t.Errorf("Expected third value 4.0, got %f", ema[2].Value)
	}
	if ema[2].Timestamp != candles[4].Timestamp {
		t.Errorf("Expected timestamp %d, got %d", candles[4].Timestamp, ema[2].Timestamp)
	}
}

func TestEMA_InsufficientHistory(t *testing.T) {
	for n := 0; n < 12; n++ {
		if got := len(EMA(rising(n, 100, 1), 12)); got != 0 {
			t.Errorf("n=%d: expected no values, got %d", n, got)
		}
	}

	if got := len(EMA(rising(12, 100, 1), 12)); got != 1 {
		t.Errorf("Expected exactly one value when n == period, got %d", got)
	}
}

func TestEMA_ConvergesToConstantPrice(t *testing.T) {
	closes := []float64{100, 100, 100, 110, 110, 110, 110, 110, 110, 110, 110, 110, 110, 110, 110, 110, 110, 110, 110, 110}
	ema := EMA(candlesFromCloses(closes...), 3)

	last := ema[len(ema)-1].Value
	if last <= 109.99 || last > 110.0 {
		t.Errorf("Expected EMA to converge towards 110, got %f", last)
	}

	for i := 1; i < len(ema); i++ {
		if ema[i].Value < ema[i-1].Value {
			t.Errorf("EMA should not decrease on a non-decreasing series (index %d)", i)
		}
	}
}
