package indicator

import (
	"math"
	"testing"
)

func TestBollinger_KnownValues(t *testing.T) {
	// Population standard deviation of these closes is exactly 2
	candles := candlesFromCloses(2, 4, 4, 4, 5, 5, 7, 9)

	bb := Bollinger(candles, 8, 2.0)
	if bb == nil {
		t.Fatal("Expected Bollinger result")
	}
	if bb.Middle != 5.0 {
		t.Errorf("Expected middle 5, got %f", bb.Middle)
	}
	if bb.Upper != 9.0 {
		t.Errorf("Expected upper 9, got %f", bb.Upper)
	}
	if bb.Lower != 1.0 {
		t.Errorf("Expected lower 1, got %f", bb.Lower)
	}
	if !almostEqual(bb.Bandwidth, 160.0, 1e-9) {
		t.Errorf("Expected bandwidth 160, got %f", bb.Bandwidth)
	}
}

func TestBollinger_UsesLastWindow(t *testing.T) {
	// Older closes fall outside the window and must not widen the bands
	candles := candlesFromCloses(1000, 1, 10, 10, 10)

	bb := Bollinger(candles, 3, 2.0)
	if bb == nil {
		t.Fatal("Expected Bollinger result")
	}
	if bb.Middle != 10 || bb.Upper != 10 || bb.Lower != 10 || bb.Bandwidth != 0 {
		t.Errorf("Expected flat bands at 10, got %+v", bb)
	}
}

func TestBollinger_InsufficientHistory(t *testing.T) {
	if bb := Bollinger(rising(19, 100, 1), 20, 2.0); bb != nil {
		t.Errorf("Expected nil for 19 candles, got %+v", bb)
	}
	if bb := Bollinger(rising(20, 100, 1), 20, 2.0); bb == nil {
		t.Error("Expected a result for 20 candles")
	}
}

func TestBollinger_ZeroMiddle(t *testing.T) {
	candles := candlesFromCloses(1, -1, 1, -1)
	bb := Bollinger(candles, 4, 2.0)
	if bb == nil {
		t.Fatal("Expected Bollinger result")
	}
	if bb.Bandwidth != 0 || math.IsNaN(bb.Bandwidth) {
		t.Errorf("Expected zero bandwidth for zero middle, got %f", bb.Bandwidth)
	}
}

func TestBollinger_Symmetry(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		bb := Bollinger(randomSeries(seed, 40), 20, 2.0)
		if bb == nil {
			t.Fatalf("seed %d: expected Bollinger result", seed)
		}
		above := bb.Upper - bb.Middle
		below := bb.Middle - bb.Lower
		if !almostEqual(above, below, 1e-9) {
			t.Errorf("seed %d: bands not symmetric: %v vs %v", seed, above, below)
		}
		if above < 0 {
			t.Errorf("seed %d: upper below middle", seed)
		}
	}
}
