package indicator

import (
	"testing"
	"time"
)

func TestPriceChange(t *testing.T) {
	// One candle per minute: 100, 101, ..., 110
	candles := rising(11, 100, 1)

	pc := PriceChange(candles, 5*time.Minute)
	if pc == nil {
		t.Fatal("Expected price change result")
	}
	if pc.From != 105 || pc.To != 110 {
		t.Errorf("Expected 105 -> 110, got %f -> %f", pc.From, pc.To)
	}
	if pc.Change != 5 {
		t.Errorf("Expected change 5, got %f", pc.Change)
	}
	if !almostEqual(pc.ChangePercent, 5.0/105.0*100.0, 1e-9) {
		t.Errorf("Expected %f%%, got %f%%", 5.0/105.0*100.0, pc.ChangePercent)
	}
}

func TestPriceChange_WindowBetweenCandles(t *testing.T) {
	candles := rising(11, 100, 1)

	// 90 seconds back lands between candles; the earlier one is used
	pc := PriceChange(candles, 90*time.Second)
	if pc == nil || pc.From != 108 {
		t.Errorf("Expected reference close 108, got %+v", pc)
	}
}

func TestPriceChange_NotEnoughHistory(t *testing.T) {
	candles := rising(5, 100, 1)

	if pc := PriceChange(candles, time.Hour); pc != nil {
		t.Errorf("Expected nil when history is shorter than the window, got %+v", pc)
	}
	if pc := PriceChange(candles[:1], time.Minute); pc != nil {
		t.Errorf("Expected nil for a single candle, got %+v", pc)
	}
	if pc := PriceChange(candles, 0); pc != nil {
		t.Errorf("Expected nil for a zero window, got %+v", pc)
	}
}
