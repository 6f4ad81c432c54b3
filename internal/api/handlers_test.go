package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/mohamedkhairy/kline-analyzer/internal/analysis"
	"github.com/mohamedkhairy/kline-analyzer/internal/config"
	"github.com/mohamedkhairy/kline-analyzer/internal/kline"
	"github.com/mohamedkhairy/kline-analyzer/internal/models"
	"github.com/mohamedkhairy/kline-analyzer/internal/storage"
)

var ethUSDC = models.NewTradingPair("ETH", "USDC", "")

func hourlySeries(n int) []models.Candlestick {
	candles := make([]models.Candlestick, n)
	for i := range candles {
		c := 2500 + float64(i)*1.123456789
		candles[i] = models.Candlestick{
			Timestamp:   int64(i+1) * 3600,
			Open:        c,
			High:        c + 2,
			Low:         c - 2,
			Close:       c + 0.5,
			Volume:      10,
			QuoteVolume: 10 * c,
		}
	}
	return candles
}

func newTestHandler(t *testing.T) (*MarketHandler, *kline.MemorySource) {
	t.Helper()
	src := kline.NewMemorySource()
	src.Put(ethUSDC, models.OneHour, hourlySeries(60))
	klines := kline.NewService(src, config.KLineConfig{MaxCandles: 1000, DefaultLimit: 100})
	analyzer := analysis.NewService(klines, storage.NewMockRedisClient(), config.AnalysisConfig{CacheTTL: time.Minute, MACDMode: "simple"})
	return NewMarketHandler(klines, analyzer, NewPresenter(2)), src
}

func doRequest(handler http.HandlerFunc, target string, vars map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", target, nil)
	req = mux.SetURLVars(req, vars)
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	return response
}

var ethVars = map[string]string{"base": "eth", "quote": "usdc"}

func TestMarketHandler_GetKlines(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := doRequest(handler.GetKlines, "/api/v1/market/pairs/eth/usdc/klines?period=1h&limit=5", ethVars)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	response := decode(t, w)
	if response["count"].(float64) != 5 {
		t.Errorf("Expected 5 candles, got %v", response["count"])
	}
	candles := response["candles"].([]interface{})
	first := candles[0].(map[string]interface{})
	if first["timestamp"].(float64) != 56*3600 {
		t.Errorf("Expected oldest of the last five candles first, got %v", first["timestamp"])
	}
	// 2500 + 55*1.123456789 = 2561.790123395 -> 2561.79
	if first["open"].(float64) != 2561.79 {
		t.Errorf("Expected rounded open 2561.79, got %v", first["open"])
	}
	pair := response["pair"].(map[string]interface{})
	if pair["base"] != "ETH" || pair["chain"] != "ethereum" {
		t.Errorf("Expected normalized pair, got %v", pair)
	}
}

func TestMarketHandler_GetKlines_BadRequests(t *testing.T) {
	handler, _ := newTestHandler(t)

	tests := []struct {
		name   string
		target string
		vars   map[string]string
	}{
		{"bad period", "/x?period=2h", ethVars},
		{"bad limit", "/x?limit=abc", ethVars},
		{"zero limit", "/x?limit=0", ethVars},
		{"same symbols", "/x", map[string]string{"base": "eth", "quote": "ETH"}},
		{"empty base", "/x", map[string]string{"base": "", "quote": "usdc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(handler.GetKlines, tt.target, tt.vars)
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
			}
		})
	}
}

func TestMarketHandler_InvalidSeriesIsBadGateway(t *testing.T) {
	handler, src := newTestHandler(t)
	broken := hourlySeries(3)
	broken[2].Timestamp = broken[0].Timestamp
	src.Put(ethUSDC, models.OneHour, broken)

	for name, fn := range map[string]http.HandlerFunc{
		"klines":   handler.GetKlines,
		"analysis": handler.GetAnalysis,
	} {
		w := doRequest(fn, "/x?period=1h", ethVars)
		if w.Code != http.StatusBadGateway {
			t.Errorf("%s: expected status %d, got %d", name, http.StatusBadGateway, w.Code)
		}
	}
}

func TestMarketHandler_SourceFailure(t *testing.T) {
	handler, src := newTestHandler(t)
	src.FailWith(errors.New("boom"))

	w := doRequest(handler.GetKlines, "/x", ethVars)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}

	src.FailWith(context.DeadlineExceeded)
	w = doRequest(handler.GetKlines, "/x", ethVars)
	if w.Code != http.StatusGatewayTimeout {
		t.Errorf("Expected status %d, got %d", http.StatusGatewayTimeout, w.Code)
	}
}

func TestMarketHandler_GetLatest(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := doRequest(handler.GetLatest, "/x?period=1h", ethVars)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	candle := decode(t, w)["candle"].(map[string]interface{})
	if candle["timestamp"].(float64) != 60*3600 {
		t.Errorf("Expected last candle, got %v", candle["timestamp"])
	}

	w = doRequest(handler.GetLatest, "/x?period=1d", ethVars)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d for empty series, got %d", http.StatusNotFound, w.Code)
	}
}

func TestMarketHandler_GetPrice(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := doRequest(handler.GetPrice, "/x", ethVars)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	response := decode(t, w)
	// close[59] = 2500 + 59*1.123456789 + 0.5 = 2566.783950551
	if response["price"].(float64) != 2566.78 {
		t.Errorf("Expected price 2566.78, got %v", response["price"])
	}
	// 24 hourly steps of 1.123456789 = 26.962962936
	if response["change_24h"].(float64) != 26.96 {
		t.Errorf("Expected change 26.96, got %v", response["change_24h"])
	}
}

func TestMarketHandler_GetAnalysis(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := doRequest(handler.GetAnalysis, "/x?period=1h&limit=60&macd=textbook", ethVars)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	response := decode(t, w)
	if response["macd_mode"] != "textbook" {
		t.Errorf("Expected textbook mode, got %v", response["macd_mode"])
	}
	if response["candles"].(float64) != 60 {
		t.Errorf("Expected 60 candles, got %v", response["candles"])
	}
	ta := response["analysis"].(map[string]interface{})
	if ta["trend"] != "bullish" {
		t.Errorf("Expected bullish trend for a rising series, got %v", ta["trend"])
	}
	if _, ok := ta["rsi"]; !ok {
		t.Error("Expected rsi in analysis")
	}

	w = doRequest(handler.GetAnalysis, "/x?macd=fancy", ethVars)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d for unknown macd mode, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestMarketHandler_ShortSeriesOmitsIndicators(t *testing.T) {
	handler, src := newTestHandler(t)
	src.Put(ethUSDC, models.FiveMinutes, hourlySeries(3))

	w := doRequest(handler.GetAnalysis, "/x?period=5m", ethVars)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	ta := decode(t, w)["analysis"].(map[string]interface{})
	for _, key := range []string{"rsi", "macd", "bollinger", "atr"} {
		if _, ok := ta[key]; ok {
			t.Errorf("Expected %s to be omitted for a 3-candle series", key)
		}
	}
	if _, ok := ta["vwap"]; !ok {
		t.Error("Expected vwap for a non-empty series with volume")
	}
	if ta["signal"] != "neutral" {
		t.Errorf("Expected neutral signal, got %v", ta["signal"])
	}
}

func TestNewRouter(t *testing.T) {
	handler, _ := newTestHandler(t)
	router := NewRouter(handler, RouterConfig{
		Auth:         NewAuthManager(""),
		RateLimitRPS: 100,
		Checks: map[string]ReadinessCheck{
			"redis": func(ctx context.Context) error { return nil },
		},
	})

	tests := []struct {
		target string
		want   int
	}{
		{"/api/v1/market/pairs/eth/usdc/klines?limit=3", http.StatusOK},
		{"/api/v1/market/pairs/eth/usdc/latest", http.StatusOK},
		{"/api/v1/market/pairs/eth/usdc/price", http.StatusOK},
		{"/api/v1/market/pairs/eth/usdc/analysis", http.StatusOK},
		{"/api/v1/market/periods", http.StatusOK},
		{"/health", http.StatusOK},
		{"/ready", http.StatusOK},
		{"/live", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/api/v1/market/pairs/eth/usdc/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		req := httptest.NewRequest("GET", tt.target, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != tt.want {
			t.Errorf("GET %s: expected status %d, got %d", tt.target, tt.want, w.Code)
		}
		if tt.want == http.StatusOK && w.Header().Get(TraceHeader) == "" {
			t.Errorf("GET %s: expected trace header", tt.target)
		}
	}
}

func TestNewRouter_NotReady(t *testing.T) {
	handler, _ := newTestHandler(t)
	router := NewRouter(handler, RouterConfig{
		Checks: map[string]ReadinessCheck{
			"database": func(ctx context.Context) error { return errors.New("down") },
		},
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
	}
	failed := decode(t, w)["failed"].(map[string]interface{})
	if failed["database"] != "down" {
		t.Errorf("Expected database failure to be reported, got %v", failed)
	}
}

func TestNewRouter_RequiresTokenWhenConfigured(t *testing.T) {
	handler, _ := newTestHandler(t)
	router := NewRouter(handler, RouterConfig{Auth: NewAuthManager(testSecret)})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/market/pairs/eth/usdc/price", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected health to skip auth, got %d", w.Code)
	}
}
