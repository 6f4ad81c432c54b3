package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/mohamedkhairy/kline-analyzer/internal/analysis"
	"github.com/mohamedkhairy/kline-analyzer/internal/kline"
	"github.com/mohamedkhairy/kline-analyzer/internal/models"
	"github.com/mohamedkhairy/kline-analyzer/pkg/indicator"
	"github.com/mohamedkhairy/kline-analyzer/pkg/logger"
)

// MarketHandler handles candle, price and analysis endpoints
type MarketHandler struct {
	klines    *kline.Service
	analyzer  *analysis.Service
	presenter *Presenter
}

// NewMarketHandler creates a new market handler
func NewMarketHandler(klines *kline.Service, analyzer *analysis.Service, presenter *Presenter) *MarketHandler {
	return &MarketHandler{
		klines:    klines,
		analyzer:  analyzer,
		presenter: presenter,
	}
}

// pairFromRequest reads {base}/{quote} from the path and ?chain= from the query
func pairFromRequest(r *http.Request) (models.TradingPair, error) {
	vars := mux.Vars(r)
	pair := models.NewTradingPair(vars["base"], vars["quote"], r.URL.Query().Get("chain"))
	if err := pair.Validate(); err != nil {
		return models.TradingPair{}, err
	}
	return pair, nil
}

// periodFromRequest reads ?period=, defaulting to 1h
func periodFromRequest(r *http.Request) (models.TimePeriod, error) {
	raw := r.URL.Query().Get("period")
	if raw == "" {
		return models.OneHour, nil
	}
	return models.ParseTimePeriod(raw)
}

// limitFromRequest reads ?limit=; 0 means the service default
func limitFromRequest(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, errors.New("limit must be a positive integer")
	}
	return limit, nil
}

// GetKlines handles GET /api/v1/market/pairs/{base}/{quote}/klines
func (h *MarketHandler) GetKlines(w http.ResponseWriter, r *http.Request) {
	pair, period, ok := h.parsePairAndPeriod(w, r)
	if !ok {
		return
	}
	limit, err := limitFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	candles, err := h.klines.GetCandlesticks(r.Context(), pair, period, limit)
	if err != nil {
		h.respondWithServiceError(r.Context(), w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"pair":    pair,
		"period":  period,
		"candles": h.presenter.Candles(candles),
		"count":   len(candles),
	})
}

// GetLatest handles GET /api/v1/market/pairs/{base}/{quote}/latest
func (h *MarketHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	pair, period, ok := h.parsePairAndPeriod(w, r)
	if !ok {
		return
	}

	candle, err := h.klines.GetLatest(r.Context(), pair, period)
	if err != nil {
		h.respondWithServiceError(r.Context(), w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"pair":   pair,
		"period": period,
		"candle": h.presenter.Candle(candle),
	})
}

// GetPrice handles GET /api/v1/market/pairs/{base}/{quote}/price
func (h *MarketHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	pair, err := pairFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	price, err := h.klines.GetPrice(r.Context(), pair)
	if err != nil {
		h.respondWithServiceError(r.Context(), w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, h.presenter.Price(price))
}

// GetAnalysis handles GET /api/v1/market/pairs/{base}/{quote}/analysis
func (h *MarketHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	pair, period, ok := h.parsePairAndPeriod(w, r)
	if !ok {
		return
	}
	limit, err := limitFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	var mode indicator.MACDMode // empty selects the service default
	if raw := r.URL.Query().Get("macd"); raw != "" {
		parsed, ok := indicator.ParseMACDMode(raw)
		if !ok {
			respondWithError(w, http.StatusBadRequest, "macd must be simple or textbook")
			return
		}
		mode = parsed
	}

	result, err := h.analyzer.Analyze(r.Context(), analysis.Request{
		Pair:     pair,
		Period:   period,
		Limit:    limit,
		MACDMode: mode,
	})
	if err != nil {
		h.respondWithServiceError(r.Context(), w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, h.presenter.Analysis(result))
}

// ListPeriods handles GET /api/v1/market/periods
func (h *MarketHandler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	periods := models.TimePeriods()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"periods":     periods,
		"count":       len(periods),
		"max_candles": h.klines.MaxCandles(),
	})
}

func (h *MarketHandler) parsePairAndPeriod(w http.ResponseWriter, r *http.Request) (models.TradingPair, models.TimePeriod, bool) {
	pair, err := pairFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return models.TradingPair{}, "", false
	}
	period, err := periodFromRequest(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return models.TradingPair{}, "", false
	}
	return pair, period, true
}

// respondWithServiceError maps service errors onto HTTP statuses
func (h *MarketHandler) respondWithServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidSymbol), errors.Is(err, models.ErrInvalidPeriod):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, kline.ErrNoData):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, kline.ErrInvalidSeries):
		logger.ErrorsTotal.WithLabelValues("api", "invalid_series").Inc()
		logger.WithContext(ctx).Error("Upstream returned invalid candles", logger.ErrorField(err))
		respondWithError(w, http.StatusBadGateway, "Upstream candle data is invalid")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondWithError(w, http.StatusGatewayTimeout, "Request cancelled")
	default:
		logger.ErrorsTotal.WithLabelValues("api", "internal").Inc()
		logger.WithContext(ctx).Error("Request failed", logger.ErrorField(err))
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
