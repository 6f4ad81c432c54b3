package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessCheck reports whether a dependency can serve traffic
type ReadinessCheck func(ctx context.Context) error

// RouterConfig holds what the router needs besides the handlers
type RouterConfig struct {
	Auth         *AuthManager
	RateLimitRPS int
	CORSOrigins  []string
	Checks       map[string]ReadinessCheck
}

// NewRouter wires the market routes, probes and metrics behind the middleware stack.
// CORS and tracing wrap the whole router; the rest runs after route matching so
// metrics can be labelled with the route template.
func NewRouter(market *MarketHandler, cfg RouterConfig) http.Handler {
	router := mux.NewRouter()

	v1 := router.PathPrefix("/api/v1/market").Subrouter()
	v1.HandleFunc("/periods", market.ListPeriods).Methods(http.MethodGet)

	pairs := v1.PathPrefix("/pairs/{base}/{quote}").Subrouter()
	pairs.HandleFunc("/klines", market.GetKlines).Methods(http.MethodGet)
	pairs.HandleFunc("/latest", market.GetLatest).Methods(http.MethodGet)
	pairs.HandleFunc("/price", market.GetPrice).Methods(http.MethodGet)
	pairs.HandleFunc("/analysis", market.GetAnalysis).Methods(http.MethodGet)

	// Health check endpoints
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		failed := map[string]string{}
		for name, check := range cfg.Checks {
			if err := check(ctx); err != nil {
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			respondWithJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status": "not ready",
				"failed": failed,
			})
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	router.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	// Metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	auth := cfg.Auth
	if auth == nil {
		auth = NewAuthManager("")
	}
	router.Use(
		mux.MiddlewareFunc(LoggingMiddleware()),
		mux.MiddlewareFunc(RecoveryMiddleware()),
		mux.MiddlewareFunc(AuthMiddleware(auth)),
		mux.MiddlewareFunc(RateLimitMiddleware(cfg.RateLimitRPS)),
	)

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return ChainMiddleware(
		CORSMiddleware(origins),
		TracingMiddleware(),
	)(router)
}
