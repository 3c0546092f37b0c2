package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/clima/internal/observability"
)

// NewRouter builds the route table. Timeout and rate limiting apply to the
// /weather subrouter only, so health and metrics stay reachable under load.
func NewRouter(h *Handler, logger *zap.Logger, requestTimeout time.Duration, limiter *rate.Limiter) *mux.Router {
	r := mux.NewRouter()
	r.Use(CorrelationIDMiddleware(logger))
	r.Use(MetricsMiddleware)

	r.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	r.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	weather := r.PathPrefix("/weather").Subrouter()
	weather.Use(RateLimitMiddleware(limiter))
	weather.Use(TimeoutMiddleware(requestTimeout))
	weather.HandleFunc("/location", h.GetLocationWeather).Methods(http.MethodGet)
	weather.HandleFunc("/city", h.GetCityWeather).Methods(http.MethodGet)
	return r
}
