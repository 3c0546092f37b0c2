package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/clima/internal/client"
	"github.com/kjstillabower/clima/internal/config"
	httphandler "github.com/kjstillabower/clima/internal/http"
	"github.com/kjstillabower/clima/internal/lifecycle"
	"github.com/kjstillabower/clima/internal/location"
	"github.com/kjstillabower/clima/internal/models"
	"github.com/kjstillabower/clima/internal/observability"
	"github.com/kjstillabower/clima/internal/pipeline"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	warnUnboundedWaits(logger, cfg)

	weatherClient, err := client.NewOpenWeatherClient(cfg.WeatherAPIKey, cfg.WeatherAPIURL, cfg.WeatherAPITimeout, logger)
	if err != nil {
		logger.Fatal("weather client", zap.Error(err))
	}

	var provider location.Provider
	switch cfg.LocationProvider {
	case config.ProviderStatic:
		provider = location.NewStaticProvider(models.Coordinates{Latitude: cfg.LocationStaticLat, Longitude: cfg.LocationStaticLon})
	default:
		provider = location.NewNetworkProvider(cfg.LocationNetworkURL, cfg.LocationPollInterval, cfg.LocationLookupTimeout, logger)
	}
	logger.Info("location provider",
		zap.String("provider", provider.Name()),
		zap.Bool("permission_granted", cfg.LocationPermissionGranted))
	resolver := location.NewOneShotResolver(provider, location.StaticPermission(cfg.LocationPermissionGranted), cfg.LocationTimeout, logger)

	dispatcher := pipeline.NewDispatcher(64)
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()
	go dispatcher.Run(dispatchCtx)

	orchestrator := pipeline.NewOrchestrator(resolver, weatherClient, dispatcher, logger)

	healthConfig := &httphandler.HealthConfig{
		DegradedWindow:   cfg.DegradedWindow,
		DegradedErrorPct: cfg.DegradedErrorPct,
	}
	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	handler := httphandler.NewHandler(orchestrator, healthConfig, cfg.CityMaxLength, logger)
	observability.RegisterRateLimitGauges(cfg.DegradedWindow)

	srv := &http.Server{
		Addr:        ":" + cfg.ServerPort,
		Handler:     httphandler.NewRouter(handler, logger, cfg.RequestTimeout, limiter),
		ReadTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.BeginShutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.InFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, 100*time.Millisecond); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}
	stopDispatch()

	if err := observability.FlushTelemetry(logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// warnUnboundedWaits flags timeouts configured as 0. Each one lets a run wait
// forever on its stage.
func warnUnboundedWaits(logger *zap.Logger, cfg *config.Config) {
	if cfg.LocationTimeout == 0 {
		logger.Warn("location.timeout is 0; location resolution waits indefinitely for a fix")
	}
	if cfg.WeatherAPITimeout == 0 {
		logger.Warn("weather_api.timeout is 0; weather fetches have no timeout")
	}
	if cfg.RequestTimeout == 0 {
		logger.Warn("request.timeout is 0; /weather requests have no deadline")
	}
}
