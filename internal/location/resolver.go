package location

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/clima/internal/models"
	"github.com/kjstillabower/clima/internal/observability"
)

// OneShotResolver completes on the first update from its provider and then
// unsubscribes, so each Resolve yields at most one location.
type OneShotResolver struct {
	provider   Provider
	permission PermissionChecker
	timeout    time.Duration // 0 waits until ctx is done
	logger     *zap.Logger
}

// NewOneShotResolver returns a resolver over provider. timeout bounds the wait
// for the first update; 0 waits indefinitely.
func NewOneShotResolver(provider Provider, permission PermissionChecker, timeout time.Duration, logger *zap.Logger) *OneShotResolver {
	return &OneShotResolver{
		provider:   provider,
		permission: permission,
		timeout:    timeout,
		logger:     logger,
	}
}

// Resolve returns the first location update. Without permission it fails with
// ReasonPermissionDenied and never touches the provider.
func (r *OneShotResolver) Resolve(ctx context.Context) (models.Coordinates, error) {
	start := time.Now()
	logger := observability.LoggerFromContext(ctx, r.logger).With(zap.String("provider", r.provider.Name()))

	if r.permission == nil || !r.permission.LocationPermitted() {
		return r.fail(start, logger, &UnavailableError{Reason: ReasonPermissionDenied})
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	sub, err := r.provider.Subscribe(ctx)
	if err != nil {
		return r.fail(start, logger, &UnavailableError{Reason: ReasonProviderError, Err: err})
	}
	logger.Debug("location subscription started")
	defer func() {
		sub.Cancel()
		logger.Debug("location subscription cancelled")
	}()

	select {
	case coords, ok := <-sub.Updates():
		if !ok {
			return r.fail(start, logger, &UnavailableError{Reason: ReasonNoFix})
		}
		observability.LocationResolutionsTotal.WithLabelValues("resolved").Inc()
		observability.LocationResolveDuration.Observe(time.Since(start).Seconds())
		logger.Debug("location resolved", zap.Duration("duration", time.Since(start)))
		return coords, nil
	case <-ctx.Done():
		reason := ReasonCanceled
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = ReasonTimeout
		}
		return r.fail(start, logger, &UnavailableError{Reason: reason, Err: ctx.Err()})
	}
}

func (r *OneShotResolver) fail(start time.Time, logger *zap.Logger, ue *UnavailableError) (models.Coordinates, error) {
	observability.LocationResolutionsTotal.WithLabelValues(string(ue.Reason)).Inc()
	observability.LocationResolveDuration.Observe(time.Since(start).Seconds())
	logger.Info("location unavailable", zap.String("reason", string(ue.Reason)), zap.Error(ue.Err))
	return models.Coordinates{}, ue
}
