package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kjstillabower/clima/internal/client"
	"github.com/kjstillabower/clima/internal/location"
	"github.com/kjstillabower/clima/internal/models"
	"github.com/kjstillabower/clima/internal/observability"
	"github.com/kjstillabower/clima/internal/record"
)

// Orchestrator runs the two weather flows:
//
//	by-location: resolve -> fetch(ByCoordinates) -> parse
//	by-city:     validate -> fetch(ByCityName) -> parse
//
// It holds no per-run state; concurrent runs are independent.
type Orchestrator struct {
	resolver   location.Resolver
	client     client.WeatherClient
	dispatcher *Dispatcher
	logger     *zap.Logger
}

// NewOrchestrator wires the pipeline. dispatcher may be nil, in which case
// async callbacks run on the worker goroutine.
func NewOrchestrator(resolver location.Resolver, weatherClient client.WeatherClient, dispatcher *Dispatcher, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		resolver:   resolver,
		client:     weatherClient,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// ByLocation resolves the current location and fetches its weather. A
// resolution failure is returned as-is and no fetch is made.
func (o *Orchestrator) ByLocation(ctx context.Context) (Result, error) {
	coords, err := o.resolver.Resolve(ctx)
	if err != nil {
		o.recordRun(ModeLocation, err)
		return Result{}, fmt.Errorf("resolve location: %w", err)
	}
	res, err := o.fetch(ctx, models.NewCoordinatesRequest(coords))
	o.recordRun(ModeLocation, err)
	return res, err
}

// ByCity fetches weather for a typed city name. Blank input returns
// ErrEmptyInput without fetching.
func (o *Orchestrator) ByCity(ctx context.Context, city string) (Result, error) {
	req, err := models.NewCityRequest(city)
	if err != nil {
		observability.PipelineRunsTotal.WithLabelValues(string(ModeCity), "empty_input").Inc()
		return Result{}, ErrEmptyInput
	}
	res, err := o.fetch(ctx, req)
	o.recordRun(ModeCity, err)
	return res, err
}

// RequestByLocation runs ByLocation in the background and delivers the
// outcome to p on the dispatcher.
func (o *Orchestrator) RequestByLocation(ctx context.Context, p Presenter) {
	go func() {
		res, err := o.ByLocation(ctx)
		o.deliver(p, res, err)
	}()
}

// RequestByCity runs ByCity in the background and delivers the outcome to p
// on the dispatcher. It returns false for blank input; nothing runs and p is
// never called.
func (o *Orchestrator) RequestByCity(ctx context.Context, city string, p Presenter) bool {
	req, err := models.NewCityRequest(city)
	if err != nil {
		observability.PipelineRunsTotal.WithLabelValues(string(ModeCity), "empty_input").Inc()
		return false
	}
	go func() {
		res, err := o.fetch(ctx, req)
		o.recordRun(ModeCity, err)
		o.deliver(p, res, err)
	}()
	return true
}

func (o *Orchestrator) fetch(ctx context.Context, req models.WeatherRequest) (Result, error) {
	raw, err := o.client.Fetch(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("fetch weather: %w", err)
	}
	rec := record.Parse(raw)
	return Result{
		Request:     req,
		Record:      rec,
		Raw:         string(raw),
		Coordinates: rec.Coordinates,
	}, nil
}

func (o *Orchestrator) deliver(p Presenter, res Result, err error) {
	show := func() {
		if err != nil {
			p.ShowFailure(FailureFrom(err))
			return
		}
		p.ShowResults(res)
	}
	if o.dispatcher == nil {
		show()
		return
	}
	if !o.dispatcher.Post(show) {
		observability.OrNop(o.logger).Warn("dispatcher stopped; dropping pipeline result", zap.Error(err))
	}
}

func (o *Orchestrator) recordRun(mode Mode, err error) {
	outcome := "success"
	if err != nil {
		outcome = string(FailureFrom(err).Kind)
	}
	observability.PipelineRunsTotal.WithLabelValues(string(mode), outcome).Inc()
}
