package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/clima/internal/models"
)

// DefaultNetworkURL is the ip-api.com JSON endpoint for the caller's public address.
const DefaultNetworkURL = "http://ip-api.com/json/?fields=status,message,lat,lon,city"

// errLookupFailed is returned when the geolocation service answers with status "fail".
var errLookupFailed = errors.New("geolocation lookup failed")

// NetworkProvider estimates position from the host's network address. The fix
// is approximate (city level), never GPS precision. While subscribed it polls
// the endpoint every interval and publishes each successful lookup; failed
// lookups are logged and retried on the next tick.
type NetworkProvider struct {
	url      string
	interval time.Duration
	client   *http.Client
	logger   *zap.Logger
}

// NewNetworkProvider returns a provider for url. requestTimeout bounds each lookup.
func NewNetworkProvider(url string, interval, requestTimeout time.Duration, logger *zap.Logger) *NetworkProvider {
	if url == "" {
		url = DefaultNetworkURL
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &NetworkProvider{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: requestTimeout},
		logger:   logger,
	}
}

func (p *NetworkProvider) Name() string { return "network" }

// Subscribe starts polling. Polling runs until the subscription is cancelled
// or ctx is done.
func (p *NetworkProvider) Subscribe(ctx context.Context) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pollCtx, cancel := context.WithCancel(ctx)
	s := newStream(cancel)
	go p.poll(pollCtx, s)
	return s, nil
}

func (p *NetworkProvider) poll(ctx context.Context, s *stream) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		coords, err := p.lookup(ctx)
		if err == nil {
			if !s.publish(coords) {
				return
			}
		} else if ctx.Err() == nil && p.logger != nil {
			p.logger.Warn("network location lookup failed", zap.String("url", p.url), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

type ipAPIResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
	City    string   `json:"city"`
}

func (p *NetworkProvider) lookup(ctx context.Context) (models.Coordinates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Coordinates{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var body ipAPIResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil {
		return models.Coordinates{}, fmt.Errorf("parse response: %w", err)
	}
	if body.Status != "" && body.Status != "success" {
		return models.Coordinates{}, fmt.Errorf("%w: %s", errLookupFailed, body.Message)
	}
	if body.Lat == nil || body.Lon == nil {
		return models.Coordinates{}, fmt.Errorf("%w: response has no lat/lon", errLookupFailed)
	}
	return models.Coordinates{Latitude: *body.Lat, Longitude: *body.Lon}, nil
}
