package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/clima/internal/models"
	"github.com/kjstillabower/clima/internal/observability"
)

// WeatherClient fetches raw current-conditions payloads.
type WeatherClient interface {
	Fetch(ctx context.Context, req models.WeatherRequest) ([]byte, error)
}

var (
	// ErrNetwork matches every fetch failure. The category on FetchError is for logs and metrics only.
	ErrNetwork = errors.New("network error")

	ErrInvalidAPIKey  = errors.New("invalid API key")
	ErrInvalidRequest = errors.New("invalid weather request")
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 1 << 20

// FetchError describes one failed fetch.
type FetchError struct {
	Category   ErrorCategory
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (%s, HTTP %d): %v", ErrNetwork, e.Category, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", ErrNetwork, e.Category, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is reports ErrNetwork so callers can treat all fetch failures alike.
func (e *FetchError) Is(target error) bool { return target == ErrNetwork }

// OpenWeatherClient calls the OpenWeatherMap current weather endpoint.
// It makes exactly one attempt per Fetch and holds no per-call state.
type OpenWeatherClient struct {
	apiKey string
	apiURL string
	client *http.Client
	logger *zap.Logger
}

// NewOpenWeatherClient returns a client for apiURL. timeout bounds each whole
// request including the body read; 0 disables the bound.
func NewOpenWeatherClient(apiKey, apiURL string, timeout time.Duration, logger *zap.Logger) (*OpenWeatherClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidAPIKey)
	}
	if _, err := url.Parse(apiURL); err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	return &OpenWeatherClient{
		apiKey: apiKey,
		apiURL: apiURL,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}, nil
}

// Fetch issues one GET for req and returns the full response body.
// Any failure is a *FetchError matching ErrNetwork.
func (c *OpenWeatherClient) Fetch(ctx context.Context, req models.WeatherRequest) ([]byte, error) {
	start := time.Now()

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, c.fail(ctx, req, start, "error", &FetchError{Category: ErrorCategoryRequest, Err: err})
	}
	if corrID := observability.CorrelationID(ctx); corrID != "" {
		httpReq.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, c.fail(ctx, req, start, "error", &FetchError{
			Category: categorizeTransport(err),
			Err:      fmt.Errorf("http request failed: %w", err),
		})
	}
	defer resp.Body.Close()

	status := observability.StatusLabel(resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, c.fail(ctx, req, start, status, &FetchError{
			Category:   ErrorCategoryHTTPStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, c.fail(ctx, req, start, status, &FetchError{
			Category:   ErrorCategoryReadBody,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("read response body: %w", err),
		})
	}

	observability.WeatherAPICallsTotal.WithLabelValues(status).Inc()
	observability.WeatherAPIDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	observability.LoggerFromContext(ctx, c.logger).Debug("weather fetched",
		zap.Stringer("mode", req.Kind()),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)))
	return body, nil
}

// fail records metrics and a warning for fe and returns it.
func (c *OpenWeatherClient) fail(ctx context.Context, req models.WeatherRequest, start time.Time, status string, fe *FetchError) error {
	observability.WeatherAPICallsTotal.WithLabelValues(status).Inc()
	observability.WeatherAPIDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	observability.WeatherAPIErrorsTotal.WithLabelValues(string(fe.Category)).Inc()

	fields := []zap.Field{
		zap.Stringer("mode", req.Kind()),
		zap.String("category", string(fe.Category)),
		zap.Duration("duration", time.Since(start)),
		zap.Error(fe.Err),
	}
	if fe.StatusCode != 0 {
		fields = append(fields, zap.Int("status_code", fe.StatusCode))
	}
	observability.LoggerFromContext(ctx, c.logger).Warn("weather fetch failed", fields...)
	return fe
}

func (c *OpenWeatherClient) buildRequest(ctx context.Context, req models.WeatherRequest) (*http.Request, error) {
	baseURL, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	// Parameters already on the configured URL are kept.
	params := baseURL.Query()
	switch req.Kind() {
	case models.ByCoordinates:
		coords, _ := req.Coordinates()
		params.Set("lat", formatDegrees(coords.Latitude))
		params.Set("lon", formatDegrees(coords.Longitude))
	case models.ByCityName:
		city, _ := req.City()
		params.Set("q", city)
	default:
		return nil, ErrInvalidRequest
	}
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")
	baseURL.RawQuery = params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	return httpReq, nil
}

func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
