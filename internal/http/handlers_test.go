package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjstillabower/clima/internal/client"
	"github.com/kjstillabower/clima/internal/lifecycle"
	"github.com/kjstillabower/clima/internal/location"
	"github.com/kjstillabower/clima/internal/models"
	"github.com/kjstillabower/clima/internal/pipeline"
	"github.com/kjstillabower/clima/internal/traffic"
)

const montrealPayload = `{"main":{"temp":22.7},"name":"Montreal","weather":[{"id":500}],"coord":{"lat":45.5,"lon":-73.6}}`

type mockResolver struct {
	coords models.Coordinates
	err    error
}

func (m *mockResolver) Resolve(ctx context.Context) (models.Coordinates, error) {
	return m.coords, m.err
}

type mockWeatherClient struct {
	body  []byte
	err   error
	calls atomic.Int32
	block bool // if set, Fetch waits for ctx.Done()
}

func (m *mockWeatherClient) Fetch(ctx context.Context, req models.WeatherRequest) ([]byte, error) {
	m.calls.Add(1)
	if m.block {
		<-ctx.Done()
		return nil, &client.FetchError{Category: client.CategorizeError(ctx.Err()), Err: ctx.Err()}
	}
	return m.body, m.err
}

func newTestHandler(t *testing.T, res location.Resolver, wc client.WeatherClient, hc *HealthConfig, logger *zap.Logger) *Handler {
	t.Helper()
	traffic.Reset()
	t.Cleanup(traffic.Reset)

	d := pipeline.NewDispatcher(8)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go d.Run(ctx)

	return NewHandler(pipeline.NewOrchestrator(res, wc, d, logger), hc, 100, logger)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func errorCode(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	e, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("body has no error object: %v", body)
	}
	return e
}

// TestHandler_GetLocationWeather_Success verifies the results view for a resolved location.
func TestHandler_GetLocationWeather_Success(t *testing.T) {
	wc := &mockWeatherClient{body: []byte(montrealPayload)}
	h := newTestHandler(t, &mockResolver{coords: models.Coordinates{Latitude: 45.51, Longitude: -73.57}}, wc, nil, nil)

	w := httptest.NewRecorder()
	h.GetLocationWeather(w, httptest.NewRequest("GET", "/weather/location", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	checks := map[string]interface{}{
		"view":               "results",
		"temperature":        float64(23),
		"displayTemperature": "23°",
		"city":               "Montreal",
		"message":            "Time for shorts and 👕",
		"icon":               "rain",
		"conditionCode":      float64(500),
		"raw":                montrealPayload,
	}
	for k, want := range checks {
		if body[k] != want {
			t.Errorf("%s = %v, want %v", k, body[k], want)
		}
	}
	coords := body["coordinates"].(map[string]interface{})
	if coords["lat"] != 45.5 || coords["lon"] != -73.6 {
		t.Errorf("coordinates = %v, want payload coordinates", coords)
	}
	marker := body["marker"].(map[string]interface{})
	if marker["title"] != "Your Location" {
		t.Errorf("marker.title = %v", marker["title"])
	}
	if got := traffic.Count(traffic.OutcomeSuccess, time.Minute); got != 1 {
		t.Errorf("success outcomes = %d, want 1", got)
	}
}

func TestHandler_GetLocationWeather_EmptyPayloadDefaults(t *testing.T) {
	h := newTestHandler(t, &mockResolver{}, &mockWeatherClient{body: []byte(`{}`)}, nil, nil)

	w := httptest.NewRecorder()
	h.GetLocationWeather(w, httptest.NewRequest("GET", "/weather/location", nil))

	body := decodeBody(t, w)
	if body["icon"] != "default_weather" || body["city"] != "" || body["temperature"] != float64(0) {
		t.Errorf("body = %v", body)
	}
	if _, ok := body["conditionCode"]; ok {
		t.Error("conditionCode present for payload without weather id")
	}
	if body["message"] != "You’ll need 🧣 and 🧤" {
		t.Errorf("message = %v", body["message"])
	}
}

// TestHandler_GetLocationWeather_PermissionDenied verifies the 503 body and that no fetch happens.
func TestHandler_GetLocationWeather_PermissionDenied(t *testing.T) {
	wc := &mockWeatherClient{body: []byte(montrealPayload)}
	res := &mockResolver{err: &location.UnavailableError{Reason: location.ReasonPermissionDenied}}
	h := newTestHandler(t, res, wc, nil, nil)

	req := httptest.NewRequest("GET", "/weather/location", nil)
	w := httptest.NewRecorder()
	CorrelationIDMiddleware(nil)(http.HandlerFunc(h.GetLocationWeather)).ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	e := errorCode(t, decodeBody(t, w))
	if e["code"] != "LOCATION_UNAVAILABLE" || e["reason"] != "permission_denied" || e["message"] != "Location permission denied" {
		t.Errorf("error = %v", e)
	}
	if e["requestId"] == "" {
		t.Error("requestId empty")
	}
	if wc.calls.Load() != 0 {
		t.Errorf("fetch calls = %d, want 0", wc.calls.Load())
	}
	if got := traffic.Count(traffic.OutcomeFailure, time.Minute); got != 1 {
		t.Errorf("failure outcomes = %d, want 1", got)
	}
}

func TestHandler_GetLocationWeather_NetworkError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	wc := &mockWeatherClient{err: &client.FetchError{Category: client.ErrorCategoryHTTPStatus, StatusCode: 404}}
	h := newTestHandler(t, &mockResolver{}, wc, nil, logger)

	req := httptest.NewRequest("GET", "/weather/location", nil)
	w := httptest.NewRecorder()
	CorrelationIDMiddleware(logger)(http.HandlerFunc(h.GetLocationWeather)).ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	e := errorCode(t, decodeBody(t, w))
	if e["code"] != "NETWORK_ERROR" || e["message"] != "Unable to fetch weather data" {
		t.Errorf("error = %v", e)
	}
	if _, ok := e["reason"]; ok {
		t.Error("network error body must not expose the internal category")
	}
	entries := logs.FilterMessage("network error").All()
	if len(entries) != 1 {
		t.Fatalf("network error logs = %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["category"]; got != "http_status" {
		t.Errorf("logged category = %v, want http_status", got)
	}
}

// TestHandler_GetCityWeather_Blank verifies blank input returns 204 without fetching.
func TestHandler_GetCityWeather_Blank(t *testing.T) {
	wc := &mockWeatherClient{body: []byte(montrealPayload)}
	h := newTestHandler(t, &mockResolver{}, wc, nil, nil)

	for _, target := range []string{"/weather/city", "/weather/city?q=", "/weather/city?q=%20%20"} {
		w := httptest.NewRecorder()
		h.GetCityWeather(w, httptest.NewRequest("GET", target, nil))
		if w.Code != http.StatusNoContent {
			t.Errorf("%s: status = %d, want 204", target, w.Code)
		}
	}
	if wc.calls.Load() != 0 {
		t.Errorf("fetch calls = %d, want 0", wc.calls.Load())
	}
}

func TestHandler_GetCityWeather_Invalid(t *testing.T) {
	wc := &mockWeatherClient{body: []byte(montrealPayload)}
	h := newTestHandler(t, &mockResolver{}, wc, nil, nil)

	tests := []string{
		"/weather/city?q=sea%00ttle",
		"/weather/city?q=" + strings.Repeat("a", 101),
	}
	for _, target := range tests {
		w := httptest.NewRecorder()
		h.GetCityWeather(w, httptest.NewRequest("GET", target, nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
			continue
		}
		if e := errorCode(t, decodeBody(t, w)); e["code"] != "INVALID_CITY" {
			t.Errorf("code = %v, want INVALID_CITY", e["code"])
		}
	}
	if wc.calls.Load() != 0 {
		t.Errorf("fetch calls = %d, want 0", wc.calls.Load())
	}
}

func TestHandler_GetCityWeather_Success(t *testing.T) {
	wc := &mockWeatherClient{body: []byte(montrealPayload)}
	h := newTestHandler(t, &mockResolver{err: &location.UnavailableError{Reason: location.ReasonNoFix}}, wc, nil, nil)

	w := httptest.NewRecorder()
	h.GetCityWeather(w, httptest.NewRequest("GET", "/weather/city?q=+Montreal+", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body := decodeBody(t, w); body["city"] != "Montreal" {
		t.Errorf("city = %v", body["city"])
	}
	if wc.calls.Load() != 1 {
		t.Errorf("fetch calls = %d, want 1", wc.calls.Load())
	}
}

func TestHandler_GetCityWeather_RequestTimeout(t *testing.T) {
	wc := &mockWeatherClient{block: true}
	h := newTestHandler(t, &mockResolver{}, wc, nil, nil)

	w := httptest.NewRecorder()
	handler := TimeoutMiddleware(20 * time.Millisecond)(http.HandlerFunc(h.GetCityWeather))
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/weather/city?q=Oslo", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if e := errorCode(t, decodeBody(t, w)); e["code"] != "NETWORK_ERROR" {
		t.Errorf("code = %v, want NETWORK_ERROR", e["code"])
	}
}

func TestHandler_GetHealth_Healthy(t *testing.T) {
	lifecycle.Reset()
	h := newTestHandler(t, &mockResolver{}, &mockWeatherClient{}, &HealthConfig{DegradedWindow: time.Minute, DegradedErrorPct: 50}, nil)

	w := httptest.NewRecorder()
	h.GetHealth(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decodeBody(t, w)
	if body["status"] != "healthy" || body["service"] != "clima" {
		t.Errorf("body = %v", body)
	}
}

func TestHandler_GetHealth_ShuttingDown(t *testing.T) {
	lifecycle.BeginShutdown()
	defer lifecycle.Reset()
	h := newTestHandler(t, &mockResolver{}, &mockWeatherClient{}, nil, nil)

	w := httptest.NewRecorder()
	h.GetHealth(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	body := decodeBody(t, w)
	if body["status"] != "shutting-down" {
		t.Errorf("status = %v, want shutting-down", body["status"])
	}
	if _, ok := body["drainingSince"]; !ok {
		t.Error("drainingSince missing while shutting down")
	}
}

// TestHandler_GetHealth_Degraded verifies failure rate at the threshold flips health,
// and that the transition is logged.
func TestHandler_GetHealth_Degraded(t *testing.T) {
	lifecycle.Reset()
	core, logs := observer.New(zapcore.InfoLevel)
	h := newTestHandler(t, &mockResolver{}, &mockWeatherClient{}, &HealthConfig{DegradedWindow: time.Minute, DegradedErrorPct: 50}, zap.New(core))

	w := httptest.NewRecorder()
	h.GetHealth(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("initial status = %d, want 200", w.Code)
	}

	traffic.Record(traffic.OutcomeSuccess)
	traffic.Record(traffic.OutcomeFailure)
	traffic.Record(traffic.OutcomeDenied)

	w = httptest.NewRecorder()
	h.GetHealth(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	body := decodeBody(t, w)
	if body["status"] != "degraded" {
		t.Errorf("status = %v, want degraded", body["status"])
	}
	if checks := body["checks"].(map[string]interface{}); checks["pipeline"] != "unhealthy" {
		t.Errorf("checks = %v", checks)
	}
	if n := logs.FilterMessage("health status transition").Len(); n != 1 {
		t.Errorf("transition logs = %d, want 1", n)
	}
}

// silentProvider subscribes successfully but never reports a fix.
type silentProvider struct{}

func (silentProvider) Name() string { return "silent" }

func (silentProvider) Subscribe(ctx context.Context) (location.Subscription, error) {
	return silentSubscription{updates: make(chan models.Coordinates)}, nil
}

type silentSubscription struct {
	updates chan models.Coordinates
}

func (s silentSubscription) Updates() <-chan models.Coordinates { return s.updates }
func (s silentSubscription) Cancel()                            {}

// TestHandler_GetLocationWeather_RequestDeadlineDuringResolve verifies that a
// request deadline hit while waiting for a fix is reported as a location failure.
func TestHandler_GetLocationWeather_RequestDeadlineDuringResolve(t *testing.T) {
	wc := &mockWeatherClient{body: []byte(montrealPayload)}
	resolver := location.NewOneShotResolver(silentProvider{}, location.StaticPermission(true), 0, nil)
	h := newTestHandler(t, resolver, wc, nil, nil)
	handler := TimeoutMiddleware(20 * time.Millisecond)(http.HandlerFunc(h.GetLocationWeather))

	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/weather/location", nil))

		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("run %d: status = %d, want 503", i, w.Code)
		}
		e := errorCode(t, decodeBody(t, w))
		if e["code"] != "LOCATION_UNAVAILABLE" || e["reason"] != "timeout" {
			t.Fatalf("run %d: error = %v, want LOCATION_UNAVAILABLE/timeout", i, e)
		}
	}
	if wc.calls.Load() != 0 {
		t.Errorf("fetch calls = %d, want 0", wc.calls.Load())
	}
}
