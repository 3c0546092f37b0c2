package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/clima/internal/lifecycle"
	"github.com/kjstillabower/clima/internal/models"
	"github.com/kjstillabower/clima/internal/observability"
	"github.com/kjstillabower/clima/internal/pipeline"
	"github.com/kjstillabower/clima/internal/traffic"
	"github.com/kjstillabower/clima/internal/validation"
)

// markerTitle labels the map marker placed at the payload coordinates.
const markerTitle = "Your Location"

// outcomeGrace is how long a request whose context is done keeps waiting for
// the pipeline's own failure report.
const outcomeGrace = time.Second

// HealthConfig holds the degraded thresholds for the health handler.
type HealthConfig struct {
	DegradedWindow   time.Duration
	DegradedErrorPct int
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	orchestrator     *pipeline.Orchestrator
	healthConfig     *HealthConfig
	cityMaxLength    int
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. cityMaxLength of 0 disables the length check.
func NewHandler(orchestrator *pipeline.Orchestrator, healthConfig *HealthConfig, cityMaxLength int, logger *zap.Logger) *Handler {
	return &Handler{
		orchestrator:  orchestrator,
		healthConfig:  healthConfig,
		cityMaxLength: cityMaxLength,
		logger:        observability.OrNop(logger),
	}
}

type resultsView struct {
	View               string             `json:"view"`
	Temperature        int                `json:"temperature"`
	DisplayTemperature string             `json:"displayTemperature"`
	City               string             `json:"city"`
	Message            string             `json:"message"`
	Icon               string             `json:"icon"`
	ConditionCode      *int               `json:"conditionCode,omitempty"`
	Coordinates        models.Coordinates `json:"coordinates"`
	Marker             markerView         `json:"marker"`
	Raw                string             `json:"raw"`
}

type markerView struct {
	Title       string             `json:"title"`
	Coordinates models.Coordinates `json:"coordinates"`
}

func newResultsView(res pipeline.Result) resultsView {
	rec := res.Record
	v := resultsView{
		View:               "results",
		Temperature:        rec.TemperatureCelsius,
		DisplayTemperature: rec.DisplayTemperature(),
		City:               rec.CityName,
		Message:            rec.Message,
		Icon:               rec.Icon.String(),
		Coordinates:        res.Coordinates,
		Marker:             markerView{Title: markerTitle, Coordinates: res.Coordinates},
		Raw:                res.Raw,
	}
	if rec.HasCondition {
		code := rec.ConditionCode
		v.ConditionCode = &code
	}
	return v
}

// outcome is one pipeline callback, captured for the waiting request goroutine.
type outcome struct {
	result  pipeline.Result
	failure *pipeline.Failure
}

// responsePresenter forwards the single callback of a run to the handler.
type responsePresenter chan outcome

func newResponsePresenter() responsePresenter {
	return make(responsePresenter, 1)
}

func (p responsePresenter) ShowResults(res pipeline.Result) {
	p <- outcome{result: res}
}

func (p responsePresenter) ShowFailure(f pipeline.Failure) {
	p <- outcome{failure: &f}
}

// GetLocationWeather handles GET /weather/location.
func (h *Handler) GetLocationWeather(w http.ResponseWriter, r *http.Request) {
	p := newResponsePresenter()
	h.orchestrator.RequestByLocation(r.Context(), p)
	h.awaitOutcome(w, r, p)
}

// GetCityWeather handles GET /weather/city?q=<name>. Blank input yields 204 and no fetch.
func (h *Handler) GetCityWeather(w http.ResponseWriter, r *http.Request) {
	city, err := validation.ValidateCity(r.URL.Query().Get("q"), h.cityMaxLength)
	if errors.Is(err, validation.ErrCityEmpty) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_CITY", err.Error())
		return
	}

	p := newResponsePresenter()
	if !h.orchestrator.RequestByCity(r.Context(), city, p) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.awaitOutcome(w, r, p)
}

func (h *Handler) awaitOutcome(w http.ResponseWriter, r *http.Request, p responsePresenter) {
	select {
	case o := <-p:
		h.writeOutcome(w, r, o)
	case <-r.Context().Done():
		// Every stage observes ctx, so the stage that was running reports its
		// own failure shortly after the deadline.
		grace := time.NewTimer(outcomeGrace)
		defer grace.Stop()
		select {
		case o := <-p:
			h.writeOutcome(w, r, o)
		case <-grace.C:
			// Dispatcher stopped before delivering.
			traffic.Record(traffic.OutcomeFailure)
			writeFailure(w, r, pipeline.FailureFrom(r.Context().Err()))
		}
	}
}

func (h *Handler) writeOutcome(w http.ResponseWriter, r *http.Request, o outcome) {
	if o.failure != nil {
		traffic.Record(traffic.OutcomeFailure)
		writeFailure(w, r, *o.failure)
		return
	}
	traffic.Record(traffic.OutcomeSuccess)
	writeJSON(w, http.StatusOK, newResultsView(o.result))
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	pipelineCheck := "healthy"
	if result.status == "degraded" {
		pipelineCheck = "unhealthy"
	}
	resp := map[string]interface{}{
		"status":    result.status,
		"service":   "clima",
		"version":   "dev",
		"checks":    map[string]string{"pipeline": pipelineCheck},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if since, ok := lifecycle.ShutdownSince(); ok {
		resp["drainingSince"] = since.UTC().Format(time.RFC3339)
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus evaluates shutting-down > degraded > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.healthConfig != nil && h.healthConfig.DegradedWindow > 0 && h.healthConfig.DegradedErrorPct > 0 {
		failures, total := traffic.FailureRate(h.healthConfig.DegradedWindow)
		if total > 0 && float64(failures)*100/float64(total) >= float64(h.healthConfig.DegradedErrorPct) {
			return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the standard error body with the request correlation ID.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeErrorBody(w, r, status, map[string]string{
		"code":      code,
		"message":   message,
		"requestId": observability.CorrelationID(r.Context()),
	})
}

func writeErrorBody(w http.ResponseWriter, r *http.Request, status int, body map[string]string) {
	writeJSON(w, status, map[string]interface{}{"error": body})
}

// writeFailure maps a pipeline failure to 503. Location failures carry their reason;
// network failures stay coarse and the category is only logged.
func writeFailure(w http.ResponseWriter, r *http.Request, f pipeline.Failure) {
	logger := observability.LoggerFromContext(r.Context(), nil)
	if f.Kind == pipeline.FailureLocationUnavailable {
		logger.Debug("location unavailable", zap.String("reason", f.Reason), zap.Error(f.Err))
		writeErrorBody(w, r, http.StatusServiceUnavailable, map[string]string{
			"code":      "LOCATION_UNAVAILABLE",
			"message":   f.Notification(),
			"reason":    f.Reason,
			"requestId": observability.CorrelationID(r.Context()),
		})
		return
	}
	logger.Debug("network error", zap.String("category", f.Reason), zap.Error(f.Err))
	writeError(w, r, http.StatusServiceUnavailable, "NETWORK_ERROR", f.Notification())
}
