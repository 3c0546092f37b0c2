// Package pipeline sequences location resolution, the weather fetch and
// parsing, and hands results to the presentation layer.
package pipeline

import (
	"errors"

	"github.com/kjstillabower/clima/internal/client"
	"github.com/kjstillabower/clima/internal/location"
	"github.com/kjstillabower/clima/internal/models"
	"github.com/kjstillabower/clima/internal/record"
)

// ErrEmptyInput is returned by ByCity for blank input. No fetch is attempted
// and async callers receive no callback.
var ErrEmptyInput = errors.New("empty city input")

// Mode names the entry point of a run.
type Mode string

const (
	ModeLocation Mode = "location"
	ModeCity     Mode = "city"
)

// Result is what the results view shows. Coordinates come from the parsed
// payload and position the map marker.
type Result struct {
	Request     models.WeatherRequest
	Record      record.Record
	Raw         string
	Coordinates models.Coordinates
}

// FailureKind is the user-visible failure class.
type FailureKind string

const (
	FailureLocationUnavailable FailureKind = "location_unavailable"
	FailureNetwork             FailureKind = "network_error"
)

// Failure is delivered instead of a Result when a run fails.
type Failure struct {
	Kind   FailureKind
	Reason string // location.Reason or client.ErrorCategory
	Err    error
}

// Notification returns the text shown to the user.
func (f Failure) Notification() string {
	switch {
	case f.Kind == FailureLocationUnavailable && f.Reason == string(location.ReasonPermissionDenied):
		return "Location permission denied"
	case f.Kind == FailureLocationUnavailable:
		return "Unable to retrieve location"
	default:
		return "Unable to fetch weather data"
	}
}

// FailureFrom classifies a pipeline error. Errors other than location and
// network failures are reported as network failures.
func FailureFrom(err error) Failure {
	if errors.Is(err, location.ErrUnavailable) {
		return Failure{Kind: FailureLocationUnavailable, Reason: string(location.ReasonOf(err)), Err: err}
	}
	return Failure{Kind: FailureNetwork, Reason: string(client.CategorizeError(err)), Err: err}
}

// Presenter consumes the outcome of a run. Exactly one method is called per
// started run, on the dispatcher goroutine.
type Presenter interface {
	ShowResults(Result)
	ShowFailure(Failure)
}
