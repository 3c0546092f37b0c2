// Package location resolves a single best-effort position for the by-location
// weather flow.
package location

import (
	"context"
	"errors"
	"fmt"

	"github.com/kjstillabower/clima/internal/models"
)

// ErrUnavailable matches every resolution failure.
var ErrUnavailable = errors.New("location unavailable")

// Reason says why no location was produced.
type Reason string

const (
	ReasonPermissionDenied Reason = "permission_denied"
	ReasonNoFix            Reason = "no_fix"         // provider stream ended without an update
	ReasonTimeout          Reason = "timeout"        // location.timeout elapsed
	ReasonCanceled         Reason = "canceled"       // caller gave up
	ReasonProviderError    Reason = "provider_error" // subscription could not be started
)

// UnavailableError is returned by Resolve when no location could be produced.
type UnavailableError struct {
	Reason Reason
	Err    error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", ErrUnavailable, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s (%s)", ErrUnavailable, e.Reason)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

// ReasonOf extracts the Reason from err, or "" when err is not an UnavailableError.
func ReasonOf(err error) Reason {
	var ue *UnavailableError
	if errors.As(err, &ue) {
		return ue.Reason
	}
	return ""
}

// Resolver produces one location.
type Resolver interface {
	Resolve(ctx context.Context) (models.Coordinates, error)
}

// PermissionChecker reports whether location access has been granted.
// Requesting permission is the presentation layer's job, not the resolver's.
type PermissionChecker interface {
	LocationPermitted() bool
}

// StaticPermission is a fixed permission fact, typically from configuration.
type StaticPermission bool

func (p StaticPermission) LocationPermitted() bool { return bool(p) }

// Provider is a source of location updates.
type Provider interface {
	Name() string
	// Subscribe starts delivering updates. The returned Subscription must be
	// cancelled by the caller; ctx bounds only the start of the subscription
	// unless the provider says otherwise.
	Subscribe(ctx context.Context) (Subscription, error)
}

// Subscription is a live stream of updates. Cancel stops delivery and is
// safe to call more than once.
type Subscription interface {
	Updates() <-chan models.Coordinates
	Cancel()
}
