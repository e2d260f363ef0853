package weather

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to the widget. Each is recovered locally and shown as
// the tracker's error message; none ends the session.
var (
	ErrValidation  = errors.New("validation error")
	ErrGeolocation = errors.New("geolocation error")
	ErrFetch       = errors.New("fetch error")
	ErrNoResults   = errors.New("no results")
	ErrDispatch    = errors.New("dispatch error")
)

// User-visible messages.
const (
	MsgAddressRequired     = "Address is required."
	MsgCoordinatesRequired = "Latitude and Longitude are required."
	MsgNoResults           = "No Results"
	MsgGeoUnsupported      = "Geolocation is not supported by this browser."
)

// GeoFailure is why a device position could not be obtained.
type GeoFailure string

const (
	GeoPermissionDenied    GeoFailure = "permission_denied"
	GeoPositionUnavailable GeoFailure = "position_unavailable"
	GeoTimeout             GeoFailure = "timeout"
	GeoUnsupported         GeoFailure = "unsupported"
)

// GeolocationError carries the failure kind and the message to show.
type GeolocationError struct {
	Reason  GeoFailure
	Message string
}

// NewGeolocationError builds the error for a failure reason. detail overrides
// the default reason text when set.
func NewGeolocationError(reason GeoFailure, detail string) *GeolocationError {
	if reason == GeoUnsupported {
		return &GeolocationError{Reason: reason, Message: MsgGeoUnsupported}
	}
	if detail == "" {
		switch reason {
		case GeoPermissionDenied:
			detail = "User denied Geolocation"
		case GeoPositionUnavailable:
			detail = "Position unavailable"
		case GeoTimeout:
			detail = "Timeout expired"
		default:
			detail = string(reason)
		}
	}
	return &GeolocationError{Reason: reason, Message: "Error getting location: " + detail}
}

func (e *GeolocationError) Error() string { return e.Message }

func (e *GeolocationError) Unwrap() error { return ErrGeolocation }

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
