package weather

import (
	"context"
	"errors"
)

var (
	// ErrRecordNotReady means the record exists but its data is not available yet.
	ErrRecordNotReady = errors.New("record data not available yet")
	// ErrRecordNotFound means the bound record id does not resolve.
	ErrRecordNotFound = errors.New("record not found")
	// ErrRecordNoAddress means the record exists but carries no address.
	ErrRecordNoAddress = errors.New("record has no address")
)

// ObservationService abstracts the external weather observation service.
type ObservationService interface {
	Observations(ctx context.Context, req ObservationRequest) (ObservationResponse, error)
}

// RecordSource supplies the address components of a bound record.
type RecordSource interface {
	Address(ctx context.Context, recordID string) (RecordAddress, error)
}

// Mailer abstracts the email dispatch service.
type Mailer interface {
	SendToContacts(ctx context.Context, accountID string, draft ReportDraft) (DispatchResult, error)
	SendToAllUsers(ctx context.Context, draft ReportDraft) (DispatchResult, error)
}

// Geolocator yields the device position, or a GeolocationError.
type Geolocator interface {
	CurrentPosition(ctx context.Context) (Position, error)
}

// PlaceNamer turns coordinates into a human label. Optional.
type PlaceNamer interface {
	PlaceName(ctx context.Context, pos Position) (string, error)
}
