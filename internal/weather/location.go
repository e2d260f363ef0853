package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrRecordWaitTimeout is returned when a bound record's address does not
// become available within the configured wait.
var ErrRecordWaitTimeout = errors.New("timed out waiting for record address")

// ResolverConfig controls the bounded wait for record data.
type ResolverConfig struct {
	PollInterval time.Duration
	WaitTimeout  time.Duration
}

// LocationResolver decides where a tracker's location comes from.
type LocationResolver struct {
	records RecordSource
	clock   clockwork.Clock
	cfg     ResolverConfig
	logger  *slog.Logger
}

// NewLocationResolver creates a resolver. records may be nil when no record
// service is configured; clock defaults to the real clock.
func NewLocationResolver(records RecordSource, cfg ResolverConfig, clock clockwork.Clock, logger *slog.Logger) *LocationResolver {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LocationResolver{records: records, clock: clock, cfg: cfg, logger: logger}
}

// WaitForAddress polls the record source at a fixed interval until the
// record's address is available, the wait times out, or ctx ends.
// ErrRecordNotFound and ErrRecordNoAddress stop polling immediately.
func (r *LocationResolver) WaitForAddress(ctx context.Context, recordID string) (RecordAddress, error) {
	if r.records == nil {
		return RecordAddress{}, ErrRecordNotFound
	}

	ticker := r.clock.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()
	deadline := r.clock.NewTimer(r.cfg.WaitTimeout)
	defer deadline.Stop()

	polls := 0
	for {
		polls++
		addr, err := r.records.Address(ctx, recordID)
		switch {
		case err == nil && !addr.Complete():
			return RecordAddress{}, ErrRecordNoAddress
		case err == nil:
			r.logger.Debug("record address available", "record_id", recordID, "polls", polls)
			return addr, nil
		case errors.Is(err, ErrRecordNotReady):
		case errors.Is(err, ErrRecordNotFound), errors.Is(err, ErrRecordNoAddress):
			return RecordAddress{}, err
		default:
			// Transient source errors are treated like "not ready yet".
			r.logger.Warn("record lookup failed", "record_id", recordID, "error", err)
		}

		select {
		case <-ctx.Done():
			return RecordAddress{}, ctx.Err()
		case <-deadline.Chan():
			return RecordAddress{}, fmt.Errorf("%w after %s (%d polls)", ErrRecordWaitTimeout, r.cfg.WaitTimeout, polls)
		case <-ticker.Chan():
		}
	}
}

// ValidateAddress requires a non-blank address.
func ValidateAddress(address string) error {
	if strings.TrimSpace(address) == "" {
		return validationError(MsgAddressRequired)
	}
	return nil
}

// ParseCoordinates requires both values to parse as finite numbers.
func ParseCoordinates(latitude, longitude string) (float64, float64, error) {
	lat, okLat := parseNumber(latitude)
	lon, okLon := parseNumber(longitude)
	if !okLat || !okLon {
		return 0, 0, validationError(MsgCoordinatesRequired)
	}
	return lat, lon, nil
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FormatCoordinate renders a coordinate the way it is echoed back to inputs.
func FormatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
