package weather

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

const currentLocationLabel = "Current Location"

// Tracker is the state of one weather widget instance. All mutation goes
// through its methods; remote calls run outside the lock and their results
// are applied in one locked step.
type Tracker struct {
	svc *Service

	mu        sync.Mutex
	id        string
	recordID  string
	createdAt time.Time
	touchedAt time.Time

	address   string
	latitude  string
	longitude string

	useAddress      bool
	useUserLocation bool
	// manualOverride is set once the user touches the inputs; record data
	// arriving later no longer switches the mode.
	manualOverride bool
	deviceLabel    string

	originalQuery string
	errorMessage  string
	inflight      int

	observations *ObservationResponse
	display      Display
}

// State is the read-only view of a tracker served to the widget.
type State struct {
	ID                  string               `json:"id"`
	RecordID            string               `json:"recordId,omitempty"`
	Address             string               `json:"address"`
	Latitude            string               `json:"latitude"`
	Longitude           string               `json:"longitude"`
	UseAddress          bool                 `json:"useAddress"`
	UseUserLocation     bool                 `json:"useUserLocation"`
	OriginalQuery       string               `json:"originalQuery"`
	Loading             bool                 `json:"isLoading"`
	ErrorMessage        string               `json:"errorMessage"`
	IconMode            IconMode             `json:"iconMode"`
	WeatherObservations *ObservationResponse `json:"weatherObservations"`
	Display
}

// ID returns the tracker id.
func (t *Tracker) ID() string {
	return t.id
}

// RecordID returns the bound record id, if any.
func (t *Tracker) RecordID() string {
	return t.recordID
}

// Touch marks the tracker as used now.
func (t *Tracker) Touch() {
	t.mu.Lock()
	t.touchedAt = t.svc.now()
	t.mu.Unlock()
}

// LastSeen returns the time of the last Touch (or creation).
func (t *Tracker) LastSeen() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.touchedAt
}

// Snapshot returns a consistent copy of the tracker state.
func (t *Tracker) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return State{
		ID:                  t.id,
		RecordID:            t.recordID,
		Address:             t.address,
		Latitude:            t.latitude,
		Longitude:           t.longitude,
		UseAddress:          t.useAddress,
		UseUserLocation:     t.useUserLocation,
		OriginalQuery:       t.originalQuery,
		Loading:             t.inflight > 0,
		ErrorMessage:        t.errorMessage,
		IconMode:            t.svc.icons.Mode(),
		WeatherObservations: t.observations,
		Display:             t.display,
	}
}

// Activate picks the initial location source. A bound record wins if its
// address arrives within the wait; otherwise geo is used when non-nil.
// Errors are reflected in the tracker state and also returned.
func (t *Tracker) Activate(ctx context.Context, geo Geolocator) error {
	if t.recordID != "" {
		addr, err := t.svc.resolver.WaitForAddress(ctx, t.recordID)
		t.svc.metrics.RecordWaits.WithLabelValues(recordWaitOutcome(err)).Inc()
		if err == nil {
			if t.applyRecordAddress(addr) {
				return t.FetchWeather(ctx)
			}
			return nil
		}
		t.svc.logger.Info("record address unavailable, falling back",
			"tracker_id", t.id, "record_id", t.recordID, "error", err)
	}
	if geo == nil {
		return nil
	}
	return t.LocateDevice(ctx, geo)
}

func (t *Tracker) applyRecordAddress(addr RecordAddress) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.manualOverride {
		return false
	}
	t.address = addr.String()
	t.useAddress = true
	return true
}

// SetMode switches between address and coordinate input and clears any
// previous error.
func (t *Tracker) SetMode(useAddress bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.useAddress = useAddress
	t.manualOverride = true
	t.errorMessage = ""
}

// SetAddress records the address input.
func (t *Tracker) SetAddress(address string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.address = address
	t.manualOverride = true
}

// SetCoordinates records the latitude/longitude inputs as typed. They are
// validated when a fetch is issued.
func (t *Tracker) SetCoordinates(latitude, longitude string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latitude = latitude
	t.longitude = longitude
	t.manualOverride = true
}

// LocateDevice uses the device position as the query location and fetches
// weather for it. A geolocation failure is shown and not retried.
func (t *Tracker) LocateDevice(ctx context.Context, geo Geolocator) error {
	pos, err := geo.CurrentPosition(ctx)
	if err != nil {
		var geoErr *GeolocationError
		if !errors.As(err, &geoErr) {
			geoErr = NewGeolocationError(GeoPositionUnavailable, err.Error())
		}
		t.svc.metrics.GeolocationFails.WithLabelValues(string(geoErr.Reason)).Inc()
		t.svc.logger.Warn("geolocation failed", "tracker_id", t.id, "reason", geoErr.Reason)

		t.mu.Lock()
		t.errorMessage = geoErr.Message
		t.mu.Unlock()
		return geoErr
	}

	label := currentLocationLabel
	if t.svc.namer != nil {
		if name, err := t.svc.namer.PlaceName(ctx, pos); err != nil {
			t.svc.logger.Debug("reverse geocoding failed", "tracker_id", t.id, "error", err)
		} else if name != "" {
			label = name
		}
	}

	t.mu.Lock()
	t.useAddress = false
	t.useUserLocation = true
	t.manualOverride = true
	t.latitude = FormatCoordinate(pos.Latitude)
	t.longitude = FormatCoordinate(pos.Longitude)
	t.deviceLabel = label
	t.mu.Unlock()

	err = t.FetchWeather(ctx)

	t.mu.Lock()
	t.useUserLocation = false
	t.mu.Unlock()
	return err
}

// FetchWeather validates the current inputs and issues one observation
// request. Loading is reported for exactly the duration of the call on every
// path. Overlapping fetches are not de-duplicated; the last to finish wins.
func (t *Tracker) FetchWeather(ctx context.Context) error {
	t.mu.Lock()
	t.inflight++
	query, err := t.prepareLocked()
	if err != nil {
		t.inflight--
		t.mu.Unlock()
		t.svc.metrics.FetchRequests.WithLabelValues("invalid").Inc()
		return err
	}
	t.mu.Unlock()

	if t.svc.observations == nil {
		return t.finishFetch(ObservationResponse{}, fmt.Errorf("observation service not configured"))
	}

	t.svc.metrics.FetchesInFlight.Inc()
	start := t.svc.now()
	resp, callErr := t.svc.observations.Observations(ctx, query.Request())
	t.svc.metrics.FetchDuration.Observe(t.svc.clock.Since(start).Seconds())
	t.svc.metrics.FetchesInFlight.Dec()

	return t.finishFetch(resp, callErr)
}

// prepareLocked sets the original query label and validates the inputs for
// the active mode.
func (t *Tracker) prepareLocked() (LocationQuery, error) {
	switch {
	case t.useUserLocation:
		t.originalQuery = t.deviceLabel
	case t.useAddress:
		t.originalQuery = t.address
	default:
		t.originalQuery = fmt.Sprintf("Lat: %s, Long: %s", t.latitude, t.longitude)
	}

	var query LocationQuery
	if t.useAddress && !t.useUserLocation {
		if err := ValidateAddress(t.address); err != nil {
			t.errorMessage = MsgAddressRequired
			return query, err
		}
		query = LocationQuery{Kind: QueryAddress, Address: t.address}
	} else {
		lat, lon, err := ParseCoordinates(t.latitude, t.longitude)
		if err != nil {
			t.errorMessage = MsgCoordinatesRequired
			return query, err
		}
		kind := QueryCoordinates
		if t.useUserLocation {
			kind = QueryDevice
		}
		query = LocationQuery{Kind: kind, Latitude: lat, Longitude: lon}
	}

	t.errorMessage = ""
	return query, nil
}

func (t *Tracker) finishFetch(resp ObservationResponse, callErr error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight--

	if callErr != nil {
		t.clearWeatherLocked()
		t.svc.metrics.FetchRequests.WithLabelValues("error").Inc()
		t.svc.logger.Error("weather fetch failed", "tracker_id", t.id, "query", t.originalQuery, "error", callErr)
		return fmt.Errorf("%w: %v", ErrFetch, callErr)
	}

	if len(resp.WeatherObservations) == 0 {
		t.clearWeatherLocked()
		t.errorMessage = MsgNoResults
		t.svc.metrics.FetchRequests.WithLabelValues("empty").Inc()
		return ErrNoResults
	}

	// Only the first observation is shown.
	obs := resp.WeatherObservations[0]
	icons := t.svc.icons.Resolve(obs.WeatherCondition, obs.CloudsCode)
	t.observations = &resp
	t.display = Display{
		WindSpeed:        string(obs.WindSpeed),
		Temperature:      string(obs.Temperature),
		Humidity:         string(obs.Humidity),
		WeatherCondition: icons.Condition,
		CloudCondition:   icons.Cloud,
		WeatherIconURL:   icons.ConditionIconURL,
		CloudIconURL:     icons.CloudIconURL,
	}
	t.errorMessage = ""
	t.svc.metrics.FetchRequests.WithLabelValues("success").Inc()
	return nil
}

func (t *Tracker) clearWeatherLocked() {
	t.observations = nil
	t.display = Display{}
}

// Report builds the report draft from the current observation.
func (t *Tracker) Report() ReportDraft {
	t.mu.Lock()
	defer t.mu.Unlock()
	return BuildReport(t.display, t.observations != nil)
}

// ShareReport emails the report. Account records send to the account's
// contacts, anything else to all users. The dispatch outcome is returned.
func (t *Tracker) ShareReport(ctx context.Context) (DispatchResult, error) {
	draft := t.Report()
	target := ReportTarget(t.recordID)

	if t.svc.mailer == nil {
		return DispatchResult{Target: target}, fmt.Errorf("%w: email service not configured", ErrDispatch)
	}

	var (
		res DispatchResult
		err error
	)
	if target == TargetContacts {
		res, err = t.svc.mailer.SendToContacts(ctx, t.recordID, draft)
	} else {
		res, err = t.svc.mailer.SendToAllUsers(ctx, draft)
	}
	res.Target = target

	if err == nil && !res.Success {
		err = errors.New(res.Message)
		if res.Message == "" {
			err = errors.New("email service rejected the report")
		}
	}
	if err != nil {
		t.svc.metrics.ReportDispatches.WithLabelValues(target, "error").Inc()
		t.svc.logger.Error("report dispatch failed", "tracker_id", t.id, "target", target, "error", err)
		return res, fmt.Errorf("%w: %v", ErrDispatch, err)
	}

	t.svc.metrics.ReportDispatches.WithLabelValues(target, "success").Inc()
	t.svc.logger.Info("report dispatched", "tracker_id", t.id, "target", target, "recipients", res.Recipients)
	return res, nil
}

func recordWaitOutcome(err error) string {
	switch {
	case err == nil:
		return "resolved"
	case errors.Is(err, ErrRecordNotFound):
		return "not_found"
	case errors.Is(err, ErrRecordNoAddress):
		return "no_address"
	case errors.Is(err, ErrRecordWaitTimeout):
		return "timeout"
	default:
		return "cancelled"
	}
}
