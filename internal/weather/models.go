package weather

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// QueryKind identifies which location source a query uses.
type QueryKind string

const (
	QueryAddress     QueryKind = "address"
	QueryCoordinates QueryKind = "coordinates"
	QueryDevice      QueryKind = "device"
)

// LocationQuery is the resolved location sent to the observation service.
// Only the fields relevant to Kind are populated.
type LocationQuery struct {
	Kind      QueryKind
	Address   string
	Latitude  float64
	Longitude float64
}

// ObservationRequest is the payload accepted by the observation service.
type ObservationRequest struct {
	Location  *string  `json:"location"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Request converts the query into the wire request.
func (q LocationQuery) Request() ObservationRequest {
	if q.Kind == QueryAddress {
		addr := q.Address
		return ObservationRequest{Location: &addr}
	}
	lat, lon := q.Latitude, q.Longitude
	return ObservationRequest{Latitude: &lat, Longitude: &lon}
}

// Measurement is a reading the observation service may encode either as a
// JSON string ("12") or a JSON number (12). It keeps the textual form.
type Measurement string

func (m *Measurement) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*m = Measurement(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("measurement must be a string or number: %w", err)
	}
	*m = Measurement(n.String())
	return nil
}

// Float parses the measurement as a number.
func (m Measurement) Float() (float64, bool) {
	f, err := strconv.ParseFloat(string(m), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Observation is one weather data point returned for a queried location.
type Observation struct {
	WindSpeed        Measurement `json:"windSpeed"`
	Temperature      Measurement `json:"temperature"`
	Humidity         Measurement `json:"humidity"`
	WeatherCondition string      `json:"weatherCondition"`
	CloudsCode       string      `json:"cloudsCode"`

	Clouds      string      `json:"clouds,omitempty"`
	StationName string      `json:"stationName,omitempty"`
	ICAO        string      `json:"ICAO,omitempty"`
	Datetime    string      `json:"datetime,omitempty"`
	Raw         string      `json:"observation,omitempty"`
	Lat         Measurement `json:"lat,omitempty"`
	Lng         Measurement `json:"lng,omitempty"`
}

// ObservationResponse is the decoded observation service response.
// An empty or absent list is a valid "no data" answer.
type ObservationResponse struct {
	WeatherObservations []Observation `json:"weatherObservations"`
}

// DecodeObservations decodes a response body. The service may answer with the
// object itself or with a JSON string that contains the object.
func DecodeObservations(body []byte) (ObservationResponse, error) {
	var resp ObservationResponse

	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '"' {
		var inner string
		if err := json.Unmarshal(body, &inner); err != nil {
			return resp, err
		}
		body = []byte(inner)
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		return ObservationResponse{}, err
	}
	return resp, nil
}

// Display holds the fields rendered by the weather panel. All of them come
// from the same observation or are all empty.
type Display struct {
	WindSpeed        string  `json:"windSpeed,omitempty"`
	Temperature      string  `json:"temperature,omitempty"`
	Humidity         string  `json:"humidity,omitempty"`
	WeatherCondition string  `json:"weatherCondition,omitempty"`
	CloudCondition   string  `json:"cloudCondition,omitempty"`
	WeatherIconURL   *string `json:"weatherIconUrl"`
	CloudIconURL     *string `json:"cloudIconUrl"`
}

// RecordAddress holds the address components of a bound record.
type RecordAddress struct {
	City  string
	State string
}

// Complete reports whether both city and state are present.
func (a RecordAddress) Complete() bool {
	return strings.TrimSpace(a.City) != "" && strings.TrimSpace(a.State) != ""
}

// String formats the address the way it is sent as a location query. Empty
// parts are skipped.
func (a RecordAddress) String() string {
	parts := make([]string, 0, 2)
	for _, p := range []string{a.City, a.State} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Position is a device geolocation fix.
type Position struct {
	Latitude  float64
	Longitude float64
}

// ReportDraft is the email built from the current observation.
type ReportDraft struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// DispatchResult is what the email service reports after a send.
type DispatchResult struct {
	Target     string `json:"target"`
	Success    bool   `json:"success"`
	Recipients int    `json:"recipients"`
	Message    string `json:"message,omitempty"`
}
