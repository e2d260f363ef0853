package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-tracker/internal/weather"
)

const observationBody = `{"weatherObservations":[{"temperature":"21","humidity":40,"windSpeed":"07","weatherCondition":"n/a","cloudsCode":"FEW","stationName":"Paris/Cox Field"}]}`

func TestObservationClientPostsQuery(t *testing.T) {
	bodies := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		bodies <- body
		_, _ = w.Write([]byte(observationBody))
	}))
	defer srv.Close()

	c := NewObservationClient(srv.Client(), srv.URL)
	resp, err := c.Observations(context.Background(), weather.LocationQuery{Kind: weather.QueryAddress, Address: "Paris, TX"}.Request())
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(<-bodies, &got))
	assert.Equal(t, map[string]any{"location": "Paris, TX", "latitude": nil, "longitude": nil}, got)
	require.Len(t, resp.WeatherObservations, 1)
	assert.Equal(t, weather.Measurement("21"), resp.WeatherObservations[0].Temperature)
	assert.Equal(t, weather.Measurement("40"), resp.WeatherObservations[0].Humidity)
	assert.Equal(t, "Paris/Cox Field", resp.WeatherObservations[0].StationName)
}

func TestObservationClientStringWrappedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped, _ := json.Marshal(observationBody)
		_, _ = w.Write(wrapped)
	}))
	defer srv.Close()

	c := NewObservationClient(srv.Client(), srv.URL)
	resp, err := c.Observations(context.Background(), weather.ObservationRequest{})
	require.NoError(t, err)
	require.Len(t, resp.WeatherObservations, 1)
	assert.Equal(t, "FEW", resp.WeatherObservations[0].CloudsCode)
}

func TestObservationClientSingleAttempt(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewObservationClient(srv.Client(), srv.URL)
	_, err := c.Observations(context.Background(), weather.ObservationRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errServerError)
	assert.Equal(t, int32(1), calls.Load())
}

func TestObservationClientDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	c := NewObservationClient(srv.Client(), srv.URL)
	_, err := c.Observations(context.Background(), weather.ObservationRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode observations")
}

func TestObservationClientNotConfigured(t *testing.T) {
	c := NewObservationClient(http.DefaultClient, "")
	_, err := c.Observations(context.Background(), weather.ObservationRequest{})
	assert.Error(t, err)
}

func TestObservationClientRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewObservationClient(srv.Client(), srv.URL).Observations(context.Background(), weather.ObservationRequest{})
	assert.ErrorIs(t, err, errRateLimited)
}

func TestObservationClientCircuitOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewObservationClient(srv.Client(), srv.URL)
	// The breaker trips after more than five consecutive failures.
	for i := 0; i < 6; i++ {
		_, err := c.Observations(context.Background(), weather.ObservationRequest{})
		require.ErrorIs(t, err, errServerError)
	}

	_, err := c.Observations(context.Background(), weather.ObservationRequest{})
	assert.ErrorIs(t, err, errCircuitOpen)
	assert.Equal(t, int32(6), calls.Load())
}

func TestDoRequestWithBreakerNoClient(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "http://example.invalid", nil)
	require.NoError(t, err)

	_, err = doRequestWithBreaker(nil, newBreaker("test"), req)
	assert.ErrorIs(t, err, errNoHTTPClient)
}
