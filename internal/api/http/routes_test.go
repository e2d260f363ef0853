package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-tracker/internal/store"
	"github.com/i474232898/weather-tracker/internal/weather"
)

type stubObservations struct {
	mu   sync.Mutex
	resp weather.ObservationResponse
	err  error
	reqs []weather.ObservationRequest
}

func (s *stubObservations) Observations(_ context.Context, req weather.ObservationRequest) (weather.ObservationResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqs = append(s.reqs, req)
	return s.resp, s.err
}

func (s *stubObservations) requests() []weather.ObservationRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]weather.ObservationRequest(nil), s.reqs...)
}

type stubRecords struct {
	addr weather.RecordAddress
	err  error
}

func (s stubRecords) Address(context.Context, string) (weather.RecordAddress, error) {
	return s.addr, s.err
}

type stubMailer struct {
	res weather.DispatchResult
	err error
}

func (s stubMailer) SendToContacts(context.Context, string, weather.ReportDraft) (weather.DispatchResult, error) {
	return s.res, s.err
}

func (s stubMailer) SendToAllUsers(context.Context, weather.ReportDraft) (weather.DispatchResult, error) {
	return s.res, s.err
}

type testEnv struct {
	obs     *stubObservations
	records stubRecords
	mailer  stubMailer
	mode    weather.IconMode
}

func sampleResponse() weather.ObservationResponse {
	return weather.ObservationResponse{WeatherObservations: []weather.Observation{{
		WindSpeed:        "07",
		Temperature:      "21",
		Humidity:         "40",
		WeatherCondition: "n/a",
		CloudsCode:       "FEW",
	}}}
}

func newTestApp(env testEnv) *fiber.App {
	if env.obs == nil {
		env.obs = &stubObservations{resp: sampleResponse()}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := clockwork.NewRealClock()
	svc := weather.NewService(weather.Deps{
		Observations: env.obs,
		Mailer:       env.mailer,
		Resolver: weather.NewLocationResolver(env.records, weather.ResolverConfig{
			PollInterval: time.Millisecond,
			WaitTimeout:  50 * time.Millisecond,
		}, clock, logger),
		Icons:  weather.NewIconResolver("/static/WeatherIcons", env.mode),
		Logger: logger,
		Clock:  clock,
	})

	app := fiber.New()
	RegisterRoutes(app, svc, store.NewMemoryStore(10, time.Hour))
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func createTracker(t *testing.T, app *fiber.App, body string) map[string]any {
	t.Helper()
	status, state := doJSON(t, app, http.MethodPost, "/api/v1/trackers", body)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, state["id"])
	return state
}

func TestCreateTrackerWithRecord(t *testing.T) {
	env := testEnv{
		obs:     &stubObservations{resp: sampleResponse()},
		records: stubRecords{addr: weather.RecordAddress{City: "Paris", State: "TX"}},
	}
	app := newTestApp(env)

	state := createTracker(t, app, `{"recordId":"001xx000003DGb2"}`)

	assert.Equal(t, "Paris, TX", state["address"])
	assert.Equal(t, true, state["useAddress"])
	assert.Equal(t, "Paris, TX", state["originalQuery"])
	assert.Equal(t, "21", state["temperature"])
	assert.Equal(t, weather.NotProvided, state["weatherCondition"])
	assert.Equal(t, false, state["isLoading"])

	reqs := env.obs.requests()
	require.Len(t, reqs, 1)
	require.NotNil(t, reqs[0].Location)
	assert.Equal(t, "Paris, TX", *reqs[0].Location)
}

func TestCreateTrackerFallsBackToDevice(t *testing.T) {
	env := testEnv{
		obs:     &stubObservations{resp: sampleResponse()},
		records: stubRecords{err: weather.ErrRecordNotFound},
	}
	app := newTestApp(env)

	state := createTracker(t, app, `{"recordId":"003xx000004TmiQ","device":{"latitude":33.66,"longitude":-95.55}}`)

	assert.Equal(t, false, state["useAddress"])
	assert.Equal(t, "33.66", state["latitude"])
	assert.Equal(t, "-95.55", state["longitude"])
	assert.Equal(t, "Current Location", state["originalQuery"])

	reqs := env.obs.requests()
	require.Len(t, reqs, 1)
	assert.Nil(t, reqs[0].Location)
	assert.InDelta(t, 33.66, *reqs[0].Latitude, 1e-9)
}

func TestCreateTrackerIdle(t *testing.T) {
	env := testEnv{obs: &stubObservations{}}
	app := newTestApp(env)

	state := createTracker(t, app, "")

	assert.Equal(t, "", state["errorMessage"])
	assert.Nil(t, state["weatherObservations"])
	assert.Empty(t, env.obs.requests())
}

func TestCreateTrackerValidation(t *testing.T) {
	app := newTestApp(testEnv{})

	status, _ := doJSON(t, app, http.MethodPost, "/api/v1/trackers", `{"recordId":"not a record id"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/trackers", `{"device":{"error":"exploded"}}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/trackers", `{`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestUnknownTracker(t *testing.T) {
	app := newTestApp(testEnv{})

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/trackers/missing"},
		{http.MethodDelete, "/api/v1/trackers/missing"},
		{http.MethodPost, "/api/v1/trackers/missing/weather"},
		{http.MethodGet, "/api/v1/trackers/missing/report"},
	} {
		status, _ := doJSON(t, app, tc.method, tc.path, "")
		assert.Equal(t, http.StatusNotFound, status, tc.path)
	}
}

func TestAddressFlow(t *testing.T) {
	env := testEnv{obs: &stubObservations{resp: sampleResponse()}, mode: weather.IconModeDual}
	app := newTestApp(env)
	id := createTracker(t, app, "")["id"].(string)
	base := "/api/v1/trackers/" + id

	status, state := doJSON(t, app, http.MethodPut, base+"/mode", `{"useAddress":true}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, state["useAddress"])

	// Blank address is rejected before any request is issued.
	status, state = doJSON(t, app, http.MethodPost, base+"/weather", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, weather.MsgAddressRequired, state["errorMessage"])
	assert.Empty(t, env.obs.requests())

	status, _ = doJSON(t, app, http.MethodPut, base+"/address", `{"address":"Paris, TX"}`)
	require.Equal(t, http.StatusOK, status)

	status, state = doJSON(t, app, http.MethodPost, base+"/weather", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "", state["errorMessage"])
	assert.Equal(t, "Paris, TX", state["originalQuery"])
	assert.Equal(t, "dual", state["iconMode"])
	assert.Nil(t, state["weatherIconUrl"])
	assert.Equal(t, "/static/WeatherIcons/wi-icons-svg/wi-cloud.svg", state["cloudIconUrl"])
	assert.Len(t, env.obs.requests(), 1)
}

func TestCoordinatesFlow(t *testing.T) {
	env := testEnv{obs: &stubObservations{}}
	app := newTestApp(env)
	id := createTracker(t, app, "")["id"].(string)
	base := "/api/v1/trackers/" + id

	status, _ := doJSON(t, app, http.MethodPut, base+"/coordinates", `{"latitude":"abc","longitude":"-95.55"}`)
	require.Equal(t, http.StatusOK, status)

	_, state := doJSON(t, app, http.MethodPost, base+"/weather", "")
	assert.Equal(t, weather.MsgCoordinatesRequired, state["errorMessage"])
	assert.Empty(t, env.obs.requests())

	doJSON(t, app, http.MethodPut, base+"/coordinates", `{"latitude":"33.66","longitude":"-95.55"}`)
	_, state = doJSON(t, app, http.MethodPost, base+"/weather", "")
	assert.Equal(t, weather.MsgNoResults, state["errorMessage"])
	assert.Equal(t, "Lat: 33.66, Long: -95.55", state["originalQuery"])
	assert.Len(t, env.obs.requests(), 1)
}

func TestModeRequiresFlag(t *testing.T) {
	app := newTestApp(testEnv{})
	id := createTracker(t, app, "")["id"].(string)

	status, _ := doJSON(t, app, http.MethodPut, "/api/v1/trackers/"+id+"/mode", `{}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestLocationError(t *testing.T) {
	env := testEnv{obs: &stubObservations{resp: sampleResponse()}}
	app := newTestApp(env)
	id := createTracker(t, app, "")["id"].(string)

	_, state := doJSON(t, app, http.MethodPost, "/api/v1/trackers/"+id+"/location",
		`{"error":"permission_denied","message":"User denied Geolocation"}`)
	assert.Equal(t, "Error getting location: User denied Geolocation", state["errorMessage"])

	_, state = doJSON(t, app, http.MethodPost, "/api/v1/trackers/"+id+"/location", `{}`)
	assert.Equal(t, weather.MsgGeoUnsupported, state["errorMessage"])
	assert.Empty(t, env.obs.requests())
}

func TestReportPreviewAndShare(t *testing.T) {
	env := testEnv{
		obs:    &stubObservations{resp: sampleResponse()},
		mailer: stubMailer{res: weather.DispatchResult{Success: true, Recipients: 3}},
	}
	app := newTestApp(env)
	id := createTracker(t, app, `{"device":{"latitude":33.66,"longitude":-95.55}}`)["id"].(string)
	base := "/api/v1/trackers/" + id

	status, draft := doJSON(t, app, http.MethodGet, base+"/report", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Weather Report", draft["subject"])
	assert.Equal(t, "Here is the weather report:\n\nTemperature: 21°C\nHumidity: 40%\nWeather Condition: Not Provided\n", draft["body"])

	status, res := doJSON(t, app, http.MethodPost, base+"/report", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, weather.TargetAllUsers, res["target"])
	assert.Equal(t, true, res["success"])
	assert.Equal(t, float64(3), res["recipients"])
}

func TestReportShareFailure(t *testing.T) {
	env := testEnv{mailer: stubMailer{err: errors.New("connection refused")}}
	app := newTestApp(env)
	id := createTracker(t, app, "")["id"].(string)

	status, body := doJSON(t, app, http.MethodPost, "/api/v1/trackers/"+id+"/report", "")
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, true, body["error"])
	assert.Contains(t, body["message"], "connection refused")
}

func TestDeleteTracker(t *testing.T) {
	app := newTestApp(testEnv{})
	id := createTracker(t, app, "")["id"].(string)

	status, _ := doJSON(t, app, http.MethodDelete, "/api/v1/trackers/"+id, "")
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = doJSON(t, app, http.MethodGet, "/api/v1/trackers/"+id, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestIcons(t *testing.T) {
	app := newTestApp(testEnv{})

	status, set := doJSON(t, app, http.MethodGet, "/api/v1/icons?condition=RA&cloud=OVC", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "RA", set["condition"])
	assert.Equal(t, "/static/WeatherIcons/wi-icons-svg/wi-rain.svg", set["conditionIconUrl"])
	assert.Nil(t, set["cloudIconUrl"])

	_, set = doJSON(t, app, http.MethodGet, "/api/v1/icons?condition=n/a", "")
	assert.Equal(t, weather.NotProvided, set["condition"])
	assert.Nil(t, set["conditionIconUrl"])
}
