package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-tracker/internal/weather"
)

// maxObservationBody caps how much of a response is read.
const maxObservationBody = 1 << 20

// ObservationClient implements weather.ObservationService over HTTP. Each
// call is a single attempt; there is no retry or backoff.
type ObservationClient struct {
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewObservationClient(client *http.Client, baseURL string) *ObservationClient {
	return &ObservationClient{
		baseURL: baseURL,
		client:  client,
		circuit: newBreaker("observations"),
	}
}

// Observations posts the location request and decodes the response.
func (c *ObservationClient) Observations(ctx context.Context, req weather.ObservationRequest) (weather.ObservationResponse, error) {
	if c.baseURL == "" {
		return weather.ObservationResponse{}, fmt.Errorf("observation service url is not configured")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return weather.ObservationResponse{}, err
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return weather.ObservationResponse{}, err
	}
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Accept", "application/json")

	resp, err := doRequestWithBreaker(c.client, c.circuit, r)
	if err != nil {
		return weather.ObservationResponse{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxObservationBody))
	if err != nil {
		return weather.ObservationResponse{}, err
	}

	out, err := weather.DecodeObservations(body)
	if err != nil {
		return weather.ObservationResponse{}, fmt.Errorf("decode observations: %w", err)
	}
	return out, nil
}
