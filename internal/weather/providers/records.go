package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/i474232898/weather-tracker/internal/weather"
)

const recordAddressFields = "Account.BillingCity,Account.BillingState"

// RecordClient reads a record's billing address from the record data service.
type RecordClient struct {
	client *resty.Client
}

type recordField struct {
	Value *string `json:"value"`
}

type recordPayload struct {
	ID     string `json:"id"`
	Fields struct {
		BillingCity  recordField `json:"BillingCity"`
		BillingState recordField `json:"BillingState"`
	} `json:"fields"`
}

// NewRecordClient creates a client for the record service at baseURL.
func NewRecordClient(baseURL string, timeout time.Duration) *RecordClient {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")
	return &RecordClient{client: client}
}

// Address returns the record's city and state. A 404 maps to
// weather.ErrRecordNotFound, 202/204 to weather.ErrRecordNotReady and a
// record missing either part to weather.ErrRecordNoAddress.
func (c *RecordClient) Address(ctx context.Context, recordID string) (weather.RecordAddress, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("id", recordID).
		SetQueryParam("fields", recordAddressFields).
		Get("/records/{id}")
	if err != nil {
		return weather.RecordAddress{}, err
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusAccepted, http.StatusNoContent:
		return weather.RecordAddress{}, weather.ErrRecordNotReady
	case http.StatusNotFound:
		return weather.RecordAddress{}, weather.ErrRecordNotFound
	default:
		return weather.RecordAddress{}, fmt.Errorf("record service returned %d", resp.StatusCode())
	}

	var payload recordPayload
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return weather.RecordAddress{}, fmt.Errorf("decode record: %w", err)
	}

	city := deref(payload.Fields.BillingCity.Value)
	state := deref(payload.Fields.BillingState.Value)
	// Both parts are needed to form a location query.
	if city == "" || state == "" {
		return weather.RecordAddress{}, weather.ErrRecordNoAddress
	}
	return weather.RecordAddress{City: city, State: state}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
