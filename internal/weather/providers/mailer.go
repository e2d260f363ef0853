package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/i474232898/weather-tracker/internal/weather"
)

// EmailClient sends weather reports through the email dispatch service.
// Sends are rate limited and never retried.
type EmailClient struct {
	client  *resty.Client
	limiter *rate.Limiter
}

type contactsRequest struct {
	AccountID string `json:"accountId"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

type usersRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type dispatchResponse struct {
	Success    bool   `json:"success"`
	Recipients int    `json:"recipients"`
	Message    string `json:"message"`
}

// NewEmailClient creates a client for the email service at baseURL allowing
// perMinute sends per minute. perMinute <= 0 disables the limit.
func NewEmailClient(baseURL string, timeout time.Duration, perMinute int) *EmailClient {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetTimeout(timeout)
	client.SetHeader("Content-Type", "application/json")

	limiter := rate.NewLimiter(rate.Inf, 0)
	if perMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	}
	return &EmailClient{client: client, limiter: limiter}
}

// SendToContacts emails the contacts of an account record.
func (c *EmailClient) SendToContacts(ctx context.Context, accountID string, draft weather.ReportDraft) (weather.DispatchResult, error) {
	return c.send(ctx, "/contacts", contactsRequest{AccountID: accountID, Subject: draft.Subject, Body: draft.Body})
}

// SendToAllUsers emails every user.
func (c *EmailClient) SendToAllUsers(ctx context.Context, draft weather.ReportDraft) (weather.DispatchResult, error) {
	return c.send(ctx, "/users", usersRequest{Subject: draft.Subject, Body: draft.Body})
}

func (c *EmailClient) send(ctx context.Context, path string, body any) (weather.DispatchResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return weather.DispatchResult{}, fmt.Errorf("email rate limit: %w", err)
	}

	var out dispatchResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post(path)
	if err != nil {
		return weather.DispatchResult{}, err
	}
	if resp.IsError() {
		return weather.DispatchResult{}, fmt.Errorf("email service returned %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}

	return weather.DispatchResult{
		Success:    out.Success,
		Recipients: out.Recipients,
		Message:    out.Message,
	}, nil
}
