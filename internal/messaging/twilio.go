// Package messaging sends outbound SMS notifications to emergency contacts.
package messaging

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Messenger sends a text message to a phone number.
type Messenger interface {
	Send(ctx context.Context, to, body string) error
}

// TwilioClient sends SMS through the Twilio Messages API.
type TwilioClient struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	client     *http.Client
}

// TwilioConfig holds Twilio client configuration.
type TwilioConfig struct {
	// AccountSID is the Twilio account SID (required)
	AccountSID string

	// AuthToken is the Twilio auth token (required)
	AuthToken string

	// FromNumber is the sender phone number (required)
	FromNumber string

	// BaseURL is the API base URL (default: https://api.twilio.com)
	BaseURL string

	// Timeout is the request timeout duration (default: 10s)
	Timeout time.Duration
}

// NewTwilioClient creates a new Twilio client with the given configuration.
func NewTwilioClient(config TwilioConfig) *TwilioClient {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.twilio.com"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	return &TwilioClient{
		accountSID: config.AccountSID,
		authToken:  config.AuthToken,
		fromNumber: config.FromNumber,
		baseURL:    config.BaseURL,
		client: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// FromNumber returns the configured sender number. Escalation falls back to
// notifying this number when the contact roster is empty.
func (c *TwilioClient) FromNumber() string {
	return c.fromNumber
}

// Send delivers an SMS to the given number. The Messages API takes
// form-encoded fields and HTTP basic auth with the account credentials.
func (c *TwilioClient) Send(ctx context.Context, to, body string) error {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.fromNumber)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("twilio returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

var _ Messenger = (*TwilioClient)(nil)
