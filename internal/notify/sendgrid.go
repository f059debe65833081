package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const sendGridBaseURL = "https://api.sendgrid.com"

// SendGridMailer sends e-mail through the SendGrid v3 API.
type SendGridMailer struct {
	APIKey     string
	From       string
	BaseURL    string
	HTTPClient *http.Client
}

// NewSendGridMailer builds a mailer with a 10s request timeout.
func NewSendGridMailer(apiKey, from string) *SendGridMailer {
	return &SendGridMailer{
		APIKey:     apiKey,
		From:       from,
		BaseURL:    sendGridBaseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Name identifies the channel in logs and metrics.
func (m *SendGridMailer) Name() string { return "sendgrid" }

// SendEmail posts one HTML message to a single recipient.
func (m *SendGridMailer) SendEmail(ctx context.Context, to, subject, html string) error {
	if m.APIKey == "" {
		return errors.New("sendgrid: api key not configured")
	}

	payload := map[string]any{
		"personalizations": []map[string]any{
			{"to": []map[string]string{{"email": to}}},
		},
		"from":    map[string]string{"email": m.From},
		"subject": subject,
		"content": []map[string]string{
			{"type": "text/html", "value": html},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("sendgrid: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.BaseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sendgrid: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, detail)
	}
	return nil
}
