package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const mailgunBaseURL = "https://api.mailgun.net"

// MailgunMailer sends e-mail through the Mailgun messages API.
type MailgunMailer struct {
	APIKey     string
	Domain     string
	From       string
	BaseURL    string
	HTTPClient *http.Client
}

// NewMailgunMailer builds a mailer with a 10s request timeout.
func NewMailgunMailer(apiKey, domain, from string) *MailgunMailer {
	return &MailgunMailer{
		APIKey:     apiKey,
		Domain:     domain,
		From:       from,
		BaseURL:    mailgunBaseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Name identifies the channel in logs and metrics.
func (m *MailgunMailer) Name() string { return "mailgun" }

// SendEmail posts one HTML message to a single recipient.
func (m *MailgunMailer) SendEmail(ctx context.Context, to, subject, html string) error {
	if m.APIKey == "" || m.Domain == "" {
		return errors.New("mailgun: api key or domain not configured")
	}

	form := url.Values{}
	form.Set("from", m.From)
	form.Set("to", to)
	form.Set("subject", subject)
	form.Set("html", html)

	endpoint := fmt.Sprintf("%s/v3/%s/messages", m.BaseURL, m.Domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("mailgun: build request: %w", err)
	}
	req.SetBasicAuth("api", m.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("mailgun: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mailgun: status %d: %s", resp.StatusCode, detail)
	}
	return nil
}
