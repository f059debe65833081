package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const whatsAppBaseURL = "https://graph.facebook.com/v17.0"

// WhatsAppClient sends text messages through the WhatsApp Cloud API.
type WhatsAppClient struct {
	Token      string
	PhoneID    string
	BaseURL    string
	HTTPClient *http.Client
}

// NewWhatsAppClient builds a client with a 10s request timeout.
func NewWhatsAppClient(token, phoneID string) *WhatsAppClient {
	return &WhatsAppClient{
		Token:      token,
		PhoneID:    phoneID,
		BaseURL:    whatsAppBaseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Name identifies the channel in logs and metrics.
func (c *WhatsAppClient) Name() string { return "whatsapp" }

// SendWhatsApp delivers a text message. The destination must be E.164
// digits including the country code; a leading "+" is stripped.
func (c *WhatsAppClient) SendWhatsApp(ctx context.Context, toE164, text string) error {
	if c.Token == "" || c.PhoneID == "" {
		return errors.New("whatsapp: token or phone id not configured")
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                strings.TrimPrefix(toE164, "+"),
		"type":              "text",
		"text":              map[string]string{"body": text},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("whatsapp: encode payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/messages", c.BaseURL, c.PhoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("whatsapp: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("whatsapp: status %d: %s", resp.StatusCode, detail)
	}
	return nil
}
