// Package email sends transactional mail through the Resend HTTP API.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"clarify/internal/config"
)

// Client sends email. When no API key is configured the client is disabled
// and Send becomes an error, which keeps local development from needing a
// mail account.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	from    string
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// NewClient builds a Client from the email config.
func NewClient(cfg config.Email) *Client {
	return &Client{
		http:    &http.Client{Timeout: 15 * time.Second},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		from:    cfg.From,
	}
}

// Enabled reports whether the client has an API key to send with.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// Send delivers one HTML email.
func (c *Client) Send(ctx context.Context, to, subject, html string) error {
	if !c.Enabled() {
		return fmt.Errorf("email is not configured")
	}

	body, err := json.Marshal(sendRequest{
		From:    c.from,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("failed to encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("email provider returned %d: %s", resp.StatusCode, msg)
	}
	return nil
}

// SendVerificationCode emails a sign-in code.
func (c *Client) SendVerificationCode(ctx context.Context, to, code string) error {
	html := fmt.Sprintf(
		"<p>Your Clarify sign-in code is:</p><h2>%s</h2><p>The code expires in 15 minutes. If you did not request it, ignore this email.</p>",
		code)
	return c.Send(ctx, to, "Your Clarify sign-in code", html)
}
