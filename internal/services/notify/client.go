// Package notify submits notification emails to the transactional email
// provider (Brevo) and renders the HTML bodies the rest of the system
// sends through it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"innocents/internal/domain"
)

// Error wraps every failure of this package.
var Error = errs.Class("notify")

// ErrNotConfigured is returned when no provider API key was supplied.
var ErrNotConfigured = Error.New("email provider not configured")

// DefaultBaseURL is Brevo's transactional email endpoint.
const DefaultBaseURL = "https://api.brevo.com/v3/smtp/email"

// Config identifies the provider account and the fixed sender/recipient of
// every notification.
type Config struct {
	APIKey         string
	BaseURL        string
	SenderName     string
	SenderEmail    string
	RecipientEmail string
}

// Client talks to the provider's HTTP API.
type Client struct {
	log   *zap.Logger
	cfg   Config
	httpc *http.Client
}

// NewClient wires a notification client. The API key may be empty; Send
// then degrades to an explicit error instead of failing silently.
func NewClient(log *zap.Logger, cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.SenderName == "" {
		cfg.SenderName = "Innocents France"
	}
	if cfg.SenderEmail == "" {
		cfg.SenderEmail = "association@innocentsfrance.org"
	}
	if cfg.RecipientEmail == "" {
		cfg.RecipientEmail = "contact@innocentsfrance.org"
	}
	return &Client{
		log:   log,
		cfg:   cfg,
		httpc: &http.Client{Timeout: 30 * time.Second},
	}
}

type party struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type attachment struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type sendRequest struct {
	Sender      party        `json:"sender"`
	To          []party      `json:"to"`
	Subject     string       `json:"subject"`
	HTMLContent string       `json:"htmlContent"`
	Attachment  []attachment `json:"attachment,omitempty"`
}

// Send submits one notification and returns the provider's raw response.
// Missing subject or body and any non-2xx answer are surfaced as errors;
// nothing is retried.
func (c *Client) Send(ctx context.Context, n domain.Notification) (json.RawMessage, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if n.Subject == "" || n.HTML == "" {
		return nil, Error.New("subject and html are required")
	}

	payload := sendRequest{
		Sender:      party{Name: c.cfg.SenderName, Email: c.cfg.SenderEmail},
		To:          []party{{Name: c.cfg.SenderName, Email: c.cfg.RecipientEmail}},
		Subject:     n.Subject,
		HTMLContent: n.HTML,
	}
	for _, a := range n.Attachments {
		payload.Attachment = append(payload.Attachment, attachment{Name: a.Filename, Content: a.Content})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, Error.Wrap(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, Error.Wrap(err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("content-type", "application/json")
	req.Header.Set("api-key", c.cfg.APIKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Error("email dispatch refused",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", respBody))
		return nil, Error.New("provider returned %d: %s", resp.StatusCode, respBody)
	}
	c.log.Info("notification email sent", zap.String("subject", n.Subject))
	return json.RawMessage(respBody), nil
}
