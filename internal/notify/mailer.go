// Package notify dispatches email notifications through an external
// transactional-mail API. Delivery and retry semantics belong to the
// provider; callers only get a send error back.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// TemplateType selects the email body layout.
type TemplateType string

const (
	TemplateBudgetAlert   TemplateType = "budget-alert"
	TemplateMonthlyReport TemplateType = "monthly-report"
)

// Message is one outbound notification.
type Message struct {
	To       string
	Subject  string
	Template TemplateType
	Data     interface{}
}

// Mailer sends notification emails.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Client talks to the mail provider's REST API. One configured client is
// constructed at process start and injected into the components that send
// mail.
type Client struct {
	baseURL string
	apiKey  string
	from    string
	http    *http.Client
}

// NewClient creates a mail API client.
func NewClient(baseURL, apiKey, from string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		from:    from,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type sendRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Send renders the message body and posts it to the provider.
func (c *Client) Send(ctx context.Context, msg Message) error {
	body, err := renderTemplate(msg.Template, msg.Data)
	if err != nil {
		return fmt.Errorf("notify: rendering %s: %w", msg.Template, err)
	}

	payload, err := json.Marshal(sendRequest{
		From:    c.from,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    body,
	})
	if err != nil {
		return fmt.Errorf("notify: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("notify: sending email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: mail API returned status %d", resp.StatusCode)
	}
	return nil
}

var _ Mailer = (*Client)(nil)
