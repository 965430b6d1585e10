package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dukerupert/landlord/internal/notify"
)

const defaultAPIURL = "https://api.postmarkapp.com/email"

// Client delivers notification events through the Postmark API. It
// implements notify.Sender.
type Client struct {
	serverToken string
	fromEmail   string
	fromName    string
	apiURL      string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithAPIURL(url string) Option {
	return func(cl *Client) {
		cl.apiURL = url
	}
}

func NewClient(serverToken, fromEmail, fromName string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		fromName:    fromName,
		apiURL:      defaultAPIURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
	Tag      string `json:"Tag,omitempty"`
}

func (c *Client) from() string {
	if c.fromName == "" {
		return c.fromEmail
	}
	return fmt.Sprintf("%s <%s>", c.fromName, c.fromEmail)
}

// Send renders ev and posts it to Postmark.
func (c *Client) Send(ctx context.Context, ev notify.Event) error {
	if !c.Configured() {
		return notify.ErrNotConfigured
	}

	msg, err := render(ev, c.fromName)
	if err != nil {
		return err
	}

	payload := postmarkEmail{
		From:     c.from(),
		To:       ev.To,
		Subject:  msg.subject,
		HtmlBody: msg.html,
		TextBody: msg.text,
		Tag:      string(ev.Kind),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}
