// Package notify posts plain-text export notifications to an ntfy-style endpoint.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout = 10 * time.Second
	titleHeader    = "Title"
	defaultTitle   = "chart export"
)

var errMissingEndpoint = errors.New("notify: endpoint is required")

// Client sends messages to one endpoint.
type Client struct {
	httpClient *http.Client
	endpoint   string
	title      string
}

// New returns a Client for endpoint. A nil httpClient gets a 10s timeout client.
func New(httpClient *http.Client, endpoint string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{httpClient: httpClient, endpoint: endpoint, title: defaultTitle}
}

// Notify posts message with the client's title header.
func (c *Client) Notify(ctx context.Context, message string) error {
	return send(ctx, c.httpClient, c.endpoint, c.title, message)
}

// Send posts message to endpoint using HTTP POST.
func Send(ctx context.Context, client *http.Client, endpoint, message string) error {
	return send(ctx, client, endpoint, "", message)
}

func send(ctx context.Context, client *http.Client, endpoint, title, message string) error {
	if strings.TrimSpace(endpoint) == "" {
		return errMissingEndpoint
	}
	c := client
	if c == nil {
		c = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(message))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")
	if title != "" {
		req.Header.Set(titleHeader, title)
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy notification failed: status=%d", resp.StatusCode)
	}
	return nil
}
