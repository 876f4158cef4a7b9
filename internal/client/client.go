// Package client calls the tool API of a running tracker server.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/p-n-ai/learning-tracker/internal/toolapi"
)

// Client talks to a tracker server over HTTP.
type Client struct {
	httpClient *resty.Client
}

// New creates a client for the server at baseURL.
func New(baseURL string, timeout time.Duration, retries int) *Client {
	c := resty.New()
	c.SetBaseURL(strings.TrimRight(baseURL, "/"))
	c.SetHeader("Content-Type", "application/json")
	c.SetTimeout(timeout)
	c.SetRetryCount(retries)
	return &Client{httpClient: c}
}

// Call invokes a tool; nil args are sent as an empty object. Tool failures
// come back in the Response, as from a local dispatcher. Only read-only tools
// are resent after a transport error: a timed out write may already have
// been applied by the server.
func (c *Client) Call(ctx context.Context, name string, args json.RawMessage) (toolapi.Response, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	var out toolapi.Response
	res, err := c.httpClient.R().
		SetContext(ctx).
		SetBody([]byte(args)).
		SetResult(&out).
		SetError(&out).
		AddRetryCondition(func(_ *resty.Response, err error) bool {
			return err != nil && readOnly(name)
		}).
		Post("/tools/" + name)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", name, err)
	}

	switch res.StatusCode() {
	case http.StatusOK:
		return out, nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", toolapi.ErrUnknownTool, name)
	default:
		return nil, fmt.Errorf("calling %s: status code %d, body: %s", name, res.StatusCode(), string(res.Body()))
	}
}

// readOnly reports whether calling the tool leaves the tracker unchanged.
// get_review_queue may refill an empty queue, but a second refill is a
// no-op, so it is safe to resend.
func readOnly(name string) bool {
	return strings.HasPrefix(name, "get_")
}

// Tools lists the server's tools.
func (c *Client) Tools(ctx context.Context) ([]toolapi.Tool, error) {
	var out struct {
		Tools []toolapi.Tool `json:"tools"`
	}
	res, err := c.httpClient.R().SetContext(ctx).SetResult(&out).Get("/tools")
	if err != nil {
		return nil, fmt.Errorf("listing tools: %w", err)
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("listing tools: status code %d", res.StatusCode())
	}
	return out.Tools, nil
}

// Download fetches an export such as /export/book.md.
func (c *Client) Download(ctx context.Context, path string) ([]byte, error) {
	res, err := c.httpClient.R().SetContext(ctx).Get(path)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", path, err)
	}
	switch res.StatusCode() {
	case http.StatusOK:
		return res.Body(), nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("downloading %s: %s", path, toolapi.NoTutorialMessage)
	default:
		return nil, fmt.Errorf("downloading %s: status code %d", path, res.StatusCode())
	}
}
