// Package mailjet is a minimal client for the Mailjet REST API, covering the
// send resource used by the transport.
package mailjet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// Resource is an API resource path below the version segment.
type Resource string

// ResourceEmail is the send API resource.
const ResourceEmail Resource = "send"

// Response is a raw API response.
type Response struct {
	StatusCode int
	Body       []byte
}

// Success reports whether the status code is in the 2xx range.
func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// Err returns a *RejectionError for unsuccessful responses and nil otherwise.
func (r *Response) Err() error {
	if r.Success() {
		return nil
	}
	return &RejectionError{StatusCode: r.StatusCode, Message: errorMessage(r.Body)}
}

// Client posts JSON bodies to the API using basic authentication.
type Client struct {
	apiKey     string
	apiSecret  string
	call       bool
	opts       Options
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a client. When call is false no request ever leaves the
// process and every Post succeeds with an empty JSON object.
func New(apiKey, apiSecret string, call bool, opts Options) (*Client, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("%w: API key and secret are required", ErrConfiguration)
	}

	opts, err := opts.WithDefaults()
	if err != nil {
		return nil, err
	}

	return &Client{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		call:       call,
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.Timeout},
		logger:     slog.Default(),
	}, nil
}

// SetLogger replaces the client logger.
func (c *Client) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Options returns the effective client options.
func (c *Client) Options() Options {
	return c.opts
}

// Call reports whether requests are actually performed.
func (c *Client) Call() bool {
	return c.call
}

// Post encodes body as JSON and posts it to resource.
//
// Non-2xx responses are returned without an error; use Response.Success or
// Response.Err. The error is non-nil only when no response was received.
func (c *Client) Post(ctx context.Context, r Resource, body any) (*Response, error) {
	url := c.opts.Endpoint(r)
	if !c.call {
		c.logger.Debug("mailjet API call disabled, skipping request", "url", url)
		return &Response{StatusCode: http.StatusOK, Body: []byte("{}")}, nil
	}

	bodyJSON, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.apiKey, c.apiSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: url, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	c.logger.Debug("mailjet API response",
		"url", url,
		"status", resp.StatusCode,
		"bytes", len(respBody),
	)

	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}
