// Package transport is the shared HTTP layer of the external source
// clients. One Client per source keeps connection pools separate and lets
// every error name the source it came from.
package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/agentstation/specimap/pkg/constants"
	"github.com/agentstation/specimap/pkg/errors"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// UserAgent identifies specimap to the public APIs it calls.
const UserAgent = "specimap (+https://github.com/agentstation/specimap)"

// Client provides HTTP client functionality for one source.
type Client struct {
	source string
	http   *http.Client
	auth   Authenticator
	apiKey string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying client, e.g. with an
// httptest server's.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithAuth applies apiKey to every request through auth.
func WithAuth(auth Authenticator, apiKey string) Option {
	return func(c *Client) {
		c.auth = auth
		c.apiKey = apiKey
	}
}

// New creates a transport client for the named source.
func New(source string, opts ...Option) *Client {
	c := &Client{
		source: source,
		http:   &http.Client{Timeout: DefaultHTTPTimeout},
		auth:   &NoAuth{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source returns the source name used in errors.
func (c *Client) Source() string {
	return c.source
}

// Do performs an HTTP request with authentication and common headers.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.apiKey != "" {
		c.auth.Apply(req, c.apiKey)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &errors.APIError{
			Source:   c.source,
			Endpoint: req.URL.Redacted(),
			Message:  "request failed",
			Err:      err,
		}
	}
	return resp, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WrapAPI(c.source, 0, err)
	}
	return c.Do(req)
}

// GetJSON fetches url and decodes a JSON body into target. A 404 is
// reported as found == false with a nil error.
func (c *Client) GetJSON(ctx context.Context, url string, target any) (bool, error) {
	return c.fetch(ctx, url, "", target)
}

// GetAs is GetJSON with an explicit Accept header, e.g. for SPARQL
// result formats.
func (c *Client) GetAs(ctx context.Context, url, accept string, target any) (bool, error) {
	return c.fetch(ctx, url, accept, target)
}

func (c *Client) fetch(ctx context.Context, url, accept string, target any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, errors.WrapAPI(c.source, 0, err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := c.Do(req)
	if err != nil {
		return false, err
	}
	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return false, nil
	}
	if err := DecodeResponse(resp, c.source, target); err != nil {
		return false, err
	}
	return true, nil
}
