// Package ochp implements the clearing-house client over HTTP with JSON
// bodies.
package ochp

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

	"github.com/google/uuid"

	"github.com/kilianp07/evsync/core/model"
	"github.com/kilianp07/evsync/core/remote"
)

const DefaultTimeout = 30 * time.Second

// Config describes how to reach the clearing house.
type Config struct {
	BaseURL string        `json:"base_url"`
	APIKey  string        `json:"api_key"`
	OAuth   *OAuthConfig  `json:"oauth,omitempty"`
	Timeout time.Duration `json:"timeout"`
}

func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
}

func (c Config) Validate() error {
	var errs []error
	if c.BaseURL == "" {
		errs = append(errs, fmt.Errorf("remote.base_url is required"))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("remote.timeout must not be negative"))
	}
	if c.OAuth != nil && c.APIKey != "" {
		errs = append(errs, fmt.Errorf("remote: api_key and oauth are mutually exclusive"))
	}
	if c.OAuth != nil && c.OAuth.TokenURL == "" {
		errs = append(errs, fmt.Errorf("remote.oauth.token_url is required"))
	}
	return errors.Join(errs...)
}

// Client talks to the clearing house. It implements remote.Client.
type Client struct {
	baseURL string
	http    *http.Client
	auth    Authorizer
}

var _ remote.Client = (*Client)(nil)

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithAuthorizer replaces the credentials derived from the config.
func WithAuthorizer(a Authorizer) Option {
	return func(c *Client) { c.auth = a }
}

// New creates a Client. The per-call deadline comes from the context; the
// configured timeout only bounds calls made without one.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		auth:    APIKey(cfg.APIKey),
	}
	if cfg.OAuth != nil {
		c.auth = NewClientCred(*cfg.OAuth)
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

type itemsRequest[T any] struct {
	Items []T `json:"items"`
}

type statusRequest struct {
	TTLSeconds int                 `json:"ttl_seconds"`
	Statuses   []remote.WireStatus `json:"statuses"`
}

type cdrRequest struct {
	Records []model.ChargeDetailRecord `json:"records"`
}

type authorizeRequest struct {
	Token string `json:"token"`
}

func (c *Client) PushFullSet(ctx context.Context, items []remote.WireItem) (*remote.Result, error) {
	return c.pushResult(ctx, "/evse/full", itemsRequest[remote.WireItem]{Items: items})
}

func (c *Client) PushDelta(ctx context.Context, items []remote.DeltaItem) (*remote.Result, error) {
	return c.pushResult(ctx, "/evse/delta", itemsRequest[remote.DeltaItem]{Items: items})
}

func (c *Client) PushStatus(ctx context.Context, items []remote.WireStatus, ttl time.Duration) (*remote.Result, error) {
	return c.pushResult(ctx, "/status", statusRequest{TTLSeconds: int(ttl / time.Second), Statuses: items})
}

func (c *Client) PushCDRs(ctx context.Context, records []model.ChargeDetailRecord) (*remote.CDRResult, error) {
	var out remote.CDRResult
	status, empty, err := c.post(ctx, "/cdr", cdrRequest{Records: records}, &out)
	if err != nil || empty {
		return nil, err
	}
	out.HTTPStatus = status
	return &out, nil
}

func (c *Client) Authorize(ctx context.Context, token string) (*remote.AuthResponse, error) {
	var out remote.AuthResponse
	_, empty, err := c.post(ctx, "/authorize", authorizeRequest{Token: token}, &out)
	if err != nil || empty {
		return nil, err
	}
	return &out, nil
}

func (c *Client) pushResult(ctx context.Context, path string, body any) (*remote.Result, error) {
	var out remote.Result
	status, empty, err := c.post(ctx, path, body, &out)
	if err != nil || empty {
		return nil, err
	}
	out.HTTPStatus = status
	return &out, nil
}

// post sends body as JSON and decodes the response into out. empty is true
// when the server answered 2xx without a body.
func (c *Client) post(ctx context.Context, path string, body, out any) (status int, empty bool, err error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, false, fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if err := c.auth.SetAuthHeader(req); err != nil {
		return 0, false, fmt.Errorf("failed to set auth header: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, false, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, false, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, false, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, bytes.TrimSpace(data))
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return resp.StatusCode, true, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return resp.StatusCode, false, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, false, nil
}
