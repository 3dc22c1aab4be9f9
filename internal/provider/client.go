package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrUnexpectedStatus is returned for any non-2xx response other than 404.
var ErrUnexpectedStatus = errors.New("provider: unexpected status")

// ClientConfig controls the HTTP client for the voice-AI provider API.
type ClientConfig struct {
	// BaseURL is the API root, e.g. "https://api.vapi.ai".
	BaseURL string
	// APIKey is sent as a bearer token on every request.
	APIKey string

	Timeout time.Duration

	// HTTPClient overrides the default client; tests inject an
	// httptest-backed one.
	HTTPClient *http.Client
}

// Client talks to the provider's REST API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("provider: base url is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("provider: api key is required")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: cfg.BaseURL, apiKey: cfg.APIKey, http: hc}, nil
}

func (c *Client) ListCalls(ctx context.Context, assistantID string) ([]RawCall, error) {
	endpoint := c.baseURL + "/call"
	if assistantID != "" {
		endpoint += "?assistantId=" + url.QueryEscape(assistantID)
	}

	var out []RawCall
	found, err := c.getJSON(ctx, endpoint, &out)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: 404 on call list", ErrUnexpectedStatus)
	}
	return out, nil
}

func (c *Client) GetCall(ctx context.Context, id string) (*RawCall, error) {
	if id == "" {
		return nil, errors.New("provider: call id is required")
	}
	var out RawCall
	found, err := c.getJSON(ctx, c.baseURL+"/call/"+url.PathEscape(id), &out)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &out, nil
}

func (c *Client) GetAssistant(ctx context.Context, id string) (*Assistant, error) {
	if id == "" {
		return nil, errors.New("provider: assistant id is required")
	}
	var out Assistant
	found, err := c.getJSON(ctx, c.baseURL+"/assistant/"+url.PathEscape(id), &out)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &out, nil
}

// getJSON performs an authenticated GET and decodes the body into v.
// A 404 returns (false, nil); all other non-2xx statuses are errors.
func (c *Client) getJSON(ctx context.Context, endpoint string, v any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("provider: request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return false, fmt.Errorf("provider: decode failed: %w", err)
	}
	return true, nil
}
