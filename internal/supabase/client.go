// SPDX-License-Identifier: MIT

// Package supabase is a minimal client for the Supabase REST (PostgREST) API.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	xglog "github.com/biketrack/biketrack/internal/log"
	"github.com/biketrack/biketrack/internal/platform/httpx"
	"golang.org/x/time/rate"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4 << 10

// APIError is a non-2xx response from Supabase.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("supabase: HTTP %d", e.Status)
	}
	return fmt.Sprintf("supabase: HTTP %d: %s", e.Status, body)
}

// Config configures a Client.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
	// RPS limits outgoing requests per second; zero disables pacing.
	RPS   float64
	Burst int
	// HTTPClient overrides the default instrumented client.
	HTTPClient *http.Client
}

// Client inserts rows through the REST API.
type Client struct {
	base    *url.URL
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

// New validates cfg and creates a client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("supabase: API key is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil || base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, fmt.Errorf("supabase: invalid project URL %q", cfg.URL)
	}

	c := &Client{base: base, apiKey: cfg.APIKey, http: cfg.HTTPClient}
	if c.http == nil {
		c.http = httpx.NewClient(cfg.Timeout, httpx.WithTracing("supabase"))
	}
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	return c, nil
}

// BaseURL returns the project URL.
func (c *Client) BaseURL() string { return c.base.String() }

func (c *Client) endpoint(elem ...string) string {
	return c.base.JoinPath(elem...).String()
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if rid := xglog.RequestIDFromContext(ctx); rid != "" {
		req.Header.Set("X-Request-ID", rid)
	}
	return req, nil
}

// Insert posts one row to /rest/v1/{table} with Prefer: return=minimal.
func (c *Client) Insert(ctx context.Context, table string, row any) error {
	if table == "" {
		return fmt.Errorf("supabase: table is required")
	}
	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("supabase: encode row: %w", err)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("supabase: rate limit wait: %w", err)
		}
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint("rest", "v1", table), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("supabase: build request: %w", err)
	}
	req.Header.Set("Prefer", "return=minimal")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("supabase: insert into %s: %w", table, err)
	}
	defer resp.Body.Close()
	return checkResponse(resp)
}

// Ping checks that the REST endpoint answers and accepts the key.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodHead, c.endpoint("rest", "v1")+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("supabase: unreachable: %w", err)
	}
	defer resp.Body.Close()
	return checkResponse(resp)
}

func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &APIError{Status: resp.StatusCode, Body: string(body)}
}
