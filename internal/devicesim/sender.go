// SPDX-License-Identifier: MIT

package devicesim

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/biketrack/biketrack/internal/ingest"
	xglog "github.com/biketrack/biketrack/internal/log"
	"github.com/biketrack/biketrack/internal/platform/httpx"
	"github.com/biketrack/biketrack/internal/secrets"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const maxErrorBody = 512

// ResponseError is returned by Send when the proxy answers with a non-2xx
// status.
type ResponseError struct {
	Status int
	Body   string
}

func (e *ResponseError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("proxy returned HTTP %d", e.Status)
	}
	return fmt.Sprintf("proxy returned HTTP %d: %s", e.Status, e.Body)
}

// SenderConfig configures a Sender.
type SenderConfig struct {
	URL     string
	Timeout time.Duration
	// Interval paces Run; zero sends back to back.
	Interval   time.Duration
	HTTPClient *http.Client
}

// Sender posts payloads to the ingestion proxy.
type Sender struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewSender creates a sender for cfg.URL.
func NewSender(cfg SenderConfig) (*Sender, error) {
	if cfg.URL == "" {
		return nil, errors.New("proxy URL is required")
	}
	s := &Sender{
		url:    cfg.URL,
		client: cfg.HTTPClient,
		logger: xglog.WithComponent("devicesim"),
	}
	if s.client == nil {
		s.client = httpx.NewClient(cfg.Timeout, httpx.WithTracing("proxy"))
	}
	if cfg.Interval > 0 {
		s.limiter = rate.NewLimiter(rate.Every(cfg.Interval), 1)
	}
	return s, nil
}

// NewDeviceSender creates a sender for the proxy named by the device record.
func NewDeviceSender(dc secrets.DeviceConfig, timeout, interval time.Duration) (*Sender, error) {
	return NewSender(SenderConfig{URL: dc.ProxyURL(), Timeout: timeout, Interval: interval})
}

// Send posts one payload.
func (s *Sender) Send(ctx context.Context, p ingest.Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post telemetry: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &ResponseError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Run sends count messages from g, or until ctx is done when count is zero
// or negative. Rejected messages are logged and do not stop the run;
// transport errors do. It returns the number of accepted messages.
func (s *Sender) Run(ctx context.Context, g *Generator, count int) (int, error) {
	sent := 0
	for i := 0; count <= 0 || i < count; i++ {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return sent, ctxErr(ctx, err)
			}
		} else if err := ctx.Err(); err != nil {
			return sent, err
		}

		p := g.Next()
		err := s.Send(ctx, p)
		var respErr *ResponseError
		switch {
		case err == nil:
			sent++
			s.logger.Debug().
				Str(xglog.FieldEvent, "devicesim.sent").
				Int("seq", i+1).
				Bool("gps_fix", p.GPS != nil && bool(*p.GPS)).
				Msg("telemetry accepted")
		case errors.As(err, &respErr):
			s.logger.Warn().
				Str(xglog.FieldEvent, "devicesim.rejected").
				Int(xglog.FieldStatus, respErr.Status).
				Str("body", respErr.Body).
				Msg("proxy rejected telemetry")
		default:
			return sent, err
		}
	}
	return sent, nil
}

// ctxErr prefers the context error over the limiter's wrapping of it.
func ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
