// SPDX-License-Identifier: MIT

package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/biketrack/biketrack/internal/ingest"
	"github.com/biketrack/biketrack/internal/kvstore"
	xglog "github.com/biketrack/biketrack/internal/log"
	"github.com/biketrack/biketrack/internal/metrics"
	"github.com/biketrack/biketrack/internal/resilience"
	"github.com/biketrack/biketrack/internal/supabase"
	"github.com/biketrack/biketrack/internal/telemetry"
	"github.com/biketrack/biketrack/internal/validate"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ingestTarget struct {
	table     string
	forwarder Forwarder
	devices   DeviceLookup
}

func (s *Server) handleIngest(t ingestTarget) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := xglog.WithComponentFromContext(r.Context(), "ingest")

		body, err := io.ReadAll(r.Body)
		if err != nil {
			metrics.IncIngest(metrics.OutcomeBadRequest)
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			writeError(w, http.StatusBadRequest, "failed to read request body")
			return
		}

		payload, err := ingest.Decode(body)
		if err != nil {
			metrics.IncIngest(metrics.OutcomeBadRequest)
			logger.Warn().Err(err).Str(xglog.FieldEvent, "ingest.bad_request").Msg("rejected malformed payload")
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		row := ingest.Expand(payload)
		if err := row.Validate(); err != nil {
			metrics.IncIngest(metrics.OutcomeInvalid)
			resp := errorResponse{Error: "invalid telemetry"}
			var verr validate.ValidationError
			if errors.As(err, &verr) {
				resp.Fields = verr.Fields()
			}
			logger.Warn().
				Str(xglog.FieldEvent, "ingest.invalid").
				Strs("fields", resp.Fields).
				Msg("rejected invalid telemetry")
			writeJSON(w, http.StatusUnprocessableEntity, resp)
			return
		}

		ctx := xglog.ContextWithDeviceID(r.Context(), row.DeviceID)
		logger = xglog.WithComponentFromContext(ctx, "ingest")
		span := trace.SpanFromContext(ctx)
		span.SetAttributes(telemetry.TelemetryAttributes(row.DeviceID, len(body), isTrue(row.GPSValid))...)

		if t.devices != nil {
			if _, err := t.devices.Get(ctx, row.DeviceID); err != nil {
				if errors.Is(err, kvstore.ErrNotFound) {
					metrics.IncIngest(metrics.OutcomeUnknownDevice)
					logger.Warn().Str(xglog.FieldEvent, "ingest.unknown_device").Msg("rejected telemetry from unprovisioned device")
					writeError(w, http.StatusForbidden, "unknown device")
					return
				}
				metrics.IncIngest(metrics.OutcomeUpstreamError)
				logger.Error().Err(err).Str(xglog.FieldEvent, "ingest.registry_error").Msg("device registry lookup failed")
				writeError(w, http.StatusServiceUnavailable, "device registry unavailable")
				return
			}
		}

		start := time.Now()
		err = s.breaker.Do(ctx, func(ctx context.Context) error {
			return t.forwarder.Insert(ctx, t.table, row)
		})
		elapsed := time.Since(start)

		if errors.Is(err, resilience.ErrCircuitOpen) {
			metrics.IncIngest(metrics.OutcomeUpstreamError)
			span.SetAttributes(telemetry.ErrorAttributes("circuit_open")...)
			span.SetStatus(codes.Error, "upstream circuit open")
			logger.Warn().Str(xglog.FieldEvent, "ingest.circuit_open").Msg("upstream circuit open, rejecting telemetry")
			retry := int(math.Ceil(s.breaker.RetryAfter().Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(max(1, retry)))
			writeError(w, http.StatusServiceUnavailable, "upstream unavailable")
			return
		}
		s.recordForward(err)

		if err != nil {
			status, msg := relayStatus(err)
			code := upstreamCode(err)
			metrics.ObserveUpstream(code, elapsed)
			metrics.IncIngest(metrics.OutcomeUpstreamError)
			span.SetAttributes(telemetry.UpstreamAttributes(t.table, max(code, 0))...)
			span.SetAttributes(telemetry.ErrorAttributes("upstream")...)
			span.SetStatus(codes.Error, msg)
			logger.Error().
				Err(err).
				Str(xglog.FieldEvent, "ingest.upstream_failed").
				Int(xglog.FieldStatus, status).
				Int64(xglog.FieldDurationMS, elapsed.Milliseconds()).
				Msg("upstream insert failed")
			writeError(w, status, msg)
			return
		}

		metrics.ObserveUpstream(0, elapsed)
		metrics.ObservePayload(len(body))
		metrics.RecordForward(isTrue(row.GPSValid), time.Now())
		metrics.IncIngest(metrics.OutcomeForwarded)
		span.SetAttributes(telemetry.UpstreamAttributes(t.table, 0)...)
		logger.Info().
			Str(xglog.FieldEvent, "ingest.forwarded").
			Int64(xglog.FieldDurationMS, elapsed.Milliseconds()).
			Msg("telemetry forwarded")
		writeJSON(w, http.StatusOK, successResponse{Success: true})
	}
}

// relayStatus maps an upstream failure onto the status returned to the
// tracker. Error statuses are relayed, anything else becomes 502.
func relayStatus(err error) (int, string) {
	var apiErr *supabase.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.Status
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		return status, fmt.Sprintf("upstream rejected row: HTTP %d", apiErr.Status)
	}
	return http.StatusBadGateway, "upstream unreachable"
}

// isUpstreamFailure reports whether err says the upstream itself is in
// trouble. Rejections of a row (4xx other than 429) leave the circuit alone.
func isUpstreamFailure(err error) bool {
	var apiErr *supabase.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusInternalServerError || apiErr.Status == http.StatusTooManyRequests
	}
	return true
}

// upstreamCode is the upstream HTTP status, or -1 without a response.
func upstreamCode(err error) int {
	var apiErr *supabase.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return -1
}

func isTrue(b *bool) bool { return b != nil && *b }
