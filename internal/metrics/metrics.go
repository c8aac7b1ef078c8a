// SPDX-License-Identifier: MIT

// Package metrics holds the Prometheus collectors of the ingestion proxy.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingest outcomes.
const (
	OutcomeForwarded     = "forwarded"
	OutcomeBadRequest    = "bad_request"
	OutcomeInvalid       = "invalid"
	OutcomeUnknownDevice = "unknown_device"
	OutcomeUpstreamError = "upstream_error"
)

var (
	ingestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "biketrack_ingest_requests_total",
		Help: "Telemetry requests by outcome",
	}, []string{"outcome"})

	ingestPayloadBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "biketrack_ingest_payload_bytes",
		Help:    "Size of accepted telemetry bodies",
		Buckets: prometheus.ExponentialBuckets(64, 2, 8),
	})

	gpsFixTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "biketrack_gps_fix_total",
		Help: "Forwarded rows by GPS fix state",
	}, []string{"fix"}) // fix=true|false

	upstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "biketrack_upstream_request_duration_seconds",
		Help:    "Latency of inserts into the upstream table",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"}) // outcome=ok|http_<code>|unreachable

	lastForwardTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "biketrack_last_forward_timestamp_seconds",
		Help: "Unix time of the last successful forward",
	})

	configReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "biketrack_config_reloads_total",
		Help: "Configuration reloads by result",
	}, []string{"result"}) // result=success|failure

	circuitState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "biketrack_circuit_breaker_state",
		Help: "Circuit breaker state, 1 for the current state",
	}, []string{"breaker", "state"})

	circuitTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "biketrack_circuit_breaker_trips_total",
		Help: "Transitions of a circuit breaker into the open state",
	}, []string{"breaker", "reason"})

	buildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "biketrack_build_info",
		Help: "Build information, always 1",
	}, []string{"version"})
)

// IncIngest counts one handled telemetry request.
func IncIngest(outcome string) { ingestTotal.WithLabelValues(outcome).Inc() }

// ObservePayload records the size of an accepted body.
func ObservePayload(n int) { ingestPayloadBytes.Observe(float64(n)) }

// RecordForward records a successful forward.
func RecordForward(gpsFix bool, at time.Time) {
	gpsFixTotal.WithLabelValues(strconv.FormatBool(gpsFix)).Inc()
	lastForwardTimestamp.Set(float64(at.Unix()))
}

// ObserveUpstream records the latency of one upstream call. status is the
// HTTP status of a rejected insert, zero for a success and -1 when no
// response was received.
func ObserveUpstream(status int, d time.Duration) {
	outcome := "ok"
	switch {
	case status < 0:
		outcome = "unreachable"
	case status > 0:
		outcome = "http_" + strconv.Itoa(status)
	}
	upstreamDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// IncConfigReload counts a reload attempt.
func IncConfigReload(ok bool) {
	if ok {
		configReloads.WithLabelValues("success").Inc()
		return
	}
	configReloads.WithLabelValues("failure").Inc()
}

var breakerStates = []string{"closed", "open", "half-open"}

// SetCircuitBreakerState marks state as the current state of a breaker.
func SetCircuitBreakerState(name, state string) {
	for _, s := range breakerStates {
		v := 0.0
		if s == state {
			v = 1
		}
		circuitState.WithLabelValues(name, s).Set(v)
	}
}

// RecordCircuitBreakerTrip counts a breaker opening.
func RecordCircuitBreakerTrip(name, reason string) {
	circuitTrips.WithLabelValues(name, reason).Inc()
}

// SetBuildInfo publishes the running version.
func SetBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
