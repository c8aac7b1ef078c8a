// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "biketrack_http_request_duration_seconds",
		Help:    "Latency of requests on the ingestion listener",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"method", "route", "code"})

	httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "biketrack_http_requests_in_flight",
		Help: "Requests currently being served",
	})

	// Tracker payloads are small; anything near the upper buckets is suspect.
	httpRequestSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "biketrack_http_request_size_bytes",
		Help:    "Declared request body sizes",
		Buckets: prometheus.ExponentialBuckets(64, 2, 8),
	}, []string{"route"})
)

// Metrics records latency, in-flight count and body size per chi route.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			httpRequestsInFlight.Inc()
			defer httpRequestsInFlight.Dec()

			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := routeLabel(r)
			code := ww.Status()
			if code == 0 {
				code = http.StatusOK
			}
			httpRequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(code)).
				Observe(time.Since(start).Seconds())
			if r.ContentLength > 0 {
				httpRequestSize.WithLabelValues(route).Observe(float64(r.ContentLength))
			}
		})
	}
}

// routeLabel keeps label cardinality bounded: device IDs in paths never
// become label values.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
