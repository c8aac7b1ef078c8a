// SPDX-License-Identifier: MIT

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewProvider_None(t *testing.T) {
	for _, exporter := range []string{"", ExporterNone} {
		provider, err := NewProvider(context.Background(), Config{ServiceName: "test", Exporter: exporter})
		require.NoError(t, err)
		assert.False(t, provider.Enabled())

		_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
		assert.False(t, span.IsRecording())
		span.End()

		assert.NoError(t, provider.Shutdown(context.Background()))
	}
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{ServiceName: "test", Exporter: "zipkin"})
	require.Error(t, err)
	assert.Equal(t, "unsupported exporter type: zipkin (supported: none, grpc, http)", err.Error())
}

func TestNewProvider_HTTPExporter(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{
		ServiceName: "test",
		Exporter:    ExporterHTTP,
		Endpoint:    "127.0.0.1:4318",
		SampleRatio: 1,
	})
	require.NoError(t, err)
	assert.True(t, provider.Enabled())
	// Nothing was recorded, so shutdown does not reach the collector.
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{1.0, "AlwaysOnSampler"},
		{2.0, "AlwaysOnSampler"},
		{0.0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.5, "TraceIDRatioBased{0.5}"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sampler(tt.ratio).Description())
	}
}

func TestProviderRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider, err := NewProviderWithExporter(context.Background(),
		Config{ServiceName: "biketrack-proxy", ServiceVersion: "test", SampleRatio: 1},
		sdktrace.WithSpanProcessor(recorder))
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	_, span := Tracer("test").Start(context.Background(), "ingest")
	span.SetAttributes(TelemetryAttributes("A7670E_001", 120, true)...)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "ingest", ended[0].Name())
	assert.Contains(t, ended[0].Attributes(), TelemetryAttributes("A7670E_001", 0, false)[0])
	assert.Equal(t, "biketrack-proxy", serviceName(ended[0]))
}

func serviceName(s sdktrace.ReadOnlySpan) string {
	for _, kv := range s.Resource().Attributes() {
		if kv.Key == "service.name" {
			return kv.Value.AsString()
		}
	}
	return ""
}
