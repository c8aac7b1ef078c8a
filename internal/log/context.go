// SPDX-License-Identifier: MIT

// Package log provides structured logging utilities.
package log

import (
	"context"

	"github.com/rs/zerolog"
)

type scopeKey struct{}

// scope holds the identifiers a request picks up on its way through the
// proxy. It is copied on every change, never mutated in place.
type scope struct {
	requestID string
	deviceID  string
}

func scopeFrom(ctx context.Context) scope {
	if ctx == nil {
		return scope{}
	}
	s, _ := ctx.Value(scopeKey{}).(scope)
	return s
}

func withScope(ctx context.Context, edit func(*scope)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	s := scopeFrom(ctx)
	edit(&s)
	return context.WithValue(ctx, scopeKey{}, s)
}

// ContextWithRequestID stores the request ID assigned at ingress.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withScope(ctx, func(s *scope) { s.requestID = id })
}

// ContextWithDeviceID stores the tracker a request is about.
func ContextWithDeviceID(ctx context.Context, id string) context.Context {
	return withScope(ctx, func(s *scope) { s.deviceID = id })
}

func RequestIDFromContext(ctx context.Context) string { return scopeFrom(ctx).requestID }

func DeviceIDFromContext(ctx context.Context) string { return scopeFrom(ctx).deviceID }

// WithContext adds the request and device IDs carried by ctx to logger.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	s := scopeFrom(ctx)
	if s == (scope{}) {
		return logger
	}
	b := logger.With()
	if s.requestID != "" {
		b = b.Str(FieldRequestID, s.requestID)
	}
	if s.deviceID != "" {
		b = b.Str(FieldDeviceID, s.deviceID)
	}
	return b.Logger()
}

// WithComponentFromContext is WithComponent enriched by WithContext.
func WithComponentFromContext(ctx context.Context, component string) zerolog.Logger {
	return WithContext(ctx, WithComponent(component))
}
