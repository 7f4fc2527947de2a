package instrumentation

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys shared across the OAuth flows. These carry metadata
// only; token and code values must never appear in traces.
const (
	AttrClientID     = "oauth.client_id"
	AttrGrantType    = "oauth.grant_type"
	AttrScope        = "oauth.scope"
	AttrProviderName = "oauth.provider"
	AttrErrorCode    = "oauth.error_code"
)

// RecordSpanError marks the span as failed and records the error.
// Safe to call with a nil span or nil error.
func RecordSpanError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanSuccess marks the span as successful. Safe to call with a nil span.
func SetSpanSuccess(span trace.Span) {
	if span == nil {
		return
	}
	span.SetStatus(codes.Ok, "")
}

// SetSpanAttributes sets attributes on the span. Safe to call with a nil span.
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span == nil {
		return
	}
	span.SetAttributes(attrs...)
}
