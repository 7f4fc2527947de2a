package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestSpanHelpers(t *testing.T) {
	inst, err := New(Config{Enabled: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() { _ = inst.Shutdown(context.Background()) }()

	_, span := inst.Tracer("server").Start(context.Background(), "test-span")
	defer span.End()

	RecordSpanError(span, errors.New("test error"))
	SetSpanSuccess(span)
	SetSpanAttributes(span,
		attribute.String(AttrClientID, "client-1"),
		attribute.String(AttrGrantType, "authorization_code"),
	)
}

func TestSpanHelpersNilSafe(t *testing.T) {
	RecordSpanError(nil, errors.New("test error"))
	RecordSpanError(nil, nil)
	SetSpanSuccess(nil)
	SetSpanAttributes(nil, attribute.String(AttrScope, "mcp:query"))
}
