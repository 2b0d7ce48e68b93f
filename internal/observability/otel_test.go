package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("Setup() error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error: %v", err)
	}
}

func TestSetupExportsSpans(t *testing.T) {
	orig := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(orig) })

	var buf bytes.Buffer
	shutdown, err := Setup(context.Background(), Config{Enabled: true, ServiceName: "test-svc", Writer: &buf})
	if err != nil {
		t.Fatalf("Setup() error: %v", err)
	}

	_, span := Tracer().Start(context.Background(), "generate-outline")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown() error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "generate-outline") {
		t.Errorf("exported spans missing span name: %s", out)
	}
	if !strings.Contains(out, "test-svc") {
		t.Errorf("exported spans missing service name: %s", out)
	}
}

func TestTracerNoop(t *testing.T) {
	orig := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(orig) })
	otel.SetTracerProvider(noop.NewTracerProvider())

	_, span := Tracer().Start(context.Background(), "x")
	defer span.End()
	if span.SpanContext().IsValid() {
		t.Error("noop span should not have a valid context")
	}
}
