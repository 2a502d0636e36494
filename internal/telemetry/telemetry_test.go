package telemetry

import (
	"context"
	"errors"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "disabled", cfg: Config{}},
		{name: "http", cfg: Config{OTLPEndpoint: "http://localhost:4318"}},
		{name: "https with path", cfg: Config{OTLPEndpoint: "https://otel.example.com/v1/traces", SampleRatio: 0.5}},
		{name: "no scheme", cfg: Config{OTLPEndpoint: "localhost:4318"}, wantErr: ErrInvalidEndpoint},
		{name: "grpc scheme", cfg: Config{OTLPEndpoint: "grpc://collector:4317"}, wantErr: ErrInvalidEndpoint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if err := (Config{SampleRatio: 1.5}).Validate(); err == nil {
		t.Error("expected error for sample_ratio > 1")
	}
}

func TestSetup_Disabled(t *testing.T) {
	t.Parallel()

	p, err := Setup(context.Background(), Config{}, "test", nil)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if p.Tracer("x") == nil {
		t.Fatal("nil tracer")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestSetup_InvalidEndpoint(t *testing.T) {
	t.Parallel()

	_, err := Setup(context.Background(), Config{OTLPEndpoint: "nope"}, "test", nil)
	if !errors.Is(err, ErrInvalidEndpoint) {
		t.Fatalf("err = %v, want ErrInvalidEndpoint", err)
	}
}

func TestProvider_RecordsSpans(t *testing.T) {
	t.Parallel()

	exp := tracetest.NewInMemoryExporter()
	p := NewProvider(sdktrace.NewSimpleSpanProcessor(exp), Config{ServiceName: "coffee-test"}, "v0")

	_, span := p.Tracer("test").Start(context.Background(), "tool.dispatch")
	span.End()

	spans := exp.GetSpans()
	if len(spans) != 1 || spans[0].Name != "tool.dispatch" {
		t.Fatalf("spans = %+v", spans)
	}

	var service string
	for _, kv := range spans[0].Resource.Attributes() {
		if kv.Key == "service.name" {
			service = kv.Value.AsString()
		}
	}
	if service != "coffee-test" {
		t.Errorf("service.name = %q", service)
	}

	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestProvider_NilSafe(t *testing.T) {
	t.Parallel()

	var p *Provider
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if p.Tracer("x") == nil {
		t.Fatal("nil tracer")
	}
}
