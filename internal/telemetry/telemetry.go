// Package telemetry installs the OpenTelemetry tracer provider used by the
// spans around tool dispatch, matching and store calls. Spans are only
// exported when an OTLP endpoint is configured; otherwise the global
// provider stays the no-op default.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// ErrInvalidEndpoint is returned when the OTLP endpoint is not an http(s) URL.
var ErrInvalidEndpoint = errors.New("telemetry: invalid OTLP endpoint")

// Config configures tracing.
type Config struct {
	// OTLPEndpoint is the collector base URL, e.g. http://localhost:4318.
	// Empty disables export.
	OTLPEndpoint string            `yaml:"otlp_endpoint"`
	Headers      map[string]string `yaml:"headers"`
	// SampleRatio in [0,1]. Zero means sample everything.
	SampleRatio float64 `yaml:"sample_ratio"`
	ServiceName string  `yaml:"service_name"`
}

// Enabled reports whether spans will be exported.
func (c Config) Enabled() bool { return c.OTLPEndpoint != "" }

// Validate checks the endpoint and sample ratio.
func (c Config) Validate() error {
	var errs []error
	if c.OTLPEndpoint != "" {
		u, err := url.Parse(c.OTLPEndpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidEndpoint, c.OTLPEndpoint))
		}
	}
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("telemetry: sample_ratio %v out of range [0,1]", c.SampleRatio))
	}
	return errors.Join(errs...)
}

// Provider owns the SDK tracer provider. A Provider built from a disabled
// config has nothing to flush and Shutdown is a no-op.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// Setup builds the exporter and installs a global tracer provider.
func Setup(ctx context.Context, cfg Config, version string, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Enabled() {
		logger.Debug("telemetry disabled")
		return &Provider{}, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	u, _ := url.Parse(cfg.OTLPEndpoint)
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(u.Host)}
	if u.Scheme == "http" {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if u.Path != "" && u.Path != "/" {
		opts = append(opts, otlptracehttp.WithURLPath(u.Path))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}

	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create exporter: %w", err)
	}

	p := NewProvider(sdktrace.NewBatchSpanProcessor(exp), cfg, version)
	otel.SetTracerProvider(p.tp)
	logger.Info("telemetry enabled", "endpoint", u.Host)
	return p, nil
}

// NewProvider builds a Provider around an arbitrary span processor
// without installing it globally.
func NewProvider(sp sdktrace.SpanProcessor, cfg Config, version string) *Provider {
	name := cfg.ServiceName
	if name == "" {
		name = "coffee"
	}
	res := resource.NewSchemaless(
		attribute.String("service.name", name),
		attribute.String("service.version", version),
	)

	sampler := sdktrace.AlwaysSample()
	if cfg.SampleRatio > 0 && cfg.SampleRatio < 1 {
		sampler = sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))
	}

	return &Provider{tp: sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)}
}

// Tracer returns a named tracer from this provider, or from the global
// one when export is disabled.
func (p *Provider) Tracer(name string) trace.Tracer {
	if p == nil || p.tp == nil {
		return otel.Tracer(name)
	}
	return p.tp.Tracer(name)
}

// Shutdown flushes pending spans. It is bounded by a 5s timeout on top of ctx.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.tp.Shutdown(ctx)
}
