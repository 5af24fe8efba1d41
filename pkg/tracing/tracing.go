// Package tracing configures OpenTelemetry for the control plane. With no
// OTLP endpoint configured a no-op provider is returned, so callers can
// always create spans without checking whether tracing is enabled.
package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cjrt007/Tornado.Ai/pkg/defaults"
	"github.com/cjrt007/Tornado.Ai/pkg/duration"
)

// Instrumentation scope names.
const (
	ScopeAPI    = "tornado/api"
	ScopeClient = "tornado/controlclient"
	ScopeMCP    = "tornado/mcp"
)

// Options configures the OTLP exporter.
type Options struct {
	// Endpoint is the OTLP gRPC endpoint (e.g. "localhost:4317"). Empty
	// disables export.
	Endpoint string

	// ServiceName defaults to defaults.ServiceName.
	ServiceName string

	// Insecure disables TLS on the exporter connection.
	Insecure bool

	// Headers are sent with every export.
	Headers map[string]string

	// ShutdownTimeout bounds the final flush (default: duration.TracerShutdown).
	ShutdownTimeout time.Duration
}

// Provider owns a tracer provider and its shutdown.
type Provider struct {
	tp       trace.TracerProvider
	sdk      *sdktrace.TracerProvider
	shutdown time.Duration
}

// Noop returns a provider whose spans are discarded.
func Noop() *Provider {
	return &Provider{tp: noop.NewTracerProvider()}
}

// NewWithSDK wraps an existing SDK provider, e.g. one backed by an
// in-memory span recorder in tests.
func NewWithSDK(tp *sdktrace.TracerProvider) *Provider {
	return &Provider{tp: tp, sdk: tp, shutdown: duration.TracerShutdown}
}

// Setup builds a provider from opts. The exporter dials lazily, so an
// unreachable collector does not block startup.
func Setup(ctx context.Context, opts Options) (*Provider, error) {
	if opts.Endpoint == "" {
		return Noop(), nil
	}
	if opts.ServiceName == "" {
		opts.ServiceName = defaults.ServiceName
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = duration.TracerShutdown
	}

	exporterOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(opts.Endpoint),
		otlptracegrpc.WithTimeout(duration.ExporterTimeout),
	}
	if opts.Insecure {
		exporterOpts = append(exporterOpts,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	if len(opts.Headers) > 0 {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithHeaders(opts.Headers))
	}

	exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("tracing: creating OTLP exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceVersion(defaults.Version),
		attribute.String("service.component", "control-plane"),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)
	return &Provider{tp: tp, sdk: tp, shutdown: opts.ShutdownTimeout}, nil
}

// TracerProvider returns the underlying provider.
func (p *Provider) TracerProvider() trace.TracerProvider { return p.tp }

// Tracer returns a named tracer.
func (p *Provider) Tracer(scope string) trace.Tracer {
	return p.tp.Tracer(scope, trace.WithInstrumentationVersion(defaults.Version))
}

// Shutdown flushes pending spans. It is a no-op for Noop providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, p.shutdown)
	defer cancel()
	return p.sdk.Shutdown(ctx)
}

// RecordError marks span as failed when err is non-nil.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// OrNoop returns t, or a no-op tracer when t is nil.
func OrNoop(t trace.Tracer) trace.Tracer {
	if t == nil {
		return noop.NewTracerProvider().Tracer("")
	}
	return t
}
