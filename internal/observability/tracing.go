package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Span exporters accepted in TRACING_EXPORTER.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// Tracer starts every farmfeed span. It is a no-op tracer until StartTracing
// installs an exporting provider.
var Tracer trace.Tracer = otel.Tracer("farmfeed")

// Tracing describes where a binary's spans go.
type Tracing struct {
	Service  string
	Env      string
	Exporter string
	// Endpoint is the OTLP/HTTP collector host:port.
	Endpoint string
	Ratio    float64
}

// StartTracing installs the global tracer provider and W3C propagators. The
// returned stop func flushes buffered spans.
func StartTracing(ctx context.Context, t Tracing) (func(context.Context) error, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	exp, err := spanExporter(ctx, t)
	if err != nil {
		return nil, err
	}
	if exp == nil {
		Tracer = otel.Tracer(t.Service)
		return func(context.Context) error { return nil }, nil
	}

	res := resource.NewSchemaless(
		semconv.ServiceName(t.Service),
		semconv.DeploymentEnvironment(t.Env),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(t.Ratio)),
	)
	otel.SetTracerProvider(tp)
	Tracer = tp.Tracer(t.Service)
	return tp.Shutdown, nil
}

// spanExporter returns nil when export is off.
func spanExporter(ctx context.Context, t Tracing) (sdktrace.SpanExporter, error) {
	switch t.Exporter {
	case "", ExporterNone:
		return nil, nil
	case ExporterStdout:
		return stdouttrace.New()
	case ExporterOTLP:
		exp, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(t.Endpoint),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("otlp exporter %s: %w", t.Endpoint, err)
		}
		return exp, nil
	default:
		return nil, fmt.Errorf("unknown tracing exporter %q", t.Exporter)
	}
}

func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// Span is a started span that records the operation's error when it ends.
type Span struct {
	span trace.Span
}

// NewSpan starts an internal span under ctx.
func NewSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (*Span, context.Context) {
	ctx, span := Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return &Span{span: span}, ctx
}

func (s *Span) SetAttributes(attrs ...attribute.KeyValue) {
	s.span.SetAttributes(attrs...)
}

// End marks the span failed when err is non-nil and ends it. Call it from a
// defer over a named error result.
func (s *Span) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()
}
