package observability

import (
	"context"
	"log"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	tracer         trace.Tracer
	requestCounter otelmetric.Int64Counter
	runDuration    otelmetric.Float64Histogram
}

type options struct {
	registerer     promclient.Registerer
	spanProcessors []sdktrace.SpanProcessor
	setGlobal      bool
}

type Option func(*options)

// WithRegisterer sends exported metrics to reg instead of the default
// Prometheus registry.
func WithRegisterer(reg promclient.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

func WithSpanProcessor(sp sdktrace.SpanProcessor) Option {
	return func(o *options) { o.spanProcessors = append(o.spanProcessors, sp) }
}

// WithoutGlobal keeps the providers out of the otel globals.
func WithoutGlobal() Option {
	return func(o *options) { o.setGlobal = false }
}

func New(serviceName string, opts ...Option) *Observability {
	o := &options{setGlobal: true}
	for _, opt := range opts {
		opt(o)
	}

	tpOpts := make([]sdktrace.TracerProviderOption, 0, len(o.spanProcessors))
	for _, sp := range o.spanProcessors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(sp))
	}
	tracerProvider := sdktrace.NewTracerProvider(tpOpts...)
	if o.setGlobal {
		otel.SetTracerProvider(tracerProvider)
	}

	var exporterOpts []prometheus.Option
	if o.registerer != nil {
		exporterOpts = append(exporterOpts, prometheus.WithRegisterer(o.registerer))
	}
	exporter, err := prometheus.New(exporterOpts...)
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{
			tracerProvider: tracerProvider,
			tracer:         tracerProvider.Tracer(serviceName),
		}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	if o.setGlobal {
		otel.SetMeterProvider(provider)
	}

	meter := provider.Meter(serviceName)

	requestCounter, _ := meter.Int64Counter(
		"http.server.requests",
		otelmetric.WithDescription("Number of relay requests handled"),
	)

	runDuration, _ := meter.Float64Histogram(
		"assistant.run.duration",
		otelmetric.WithDescription("Assistant orchestration duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider:  provider,
		tracerProvider: tracerProvider,
		meter:          meter,
		tracer:         tracerProvider.Tracer(serviceName),
		requestCounter: requestCounter,
		runDuration:    runDuration,
	}
}

// Tracer returns the service tracer, or a no-op tracer on a zero value.
func (o *Observability) Tracer() trace.Tracer {
	if o == nil || o.tracer == nil {
		return noop.NewTracerProvider().Tracer("")
	}
	return o.tracer
}

func (o *Observability) RecordRequest(ctx context.Context, status int) {
	if o == nil || o.requestCounter == nil {
		return
	}
	o.requestCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.Int("status", status),
	))
}

func (o *Observability) RecordRun(ctx context.Context, status string, duration time.Duration) {
	if o == nil || o.runDuration == nil {
		return
	}
	o.runDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("status", status),
	))
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.meterProvider != nil {
		o.meterProvider.Shutdown(ctx)
	}
	if o.tracerProvider != nil {
		o.tracerProvider.Shutdown(ctx)
	}
}
