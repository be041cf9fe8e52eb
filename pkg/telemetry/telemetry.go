package telemetry

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"

	"netblock/pkg/config"
)

// Config параметры трассировки
type Config struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	Version     string
	Environment string
	SampleRate  float64
	Insecure    bool
}

// FromConfig собирает параметры трассировки из конфигурации приложения
func FromConfig(cfg *config.Config) Config {
	return Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     cfg.App.Version,
		Environment: cfg.App.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
		Insecure:    cfg.Tracing.Insecure,
	}
}

// Provider держит TracerProvider и tracer сервиса.
// tp == nil означает, что трассировка выключена.
type Provider struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer
}

var current atomic.Pointer[Provider]

// Init поднимает OTLP/gRPC экспорт. Выключенная трассировка даёт
// provider поверх глобального (noop) tracer.
func Init(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{tracer: otel.Tracer(cfg.ServiceName)}, nil
	}

	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithDialOption(grpc.WithUserAgent(userAgent(cfg))),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return InitWithExporter(cfg, exporter, false)
}

// userAgent представляет сервис коллектору: netblock/1.0.0
func userAgent(cfg Config) string {
	if cfg.Version == "" {
		return cfg.ServiceName
	}
	return cfg.ServiceName + "/" + cfg.Version
}

// InitWithExporter строит provider поверх готового экспортёра.
// sync отправляет спаны сразу (tracetest.InMemoryExporter в тестах).
func InitWithExporter(cfg Config, exporter sdktrace.SpanExporter, sync bool) (*Provider, error) {
	res, err := serviceResource(cfg)
	if err != nil {
		return nil, err
	}

	delivery := sdktrace.WithBatcher(exporter)
	if sync {
		delivery = sdktrace.WithSyncer(exporter)
	}
	tp := sdktrace.NewTracerProvider(
		delivery,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler(cfg.SampleRate))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	p := &Provider{tp: tp, tracer: tp.Tracer(cfg.ServiceName)}
	current.Store(p)
	return p, nil
}

// serviceResource без схемы, чтобы не спорить со схемой resource.Default()
func serviceResource(cfg Config) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.Version),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// Shutdown сбрасывает буферы экспортёра и снимает provider с глобального места
func (p *Provider) Shutdown(ctx context.Context) error {
	current.CompareAndSwap(p, nil)
	if p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}

// Tracer tracer сервиса
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Get текущий provider; до Init отдаёт provider поверх глобального tracer
func Get() *Provider {
	if p := current.Load(); p != nil {
		return p
	}
	return &Provider{tracer: otel.Tracer("netblock")}
}

// StartSpan начинает span на tracer текущего provider
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Get().tracer.Start(ctx, name, opts...)
}

// WithAttributes атрибуты при старте span
func WithAttributes(attrs ...attribute.KeyValue) trace.SpanStartOption {
	return trace.WithAttributes(attrs...)
}

// AddEvent событие в span из контекста
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// SetAttributes атрибуты span из контекста
func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}

// SetError помечает span из контекста ошибочным
func SetError(ctx context.Context, err error) {
	fail(trace.SpanFromContext(ctx), err)
}

// End закрывает span со статусом по err
func End(span trace.Span, err error) {
	if err != nil {
		fail(span, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
