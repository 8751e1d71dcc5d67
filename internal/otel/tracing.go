// Package otel sets up the process-wide tracer provider from the standard
// OTEL_* environment variables.
package otel

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const (
	defaultServiceName = "docverify"
	defaultProtocol    = "grpc"
	defaultSampler     = "parentbased_traceidratio"
)

// ShutdownFunc flushes pending spans and stops the exporter.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// settings is the part of the OTEL_* environment this service reads.
type settings struct {
	disabled    bool
	serviceName string
	protocol    string
	endpoint    string
	sampler     string
	samplerArg  string
}

func settingsFromEnv() settings {
	return settings{
		disabled:    strings.EqualFold(os.Getenv("OTEL_SDK_DISABLED"), "true"),
		serviceName: envOr("OTEL_SERVICE_NAME", defaultServiceName),
		protocol:    envOr("OTEL_EXPORTER_OTLP_PROTOCOL", defaultProtocol),
		endpoint:    envOr("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		sampler:     envOr("OTEL_TRACES_SAMPLER", defaultSampler),
		samplerArg:  envOr("OTEL_TRACES_SAMPLER_ARG", "1.0"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Init installs the W3C propagators and, unless the SDK is disabled, a batching
// OTLP tracer provider. An exporter that cannot be built is logged and leaves
// the global noop provider in place, so tracing never stops the service.
func Init(ctx context.Context, logger *slog.Logger) (ShutdownFunc, error) {
	logger = logger.With("component", "otel")
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	s := settingsFromEnv()
	if s.disabled {
		logger.Info("tracing_configured", "tracing_enabled", false)
		return noopShutdown, nil
	}

	exporter, err := newExporter(ctx, s.protocol)
	if err != nil {
		logger.Error("tracing_init_failed", "otlp_protocol", s.protocol, "error", err.Error())
		return noopShutdown, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(s.serviceName)),
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
	)
	if err != nil {
		_ = exporter.Shutdown(ctx)
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(s.sampler, s.samplerArg)),
	)
	otel.SetTracerProvider(tp)

	logger.Info("tracing_configured",
		"tracing_enabled", true,
		"service_name", s.serviceName,
		"otlp_protocol", s.protocol,
		"otlp_endpoint", s.endpoint,
		"sampler", s.sampler,
		"sampler_arg", s.samplerArg,
	)
	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, protocol string) (sdktrace.SpanExporter, error) {
	switch protocol {
	case "grpc":
		return otlptracegrpc.New(ctx)
	case "http/protobuf":
		return otlptracehttp.New(ctx)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol: %s", protocol)
	}
}

// newSampler maps an OTEL_TRACES_SAMPLER name to a sampler. A ratio that does
// not parse or lies outside [0, 1] samples everything. Unknown names get the
// parent-based ratio sampler.
func newSampler(name, arg string) sdktrace.Sampler {
	ratio, err := strconv.ParseFloat(arg, 64)
	if err != nil || ratio < 0 || ratio > 1 {
		ratio = 1
	}

	switch name {
	case "always_on":
		return sdktrace.AlwaysSample()
	case "always_off":
		return sdktrace.NeverSample()
	case "traceidratio":
		return sdktrace.TraceIDRatioBased(ratio)
	case "parentbased_always_on":
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case "parentbased_always_off":
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}
