package otel

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Disabled(t *testing.T) {
	t.Setenv("OTEL_SDK_DISABLED", "TRUE")
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	shutdown, err := Init(context.Background(), logger)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), `"msg":"tracing_configured"`)
	assert.Contains(t, buf.String(), `"component":"otel"`)
	assert.Contains(t, buf.String(), `"tracing_enabled":false`)
}

func TestInit_UnsupportedProtocolDegrades(t *testing.T) {
	t.Setenv("OTEL_SDK_DISABLED", "false")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "http/json")
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	shutdown, err := Init(context.Background(), logger)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), `"msg":"tracing_init_failed"`)
	assert.Contains(t, buf.String(), `"otlp_protocol":"http/json"`)
	assert.Contains(t, buf.String(), "unsupported OTLP protocol")
	assert.NotContains(t, buf.String(), "tracing_configured")
}

func TestSettingsFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		for _, k := range []string{
			"OTEL_SDK_DISABLED", "OTEL_SERVICE_NAME", "OTEL_EXPORTER_OTLP_PROTOCOL",
			"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT",
			"OTEL_TRACES_SAMPLER", "OTEL_TRACES_SAMPLER_ARG",
		} {
			t.Setenv(k, "")
		}

		assert.Equal(t, settings{
			serviceName: "docverify",
			protocol:    "grpc",
			sampler:     "parentbased_traceidratio",
			samplerArg:  "1.0",
		}, settingsFromEnv())
	})

	t.Run("traces endpoint wins over the generic one", func(t *testing.T) {
		t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4317")
		t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "http://traces:4318/v1/traces")
		assert.Equal(t, "http://traces:4318/v1/traces", settingsFromEnv().endpoint)

		t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
		assert.Equal(t, "http://collector:4317", settingsFromEnv().endpoint)
	})
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		name string
		arg  string
		want string
	}{
		{"always_on", "0.5", "AlwaysOnSampler"},
		{"always_off", "0.5", "AlwaysOffSampler"},
		{"traceidratio", "0.5", "TraceIDRatioBased{0.5}"},
		{"traceidratio", "not-a-number", "AlwaysOnSampler"},
		{"traceidratio", "1.5", "AlwaysOnSampler"},
		{"parentbased_always_on", "", "ParentBased{root:AlwaysOnSampler"},
		{"parentbased_always_off", "", "ParentBased{root:AlwaysOffSampler"},
		{"parentbased_traceidratio", "0.25", "ParentBased{root:TraceIDRatioBased{0.25}"},
		{"jaeger_remote", "0.25", "ParentBased{root:TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.arg, func(t *testing.T) {
			assert.Contains(t, newSampler(tt.name, tt.arg).Description(), tt.want)
		})
	}
}
