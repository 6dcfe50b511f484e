package observability

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestApplyDefaults(t *testing.T) {
	cfg := Config{Enabled: true}
	cfg.ApplyDefaults()

	assert.Equal(t, DefaultServiceName, cfg.Service.Name)
	assert.Equal(t, "unknown", cfg.Service.Version)
	assert.Equal(t, EnvironmentDevelopment, cfg.Environment)
	assert.True(t, cfg.Trace.IsEnabled())
	assert.True(t, cfg.Metrics.IsEnabled())
	assert.Equal(t, EndpointStdout, cfg.Trace.Endpoint)
	assert.Equal(t, ProtocolHTTP, cfg.Metrics.Protocol)
	require.NotNil(t, cfg.Trace.SampleRate)
	assert.Equal(t, 1.0, *cfg.Trace.SampleRate)
	assert.Equal(t, DefaultTraceBatchTimeout, cfg.Trace.BatchTimeout)
	assert.Equal(t, DefaultMetricsInterval, cfg.Metrics.Interval)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{Enabled: true}
	cfg.Trace.Enabled = BoolPtr(false)
	cfg.Trace.SampleRate = Float64Ptr(0)
	cfg.Metrics.Interval = time.Second
	cfg.ApplyDefaults()

	assert.False(t, cfg.Trace.IsEnabled())
	assert.Equal(t, 0.0, *cfg.Trace.SampleRate)
	assert.Equal(t, time.Second, cfg.Metrics.Interval)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "disabled ignores everything", mutate: func(c *Config) {
			c.Enabled = false
			c.Trace.Protocol = "carrier-pigeon"
		}},
		{name: "sample rate above one", mutate: func(c *Config) { c.Trace.SampleRate = Float64Ptr(1.5) }, wantErr: ErrInvalidSampleRate},
		{name: "negative sample rate", mutate: func(c *Config) { c.Trace.SampleRate = Float64Ptr(-0.1) }, wantErr: ErrInvalidSampleRate},
		{name: "unknown protocol", mutate: func(c *Config) {
			c.Trace.Endpoint = "collector:4318"
			c.Trace.Protocol = "udp"
		}, wantErr: ErrInvalidProtocol},
		{name: "grpc endpoint with scheme", mutate: func(c *Config) {
			c.Metrics.Endpoint = "https://collector:4317"
			c.Metrics.Protocol = ProtocolGRPC
		}, wantErr: ErrInvalidEndpointFormat},
		{name: "grpc host port", mutate: func(c *Config) {
			c.Metrics.Endpoint = "collector:4317"
			c.Metrics.Protocol = ProtocolGRPC
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Enabled: true}
			cfg.ApplyDefaults()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	var nilCfg *Config
	assert.ErrorIs(t, nilCfg.Validate(), ErrNilConfig)
}

func TestNewProviderDisabled(t *testing.T) {
	p, err := NewProvider(&Config{})
	require.NoError(t, err)

	assert.IsType(t, tracenoop.NewTracerProvider(), p.TracerProvider())
	assert.IsType(t, metricnoop.NewMeterProvider(), p.MeterProvider())
	assert.NoError(t, p.ForceFlush(context.Background()))
	assert.NoError(t, Shutdown(p, time.Second))
}

func TestNewProviderNilConfig(t *testing.T) {
	_, err := NewProvider(nil)
	assert.ErrorIs(t, err, ErrNilConfig)
}

func TestNewProviderInvalidConfig(t *testing.T) {
	_, err := NewProvider(&Config{Enabled: true, Trace: TraceConfig{SampleRate: Float64Ptr(2)}})
	assert.ErrorIs(t, err, ErrInvalidSampleRate)
}

func TestNewProviderStdout(t *testing.T) {
	var out bytes.Buffer
	p, err := NewProvider(&Config{Enabled: true, Service: ServiceConfig{Name: "checkout"}},
		WithStdoutWriter(&out), WithoutGlobals())
	require.NoError(t, err)

	assert.IsType(t, &sdktrace.TracerProvider{}, p.TracerProvider())
	assert.IsType(t, &sdkmetric.MeterProvider{}, p.MeterProvider())

	_, span := p.TracerProvider().Tracer("test").Start(context.Background(), "mercadopago GET")
	span.End()

	require.NoError(t, p.ForceFlush(context.Background()))
	assert.Contains(t, out.String(), "mercadopago GET")
	assert.Contains(t, out.String(), "checkout")

	assert.NoError(t, Shutdown(p, time.Second))
}

func TestNewProviderOTLPExportersAreLazy(t *testing.T) {
	for _, protocol := range []string{ProtocolHTTP, ProtocolGRPC} {
		t.Run(protocol, func(t *testing.T) {
			cfg := &Config{Enabled: true}
			cfg.Trace.Endpoint = "127.0.0.1:4317"
			cfg.Trace.Protocol = protocol
			cfg.Trace.Insecure = true
			cfg.Trace.Headers = map[string]string{"api-key": "secret"}
			cfg.Metrics.Endpoint = "127.0.0.1:4317"
			cfg.Metrics.Protocol = protocol
			cfg.Metrics.Insecure = true

			p, err := NewProvider(cfg, WithoutGlobals())
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			_ = p.Shutdown(ctx)
		})
	}
}

func TestNewProviderInstallsGlobals(t *testing.T) {
	prevTP, prevMP := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetMeterProvider(prevMP)
	})

	var out bytes.Buffer
	p, err := NewProvider(&Config{Enabled: true}, WithStdoutWriter(&out))
	require.NoError(t, err)
	t.Cleanup(func() { _ = Shutdown(p, time.Second) })

	assert.Same(t, p.TracerProvider(), otel.GetTracerProvider())
	assert.Same(t, p.MeterProvider(), otel.GetMeterProvider())
}

func TestEndpointOption(t *testing.T) {
	pick := func(endpoint string) string {
		return endpointOption(endpoint,
			func(s string) string { return "host:" + s },
			func(s string) string { return "url:" + s })
	}
	assert.Equal(t, "host:collector:4318", pick("collector:4318"))
	assert.Equal(t, "url:https://otlp.example.com/v1/traces", pick("https://otlp.example.com/v1/traces"))
}

func TestShutdownNilProvider(t *testing.T) {
	assert.NoError(t, Shutdown(nil, 0))
}
