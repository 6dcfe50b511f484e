// Package observability builds the OpenTelemetry tracer and meter providers
// the REST client reports to.
package observability

import (
	"fmt"
	"strings"
	"time"
)

const (
	// EndpointStdout writes telemetry to stdout instead of an OTLP collector.
	EndpointStdout = "stdout"

	// ProtocolHTTP specifies OTLP over HTTP/protobuf.
	ProtocolHTTP = "http"

	// ProtocolGRPC specifies OTLP over gRPC.
	ProtocolGRPC = "grpc"

	// EnvironmentDevelopment is the default deployment environment.
	EnvironmentDevelopment = "development"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultServiceName         = "mercadopago-client"
	DefaultTraceBatchTimeout   = 5 * time.Second
	DefaultTraceExportTimeout  = 30 * time.Second
	DefaultMetricsInterval     = 60 * time.Second
	DefaultMetricExportTimeout = 30 * time.Second
)

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool { return &v }

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 { return &v }

// Config selects where spans and metrics go. Disabled configuration yields
// no-op providers.
type Config struct {
	Enabled     bool          `koanf:"enabled" json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Service     ServiceConfig `koanf:"service" json:"service" yaml:"service" mapstructure:"service"`
	Environment string        `koanf:"environment" json:"environment" yaml:"environment" mapstructure:"environment"`
	Trace       TraceConfig   `koanf:"trace" json:"trace" yaml:"trace" mapstructure:"trace"`
	Metrics     MetricsConfig `koanf:"metrics" json:"metrics" yaml:"metrics" mapstructure:"metrics"`
}

// ServiceConfig identifies the application in exported telemetry.
type ServiceConfig struct {
	Name    string `koanf:"name" json:"name" yaml:"name" mapstructure:"name"`
	Version string `koanf:"version" json:"version" yaml:"version" mapstructure:"version"`
}

// ExporterConfig is shared by the trace and metric exporters.
type ExporterConfig struct {
	// Enabled defaults to true when observability is enabled.
	Enabled *bool `koanf:"enabled" json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	// Endpoint is "stdout" or an OTLP collector address. gRPC endpoints are
	// host:port; HTTP endpoints are host:port or a URL.
	Endpoint string            `koanf:"endpoint" json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`
	Protocol string            `koanf:"protocol" json:"protocol" yaml:"protocol" mapstructure:"protocol"`
	Insecure bool              `koanf:"insecure" json:"insecure" yaml:"insecure" mapstructure:"insecure"`
	Headers  map[string]string `koanf:"headers" json:"-" yaml:"headers" mapstructure:"headers"`
	// ExportTimeout bounds a single export.
	ExportTimeout time.Duration `koanf:"exporttimeout" json:"exporttimeout" yaml:"exporttimeout" mapstructure:"exporttimeout"`
}

// TraceConfig configures span export.
type TraceConfig struct {
	ExporterConfig `koanf:",squash" json:",inline" yaml:",inline" mapstructure:",squash"`
	// SampleRate is the ratio of traces kept. nil means 1.0.
	SampleRate   *float64      `koanf:"samplerate" json:"samplerate" yaml:"samplerate" mapstructure:"samplerate"`
	BatchTimeout time.Duration `koanf:"batchtimeout" json:"batchtimeout" yaml:"batchtimeout" mapstructure:"batchtimeout"`
}

// MetricsConfig configures metric export.
type MetricsConfig struct {
	ExporterConfig `koanf:",squash" json:",inline" yaml:",inline" mapstructure:",squash"`
	Interval       time.Duration `koanf:"interval" json:"interval" yaml:"interval" mapstructure:"interval"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Service.Name == "" {
		c.Service.Name = DefaultServiceName
	}
	if c.Service.Version == "" {
		c.Service.Version = "unknown"
	}
	if c.Environment == "" {
		c.Environment = EnvironmentDevelopment
	}

	c.Trace.applyDefaults(c.Enabled, DefaultTraceExportTimeout)
	if c.Trace.SampleRate == nil {
		c.Trace.SampleRate = Float64Ptr(1.0)
	}
	if c.Trace.BatchTimeout == 0 {
		c.Trace.BatchTimeout = DefaultTraceBatchTimeout
	}

	c.Metrics.applyDefaults(c.Enabled, DefaultMetricExportTimeout)
	if c.Metrics.Interval == 0 {
		c.Metrics.Interval = DefaultMetricsInterval
	}
}

func (e *ExporterConfig) applyDefaults(enabled bool, exportTimeout time.Duration) {
	if enabled && e.Enabled == nil {
		e.Enabled = BoolPtr(true)
	}
	if e.Endpoint == "" {
		e.Endpoint = EndpointStdout
	}
	if e.Protocol == "" {
		e.Protocol = ProtocolHTTP
	}
	if e.ExportTimeout == 0 {
		e.ExportTimeout = exportTimeout
	}
}

// IsEnabled reports whether this exporter should be created.
func (e *ExporterConfig) IsEnabled() bool {
	return e.Enabled != nil && *e.Enabled
}

// Validate checks the configuration. Disabled configuration is always valid.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if !c.Enabled {
		return nil
	}
	if c.Trace.SampleRate != nil && (*c.Trace.SampleRate < 0 || *c.Trace.SampleRate > 1) {
		return ErrInvalidSampleRate
	}
	if err := c.Trace.validate(); err != nil {
		return fmt.Errorf("trace: %w", err)
	}
	if err := c.Metrics.validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}

func (e *ExporterConfig) validate() error {
	if !e.IsEnabled() || e.Endpoint == EndpointStdout || e.Endpoint == "" {
		return nil
	}
	switch e.Protocol {
	case ProtocolHTTP, "":
		return nil
	case ProtocolGRPC:
		if strings.HasPrefix(e.Endpoint, "http://") || strings.HasPrefix(e.Endpoint, "https://") {
			return fmt.Errorf("%w: grpc endpoint %q must be host:port", ErrInvalidEndpointFormat, e.Endpoint)
		}
		return nil
	default:
		return fmt.Errorf("protocol %q: %w", e.Protocol, ErrInvalidProtocol)
	}
}
