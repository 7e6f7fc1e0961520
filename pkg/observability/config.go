// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package observability provides tracing and metrics for the assistant.
//
// Metrics are recorded through OpenTelemetry and exposed in Prometheus
// format. Traces are exported over OTLP gRPC or printed to stdout. Both are
// off by default, in which case no-op implementations are installed.
package observability

import (
	"fmt"
	"time"
)

// Config configures the observability system.
type Config struct {
	// Tracing configures OpenTelemetry distributed tracing.
	Tracing TracingConfig `yaml:"tracing,omitempty"`

	// Metrics configures Prometheus metrics collection.
	Metrics MetricsConfig `yaml:"metrics,omitempty"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled turns on distributed tracing.
	// Default: false
	Enabled bool `yaml:"enabled,omitempty"`

	// Exporter specifies the trace exporter type.
	// Values: "otlp" (default), "stdout"
	Exporter string `yaml:"exporter,omitempty"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint,omitempty"`

	// SamplingRate controls what fraction of traces are sampled.
	// Range: 0.0 (none) to 1.0 (all)
	// Default: 1.0
	SamplingRate float64 `yaml:"sampling_rate,omitempty"`

	// ServiceName identifies this service in traces.
	// Default: "copilot"
	ServiceName string `yaml:"service_name,omitempty"`

	// ServiceVersion is the version of this service.
	ServiceVersion string `yaml:"service_version,omitempty"`

	// Insecure disables TLS for the exporter connection.
	// Default: true
	Insecure *bool `yaml:"insecure,omitempty"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Headers are sent with every export request.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled turns on metrics collection and the /metrics endpoint.
	// Default: false
	Enabled bool `yaml:"enabled,omitempty"`

	// Namespace prefixes every metric name.
	// Default: "copilot"
	Namespace string `yaml:"namespace,omitempty"`

	// Path is where the HTTP server exposes metrics.
	// Default: "/metrics"
	Path string `yaml:"path,omitempty"`
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	c.Tracing.SetDefaults()
	c.Metrics.SetDefaults()
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := c.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}

// SetDefaults applies default values.
func (c *TracingConfig) SetDefaults() {
	if c.Exporter == "" {
		c.Exporter = "otlp"
	}
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4317"
	}
	if c.SamplingRate == 0 {
		c.SamplingRate = 1.0
	}
	if c.ServiceName == "" {
		c.ServiceName = "copilot"
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
}

// Validate checks the configuration.
func (c *TracingConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch c.Exporter {
	case "otlp", "stdout":
	default:
		return fmt.Errorf("unsupported exporter %q (valid: otlp, stdout)", c.Exporter)
	}
	if c.SamplingRate < 0 || c.SamplingRate > 1 {
		return fmt.Errorf("sampling_rate must be between 0 and 1, got %v", c.SamplingRate)
	}
	return nil
}

// IsInsecure reports whether TLS is disabled for the exporter.
func (c *TracingConfig) IsInsecure() bool {
	return c.Insecure == nil || *c.Insecure
}

// SetDefaults applies default values.
func (c *MetricsConfig) SetDefaults() {
	if c.Namespace == "" {
		c.Namespace = "copilot"
	}
	if c.Path == "" {
		c.Path = "/metrics"
	}
}

// Validate checks the configuration.
func (c *MetricsConfig) Validate() error {
	if c.Enabled && c.Path != "" && c.Path[0] != '/' {
		return fmt.Errorf("path must start with '/', got %q", c.Path)
	}
	return nil
}
