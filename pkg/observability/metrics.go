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

package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MetricsProvider owns the meter provider and the Prometheus registry that
// backs the /metrics endpoint.
type MetricsProvider struct {
	Metrics  *PrometheusMetrics
	provider *sdkmetric.MeterProvider
	registry *prometheus.Registry
}

// InitMetrics creates the instruments. When metrics are disabled it returns
// a provider whose Metrics records nothing and whose Handler is nil.
func InitMetrics(cfg MetricsConfig) (*MetricsProvider, error) {
	cfg.SetDefaults()
	if !cfg.Enabled {
		return &MetricsProvider{Metrics: &PrometheusMetrics{}}, nil
	}

	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter("copilot")

	m, err := newPrometheusMetrics(meter, cfg.Namespace)
	if err != nil {
		return nil, err
	}

	return &MetricsProvider{Metrics: m, provider: provider, registry: registry}, nil
}

// Handler serves the Prometheus exposition format, or nil when disabled.
func (p *MetricsProvider) Handler() http.Handler {
	if p == nil || p.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// MeterProvider returns the SDK provider, or nil when disabled.
func (p *MetricsProvider) MeterProvider() *sdkmetric.MeterProvider {
	if p == nil {
		return nil
	}
	return p.provider
}

func newPrometheusMetrics(meter metric.Meter, ns string) (*PrometheusMetrics, error) {
	name := func(s string) string { return ns + "_" + s }

	var (
		m   PrometheusMetrics
		err error
	)

	if m.messageDuration, err = meter.Float64Histogram(name("message_duration_seconds"),
		metric.WithDescription("Assistant message processing duration in seconds")); err != nil {
		return nil, fmt.Errorf("failed to create message duration histogram: %w", err)
	}
	if m.messages, err = meter.Int64Counter(name("messages_total"),
		metric.WithDescription("Total assistant messages processed")); err != nil {
		return nil, fmt.Errorf("failed to create messages counter: %w", err)
	}

	if m.toolDuration, err = meter.Float64Histogram(name("tool_execution_duration_seconds"),
		metric.WithDescription("Tool execution duration in seconds")); err != nil {
		return nil, fmt.Errorf("failed to create tool duration histogram: %w", err)
	}
	if m.toolCalls, err = meter.Int64Counter(name("tool_calls_total"),
		metric.WithDescription("Total tool calls")); err != nil {
		return nil, fmt.Errorf("failed to create tool calls counter: %w", err)
	}
	if m.toolErrors, err = meter.Int64Counter(name("tool_errors_total"),
		metric.WithDescription("Total failed tool calls by error code")); err != nil {
		return nil, fmt.Errorf("failed to create tool errors counter: %w", err)
	}

	if m.llmDuration, err = meter.Float64Histogram(name("llm_request_duration_seconds"),
		metric.WithDescription("LLM request duration in seconds")); err != nil {
		return nil, fmt.Errorf("failed to create llm duration histogram: %w", err)
	}
	if m.llmInputTokens, err = meter.Int64Counter(name("llm_tokens_input_total"),
		metric.WithDescription("Total input tokens sent to LLM")); err != nil {
		return nil, fmt.Errorf("failed to create llm input tokens counter: %w", err)
	}
	if m.llmOutputTokens, err = meter.Int64Counter(name("llm_tokens_output_total"),
		metric.WithDescription("Total output tokens from LLM")); err != nil {
		return nil, fmt.Errorf("failed to create llm output tokens counter: %w", err)
	}
	if m.llmErrors, err = meter.Int64Counter(name("llm_errors_total"),
		metric.WithDescription("Total LLM errors")); err != nil {
		return nil, fmt.Errorf("failed to create llm errors counter: %w", err)
	}

	if m.retrievalDuration, err = meter.Float64Histogram(name("retrieval_duration_seconds"),
		metric.WithDescription("Context retrieval duration in seconds")); err != nil {
		return nil, fmt.Errorf("failed to create retrieval duration histogram: %w", err)
	}
	if m.retrievalSources, err = meter.Int64Histogram(name("retrieval_sources"),
		metric.WithDescription("Sources returned per retrieval")); err != nil {
		return nil, fmt.Errorf("failed to create retrieval sources histogram: %w", err)
	}
	if m.retrievalErrors, err = meter.Int64Counter(name("retrieval_errors_total"),
		metric.WithDescription("Total failed or timed out retrievals")); err != nil {
		return nil, fmt.Errorf("failed to create retrieval errors counter: %w", err)
	}

	if m.httpDuration, err = meter.Float64Histogram(name("http_request_duration_seconds"),
		metric.WithDescription("HTTP request duration in seconds")); err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}
	if m.httpRequests, err = meter.Int64Counter(name("http_requests_total"),
		metric.WithDescription("Total HTTP requests")); err != nil {
		return nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}

	return &m, nil
}
