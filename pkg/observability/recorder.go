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
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records the assistant's operational metrics.
// Implementations must be safe for concurrent use.
type Metrics interface {
	// RecordMessage records one processed message. outcome is "ok",
	// "degraded" or "rejected".
	RecordMessage(ctx context.Context, outcome string, duration time.Duration)

	// RecordToolExecution records one tool call. code is empty on success.
	RecordToolExecution(ctx context.Context, tool, code string, duration time.Duration)

	// RecordLLMCall records one model invocation.
	RecordLLMCall(ctx context.Context, model string, duration time.Duration, inputTokens, outputTokens int, err error)

	// RecordRetrieval records one context retrieval.
	RecordRetrieval(ctx context.Context, sources int, duration time.Duration, err error)

	// RecordHTTPRequest records one served HTTP request.
	RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration)
}

// PrometheusMetrics implements Metrics on OpenTelemetry instruments.
// A zero value is valid and records nothing.
type PrometheusMetrics struct {
	messageDuration metric.Float64Histogram
	messages        metric.Int64Counter

	toolDuration metric.Float64Histogram
	toolCalls    metric.Int64Counter
	toolErrors   metric.Int64Counter

	llmDuration     metric.Float64Histogram
	llmInputTokens  metric.Int64Counter
	llmOutputTokens metric.Int64Counter
	llmErrors       metric.Int64Counter

	retrievalDuration metric.Float64Histogram
	retrievalSources  metric.Int64Histogram
	retrievalErrors   metric.Int64Counter

	httpDuration metric.Float64Histogram
	httpRequests metric.Int64Counter
}

var _ Metrics = (*PrometheusMetrics)(nil)

func (m *PrometheusMetrics) RecordMessage(ctx context.Context, outcome string, duration time.Duration) {
	if m == nil || m.messages == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.messageDuration.Record(ctx, duration.Seconds(), attrs)
	m.messages.Add(ctx, 1, attrs)
}

func (m *PrometheusMetrics) RecordToolExecution(ctx context.Context, tool, code string, duration time.Duration) {
	if m == nil || m.toolCalls == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("tool", tool))
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
	m.toolCalls.Add(ctx, 1, attrs)
	if code != "" {
		m.toolErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("code", code),
		))
	}
}

func (m *PrometheusMetrics) RecordLLMCall(ctx context.Context, model string, duration time.Duration, inputTokens, outputTokens int, err error) {
	if m == nil || m.llmDuration == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("model", model))
	m.llmDuration.Record(ctx, duration.Seconds(), attrs)
	if inputTokens > 0 {
		m.llmInputTokens.Add(ctx, int64(inputTokens), attrs)
	}
	if outputTokens > 0 {
		m.llmOutputTokens.Add(ctx, int64(outputTokens), attrs)
	}
	if err != nil {
		m.llmErrors.Add(ctx, 1, attrs)
	}
}

func (m *PrometheusMetrics) RecordRetrieval(ctx context.Context, sources int, duration time.Duration, err error) {
	if m == nil || m.retrievalDuration == nil {
		return
	}
	m.retrievalDuration.Record(ctx, duration.Seconds())
	m.retrievalSources.Record(ctx, int64(sources))
	if err != nil {
		m.retrievalErrors.Add(ctx, 1)
	}
}

func (m *PrometheusMetrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	if m == nil || m.httpRequests == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	)
	m.httpDuration.Record(ctx, duration.Seconds(), attrs)
	m.httpRequests.Add(ctx, 1, attrs)
}

var globalMetrics atomic.Value

func init() {
	globalMetrics.Store(metricsHolder{m: NoopMetrics{}})
}

type metricsHolder struct {
	m Metrics
}

// SetGlobalMetrics installs m as the process-wide recorder. Nil restores
// the no-op recorder.
func SetGlobalMetrics(m Metrics) {
	if m == nil {
		m = NoopMetrics{}
	}
	globalMetrics.Store(metricsHolder{m: m})
}

// GlobalMetrics returns the process-wide recorder.
func GlobalMetrics() Metrics {
	return globalMetrics.Load().(metricsHolder).m
}
