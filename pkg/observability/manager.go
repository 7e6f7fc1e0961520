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
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel/trace"
)

// Manager owns the tracer and meter providers for the process.
type Manager struct {
	config Config

	mu             sync.RWMutex
	tracerProvider trace.TracerProvider
	metrics        *MetricsProvider
}

func NewManager(cfg Config) *Manager {
	cfg.SetDefaults()
	return &Manager{config: cfg}
}

// Initialize creates both providers and installs the global metrics
// recorder.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tp, err := InitTracerProvider(ctx, m.config.Tracing)
	if err != nil {
		return err
	}
	m.tracerProvider = tp

	mp, err := InitMetrics(m.config.Metrics)
	if err != nil {
		return err
	}
	m.metrics = mp
	SetGlobalMetrics(mp.Metrics)

	slog.Debug("Observability initialized",
		"tracing", m.config.Tracing.Enabled,
		"exporter", m.config.Tracing.Exporter,
		"metrics", m.config.Metrics.Enabled)
	return nil
}

// Metrics returns the recorder, falling back to the global one before
// Initialize.
func (m *Manager) Metrics() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.metrics == nil {
		return GlobalMetrics()
	}
	return m.metrics.Metrics
}

// MetricsHandler returns the /metrics handler, or nil when disabled.
func (m *Manager) MetricsHandler() http.Handler {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metrics.Handler()
}

// MetricsPath is the configured metrics endpoint path.
func (m *Manager) MetricsPath() string {
	return m.config.Metrics.Path
}

// Shutdown flushes pending spans and stops the providers.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if spt, ok := m.tracerProvider.(interface{ Shutdown(context.Context) error }); ok {
		errs = append(errs, spt.Shutdown(ctx))
	}
	if mp := m.metrics.MeterProvider(); mp != nil {
		errs = append(errs, mp.Shutdown(ctx))
	}
	SetGlobalMetrics(nil)
	return errors.Join(errs...)
}
