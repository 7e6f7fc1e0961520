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

package tool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/galaxyco/copilot/pkg/auth"
	"github.com/galaxyco/copilot/pkg/observability"
	"github.com/galaxyco/copilot/pkg/permission"
)

// DefaultTimeout bounds a single tool call when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// ExecutorConfig configures an Executor.
type ExecutorConfig struct {
	Registry *Registry

	// Timeout bounds each call. Default DefaultTimeout.
	Timeout time.Duration

	// Metrics defaults to observability.GlobalMetrics().
	Metrics observability.Metrics
}

// Executor runs tool calls. It is the boundary past which no tool error or
// panic propagates: every outcome is a *Result.
type Executor struct {
	registry *Registry
	timeout  time.Duration
	metrics  observability.Metrics
	tracer   trace.Tracer
}

// NewExecutor creates an Executor.
func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.GlobalMetrics()
	}
	return &Executor{
		registry: cfg.Registry,
		timeout:  cfg.Timeout,
		metrics:  cfg.Metrics,
		tracer:   observability.Tracer("copilot/tool"),
	}, nil
}

// Registry returns the registry the executor resolves names against.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Execute runs one call for caller:
//  1. resolve the name (UNKNOWN_TOOL)
//  2. validate arguments (VALIDATION_ERROR)
//  3. check permissions (FORBIDDEN)
//  4. invoke under the timeout (TIMEOUT), converting errors and panics
//     (EXECUTION_ERROR or the code of a returned *Error)
func (e *Executor) Execute(ctx context.Context, call Call, caller auth.Caller) *Result {
	start := time.Now()

	ctx, span := e.tracer.Start(ctx, "tool.execute", trace.WithAttributes(
		attribute.String("tool.name", call.Name),
		attribute.String("tool.call_id", call.ID),
		attribute.String("workspace.id", caller.WorkspaceID),
	))
	defer span.End()

	result := e.execute(ctx, call, caller)

	duration := time.Since(start)
	e.metrics.RecordToolExecution(ctx, call.Name, string(result.Code), duration)

	if result.Success {
		slog.Debug("Tool executed", "tool", call.Name, "workspace", caller.WorkspaceID, "duration", duration)
	} else {
		span.SetStatus(codes.Error, result.Error)
		span.SetAttributes(attribute.String("tool.error_code", string(result.Code)))
		slog.Info("Tool call failed",
			"tool", call.Name,
			"workspace", caller.WorkspaceID,
			"code", result.Code,
			"error", result.Error,
			"duration", duration)
	}

	return result
}

func (e *Executor) execute(ctx context.Context, call Call, caller auth.Caller) *Result {
	t, err := e.registry.Lookup(call.Name)
	if err != nil {
		return Fail(call.Name, CodeUnknownTool, "unknown tool: "+call.Name)
	}

	if call.ArgsError != "" {
		return Fail(call.Name, CodeValidation, "arguments: invalid JSON: "+call.ArgsError)
	}

	args := call.Args
	if args == nil {
		args = map[string]any{}
	}
	invocation, err := t.Bind(args)
	if err != nil {
		return Fail(call.Name, CodeValidation, err.Error())
	}

	if decision := permission.Check(t.RequiredPermissions(), caller.Permissions); !decision.Allowed {
		return Fail(call.Name, CodeForbidden, decision.Err().Error())
	}

	return e.invoke(ctx, t, invocation, caller)
}

type outcome struct {
	result *Result
	err    error
}

func (e *Executor) invoke(ctx context.Context, t Tool, invocation Invocation, caller auth.Caller) *Result {
	name := string(t.Name())

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Tool panicked", "tool", name, "panic", r)
				done <- outcome{err: fmt.Errorf("tool panicked: %v", r)}
			}
		}()
		res, err := invocation(ctx, caller)
		done <- outcome{result: res, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return e.failure(name, out.err)
		}
		if out.result == nil {
			return Fail(name, CodeExecution, "tool returned no result")
		}
		return out.result
	case <-ctx.Done():
		return e.failure(name, ctx.Err())
	}
}

func (e *Executor) failure(name string, err error) *Result {
	var toolErr *Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Fail(name, CodeTimeout, fmt.Sprintf("timed out after %s", e.timeout))
	case errors.As(err, &toolErr):
		return Fail(name, toolErr.Code, toolErr.Error())
	case errors.Is(err, context.Canceled):
		return Fail(name, CodeExecution, "canceled")
	default:
		return Fail(name, CodeExecution, err.Error())
	}
}
