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

package tool_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galaxyco/copilot/pkg/auth"
	"github.com/galaxyco/copilot/pkg/permission"
	"github.com/galaxyco/copilot/pkg/tool"
	"github.com/galaxyco/copilot/pkg/tool/functiontool"
)

type agentArgs struct {
	AgentID string `json:"agentId" jsonschema:"required" validate:"required"`
}

// recordingMetrics captures tool metrics.
type recordingMetrics struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *recordingMetrics) RecordMessage(context.Context, string, time.Duration) {}
func (m *recordingMetrics) RecordToolExecution(_ context.Context, name, code string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codes == nil {
		m.codes = map[string]string{}
	}
	m.codes[name] = code
}
func (m *recordingMetrics) RecordLLMCall(context.Context, string, time.Duration, int, int, error) {}
func (m *recordingMetrics) RecordRetrieval(context.Context, int, time.Duration, error)        {}
func (m *recordingMetrics) RecordHTTPRequest(context.Context, string, string, int, time.Duration) {
}

type executorFixture struct {
	executor *tool.Executor
	metrics  *recordingMetrics
	calls    int
	mu       sync.Mutex
}

func newExecutorFixture(t *testing.T, timeout time.Duration) *executorFixture {
	t.Helper()
	f := &executorFixture{metrics: &recordingMetrics{}}

	deleteTool := functiontool.MustNew(functiontool.Config{
		Name:        tool.DeleteAgent,
		Description: "Delete an agent",
		Category:    tool.CategoryAgents,
		Permissions: []permission.Permission{permission.AgentsDelete, permission.AgentsRead},
		Destructive: true,
	}, func(ctx context.Context, caller auth.Caller, args agentArgs) (*tool.Result, error) {
		f.mu.Lock()
		f.calls++
		f.mu.Unlock()

		switch args.AgentID {
		case "other-tenant":
			return nil, tool.NotFound("agent")
		case "boom":
			return nil, errors.New("database unavailable")
		case "panic":
			panic("nil map write")
		case "slow":
			<-ctx.Done()
			return nil, ctx.Err()
		case "stuck":
			time.Sleep(timeout * 5)
			return tool.Succeed("late", nil), nil
		case "nil":
			return nil, nil
		}
		return tool.SucceedWithAction("Deleted", nil, tool.Action{
			Type: tool.ActionDelete, Target: "agent-" + args.AgentID, Label: "Agent deleted",
		}), nil
	})

	registry, err := tool.NewRegistry(deleteTool)
	require.NoError(t, err)

	f.executor, err = tool.NewExecutor(tool.ExecutorConfig{
		Registry: registry,
		Timeout:  timeout,
		Metrics:  f.metrics,
	})
	require.NoError(t, err)
	return f
}

func TestExecutor_Execute(t *testing.T) {
	full := auth.NewCaller("u1", "ws1", permission.AgentsDelete, permission.AgentsRead, permission.AnalyticsRead)
	partial := auth.NewCaller("u1", "ws1", permission.AgentsDelete)

	tests := []struct {
		name        string
		call        tool.Call
		caller      auth.Caller
		wantSuccess bool
		wantCode    tool.ErrorCode
		wantError   string
		wantInvoked bool
	}{
		{
			name:        "success",
			call:        tool.Call{Name: "delete_agent", Args: map[string]any{"agentId": "a1"}},
			caller:      full,
			wantSuccess: true,
			wantInvoked: true,
		},
		{
			name:      "unknown tool",
			call:      tool.Call{Name: "drop_database"},
			caller:    full,
			wantCode:  tool.CodeUnknownTool,
			wantError: "unknown tool",
		},
		{
			name:      "known name but not registered",
			call:      tool.Call{Name: "list_agents"},
			caller:    full,
			wantCode:  tool.CodeUnknownTool,
			wantError: "unknown tool",
		},
		{
			name:      "validation names field",
			call:      tool.Call{Name: "delete_agent", Args: map[string]any{}},
			caller:    full,
			wantCode:  tool.CodeValidation,
			wantError: "agentId",
		},
		{
			name:      "malformed arguments",
			call:      tool.NewCall("c1", "delete_agent", `{"agentId": "a`),
			caller:    full,
			wantCode:  tool.CodeValidation,
			wantError: "arguments: invalid JSON",
		},
		{
			name:      "subset of permissions is denied",
			call:      tool.Call{Name: "delete_agent", Args: map[string]any{"agentId": "a1"}},
			caller:    partial,
			wantCode:  tool.CodeForbidden,
			wantError: "forbidden: missing agents:read",
		},
		{
			name:        "tenant mismatch is not found",
			call:        tool.Call{Name: "delete_agent", Args: map[string]any{"agentId": "other-tenant"}},
			caller:      full,
			wantCode:    tool.CodeNotFound,
			wantError:   "not found",
			wantInvoked: true,
		},
		{
			name:        "returned error",
			call:        tool.Call{Name: "delete_agent", Args: map[string]any{"agentId": "boom"}},
			caller:      full,
			wantCode:    tool.CodeExecution,
			wantError:   "database unavailable",
			wantInvoked: true,
		},
		{
			name:        "panic is contained",
			call:        tool.Call{Name: "delete_agent", Args: map[string]any{"agentId": "panic"}},
			caller:      full,
			wantCode:    tool.CodeExecution,
			wantError:   "nil map write",
			wantInvoked: true,
		},
		{
			name:        "context-aware timeout",
			call:        tool.Call{Name: "delete_agent", Args: map[string]any{"agentId": "slow"}},
			caller:      full,
			wantCode:    tool.CodeTimeout,
			wantError:   "timed out",
			wantInvoked: true,
		},
		{
			name:        "timeout of a tool ignoring its context",
			call:        tool.Call{Name: "delete_agent", Args: map[string]any{"agentId": "stuck"}},
			caller:      full,
			wantCode:    tool.CodeTimeout,
			wantError:   "timed out",
			wantInvoked: true,
		},
		{
			name:        "nil result",
			call:        tool.Call{Name: "delete_agent", Args: map[string]any{"agentId": "nil"}},
			caller:      full,
			wantCode:    tool.CodeExecution,
			wantInvoked: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newExecutorFixture(t, 50*time.Millisecond)

			res := f.executor.Execute(context.Background(), tt.call, tt.caller)
			require.NotNil(t, res)

			assert.Equal(t, tt.wantSuccess, res.Success)
			assert.Equal(t, tt.wantCode, res.Code)
			if tt.wantError != "" {
				assert.Contains(t, res.Error, tt.wantError)
				assert.Contains(t, res.Message, "Failed to execute")
			}
			if !tt.wantSuccess {
				assert.Nil(t, res.Action)
			}

			f.mu.Lock()
			invoked := f.calls > 0
			f.mu.Unlock()
			assert.Equal(t, tt.wantInvoked, invoked)

			f.metrics.mu.Lock()
			assert.Equal(t, string(tt.wantCode), f.metrics.codes[tt.call.Name])
			f.metrics.mu.Unlock()
		})
	}
}

func TestExecutor_SuccessCarriesAction(t *testing.T) {
	f := newExecutorFixture(t, time.Second)
	caller := auth.NewCaller("u1", "ws1", permission.AgentsDelete, permission.AgentsRead)

	res := f.executor.Execute(context.Background(), tool.Call{
		ID: "call-1", Name: "delete_agent", Args: map[string]any{"agentId": "a9"},
	}, caller)

	require.True(t, res.Success)
	require.NotNil(t, res.Action)
	assert.Equal(t, tool.ActionDelete, res.Action.Type)
	assert.Equal(t, "agent-a9", res.Action.Target)
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    map[string]any
		wantErr bool
	}{
		{name: "object", raw: `{"agentId":"a1"}`, want: map[string]any{"agentId": "a1"}},
		{name: "blank", raw: "  ", want: map[string]any{}},
		{name: "null", raw: "null", want: map[string]any{}},
		{name: "truncated", raw: `{"status": "activ`, wantErr: true},
		{name: "array", raw: `[1,2]`, wantErr: true},
		{name: "string", raw: `"hi"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tool.ParseArgs(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewCall(t *testing.T) {
	ok := tool.NewCall("c1", "list_agents", `{"status":"active"}`)
	assert.Equal(t, map[string]any{"status": "active"}, ok.Args)
	assert.Empty(t, ok.ArgsError)
	assert.Empty(t, ok.RawArgs)

	bad := tool.NewCall("c2", "list_agents", `not json`)
	assert.Nil(t, bad.Args)
	assert.Equal(t, "not json", bad.RawArgs)
	assert.NotEmpty(t, bad.ArgsError)
}

func TestNewExecutor_RequiresRegistry(t *testing.T) {
	_, err := tool.NewExecutor(tool.ExecutorConfig{})
	assert.Error(t, err)
}
