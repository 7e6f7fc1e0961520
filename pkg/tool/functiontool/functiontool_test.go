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

package functiontool_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galaxyco/copilot/pkg/auth"
	"github.com/galaxyco/copilot/pkg/permission"
	"github.com/galaxyco/copilot/pkg/tool"
	"github.com/galaxyco/copilot/pkg/tool/functiontool"
)

type trigger struct {
	Type     string `json:"type" jsonschema:"required,enum=schedule,enum=manual" validate:"required,oneof=schedule manual"`
	Schedule string `json:"schedule,omitempty"`
}

type createArgs struct {
	Name    string   `json:"name" jsonschema:"required,description=Agent name" validate:"required,min=1"`
	Type    string   `json:"type" jsonschema:"required,enum=email,enum=crm" validate:"required,oneof=email crm"`
	Limit   int      `json:"limit,omitempty" jsonschema:"default=50" validate:"gte=1,lte=100"`
	Trigger *trigger `json:"trigger,omitempty"`
}

func (a *createArgs) SetDefaults() {
	if a.Limit == 0 {
		a.Limit = 50
	}
}

func newCreateTool(t *testing.T) tool.Tool {
	t.Helper()
	created, err := functiontool.New(functiontool.Config{
		Name:        tool.CreateAgent,
		Description: "Create an agent",
		Category:    tool.CategoryAgents,
		Permissions: []permission.Permission{permission.AgentsCreate},
	}, func(ctx context.Context, caller auth.Caller, args createArgs) (*tool.Result, error) {
		return tool.Succeed(fmt.Sprintf("%s/%s/%d", caller.WorkspaceID, args.Name, args.Limit), args), nil
	})
	require.NoError(t, err)
	return created
}

func TestNew_Metadata(t *testing.T) {
	created := newCreateTool(t)

	assert.Equal(t, tool.CreateAgent, created.Name())
	assert.Equal(t, "Create an agent", created.Description())
	assert.Equal(t, tool.CategoryAgents, created.Category())
	assert.True(t, created.RequiredPermissions().Has(permission.AgentsCreate))
	assert.False(t, created.IsDestructive())
	assert.False(t, created.IsReadOnly())
}

func TestNew_Schema(t *testing.T) {
	schema := newCreateTool(t).Schema()

	assert.Equal(t, "object", schema["type"])
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "name")
	assert.Contains(t, props, "type")
	assert.Contains(t, props, "limit")
	assert.Contains(t, props, "trigger")

	typeProp := props["type"].(map[string]any)
	assert.Equal(t, []any{"email", "crm"}, typeProp["enum"])

	required, ok := schema["required"].([]any)
	require.True(t, ok)
	assert.ElementsMatch(t, []any{"name", "type"}, required)
	assert.NotContains(t, schema, "additionalProperties")
}

func TestBind(t *testing.T) {
	created := newCreateTool(t)
	caller := auth.NewCaller("u1", "ws1", permission.AgentsCreate)

	tests := []struct {
		name        string
		args        map[string]any
		wantFields  []string
		wantMessage string
	}{
		{
			name:        "valid with default",
			args:        map[string]any{"name": "X", "type": "email"},
			wantMessage: "ws1/X/50",
		},
		{
			name:        "json numbers decode into ints",
			args:        map[string]any{"name": "X", "type": "crm", "limit": float64(7)},
			wantMessage: "ws1/X/7",
		},
		{
			name:       "fractional number for an int",
			args:       map[string]any{"name": "X", "type": "crm", "limit": 7.5},
			wantFields: []string{"limit"},
		},
		{
			name:        "unknown fields are ignored",
			args:        map[string]any{"name": "X", "type": "crm", "color": "red"},
			wantMessage: "ws1/X/50",
		},
		{
			name:       "missing required fields",
			args:       map[string]any{},
			wantFields: []string{"name", "type"},
		},
		{
			name:       "enum violation",
			args:       map[string]any{"name": "X", "type": "fax"},
			wantFields: []string{"type"},
		},
		{
			name:       "wrong type",
			args:       map[string]any{"name": "X", "type": "crm", "limit": "lots"},
			wantFields: []string{"limit"},
		},
		{
			name:       "out of range",
			args:       map[string]any{"name": "X", "type": "crm", "limit": 500},
			wantFields: []string{"limit"},
		},
		{
			name:       "nested struct is validated",
			args:       map[string]any{"name": "X", "type": "crm", "trigger": map[string]any{"type": "cron"}},
			wantFields: []string{"trigger.type"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invocation, err := created.Bind(tt.args)
			if tt.wantFields != nil {
				require.Error(t, err)
				var verr *tool.ValidationError
				require.True(t, errors.As(err, &verr), "want *tool.ValidationError, got %T", err)
				assert.ElementsMatch(t, tt.wantFields, verr.FieldNames())
				for _, f := range tt.wantFields {
					assert.Contains(t, err.Error(), f)
				}
				return
			}

			require.NoError(t, err)
			res, err := invocation(context.Background(), caller)
			require.NoError(t, err)
			assert.True(t, res.Success)
			assert.Equal(t, tt.wantMessage, res.Message)
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	noop := func(ctx context.Context, caller auth.Caller, args struct{}) (*tool.Result, error) {
		return tool.Succeed("ok", nil), nil
	}

	tests := []struct {
		name string
		cfg  functiontool.Config
	}{
		{name: "unknown name", cfg: functiontool.Config{Name: "teleport", Description: "d", Category: tool.CategoryAgents}},
		{name: "no description", cfg: functiontool.Config{Name: tool.ListAgents, Category: tool.CategoryAgents}},
		{name: "no category", cfg: functiontool.Config{Name: tool.ListAgents, Description: "d"}},
		{name: "bad permission", cfg: functiontool.Config{
			Name: tool.ListAgents, Description: "d", Category: tool.CategoryAgents,
			Permissions: []permission.Permission{"agents:everything"},
		}},
		{name: "destructive read-only", cfg: functiontool.Config{
			Name: tool.DeleteAgent, Description: "d", Category: tool.CategoryAgents,
			Destructive: true, ReadOnly: true,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := functiontool.New(tt.cfg, noop)
			assert.Error(t, err)
		})
	}
}

func TestMustNewPanics(t *testing.T) {
	assert.Panics(t, func() {
		functiontool.MustNew(functiontool.Config{Name: "nope"},
			func(ctx context.Context, caller auth.Caller, args struct{}) (*tool.Result, error) {
				return nil, nil
			})
	})
}

func TestEmptyArgsStruct(t *testing.T) {
	stats := functiontool.MustNew(functiontool.Config{
		Name:        tool.GetDashboardStats,
		Description: "Stats",
		Category:    tool.CategoryAnalytics,
		ReadOnly:    true,
	}, func(ctx context.Context, caller auth.Caller, args struct{}) (*tool.Result, error) {
		return tool.Succeed("ok", nil), nil
	})

	assert.Equal(t, "object", stats.Schema()["type"])
	_, err := stats.Bind(nil)
	assert.NoError(t, err)
}
