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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galaxyco/copilot/pkg/auth"
	"github.com/galaxyco/copilot/pkg/permission"
	"github.com/galaxyco/copilot/pkg/tool"
	"github.com/galaxyco/copilot/pkg/tool/functiontool"
)

func stubTool(name tool.Name, perms ...permission.Permission) tool.Tool {
	return functiontool.MustNew(functiontool.Config{
		Name:        name,
		Description: "stub " + string(name),
		Category:    tool.CategoryAgents,
		Permissions: perms,
		ReadOnly:    true,
	}, func(ctx context.Context, caller auth.Caller, args struct{}) (*tool.Result, error) {
		return tool.Succeed("ok", nil), nil
	})
}

func TestRegistry(t *testing.T) {
	reg, err := tool.NewRegistry(
		stubTool(tool.ListAgents, permission.AgentsRead),
		stubTool(tool.GetDashboardStats, permission.AnalyticsRead),
		stubTool(tool.CreateAgent, permission.AgentsCreate, permission.AgentsRead),
	)
	require.NoError(t, err)
	assert.Equal(t, 3, reg.Len())

	t.Run("get", func(t *testing.T) {
		got, err := reg.Get(tool.ListAgents)
		require.NoError(t, err)
		assert.Equal(t, tool.ListAgents, got.Name())
	})

	t.Run("get unregistered returns typed not found", func(t *testing.T) {
		_, err := reg.Get(tool.DeleteAgent)
		assert.True(t, errors.Is(err, tool.ErrToolNotFound))
	})

	t.Run("lookup rejects names outside the catalog", func(t *testing.T) {
		_, err := reg.Lookup("rm_rf")
		assert.True(t, errors.Is(err, tool.ErrToolNotFound))
	})

	t.Run("list for model is sorted", func(t *testing.T) {
		defs := reg.ListForModel()
		require.Len(t, defs, 3)
		assert.Equal(t, "create_agent", defs[0].Name)
		assert.Equal(t, "get_dashboard_stats", defs[1].Name)
		assert.Equal(t, "list_agents", defs[2].Name)
		assert.Equal(t, "object", defs[0].Parameters["type"])
	})

	t.Run("for permissions uses AND semantics", func(t *testing.T) {
		tools := reg.ForPermissions(permission.NewSet(permission.AgentsRead, permission.AgentsCreate))
		names := make([]tool.Name, len(tools))
		for i, tl := range tools {
			names[i] = tl.Name()
		}
		assert.Equal(t, []tool.Name{tool.CreateAgent, tool.ListAgents}, names)

		defs := reg.DefinitionsFor(permission.NewSet(permission.AgentsCreate))
		assert.Empty(t, defs)
	})

	t.Run("all", func(t *testing.T) {
		assert.Len(t, reg.All(), 3)
	})
}

func TestNewRegistry_Rejects(t *testing.T) {
	_, err := tool.NewRegistry(stubTool(tool.ListAgents), stubTool(tool.ListAgents))
	assert.Error(t, err, "duplicate")

	_, err = tool.NewRegistry(nil)
	assert.Error(t, err, "nil tool")
}

func TestParseName(t *testing.T) {
	n, ok := tool.ParseName("upload_document")
	assert.True(t, ok)
	assert.Equal(t, tool.UploadDocument, n)

	_, ok = tool.ParseName("Upload_Document")
	assert.False(t, ok)

	assert.Len(t, tool.Names(), 15)
}

func TestResultJSON(t *testing.T) {
	res := tool.Fail("delete_agent", tool.CodeNotFound, "agent not found")
	assert.JSONEq(t, `{"success":false,"message":"Failed to execute delete_agent: agent not found","error":"agent not found","code":"NOT_FOUND"}`, res.JSON())

	ok := tool.SucceedWithAction("done", map[string]any{"id": "1"}, tool.Action{Type: tool.ActionNavigate, Target: "/agents/1", Label: "View"})
	assert.Contains(t, ok.JSON(), `"navigate"`)
}
