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

package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/galaxyco/copilot/pkg/model"
	"github.com/galaxyco/copilot/pkg/tool"
)

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	m, err := New(Config{APIKey: "test-key"})
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", m.Name())
	assert.Equal(t, model.ProviderGemini, m.Provider())
}

func TestBuildContents(t *testing.T) {
	call1 := tool.Call{ID: "c1", Name: "list_agents", Args: map[string]any{"status": "active"}}
	call2 := tool.Call{ID: "c2", Name: "get_dashboard_stats", Args: map[string]any{}}

	contents := buildContents([]model.Message{
		model.TextMessage(model.RoleUser, "show me my agents"),
		{Role: model.RoleAssistant, ToolCalls: []tool.Call{call1, call2}},
		model.ToolResultMessage(call1, `{"success":true,"message":"Found 1 agent(s)"}`),
		model.ToolResultMessage(call2, "plain text"),
		model.TextMessage(model.RoleAssistant, "You have one agent."),
	})

	require.Len(t, contents, 4)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "show me my agents", contents[0].Parts[0].Text)

	assert.Equal(t, "model", contents[1].Role)
	require.Len(t, contents[1].Parts, 2)
	assert.Equal(t, "list_agents", contents[1].Parts[0].FunctionCall.Name)

	// Both results answer the same turn.
	require.Len(t, contents[2].Parts, 2)
	resp := contents[2].Parts[0].FunctionResponse
	assert.Equal(t, "c1", resp.ID)
	assert.Equal(t, true, resp.Response["success"])
	assert.Equal(t, map[string]any{"result": "plain text"}, contents[2].Parts[1].FunctionResponse.Response)

	assert.Equal(t, "model", contents[3].Role)
}

func TestToGenaiSchema(t *testing.T) {
	s := toGenaiSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"status": map[string]any{"type": "string", "enum": []any{"all", "active"}, "description": "Filter"},
			"tags":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []any{"status"},
	})

	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{"status"}, s.Required)
	assert.Equal(t, genai.TypeString, s.Properties["status"].Type)
	assert.Equal(t, []string{"all", "active"}, s.Properties["status"].Enum)
	assert.Equal(t, genai.TypeArray, s.Properties["tags"].Type)
	assert.Equal(t, genai.TypeString, s.Properties["tags"].Items.Type)
	assert.Nil(t, toGenaiSchema(nil))
}

func TestParseResponse(t *testing.T) {
	resp, err := parseResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			FinishReason: genai.FinishReasonStop,
			Content: &genai.Content{Role: "model", Parts: []*genai.Part{
				{Text: "thinking...", Thought: true},
				{Text: "Creating the agent."},
				{FunctionCall: &genai.FunctionCall{Name: "create_agent", Args: map[string]any{"name": "Inbox"}}},
			}},
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount: 10, CandidatesTokenCount: 5, TotalTokenCount: 15,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Creating the agent.", resp.Text)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "create_agent", resp.ToolCalls[0].Name)
	assert.Equal(t, stableCallID("create_agent", map[string]any{"name": "Inbox"}), resp.ToolCalls[0].ID)
	assert.Equal(t, model.FinishReasonToolCalls, resp.FinishReason)
	assert.Equal(t, 15, resp.Usage.TotalTokens)

	_, err = parseResponse(&genai.GenerateContentResponse{})
	assert.Error(t, err)
}

func TestGenerateContent_RoundTrip(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		assert.True(t, strings.Contains(r.URL.Path, "gemini-test:generateContent"), r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
            "candidates": [{"content": {"role": "model", "parts": [{"text": "Hello there"}]}, "finishReason": "STOP"}],
            "usageMetadata": {"promptTokenCount": 3, "candidatesTokenCount": 2, "totalTokenCount": 5}
        }`)
	}))
	defer srv.Close()

	m, err := New(Config{APIKey: "test-key", Model: "gemini-test", BaseURL: srv.URL})
	require.NoError(t, err)

	resp, err := m.GenerateContent(context.Background(), &model.Request{
		SystemInstruction: "You are helpful.",
		Messages:          []model.Message{model.TextMessage(model.RoleUser, "hi")},
		Tools: []tool.Definition{{
			Name: "list_agents", Description: "List agents",
			Parameters: map[string]any{"type": "object", "properties": map[string]any{}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello there", resp.Text)
	assert.Equal(t, 5, resp.Usage.TotalTokens)
	assert.Contains(t, body, "systemInstruction")
	assert.Contains(t, body, "tools")
}

func TestGenerateContent_ErrorWrapsInvocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":500,"message":"boom","status":"INTERNAL"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	m, err := New(Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = m.GenerateContent(context.Background(), &model.Request{
		Messages: []model.Message{model.TextMessage(model.RoleUser, "hi")},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvocation)
}
