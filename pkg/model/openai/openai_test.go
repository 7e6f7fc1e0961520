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

package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galaxyco/copilot/pkg/model"
	"github.com/galaxyco/copilot/pkg/tool"
)

func TestNew(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	c, err := New(Config{APIKey: "sk-test", BaseURL: "http://localhost:8080/v1/"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", c.Name())
	assert.Equal(t, model.ProviderOpenAI, c.Provider())
	assert.Equal(t, "http://localhost:8080/v1", c.baseURL)
}

func TestConvertMessages(t *testing.T) {
	call := tool.Call{ID: "call_1", Name: "list_agents", Args: map[string]any{"status": "active"}}
	msgs := convertMessages("Be brief.", []model.Message{
		model.TextMessage(model.RoleUser, "list my agents"),
		{Role: model.RoleAssistant, ToolCalls: []tool.Call{call}},
		model.ToolResultMessage(call, `{"success":true}`),
	})

	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "Be brief.", *msgs[0].Content)
	assert.Equal(t, "user", msgs[1].Role)

	assert.Equal(t, "assistant", msgs[2].Role)
	assert.Nil(t, msgs[2].Content)
	require.Len(t, msgs[2].ToolCalls, 1)
	assert.Equal(t, "function", msgs[2].ToolCalls[0].Type)
	assert.JSONEq(t, `{"status":"active"}`, msgs[2].ToolCalls[0].Function.Arguments)

	assert.Equal(t, "tool", msgs[3].Role)
	assert.Equal(t, "call_1", msgs[3].ToolCallID)
}

func TestConvertMessages_MalformedArgsReplayedRaw(t *testing.T) {
	call := tool.NewCall("call_2", "list_agents", `{"status": "activ`)
	msgs := convertMessages("", []model.Message{{Role: model.RoleAssistant, ToolCalls: []tool.Call{call}}})

	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].ToolCalls, 1)
	assert.Equal(t, `{"status": "activ`, msgs[0].ToolCalls[0].Function.Arguments)
}

func TestEndUser(t *testing.T) {
	assert.Equal(t, "ws1:u1", endUser(map[string]string{"workspace_id": "ws1", "user_id": "u1"}))
	assert.Equal(t, "ws1", endUser(map[string]string{"workspace_id": "ws1"}))
	assert.Equal(t, "", endUser(nil))
}

func TestParseResponse(t *testing.T) {
	content := "Let me check."
	resp, err := parseResponse(&chatResponse{
		Choices: []chatChoice{{
			FinishReason: "tool_calls",
			Message: chatMessage{
				Role:    "assistant",
				Content: &content,
				ToolCalls: []chatToolCall{
					{ID: "a", Type: "function", Function: chatFunctionCall{Name: "get_dashboard_stats", Arguments: `{"timeRange":"week"}`}},
					{ID: "b", Type: "function", Function: chatFunctionCall{Name: "list_agents", Arguments: `not json`}},
				},
			},
		}},
		Usage: &chatUsage{PromptTokens: 7, CompletionTokens: 3, TotalTokens: 10},
	})
	require.NoError(t, err)

	assert.Equal(t, "Let me check.", resp.Text)
	require.Len(t, resp.ToolCalls, 2)
	assert.Equal(t, map[string]any{"timeRange": "week"}, resp.ToolCalls[0].Args)
	assert.Nil(t, resp.ToolCalls[1].Args)
	assert.Equal(t, "not json", resp.ToolCalls[1].RawArgs)
	assert.NotEmpty(t, resp.ToolCalls[1].ArgsError)
	assert.Equal(t, model.FinishReasonToolCalls, resp.FinishReason)
	assert.Equal(t, 10, resp.Usage.TotalTokens)

	_, err = parseResponse(&chatResponse{})
	assert.Error(t, err)
}

func TestGenerateContent_RoundTrip(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "chatcmpl-1",
			"choices": []any{map[string]any{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "All done."},
			}},
			"usage": map[string]any{"prompt_tokens": 5, "completion_tokens": 2, "total_tokens": 7},
		})
	}))
	defer srv.Close()

	c, err := New(Config{APIKey: "sk-test", BaseURL: srv.URL, MaxTokens: 256})
	require.NoError(t, err)

	temp := 0.2
	resp, err := c.GenerateContent(context.Background(), &model.Request{
		SystemInstruction: "System prompt",
		Messages:          []model.Message{model.TextMessage(model.RoleUser, "hello")},
		Tools: []tool.Definition{{
			Name: "list_agents", Description: "List agents",
			Parameters: map[string]any{"type": "object", "properties": map[string]any{}},
		}},
		Config: &model.GenerateConfig{
			Temperature: &temp,
			Metadata:    map[string]string{"workspace_id": "ws1", "user_id": "u1"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "All done.", resp.Text)
	assert.Equal(t, model.FinishReasonStop, resp.FinishReason)

	assert.Equal(t, "gpt-4o", got.Model)
	assert.Equal(t, "ws1:u1", got.User)
	assert.Equal(t, "auto", got.ToolChoice)
	require.Len(t, got.Tools, 1)
	assert.Equal(t, "list_agents", got.Tools[0].Function.Name)
	require.NotNil(t, got.MaxTokens)
	assert.Equal(t, 256, *got.MaxTokens)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.2, *got.Temperature, 1e-9)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
}

func TestGenerateContent_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
	}))
	defer srv.Close()

	c, err := New(Config{APIKey: "sk-bad", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.GenerateContent(context.Background(), &model.Request{
		Messages: []model.Message{model.TextMessage(model.RoleUser, "hello")},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvocation)
	assert.Contains(t, err.Error(), "Incorrect API key provided")
}
