// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package openai implements model.LLM over the OpenAI Chat Completions API.
// Any OpenAI-compatible endpoint works by setting BaseURL.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/galaxyco/copilot/pkg/httpclient"
	"github.com/galaxyco/copilot/pkg/model"
	"github.com/galaxyco/copilot/pkg/tool"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o"
	defaultTimeout = 120 * time.Second
)

// Config contains configuration for the OpenAI client.
type Config struct {
	// APIKey is the OpenAI API key.
	APIKey string

	// Model is the model name (e.g., "gpt-4o", "gpt-4o-mini").
	Model string

	// MaxTokens limits the response length. Zero leaves it to the API.
	MaxTokens int

	// Temperature controls randomness (0-2).
	Temperature *float64

	// BaseURL overrides the API endpoint.
	BaseURL string

	// Timeout bounds one HTTP attempt.
	Timeout time.Duration

	// MaxRetries for rate limit and server errors. Zero means 3, negative
	// disables retries.
	MaxRetries int
}

// Client implements model.LLM for OpenAI.
type Client struct {
	httpClient  *httpclient.Client
	apiKey      string
	baseURL     string
	modelName   string
	maxTokens   int
	temperature *float64
}

// New creates a new OpenAI client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultModel
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}

	return &Client{
		httpClient: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: timeout}),
			httpclient.WithMaxRetries(maxRetries),
		),
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		modelName:   modelName,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Name returns the model identifier.
func (c *Client) Name() string {
	return c.modelName
}

// Provider returns the provider type.
func (c *Client) Provider() model.Provider {
	return model.ProviderOpenAI
}

// Close releases resources.
func (c *Client) Close() error {
	return nil
}

// GenerateContent performs one non-streaming chat completion.
func (c *Client) GenerateContent(ctx context.Context, req *model.Request) (*model.Response, error) {
	resp, err := c.generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: openai: %w", model.ErrInvocation, err)
	}
	return resp, nil
}

func (c *Client) generate(ctx context.Context, req *model.Request) (*model.Response, error) {
	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, apiErrorMessage(bodyBytes))
	}

	var apiResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return parseResponse(&apiResp)
}

// setHeaders sets the required HTTP headers.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}

// buildRequest creates an API request from model.Request.
func (c *Client) buildRequest(req *model.Request) *chatRequest {
	apiReq := &chatRequest{
		Model:       c.modelName,
		Messages:    convertMessages(req.SystemInstruction, req.Messages),
		Temperature: c.temperature,
	}
	if c.maxTokens > 0 {
		maxTokens := c.maxTokens
		apiReq.MaxTokens = &maxTokens
	}

	if cfg := req.Config; cfg != nil {
		if cfg.Temperature != nil {
			apiReq.Temperature = cfg.Temperature
		}
		if cfg.MaxTokens != nil {
			apiReq.MaxTokens = cfg.MaxTokens
		}
		apiReq.User = endUser(cfg.Metadata)
	}

	if len(req.Tools) > 0 {
		apiReq.Tools = convertTools(req.Tools)
		apiReq.ToolChoice = "auto"
	}
	return apiReq
}

// endUser renders the caller identity for the "user" field, which OpenAI
// uses for abuse monitoring.
func endUser(md map[string]string) string {
	ws, user := md["workspace_id"], md["user_id"]
	switch {
	case ws != "" && user != "":
		return ws + ":" + user
	case ws != "":
		return ws
	default:
		return user
	}
}

// convertMessages converts the conversation to chat messages.
func convertMessages(system string, msgs []model.Message) []chatMessage {
	out := make([]chatMessage, 0, len(msgs)+1)
	if system != "" {
		out = append(out, chatMessage{Role: "system", Content: strPtr(system)})
	}

	for _, msg := range msgs {
		switch msg.Role {
		case model.RoleTool:
			out = append(out, chatMessage{
				Role:       "tool",
				Content:    strPtr(msg.Content),
				ToolCallID: msg.ToolCallID,
			})

		case model.RoleAssistant:
			cm := chatMessage{Role: "assistant"}
			if msg.Content != "" || len(msg.ToolCalls) == 0 {
				cm.Content = strPtr(msg.Content)
			}
			for _, tc := range msg.ToolCalls {
				args, err := json.Marshal(tc.Args)
				switch {
				case tc.ArgsError != "":
					args = []byte(tc.RawArgs)
				case err != nil || tc.Args == nil:
					args = []byte("{}")
				}
				cm.ToolCalls = append(cm.ToolCalls, chatToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: chatFunctionCall{
						Name:      tc.Name,
						Arguments: string(args),
					},
				})
			}
			out = append(out, cm)

		default:
			out = append(out, chatMessage{Role: string(msg.Role), Content: strPtr(msg.Content)})
		}
	}
	return out
}

// convertTools converts tool definitions to function tools.
func convertTools(defs []tool.Definition) []chatTool {
	tools := make([]chatTool, 0, len(defs))
	for _, d := range defs {
		params := d.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		tools = append(tools, chatTool{
			Type: "function",
			Function: chatFunction{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  params,
			},
		})
	}
	return tools
}

// parseResponse converts the first choice to a model.Response. Arguments
// that are not valid JSON are kept raw on the call with the decode error so
// the executor fails it.
func parseResponse(apiResp *chatResponse) (*model.Response, error) {
	if len(apiResp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	choice := apiResp.Choices[0]
	resp := &model.Response{FinishReason: mapFinishReason(choice.FinishReason)}
	if choice.Message.Content != nil {
		resp.Text = *choice.Message.Content
	}

	for _, tc := range choice.Message.ToolCalls {
		call := tool.NewCall(tc.ID, tc.Function.Name, tc.Function.Arguments)
		if call.ArgsError != "" {
			slog.Warn("Model sent malformed tool arguments", "tool", call.Name, "error", call.ArgsError)
		}
		resp.ToolCalls = append(resp.ToolCalls, call)
	}
	if len(resp.ToolCalls) > 0 {
		resp.FinishReason = model.FinishReasonToolCalls
	}

	if u := apiResp.Usage; u != nil {
		resp.Usage = &model.Usage{
			PromptTokens:     u.PromptTokens,
			CompletionTokens: u.CompletionTokens,
			TotalTokens:      u.TotalTokens,
		}
	}
	return resp, nil
}

// mapFinishReason converts OpenAI finish reasons.
func mapFinishReason(reason string) model.FinishReason {
	switch reason {
	case "length":
		return model.FinishReasonLength
	case "tool_calls", "function_call":
		return model.FinishReasonToolCalls
	case "content_filter":
		return model.FinishReasonContent
	default:
		return model.FinishReasonStop
	}
}

// apiErrorMessage extracts error.message from an error body, falling back
// to the raw body.
func apiErrorMessage(body []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return strings.TrimSpace(string(body))
}

func strPtr(s string) *string {
	return &s
}

// Wire types.

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Tools       []chatTool    `json:"tools,omitempty"`
	ToolChoice  string        `json:"tool_choice,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	User        string        `json:"user,omitempty"`
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    *string        `json:"content"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type chatToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function chatFunctionCall `json:"function"`
}

type chatFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Ensure Client implements model.LLM
var _ model.LLM = (*Client)(nil)
