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

// Package gemini implements the model.LLM interface for Google Gemini models
// using the official google.golang.org/genai SDK.
package gemini

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/galaxyco/copilot/pkg/model"
	"github.com/galaxyco/copilot/pkg/tool"
)

// Config contains configuration for the Gemini model.
type Config struct {
	// APIKey is the Google AI API key.
	APIKey string

	// Model is the model name (e.g., "gemini-2.0-flash").
	Model string

	// BaseURL overrides the API endpoint.
	BaseURL string

	// MaxTokens limits the response length.
	MaxTokens int

	// Temperature controls randomness (0-2).
	Temperature float64
}

// geminiModel implements model.LLM for Gemini.
type geminiModel struct {
	client *genai.Client
	name   string
	config Config
}

// New creates a new Gemini model instance.
func New(cfg Config) (model.LLM, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &geminiModel{
		client: client,
		name:   cfg.Model,
		config: cfg,
	}, nil
}

// Name returns the model identifier.
func (m *geminiModel) Name() string {
	return m.name
}

// Provider returns the provider type.
func (m *geminiModel) Provider() model.Provider {
	return model.ProviderGemini
}

// Close releases resources.
func (m *geminiModel) Close() error {
	return nil
}

// GenerateContent performs one non-streaming generation.
func (m *geminiModel) GenerateContent(ctx context.Context, req *model.Request) (*model.Response, error) {
	contents := buildContents(req.Messages)
	config := m.buildConfig(req)

	genResp, err := m.client.Models.GenerateContent(ctx, m.name, contents, config)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini: %w", model.ErrInvocation, err)
	}

	resp, err := parseResponse(genResp)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini: %w", model.ErrInvocation, err)
	}
	return resp, nil
}

// buildContents converts the conversation to Gemini contents. Consecutive
// tool results are merged into one user turn, which is how Gemini expects
// the answers to a multi-call turn.
func buildContents(msgs []model.Message) []*genai.Content {
	var contents []*genai.Content

	for _, msg := range msgs {
		switch msg.Role {
		case model.RoleTool:
			part := &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       msg.ToolCallID,
				Name:     msg.Name,
				Response: toolResponse(msg.Content),
			}}
			if n := len(contents); n > 0 && isFunctionResponseTurn(contents[n-1]) {
				contents[n-1].Parts = append(contents[n-1].Parts, part)
				continue
			}
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{part}})

		case model.RoleAssistant:
			var parts []*genai.Part
			if msg.Content != "" {
				parts = append(parts, &genai.Part{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   tc.ID,
					Name: tc.Name,
					Args: tc.Args,
				}})
			}
			if len(parts) > 0 {
				contents = append(contents, &genai.Content{Role: "model", Parts: parts})
			}

		default:
			// System messages inside the history are sent as user text; the
			// primary system prompt travels as SystemInstruction.
			if msg.Content != "" {
				contents = append(contents, &genai.Content{
					Role:  "user",
					Parts: []*genai.Part{{Text: msg.Content}},
				})
			}
		}
	}
	return contents
}

func isFunctionResponseTurn(c *genai.Content) bool {
	if c.Role != "user" || len(c.Parts) == 0 {
		return false
	}
	for _, p := range c.Parts {
		if p.FunctionResponse == nil {
			return false
		}
	}
	return true
}

// toolResponse turns a tool result into the map Gemini expects. JSON objects
// are passed through; anything else is wrapped under "result".
func toolResponse(content string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err == nil && obj != nil {
		return obj
	}
	return map[string]any{"result": content}
}

// buildConfig creates Gemini generation config.
func (m *geminiModel) buildConfig(req *model.Request) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}

	if req.SystemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemInstruction}},
			Role:  "user",
		}
	}

	if cfg := req.Config; cfg != nil {
		if cfg.Temperature != nil {
			config.Temperature = genai.Ptr(float32(*cfg.Temperature))
		}
		if cfg.MaxTokens != nil {
			config.MaxOutputTokens = int32(*cfg.MaxTokens)
		}
	}

	if config.Temperature == nil && m.config.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(m.config.Temperature))
	}
	if config.MaxOutputTokens == 0 && m.config.MaxTokens > 0 {
		config.MaxOutputTokens = int32(m.config.MaxTokens)
	}

	if len(req.Tools) > 0 {
		config.Tools = buildTools(req.Tools)
	}
	return config
}

// buildTools converts tool definitions to one Gemini tool holding every
// function declaration.
func buildTools(defs []tool.Definition) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, d := range defs {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  toGenaiSchema(d.Parameters),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// toGenaiSchema converts a JSON schema to Gemini schema.
func toGenaiSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}

	s := &genai.Schema{}

	if t, ok := schema["type"].(string); ok {
		s.Type = genai.Type(strings.ToUpper(t))
	}
	if desc, ok := schema["description"].(string); ok {
		s.Description = desc
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			if propMap, ok := prop.(map[string]any); ok {
				s.Properties[name] = toGenaiSchema(propMap)
			}
		}
	}
	if required, ok := schema["required"].([]any); ok {
		for _, r := range required {
			if rs, ok := r.(string); ok {
				s.Required = append(s.Required, rs)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		s.Items = toGenaiSchema(items)
	}
	if enum, ok := schema["enum"].([]any); ok {
		for _, e := range enum {
			if es, ok := e.(string); ok {
				s.Enum = append(s.Enum, es)
			}
		}
	}

	return s
}

// stableCallID derives an id for calls Gemini emits without one, so the
// same call always maps to the same id.
func stableCallID(name string, args map[string]any) string {
	data, _ := json.Marshal(map[string]any{"name": name, "args": args})
	hash := sha256.Sum256(data)
	return fmt.Sprintf("call-%x", hash[:12])
}

// parseResponse converts a Gemini response.
func parseResponse(genResp *genai.GenerateContentResponse) (*model.Response, error) {
	if genResp == nil || len(genResp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	candidate := genResp.Candidates[0]
	resp := &model.Response{FinishReason: mapFinishReason(candidate.FinishReason)}

	if candidate.Content != nil {
		var text strings.Builder
		for _, part := range candidate.Content.Parts {
			if part.Text != "" && !part.Thought {
				text.WriteString(part.Text)
			}
			if fc := part.FunctionCall; fc != nil {
				id := fc.ID
				if id == "" {
					id = stableCallID(fc.Name, fc.Args)
				}
				resp.ToolCalls = append(resp.ToolCalls, tool.Call{ID: id, Name: fc.Name, Args: fc.Args})
			}
		}
		resp.Text = text.String()
	}
	if len(resp.ToolCalls) > 0 {
		resp.FinishReason = model.FinishReasonToolCalls
	}

	if u := genResp.UsageMetadata; u != nil {
		resp.Usage = &model.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}

	return resp, nil
}

// mapFinishReason converts Gemini finish reason.
func mapFinishReason(reason genai.FinishReason) model.FinishReason {
	switch reason {
	case genai.FinishReasonStop:
		return model.FinishReasonStop
	case genai.FinishReasonMaxTokens:
		return model.FinishReasonLength
	case genai.FinishReasonSafety:
		return model.FinishReasonContent
	default:
		return model.FinishReasonStop
	}
}

// Ensure geminiModel implements model.LLM
var _ model.LLM = (*geminiModel)(nil)
