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

// Package model defines the language model interface used by the assistant.
//
// A model call is a single request/response exchange: the request carries
// the system instruction, the conversation (including earlier tool calls and
// their results) and the tool definitions; the response carries the text
// and any tool calls the model wants executed.
package model

import (
	"context"
	"errors"
	"strings"

	"github.com/galaxyco/copilot/pkg/tool"
)

// ErrInvocation marks a failed model call. Provider errors wrap it.
var ErrInvocation = errors.New("model invocation failed")

// LLM is the interface for language models.
type LLM interface {
	// Name returns the model identifier.
	Name() string

	// Provider returns the provider type.
	Provider() Provider

	// GenerateContent performs one model call.
	GenerateContent(ctx context.Context, req *Request) (*Response, error)

	// Close releases any resources held by the LLM.
	Close() error
}

// Provider identifies the LLM provider.
type Provider string

const (
	// ProviderOpenAI covers OpenAI and OpenAI-compatible chat completion APIs.
	ProviderOpenAI Provider = "openai"

	// ProviderGemini represents Google Gemini models.
	ProviderGemini Provider = "gemini"

	// ProviderUnknown for unrecognized providers.
	ProviderUnknown Provider = "unknown"
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message is one turn of the model conversation.
type Message struct {
	Role    Role
	Content string

	// ToolCalls are the calls an assistant message requested.
	ToolCalls []tool.Call

	// ToolCallID and Name identify the call a RoleTool message answers.
	ToolCallID string
	Name       string
}

// TextMessage builds a plain text message.
func TextMessage(role Role, text string) Message {
	return Message{Role: role, Content: text}
}

// ToolResultMessage builds the message answering call with content.
func ToolResultMessage(call tool.Call, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: call.ID, Name: call.Name}
}

// Request contains the input for an LLM call.
type Request struct {
	// Messages is the conversation history, oldest first.
	Messages []Message

	// Tools available for the model to call.
	Tools []tool.Definition

	// SystemInstruction is prepended to the conversation.
	SystemInstruction string

	// Config contains generation configuration.
	Config *GenerateConfig
}

// GenerateConfig contains configuration for generation.
type GenerateConfig struct {
	// Temperature controls randomness (0-2).
	Temperature *float64

	// MaxTokens limits the response length.
	MaxTokens *int

	// Metadata is forwarded to providers that accept request metadata.
	// The assistant sets workspace_id and user_id.
	Metadata map[string]string
}

// Clone creates a deep copy of the GenerateConfig.
func (c *GenerateConfig) Clone() *GenerateConfig {
	if c == nil {
		return nil
	}

	clone := *c
	if c.Temperature != nil {
		temp := *c.Temperature
		clone.Temperature = &temp
	}
	if c.MaxTokens != nil {
		maxTok := *c.MaxTokens
		clone.MaxTokens = &maxTok
	}
	if c.Metadata != nil {
		clone.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}

// Response contains the result of an LLM call.
type Response struct {
	// Text is the generated text, possibly empty when only tools were called.
	Text string

	// ToolCalls requested by the model, in emitted order.
	ToolCalls []tool.Call

	// Usage statistics.
	Usage *Usage

	// FinishReason indicates why generation stopped.
	FinishReason FinishReason
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// FinishReason indicates why generation stopped.
type FinishReason string

const (
	FinishReasonStop      FinishReason = "stop"
	FinishReasonLength    FinishReason = "length"
	FinishReasonToolCalls FinishReason = "tool_calls"
	FinishReasonContent   FinishReason = "content_filter"
	FinishReasonError     FinishReason = "error"
)

// HasToolCalls returns whether the response contains tool calls.
func (r *Response) HasToolCalls() bool {
	return r != nil && len(r.ToolCalls) > 0
}

// TextContent returns the trimmed response text.
func (r *Response) TextContent() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.Text)
}

// ToMessage converts a Response to the assistant message that produced it.
func (r *Response) ToMessage() Message {
	return Message{Role: RoleAssistant, Content: r.Text, ToolCalls: r.ToolCalls}
}
