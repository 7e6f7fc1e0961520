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

// Package assistant implements the workspace copilot: it turns one chat
// message into an AssistantResponse by retrieving workspace context,
// invoking the language model with the tool catalog, executing the tool
// calls the model requests and narrating their results.
//
// The Orchestrator keeps no state between calls. Conversation continuity
// comes from the caller passing the Conversation back on every message.
package assistant

import (
	"errors"
	"fmt"
	"time"

	"github.com/galaxyco/copilot/pkg/tool"
)

// ErrInvalidInput is returned by ProcessMessage for input rejected before
// any work starts. Every later failure is folded into the Response.
var ErrInvalidInput = errors.New("invalid input")

// Role is the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is one prior turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is the history the caller re-passes on every message.
// WorkspaceID and UserID, when set, must match the Caller.
type Conversation struct {
	Messages    []Message `json:"messages"`
	WorkspaceID string    `json:"workspaceId,omitempty"`
	UserID      string    `json:"userId,omitempty"`
}

// ToolOutcome pairs a tool call with its result.
type ToolOutcome struct {
	Call   tool.Call    `json:"call"`
	Result *tool.Result `json:"result"`
}

// Response is the outcome of one ProcessMessage call.
type Response struct {
	// Message is the text shown to the user. Never empty.
	Message string `json:"message"`

	// Actions are the UI directives of successful tool results, in the
	// order the calls were emitted. Never nil.
	Actions []tool.Action `json:"actions"`

	// SuggestedFollowUps holds at most three prompts. Never nil.
	SuggestedFollowUps []string `json:"suggestedFollowUps"`

	// ToolCalls and ToolResults echo every executed call, in order.
	ToolCalls   []tool.Call    `json:"toolCalls,omitempty"`
	ToolResults []*tool.Result `json:"toolResults,omitempty"`

	// Degraded is set when the model failed and Message is a fallback.
	Degraded bool `json:"degraded,omitempty"`

	// Trace is the sequence of states the call went through.
	Trace []State `json:"-"`
}

// Rounds returns how many times the model was re-invoked with tool results.
func (r *Response) Rounds() int {
	n := 0
	for _, s := range r.Trace {
		if s == StateModelReinvoked {
			n++
		}
	}
	return n
}

// Config configures the Orchestrator.
type Config struct {
	// Brand is the product name used in the system prompt.
	// Default: "GalaxyCo.ai"
	Brand string `yaml:"brand,omitempty"`

	// MaxResults is the number of knowledge sources retrieved per message.
	// Default: 3
	MaxResults int `yaml:"max_results,omitempty"`

	// RetrievalTimeout bounds context retrieval. A timeout degrades to an
	// empty context. Default: 5s
	RetrievalTimeout time.Duration `yaml:"retrieval_timeout,omitempty"`

	// ModelTimeout bounds each model invocation. Default: 60s
	ModelTimeout time.Duration `yaml:"model_timeout,omitempty"`

	// MaxToolRounds bounds the number of tool batches executed for one
	// message. Default: 3
	MaxToolRounds int `yaml:"max_tool_rounds,omitempty"`

	// SummarizeToolResults re-invokes the model with the tool results so it
	// can narrate them. Default: true
	SummarizeToolResults *bool `yaml:"summarize_tool_results,omitempty"`

	// ParallelReadOnly runs consecutive read-only calls concurrently.
	// Results keep the emitted order.
	ParallelReadOnly bool `yaml:"parallel_read_only,omitempty"`

	// MaxParallelTools limits concurrent read-only calls. Default: 4
	MaxParallelTools int `yaml:"max_parallel_tools,omitempty"`

	// ExposeOnlyPermittedTools sends the model only the tools the caller
	// may run. Every call is still permission checked.
	ExposeOnlyPermittedTools bool `yaml:"expose_only_permitted_tools,omitempty"`

	// MaxHistoryTokens is the token budget for prior conversation messages.
	// Default: 4000
	MaxHistoryTokens int `yaml:"max_history_tokens,omitempty"`

	// Temperature for model calls. Default: 0.7
	Temperature *float64 `yaml:"temperature,omitempty"`
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	if c.Brand == "" {
		c.Brand = "GalaxyCo.ai"
	}
	if c.MaxResults == 0 {
		c.MaxResults = 3
	}
	if c.RetrievalTimeout == 0 {
		c.RetrievalTimeout = 5 * time.Second
	}
	if c.ModelTimeout == 0 {
		c.ModelTimeout = 60 * time.Second
	}
	if c.MaxToolRounds == 0 {
		c.MaxToolRounds = 3
	}
	if c.SummarizeToolResults == nil {
		enabled := true
		c.SummarizeToolResults = &enabled
	}
	if c.MaxParallelTools == 0 {
		c.MaxParallelTools = 4
	}
	if c.MaxHistoryTokens == 0 {
		c.MaxHistoryTokens = 4000
	}
	if c.Temperature == nil {
		temp := 0.7
		c.Temperature = &temp
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MaxResults < 1 {
		return fmt.Errorf("max_results must be at least 1")
	}
	if c.RetrievalTimeout < 0 || c.ModelTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.MaxToolRounds < 1 {
		return fmt.Errorf("max_tool_rounds must be at least 1")
	}
	if c.MaxParallelTools < 1 {
		return fmt.Errorf("max_parallel_tools must be at least 1")
	}
	if c.MaxHistoryTokens < 1 {
		return fmt.Errorf("max_history_tokens must be at least 1")
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	return nil
}

// Summarize reports whether tool results are narrated by the model.
func (c *Config) Summarize() bool {
	return c.SummarizeToolResults == nil || *c.SummarizeToolResults
}
