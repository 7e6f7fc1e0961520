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

// Package tool defines the operations the assistant's model may request.
//
// A Tool is a named, schema-validated, permission-gated operation against
// workspace data. Tools are registered once in a sealed Registry and run
// through the Executor, which validates arguments, checks permissions,
// enforces a timeout and turns every failure into a Result.
//
// # Tool Types
//
// The catalog lives in sub-packages:
//   - agenttool: create, update, delete, list agents and agent analytics
//   - analyticstool: workspace dashboard and usage metrics
//   - knowledgetool: knowledge base documents and semantic search
//   - integrationtool: third-party integrations
//
// Tools are normally built with functiontool.New from a typed argument struct.
package tool

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/galaxyco/copilot/pkg/auth"
	"github.com/galaxyco/copilot/pkg/permission"
)

// Name identifies a tool. Only the constants below are valid names.
type Name string

const (
	CreateAgent       Name = "create_agent"
	UpdateAgent       Name = "update_agent"
	DeleteAgent       Name = "delete_agent"
	ListAgents        Name = "list_agents"
	GetAgentAnalytics Name = "get_agent_analytics"

	GetDashboardStats Name = "get_dashboard_stats"
	GetUsageMetrics   Name = "get_usage_metrics"

	UploadDocument      Name = "upload_document"
	SearchKnowledge     Name = "search_knowledge"
	ListKnowledgeItems  Name = "list_knowledge_items"
	DeleteKnowledgeItem Name = "delete_knowledge_item"

	ConnectIntegration     Name = "connect_integration"
	ListIntegrations       Name = "list_integrations"
	DisconnectIntegration  Name = "disconnect_integration"
	CheckIntegrationStatus Name = "check_integration_status"
)

var knownNames = map[Name]struct{}{
	CreateAgent:            {},
	UpdateAgent:            {},
	DeleteAgent:            {},
	ListAgents:             {},
	GetAgentAnalytics:      {},
	GetDashboardStats:      {},
	GetUsageMetrics:        {},
	UploadDocument:         {},
	SearchKnowledge:        {},
	ListKnowledgeItems:     {},
	DeleteKnowledgeItem:    {},
	ConnectIntegration:     {},
	ListIntegrations:       {},
	DisconnectIntegration:  {},
	CheckIntegrationStatus: {},
}

// ParseName resolves a raw name, as produced by a model, to a known Name.
func ParseName(s string) (Name, bool) {
	n := Name(s)
	_, ok := knownNames[n]
	return n, ok
}

// Names returns every known tool name, sorted.
func Names() []Name {
	out := make([]Name, 0, len(knownNames))
	for n := range knownNames {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (n Name) String() string {
	return string(n)
}

// Category groups tools for listing and follow-up suggestions.
type Category string

const (
	CategoryAgents       Category = "agents"
	CategoryAnalytics    Category = "analytics"
	CategoryKnowledge    Category = "knowledge"
	CategoryIntegrations Category = "integrations"
)

// Tool is a single operation the model may request.
//
// Implementations must be safe for concurrent use: a Tool is shared by every
// request for the lifetime of the process.
type Tool interface {
	Name() Name
	Description() string
	Category() Category

	// RequiredPermissions must all be held by the caller (AND semantics).
	RequiredPermissions() permission.Set

	// IsDestructive marks tools whose effect cannot be undone.
	IsDestructive() bool

	// IsReadOnly marks tools that never mutate data. Read-only calls may be
	// executed concurrently.
	IsReadOnly() bool

	// Schema returns the JSON schema of the arguments.
	Schema() map[string]any

	// Bind validates raw arguments and returns an Invocation holding the
	// typed arguments. A *ValidationError is returned for bad input.
	Bind(args map[string]any) (Invocation, error)
}

// Invocation runs a bound tool on behalf of caller. Every data access it
// performs is scoped to caller.WorkspaceID.
type Invocation func(ctx context.Context, caller auth.Caller) (*Result, error)

// Definition is the model-facing description of a tool.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// DefinitionOf builds the Definition of t.
func DefinitionOf(t Tool) Definition {
	return Definition{
		Name:        string(t.Name()),
		Description: t.Description(),
		Parameters:  t.Schema(),
	}
}

// Call is a tool call as emitted by the model. Name is unvalidated.
type Call struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`

	// RawArgs and ArgsError are set when the model sent arguments that do not
	// decode to a JSON object. The executor rejects such calls.
	RawArgs   string `json:"rawArgs,omitempty"`
	ArgsError string `json:"argsError,omitempty"`
}

// NewCall builds a Call from arguments encoded as JSON text.
func NewCall(id, name, rawArgs string) Call {
	c := Call{ID: id, Name: name}
	args, err := ParseArgs(rawArgs)
	if err != nil {
		c.RawArgs = rawArgs
		c.ArgsError = err.Error()
		return c
	}
	c.Args = args
	return c
}

// ParseArgs decodes a JSON object of call arguments. Blank input and null
// decode to an empty map.
func ParseArgs(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
