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

// Package agenttool provides the agent management tools: create, update,
// delete, list and per-agent analytics.
package agenttool

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/galaxyco/copilot/pkg/auth"
	"github.com/galaxyco/copilot/pkg/permission"
	"github.com/galaxyco/copilot/pkg/store"
	"github.com/galaxyco/copilot/pkg/tool"
	"github.com/galaxyco/copilot/pkg/tool/functiontool"
)

// Store is the subset of the tenant store the agent tools use.
type Store interface {
	CreateAgent(ctx context.Context, a *store.Agent) error
	GetAgent(ctx context.Context, workspaceID, id string) (*store.Agent, error)
	ListAgents(ctx context.Context, workspaceID string, f store.AgentFilter) ([]*store.Agent, error)
	UpdateAgent(ctx context.Context, workspaceID, id string, u store.AgentUpdate) (*store.Agent, error)
	DeleteAgent(ctx context.Context, workspaceID, id string) error
	ListExecutions(ctx context.Context, workspaceID string, f store.ExecutionFilter) ([]*store.Execution, error)
}

var _ Store = (*store.Store)(nil)

// recentExecutions is how many runs list_agents inspects per agent.
const recentExecutions = 10

// Tools returns every agent tool bound to s.
func Tools(s Store) []tool.Tool {
	return []tool.Tool{
		NewCreateAgent(s),
		NewUpdateAgent(s),
		NewDeleteAgent(s),
		NewListAgents(s),
		NewGetAgentAnalytics(s),
	}
}

// TriggerConfig describes how an agent starts.
type TriggerConfig struct {
	Type       string `json:"type" jsonschema:"required,enum=schedule,enum=webhook,enum=manual,enum=realtime" validate:"required,oneof=schedule webhook manual realtime"`
	Schedule   string `json:"schedule,omitempty" jsonschema:"description=Cron expression for scheduled agents"`
	WebhookURL string `json:"webhookUrl,omitempty" validate:"omitempty,url"`
}

type CreateAgentArgs struct {
	Name          string         `json:"name" jsonschema:"required,description=Agent name (e.g. Email Triage Agent)" validate:"required,min=1"`
	Description   string         `json:"description" jsonschema:"required,description=What the agent does" validate:"required"`
	Type          string         `json:"type" jsonschema:"required,description=Type of agent,enum=email,enum=crm,enum=workflow,enum=data-enrichment,enum=custom" validate:"required,oneof=email crm workflow data-enrichment custom"`
	TriggerConfig *TriggerConfig `json:"triggerConfig,omitempty" jsonschema:"description=How the agent is triggered"`
	AutoActivate  bool           `json:"autoActivate,omitempty" jsonschema:"description=Automatically activate agent after creation,default=false"`
}

// NewCreateAgent returns the create_agent tool.
func NewCreateAgent(s Store) tool.Tool {
	return functiontool.MustNew(functiontool.Config{
		Name: tool.CreateAgent,
		Description: "Create a new AI agent. Use this when the user wants to create an agent for automation, " +
			`such as "Create an email triage agent" or "Make an agent to manage my CRM".`,
		Category:    tool.CategoryAgents,
		Permissions: []permission.Permission{permission.AgentsCreate},
	}, func(ctx context.Context, caller auth.Caller, args CreateAgentArgs) (*tool.Result, error) {
		trigger := map[string]any{"type": "manual"}
		if args.TriggerConfig != nil {
			trigger = map[string]any{"type": args.TriggerConfig.Type}
			if args.TriggerConfig.Schedule != "" {
				trigger["schedule"] = args.TriggerConfig.Schedule
			}
			if args.TriggerConfig.WebhookURL != "" {
				trigger["webhookUrl"] = args.TriggerConfig.WebhookURL
			}
		}

		status := store.AgentStatusInactive
		if args.AutoActivate {
			status = store.AgentStatusActive
		}

		agent := &store.Agent{
			WorkspaceID: caller.WorkspaceID,
			Name:        args.Name,
			Description: args.Description,
			Type:        store.AgentType(args.Type),
			Status:      status,
			Config:      map[string]any{"trigger": trigger},
			CreatedBy:   caller.UserID,
		}
		if err := s.CreateAgent(ctx, agent); err != nil {
			return nil, tool.ExecutionError("failed to create agent", err)
		}

		next := "Activate it when ready."
		if args.AutoActivate {
			next = "It's now active!"
		}
		return tool.SucceedWithAction(
			fmt.Sprintf("Created %q agent. %s", agent.Name, next),
			agent,
			tool.Action{Type: tool.ActionNavigate, Target: "/agents/" + agent.ID, Label: "View agent details"},
		), nil
	})
}

// AgentChanges lists the fields update_agent may change.
type AgentChanges struct {
	Name          *string        `json:"name,omitempty" validate:"omitempty,min=1"`
	Description   *string        `json:"description,omitempty"`
	Status        *string        `json:"status,omitempty" jsonschema:"enum=active,enum=inactive,enum=paused" validate:"omitempty,oneof=active inactive paused"`
	Configuration map[string]any `json:"configuration,omitempty"`
}

type UpdateAgentArgs struct {
	AgentID string       `json:"agentId" jsonschema:"required,description=ID of agent to update" validate:"required"`
	Updates AgentChanges `json:"updates" jsonschema:"required,description=Fields to change"`
}

// NewUpdateAgent returns the update_agent tool.
func NewUpdateAgent(s Store) tool.Tool {
	return functiontool.MustNew(functiontool.Config{
		Name: tool.UpdateAgent,
		Description: "Update an existing agent's settings or configuration, " +
			`such as "Change my email agent's schedule to run hourly".`,
		Category:    tool.CategoryAgents,
		Permissions: []permission.Permission{permission.AgentsUpdate},
	}, func(ctx context.Context, caller auth.Caller, args UpdateAgentArgs) (*tool.Result, error) {
		u := store.AgentUpdate{
			Name:        args.Updates.Name,
			Description: args.Updates.Description,
			Config:      args.Updates.Configuration,
		}
		if args.Updates.Status != nil {
			status := store.AgentStatus(*args.Updates.Status)
			u.Status = &status
		}

		updated, err := s.UpdateAgent(ctx, caller.WorkspaceID, args.AgentID, u)
		if err != nil {
			return nil, storeError("update agent", err)
		}
		return tool.SucceedWithAction(
			fmt.Sprintf("Updated %q successfully", updated.Name),
			updated,
			tool.Action{Type: tool.ActionUpdate, Target: "agent-" + updated.ID, Label: "Agent updated"},
		), nil
	})
}

type DeleteAgentArgs struct {
	AgentID string `json:"agentId" jsonschema:"required,description=ID of agent to delete" validate:"required"`
}

// NewDeleteAgent returns the delete_agent tool.
func NewDeleteAgent(s Store) tool.Tool {
	return functiontool.MustNew(functiontool.Config{
		Name:        tool.DeleteAgent,
		Description: `Delete an agent permanently. Use with caution, for requests such as "Delete the test agent".`,
		Category:    tool.CategoryAgents,
		Permissions: []permission.Permission{permission.AgentsDelete},
		Destructive: true,
	}, func(ctx context.Context, caller auth.Caller, args DeleteAgentArgs) (*tool.Result, error) {
		agent, err := s.GetAgent(ctx, caller.WorkspaceID, args.AgentID)
		if err != nil {
			return nil, storeError("delete agent", err)
		}
		if err := s.DeleteAgent(ctx, caller.WorkspaceID, agent.ID); err != nil {
			return nil, storeError("delete agent", err)
		}
		return tool.SucceedWithAction(
			fmt.Sprintf("Deleted %q agent", agent.Name),
			nil,
			tool.Action{Type: tool.ActionDelete, Target: "agent-" + agent.ID, Label: "Agent deleted"},
		), nil
	})
}

type ListAgentsArgs struct {
	Status string `json:"status,omitempty" jsonschema:"description=Filter by status,enum=all,enum=active,enum=inactive,enum=paused,default=all" validate:"oneof=all active inactive paused"`
	Limit  int    `json:"limit,omitempty" jsonschema:"description=Maximum agents to return,default=50" validate:"gte=1,lte=200"`
}

func (a *ListAgentsArgs) SetDefaults() {
	if a.Status == "" {
		a.Status = "all"
	}
	if a.Limit == 0 {
		a.Limit = 50
	}
}

// AgentSummary is an agent with its recent execution stats.
type AgentSummary struct {
	*store.Agent
	RecentExecutions int        `json:"recentExecutions"`
	LastExecution    *time.Time `json:"lastExecution"`
	SuccessRate      float64    `json:"successRate"`
}

// NewListAgents returns the list_agents tool.
func NewListAgents(s Store) tool.Tool {
	return functiontool.MustNew(functiontool.Config{
		Name:        tool.ListAgents,
		Description: `List all agents in the workspace, for requests such as "Show me all my agents" or "List active agents".`,
		Category:    tool.CategoryAgents,
		Permissions: []permission.Permission{permission.AgentsRead},
		ReadOnly:    true,
	}, func(ctx context.Context, caller auth.Caller, args ListAgentsArgs) (*tool.Result, error) {
		filter := store.AgentFilter{Limit: args.Limit}
		if args.Status != "all" {
			filter.Status = store.AgentStatus(args.Status)
		}

		agents, err := s.ListAgents(ctx, caller.WorkspaceID, filter)
		if err != nil {
			return nil, tool.ExecutionError("failed to list agents", err)
		}

		summaries := make([]AgentSummary, 0, len(agents))
		for _, a := range agents {
			execs, err := s.ListExecutions(ctx, caller.WorkspaceID, store.ExecutionFilter{AgentID: a.ID, Limit: recentExecutions})
			if err != nil {
				return nil, tool.ExecutionError("failed to list agent executions", err)
			}
			sum := AgentSummary{Agent: a, RecentExecutions: len(execs)}
			if len(execs) > 0 {
				sum.LastExecution = &execs[0].CreatedAt
				sum.SuccessRate = successRate(execs)
			}
			summaries = append(summaries, sum)
		}

		return tool.Succeed(fmt.Sprintf("Found %d agent(s)", len(summaries)), summaries), nil
	})
}

type GetAgentAnalyticsArgs struct {
	AgentID   string `json:"agentId" jsonschema:"required,description=Agent ID to get analytics for" validate:"required"`
	TimeRange string `json:"timeRange,omitempty" jsonschema:"description=Time range for analytics,enum=day,enum=week,enum=month,enum=all,default=week" validate:"oneof=day week month all"`
}

func (a *GetAgentAnalyticsArgs) SetDefaults() {
	if a.TimeRange == "" {
		a.TimeRange = "week"
	}
}

// AgentAnalytics is the get_agent_analytics payload.
type AgentAnalytics struct {
	Agent struct {
		ID     string            `json:"id"`
		Name   string            `json:"name"`
		Status store.AgentStatus `json:"status"`
	} `json:"agent"`
	TimeRange string `json:"timeRange"`
	Metrics   struct {
		TotalExecutions      int     `json:"totalExecutions"`
		SuccessfulExecutions int     `json:"successfulExecutions"`
		FailedExecutions     int     `json:"failedExecutions"`
		SuccessRate          float64 `json:"successRate"`
		AverageDurationMs    int     `json:"averageDurationMs"`
		TokensUsed           int     `json:"tokensUsed"`
	} `json:"metrics"`
	RecentExecutions []*store.Execution `json:"recentExecutions"`
}

// NewGetAgentAnalytics returns the get_agent_analytics tool.
func NewGetAgentAnalytics(s Store) tool.Tool {
	return functiontool.MustNew(functiontool.Config{
		Name:        tool.GetAgentAnalytics,
		Description: `Get performance metrics and analytics for an agent, for requests such as "How is my email agent performing?".`,
		Category:    tool.CategoryAnalytics,
		Permissions: []permission.Permission{permission.AnalyticsRead},
		ReadOnly:    true,
	}, func(ctx context.Context, caller auth.Caller, args GetAgentAnalyticsArgs) (*tool.Result, error) {
		agent, err := s.GetAgent(ctx, caller.WorkspaceID, args.AgentID)
		if err != nil {
			return nil, storeError("get analytics", err)
		}

		execs, err := s.ListExecutions(ctx, caller.WorkspaceID, store.ExecutionFilter{
			AgentID: agent.ID,
			Since:   store.RangeStart(args.TimeRange, time.Now().UTC()),
		})
		if err != nil {
			return nil, tool.ExecutionError("failed to get analytics", err)
		}

		var out AgentAnalytics
		out.Agent.ID = agent.ID
		out.Agent.Name = agent.Name
		out.Agent.Status = agent.Status
		out.TimeRange = args.TimeRange

		totalDuration := 0
		for _, e := range execs {
			switch e.Status {
			case store.ExecutionCompleted:
				out.Metrics.SuccessfulExecutions++
			case store.ExecutionFailed:
				out.Metrics.FailedExecutions++
			}
			totalDuration += e.DurationMs
			out.Metrics.TokensUsed += e.TokensUsed
		}
		out.Metrics.TotalExecutions = len(execs)
		if len(execs) > 0 {
			out.Metrics.SuccessRate = math.Round(successRate(execs))
			out.Metrics.AverageDurationMs = totalDuration / len(execs)
		}
		out.RecentExecutions = execs[:min(5, len(execs))]

		return tool.Succeed(
			fmt.Sprintf("%q analytics: %.1f%% success rate over %d executions",
				agent.Name, successRate(execs), len(execs)),
			out,
		), nil
	})
}

// successRate is the percentage of completed executions, 0 when empty.
func successRate(execs []*store.Execution) float64 {
	if len(execs) == 0 {
		return 0
	}
	completed := 0
	for _, e := range execs {
		if e.Status == store.ExecutionCompleted {
			completed++
		}
	}
	return float64(completed) / float64(len(execs)) * 100
}

func storeError(action string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return tool.NotFound("agent")
	}
	return tool.ExecutionError("failed to "+action, err)
}
