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

// Package analyticstool provides workspace-level reporting tools.
package analyticstool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/galaxyco/copilot/pkg/auth"
	"github.com/galaxyco/copilot/pkg/permission"
	"github.com/galaxyco/copilot/pkg/store"
	"github.com/galaxyco/copilot/pkg/tool"
	"github.com/galaxyco/copilot/pkg/tool/functiontool"
)

// Store is the subset of the tenant store the analytics tools use.
type Store interface {
	GetWorkspace(ctx context.Context, id string) (*store.Workspace, error)
	CountAgentsByStatus(ctx context.Context, workspaceID string) (map[store.AgentStatus]int, error)
	CountExecutionsByStatus(ctx context.Context, workspaceID string, f store.ExecutionFilter) (map[store.ExecutionStatus]int, error)
	SumUsage(ctx context.Context, workspaceID string, f store.ExecutionFilter) (store.UsageTotals, error)
}

var _ Store = (*store.Store)(nil)

// Tools returns every analytics tool bound to s.
func Tools(s Store) []tool.Tool {
	return []tool.Tool{
		NewGetDashboardStats(s),
		NewGetUsageMetrics(s),
	}
}

// clock is replaced in tests.
var clock = func() time.Time { return time.Now().UTC() }

type DashboardStatsArgs struct {
	TimeRange string `json:"timeRange,omitempty" jsonschema:"description=Time range for stats,enum=today,enum=week,enum=month,enum=all,default=week" validate:"oneof=today week month all"`
}

func (a *DashboardStatsArgs) SetDefaults() {
	if a.TimeRange == "" {
		a.TimeRange = "week"
	}
}

// DashboardStats is the get_dashboard_stats payload.
type DashboardStats struct {
	Agents struct {
		Total    int                       `json:"total"`
		Active   int                       `json:"active"`
		ByStatus map[store.AgentStatus]int `json:"byStatus"`
	} `json:"agents"`
	Executions struct {
		Total       int                           `json:"total"`
		Successful  int                           `json:"successful"`
		SuccessRate int                           `json:"successRate"`
		ByStatus    map[store.ExecutionStatus]int `json:"byStatus"`
	} `json:"executions"`
	TimeRange string `json:"timeRange"`
}

// NewGetDashboardStats returns the get_dashboard_stats tool.
func NewGetDashboardStats(s Store) tool.Tool {
	return functiontool.MustNew(functiontool.Config{
		Name:        tool.GetDashboardStats,
		Description: `Get dashboard overview statistics and metrics, for requests such as "Show me my dashboard stats".`,
		Category:    tool.CategoryAnalytics,
		Permissions: []permission.Permission{permission.AnalyticsRead},
		ReadOnly:    true,
	}, func(ctx context.Context, caller auth.Caller, args DashboardStatsArgs) (*tool.Result, error) {
		agents, err := s.CountAgentsByStatus(ctx, caller.WorkspaceID)
		if err != nil {
			return nil, tool.ExecutionError("failed to get dashboard stats", err)
		}
		execs, err := s.CountExecutionsByStatus(ctx, caller.WorkspaceID, store.ExecutionFilter{
			Since: store.RangeStart(args.TimeRange, clock()),
		})
		if err != nil {
			return nil, tool.ExecutionError("failed to get dashboard stats", err)
		}

		var stats DashboardStats
		stats.TimeRange = args.TimeRange
		stats.Agents.ByStatus = agents
		stats.Agents.Active = agents[store.AgentStatusActive]
		for _, n := range agents {
			stats.Agents.Total += n
		}
		stats.Executions.ByStatus = execs
		stats.Executions.Successful = execs[store.ExecutionCompleted]
		for _, n := range execs {
			stats.Executions.Total += n
		}
		if stats.Executions.Total > 0 {
			stats.Executions.SuccessRate = percent(stats.Executions.Successful, stats.Executions.Total)
		}

		return tool.Succeed(
			fmt.Sprintf("Dashboard stats: %d agent(s), %d execution(s), %d%% success rate",
				stats.Agents.Total, stats.Executions.Total, stats.Executions.SuccessRate),
			stats,
		), nil
	})
}

type UsageMetricsArgs struct {
	Period string `json:"period,omitempty" jsonschema:"description=Usage period,enum=today,enum=week,enum=month,default=month" validate:"oneof=today week month"`
}

func (a *UsageMetricsArgs) SetDefaults() {
	if a.Period == "" {
		a.Period = "month"
	}
}

// UsageMetrics is the get_usage_metrics payload.
type UsageMetrics struct {
	Period           string `json:"period"`
	SubscriptionTier string `json:"subscriptionTier"`
	Metrics          struct {
		TotalExecutions     int `json:"totalExecutions"`
		AvgExecutionsPerDay int `json:"avgExecutionsPerDay"`
		TokensUsed          int `json:"tokensUsed"`
		TotalDurationMs     int `json:"totalDurationMs"`
	} `json:"metrics"`
}

// periodDays is the divisor for the per-day average.
var periodDays = map[string]int{"today": 1, "week": 7, "month": 30}

// NewGetUsageMetrics returns the get_usage_metrics tool.
func NewGetUsageMetrics(s Store) tool.Tool {
	return functiontool.MustNew(functiontool.Config{
		Name:        tool.GetUsageMetrics,
		Description: `Get AI usage metrics and resource consumption, for requests such as "How much AI have I used this month?".`,
		Category:    tool.CategoryAnalytics,
		Permissions: []permission.Permission{permission.AnalyticsRead},
		ReadOnly:    true,
	}, func(ctx context.Context, caller auth.Caller, args UsageMetricsArgs) (*tool.Result, error) {
		ws, err := s.GetWorkspace(ctx, caller.WorkspaceID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, tool.NotFound("workspace")
		}
		if err != nil {
			return nil, tool.ExecutionError("failed to get usage metrics", err)
		}

		totals, err := s.SumUsage(ctx, caller.WorkspaceID, store.ExecutionFilter{
			Since: store.RangeStart(args.Period, clock()),
		})
		if err != nil {
			return nil, tool.ExecutionError("failed to get usage metrics", err)
		}

		usage := UsageMetrics{Period: args.Period, SubscriptionTier: ws.SubscriptionTier}
		usage.Metrics.TotalExecutions = totals.Executions
		usage.Metrics.AvgExecutionsPerDay = totals.Executions / periodDays[args.Period]
		usage.Metrics.TokensUsed = totals.TokensUsed
		usage.Metrics.TotalDurationMs = totals.DurationMs

		return tool.Succeed(
			fmt.Sprintf("%s usage: %d executions on %s tier", args.Period, totals.Executions, ws.SubscriptionTier),
			usage,
		), nil
	})
}

func percent(part, total int) int {
	return (part*100 + total/2) / total
}
