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

package analyticstool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galaxyco/copilot/pkg/auth"
	"github.com/galaxyco/copilot/pkg/permission"
	"github.com/galaxyco/copilot/pkg/store"
	"github.com/galaxyco/copilot/pkg/tool"
)

// fakeStore serves one workspace and records the filters it was asked for.
type fakeStore struct {
	workspace *store.Workspace
	agents    map[store.AgentStatus]int
	execs     map[store.ExecutionStatus]int
	usage     store.UsageTotals
	err       error

	since []time.Time
}

func (f *fakeStore) GetWorkspace(_ context.Context, id string) (*store.Workspace, error) {
	if f.workspace == nil || f.workspace.ID != id {
		return nil, store.ErrNotFound
	}
	return f.workspace, nil
}

func (f *fakeStore) CountAgentsByStatus(_ context.Context, ws string) (map[store.AgentStatus]int, error) {
	if f.err != nil {
		return nil, f.err
	}
	if ws != f.workspace.ID {
		return map[store.AgentStatus]int{}, nil
	}
	return f.agents, nil
}

func (f *fakeStore) CountExecutionsByStatus(_ context.Context, ws string, filter store.ExecutionFilter) (map[store.ExecutionStatus]int, error) {
	f.since = append(f.since, filter.Since)
	if ws != f.workspace.ID {
		return map[store.ExecutionStatus]int{}, nil
	}
	return f.execs, nil
}

func (f *fakeStore) SumUsage(_ context.Context, ws string, filter store.ExecutionFilter) (store.UsageTotals, error) {
	f.since = append(f.since, filter.Since)
	if ws != f.workspace.ID {
		return store.UsageTotals{}, nil
	}
	return f.usage, nil
}

var (
	fixedNow   = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	testCaller = auth.NewCaller("user-1", "ws1", permission.AnalyticsRead)
)

func newFakeStore() *fakeStore {
	return &fakeStore{
		workspace: &store.Workspace{ID: "ws1", Name: "Acme", SubscriptionTier: "pro"},
		agents: map[store.AgentStatus]int{
			store.AgentStatusActive:   3,
			store.AgentStatusInactive: 1,
		},
		execs: map[store.ExecutionStatus]int{
			store.ExecutionCompleted: 2,
			store.ExecutionFailed:    1,
		},
		usage: store.UsageTotals{Executions: 90, TokensUsed: 12000, DurationMs: 4500},
	}
}

func run(t *testing.T, tl tool.Tool, caller auth.Caller, args map[string]any) (*tool.Result, error) {
	t.Helper()
	inv, err := tl.Bind(args)
	require.NoError(t, err)
	return inv(context.Background(), caller)
}

func withClock(t *testing.T) {
	t.Helper()
	prev := clock
	clock = func() time.Time { return fixedNow }
	t.Cleanup(func() { clock = prev })
}

func TestGetDashboardStats(t *testing.T) {
	withClock(t)
	s := newFakeStore()

	res, err := run(t, NewGetDashboardStats(s), testCaller, map[string]any{})
	require.NoError(t, err)
	require.True(t, res.Success)

	stats := res.Data.(DashboardStats)
	assert.Equal(t, "week", stats.TimeRange)
	assert.Equal(t, 4, stats.Agents.Total)
	assert.Equal(t, 3, stats.Agents.Active)
	assert.Equal(t, 3, stats.Executions.Total)
	assert.Equal(t, 2, stats.Executions.Successful)
	assert.Equal(t, 67, stats.Executions.SuccessRate)
	assert.Equal(t, "Dashboard stats: 4 agent(s), 3 execution(s), 67% success rate", res.Message)
	assert.Equal(t, []time.Time{fixedNow.AddDate(0, 0, -7)}, s.since)
}

func TestGetDashboardStats_Ranges(t *testing.T) {
	withClock(t)

	tests := []struct {
		timeRange string
		want      time.Time
	}{
		{"today", fixedNow.AddDate(0, 0, -1)},
		{"month", fixedNow.AddDate(0, -1, 0)},
		{"all", time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.timeRange, func(t *testing.T) {
			s := newFakeStore()
			_, err := run(t, NewGetDashboardStats(s), testCaller, map[string]any{"timeRange": tt.timeRange})
			require.NoError(t, err)
			assert.Equal(t, []time.Time{tt.want}, s.since)
		})
	}

	_, err := NewGetDashboardStats(newFakeStore()).Bind(map[string]any{"timeRange": "decade"})
	var verr *tool.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"timeRange"}, verr.FieldNames())
}

func TestGetDashboardStats_EmptyWorkspace(t *testing.T) {
	withClock(t)
	s := newFakeStore()

	res, err := run(t, NewGetDashboardStats(s), auth.NewCaller("user-2", "ws2", permission.AnalyticsRead), map[string]any{})
	require.NoError(t, err)
	stats := res.Data.(DashboardStats)
	assert.Zero(t, stats.Agents.Total)
	assert.Zero(t, stats.Executions.SuccessRate)
}

func TestGetDashboardStats_StoreFailure(t *testing.T) {
	s := newFakeStore()
	s.err = errors.New("database is locked")

	_, err := run(t, NewGetDashboardStats(s), testCaller, map[string]any{})
	var toolErr *tool.Error
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, tool.CodeExecution, toolErr.Code)
}

func TestGetUsageMetrics(t *testing.T) {
	withClock(t)
	s := newFakeStore()

	res, err := run(t, NewGetUsageMetrics(s), testCaller, map[string]any{})
	require.NoError(t, err)

	usage := res.Data.(UsageMetrics)
	assert.Equal(t, "month", usage.Period)
	assert.Equal(t, "pro", usage.SubscriptionTier)
	assert.Equal(t, 90, usage.Metrics.TotalExecutions)
	assert.Equal(t, 3, usage.Metrics.AvgExecutionsPerDay)
	assert.Equal(t, 12000, usage.Metrics.TokensUsed)
	assert.Equal(t, 4500, usage.Metrics.TotalDurationMs)
	assert.Equal(t, "month usage: 90 executions on pro tier", res.Message)

	res, err = run(t, NewGetUsageMetrics(s), testCaller, map[string]any{"period": "week"})
	require.NoError(t, err)
	assert.Equal(t, 12, res.Data.(UsageMetrics).Metrics.AvgExecutionsPerDay)
}

func TestGetUsageMetrics_UnknownWorkspace(t *testing.T) {
	_, err := run(t, NewGetUsageMetrics(newFakeStore()), auth.NewCaller("user-2", "ws2", permission.AnalyticsRead), map[string]any{})
	var toolErr *tool.Error
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, tool.CodeNotFound, toolErr.Code)
}
