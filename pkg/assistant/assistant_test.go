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

package assistant

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galaxyco/copilot/pkg/tool"
)

func TestConfig_SetDefaults(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()

	assert.Equal(t, "GalaxyCo.ai", cfg.Brand)
	assert.Equal(t, 3, cfg.MaxResults)
	assert.Equal(t, 5*time.Second, cfg.RetrievalTimeout)
	assert.Equal(t, 60*time.Second, cfg.ModelTimeout)
	assert.Equal(t, 3, cfg.MaxToolRounds)
	assert.True(t, cfg.Summarize())
	assert.Equal(t, 4000, cfg.MaxHistoryTokens)
	require.NotNil(t, cfg.Temperature)
	assert.Equal(t, 0.7, *cfg.Temperature)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	hot := 3.0
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"max results", func(c *Config) { c.MaxResults = -1 }},
		{"negative timeout", func(c *Config) { c.ModelTimeout = -time.Second }},
		{"rounds", func(c *Config) { c.MaxToolRounds = -2 }},
		{"parallel", func(c *Config) { c.MaxParallelTools = -1 }},
		{"history", func(c *Config) { c.MaxHistoryTokens = -5 }},
		{"temperature", func(c *Config) { c.Temperature = &hot }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			cfg.SetDefaults()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestStateMachine(t *testing.T) {
	assert.True(t, CanTransition(StateIdle, StateContextRetrieved))
	assert.True(t, CanTransition(StateModelInvoked, StateResponseAssembled))
	assert.True(t, CanTransition(StateModelReinvoked, StateToolCallsPending))
	assert.False(t, CanTransition(StateIdle, StateModelInvoked))
	assert.False(t, CanTransition(StateToolCallsPending, StateModelReinvoked))
	assert.False(t, CanTransition(StateDone, StateIdle))

	m := newMachine()
	require.NoError(t, m.advance(StateContextRetrieved))
	err := m.advance(StateDone)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, []State{StateIdle, StateContextRetrieved}, m.history())
}

func TestResponse_Rounds(t *testing.T) {
	r := &Response{Trace: []State{
		StateIdle, StateContextRetrieved, StateModelInvoked,
		StateToolCallsPending, StateToolsExecuted, StateModelReinvoked,
		StateToolCallsPending, StateToolsExecuted, StateModelReinvoked,
		StateResponseAssembled, StateDone,
	}}
	assert.Equal(t, 2, r.Rounds())
}

func outcome(name tool.Name, ok bool) ToolOutcome {
	res := tool.Succeed("ok", nil)
	if !ok {
		res = tool.Fail(string(name), tool.CodeExecution, "boom")
	}
	return ToolOutcome{Call: tool.Call{Name: string(name)}, Result: res}
}

func TestFollowUps(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []ToolOutcome
		want     []string
	}{
		{"nothing ran", nil, defaultFollowUps},
		{
			"agent created",
			[]ToolOutcome{outcome(tool.CreateAgent, true)},
			[]string{"Want me to activate this agent?", "Should I create a workflow for this agent?"},
		},
		{
			"deduplicated and capped",
			[]ToolOutcome{
				outcome(tool.GetDashboardStats, true),
				outcome(tool.GetUsageMetrics, true),
				outcome(tool.CreateAgent, true),
				outcome(tool.UploadDocument, true),
			},
			[]string{
				"Want a breakdown by agent?",
				"Want me to activate this agent?",
				"Should I create a workflow for this agent?",
			},
		},
		{
			"failures ignored",
			[]ToolOutcome{outcome(tool.CreateAgent, false), outcome(tool.ConnectIntegration, true)},
			[]string{"Want to check the integration status?"},
		},
		{"only failures", []ToolOutcome{outcome(tool.DeleteAgent, false)}, []string{retryFollowUp}},
		{"success without suggestions", []ToolOutcome{outcome(tool.ListAgents, true)}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FollowUps(tt.outcomes)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), 3)
		})
	}
}

func TestFollowUps_DefaultsAreCopied(t *testing.T) {
	got := FollowUps(nil)
	got[0] = "changed"
	assert.Equal(t, "What would you like me to help you with?", defaultFollowUps[0])
}

func TestTrimHistory(t *testing.T) {
	msgs := []Message{
		{Role: RoleUser, Content: strings.Repeat("a", 400)},
		{Role: RoleAssistant, Content: "short"},
		{Role: RoleUser, Content: "latest"},
	}
	c := EstimateCounter{}

	assert.Equal(t, msgs, TrimHistory(msgs, c, 10_000))

	trimmed := TrimHistory(msgs, c, 30)
	require.Len(t, trimmed, 2)
	assert.Equal(t, "short", trimmed[0].Content)

	assert.Empty(t, TrimHistory(msgs, c, 2))
	assert.Nil(t, TrimHistory(nil, c, 100))
}

func TestEstimateCounter(t *testing.T) {
	c := EstimateCounter{}
	assert.Equal(t, 0, c.Count(""))
	assert.Equal(t, 1, c.Count("abc"))
	assert.Equal(t, 2, c.Count("abcdefgh"))
}

func TestSystemPrompt(t *testing.T) {
	p := SystemPrompt("Acme", "")
	assert.True(t, strings.HasPrefix(p, "You are the Acme Assistant"))
	assert.Contains(t, p, "CAPABILITIES:")
	assert.Contains(t, p, "RULES:")
	assert.Contains(t, p, "PLATFORM KNOWLEDGE:\nNo specific context available")

	p = SystemPrompt("Acme", "  Pricing: Enterprise starts at $99  ")
	assert.Contains(t, p, "PLATFORM KNOWLEDGE:\nPricing: Enterprise starts at $99\n")
	assert.NotContains(t, p, noContext)
}

func TestRole_IsValid(t *testing.T) {
	assert.True(t, RoleUser.IsValid())
	assert.True(t, RoleSystem.IsValid())
	assert.False(t, Role("tool").IsValid())
	assert.False(t, Role("").IsValid())
}
