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
	"github.com/galaxyco/copilot/pkg/tool"
)

const maxFollowUps = 3

var defaultFollowUps = []string{
	"What would you like me to help you with?",
	"Need help creating an agent or workflow?",
	"Want to see your analytics?",
}

const retryFollowUp = "Want me to try that again?"

var followUpsByTool = map[tool.Name][]string{
	tool.CreateAgent: {
		"Want me to activate this agent?",
		"Should I create a workflow for this agent?",
	},
	tool.UploadDocument:     {"Want me to search your knowledge base?"},
	tool.ConnectIntegration: {"Want to check the integration status?"},
	tool.GetDashboardStats:  {"Want a breakdown by agent?"},
	tool.GetUsageMetrics:    {"Want a breakdown by agent?"},
}

// FollowUps suggests next prompts from what ran. The result is never nil
// and holds at most three entries.
func FollowUps(outcomes []ToolOutcome) []string {
	if len(outcomes) == 0 {
		return append([]string(nil), defaultFollowUps...)
	}

	out := make([]string, 0, maxFollowUps)
	seen := make(map[string]bool)
	succeeded := false

	for _, o := range outcomes {
		if o.Result == nil || !o.Result.Success {
			continue
		}
		succeeded = true
		for _, s := range followUpsByTool[tool.Name(o.Call.Name)] {
			if len(out) == maxFollowUps {
				return out
			}
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}

	if !succeeded {
		out = append(out, retryFollowUp)
	}
	return out
}
