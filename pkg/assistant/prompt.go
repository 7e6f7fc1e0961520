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

package assistant

import (
	"strings"
)

const noContext = "No specific context available"

// SystemPrompt builds the system instruction for brand with the retrieved
// knowledge summary.
func SystemPrompt(brand, knowledge string) string {
	knowledge = strings.TrimSpace(knowledge)
	if knowledge == "" {
		knowledge = noContext
	}

	var b strings.Builder
	b.WriteString("You are the " + brand + " Assistant, an AI that can operate the platform on the user's behalf.\n\n")

	b.WriteString(`CAPABILITIES:
- Create, update, list and delete AI agents
- Report on agent performance, dashboard statistics and usage
- Upload, search, list and delete knowledge base documents
- Connect, inspect and disconnect integrations (Gmail, Slack, HubSpot, Pipedrive, Microsoft)

PERSONALITY:
- Helpful and proactive
- Clear and concise
- Explain actions in simple terms

RULES:
1. Use tools to actually do things instead of only explaining them
2. Ask for clarification if a request is ambiguous
3. Confirm destructive actions (deleting agents or documents, disconnecting integrations) before executing them
4. Only act within the current workspace
5. Be conversational but professional

`)

	b.WriteString("PLATFORM KNOWLEDGE:\n")
	b.WriteString(knowledge)
	b.WriteString("\n\n")

	b.WriteString(`When the user asks you to do something:
1. Determine which tool(s) to use
2. Extract the parameters from their message
3. Execute the tool(s)
4. Explain what you did in friendly language
5. Suggest related next steps`)

	return b.String()
}
