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

package tool

import (
	"encoding/json"
	"fmt"
)

// ActionType is the kind of UI directive attached to a result.
type ActionType string

const (
	ActionNavigate ActionType = "navigate"
	ActionCreate   ActionType = "create"
	ActionUpdate   ActionType = "update"
	ActionDelete   ActionType = "delete"
)

// Action is a small hint for the calling UI, such as "navigate to X".
type Action struct {
	Type   ActionType `json:"type"`
	Target string     `json:"target"`
	Label  string     `json:"label"`
}

// Result is the uniform envelope returned for every tool call.
// A Result is not modified once returned.
type Result struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Message string    `json:"message"`
	Action  *Action   `json:"action,omitempty"`
	Error   string    `json:"error,omitempty"`
	Code    ErrorCode `json:"code,omitempty"`
}

// Succeed returns a successful result without an action.
func Succeed(message string, data any) *Result {
	return &Result{Success: true, Data: data, Message: message}
}

// SucceedWithAction returns a successful result carrying a UI action.
func SucceedWithAction(message string, data any, action Action) *Result {
	return &Result{Success: true, Data: data, Message: message, Action: &action}
}

// Fail returns a failed result.
func Fail(name string, code ErrorCode, errMsg string) *Result {
	return &Result{
		Success: false,
		Message: fmt.Sprintf("Failed to execute %s: %s", name, errMsg),
		Error:   errMsg,
		Code:    code,
	}
}

// JSON renders the result for the model. Marshal failures degrade to a
// minimal object so a tool result is always delivered.
func (r *Result) JSON() string {
	data, err := json.Marshal(r)
	if err != nil {
		fallback, _ := json.Marshal(map[string]any{
			"success": r.Success,
			"message": r.Message,
			"error":   r.Error,
		})
		return string(fallback)
	}
	return string(data)
}
