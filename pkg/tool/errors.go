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
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies a failed Result.
type ErrorCode string

const (
	CodeUnknownTool ErrorCode = "UNKNOWN_TOOL"
	CodeValidation  ErrorCode = "VALIDATION_ERROR"
	CodeForbidden   ErrorCode = "FORBIDDEN"
	CodeNotFound    ErrorCode = "NOT_FOUND"
	CodeExecution   ErrorCode = "EXECUTION_ERROR"
	CodeTimeout     ErrorCode = "TIMEOUT"
)

// ErrToolNotFound is returned by Registry lookups for unknown names.
var ErrToolNotFound = errors.New("tool not found")

// Error is returned by tool bodies to report a classified failure.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound reports a missing entity. It is also what a tool returns when the
// entity exists in another workspace, so the two cases look the same.
func NotFound(entity string) *Error {
	return &Error{Code: CodeNotFound, Message: entity + " not found"}
}

// ExecutionError wraps an underlying failure such as a store error.
func ExecutionError(msg string, err error) *Error {
	return &Error{Code: CodeExecution, Message: msg, Err: err}
}

// FieldError describes one invalid argument.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError lists every invalid argument of a call.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " " + f.Reason
	}
	return "invalid arguments: " + strings.Join(parts, "; ")
}

// FieldNames returns the names of the invalid fields.
func (e *ValidationError) FieldNames() []string {
	out := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		out[i] = f.Field
	}
	return out
}
