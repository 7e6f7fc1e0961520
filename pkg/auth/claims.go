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

package auth

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/galaxyco/copilot/pkg/permission"
)

// Claims represents the validated claims from a JWT token.
type Claims struct {
	// Subject is the unique identifier for the user (sub claim).
	Subject string `json:"sub"`

	// Email is the user's email address (if provided).
	Email string `json:"email,omitempty"`

	// WorkspaceID is the tenant the token was issued for.
	WorkspaceID string `json:"workspace_id,omitempty"`

	// Permissions are the raw permission strings from the token.
	Permissions []string `json:"permissions,omitempty"`

	// Custom contains any additional claims not mapped to struct fields.
	Custom map[string]any `json:"-"`
}

// GetClaim retrieves a custom claim by key.
func (c *Claims) GetClaim(key string) (any, bool) {
	if c.Custom == nil {
		return nil, false
	}
	val, ok := c.Custom[key]
	return val, ok
}

// Caller converts the claims into a Caller. Permission strings outside the
// known vocabulary are dropped and logged.
func (c *Claims) Caller() (Caller, error) {
	if c.Subject == "" {
		return Caller{}, fmt.Errorf("%w: sub", ErrMissingClaims)
	}
	if c.WorkspaceID == "" {
		return Caller{}, fmt.Errorf("%w: workspace", ErrMissingClaims)
	}

	perms, unknown := permission.FromStrings(c.Permissions)
	if len(unknown) > 0 {
		slog.Warn("Dropping unknown permissions from token", "subject", c.Subject, "unknown", unknown)
	}

	return Caller{
		UserID:      c.Subject,
		WorkspaceID: c.WorkspaceID,
		Permissions: perms,
	}, nil
}

// claimStrings reads a claim that may be an array of strings or a single
// space or comma separated string (OAuth "scope" style).
func claimStrings(v any) []string {
	switch val := v.(type) {
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return strings.FieldsFunc(val, func(r rune) bool { return r == ' ' || r == ',' })
	default:
		return nil
	}
}
