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

// Package auth turns authenticated requests into a Caller.
//
// A Caller identifies who is making a request: the user, the workspace
// (tenant) they act in and the permissions they hold. It is built once per
// request, never persisted, and passed by value so no two requests share one.
//
// # Usage
//
//	server:
//	  auth:
//	    enabled: true
//	    jwks_url: "https://auth.example.com/.well-known/jwks.json"
//	    issuer: "https://auth.example.com"
//	    audience: "copilot-api"
//
// The JWT middleware validates the bearer token and stores both the Claims
// and the derived Caller in the request context.
package auth

import (
	"context"

	"github.com/galaxyco/copilot/pkg/permission"
)

// Caller is the per-request identity handed to the assistant and every tool.
type Caller struct {
	UserID      string
	WorkspaceID string
	Permissions permission.Set
}

// NewCaller builds a Caller from already-parsed permissions.
func NewCaller(userID, workspaceID string, perms ...permission.Permission) Caller {
	return Caller{
		UserID:      userID,
		WorkspaceID: workspaceID,
		Permissions: permission.NewSet(perms...),
	}
}

// Validate checks the fields every tenant-scoped operation relies on.
func (c Caller) Validate() error {
	if c.WorkspaceID == "" {
		return ErrMissingWorkspace
	}
	if c.UserID == "" {
		return ErrMissingUser
	}
	return nil
}

// Can reports whether the caller holds p.
func (c Caller) Can(p permission.Permission) bool {
	return c.Permissions.Has(p)
}

type contextKey string

const (
	claimsContextKey contextKey = "copilot_auth_claims"
	callerContextKey contextKey = "copilot_auth_caller"
)

// ContextWithCaller returns a child context carrying caller.
func ContextWithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerContextKey, caller)
}

// CallerFromContext returns the caller stored by the middleware.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerContextKey).(Caller)
	return caller, ok
}

// ContextWithClaims returns a child context carrying claims.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext returns the validated claims, or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	if claims, ok := ctx.Value(claimsContextKey).(*Claims); ok {
		return claims
	}
	return nil
}
