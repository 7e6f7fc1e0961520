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

// Package functiontool builds tools from typed Go functions.
//
// The argument struct drives everything: its JSON schema is generated from
// `json` and `jsonschema` tags, raw model arguments are decoded into it and
// then checked against its `validate` tags.
//
// Example:
//
//	type ListArgs struct {
//	    Status string `json:"status,omitempty" jsonschema:"description=Filter by status,enum=all,enum=active" validate:"omitempty,oneof=all active"`
//	    Limit  int    `json:"limit,omitempty" jsonschema:"description=Maximum results,default=50" validate:"gte=1,lte=200"`
//	}
//
//	func (a *ListArgs) SetDefaults() {
//	    if a.Limit == 0 {
//	        a.Limit = 50
//	    }
//	}
//
//	listTool, err := functiontool.New(functiontool.Config{
//	    Name:        tool.ListAgents,
//	    Description: "List agents in the workspace",
//	    Category:    tool.CategoryAgents,
//	    Permissions: []permission.Permission{permission.AgentsRead},
//	    ReadOnly:    true,
//	}, func(ctx context.Context, caller auth.Caller, args ListArgs) (*tool.Result, error) {
//	    ...
//	})
package functiontool

import (
	"context"
	"fmt"

	"github.com/galaxyco/copilot/pkg/auth"
	"github.com/galaxyco/copilot/pkg/permission"
	"github.com/galaxyco/copilot/pkg/tool"
)

// Config describes a function tool.
type Config struct {
	Name        tool.Name
	Description string
	Category    tool.Category
	Permissions []permission.Permission
	Destructive bool
	ReadOnly    bool
}

// Handler is the typed body of a tool.
type Handler[Args any] func(ctx context.Context, caller auth.Caller, args Args) (*tool.Result, error)

// Defaulter is implemented by argument structs that fill defaults after
// decoding and before validation.
type Defaulter interface {
	SetDefaults()
}

// New creates a tool from a typed handler.
func New[Args any](cfg Config, fn Handler[Args]) (tool.Tool, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, fmt.Errorf("tool %q: handler is required", cfg.Name)
	}

	schema, err := generateSchema[Args]()
	if err != nil {
		return nil, fmt.Errorf("tool %q: failed to generate schema: %w", cfg.Name, err)
	}

	return &functionTool[Args]{
		cfg:         cfg,
		permissions: permission.NewSet(cfg.Permissions...),
		schema:      schema,
		fn:          fn,
	}, nil
}

// MustNew is New for static catalogs; it panics on an invalid Config.
func MustNew[Args any](cfg Config, fn Handler[Args]) tool.Tool {
	t, err := New(cfg, fn)
	if err != nil {
		panic(err)
	}
	return t
}

type functionTool[Args any] struct {
	cfg         Config
	permissions permission.Set
	schema      map[string]any
	fn          Handler[Args]
}

var _ tool.Tool = (*functionTool[struct{}])(nil)

func (t *functionTool[Args]) Name() tool.Name {
	return t.cfg.Name
}

func (t *functionTool[Args]) Description() string {
	return t.cfg.Description
}

func (t *functionTool[Args]) Category() tool.Category {
	return t.cfg.Category
}

func (t *functionTool[Args]) RequiredPermissions() permission.Set {
	return t.permissions
}

func (t *functionTool[Args]) IsDestructive() bool {
	return t.cfg.Destructive
}

func (t *functionTool[Args]) IsReadOnly() bool {
	return t.cfg.ReadOnly
}

func (t *functionTool[Args]) Schema() map[string]any {
	return t.schema
}

// Bind decodes and validates raw arguments.
func (t *functionTool[Args]) Bind(raw map[string]any) (tool.Invocation, error) {
	args, err := decodeArgs[Args](raw)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, caller auth.Caller) (*tool.Result, error) {
		return t.fn(ctx, caller, args)
	}, nil
}

func validateConfig(cfg Config) error {
	if _, ok := tool.ParseName(string(cfg.Name)); !ok {
		return fmt.Errorf("tool name %q is not in the catalog", cfg.Name)
	}
	if cfg.Description == "" {
		return fmt.Errorf("tool %q: description is required", cfg.Name)
	}
	if cfg.Category == "" {
		return fmt.Errorf("tool %q: category is required", cfg.Name)
	}
	for _, p := range cfg.Permissions {
		if !p.Valid() {
			return fmt.Errorf("tool %q: unknown permission %q", cfg.Name, p)
		}
	}
	if cfg.Destructive && cfg.ReadOnly {
		return fmt.Errorf("tool %q: cannot be both destructive and read-only", cfg.Name)
	}
	return nil
}
