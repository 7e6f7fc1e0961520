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
	"fmt"

	"github.com/galaxyco/copilot/pkg/permission"
	"github.com/galaxyco/copilot/pkg/registry"
)

// Registry is the closed tool catalog. It is built once from a fixed list of
// tools and sealed; there is no runtime registration.
type Registry struct {
	tools *registry.BaseRegistry[Tool]
}

// NewRegistry registers tools and seals the registry. It fails on unknown
// names, duplicates, or tools requiring permissions outside the vocabulary.
func NewRegistry(tools ...Tool) (*Registry, error) {
	base := registry.NewBaseRegistry[Tool]()
	for _, t := range tools {
		if t == nil {
			return nil, fmt.Errorf("nil tool")
		}
		if _, ok := ParseName(string(t.Name())); !ok {
			return nil, fmt.Errorf("tool %q is not in the catalog", t.Name())
		}
		for p := range t.RequiredPermissions() {
			if !p.Valid() {
				return nil, fmt.Errorf("tool %q requires unknown permission %q", t.Name(), p)
			}
		}
		if err := base.Register(string(t.Name()), t); err != nil {
			return nil, fmt.Errorf("failed to register tool: %w", err)
		}
	}
	base.Seal()
	return &Registry{tools: base}, nil
}

// Get returns the tool with the given name or ErrToolNotFound.
func (r *Registry) Get(name Name) (Tool, error) {
	t, ok := r.tools.Get(string(name))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return t, nil
}

// Lookup resolves an unvalidated name, such as one emitted by a model.
func (r *Registry) Lookup(raw string) (Tool, error) {
	name, ok := ParseName(raw)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, raw)
	}
	return r.Get(name)
}

// All returns every registered tool ordered by name.
func (r *Registry) All() []Tool {
	return r.tools.List()
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return r.tools.Count()
}

// ListForModel exports the definitions attached to a model request.
func (r *Registry) ListForModel() []Definition {
	tools := r.tools.List()
	defs := make([]Definition, len(tools))
	for i, t := range tools {
		defs[i] = DefinitionOf(t)
	}
	return defs
}

// ForPermissions returns the tools a holder of held may run.
func (r *Registry) ForPermissions(held permission.Set) []Tool {
	var out []Tool
	for _, t := range r.tools.List() {
		if permission.Check(t.RequiredPermissions(), held).Allowed {
			out = append(out, t)
		}
	}
	return out
}

// DefinitionsFor is ListForModel restricted to tools the holder may run.
func (r *Registry) DefinitionsFor(held permission.Set) []Definition {
	tools := r.ForPermissions(held)
	defs := make([]Definition, len(tools))
	for i, t := range tools {
		defs[i] = DefinitionOf(t)
	}
	return defs
}
