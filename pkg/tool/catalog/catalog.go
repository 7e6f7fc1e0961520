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

// Package catalog assembles the complete, sealed tool registry.
package catalog

import (
	"fmt"

	"github.com/galaxyco/copilot/pkg/store"
	"github.com/galaxyco/copilot/pkg/tool"
	"github.com/galaxyco/copilot/pkg/tool/agenttool"
	"github.com/galaxyco/copilot/pkg/tool/analyticstool"
	"github.com/galaxyco/copilot/pkg/tool/integrationtool"
	"github.com/galaxyco/copilot/pkg/tool/knowledgetool"
)

// Backend is everything the catalog tools read and write.
type Backend interface {
	agenttool.Store
	analyticstool.Store
	knowledgetool.Store
	integrationtool.Store
}

var _ Backend = (*store.Store)(nil)

// Tools returns every tool in the catalog.
func Tools(b Backend, idx knowledgetool.Index) []tool.Tool {
	var tools []tool.Tool
	tools = append(tools, agenttool.Tools(b)...)
	tools = append(tools, analyticstool.Tools(b)...)
	tools = append(tools, knowledgetool.Tools(b, idx)...)
	tools = append(tools, integrationtool.Tools(b)...)
	return tools
}

// NewRegistry builds the sealed registry holding the full catalog and checks
// that every known tool name is served.
func NewRegistry(b Backend, idx knowledgetool.Index) (*tool.Registry, error) {
	if b == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if idx == nil {
		return nil, fmt.Errorf("knowledge index is required")
	}

	reg, err := tool.NewRegistry(Tools(b, idx)...)
	if err != nil {
		return nil, err
	}
	for _, name := range tool.Names() {
		if _, err := reg.Get(name); err != nil {
			return nil, fmt.Errorf("catalog is missing %s", name)
		}
	}
	return reg, nil
}
