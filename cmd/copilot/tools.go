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


package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/galaxyco/copilot/pkg/permission"
	"github.com/galaxyco/copilot/pkg/rag"
	"github.com/galaxyco/copilot/pkg/store"
	"github.com/galaxyco/copilot/pkg/tool"
	"github.com/galaxyco/copilot/pkg/tool/catalog"
)

// ToolsCmd lists the tool catalog.
type ToolsCmd struct {
	Permissions []string `help:"Only show tools runnable with these permissions." sep:","`
	JSON        bool     `help:"Print tool definitions as JSON."`
}

type toolEntry struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    tool.Category  `json:"category"`
	Permissions []string       `json:"permissions"`
	Destructive bool           `json:"destructive"`
	ReadOnly    bool           `json:"readOnly"`
	Parameters  map[string]any `json:"parameters"`
}

func (c *ToolsCmd) Run(_ *CLI) error {
	return c.run(context.Background(), os.Stdout)
}

func (c *ToolsCmd) run(ctx context.Context, w io.Writer) error {
	tools, err := c.list(ctx)
	if err != nil {
		return err
	}

	if c.JSON {
		entries := make([]toolEntry, 0, len(tools))
		for _, t := range tools {
			entries = append(entries, toolEntry{
				Name:        string(t.Name()),
				Description: t.Description(),
				Category:    t.Category(),
				Permissions: t.RequiredPermissions().Strings(),
				Destructive: t.IsDestructive(),
				ReadOnly:    t.IsReadOnly(),
				Parameters:  t.Schema(),
			})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCATEGORY\tPERMISSIONS\tFLAGS")
	for _, t := range tools {
		var flags []string
		if t.IsReadOnly() {
			flags = append(flags, "read-only")
		}
		if t.IsDestructive() {
			flags = append(flags, "destructive")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Name(), t.Category(),
			strings.Join(t.RequiredPermissions().Strings(), ","), strings.Join(flags, ","))
	}
	return tw.Flush()
}

// list builds the catalog against a throwaway in-memory store. Only tool
// metadata is read.
func (c *ToolsCmd) list(ctx context.Context) ([]tool.Tool, error) {
	s, err := store.Open(ctx, store.Config{Driver: "sqlite", Database: ":memory:"})
	if err != nil {
		return nil, err
	}
	defer s.Close()

	idx, err := rag.NewIndex(rag.IndexConfig{}, rag.NewHashEmbedder(32))
	if err != nil {
		return nil, err
	}
	reg, err := catalog.NewRegistry(s, idx)
	if err != nil {
		return nil, err
	}

	if c.Permissions == nil {
		return reg.All(), nil
	}
	held, err := permission.ParseSet(c.Permissions)
	if err != nil {
		return nil, err
	}
	return reg.ForPermissions(held), nil
}
