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
	"fmt"
	"log/slog"

	"github.com/galaxyco/copilot/pkg/store"
)

// MigrateCmd creates the database schema and optionally seeds a workspace.
type MigrateCmd struct {
	SeedWorkspace string `help:"Create a workspace with this name after migrating."`
	WorkspaceID   string `help:"Id for the seeded workspace (generated when empty)."`
}

func (c *MigrateCmd) Run(cli *CLI) error {
	ctx := context.Background()

	cfg, loader, err := loadConfig(ctx, cli)
	if err != nil {
		return err
	}
	if loader != nil {
		defer loader.Close()
	}

	s, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Migrate(ctx); err != nil {
		return err
	}
	slog.Info("Database migrated", "driver", cfg.Database.Driver, "database", cfg.Database.Database)

	if c.SeedWorkspace == "" {
		return nil
	}
	w := &store.Workspace{ID: c.WorkspaceID, Name: c.SeedWorkspace}
	if err := s.CreateWorkspace(ctx, w); err != nil {
		return err
	}
	fmt.Printf("Created workspace %q (%s)\n", w.Name, w.ID)
	return nil
}
