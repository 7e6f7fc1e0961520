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
	"io"
	"os"
)

// ValidateCmd loads the configuration and reports whether it is valid.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	return c.run(context.Background(), cli, os.Stdout)
}

func (c *ValidateCmd) run(ctx context.Context, cli *CLI, w io.Writer) error {
	cfg, loader, err := loadConfig(ctx, cli)
	if err != nil {
		return err
	}
	if loader != nil {
		defer loader.Close()
	}

	fmt.Fprintln(w, "Configuration is valid")
	fmt.Fprintf(w, "  server:    %s\n", cfg.Server.Address())
	fmt.Fprintf(w, "  database:  %s (%s)\n", cfg.Database.Driver, cfg.Database.Database)
	fmt.Fprintf(w, "  llm:       %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	fmt.Fprintf(w, "  embedder:  %s\n", cfg.Embedder.Provider)
	fmt.Fprintf(w, "  assistant: %s\n", cfg.Assistant.Brand)
	fmt.Fprintf(w, "  auth:      %s\n", authMode(cfg.Auth.Enabled))
	return nil
}

func authMode(enabled bool) string {
	if enabled {
		return "jwt"
	}
	return "development caller"
}
