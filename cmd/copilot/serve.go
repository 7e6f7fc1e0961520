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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/galaxyco/copilot/pkg/config"
	"github.com/galaxyco/copilot/pkg/runtime"
)

// ServeCmd starts the HTTP API.
type ServeCmd struct {
	Host  string `help:"Host to bind to (overrides server.host)."`
	Port  int    `help:"Port to listen on (overrides server.port)."`
	Watch bool   `help:"Reload the assistant and model settings when the config changes."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rt *runtime.Runtime
	onChange := func(next *config.Config) {
		c.override(next)
		if err := rt.Reload(next); err != nil {
			slog.Error("Failed to apply reloaded config", "error", err)
		}
	}

	cfg, loader, err := loadConfig(ctx, cli, config.WithOnChange(onChange))
	if err != nil {
		return err
	}
	if loader != nil {
		defer loader.Close()
	}
	c.override(cfg)

	rt, err = runtime.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create runtime: %w", err)
	}
	defer rt.Close()

	srv, err := rt.Server(ctx)
	if err != nil {
		return err
	}

	if c.Watch {
		if loader == nil {
			slog.Warn("--watch needs --config, hot reload disabled")
		} else {
			go func() {
				if err := loader.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
					slog.Error("Config watch stopped", "error", err)
				}
			}()
		}
	}

	fmt.Printf("\nCopilot ready at http://%s\n", srv.Address())
	fmt.Printf("   Messages: POST /api/assistant/messages\n")
	fmt.Printf("   Tools:    GET  /api/assistant/tools\n")
	fmt.Printf("   Health:   GET  /health\n")
	if cfg.Observability.Metrics.Enabled {
		fmt.Printf("   Metrics:  GET  %s\n", cfg.Observability.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	return srv.Start(ctx)
}

func (c *ServeCmd) override(cfg *config.Config) {
	if c.Host != "" {
		cfg.Server.Host = c.Host
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
}
