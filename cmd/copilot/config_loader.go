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

	"github.com/galaxyco/copilot/pkg/config"
	"github.com/galaxyco/copilot/pkg/config/provider"
)

// loadConfig loads the configuration named by the global flags. Without
// --config the defaults are used and the returned loader is nil.
func loadConfig(ctx context.Context, cli *CLI, opts ...config.LoaderOption) (*config.Config, *config.Loader, error) {
	if cli.Config == "" {
		cfg := config.Default()
		if err := cfg.Validate(); err != nil {
			return nil, nil, fmt.Errorf("invalid default config: %w", err)
		}
		slog.Info("No config file given, using defaults")
		return cfg, nil, applyLogger(cli, cfg)
	}

	typ, err := provider.ParseType(cli.ConfigProvider)
	if err != nil {
		return nil, nil, err
	}

	cfg, loader, err := config.LoadConfig(ctx, provider.ProviderConfig{
		Type:      typ,
		Path:      cli.Config,
		Endpoints: cli.ConfigEndpoints,
	}, opts...)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("Loaded configuration", "source", typ, "path", cli.Config)
	if err := applyLogger(cli, cfg); err != nil {
		_ = loader.Close()
		return nil, nil, err
	}
	return cfg, loader, nil
}

func applyLogger(cli *CLI, cfg *config.Config) error {
	_, err := initLogger(cli, &cfg.Logger)
	return err
}
