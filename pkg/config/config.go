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


// Package config loads the copilot configuration.
//
// A config file is optional: every section has defaults, so an empty
// document yields a runnable single-node setup backed by SQLite, the
// offline hash embedder and permission-free development auth.
//
// Example:
//
//	server:
//	  port: 8080
//	database:
//	  driver: postgres
//	  host: ${DB_HOST:-localhost}
//	  database: copilot
//	llm:
//	  provider: openai
//	  model: gpt-4o
//	  api_key: ${OPENAI_API_KEY}
//	assistant:
//	  brand: GalaxyCo.ai
//	  max_tool_rounds: 3
package config

import (
	"fmt"

	"github.com/galaxyco/copilot/pkg/assistant"
	"github.com/galaxyco/copilot/pkg/observability"
	"github.com/galaxyco/copilot/pkg/rag"
	"github.com/galaxyco/copilot/pkg/store"
)

// Config is the root configuration.
type Config struct {
	Server        ServerConfig         `yaml:"server,omitempty"`
	Database      store.Config         `yaml:"database,omitempty"`
	LLM           LLMConfig            `yaml:"llm,omitempty"`
	Embedder      rag.EmbedderConfig   `yaml:"embedder,omitempty"`
	RAG           rag.IndexConfig      `yaml:"rag,omitempty"`
	Assistant     assistant.Config     `yaml:"assistant,omitempty"`
	Auth          AuthConfig           `yaml:"auth,omitempty"`
	Logger        LoggerConfig         `yaml:"logger,omitempty"`
	Observability observability.Config `yaml:"observability,omitempty"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults applies default values to every section.
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.Database.SetDefaults()
	c.LLM.SetDefaults()
	c.Embedder.SetDefaults()
	c.RAG.SetDefaults()
	c.Assistant.SetDefaults()
	c.Auth.SetDefaults()
	c.Logger.SetDefaults()
	c.Observability.SetDefaults()
}

// Validate checks every section, prefixing errors with the section name.
func (c *Config) Validate() error {
	sections := []struct {
		name     string
		validate func() error
	}{
		{"server", c.Server.Validate},
		{"database", c.Database.Validate},
		{"llm", c.LLM.Validate},
		{"embedder", c.Embedder.Validate},
		{"rag", c.RAG.Validate},
		{"assistant", c.Assistant.Validate},
		{"auth", c.Auth.Validate},
		{"logger", c.Logger.Validate},
		{"observability", c.Observability.Validate},
	}
	for _, s := range sections {
		if err := s.validate(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}
