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

package store

import (
	"context"
	"fmt"
	"strings"
)

type table struct {
	name    string
	columns string
	indexes []index
}

type index struct {
	name    string
	columns string
}

var tables = []table{
	{
		name: "workspaces",
		columns: `
    id VARCHAR(64) PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    slug VARCHAR(255) NOT NULL UNIQUE,
    subscription_tier VARCHAR(32) NOT NULL,
    created_at {{timestamp}} NOT NULL`,
	},
	{
		name: "agents",
		columns: `
    id VARCHAR(64) PRIMARY KEY,
    workspace_id VARCHAR(64) NOT NULL,
    name VARCHAR(255) NOT NULL,
    description TEXT,
    type VARCHAR(32) NOT NULL,
    status VARCHAR(32) NOT NULL,
    config_json TEXT,
    created_by VARCHAR(64) NOT NULL,
    execution_count INTEGER NOT NULL DEFAULT 0,
    last_executed_at {{timestamp}} NULL,
    created_at {{timestamp}} NOT NULL,
    updated_at {{timestamp}} NOT NULL`,
		indexes: []index{
			{"idx_agents_workspace", "workspace_id, created_at"},
			{"idx_agents_status", "workspace_id, status"},
		},
	},
	{
		name: "agent_executions",
		columns: `
    id VARCHAR(64) PRIMARY KEY,
    workspace_id VARCHAR(64) NOT NULL,
    agent_id VARCHAR(64) NOT NULL,
    triggered_by VARCHAR(64) NOT NULL,
    status VARCHAR(32) NOT NULL,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    tokens_used INTEGER NOT NULL DEFAULT 0,
    error_message TEXT,
    created_at {{timestamp}} NOT NULL,
    completed_at {{timestamp}} NULL`,
		indexes: []index{
			{"idx_executions_workspace", "workspace_id, created_at"},
			{"idx_executions_agent", "workspace_id, agent_id, created_at"},
		},
	},
	{
		name: "knowledge_items",
		columns: `
    id VARCHAR(64) PRIMARY KEY,
    workspace_id VARCHAR(64) NOT NULL,
    title VARCHAR(512) NOT NULL,
    type VARCHAR(32) NOT NULL,
    status VARCHAR(32) NOT NULL,
    source_url TEXT,
    content TEXT,
    tags_json TEXT,
    created_by VARCHAR(64) NOT NULL,
    created_at {{timestamp}} NOT NULL,
    updated_at {{timestamp}} NOT NULL`,
		indexes: []index{
			{"idx_knowledge_workspace", "workspace_id, created_at"},
		},
	},
	{
		name: "integrations",
		columns: `
    id VARCHAR(64) PRIMARY KEY,
    workspace_id VARCHAR(64) NOT NULL,
    provider VARCHAR(64) NOT NULL,
    status VARCHAR(32) NOT NULL,
    created_by VARCHAR(64) NOT NULL,
    created_at {{timestamp}} NOT NULL,
    last_sync_at {{timestamp}} NULL`,
		indexes: []index{
			{"idx_integrations_provider", "workspace_id, provider"},
		},
	},
}

// Migrate creates any missing tables and indexes. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.schemaStatements() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// schemaStatements renders the DDL for the store's dialect. Statements run
// one at a time because not every driver accepts several per Exec.
func (s *Store) schemaStatements() []string {
	ts := "TIMESTAMP"
	switch s.dialect {
	case DialectPostgres:
		ts = "TIMESTAMPTZ"
	case DialectMySQL:
		ts = "DATETIME(6)"
	}

	var stmts []string
	for _, t := range tables {
		cols := strings.ReplaceAll(t.columns, "{{timestamp}}", ts)

		// MySQL has no CREATE INDEX IF NOT EXISTS, so its indexes are
		// declared with the table.
		if s.dialect == DialectMySQL {
			for _, idx := range t.indexes {
				cols += fmt.Sprintf(",\n    INDEX %s (%s)", idx.name, idx.columns)
			}
		}
		stmts = append(stmts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s\n)", t.name, cols))

		if s.dialect != DialectMySQL {
			for _, idx := range t.indexes {
				stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)", idx.name, t.name, idx.columns))
			}
		}
	}
	return stmts
}
