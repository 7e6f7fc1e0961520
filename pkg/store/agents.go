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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const agentColumns = `id, workspace_id, name, description, type, status, config_json, created_by,
    execution_count, last_executed_at, created_at, updated_at`

// CreateAgent inserts an agent, assigning an id when empty.
func (s *Store) CreateAgent(ctx context.Context, a *Agent) error {
	if err := requireWorkspace(a.WorkspaceID); err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = AgentStatusDraft
	}
	configJSON, err := marshalJSON(a.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal agent config: %w", err)
	}
	a.CreatedAt = now()
	a.UpdatedAt = a.CreatedAt

	_, err = s.exec(ctx,
		`INSERT INTO agents (`+agentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.WorkspaceID, a.Name, a.Description, string(a.Type), string(a.Status), configJSON,
		a.CreatedBy, a.ExecutionCount, nullTime(a.LastExecutedAt), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}
	return nil
}

// GetAgent returns the agent with id in workspaceID.
func (s *Store) GetAgent(ctx context.Context, workspaceID, id string) (*Agent, error) {
	if err := requireWorkspace(workspaceID); err != nil {
		return nil, err
	}

	row := s.queryRow(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE id = ? AND workspace_id = ?`, id, workspaceID)
	a, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	return a, nil
}

// ListAgents returns agents in workspaceID, newest first.
func (s *Store) ListAgents(ctx context.Context, workspaceID string, f AgentFilter) ([]*Agent, error) {
	if err := requireWorkspace(workspaceID); err != nil {
		return nil, err
	}

	query := `SELECT ` + agentColumns + ` FROM agents WHERE workspace_id = ?`
	args := []any{workspaceID}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	query += ` ORDER BY created_at DESC, id`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	agents := []*Agent{}
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// UpdateAgent applies u to the agent with id in workspaceID and returns the
// updated row.
func (s *Store) UpdateAgent(ctx context.Context, workspaceID, id string, u AgentUpdate) (*Agent, error) {
	if err := requireWorkspace(workspaceID); err != nil {
		return nil, err
	}
	if u.IsEmpty() {
		return s.GetAgent(ctx, workspaceID, id)
	}

	var (
		sets []string
		args []any
	)
	if u.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *u.Name)
	}
	if u.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *u.Description)
	}
	if u.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*u.Status))
	}
	if u.Config != nil {
		configJSON, err := marshalJSON(u.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal agent config: %w", err)
		}
		sets = append(sets, "config_json = ?")
		args = append(args, configJSON)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, now(), id, workspaceID)

	res, err := s.exec(ctx,
		`UPDATE agents SET `+strings.Join(sets, ", ")+` WHERE id = ? AND workspace_id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update agent: %w", err)
	}
	if err := expectOne(res); err != nil {
		return nil, err
	}
	return s.GetAgent(ctx, workspaceID, id)
}

// DeleteAgent removes the agent with id in workspaceID together with its
// executions.
func (s *Store) DeleteAgent(ctx context.Context, workspaceID, id string) error {
	if err := requireWorkspace(workspaceID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM agents WHERE id = ? AND workspace_id = ?`), id, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to delete agent: %w", err)
	}
	if err := expectOne(res); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		s.rebind(`DELETE FROM agent_executions WHERE agent_id = ? AND workspace_id = ?`), id, workspaceID); err != nil {
		return fmt.Errorf("failed to delete agent executions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CountAgentsByStatus returns the number of agents per status in
// workspaceID.
func (s *Store) CountAgentsByStatus(ctx context.Context, workspaceID string) (map[AgentStatus]int, error) {
	if err := requireWorkspace(workspaceID); err != nil {
		return nil, err
	}

	rows, err := s.query(ctx,
		`SELECT status, COUNT(*) FROM agents WHERE workspace_id = ? GROUP BY status`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to count agents: %w", err)
	}
	defer rows.Close()

	counts := map[AgentStatus]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan agent count: %w", err)
		}
		counts[AgentStatus(status)] = n
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAgent(sc scanner) (*Agent, error) {
	var (
		a            Agent
		description  sql.NullString
		agentType    string
		status       string
		configJSON   sql.NullString
		lastExecuted sql.NullTime
	)
	if err := sc.Scan(&a.ID, &a.WorkspaceID, &a.Name, &description, &agentType, &status, &configJSON,
		&a.CreatedBy, &a.ExecutionCount, &lastExecuted, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Description = description.String
	a.Type = AgentType(agentType)
	a.Status = AgentStatus(status)
	a.LastExecutedAt = timePtr(lastExecuted)
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	if configJSON.Valid && configJSON.String != "" {
		if err := json.Unmarshal([]byte(configJSON.String), &a.Config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal agent config: %w", err)
		}
	}
	return &a, nil
}

func marshalJSON(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
