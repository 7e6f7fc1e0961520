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
	"fmt"
	"time"

	"github.com/google/uuid"
)

const executionColumns = `id, workspace_id, agent_id, triggered_by, status, duration_ms, tokens_used,
    error_message, created_at, completed_at`

// RecordExecution stores an agent run and bumps the agent's execution
// counter. The agent must belong to the execution's workspace.
func (s *Store) RecordExecution(ctx context.Context, e *Execution) error {
	if err := requireWorkspace(e.WorkspaceID); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Status == "" {
		e.Status = ExecutionPending
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now()
	}
	e.CreatedAt = e.CreatedAt.UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.rebind(
		`UPDATE agents SET execution_count = execution_count + 1, last_executed_at = ?
         WHERE id = ? AND workspace_id = ?`),
		e.CreatedAt, e.AgentID, e.WorkspaceID)
	if err != nil {
		return fmt.Errorf("failed to update agent counters: %w", err)
	}
	if err := expectOne(res); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, s.rebind(
		`INSERT INTO agent_executions (`+executionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.WorkspaceID, e.AgentID, e.TriggeredBy, string(e.Status), e.DurationMs, e.TokensUsed,
		e.Error, e.CreatedAt, nullTime(e.CompletedAt)); err != nil {
		return fmt.Errorf("failed to record execution: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListExecutions returns executions in workspaceID, newest first.
func (s *Store) ListExecutions(ctx context.Context, workspaceID string, f ExecutionFilter) ([]*Execution, error) {
	if err := requireWorkspace(workspaceID); err != nil {
		return nil, err
	}

	query, args := executionWhere(`SELECT `+executionColumns+` FROM agent_executions`, workspaceID, f)
	query += ` ORDER BY created_at DESC, id`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	defer rows.Close()

	execs := []*Execution{}
	for rows.Next() {
		var (
			e         Execution
			status    string
			errMsg    sql.NullString
			completed sql.NullTime
		)
		if err := rows.Scan(&e.ID, &e.WorkspaceID, &e.AgentID, &e.TriggeredBy, &status, &e.DurationMs,
			&e.TokensUsed, &errMsg, &e.CreatedAt, &completed); err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}
		e.Status = ExecutionStatus(status)
		e.Error = errMsg.String
		e.CreatedAt = e.CreatedAt.UTC()
		e.CompletedAt = timePtr(completed)
		execs = append(execs, &e)
	}
	return execs, rows.Err()
}

// CountExecutionsByStatus returns the number of executions per status in
// workspaceID matching f. Limit is ignored.
func (s *Store) CountExecutionsByStatus(ctx context.Context, workspaceID string, f ExecutionFilter) (map[ExecutionStatus]int, error) {
	if err := requireWorkspace(workspaceID); err != nil {
		return nil, err
	}

	query, args := executionWhere(`SELECT status, COUNT(*) FROM agent_executions`, workspaceID, f)
	query += ` GROUP BY status`

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count executions: %w", err)
	}
	defer rows.Close()

	counts := map[ExecutionStatus]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan execution count: %w", err)
		}
		counts[ExecutionStatus(status)] = n
	}
	return counts, rows.Err()
}

// UsageTotals aggregates execution usage in a workspace.
type UsageTotals struct {
	Executions int `json:"executions"`
	TokensUsed int `json:"tokensUsed"`
	DurationMs int `json:"durationMs"`
}

// SumUsage totals executions, tokens and duration in workspaceID matching f.
func (s *Store) SumUsage(ctx context.Context, workspaceID string, f ExecutionFilter) (UsageTotals, error) {
	var u UsageTotals
	if err := requireWorkspace(workspaceID); err != nil {
		return u, err
	}

	query, args := executionWhere(
		`SELECT COUNT(*), COALESCE(SUM(tokens_used), 0), COALESCE(SUM(duration_ms), 0) FROM agent_executions`,
		workspaceID, f)
	if err := s.queryRow(ctx, query, args...).Scan(&u.Executions, &u.TokensUsed, &u.DurationMs); err != nil {
		return u, fmt.Errorf("failed to sum usage: %w", err)
	}
	return u, nil
}

// RangeStart returns the start of a named reporting window ending at now:
// "day" or "today", "week", "month". Anything else, including "all",
// returns the zero time.
func RangeStart(window string, now time.Time) time.Time {
	switch window {
	case "day", "today":
		return now.AddDate(0, 0, -1)
	case "week":
		return now.AddDate(0, 0, -7)
	case "month":
		return now.AddDate(0, -1, 0)
	default:
		return time.Time{}
	}
}

func executionWhere(base, workspaceID string, f ExecutionFilter) (string, []any) {
	query := base + ` WHERE workspace_id = ?`
	args := []any{workspaceID}
	if f.AgentID != "" {
		query += ` AND agent_id = ?`
		args = append(args, f.AgentID)
	}
	if !f.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, f.Since.UTC())
	}
	return query, args
}
