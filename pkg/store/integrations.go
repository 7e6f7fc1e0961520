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
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const integrationColumns = `id, workspace_id, provider, status, created_by, created_at, last_sync_at`

// CreateIntegration inserts an integration, assigning an id when empty.
func (s *Store) CreateIntegration(ctx context.Context, in *Integration) error {
	if err := requireWorkspace(in.WorkspaceID); err != nil {
		return err
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.Status == "" {
		in.Status = IntegrationActive
	}
	in.CreatedAt = now()

	_, err := s.exec(ctx,
		`INSERT INTO integrations (`+integrationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.WorkspaceID, in.Provider, string(in.Status), in.CreatedBy, in.CreatedAt, nullTime(in.LastSyncAt))
	if err != nil {
		return fmt.Errorf("failed to create integration: %w", err)
	}
	return nil
}

// GetIntegration returns the integration with id in workspaceID.
func (s *Store) GetIntegration(ctx context.Context, workspaceID, id string) (*Integration, error) {
	return s.findIntegration(ctx, workspaceID, `id = ?`, id)
}

// FindIntegrationByProvider returns the most recent integration for
// provider in workspaceID.
func (s *Store) FindIntegrationByProvider(ctx context.Context, workspaceID, provider string) (*Integration, error) {
	return s.findIntegration(ctx, workspaceID, `provider = ?`, provider)
}

func (s *Store) findIntegration(ctx context.Context, workspaceID, cond string, arg any) (*Integration, error) {
	if err := requireWorkspace(workspaceID); err != nil {
		return nil, err
	}

	row := s.queryRow(ctx,
		`SELECT `+integrationColumns+` FROM integrations WHERE `+cond+` AND workspace_id = ?
         ORDER BY created_at DESC LIMIT 1`, arg, workspaceID)
	in, err := scanIntegration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get integration: %w", err)
	}
	return in, nil
}

// ListIntegrations returns integrations in workspaceID, newest first. A zero
// status lists every status.
func (s *Store) ListIntegrations(ctx context.Context, workspaceID string, status IntegrationStatus) ([]*Integration, error) {
	if err := requireWorkspace(workspaceID); err != nil {
		return nil, err
	}

	query := `SELECT ` + integrationColumns + ` FROM integrations WHERE workspace_id = ?`
	args := []any{workspaceID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}
	defer rows.Close()

	out := []*Integration{}
	for rows.Next() {
		in, err := scanIntegration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan integration: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// DeleteIntegration removes the integration with id in workspaceID.
func (s *Store) DeleteIntegration(ctx context.Context, workspaceID, id string) error {
	if err := requireWorkspace(workspaceID); err != nil {
		return err
	}

	res, err := s.exec(ctx, `DELETE FROM integrations WHERE id = ? AND workspace_id = ?`, id, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to delete integration: %w", err)
	}
	return expectOne(res)
}

func scanIntegration(sc scanner) (*Integration, error) {
	var (
		in       Integration
		status   string
		lastSync sql.NullTime
	)
	if err := sc.Scan(&in.ID, &in.WorkspaceID, &in.Provider, &status, &in.CreatedBy, &in.CreatedAt, &lastSync); err != nil {
		return nil, err
	}
	in.Status = IntegrationStatus(status)
	in.CreatedAt = in.CreatedAt.UTC()
	in.LastSyncAt = timePtr(lastSync)
	return &in, nil
}
