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

	"github.com/google/uuid"
)

const knowledgeColumns = `id, workspace_id, title, type, status, source_url, content, tags_json,
    created_by, created_at, updated_at`

// CreateKnowledgeItem inserts a knowledge item, assigning an id when empty.
func (s *Store) CreateKnowledgeItem(ctx context.Context, k *KnowledgeItem) error {
	if err := requireWorkspace(k.WorkspaceID); err != nil {
		return err
	}
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	if k.Type == "" {
		k.Type = KnowledgeText
	}
	if k.Status == "" {
		k.Status = KnowledgeReady
	}
	tagsJSON, err := marshalJSON(k.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	k.CreatedAt = now()
	k.UpdatedAt = k.CreatedAt

	_, err = s.exec(ctx,
		`INSERT INTO knowledge_items (`+knowledgeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		k.ID, k.WorkspaceID, k.Title, string(k.Type), string(k.Status), k.SourceURL, k.Content, tagsJSON,
		k.CreatedBy, k.CreatedAt, k.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create knowledge item: %w", err)
	}
	return nil
}

// GetKnowledgeItem returns the item with id in workspaceID.
func (s *Store) GetKnowledgeItem(ctx context.Context, workspaceID, id string) (*KnowledgeItem, error) {
	if err := requireWorkspace(workspaceID); err != nil {
		return nil, err
	}

	row := s.queryRow(ctx,
		`SELECT `+knowledgeColumns+` FROM knowledge_items WHERE id = ? AND workspace_id = ?`, id, workspaceID)
	k, err := scanKnowledgeItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get knowledge item: %w", err)
	}
	return k, nil
}

// ListKnowledgeItems returns items in workspaceID, newest first.
func (s *Store) ListKnowledgeItems(ctx context.Context, workspaceID string, f KnowledgeFilter) ([]*KnowledgeItem, error) {
	if err := requireWorkspace(workspaceID); err != nil {
		return nil, err
	}

	query := `SELECT ` + knowledgeColumns + ` FROM knowledge_items WHERE workspace_id = ?`
	args := []any{workspaceID}
	if f.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(f.Type))
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if f.Search != "" {
		pattern := likePattern(f.Search)
		query += ` AND (LOWER(title) LIKE ? OR LOWER(content) LIKE ?)`
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY created_at DESC, id`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge items: %w", err)
	}
	defer rows.Close()

	items := []*KnowledgeItem{}
	for rows.Next() {
		k, err := scanKnowledgeItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan knowledge item: %w", err)
		}
		items = append(items, k)
	}
	return items, rows.Err()
}

// DeleteKnowledgeItem removes the item with id in workspaceID.
func (s *Store) DeleteKnowledgeItem(ctx context.Context, workspaceID, id string) error {
	if err := requireWorkspace(workspaceID); err != nil {
		return err
	}

	res, err := s.exec(ctx, `DELETE FROM knowledge_items WHERE id = ? AND workspace_id = ?`, id, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to delete knowledge item: %w", err)
	}
	return expectOne(res)
}

func scanKnowledgeItem(sc scanner) (*KnowledgeItem, error) {
	var (
		k         KnowledgeItem
		kind      string
		status    string
		sourceURL sql.NullString
		content   sql.NullString
		tagsJSON  sql.NullString
	)
	if err := sc.Scan(&k.ID, &k.WorkspaceID, &k.Title, &kind, &status, &sourceURL, &content, &tagsJSON,
		&k.CreatedBy, &k.CreatedAt, &k.UpdatedAt); err != nil {
		return nil, err
	}
	k.Type = KnowledgeType(kind)
	k.Status = KnowledgeStatus(status)
	k.SourceURL = sourceURL.String
	k.Content = content.String
	k.CreatedAt = k.CreatedAt.UTC()
	k.UpdatedAt = k.UpdatedAt.UTC()
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &k.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	return &k, nil
}
