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

// CreateWorkspace inserts a workspace, assigning an id when empty.
func (s *Store) CreateWorkspace(ctx context.Context, w *Workspace) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.Slug == "" {
		w.Slug = w.ID
	}
	if w.SubscriptionTier == "" {
		w.SubscriptionTier = "free"
	}
	w.CreatedAt = now()

	_, err := s.exec(ctx,
		`INSERT INTO workspaces (id, name, slug, subscription_tier, created_at) VALUES (?, ?, ?, ?, ?)`,
		w.ID, w.Name, w.Slug, w.SubscriptionTier, w.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}
	return nil
}

// GetWorkspace returns a workspace by id.
func (s *Store) GetWorkspace(ctx context.Context, id string) (*Workspace, error) {
	if err := requireWorkspace(id); err != nil {
		return nil, err
	}

	var w Workspace
	err := s.queryRow(ctx,
		`SELECT id, name, slug, subscription_tier, created_at FROM workspaces WHERE id = ?`, id).
		Scan(&w.ID, &w.Name, &w.Slug, &w.SubscriptionTier, &w.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	w.CreatedAt = w.CreatedAt.UTC()
	return &w, nil
}
