// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rag

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/philippgille/chromem-go"
)

const (
	metaTitle     = "title"
	metaWorkspace = "workspace_id"
)

// IndexConfig configures the chromem-backed index.
type IndexConfig struct {
	// PersistPath stores the database as gob files under this directory.
	// Empty keeps everything in memory.
	PersistPath string `yaml:"persist_path,omitempty"`

	// Compress gzips persisted files.
	Compress bool `yaml:"compress,omitempty"`

	// MinScore drops retrieval hits below this similarity.
	// Default: 0.6
	MinScore float32 `yaml:"min_score,omitempty"`
}

// SetDefaults applies default values.
func (c *IndexConfig) SetDefaults() {
	if c.MinScore == 0 {
		c.MinScore = 0.6
	}
}

// Validate checks the configuration.
func (c *IndexConfig) Validate() error {
	if c.MinScore < 0 || c.MinScore > 1 {
		return fmt.Errorf("min_score must be between 0 and 1, got %v", c.MinScore)
	}
	return nil
}

// Index stores documents in one chromem collection per workspace.
type Index struct {
	db       *chromem.DB
	embed    chromem.EmbeddingFunc
	minScore float32

	mu          sync.RWMutex
	collections map[string]*chromem.Collection
}

var _ Retriever = (*Index)(nil)

// NewIndex opens the index. embed computes document and query vectors.
func NewIndex(cfg IndexConfig, embed chromem.EmbeddingFunc) (*Index, error) {
	if embed == nil {
		return nil, fmt.Errorf("embedding function is required")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var db *chromem.DB
	if cfg.PersistPath != "" {
		if err := os.MkdirAll(cfg.PersistPath, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create persist directory: %w", err)
		}
		var err error
		db, err = chromem.NewPersistentDB(filepath.Clean(cfg.PersistPath), cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector database: %w", err)
		}
		slog.Info("Opened vector database", "path", cfg.PersistPath)
	} else {
		db = chromem.NewDB()
		slog.Debug("Created in-memory vector database")
	}

	return &Index{
		db:          db,
		embed:       embed,
		minScore:    cfg.MinScore,
		collections: make(map[string]*chromem.Collection),
	}, nil
}

// collectionName maps a workspace id to its collection.
func collectionName(workspaceID string) string {
	return "ws_" + workspaceID
}

func (x *Index) collection(workspaceID string, create bool) (*chromem.Collection, error) {
	if strings.TrimSpace(workspaceID) == "" {
		return nil, fmt.Errorf("workspace id is required")
	}
	name := collectionName(workspaceID)

	x.mu.RLock()
	col, ok := x.collections[name]
	x.mu.RUnlock()
	if ok {
		return col, nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if col, ok := x.collections[name]; ok {
		return col, nil
	}

	if !create {
		col = x.db.GetCollection(name, x.embed)
		if col == nil {
			return nil, nil
		}
	} else {
		var err error
		col, err = x.db.GetOrCreateCollection(name, map[string]string{metaWorkspace: workspaceID}, x.embed)
		if err != nil {
			return nil, fmt.Errorf("failed to get collection %q: %w", name, err)
		}
	}
	x.collections[name] = col
	return col, nil
}

// Add indexes doc in workspaceID. A document with the same id is replaced.
func (x *Index) Add(ctx context.Context, workspaceID string, doc Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document id is required")
	}
	text := strings.TrimSpace(doc.Title + "\n" + doc.Content)
	if text == "" {
		return fmt.Errorf("document %q has no content", doc.ID)
	}

	col, err := x.collection(workspaceID, true)
	if err != nil {
		return err
	}

	meta := make(map[string]string, len(doc.Metadata)+2)
	for k, v := range doc.Metadata {
		meta[k] = v
	}
	meta[metaTitle] = doc.Title
	meta[metaWorkspace] = workspaceID

	if err := col.AddDocument(ctx, chromem.Document{ID: doc.ID, Content: text, Metadata: meta}); err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	return nil
}

// Delete removes a document from workspaceID. Unknown ids are ignored.
func (x *Index) Delete(ctx context.Context, workspaceID, id string) error {
	col, err := x.collection(workspaceID, false)
	if err != nil || col == nil {
		return err
	}
	if err := col.Delete(ctx, nil, nil, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// Count returns the number of documents indexed for workspaceID.
func (x *Index) Count(workspaceID string) int {
	col, err := x.collection(workspaceID, false)
	if err != nil || col == nil {
		return 0
	}
	return col.Count()
}

// Search returns up to limit documents in workspaceID scoring at least
// threshold, best first.
func (x *Index) Search(ctx context.Context, workspaceID, query string, limit int, threshold float32) ([]Source, error) {
	sources := []Source{}
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return sources, nil
	}

	col, err := x.collection(workspaceID, false)
	if err != nil {
		return nil, err
	}
	if col == nil {
		return sources, nil
	}
	n := min(limit, col.Count())
	if n == 0 {
		return sources, nil
	}

	results, err := col.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}

	for _, r := range results {
		if r.Similarity < threshold {
			continue
		}
		// Metadata is the authority on tenancy even inside the collection.
		if r.Metadata[metaWorkspace] != workspaceID {
			continue
		}
		title := r.Metadata[metaTitle]
		body := strings.TrimPrefix(r.Content, title+"\n")
		sources = append(sources, Source{
			ID:       r.ID,
			Title:    title,
			Snippet:  Snippet(body, query),
			Score:    r.Similarity,
			Metadata: r.Metadata,
		})
	}
	return sources, nil
}

// Retrieve implements Retriever with the configured minimum score.
func (x *Index) Retrieve(ctx context.Context, query, workspaceID string, maxResults int) (*Context, error) {
	sources, err := x.Search(ctx, workspaceID, query, maxResults, x.minScore)
	if err != nil {
		return nil, err
	}
	return &Context{Sources: sources, Summary: Summarize(sources)}, nil
}
