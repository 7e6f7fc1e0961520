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

// Package knowledgetool provides the knowledge base tools. Items are kept in
// the tenant store and mirrored into the vector index for semantic search.
package knowledgetool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/galaxyco/copilot/pkg/auth"
	"github.com/galaxyco/copilot/pkg/permission"
	"github.com/galaxyco/copilot/pkg/rag"
	"github.com/galaxyco/copilot/pkg/store"
	"github.com/galaxyco/copilot/pkg/tool"
	"github.com/galaxyco/copilot/pkg/tool/functiontool"
)

// Store is the subset of the tenant store the knowledge tools use.
type Store interface {
	CreateKnowledgeItem(ctx context.Context, k *store.KnowledgeItem) error
	GetKnowledgeItem(ctx context.Context, workspaceID, id string) (*store.KnowledgeItem, error)
	ListKnowledgeItems(ctx context.Context, workspaceID string, f store.KnowledgeFilter) ([]*store.KnowledgeItem, error)
	DeleteKnowledgeItem(ctx context.Context, workspaceID, id string) error
}

// Index is the vector index the knowledge tools keep in sync.
type Index interface {
	Add(ctx context.Context, workspaceID string, doc rag.Document) error
	Delete(ctx context.Context, workspaceID, id string) error
	Search(ctx context.Context, workspaceID, query string, limit int, threshold float32) ([]rag.Source, error)
}

var (
	_ Store = (*store.Store)(nil)
	_ Index = (*rag.Index)(nil)
)

// Tools returns every knowledge tool bound to s and idx.
func Tools(s Store, idx Index) []tool.Tool {
	return []tool.Tool{
		NewUploadDocument(s, idx),
		NewSearchKnowledge(idx),
		NewListKnowledgeItems(s),
		NewDeleteKnowledgeItem(s, idx),
	}
}

type UploadDocumentArgs struct {
	Title     string   `json:"title" jsonschema:"required,description=Document title" validate:"required"`
	Content   string   `json:"content" jsonschema:"required,description=Document content or text" validate:"required"`
	Type      string   `json:"type,omitempty" jsonschema:"description=Type of content,enum=document,enum=url,enum=image,enum=text,default=text" validate:"oneof=document url image text"`
	SourceURL string   `json:"sourceUrl,omitempty" jsonschema:"description=Source URL if applicable" validate:"omitempty,url"`
	Tags      []string `json:"tags,omitempty" jsonschema:"description=Tags for organization"`
}

func (a *UploadDocumentArgs) SetDefaults() {
	if a.Type == "" {
		a.Type = string(store.KnowledgeText)
	}
}

// UploadedDocument is the upload_document payload.
type UploadedDocument struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// NewUploadDocument returns the upload_document tool.
func NewUploadDocument(s Store, idx Index) tool.Tool {
	return functiontool.MustNew(functiontool.Config{
		Name: tool.UploadDocument,
		Description: "Upload a document or text to the knowledge base for semantic search, " +
			`for requests such as "Add this information to my knowledge base".`,
		Category:    tool.CategoryKnowledge,
		Permissions: []permission.Permission{permission.KnowledgeCreate},
	}, func(ctx context.Context, caller auth.Caller, args UploadDocumentArgs) (*tool.Result, error) {
		item := &store.KnowledgeItem{
			WorkspaceID: caller.WorkspaceID,
			Title:       args.Title,
			Type:        store.KnowledgeType(args.Type),
			Status:      store.KnowledgeReady,
			SourceURL:   args.SourceURL,
			Content:     args.Content,
			Tags:        args.Tags,
			CreatedBy:   caller.UserID,
		}
		if err := s.CreateKnowledgeItem(ctx, item); err != nil {
			return nil, tool.ExecutionError("failed to upload document", err)
		}

		doc := rag.Document{
			ID:       item.ID,
			Title:    item.Title,
			Content:  item.Content,
			Metadata: map[string]string{"type": string(item.Type)},
		}
		if err := idx.Add(ctx, caller.WorkspaceID, doc); err != nil {
			// Keep the store and the index consistent.
			if derr := s.DeleteKnowledgeItem(context.WithoutCancel(ctx), caller.WorkspaceID, item.ID); derr != nil {
				slog.Warn("Failed to roll back knowledge item", "id", item.ID, "error", derr)
			}
			return nil, tool.ExecutionError("failed to index document", err)
		}

		return tool.SucceedWithAction(
			fmt.Sprintf("Uploaded %q to knowledge base", item.Title),
			UploadedDocument{ID: item.ID, Title: item.Title},
			tool.Action{Type: tool.ActionCreate, Target: "knowledge-" + item.ID, Label: "Document uploaded"},
		), nil
	})
}

const defaultSearchThreshold = 0.7

type SearchKnowledgeArgs struct {
	Query     string   `json:"query" jsonschema:"required,description=Search query in natural language" validate:"required"`
	Limit     int      `json:"limit,omitempty" jsonschema:"description=Maximum results to return,default=5" validate:"gte=1,lte=20"`
	Threshold *float64 `json:"threshold,omitempty" jsonschema:"description=Minimum relevance score from 0 to 1,default=0.7" validate:"omitempty,gte=0,lte=1"`
}

func (a *SearchKnowledgeArgs) SetDefaults() {
	if a.Limit == 0 {
		a.Limit = 5
	}
	if a.Threshold == nil {
		t := defaultSearchThreshold
		a.Threshold = &t
	}
}

// SearchHit is one search_knowledge result.
type SearchHit struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Snippet        string  `json:"snippet"`
	RelevanceScore float32 `json:"relevanceScore"`
}

// NewSearchKnowledge returns the search_knowledge tool.
func NewSearchKnowledge(idx Index) tool.Tool {
	return functiontool.MustNew(functiontool.Config{
		Name: tool.SearchKnowledge,
		Description: "Search the knowledge base for relevant information, " +
			`for requests such as "Find information about email automation".`,
		Category:    tool.CategoryKnowledge,
		Permissions: []permission.Permission{permission.KnowledgeRead},
		ReadOnly:    true,
	}, func(ctx context.Context, caller auth.Caller, args SearchKnowledgeArgs) (*tool.Result, error) {
		sources, err := idx.Search(ctx, caller.WorkspaceID, args.Query, args.Limit, float32(*args.Threshold))
		if err != nil {
			return nil, tool.ExecutionError("failed to search knowledge", err)
		}

		hits := make([]SearchHit, 0, len(sources))
		for _, src := range sources {
			hits = append(hits, SearchHit{
				ID:             src.ID,
				Title:          src.Title,
				Snippet:        src.Snippet,
				RelevanceScore: src.Score,
			})
		}

		msg := "No relevant documents found"
		if len(hits) > 0 {
			msg = fmt.Sprintf("Found %d relevant document(s)", len(hits))
		}
		return tool.Succeed(msg, hits), nil
	})
}

type ListKnowledgeItemsArgs struct {
	Type   string `json:"type,omitempty" jsonschema:"description=Filter by type,enum=all,enum=document,enum=url,enum=image,enum=text,default=all" validate:"oneof=all document url image text"`
	Limit  int    `json:"limit,omitempty" jsonschema:"description=Maximum items to return,default=20" validate:"gte=1,lte=100"`
	Search string `json:"search,omitempty" jsonschema:"description=Search term matched against title and content"`
}

func (a *ListKnowledgeItemsArgs) SetDefaults() {
	if a.Type == "" {
		a.Type = "all"
	}
	if a.Limit == 0 {
		a.Limit = 20
	}
}

// ItemSummary is one list_knowledge_items entry.
type ItemSummary struct {
	ID        string              `json:"id"`
	Title     string              `json:"title"`
	Type      store.KnowledgeType `json:"type"`
	CreatedAt time.Time           `json:"createdAt"`
}

// NewListKnowledgeItems returns the list_knowledge_items tool.
func NewListKnowledgeItems(s Store) tool.Tool {
	return functiontool.MustNew(functiontool.Config{
		Name:        tool.ListKnowledgeItems,
		Description: `List documents and knowledge items, for requests such as "What's in my knowledge base?".`,
		Category:    tool.CategoryKnowledge,
		Permissions: []permission.Permission{permission.KnowledgeRead},
		ReadOnly:    true,
	}, func(ctx context.Context, caller auth.Caller, args ListKnowledgeItemsArgs) (*tool.Result, error) {
		filter := store.KnowledgeFilter{
			Status: store.KnowledgeReady,
			Search: args.Search,
			Limit:  args.Limit,
		}
		if args.Type != "all" {
			filter.Type = store.KnowledgeType(args.Type)
		}

		items, err := s.ListKnowledgeItems(ctx, caller.WorkspaceID, filter)
		if err != nil {
			return nil, tool.ExecutionError("failed to list knowledge items", err)
		}

		out := make([]ItemSummary, 0, len(items))
		for _, it := range items {
			out = append(out, ItemSummary{ID: it.ID, Title: it.Title, Type: it.Type, CreatedAt: it.CreatedAt})
		}
		return tool.Succeed(fmt.Sprintf("Found %d knowledge item(s)", len(out)), out), nil
	})
}

type DeleteKnowledgeItemArgs struct {
	ItemID string `json:"itemId" jsonschema:"required,description=ID of knowledge item to delete" validate:"required"`
}

// NewDeleteKnowledgeItem returns the delete_knowledge_item tool.
func NewDeleteKnowledgeItem(s Store, idx Index) tool.Tool {
	return functiontool.MustNew(functiontool.Config{
		Name:        tool.DeleteKnowledgeItem,
		Description: `Delete a document from the knowledge base, for requests such as "Remove that old documentation".`,
		Category:    tool.CategoryKnowledge,
		Permissions: []permission.Permission{permission.KnowledgeDelete},
		Destructive: true,
	}, func(ctx context.Context, caller auth.Caller, args DeleteKnowledgeItemArgs) (*tool.Result, error) {
		item, err := s.GetKnowledgeItem(ctx, caller.WorkspaceID, args.ItemID)
		if err != nil {
			return nil, storeError("delete knowledge item", err)
		}
		if err := s.DeleteKnowledgeItem(ctx, caller.WorkspaceID, item.ID); err != nil {
			return nil, storeError("delete knowledge item", err)
		}
		if err := idx.Delete(ctx, caller.WorkspaceID, item.ID); err != nil {
			slog.Warn("Failed to remove knowledge item from index", "id", item.ID, "error", err)
		}

		return tool.SucceedWithAction(
			fmt.Sprintf("Deleted %q from knowledge base", item.Title),
			nil,
			tool.Action{Type: tool.ActionDelete, Target: "knowledge-" + item.ID, Label: "Knowledge item deleted"},
		), nil
	})
}

func storeError(action string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return tool.NotFound("knowledge item")
	}
	return tool.ExecutionError("failed to "+action, err)
}
