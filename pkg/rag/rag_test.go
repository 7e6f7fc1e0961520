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

package rag

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewIndex(IndexConfig{MinScore: 0.2}, NewHashEmbedder(256))
	require.NoError(t, err)
	return idx
}

func TestHashEmbedder(t *testing.T) {
	embed := NewHashEmbedder(64)
	ctx := context.Background()

	t.Run("unit length", func(t *testing.T) {
		vec, err := embed(ctx, "Email triage agent for the support inbox")
		require.NoError(t, err)
		require.Len(t, vec, 64)

		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
	})

	t.Run("deterministic", func(t *testing.T) {
		a, err := embed(ctx, "refund policy")
		require.NoError(t, err)
		b, err := embed(ctx, "Refund, POLICY!")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("empty text is not a zero vector", func(t *testing.T) {
		vec, err := embed(ctx, "   ")
		require.NoError(t, err)
		assert.Equal(t, float32(1), vec[0])
	})
}

func TestEmbedderConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     EmbedderConfig
		wantErr string
	}{
		{name: "default is hash", cfg: EmbedderConfig{}},
		{name: "ollama", cfg: EmbedderConfig{Provider: "ollama"}},
		{name: "openai needs key", cfg: EmbedderConfig{Provider: "openai"}, wantErr: "api_key"},
		{name: "openai", cfg: EmbedderConfig{Provider: "openai", APIKey: "sk-test"}},
		{name: "small dimension", cfg: EmbedderConfig{Provider: "hash", Dimension: 4}, wantErr: "dimension"},
		{name: "unknown", cfg: EmbedderConfig{Provider: "cohere"}, wantErr: "unsupported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, err := NewEmbeddingFunc(tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, fn)
		})
	}

	cfg := EmbedderConfig{Provider: "ollama"}
	cfg.SetDefaults()
	assert.Equal(t, "nomic-embed-text", cfg.Model)
	assert.Equal(t, "http://localhost:11434", cfg.BaseURL)
}

func TestIndexConfig_Validate(t *testing.T) {
	cfg := IndexConfig{}
	cfg.SetDefaults()
	assert.InDelta(t, 0.6, cfg.MinScore, 1e-6)
	assert.NoError(t, cfg.Validate())

	cfg.MinScore = 1.5
	assert.Error(t, cfg.Validate())

	_, err := NewIndex(IndexConfig{}, nil)
	assert.Error(t, err)
}

func TestIndex_Retrieve(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	require.NoError(t, idx.Add(ctx, "ws1", Document{
		ID: "k1", Title: "Refund policy", Content: "Refunds are issued within 30 days",
	}))
	require.NoError(t, idx.Add(ctx, "ws1", Document{
		ID: "k2", Title: "Office hours", Content: "Support answers tickets on weekdays",
	}))

	got, err := idx.Retrieve(ctx, "refund policy", "ws1", 3)
	require.NoError(t, err)
	require.NotEmpty(t, got.Sources)
	assert.Equal(t, "k1", got.Sources[0].ID)
	assert.Equal(t, "Refund policy", got.Sources[0].Title)
	assert.Equal(t, "Refunds are issued within 30 days", got.Sources[0].Snippet)
	assert.True(t, strings.HasPrefix(got.Summary, "Refund policy: Refunds are issued"))
	for _, s := range got.Sources {
		assert.Equal(t, "ws1", s.Metadata["workspace_id"])
	}
}

func TestIndex_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	require.NoError(t, idx.Add(ctx, "ws1", Document{ID: "k1", Title: "Pricing", Content: "Enterprise pricing sheet"}))

	got, err := idx.Retrieve(ctx, "enterprise pricing", "ws2", 3)
	require.NoError(t, err)
	assert.NotNil(t, got.Sources)
	assert.Empty(t, got.Sources)
	assert.Empty(t, got.Summary)

	assert.Equal(t, 1, idx.Count("ws1"))
	assert.Equal(t, 0, idx.Count("ws2"))
}

func TestIndex_EmptyCorpus(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	got, err := idx.Retrieve(ctx, "anything", "ws1", 3)
	require.NoError(t, err)
	assert.Equal(t, EmptyContext(), got)

	sources, err := idx.Search(ctx, "ws1", "", 5, 0)
	require.NoError(t, err)
	assert.Empty(t, sources)

	_, err = idx.Search(ctx, "", "anything", 5, 0)
	assert.Error(t, err)
}

func TestIndex_AddReplaceDelete(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	require.NoError(t, idx.Add(ctx, "ws1", Document{ID: "k1", Title: "Draft", Content: "first version"}))
	require.NoError(t, idx.Add(ctx, "ws1", Document{ID: "k1", Title: "Draft", Content: "second version"}))
	assert.Equal(t, 1, idx.Count("ws1"))

	assert.Error(t, idx.Add(ctx, "ws1", Document{ID: "", Content: "x"}))
	assert.Error(t, idx.Add(ctx, "ws1", Document{ID: "k2"}))

	require.NoError(t, idx.Delete(ctx, "ws1", "k1"))
	assert.Equal(t, 0, idx.Count("ws1"))

	// Unknown workspace or id is a no-op.
	assert.NoError(t, idx.Delete(ctx, "ws9", "k1"))
}

func TestIndex_SearchThreshold(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)

	require.NoError(t, idx.Add(ctx, "ws1", Document{ID: "k1", Title: "Onboarding", Content: "onboarding checklist"}))

	hits, err := idx.Search(ctx, "ws1", "onboarding checklist", 5, 0.5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Greater(t, hits[0].Score, float32(0.5))

	hits, err = idx.Search(ctx, "ws1", "onboarding checklist", 5, 1.01)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_Persistent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	idx, err := NewIndex(IndexConfig{PersistPath: dir, MinScore: 0.2}, NewHashEmbedder(128))
	require.NoError(t, err)
	require.NoError(t, idx.Add(ctx, "ws1", Document{ID: "k1", Title: "Runbook", Content: "restart the worker"}))

	reopened, err := NewIndex(IndexConfig{PersistPath: dir, MinScore: 0.2}, NewHashEmbedder(128))
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Count("ws1"))
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "", Snippet("", "q"))
	assert.Equal(t, "short text", Snippet("short text", "q"))

	long := strings.Repeat("filler ", 60) + "the magic keyword lives here " + strings.Repeat("padding ", 60)
	got := Snippet(long, "magic keyword")
	assert.Contains(t, got, "magic keyword")
	assert.True(t, strings.HasPrefix(got, "..."))
	assert.True(t, strings.HasSuffix(got, "..."))

	head := Snippet(long, "")
	assert.False(t, strings.HasPrefix(head, "..."))
	assert.True(t, strings.HasSuffix(head, "..."))
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "", Summarize(nil))
	assert.Equal(t, "A: one\n\nB: two", Summarize([]Source{
		{Title: "A", Snippet: "one"},
		{Title: "B", Snippet: "two"},
	}))
}
