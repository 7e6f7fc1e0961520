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

// Package rag retrieves workspace knowledge for the assistant prompt.
//
// Documents live in an embedded chromem-go database with one collection per
// workspace, so a query can only ever see its own tenant's documents.
package rag

import (
	"context"
	"errors"
	"strings"
)

// ErrRetrieval marks a failed context retrieval.
var ErrRetrieval = errors.New("retrieval failed")

// Document is a unit of indexed knowledge.
type Document struct {
	ID       string
	Title    string
	Content  string
	Metadata map[string]string
}

// Source is one retrieved document.
type Source struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Snippet  string            `json:"snippet"`
	Score    float32           `json:"relevanceScore"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Context is the result of a retrieval. Sources is never nil.
type Context struct {
	Sources []Source `json:"sources"`
	Summary string   `json:"summary"`
}

// EmptyContext is returned for empty corpora and degraded retrievals.
func EmptyContext() *Context {
	return &Context{Sources: []Source{}}
}

// Retriever finds knowledge relevant to a query within one workspace.
type Retriever interface {
	Retrieve(ctx context.Context, query, workspaceID string, maxResults int) (*Context, error)
}

// Summarize renders sources as "title: snippet" paragraphs.
func Summarize(sources []Source) string {
	parts := make([]string, 0, len(sources))
	for _, s := range sources {
		parts = append(parts, s.Title+": "+s.Snippet)
	}
	return strings.Join(parts, "\n\n")
}

// snippetLength is the window extracted around query terms.
const snippetLength = 200

// Snippet returns the window of content that contains the most query terms,
// with ellipses where it was cut.
func Snippet(content, query string) string {
	if content == "" {
		return ""
	}
	runes := []rune(content)
	if len(runes) <= snippetLength {
		return content
	}

	terms := strings.Fields(strings.ToLower(query))
	lower := []rune(strings.ToLower(content))

	best, bestScore := 0, 0
	if len(terms) > 0 && len(lower) == len(runes) {
		for i := 0; i+snippetLength <= len(lower); i += 10 {
			window := string(lower[i : i+snippetLength])
			score := 0
			for _, t := range terms {
				if strings.Contains(window, t) {
					score++
				}
			}
			if score > bestScore {
				best, bestScore = i, score
			}
		}
	}

	end := min(best+snippetLength, len(runes))
	var b strings.Builder
	if best > 0 {
		b.WriteString("...")
	}
	b.WriteString(string(runes[best:end]))
	if end < len(runes) {
		b.WriteString("...")
	}
	return b.String()
}
