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
	"hash/fnv"
	"log/slog"
	"math"
	"strings"
	"unicode"

	"github.com/philippgille/chromem-go"
)

// EmbedderConfig selects the embedding function.
type EmbedderConfig struct {
	// Provider specifies the embedding service.
	// Values: "openai", "ollama", "hash" (default, offline)
	Provider string `yaml:"provider,omitempty"`

	// Model is the embedding model name.
	// OpenAI: "text-embedding-3-small"; Ollama: "nomic-embed-text"
	Model string `yaml:"model,omitempty"`

	// APIKey for OpenAI. Can use ${OPENAI_API_KEY}.
	APIKey string `yaml:"api_key,omitempty"`

	// BaseURL for Ollama.
	// Default: http://localhost:11434
	BaseURL string `yaml:"base_url,omitempty"`

	// Dimension of the hash embedder vectors.
	// Default: 256
	Dimension int `yaml:"dimension,omitempty"`
}

// SetDefaults applies default values.
func (c *EmbedderConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = "hash"
	}
	switch c.Provider {
	case "openai":
		if c.Model == "" {
			c.Model = string(chromem.EmbeddingModelOpenAI3Small)
		}
	case "ollama":
		if c.Model == "" {
			c.Model = "nomic-embed-text"
		}
		if c.BaseURL == "" {
			c.BaseURL = "http://localhost:11434"
		}
	case "hash":
		if c.Dimension == 0 {
			c.Dimension = 256
		}
	}
}

// Validate checks the configuration.
func (c *EmbedderConfig) Validate() error {
	switch c.Provider {
	case "openai":
		if c.APIKey == "" {
			return fmt.Errorf("api_key is required for openai embedder")
		}
	case "ollama":
	case "hash":
		if c.Dimension < 16 {
			return fmt.Errorf("dimension must be at least 16, got %d", c.Dimension)
		}
	default:
		return fmt.Errorf("unsupported embedder provider %q (valid: openai, ollama, hash)", c.Provider)
	}
	return nil
}

// NewEmbeddingFunc builds the embedding function for cfg.
func NewEmbeddingFunc(cfg EmbedderConfig) (chromem.EmbeddingFunc, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case "openai":
		if cfg.BaseURL != "" {
			slog.Warn("Ignoring base_url for openai embedder", "base_url", cfg.BaseURL)
		}
		return chromem.NewEmbeddingFuncOpenAI(cfg.APIKey, chromem.EmbeddingModelOpenAI(cfg.Model)), nil
	case "ollama":
		base := strings.TrimSuffix(cfg.BaseURL, "/")
		if !strings.HasSuffix(base, "/api") {
			base += "/api"
		}
		return chromem.NewEmbeddingFuncOllama(cfg.Model, base), nil
	default:
		return NewHashEmbedder(cfg.Dimension), nil
	}
}

// NewHashEmbedder returns an offline embedding function based on feature
// hashing of lower-cased word tokens. Texts sharing words score higher; it
// carries no semantics beyond that. Vectors are unit length.
func NewHashEmbedder(dim int) chromem.EmbeddingFunc {
	if dim <= 0 {
		dim = 256
	}
	return func(_ context.Context, text string) ([]float32, error) {
		vec := make([]float32, dim)
		for _, tok := range tokenize(text) {
			h := fnv.New64a()
			h.Write([]byte(tok))
			sum := h.Sum64()
			idx := int(sum % uint64(dim))
			if sum&(1<<63) != 0 {
				vec[idx]--
			} else {
				vec[idx]++
			}
		}

		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		if norm == 0 {
			// Empty or all-cancelled input still needs a valid direction.
			vec[0] = 1
			return vec, nil
		}
		n := float32(math.Sqrt(norm))
		for i := range vec {
			vec[i] /= n
		}
		return vec, nil
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
