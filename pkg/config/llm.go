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


package config

import (
	"fmt"
	"os"
	"time"
)

// LLMProvider identifies the LLM provider type.
type LLMProvider string

const (
	LLMProviderOpenAI LLMProvider = "openai"
	LLMProviderGemini LLMProvider = "gemini"
)

// LLMConfig configures the chat model.
type LLMConfig struct {
	// Provider type (openai, gemini).
	// Default: detected from OPENAI_API_KEY / GEMINI_API_KEY, else openai.
	Provider LLMProvider `yaml:"provider,omitempty"`

	// Model name (e.g. "gpt-4o", "gemini-2.0-flash").
	Model string `yaml:"model,omitempty"`

	// APIKey for authentication. Supports ${VAR} expansion and falls back
	// to the provider's conventional environment variable.
	APIKey string `yaml:"api_key,omitempty"`

	// BaseURL overrides the default API endpoint.
	BaseURL string `yaml:"base_url,omitempty"`

	// MaxTokens limits response length.
	// Default: 1024
	MaxTokens int `yaml:"max_tokens,omitempty"`

	// Timeout bounds a single HTTP attempt against the provider.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// MaxRetries for rate-limited or failed provider calls.
	// Default: 3
	MaxRetries *int `yaml:"max_retries,omitempty"`
}

// SetDefaults applies default values.
func (c *LLMConfig) SetDefaults() {
	if c.Provider == "" {
		c.Provider = detectProviderFromEnv()
	}
	if c.Model == "" {
		switch c.Provider {
		case LLMProviderOpenAI:
			c.Model = "gpt-4o"
		case LLMProviderGemini:
			c.Model = "gemini-2.0-flash"
		}
	}
	if c.APIKey == "" {
		c.APIKey = GetProviderAPIKey(c.Provider)
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 1024
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxRetries == nil {
		n := 3
		c.MaxRetries = &n
	}
}

// Validate checks the LLM configuration. A missing API key is reported
// when the model is built so offline commands keep working.
func (c *LLMConfig) Validate() error {
	switch c.Provider {
	case LLMProviderOpenAI, LLMProviderGemini:
	default:
		return fmt.Errorf("invalid provider %q (valid: openai, gemini)", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must not be negative")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if c.MaxRetries != nil && *c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	return nil
}

func detectProviderFromEnv() LLMProvider {
	switch {
	case os.Getenv("OPENAI_API_KEY") != "":
		return LLMProviderOpenAI
	case os.Getenv("GEMINI_API_KEY") != "", os.Getenv("GOOGLE_API_KEY") != "":
		return LLMProviderGemini
	default:
		return LLMProviderOpenAI
	}
}

// GetProviderAPIKey returns the conventional environment key for a provider.
func GetProviderAPIKey(p LLMProvider) string {
	switch p {
	case LLMProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case LLMProviderGemini:
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			return key
		}
		return os.Getenv("GOOGLE_API_KEY")
	default:
		return ""
	}
}
