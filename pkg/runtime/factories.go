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


package runtime

import (
	"fmt"

	"github.com/galaxyco/copilot/pkg/config"
	"github.com/galaxyco/copilot/pkg/model"
	"github.com/galaxyco/copilot/pkg/model/gemini"
	"github.com/galaxyco/copilot/pkg/model/openai"
)

// ErrMissingAPIKey is returned when the selected provider has no key.
var ErrMissingAPIKey = fmt.Errorf("llm api key is required")

// NewLLM creates the chat model selected by cfg.Provider.
func NewLLM(cfg config.LLMConfig) (model.LLM, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: set llm.api_key or %s", ErrMissingAPIKey, apiKeyEnv(cfg.Provider))
	}

	switch cfg.Provider {
	case config.LLMProviderOpenAI:
		ocfg := openai.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
			BaseURL:   cfg.BaseURL,
			Timeout:   cfg.Timeout,
		}
		if cfg.MaxRetries != nil {
			ocfg.MaxRetries = *cfg.MaxRetries
			if ocfg.MaxRetries == 0 {
				ocfg.MaxRetries = -1
			}
		}
		client, err := openai.New(ocfg)
		if err != nil {
			return nil, err
		}
		return client, nil

	case config.LLMProviderGemini:
		return gemini.New(gemini.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
			BaseURL:   cfg.BaseURL,
		})

	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

func apiKeyEnv(p config.LLMProvider) string {
	if p == config.LLMProviderGemini {
		return "GEMINI_API_KEY"
	}
	return "OPENAI_API_KEY"
}
