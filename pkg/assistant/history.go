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

package assistant

import (
	"log/slog"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Per-message overhead of the chat format: <|start|>role|message<|end|>.
const tokensPerMessage = 3

// TokenCounter counts tokens of text.
type TokenCounter interface {
	Count(text string) int
}

// EstimateCounter approximates four characters per token.
type EstimateCounter struct{}

// Count implements TokenCounter.
func (EstimateCounter) Count(text string) int {
	return (len(text) + 3) / 4
}

var (
	encodingCache = make(map[string]*tiktoken.Tiktoken)
	encodingMu    sync.Mutex
)

// TiktokenCounter counts tokens with a BPE encoding.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// Count implements TokenCounter.
func (c *TiktokenCounter) Count(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}

// NewTokenCounter returns a tiktoken counter for modelName, falling back to
// cl100k_base for unknown models. When no encoding can be loaded (the BPE
// files are fetched on first use) it returns an EstimateCounter.
func NewTokenCounter(modelName string) TokenCounter {
	encodingMu.Lock()
	defer encodingMu.Unlock()

	if enc, ok := encodingCache[modelName]; ok {
		return &TiktokenCounter{encoding: enc}
	}

	enc, err := tiktoken.EncodingForModel(modelName)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil {
		slog.Warn("Token encoding unavailable, estimating token counts", "model", modelName, "error", err)
		return EstimateCounter{}
	}

	encodingCache[modelName] = enc
	return &TiktokenCounter{encoding: enc}
}

// messageTokens counts one message including the format overhead.
func messageTokens(c TokenCounter, m Message) int {
	return tokensPerMessage + c.Count(string(m.Role)) + c.Count(m.Content)
}

// TrimHistory keeps the most recent messages whose combined size fits
// maxTokens. Order is preserved; the oldest messages are dropped first.
func TrimHistory(msgs []Message, c TokenCounter, maxTokens int) []Message {
	if len(msgs) == 0 {
		return nil
	}

	used := tokensPerMessage // reply priming
	start := len(msgs)
	for i := len(msgs) - 1; i >= 0; i-- {
		n := messageTokens(c, msgs[i])
		if used+n > maxTokens {
			break
		}
		used += n
		start = i
	}

	if start > 0 {
		slog.Debug("Trimmed conversation history", "dropped", start, "kept", len(msgs)-start, "tokens", used)
	}
	return msgs[start:]
}
