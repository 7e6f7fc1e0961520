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


package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galaxyco/copilot/pkg/assistant"
	"github.com/galaxyco/copilot/pkg/auth"
	"github.com/galaxyco/copilot/pkg/config"
	"github.com/galaxyco/copilot/pkg/model"
	"github.com/galaxyco/copilot/pkg/permission"
	"github.com/galaxyco/copilot/pkg/tool"
)

type echoLLM struct {
	name string

	mu       sync.Mutex
	calls    int
	closed   bool
	requests []*model.Request
}

func (e *echoLLM) Name() string             { return e.name }
func (e *echoLLM) Provider() model.Provider { return model.ProviderOpenAI }

func (e *echoLLM) GenerateContent(_ context.Context, req *model.Request) (*model.Response, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.requests = append(e.requests, req)

	// First turn lists agents; the follow-up turn answers.
	if len(req.Tools) > 0 && e.calls == 1 {
		return &model.Response{
			ToolCalls:    []tool.Call{{ID: "c1", Name: string(tool.ListAgents), Args: map[string]any{}}},
			FinishReason: model.FinishReasonToolCalls,
		}, nil
	}
	return &model.Response{Text: "answer from " + e.name, FinishReason: model.FinishReasonStop}, nil
}

func (e *echoLLM) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

type llmFactory struct {
	mu    sync.Mutex
	built []*echoLLM
}

func (f *llmFactory) build(cfg config.LLMConfig) (model.LLM, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := &echoLLM{name: cfg.Model}
	f.built = append(f.built, l)
	return l, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`
database:
  driver: sqlite
  database: ":memory:"
llm:
  provider: openai
  model: model-a
  api_key: test
embedder:
  provider: hash
  dimension: 32
`))
	require.NoError(t, err)
	return cfg
}

func newRuntime(t *testing.T, cfg *config.Config) (*Runtime, *llmFactory) {
	t.Helper()
	f := &llmFactory{}
	r, err := New(context.Background(), cfg, WithLLMFactory(f.build))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r, f
}

var caller = auth.NewCaller("user-1", "ws1", permission.All()...)

func TestNew(t *testing.T) {
	r, f := newRuntime(t, testConfig(t))

	assert.Equal(t, 15, r.Registry().Len())
	assert.NotNil(t, r.Index())
	assert.NoError(t, r.Health(context.Background()))
	require.Len(t, f.built, 1)
	assert.Equal(t, "model-a", f.built[0].name)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.Error(t, err)

	failing := func(config.LLMConfig) (model.LLM, error) { return nil, errors.New("no model") }
	_, err = New(context.Background(), testConfig(t), WithLLMFactory(failing))
	assert.ErrorContains(t, err, "no model")
}

func TestProcessMessage_RunsTools(t *testing.T) {
	r, f := newRuntime(t, testConfig(t))

	resp, err := r.ProcessMessage(context.Background(), "What agents do I have?", assistant.Conversation{}, caller)
	require.NoError(t, err)

	assert.Equal(t, "answer from model-a", resp.Message)
	require.Len(t, resp.ToolResults, 1)
	assert.True(t, resp.ToolResults[0].Success)
	assert.Equal(t, 2, f.built[0].calls)
}

func TestReload(t *testing.T) {
	cfg := testConfig(t)
	r, f := newRuntime(t, cfg)

	next := *cfg
	next.LLM.Model = "model-b"
	next.Assistant.Brand = "Acme"
	require.NoError(t, r.Reload(&next))

	assert.Equal(t, "Acme", r.Config().Assistant.Brand)
	require.Len(t, f.built, 2)
	assert.True(t, f.built[0].closed)

	resp, err := r.ProcessMessage(context.Background(), "Hi", assistant.Conversation{}, caller)
	require.NoError(t, err)
	assert.Equal(t, "answer from model-b", resp.Message)
	assert.True(t, strings.HasPrefix(f.built[1].requests[0].SystemInstruction, "You are the Acme Assistant"))
}

func TestReload_InvalidKeepsCurrent(t *testing.T) {
	cfg := testConfig(t)
	r, _ := newRuntime(t, cfg)

	bad := *cfg
	bad.Assistant.MaxResults = -1
	assert.Error(t, r.Reload(&bad))
	assert.Same(t, cfg, r.Config())
}

func TestRestartSections(t *testing.T) {
	a := testConfig(t)
	b := *a
	b.Server.Port = 9999
	b.Assistant.Brand = "Other"
	assert.Equal(t, []string{"server"}, restartSections(a, &b))
}

func TestServer_DevCaller(t *testing.T) {
	cfg := testConfig(t)
	r, _ := newRuntime(t, cfg)

	srv, err := r.Server(context.Background())
	require.NoError(t, err)
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/assistant/messages", strings.NewReader(`{"message":"List my agents"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body assistant.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "answer from model-a", body.Message)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewLLM(t *testing.T) {
	_, err := NewLLM(config.LLMConfig{Provider: config.LLMProviderOpenAI, Model: "gpt-4o"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	llm, err := NewLLM(config.LLMConfig{Provider: config.LLMProviderOpenAI, Model: "gpt-4o", APIKey: "sk"})
	require.NoError(t, err)
	assert.Equal(t, model.ProviderOpenAI, llm.Provider())
	assert.Equal(t, "gpt-4o", llm.Name())

	_, err = NewLLM(config.LLMConfig{Provider: "cohere", APIKey: "k"})
	assert.Error(t, err)
}
