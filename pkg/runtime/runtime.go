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


// Package runtime builds the copilot from a Config and keeps it current
// across config reloads.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/galaxyco/copilot/pkg/assistant"
	"github.com/galaxyco/copilot/pkg/auth"
	"github.com/galaxyco/copilot/pkg/config"
	"github.com/galaxyco/copilot/pkg/model"
	"github.com/galaxyco/copilot/pkg/observability"
	"github.com/galaxyco/copilot/pkg/rag"
	"github.com/galaxyco/copilot/pkg/server"
	"github.com/galaxyco/copilot/pkg/store"
	"github.com/galaxyco/copilot/pkg/tool"
	"github.com/galaxyco/copilot/pkg/tool/catalog"
)

// LLMFactory builds the chat model for a config.
type LLMFactory func(cfg config.LLMConfig) (model.LLM, error)

// Option configures a Runtime.
type Option func(*Runtime)

// WithLLMFactory replaces NewLLM, typically with a fake in tests.
func WithLLMFactory(f LLMFactory) Option {
	return func(r *Runtime) {
		r.llmFactory = f
	}
}

// WithStore uses an already-open store instead of opening cfg.Database.
// The Runtime does not close it.
func WithStore(s *store.Store) Option {
	return func(r *Runtime) {
		r.store = s
		r.ownsStore = false
	}
}

// generation is the reloadable part of the runtime.
type generation struct {
	cfg          *config.Config
	llm          model.LLM
	orchestrator *assistant.Orchestrator
}

// Runtime owns the store, the knowledge index, the tool catalog and the
// current orchestrator. It implements server.Assistant.
type Runtime struct {
	llmFactory LLMFactory

	obs       *observability.Manager
	store     *store.Store
	ownsStore bool
	index     *rag.Index
	registry  *tool.Registry
	executor  *tool.Executor

	reloadMu sync.Mutex
	current  atomic.Pointer[generation]
}

var _ server.Assistant = (*Runtime)(nil)

// New builds every component. cfg must be defaulted and valid, as
// returned by config.Parse or the Loader.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (_ *Runtime, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	r := &Runtime{llmFactory: NewLLM, ownsStore: true}
	for _, opt := range opts {
		opt(r)
	}
	defer func() {
		if err != nil {
			_ = r.Close()
		}
	}()

	r.obs = observability.NewManager(cfg.Observability)
	if err := r.obs.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	if r.store == nil {
		if r.store, err = store.Open(ctx, cfg.Database); err != nil {
			return nil, err
		}
	}

	embed, err := rag.NewEmbeddingFunc(cfg.Embedder)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	if r.index, err = rag.NewIndex(cfg.RAG, embed); err != nil {
		return nil, err
	}

	if r.registry, err = catalog.NewRegistry(r.store, r.index); err != nil {
		return nil, fmt.Errorf("failed to build tool catalog: %w", err)
	}
	r.executor, err = tool.NewExecutor(tool.ExecutorConfig{
		Registry: r.registry,
		Metrics:  r.obs.Metrics(),
	})
	if err != nil {
		return nil, err
	}

	gen, err := r.build(cfg)
	if err != nil {
		return nil, err
	}
	r.current.Store(gen)

	slog.Info("Copilot runtime ready",
		"llm", cfg.LLM.Provider,
		"model", cfg.LLM.Model,
		"database", cfg.Database.Driver,
		"embedder", cfg.Embedder.Provider,
		"tools", r.registry.Len())
	return r, nil
}

func (r *Runtime) build(cfg *config.Config) (*generation, error) {
	llm, err := r.llmFactory(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm: %w", err)
	}

	orch, err := assistant.New(cfg.Assistant, assistant.Options{
		LLM:       llm,
		Executor:  r.executor,
		Retriever: r.index,
		Tokens:    assistant.NewTokenCounter(cfg.LLM.Model),
		Metrics:   r.obs.Metrics(),
	})
	if err != nil {
		_ = llm.Close()
		return nil, err
	}
	return &generation{cfg: cfg, llm: llm, orchestrator: orch}, nil
}

// ProcessMessage runs the message through the current orchestrator.
func (r *Runtime) ProcessMessage(ctx context.Context, text string, conv assistant.Conversation, caller auth.Caller) (*assistant.Response, error) {
	return r.current.Load().orchestrator.ProcessMessage(ctx, text, conv, caller)
}

// Reload swaps in a new model and orchestrator built from cfg. In-flight
// messages finish on the previous generation. Sections that need a
// restart (server, database, embedder, rag, auth, observability) are
// reported and otherwise ignored.
func (r *Runtime) Reload(cfg *config.Config) error {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	prev := r.current.Load()
	if restart := restartSections(prev.cfg, cfg); len(restart) > 0 {
		slog.Warn("Config changes require a restart to take effect", "sections", restart)
	}

	gen, err := r.build(cfg)
	if err != nil {
		return fmt.Errorf("failed to reload: %w", err)
	}
	r.current.Store(gen)

	// In-flight requests may still hold the previous model.
	if err := prev.llm.Close(); err != nil {
		slog.Debug("Failed to close previous llm", "error", err)
	}

	slog.Info("Copilot runtime reloaded", "model", cfg.LLM.Model, "brand", cfg.Assistant.Brand)
	return nil
}

func restartSections(old, next *config.Config) []string {
	var out []string
	check := func(name string, a, b any) {
		if !reflect.DeepEqual(a, b) {
			out = append(out, name)
		}
	}
	check("server", old.Server, next.Server)
	check("database", old.Database, next.Database)
	check("embedder", old.Embedder, next.Embedder)
	check("rag", old.RAG, next.RAG)
	check("auth", old.Auth, next.Auth)
	check("observability", old.Observability, next.Observability)
	return out
}

// Config returns the config currently in effect.
func (r *Runtime) Config() *config.Config {
	return r.current.Load().cfg
}

// Store returns the tenant store.
func (r *Runtime) Store() *store.Store {
	return r.store
}

// Index returns the knowledge index.
func (r *Runtime) Index() *rag.Index {
	return r.index
}

// Registry returns the sealed tool catalog.
func (r *Runtime) Registry() *tool.Registry {
	return r.registry
}

// Health reports whether the store is reachable.
func (r *Runtime) Health(ctx context.Context) error {
	return r.store.Ping(ctx)
}

// Server builds the HTTP server for the current config.
func (r *Runtime) Server(ctx context.Context) (*server.Server, error) {
	cfg := r.Config()

	authMW, err := authMiddleware(ctx, &cfg.Auth)
	if err != nil {
		return nil, err
	}

	opts := []server.Option{
		server.WithAuth(authMW),
		server.WithMetrics(r.obs.Metrics()),
		server.WithHealthCheck(r.Health),
	}
	if h := r.obs.MetricsHandler(); h != nil {
		opts = append(opts, server.WithMetricsHandler(r.obs.MetricsPath(), h))
	}
	return server.New(cfg.Server, r, r.registry, opts...)
}

func authMiddleware(ctx context.Context, cfg *config.AuthConfig) (func(http.Handler) http.Handler, error) {
	if cfg.Enabled {
		v, err := auth.NewJWTValidator(ctx, cfg.JWT())
		if err != nil {
			return nil, fmt.Errorf("failed to create JWT validator: %w", err)
		}
		slog.Info("Authentication enabled", "issuer", cfg.Issuer)
		return auth.Middleware(v), nil
	}

	caller, err := cfg.DevCaller()
	if err != nil {
		return nil, err
	}
	slog.Warn("Authentication disabled, every request runs as the development caller",
		"workspace_id", caller.WorkspaceID, "user_id", caller.UserID)
	return auth.StaticMiddleware(caller), nil
}

// Close releases every component.
func (r *Runtime) Close() error {
	var errs []error
	if gen := r.current.Load(); gen != nil {
		errs = append(errs, gen.llm.Close())
	}
	if r.store != nil && r.ownsStore {
		errs = append(errs, r.store.Close())
	}
	if r.obs != nil {
		errs = append(errs, r.obs.Shutdown(context.Background()))
	}
	return errors.Join(errs...)
}
