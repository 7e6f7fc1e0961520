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

package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/galaxyco/copilot/pkg/auth"
	"github.com/galaxyco/copilot/pkg/model"
	"github.com/galaxyco/copilot/pkg/observability"
	"github.com/galaxyco/copilot/pkg/rag"
	"github.com/galaxyco/copilot/pkg/tool"
)

// User-facing fallbacks. Both contain "error" and "try rephrasing" so
// callers can detect the degraded path.
const (
	FallbackMessage = "I encountered an error while processing your request. Could you try rephrasing your request?"

	SummaryFallback = "I encountered an error while summarizing these results. If something looks off, could you try rephrasing your request?"

	emptyReply = "I'm not sure how to help with that yet. Could you tell me a bit more about what you need?"
)

// Options holds the collaborators of an Orchestrator.
type Options struct {
	// LLM is required.
	LLM model.LLM

	// Executor is required.
	Executor ToolExecutor

	// Retriever is optional; without one every message gets an empty context.
	Retriever rag.Retriever

	// Tokens defaults to EstimateCounter.
	Tokens TokenCounter

	// Metrics defaults to observability.GlobalMetrics().
	Metrics observability.Metrics
}

// Orchestrator processes chat messages. It is safe for concurrent use and
// holds no per-conversation state.
type Orchestrator struct {
	cfg       Config
	llm       model.LLM
	executor  ToolExecutor
	retriever rag.Retriever
	tokens    TokenCounter
	metrics   observability.Metrics
	tracer    trace.Tracer
	dispatch  *dispatcher
}

// New creates an Orchestrator.
func New(cfg Config, opts Options) (*Orchestrator, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid assistant config: %w", err)
	}
	if opts.LLM == nil {
		return nil, fmt.Errorf("llm is required")
	}
	if opts.Executor == nil {
		return nil, fmt.Errorf("tool executor is required")
	}
	if opts.Tokens == nil {
		opts.Tokens = EstimateCounter{}
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.GlobalMetrics()
	}

	return &Orchestrator{
		cfg:       cfg,
		llm:       opts.LLM,
		executor:  opts.Executor,
		retriever: opts.Retriever,
		tokens:    opts.Tokens,
		metrics:   opts.Metrics,
		tracer:    observability.Tracer("copilot/assistant"),
		dispatch: &dispatcher{
			executor: opts.Executor,
			parallel: cfg.ParallelReadOnly,
			limit:    cfg.MaxParallelTools,
		},
	}, nil
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// run is the mutable state of one ProcessMessage call.
type run struct {
	caller   auth.Caller
	machine  *machine
	messages []model.Message
	outcomes []ToolOutcome
}

// ProcessMessage answers userText in the context of conv on behalf of
// caller. The error is non-nil only for input rejected up front
// (ErrInvalidInput) or an internal state machine bug; model, retrieval and
// tool failures are reported inside the Response.
func (o *Orchestrator) ProcessMessage(ctx context.Context, userText string, conv Conversation, caller auth.Caller) (*Response, error) {
	start := time.Now()

	if err := validateInput(userText, conv, caller); err != nil {
		o.metrics.RecordMessage(ctx, "rejected", time.Since(start))
		return nil, err
	}

	ctx, span := o.tracer.Start(ctx, "assistant.process_message", trace.WithAttributes(
		attribute.String("workspace.id", caller.WorkspaceID),
		attribute.String("user.id", caller.UserID),
	))
	defer span.End()

	resp, err := o.process(ctx, userText, conv, caller)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		slog.Error("Message processing failed", "workspace", caller.WorkspaceID, "error", err)
		o.metrics.RecordMessage(ctx, "error", time.Since(start))
		return nil, err
	}

	outcome := "ok"
	if resp.Degraded {
		outcome = "degraded"
		span.SetStatus(codes.Error, "model invocation failed")
	}
	span.SetAttributes(
		attribute.Int("assistant.tool_calls", len(resp.ToolCalls)),
		attribute.Int("assistant.rounds", resp.Rounds()),
	)
	o.metrics.RecordMessage(ctx, outcome, time.Since(start))
	return resp, nil
}

func validateInput(userText string, conv Conversation, caller auth.Caller) error {
	if strings.TrimSpace(userText) == "" {
		return fmt.Errorf("%w: message is empty", ErrInvalidInput)
	}
	if err := caller.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if conv.WorkspaceID != "" && conv.WorkspaceID != caller.WorkspaceID {
		return fmt.Errorf("%w: conversation belongs to another workspace", ErrInvalidInput)
	}
	if conv.UserID != "" && conv.UserID != caller.UserID {
		return fmt.Errorf("%w: conversation belongs to another user", ErrInvalidInput)
	}
	for i, m := range conv.Messages {
		if !m.Role.IsValid() {
			return fmt.Errorf("%w: message %d has unknown role %q", ErrInvalidInput, i, m.Role)
		}
	}
	return nil
}

func (o *Orchestrator) process(ctx context.Context, userText string, conv Conversation, caller auth.Caller) (*Response, error) {
	r := &run{caller: caller, machine: newMachine()}

	knowledge := o.retrieve(ctx, userText, caller.WorkspaceID)
	if err := r.machine.advance(StateContextRetrieved); err != nil {
		return nil, err
	}

	r.messages = o.buildMessages(userText, conv)
	req := &model.Request{
		SystemInstruction: SystemPrompt(o.cfg.Brand, knowledge.Summary),
		Messages:          r.messages,
		Tools:             o.toolDefinitions(caller),
		Config: &model.GenerateConfig{
			Temperature: o.cfg.Temperature,
			Metadata: map[string]string{
				"workspace_id": caller.WorkspaceID,
				"user_id":      caller.UserID,
			},
		},
	}

	if err := r.machine.advance(StateModelInvoked); err != nil {
		return nil, err
	}
	resp, err := o.invoke(ctx, req)
	if err != nil {
		slog.Warn("Model invocation failed", "workspace", caller.WorkspaceID, "error", err)
		return o.assemble(r, FallbackMessage, true)
	}

	text := resp.TextContent()
	summaryFailed := false

	for round := 1; resp.HasToolCalls(); round++ {
		if err := r.machine.advance(StateToolCallsPending); err != nil {
			return nil, err
		}
		batch := o.dispatch.run(ctx, resp.ToolCalls, caller)
		r.outcomes = append(r.outcomes, batch...)
		if err := r.machine.advance(StateToolsExecuted); err != nil {
			return nil, err
		}

		if !o.cfg.Summarize() {
			break
		}

		r.messages = append(r.messages, resp.ToMessage())
		for _, out := range batch {
			r.messages = append(r.messages, model.ToolResultMessage(out.Call, out.Result.JSON()))
		}
		req.Messages = r.messages

		// The last allowed round is narrated without tools so the model
		// has to answer in text.
		if round >= o.cfg.MaxToolRounds {
			req.Tools = nil
		}

		if err := r.machine.advance(StateModelReinvoked); err != nil {
			return nil, err
		}
		next, err := o.invoke(ctx, req)
		if err != nil {
			slog.Warn("Model reinvocation failed", "workspace", caller.WorkspaceID, "round", round, "error", err)
			summaryFailed = true
			text = ""
			break
		}
		resp = next
		text = resp.TextContent()

		if round >= o.cfg.MaxToolRounds && resp.HasToolCalls() {
			slog.Warn("Tool round limit reached, ignoring further tool calls",
				"workspace", caller.WorkspaceID,
				"limit", o.cfg.MaxToolRounds,
				"ignored", len(resp.ToolCalls))
			break
		}
	}

	message := text
	switch {
	case summaryFailed:
		message = joinNonEmpty(resultMessages(r.outcomes), SummaryFallback)
	case message == "":
		message = joinNonEmpty(resultMessages(r.outcomes))
		if message == "" {
			message = emptyReply
		}
	}
	return o.assemble(r, message, false)
}

// retrieve fetches workspace knowledge. Failures and timeouts degrade to an
// empty context.
func (o *Orchestrator) retrieve(ctx context.Context, query, workspaceID string) *rag.Context {
	if o.retriever == nil {
		return rag.EmptyContext()
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.RetrievalTimeout)
	defer cancel()

	start := time.Now()
	result, err := o.retriever.Retrieve(ctx, query, workspaceID, o.cfg.MaxResults)
	if err == nil && result == nil {
		result = rag.EmptyContext()
	}
	sources := 0
	if result != nil {
		sources = len(result.Sources)
	}
	o.metrics.RecordRetrieval(ctx, sources, time.Since(start), err)

	if err != nil {
		slog.Warn("Context retrieval failed, continuing without context",
			"workspace", workspaceID,
			"error", err)
		return rag.EmptyContext()
	}
	return result
}

// buildMessages converts the trimmed history and appends the new message.
func (o *Orchestrator) buildMessages(userText string, conv Conversation) []model.Message {
	history := TrimHistory(conv.Messages, o.tokens, o.cfg.MaxHistoryTokens)

	msgs := make([]model.Message, 0, len(history)+1)
	for _, m := range history {
		msgs = append(msgs, model.TextMessage(model.Role(m.Role), m.Content))
	}
	return append(msgs, model.TextMessage(model.RoleUser, userText))
}

func (o *Orchestrator) toolDefinitions(caller auth.Caller) []tool.Definition {
	registry := o.executor.Registry()
	if o.cfg.ExposeOnlyPermittedTools {
		return registry.DefinitionsFor(caller.Permissions)
	}
	return registry.ListForModel()
}

// invoke performs one model call under ModelTimeout.
func (o *Orchestrator) invoke(ctx context.Context, req *model.Request) (*model.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.ModelTimeout)
	defer cancel()

	start := time.Now()
	resp, err := o.llm.GenerateContent(ctx, req)
	if err == nil && resp == nil {
		err = fmt.Errorf("%w: empty response", model.ErrInvocation)
	}
	if err != nil && !errors.Is(err, model.ErrInvocation) {
		err = fmt.Errorf("%w: %w", model.ErrInvocation, err)
	}

	var in, out int
	if resp != nil && resp.Usage != nil {
		in, out = resp.Usage.PromptTokens, resp.Usage.CompletionTokens
	}
	o.metrics.RecordLLMCall(ctx, o.llm.Name(), time.Since(start), in, out, err)

	if err != nil {
		return nil, err
	}
	slog.Debug("Model responded",
		"model", o.llm.Name(),
		"tool_calls", len(resp.ToolCalls),
		"finish_reason", resp.FinishReason,
		"duration", time.Since(start))
	return resp, nil
}

func (o *Orchestrator) assemble(r *run, message string, degraded bool) (*Response, error) {
	if err := r.machine.advance(StateResponseAssembled); err != nil {
		return nil, err
	}

	resp := &Response{
		Message:            message,
		Actions:            []tool.Action{},
		SuggestedFollowUps: FollowUps(r.outcomes),
		Degraded:           degraded,
	}
	for _, out := range r.outcomes {
		resp.ToolCalls = append(resp.ToolCalls, out.Call)
		resp.ToolResults = append(resp.ToolResults, out.Result)
		if out.Result.Success && out.Result.Action != nil {
			resp.Actions = append(resp.Actions, *out.Result.Action)
		}
	}

	if err := r.machine.advance(StateDone); err != nil {
		return nil, err
	}
	resp.Trace = r.machine.history()
	return resp, nil
}

func resultMessages(outcomes []ToolOutcome) []string {
	msgs := make([]string, 0, len(outcomes))
	for _, out := range outcomes {
		msgs = append(msgs, out.Result.Message)
	}
	return msgs
}

func joinNonEmpty(parts []string, extra ...string) string {
	var kept []string
	for _, p := range append(parts, extra...) {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}
