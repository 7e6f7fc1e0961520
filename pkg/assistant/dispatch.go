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
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/galaxyco/copilot/pkg/auth"
	"github.com/galaxyco/copilot/pkg/tool"
)

// ToolExecutor runs tool calls. *tool.Executor implements it.
type ToolExecutor interface {
	Execute(ctx context.Context, call tool.Call, caller auth.Caller) *tool.Result
	Registry() *tool.Registry
}

var _ ToolExecutor = (*tool.Executor)(nil)

// dispatcher executes one batch of calls. Results are indexed like calls.
type dispatcher struct {
	executor ToolExecutor
	parallel bool
	limit    int
}

func (d *dispatcher) run(ctx context.Context, calls []tool.Call, caller auth.Caller) []ToolOutcome {
	outcomes := make([]ToolOutcome, len(calls))

	for i := 0; i < len(calls); {
		if !d.parallel || !d.isReadOnly(calls[i]) {
			outcomes[i] = ToolOutcome{Call: calls[i], Result: d.executor.Execute(ctx, calls[i], caller)}
			i++
			continue
		}

		// Run the maximal run of consecutive read-only calls together.
		j := i
		for j < len(calls) && d.isReadOnly(calls[j]) {
			j++
		}
		d.runGroup(ctx, calls[i:j], outcomes[i:j], caller)
		i = j
	}
	return outcomes
}

func (d *dispatcher) runGroup(ctx context.Context, calls []tool.Call, out []ToolOutcome, caller auth.Caller) {
	if len(calls) == 1 {
		out[0] = ToolOutcome{Call: calls[0], Result: d.executor.Execute(ctx, calls[0], caller)}
		return
	}

	var g errgroup.Group
	g.SetLimit(d.limit)
	for k := range calls {
		g.Go(func() error {
			out[k] = ToolOutcome{Call: calls[k], Result: d.executor.Execute(ctx, calls[k], caller)}
			return nil
		})
	}
	_ = g.Wait()
}

func (d *dispatcher) isReadOnly(call tool.Call) bool {
	t, err := d.executor.Registry().Lookup(call.Name)
	return err == nil && t.IsReadOnly()
}
