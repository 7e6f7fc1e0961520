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
	"errors"
	"fmt"
)

// State is a step of message processing.
type State string

const (
	StateIdle              State = "idle"
	StateContextRetrieved  State = "context_retrieved"
	StateModelInvoked      State = "model_invoked"
	StateToolCallsPending  State = "tool_calls_pending"
	StateToolsExecuted     State = "tools_executed"
	StateModelReinvoked    State = "model_reinvoked"
	StateResponseAssembled State = "response_assembled"
	StateDone              State = "done"
)

// ErrIllegalTransition is returned when processing attempts a transition
// missing from the table. It indicates a bug, never bad input.
var ErrIllegalTransition = errors.New("illegal state transition")

var transitions = map[State][]State{
	StateIdle:              {StateContextRetrieved},
	StateContextRetrieved:  {StateModelInvoked},
	StateModelInvoked:      {StateToolCallsPending, StateResponseAssembled},
	StateToolCallsPending:  {StateToolsExecuted},
	StateToolsExecuted:     {StateModelReinvoked, StateResponseAssembled},
	StateModelReinvoked:    {StateToolCallsPending, StateResponseAssembled},
	StateResponseAssembled: {StateDone},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// machine tracks the state of one ProcessMessage call.
type machine struct {
	state State
	trace []State
}

func newMachine() *machine {
	return &machine{state: StateIdle, trace: []State{StateIdle}}
}

func (m *machine) advance(to State) error {
	if !CanTransition(m.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, m.state, to)
	}
	m.state = to
	m.trace = append(m.trace, to)
	return nil
}

func (m *machine) history() []State {
	return append([]State(nil), m.trace...)
}
