/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package tour

import "fmt"

// State is the tour position. An idle tour always sits at step 0.
type State struct {
	Running   bool
	StepIndex int
}

// Idle is the state before the tour starts and after it ends.
var Idle = State{}

func (s State) String() string {
	if !s.Running {
		return "idle"
	}
	return fmt.Sprintf("running(%d)", s.StepIndex)
}

// Kind discriminates tour events.
type Kind int

const (
	KindStart Kind = iota
	KindStepAfter
	KindFinished
	KindSkipped
)

func (k Kind) String() string {
	switch k {
	case KindStart:
		return "start"
	case KindStepAfter:
		return "step_after"
	case KindFinished:
		return "finished"
	case KindSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Action is the navigation that completed a step.
type Action int

const (
	ActionNext Action = iota
	ActionPrev
)

func (a Action) String() string {
	if a == ActionPrev {
		return "prev"
	}
	return "next"
}

// Event is reported by the tour overlay. Index is the step the overlay was
// showing; Action only matters for KindStepAfter.
type Event struct {
	Kind   Kind
	Index  int
	Action Action
}

// Reduce computes the state after ev for a tour of n steps. It is pure.
func Reduce(s State, ev Event, n int) State {
	switch ev.Kind {
	case KindStart:
		if s.Running || n <= 0 {
			return s
		}
		return State{Running: true}
	case KindFinished, KindSkipped:
		return Idle
	case KindStepAfter:
		if !s.Running {
			return s
		}
		i := s.StepIndex
		if ev.Index >= 0 && ev.Index < n {
			i = ev.Index
		}
		if ev.Action == ActionPrev {
			if i > 0 {
				i--
			}
			return State{Running: true, StepIndex: i}
		}
		if i+1 < n {
			return State{Running: true, StepIndex: i + 1}
		}
		return Idle
	}
	return s
}
