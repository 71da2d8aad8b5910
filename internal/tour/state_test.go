/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package tour

import "testing"

func TestReduce(t *testing.T) {
	const n = 2
	tests := []struct {
		name string
		in   State
		ev   Event
		want State
	}{
		{"start from idle", Idle, Event{Kind: KindStart}, State{Running: true}},
		{"start while running is a no-op", State{Running: true, StepIndex: 1}, Event{Kind: KindStart}, State{Running: true, StepIndex: 1}},
		{"next", State{Running: true}, Event{Kind: KindStepAfter, Index: 0, Action: ActionNext}, State{Running: true, StepIndex: 1}},
		{"next from last finishes", State{Running: true, StepIndex: 1}, Event{Kind: KindStepAfter, Index: 1, Action: ActionNext}, Idle},
		{"prev", State{Running: true, StepIndex: 1}, Event{Kind: KindStepAfter, Index: 1, Action: ActionPrev}, State{Running: true}},
		{"prev clamps at zero", State{Running: true}, Event{Kind: KindStepAfter, Index: 0, Action: ActionPrev}, State{Running: true}},
		{"event index out of range uses state", State{Running: true}, Event{Kind: KindStepAfter, Index: 7, Action: ActionNext}, State{Running: true, StepIndex: 1}},
		{"event index wins when valid", State{Running: true}, Event{Kind: KindStepAfter, Index: 1, Action: ActionNext}, Idle},
		{"step while idle ignored", Idle, Event{Kind: KindStepAfter, Action: ActionNext}, Idle},
		{"finished", State{Running: true, StepIndex: 1}, Event{Kind: KindFinished}, Idle},
		{"skipped while idle", Idle, Event{Kind: KindSkipped}, Idle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Reduce(tt.in, tt.ev, n); got != tt.want {
				t.Fatalf("Reduce(%v, %+v) = %v, want %v", tt.in, tt.ev, got, tt.want)
			}
		})
	}
}

func TestReduce_TerminateFromAnyStep(t *testing.T) {
	const n = 5
	for i := 0; i < n; i++ {
		for _, k := range []Kind{KindFinished, KindSkipped} {
			if got := Reduce(State{Running: true, StepIndex: i}, Event{Kind: k, Index: i}, n); got != Idle {
				t.Fatalf("%v from step %d = %v", k, i, got)
			}
		}
	}
}

func TestReduce_StartTwiceEqualsOnce(t *testing.T) {
	once := Reduce(Idle, Event{Kind: KindStart}, 2)
	twice := Reduce(once, Event{Kind: KindStart}, 2)
	if once != twice {
		t.Fatalf("once=%v twice=%v", once, twice)
	}
}

func TestReduce_EmptyTourNeverRuns(t *testing.T) {
	if got := Reduce(Idle, Event{Kind: KindStart}, 0); got != Idle {
		t.Fatalf("got %v", got)
	}
}

func TestReduce_InvariantsHold(t *testing.T) {
	const n = 3
	events := []Event{
		{Kind: KindStart},
		{Kind: KindStepAfter, Action: ActionPrev, Index: -1},
		{Kind: KindStepAfter, Action: ActionNext, Index: -1},
		{Kind: KindStepAfter, Action: ActionNext, Index: 2},
		{Kind: KindFinished},
		{Kind: KindSkipped},
	}
	// walk every event sequence of length 4
	var walk func(s State, depth int)
	walk = func(s State, depth int) {
		if s.StepIndex < 0 || s.StepIndex > n || (!s.Running && s.StepIndex != 0) {
			t.Fatalf("invariant broken: %v", s)
		}
		if depth == 0 {
			return
		}
		for _, ev := range events {
			walk(Reduce(s, ev, n), depth-1)
		}
	}
	walk(Idle, 4)
}
