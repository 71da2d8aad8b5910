/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package tour

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeTimer struct {
	clock   *fakeClock
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// fakeClock fires timers only when Fire is called. Fire ignores Stop so tests
// can model a timer callback racing with cancellation.
type fakeClock struct {
	mu     sync.Mutex
	delays []time.Duration
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, f: f}
	c.delays = append(c.delays, d)
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Fire(ignoreStop bool) {
	c.mu.Lock()
	var fs []func()
	for _, t := range c.timers {
		if t.fired || (t.stopped && !ignoreStop) {
			continue
		}
		t.fired = true
		fs = append(fs, t.f)
	}
	c.mu.Unlock()
	for _, f := range fs {
		f()
	}
}

func TestCoordinator_AutoStartScenario(t *testing.T) {
	clk := &fakeClock{}
	var finished []Kind
	c := NewCoordinator(DefaultSteps(), WithClock(clk), WithOnFinish(func(k Kind) { finished = append(finished, k) }))
	c.Mount()
	if len(clk.delays) != 1 || clk.delays[0] != DefaultDelay {
		t.Fatalf("scheduled %v", clk.delays)
	}
	if c.State() != Idle {
		t.Fatalf("started before timer fired: %v", c.State())
	}
	clk.Fire(false)

	step, ok := c.Current()
	if !ok || step.Target != AnchorTextInput || c.Progress() != "1/2" {
		t.Fatalf("after auto-start: %+v %v %q", step, ok, c.Progress())
	}
	c.Next()
	step, ok = c.Current()
	if !ok || step.Target != AnchorDownloadBtn || !c.IsLast() {
		t.Fatalf("after next: %+v %v", step, ok)
	}
	c.Skip()
	if c.State() != Idle {
		t.Fatalf("after skip: %v", c.State())
	}
	if len(finished) != 1 || finished[0] != KindSkipped {
		t.Fatalf("onFinish calls %v", finished)
	}
}

func TestCoordinator_NextFromLastFinishes(t *testing.T) {
	var finished []Kind
	c := NewCoordinator(DefaultSteps(), WithClock(&fakeClock{}), WithOnFinish(func(k Kind) { finished = append(finished, k) }))
	c.Start()
	c.Next()
	c.Next()
	if c.State() != Idle || c.Progress() != "" {
		t.Fatalf("state %v progress %q", c.State(), c.Progress())
	}
	if len(finished) != 1 || finished[0] != KindFinished {
		t.Fatalf("onFinish calls %v", finished)
	}
}

func TestCoordinator_BackClampsAtFirstStep(t *testing.T) {
	c := NewCoordinator(DefaultSteps(), WithClock(&fakeClock{}))
	c.Start()
	c.Back()
	if got := c.State(); got != (State{Running: true}) {
		t.Fatalf("got %v", got)
	}
}

func TestCoordinator_StartTwiceIsOnce(t *testing.T) {
	var changes []State
	c := NewCoordinator(DefaultSteps(), WithClock(&fakeClock{}), WithOnChange(func(s State) { changes = append(changes, s) }))
	c.Start()
	c.Next()
	c.Start()
	if got := c.State(); got != (State{Running: true, StepIndex: 1}) {
		t.Fatalf("second start moved the tour: %v", got)
	}
	if len(changes) != 2 {
		t.Fatalf("changes %v", changes)
	}
}

func TestCoordinator_UnmountCancelsAutoStart(t *testing.T) {
	clk := &fakeClock{}
	c := NewCoordinator(DefaultSteps(), WithClock(clk), WithDelay(50*time.Millisecond))
	c.Mount()
	c.Unmount()
	if !clk.timers[0].stopped {
		t.Fatal("timer not stopped")
	}
	clk.Fire(true)
	if c.State() != Idle {
		t.Fatalf("disposed coordinator started: %v", c.State())
	}
	c.Start()
	if c.State() != Idle {
		t.Fatalf("dispatch after unmount changed state: %v", c.State())
	}
}

func TestCoordinator_AutoStartSkippedAfterManualRun(t *testing.T) {
	clk := &fakeClock{}
	c := NewCoordinator(DefaultSteps(), WithClock(clk))
	c.Mount()
	c.Start()
	c.Finish()
	clk.Fire(false)
	if c.State() != Idle {
		t.Fatalf("auto-start reopened a finished tour: %v", c.State())
	}
}

func TestCoordinator_MountTwiceSchedulesOnce(t *testing.T) {
	clk := &fakeClock{}
	c := NewCoordinator(DefaultSteps(), WithClock(clk), WithAnchors(AnchorTextInput, AnchorDownloadBtn))
	c.Mount()
	c.Mount()
	if len(clk.timers) != 1 {
		t.Fatalf("timers = %d", len(clk.timers))
	}
}

func TestCoordinator_RealClock(t *testing.T) {
	started := make(chan State, 1)
	c := NewCoordinator(DefaultSteps(), WithDelay(time.Millisecond), WithOnChange(func(s State) { started <- s }))
	c.Mount()
	defer c.Unmount()
	select {
	case s := <-started:
		if s != (State{Running: true}) {
			t.Fatalf("got %v", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("auto-start never fired")
	}
}

func TestValidateAnchors(t *testing.T) {
	if err := ValidateAnchors(DefaultSteps(), []AnchorID{AnchorTextInput, AnchorDownloadBtn}); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	err := ValidateAnchors(DefaultSteps(), []AnchorID{AnchorTextInput})
	var missing *MissingAnchorsError
	if !errors.As(err, &missing) || len(missing.IDs) != 1 || missing.IDs[0] != AnchorDownloadBtn {
		t.Fatalf("got %v", err)
	}
	if !errors.Is(ValidateAnchors(nil, nil), ErrNoSteps) {
		t.Fatal("expected ErrNoSteps")
	}
}

func TestDefaultSteps(t *testing.T) {
	steps := DefaultSteps()
	if len(steps) != 2 {
		t.Fatalf("len = %d", len(steps))
	}
	for _, s := range steps {
		if s.Placement != PlacementTop || s.SpotlightPadding != 8 || s.Content == "" {
			t.Fatalf("unexpected step %+v", s)
		}
	}
}
