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
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	applog "overlaycard/internal/log"
)

// DefaultDelay is how long after Mount the tour starts on its own.
const DefaultDelay = time.Second

// Timer is a pending AfterFunc.
type Timer interface {
	Stop() bool
}

// Clock schedules the auto-start.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Option configures a Coordinator.
type Option func(*Coordinator)

func WithClock(c Clock) Option { return func(co *Coordinator) { co.clock = c } }

func WithDelay(d time.Duration) Option { return func(co *Coordinator) { co.delay = d } }

func WithLogger(l *slog.Logger) Option { return func(co *Coordinator) { co.log = l } }

// WithAnchors declares which anchors the host renders; Mount logs steps
// pointing elsewhere.
func WithAnchors(ids ...AnchorID) Option {
	return func(co *Coordinator) { co.anchors = ids }
}

// WithOnChange is called after every state transition, outside the lock and
// on whatever goroutine caused it (the timer goroutine for auto-start).
func WithOnChange(fn func(State)) Option { return func(co *Coordinator) { co.onChange = fn } }

// WithOnFinish is called once per run when a running tour ends, with
// KindFinished or KindSkipped.
func WithOnFinish(fn func(Kind)) Option { return func(co *Coordinator) { co.onFinish = fn } }

// Coordinator owns the tour state for one mounted window.
type Coordinator struct {
	mu       sync.Mutex
	steps    []Step
	state    State
	clock    Clock
	delay    time.Duration
	log      *slog.Logger
	anchors  []AnchorID
	onChange func(State)
	onFinish func(Kind)

	timer    Timer
	touched  bool // a start or finish happened
	disposed bool
}

// NewCoordinator creates an idle coordinator for steps.
func NewCoordinator(steps []Step, opts ...Option) *Coordinator {
	c := &Coordinator{
		steps: append([]Step(nil), steps...),
		clock: realClock{},
		delay: DefaultDelay,
	}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = applog.WithComponent("tour")
	}
	return c
}

// Mount schedules the one-shot auto-start. Calling it again is a no-op.
func (c *Coordinator) Mount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed || c.timer != nil {
		return
	}
	if c.anchors != nil {
		if err := ValidateAnchors(c.steps, c.anchors); err != nil {
			c.log.Warn("tour anchors missing", slog.String("err", err.Error()))
		}
	}
	c.timer = c.clock.AfterFunc(c.delay, c.autoStart)
	c.log.Debug("tour scheduled", slog.Duration("delay", c.delay))
}

func (c *Coordinator) autoStart() {
	c.mu.Lock()
	if c.disposed || c.touched {
		c.mu.Unlock()
		return
	}
	n := c.apply(Event{Kind: KindStart})
	c.mu.Unlock()
	n.fire()
	c.log.Info("tour auto-started")
}

// Unmount cancels a pending auto-start and disposes the coordinator; later
// timer fires and dispatches are ignored.
func (c *Coordinator) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.disposed = true
}

// Start begins the tour manually. It is idempotent while running.
func (c *Coordinator) Start() { c.Dispatch(Event{Kind: KindStart}) }

// Next completes the current step forward; past the last step the tour ends.
func (c *Coordinator) Next() { c.step(ActionNext) }

// Back returns to the previous step, staying on the first one.
func (c *Coordinator) Back() { c.step(ActionPrev) }

// Skip aborts the tour.
func (c *Coordinator) Skip() { c.Dispatch(Event{Kind: KindSkipped}) }

// Finish ends the tour as completed.
func (c *Coordinator) Finish() { c.Dispatch(Event{Kind: KindFinished}) }

func (c *Coordinator) step(a Action) {
	c.mu.Lock()
	idx := c.state.StepIndex
	c.mu.Unlock()
	c.Dispatch(Event{Kind: KindStepAfter, Index: idx, Action: a})
}

// Dispatch feeds ev through Reduce and notifies the host.
func (c *Coordinator) Dispatch(ev Event) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	n := c.apply(ev)
	c.mu.Unlock()
	n.fire()
}

type notice struct {
	onChange func(State)
	onFinish func(Kind)
	state    State
	changed  bool
	ended    bool
	reason   Kind
}

func (n notice) fire() {
	if n.changed && n.onChange != nil {
		n.onChange(n.state)
	}
	if n.ended && n.onFinish != nil {
		n.onFinish(n.reason)
	}
}

// apply must be called with c.mu held.
func (c *Coordinator) apply(ev Event) notice {
	prev := c.state
	next := Reduce(prev, ev, len(c.steps))
	switch ev.Kind {
	case KindStart, KindFinished, KindSkipped:
		c.touched = true
	}
	c.state = next
	n := notice{onChange: c.onChange, onFinish: c.onFinish, state: next, changed: next != prev}
	if prev.Running && !next.Running {
		n.ended = true
		n.reason = KindFinished
		if ev.Kind == KindSkipped {
			n.reason = KindSkipped
		}
		c.log.Info("tour ended", slog.String("reason", n.reason.String()), slog.Int("step", prev.StepIndex))
	}
	if n.changed {
		c.log.Debug("tour transition", slog.String("event", ev.Kind.String()), slog.String("from", prev.String()), slog.String("to", next.String()))
	}
	return n
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Steps returns a copy of the tour steps.
func (c *Coordinator) Steps() []Step {
	return append([]Step(nil), c.steps...)
}

// Current returns the step on display, if the tour is running.
func (c *Coordinator) Current() (Step, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Running || c.state.StepIndex >= len(c.steps) {
		return Step{}, false
	}
	return c.steps[c.state.StepIndex], true
}

// Progress renders the position as "1/2"; empty while idle.
func (c *Coordinator) Progress() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Running {
		return ""
	}
	return fmt.Sprintf("%d/%d", c.state.StepIndex+1, len(c.steps))
}

// IsLast reports whether the running tour shows its final step.
func (c *Coordinator) IsLast() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Running && c.state.StepIndex == len(c.steps)-1
}

// MissingAnchorsError lists step targets the host does not render.
type MissingAnchorsError struct {
	IDs []AnchorID
}

func (e *MissingAnchorsError) Error() string {
	s := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		s[i] = string(id)
	}
	return "tour: missing anchors: " + strings.Join(s, ", ")
}

// ErrNoSteps is returned by ValidateAnchors for an empty tour.
var ErrNoSteps = errors.New("tour: no steps")

// ValidateAnchors checks that every step target is among anchors.
func ValidateAnchors(steps []Step, anchors []AnchorID) error {
	if len(steps) == 0 {
		return ErrNoSteps
	}
	have := make(map[AnchorID]bool, len(anchors))
	for _, a := range anchors {
		have[a] = true
	}
	var missing []AnchorID
	for _, s := range steps {
		if !have[s.Target] {
			missing = append(missing, s.Target)
		}
	}
	if len(missing) > 0 {
		return &MissingAnchorsError{IDs: missing}
	}
	return nil
}
