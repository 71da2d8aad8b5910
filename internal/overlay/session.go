/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package overlay holds the card being edited: the overlay text the user types
// and the composer that renders it onto the template background.
package overlay

import (
	"context"
	"sync"

	"overlaycard/internal/export"
)

// Session owns the overlay text for one window. SetText and RequestExport are
// the two callbacks handed to the host UI.
type Session struct {
	mu        sync.RWMutex
	text      string
	listeners []func(string)

	engine  *export.Engine
	surface export.Surface
}

// NewSession creates a session with empty text. surface may be nil until the
// host attaches one.
func NewSession(engine *export.Engine, surface export.Surface) *Session {
	return &Session{engine: engine, surface: surface}
}

// SetText commits the latest text and notifies listeners synchronously.
func (s *Session) SetText(text string) {
	s.mu.Lock()
	s.text = text
	ls := append([]func(string){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range ls {
		fn(text)
	}
}

// Text returns the most recently committed text.
func (s *Session) Text() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text
}

// OnChange registers fn to run after every SetText.
func (s *Session) OnChange(fn func(string)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Attach sets the surface exports capture from; nil detaches it.
func (s *Session) Attach(surface export.Surface) {
	s.mu.Lock()
	s.surface = surface
	s.mu.Unlock()
}

// RequestExport captures the attached surface and saves it under a name
// derived from the current text. Without a surface it does nothing.
func (s *Session) RequestExport(ctx context.Context) (export.Result, error) {
	s.mu.RLock()
	text, surface := s.text, s.surface
	s.mu.RUnlock()
	e := s.engine
	if e == nil {
		e = &export.Engine{}
	}
	return e.RequestExport(ctx, surface, text)
}
