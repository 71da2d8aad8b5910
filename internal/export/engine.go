/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export turns a live overlay surface into a PNG file: it waits for
// fonts, rasterizes the surface, encodes it and hands the bytes to a Saver
// under a filename derived from the overlay text.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"reflect"
	"time"

	applog "overlaycard/internal/log"
)

// DefaultFontWait bounds the wait for font assets before rasterizing.
const DefaultFontWait = 3 * time.Second

// ErrNoSaver is returned when an Engine has nowhere to put the file.
var ErrNoSaver = errors.New("export: no saver configured")

// Surface is a capturable region: background plus the live text overlay.
// Snapshot returns the current pixels; transparent regions stay transparent.
type Surface interface {
	Snapshot(ctx context.Context) (image.Image, error)
}

// FontWaiter is implemented by surfaces whose fonts load asynchronously.
type FontWaiter interface {
	FontsReady() <-chan struct{}
}

// EventSink receives anonymous usage events (see internal/telemetry).
type EventSink interface {
	Event(name string, props map[string]any)
}

// Result describes a finished export.
type Result struct {
	Filename string
	Location string
	Bytes    int
	Width    int
	Height   int
}

// Engine runs exports. The zero value is not usable; Saver must be set.
type Engine struct {
	Saver    Saver
	FontWait time.Duration
	Logger   *slog.Logger
	Events   EventSink
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return applog.WithComponent("export")
}

// RequestExport captures surface and saves it as a PNG named after
// overlayText. A nil (unattached) surface is a silent no-op: zero Result,
// nil error, nothing saved. Rasterization, encoding and save failures are
// returned unretried.
func (e *Engine) RequestExport(ctx context.Context, surface Surface, overlayText string) (Result, error) {
	if isNil(surface) {
		return Result{}, nil
	}
	if e.Saver == nil {
		return Result{}, ErrNoSaver
	}
	l := applog.WithOperation(e.logger(), "export")
	start := time.Now()

	if err := e.waitFonts(ctx, surface, l); err != nil {
		return Result{}, err
	}

	img, err := surface.Snapshot(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("export: snapshot: %w", err)
	}
	if img == nil {
		return Result{}, errors.New("export: snapshot: surface returned no image")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Result{}, fmt.Errorf("export: encode png: %w", err)
	}

	name := Filename(overlayText)
	loc, err := e.Saver.Save(ctx, name, buf.Bytes())
	if err != nil {
		return Result{}, fmt.Errorf("export: save %s: %w", name, err)
	}

	b := img.Bounds()
	res := Result{Filename: name, Location: loc, Bytes: buf.Len(), Width: b.Dx(), Height: b.Dy()}
	l.Info("exported",
		slog.String("file", name),
		slog.String("location", loc),
		slog.Int("bytes", res.Bytes),
		slog.Duration("took", time.Since(start)))
	if e.Events != nil {
		e.Events.Event("export_completed", map[string]any{"width": res.Width, "height": res.Height, "bytes": res.Bytes})
	}
	return res, nil
}

// waitFonts blocks until the surface reports its fonts ready, the FontWait
// bound passes (logged, export continues with fallback glyphs) or ctx ends.
func (e *Engine) waitFonts(ctx context.Context, surface Surface, l *slog.Logger) error {
	fw, ok := surface.(FontWaiter)
	if !ok {
		return nil
	}
	ready := fw.FontsReady()
	if ready == nil {
		return nil
	}
	wait := e.FontWait
	if wait <= 0 {
		wait = DefaultFontWait
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ready:
		return nil
	case <-t.C:
		l.Warn("fonts not ready, exporting with fallback glyphs", slog.Duration("waited", wait))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("export: waiting for fonts: %w", ctx.Err())
	}
}

func isNil(s Surface) bool {
	if s == nil {
		return true
	}
	v := reflect.ValueOf(s)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Func, reflect.Slice, reflect.Chan:
		return v.IsNil()
	}
	return false
}
