/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type stubSurface struct {
	img   image.Image
	err   error
	ready chan struct{}
	shots int
}

func (s *stubSurface) Snapshot(context.Context) (image.Image, error) {
	s.shots++
	return s.img, s.err
}

type waitingSurface struct {
	stubSurface
}

func (w *waitingSurface) FontsReady() <-chan struct{} { return w.ready }

type recordingSaver struct {
	calls int
	name  string
	data  []byte
	err   error
}

func (r *recordingSaver) Save(_ context.Context, name string, data []byte) (string, error) {
	r.calls++
	r.name = name
	r.data = append([]byte(nil), data...)
	return "mem://" + name, r.err
}

type recordingSink struct{ names []string }

func (r *recordingSink) Event(name string, _ map[string]any) { r.names = append(r.names, name) }

func transparentCard() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 4))
	img.Set(2, 2, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	return img
}

func TestRequestExport_NilSurfaceIsNoop(t *testing.T) {
	saver := &recordingSaver{}
	sink := &recordingSink{}
	e := &Engine{Saver: saver, Events: sink}

	var typedNil *stubSurface
	for _, s := range []Surface{nil, typedNil} {
		res, err := e.RequestExport(context.Background(), s, "hello")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res != (Result{}) {
			t.Fatalf("expected zero result, got %+v", res)
		}
	}
	if saver.calls != 0 || len(sink.names) != 0 {
		t.Fatalf("nil surface caused side effects: saves=%d events=%v", saver.calls, sink.names)
	}
}

func TestRequestExport_EncodesAndSaves(t *testing.T) {
	saver := &recordingSaver{}
	sink := &recordingSink{}
	surf := &stubSurface{img: transparentCard()}
	e := &Engine{Saver: saver, Events: sink}

	res, err := e.RequestExport(context.Background(), surf, "Hello/World??")
	if err != nil {
		t.Fatalf("RequestExport: %v", err)
	}
	if res.Filename != "HelloWorld.png" || saver.name != "HelloWorld.png" {
		t.Fatalf("filename = %q / %q", res.Filename, saver.name)
	}
	if res.Location != "mem://HelloWorld.png" || res.Width != 8 || res.Height != 4 {
		t.Fatalf("unexpected result %+v", res)
	}
	decoded, err := png.Decode(bytes.NewReader(saver.data))
	if err != nil {
		t.Fatalf("saved bytes are not a PNG: %v", err)
	}
	if _, _, _, a := decoded.At(0, 0).RGBA(); a != 0 {
		t.Fatalf("transparent pixel lost alpha: a=%d", a)
	}
	if _, _, _, a := decoded.At(2, 2).RGBA(); a != 0xffff {
		t.Fatalf("opaque pixel alpha = %d", a)
	}
	if len(sink.names) != 1 || sink.names[0] != "export_completed" {
		t.Fatalf("events = %v", sink.names)
	}
}

func TestRequestExport_ReadsTextAtInvocation(t *testing.T) {
	saver := &recordingSaver{}
	e := &Engine{Saver: saver}
	surf := &stubSurface{img: transparentCard()}
	for _, text := range []string{"first", "second"} {
		if _, err := e.RequestExport(context.Background(), surf, text); err != nil {
			t.Fatal(err)
		}
		if saver.name != text+".png" {
			t.Fatalf("saved as %q, want %q", saver.name, text+".png")
		}
	}
	if surf.shots != 2 {
		t.Fatalf("expected a fresh snapshot per export, got %d", surf.shots)
	}
}

func TestRequestExport_SnapshotFailurePropagates(t *testing.T) {
	boom := errors.New("tainted")
	saver := &recordingSaver{}
	e := &Engine{Saver: saver}
	_, err := e.RequestExport(context.Background(), &stubSurface{err: boom}, "x")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped snapshot error, got %v", err)
	}
	if saver.calls != 0 {
		t.Fatalf("saver called after failed snapshot")
	}
}

func TestRequestExport_SaveFailurePropagates(t *testing.T) {
	boom := errors.New("disk full")
	e := &Engine{Saver: &recordingSaver{err: boom}}
	if _, err := e.RequestExport(context.Background(), &stubSurface{img: transparentCard()}, "x"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped save error, got %v", err)
	}
}

func TestRequestExport_NoSaver(t *testing.T) {
	e := &Engine{}
	if _, err := e.RequestExport(context.Background(), &stubSurface{img: transparentCard()}, "x"); !errors.Is(err, ErrNoSaver) {
		t.Fatalf("expected ErrNoSaver, got %v", err)
	}
}

func TestRequestExport_WaitsForFonts(t *testing.T) {
	surf := &waitingSurface{stubSurface{img: transparentCard(), ready: make(chan struct{})}}
	saver := &recordingSaver{}
	e := &Engine{Saver: saver, FontWait: 5 * time.Second}

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(surf.ready)
	}()
	if _, err := e.RequestExport(context.Background(), surf, "fonts"); err != nil {
		t.Fatalf("RequestExport: %v", err)
	}
	if saver.calls != 1 {
		t.Fatalf("expected one save after fonts became ready")
	}
}

func TestRequestExport_FontWaitTimeoutProceeds(t *testing.T) {
	surf := &waitingSurface{stubSurface{img: transparentCard(), ready: make(chan struct{})}}
	saver := &recordingSaver{}
	e := &Engine{Saver: saver, FontWait: 10 * time.Millisecond}
	if _, err := e.RequestExport(context.Background(), surf, "late"); err != nil {
		t.Fatalf("RequestExport: %v", err)
	}
	if saver.calls != 1 {
		t.Fatalf("export should proceed after the font wait bound")
	}
}

func TestRequestExport_CanceledWhileWaitingForFonts(t *testing.T) {
	surf := &waitingSurface{stubSurface{img: transparentCard(), ready: make(chan struct{})}}
	saver := &recordingSaver{}
	e := &Engine{Saver: saver, FontWait: time.Minute}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.RequestExport(ctx, surf, "x"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if surf.shots != 0 || saver.calls != 0 {
		t.Fatalf("canceled export must not snapshot or save")
	}
}

func TestDirSaver_NeverOverwrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s := DirSaver{Dir: dir}
	ctx := context.Background()

	p1, err := s.Save(ctx, "card.png", []byte("one"))
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	p2, err := s.Save(ctx, "card.png", []byte("two"))
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if filepath.Base(p1) != "card.png" || filepath.Base(p2) != "card-2.png" {
		t.Fatalf("unexpected paths %q %q", p1, p2)
	}
	if b, _ := os.ReadFile(p1); string(b) != "one" {
		t.Fatalf("first file overwritten: %q", b)
	}
	if b, _ := os.ReadFile(p2); string(b) != "two" {
		t.Fatalf("second file content: %q", b)
	}
}

func TestSaverFunc(t *testing.T) {
	var got string
	s := SaverFunc(func(_ context.Context, name string, _ []byte) (string, error) {
		got = name
		return "", nil
	})
	if _, err := s.Save(context.Background(), "a.png", nil); err != nil || got != "a.png" {
		t.Fatalf("SaverFunc not invoked correctly: %q %v", got, err)
	}
}
