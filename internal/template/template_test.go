/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package template

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"overlaycard/internal/textlayout"
)

func TestDefault(t *testing.T) {
	tpl := Default()
	if tpl.Width != 1080 || tpl.Height != 1350 {
		t.Fatalf("unexpected default size %dx%d", tpl.Width, tpl.Height)
	}
	if tpl.Font.Family != textlayout.BuiltinFamily {
		t.Fatalf("default font = %q", tpl.Font.Family)
	}
	if tpl.FontSources() != nil {
		t.Fatalf("default template should not need font files")
	}
	bg, err := tpl.LoadBackground()
	if err != nil {
		t.Fatalf("LoadBackground: %v", err)
	}
	if b := bg.Bounds(); b.Dx() != 1080 || b.Dy() != 1350 {
		t.Fatalf("gradient bounds = %v", b)
	}
}

func TestParse_ResolvesRelativeAssets(t *testing.T) {
	dir := t.TempDir()
	bgPath := filepath.Join(dir, "bg.png")
	img := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	img.Set(1, 1, color.NRGBA{R: 200, A: 255})
	f, err := os.Create(bgPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	doc := []byte(`{
		"name": "ramadan",
		"background": "bg.png",
		"font": {"family": "MyFont", "path": "fonts/my.ttf", "size": 32},
		"text": {"color": "#ffcc00", "bottom": 24}
	}`)
	tpl, err := Parse(filepath.Join(dir, "card.json"), doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	srcs := tpl.FontSources()
	if len(srcs) != 1 || srcs[0].Path != filepath.Join(dir, "fonts", "my.ttf") || srcs[0].Family != "MyFont" {
		t.Fatalf("unexpected font sources: %+v", srcs)
	}
	if tpl.Text.Bottom != 24 || tpl.Text.MaxWidth != 0.9 {
		t.Fatalf("defaults not applied around explicit values: %+v", tpl.Text)
	}
	bg, err := tpl.LoadBackground()
	if err != nil {
		t.Fatalf("LoadBackground: %v", err)
	}
	if b := bg.Bounds(); b.Dx() != 40 || b.Dy() != 30 {
		t.Fatalf("background bounds = %v", b)
	}
	r, _, _, _ := tpl.TextColor().RGBA()
	if r>>8 != 0xff {
		t.Fatalf("text color red = %x", r>>8)
	}
}

func TestParse_RejectsSchemaViolations(t *testing.T) {
	cases := map[string]string{
		"bad color":     `{"text": {"color": "white"}}`,
		"unknown field": `{"foreground": "x.png"}`,
		"max width":     `{"text": {"max_width": 1.5}}`,
		"tiny canvas":   `{"width": 2}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse("card.json", []byte(doc))
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(ve.Issues) == 0 {
				t.Fatalf("validation error carries no issues")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected error for missing template")
	}
}

func TestLoadBackground_MissingImage(t *testing.T) {
	tpl, err := Parse(filepath.Join(t.TempDir(), "card.json"), []byte(`{"background": "missing.png"}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := tpl.LoadBackground(); err == nil {
		t.Fatalf("expected error for missing background")
	}
}
