/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package template describes the card a user writes on: the background
// image, the overlay font and where the text sits. Templates are JSON files
// validated against an embedded JSON schema.
package template

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/gg"
	"github.com/xeipuuv/gojsonschema"
	_ "golang.org/x/image/webp"

	"overlaycard/internal/textlayout"
)

//go:embed template.schema.json
var schemaJSON []byte

var schemaLoader = gojsonschema.NewBytesLoader(schemaJSON)

// Font selects the overlay font. Path is resolved relative to the template file.
type Font struct {
	Family string  `json:"family,omitempty"`
	Path   string  `json:"path,omitempty"`
	Size   float32 `json:"size,omitempty"`
	Weight int     `json:"weight,omitempty"`
	Italic bool    `json:"italic,omitempty"`
}

// Text controls the look of the overlay: a rounded translucent backdrop with
// the text centered inside, anchored Bottom pixels above the lower edge.
type Text struct {
	Color       string  `json:"color,omitempty"`
	Backdrop    string  `json:"backdrop,omitempty"`
	Bottom      float64 `json:"bottom,omitempty"`
	MaxWidth    float64 `json:"max_width,omitempty"`
	MinChars    int     `json:"min_chars,omitempty"`
	Radius      float64 `json:"radius,omitempty"`
	PaddingX    float64 `json:"padding_x,omitempty"`
	PaddingY    float64 `json:"padding_y,omitempty"`
	Placeholder string  `json:"placeholder,omitempty"`
}

// Template is a card definition. Width/Height are only used when no
// background image is configured.
type Template struct {
	Name       string `json:"name,omitempty"`
	Background string `json:"background,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	Font       Font   `json:"font"`
	Text       Text   `json:"text"`

	dir string
}

// Default returns the built-in template: a generated gradient card with the
// builtin bold font.
func Default() Template {
	t := Template{Name: "default"}
	t.applyDefaults()
	return t
}

func (t *Template) applyDefaults() {
	if t.Name == "" {
		t.Name = "card"
	}
	if t.Width <= 0 {
		t.Width = 1080
	}
	if t.Height <= 0 {
		t.Height = 1350
	}
	if t.Font.Family == "" {
		t.Font.Family = textlayout.BuiltinFamily
	}
	if t.Font.Size <= 0 {
		t.Font.Size = 48
	}
	if t.Font.Weight == 0 {
		t.Font.Weight = 400
	}
	if t.Text.Color == "" {
		t.Text.Color = "#ffffff"
	}
	if t.Text.Backdrop == "" {
		t.Text.Backdrop = "#00000080"
	}
	if t.Text.Bottom == 0 {
		t.Text.Bottom = 16
	}
	if t.Text.MaxWidth == 0 {
		t.Text.MaxWidth = 0.9
	}
	if t.Text.MinChars == 0 {
		t.Text.MinChars = 20
	}
	if t.Text.Radius == 0 {
		t.Text.Radius = 8
	}
	if t.Text.PaddingX == 0 {
		t.Text.PaddingX = 16
	}
	if t.Text.PaddingY == 0 {
		t.Text.PaddingY = 8
	}
	if t.Text.Placeholder == "" {
		t.Text.Placeholder = "Enter text…"
	}
}

// ValidationError lists the schema violations of a template document.
type ValidationError struct {
	Path   string
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("template %s is invalid: %s", e.Path, strings.Join(e.Issues, "; "))
}

// Load reads, validates and decodes a template file.
func Load(path string) (Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Template{}, fmt.Errorf("read template: %w", err)
	}
	return Parse(path, data)
}

// Parse validates data against the schema and decodes it. path is used to
// resolve relative asset paths and in error messages.
func Parse(path string, data []byte) (Template, error) {
	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return Template{}, fmt.Errorf("validate template %s: %w", path, err)
	}
	if !res.Valid() {
		ve := &ValidationError{Path: path}
		for _, e := range res.Errors() {
			ve.Issues = append(ve.Issues, e.String())
		}
		return Template{}, ve
	}
	var t Template
	if err := json.Unmarshal(data, &t); err != nil {
		return Template{}, fmt.Errorf("decode template %s: %w", path, err)
	}
	t.dir = filepath.Dir(path)
	t.applyDefaults()
	return t, nil
}

func (t Template) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || t.dir == "" {
		return p
	}
	return filepath.Join(t.dir, p)
}

// FontSources lists the font files the template needs loaded.
func (t Template) FontSources() []textlayout.FontSource {
	if t.Font.Path == "" {
		return nil
	}
	return []textlayout.FontSource{{
		Family: t.Font.Family,
		Weight: t.Font.Weight,
		Italic: t.Font.Italic,
		Path:   t.resolve(t.Font.Path),
	}}
}

// FontSpec is the requested overlay font at its configured size.
func (t Template) FontSpec() textlayout.FontSpec {
	return textlayout.FontSpec{Family: t.Font.Family, SizePt: t.Font.Size, Weight: t.Font.Weight, Italic: t.Font.Italic}
}

// TextColor parses the configured text color.
func (t Template) TextColor() color.Color { return gg.Hex(t.Text.Color).Color() }

// BackdropRGBA is the backdrop fill in gg's straight-alpha form.
func (t Template) BackdropRGBA() gg.RGBA { return gg.Hex(t.Text.Backdrop) }

// LoadBackground decodes the background image (PNG, JPEG or WebP). Without a
// configured background a gradient card of Width x Height is generated.
func (t Template) LoadBackground() (image.Image, error) {
	if t.Background == "" {
		return Gradient(t.Width, t.Height), nil
	}
	f, err := os.Open(t.resolve(t.Background))
	if err != nil {
		return nil, fmt.Errorf("open background: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode background %s: %w", t.Background, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, errors.New("background image is empty")
	}
	return img, nil
}

// Gradient renders the built-in background: a diagonal night-sky gradient.
func Gradient(w, h int) image.Image {
	dc := gg.NewContext(w, h)
	defer dc.Close()
	dc.SetFillBrush(gg.NewLinearGradientBrush(0, 0, float64(w), float64(h)).
		AddColorStop(0, gg.Hex("#1b1440")).
		AddColorStop(0.6, gg.Hex("#3b2a6b")).
		AddColorStop(1, gg.Hex("#c98b2b")))
	dc.DrawRectangle(0, 0, float64(w), float64(h))
	_ = dc.Fill()
	return dc.Image()
}
