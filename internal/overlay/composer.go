/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package overlay

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/gogpu/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"overlaycard/internal/template"
	"overlaycard/internal/textlayout"
)

// minFontPt is the smallest size long text is shrunk to.
const minFontPt = 8

// Composer renders a card: template background, rounded translucent backdrop
// and the overlay text centered on it. It is the export Surface of the app and
// also produces the live preview.
type Composer struct {
	tpl      template.Template
	fonts    *textlayout.FontLibrary
	provider textlayout.Provider
	base     *gg.Pixmap
	text     func() string
}

// NewComposer prepares the background of tpl. text is called on every
// Snapshot to pull the current overlay text; nil means no text.
func NewComposer(tpl template.Template, fonts *textlayout.FontLibrary, text func() string) (*Composer, error) {
	bg, err := tpl.LoadBackground()
	if err != nil {
		return nil, err
	}
	if fonts == nil {
		fonts = textlayout.NewFontLibrary()
	}
	fonts.LoadAsync(tpl.FontSources())
	return &Composer{
		tpl:      tpl,
		fonts:    fonts,
		provider: textlayout.OTProvider{Lib: fonts},
		base:     gg.FromImage(bg),
		text:     text,
	}, nil
}

// Size returns the card size in pixels.
func (c *Composer) Size() (int, int) { return c.base.Width(), c.base.Height() }

// Template returns the template the composer renders.
func (c *Composer) Template() template.Template { return c.tpl }

// FontsReady is closed once the template fonts finished loading.
func (c *Composer) FontsReady() <-chan struct{} { return c.fonts.Ready() }

// Snapshot renders the card with the text current at call time.
func (c *Composer) Snapshot(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var s string
	if c.text != nil {
		s = c.text()
	}
	return c.Render(s)
}

// Box is the placement of the overlay text inside the card.
type Box struct {
	X, Y, W, H float64
	SizePt     float32
	TextWidth  float32
	Baseline   float64
}

// Layout computes where text goes: the backdrop is max(text, MinChars*"0")
// wide plus padding, capped at MaxWidth of the card; text wider than that is
// shrunk, not below minFontPt.
func (c *Composer) Layout(text string) Box {
	w, h := c.Size()
	t := c.tpl.Text
	spec := c.tpl.FontSpec()

	maxBox := t.MaxWidth * float64(w)
	inner := float32(maxBox - 2*t.PaddingX)
	tw, met := textlayout.Measure(c.provider, spec, text)
	if tw > inner {
		spec.SizePt = textlayout.FitSize(c.provider, spec, text, inner, minFontPt)
		tw, met = textlayout.Measure(c.provider, spec, text)
	}
	zero, _ := textlayout.Measure(c.provider, spec, "0")
	minW := float64(zero) * float64(t.MinChars)

	boxW := math.Min(math.Max(float64(tw), minW)+2*t.PaddingX, maxBox)
	boxH := float64(met.Height()) + 2*t.PaddingY
	b := Box{
		W:         boxW,
		H:         boxH,
		X:         (float64(w) - boxW) / 2,
		Y:         float64(h) - t.Bottom - boxH,
		SizePt:    spec.SizePt,
		TextWidth: tw,
	}
	b.Baseline = b.Y + t.PaddingY + float64(met.Ascent)
	return b
}

// Render draws the card for text. Blank text renders the background alone.
func (c *Composer) Render(text string) (*image.RGBA, error) {
	w, h := c.Size()
	pm := gg.NewPixmap(w, h)
	copy(pm.Data(), c.base.Data())
	if isBlank(text) {
		return pm.ToImage(), nil
	}

	box := c.Layout(text)
	dc := gg.NewContext(w, h, gg.WithPixmap(pm))
	defer dc.Close()
	bd := c.tpl.BackdropRGBA()
	dc.SetRGBA(bd.R, bd.G, bd.B, bd.A)
	dc.DrawRoundedRectangle(box.X, box.Y, box.W, box.H, c.tpl.Text.Radius)
	if err := dc.Fill(); err != nil {
		return nil, fmt.Errorf("draw backdrop: %w", err)
	}
	if err := dc.FlushGPU(); err != nil {
		return nil, fmt.Errorf("flush canvas: %w", err)
	}

	img, ok := dc.Image().(*image.RGBA)
	if !ok {
		return nil, fmt.Errorf("unexpected canvas type %T", dc.Image())
	}
	spec := c.tpl.FontSpec()
	spec.SizePt = box.SizePt
	face, _ := c.provider.Resolve(spec)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c.tpl.TextColor()),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.Int26_6(math.Round((box.X + (box.W-float64(box.TextWidth))/2) * 64)),
			Y: fixed.Int26_6(math.Round(box.Baseline * 64)),
		},
	}
	d.DrawString(text)
	return img, nil
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
