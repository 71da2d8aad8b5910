/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textlayout resolves fonts and measures single-line text for the
// overlay renderer. Measurement goes through the Provider interface so tests
// can run against the deterministic basicfont face.
package textlayout

import (
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// FontSpec describes a requested font.
type FontSpec struct {
	Family string
	SizePt float32
	Weight int // 100..900
	Italic bool
}

// Metrics provides font metrics in pixels for the resolved face.
type Metrics struct {
	Ascent, Descent, LineGap float32
}

// Height is the ascent plus descent.
func (m Metrics) Height() float32 { return m.Ascent + m.Descent }

// Provider maps FontSpec to a concrete font.Face.
type Provider interface {
	Resolve(FontSpec) (font.Face, Metrics)
}

// BasicProvider uses x/image/basicfont Face7x13 regardless of the spec.
type BasicProvider struct{}

func (BasicProvider) Resolve(FontSpec) (font.Face, Metrics) {
	return basicfont.Face7x13, metricsOf(basicfont.Face7x13)
}

func metricsOf(f font.Face) Metrics {
	m := f.Metrics()
	return Metrics{
		Ascent:  float32(m.Ascent.Round()),
		Descent: float32(m.Descent.Round()),
		LineGap: float32(m.Height.Round() - m.Ascent.Round() - m.Descent.Round()),
	}
}

// Measure returns the advance width of s in pixels and the metrics of the
// face it was measured with.
func Measure(provider Provider, spec FontSpec, s string) (float32, Metrics) {
	if provider == nil {
		provider = BasicProvider{}
	}
	face, met := provider.Resolve(spec)
	return toPx(font.MeasureString(face, s)), met
}

// FitSize returns the largest size <= spec.SizePt (in 1pt steps, not below
// minPt) at which s fits into maxWidth pixels.
func FitSize(provider Provider, spec FontSpec, s string, maxWidth, minPt float32) float32 {
	if minPt <= 0 {
		minPt = 1
	}
	size := spec.SizePt
	for size > minPt {
		spec.SizePt = size
		if w, _ := Measure(provider, spec, s); w <= maxWidth {
			return size
		}
		size--
	}
	return minPt
}

func toPx(v fixed.Int26_6) float32 { return float32(v) / 64 }
