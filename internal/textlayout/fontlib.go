/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
)

// BuiltinFamily names the font that is always available without any files.
const BuiltinFamily = "Go Bold"

// FontSource describes a font to be loaded into a FontLibrary. Exactly one of
// Path or Data is used; Data wins when both are set.
type FontSource struct {
	Family string
	Weight int
	Italic bool
	Path   string
	Data   []byte
}

// FontLibrary stores parsed OpenType fonts mapped by family/weight/italic.
// Fonts may be loaded asynchronously; Ready reports when that has finished.
type FontLibrary struct {
	mu    sync.RWMutex
	fonts map[fontKey]*opentype.Font

	loadOnce sync.Once
	ready    chan struct{}
	loadErr  error
}

type fontKey struct {
	family string
	weight int
	italic bool
}

// NewFontLibrary returns a library preloaded with BuiltinFamily.
func NewFontLibrary() *FontLibrary {
	fl := &FontLibrary{fonts: make(map[fontKey]*opentype.Font)}
	// gobold ships inside x/image and always parses.
	_ = fl.LoadBytes(BuiltinFamily, 700, false, gobold.TTF)
	return fl
}

// LoadTTF loads a font file into the library under the given family/weight/italic.
func (fl *FontLibrary) LoadTTF(family string, weight int, italic bool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	if err := fl.LoadBytes(family, weight, italic, data); err != nil {
		return fmt.Errorf("font %s: %w", path, err)
	}
	return nil
}

// LoadBytes parses raw TTF/OTF data and registers it.
func (fl *FontLibrary) LoadBytes(family string, weight int, italic bool, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %q: %w", family, err)
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.fonts == nil {
		fl.fonts = make(map[fontKey]*opentype.Font)
	}
	fl.fonts[fontKey{family: family, weight: weight, italic: italic}] = f
	return nil
}

// LoadAsync loads sources on a background goroutine and closes the Ready
// channel once all of them were attempted. Only the first call has an effect.
func (fl *FontLibrary) LoadAsync(sources []FontSource) {
	fl.loadOnce.Do(func() {
		fl.mu.Lock()
		fl.ready = make(chan struct{})
		fl.mu.Unlock()
		go func() {
			var errs []error
			for _, s := range sources {
				var err error
				if len(s.Data) > 0 {
					err = fl.LoadBytes(s.Family, s.Weight, s.Italic, s.Data)
				} else {
					err = fl.LoadTTF(s.Family, s.Weight, s.Italic, s.Path)
				}
				if err != nil {
					errs = append(errs, err)
				}
			}
			fl.mu.Lock()
			fl.loadErr = errors.Join(errs...)
			ch := fl.ready
			fl.mu.Unlock()
			close(ch)
		}()
	})
}

// Ready returns a channel closed once asynchronous loading has finished.
// Without a pending LoadAsync the channel is already closed.
func (fl *FontLibrary) Ready() <-chan struct{} {
	fl.mu.RLock()
	ch := fl.ready
	fl.mu.RUnlock()
	if ch == nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	return ch
}

// Err returns the combined error of the asynchronous load, if any.
func (fl *FontLibrary) Err() error {
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	return fl.loadErr
}

// Has reports whether any face of family is loaded.
func (fl *FontLibrary) Has(family string) bool {
	return fl.find(FontSpec{Family: family}) != nil
}

func (fl *FontLibrary) find(spec FontSpec) *opentype.Font {
	if fl == nil {
		return nil
	}
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	if f, ok := fl.fonts[fontKey{family: spec.Family, weight: spec.Weight, italic: spec.Italic}]; ok {
		return f
	}
	// same family, any weight/italic
	for k, f := range fl.fonts {
		if k.family == spec.Family {
			return f
		}
	}
	return nil
}

// OTProvider resolves FontSpec using a FontLibrary and falls back to another Provider.
type OTProvider struct {
	Lib      *FontLibrary
	DPI      float64 // default 72 if zero
	Fallback Provider
}

func (p OTProvider) Resolve(spec FontSpec) (font.Face, Metrics) {
	if spec.SizePt <= 0 {
		spec.SizePt = 12
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 72
	}
	if f := p.Lib.find(spec); f != nil {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: float64(spec.SizePt), DPI: dpi, Hinting: font.HintingFull})
		if err == nil {
			return face, metricsOf(face)
		}
	}
	fb := p.Fallback
	if fb == nil {
		fb = BasicProvider{}
	}
	return fb.Resolve(spec)
}
