/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultName is used when the overlay text yields no usable filename.
	DefaultName = "oqbi-design"
	// Extension is appended to every exported file.
	Extension = ".png"
	// MaxNameRunes caps the derived base name.
	MaxNameRunes = 40
)

// Filename derives the export filename from the overlay text: trimmed,
// stripped of control characters and < > : " / \ | ? *, cut to MaxNameRunes
// runes, falling back to DefaultName, with Extension appended.
func Filename(text string) string {
	s := strings.TrimSpace(norm.NFC.String(text))
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || strings.ContainsRune(`<>:"/\|?*`, r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > MaxNameRunes {
		s = strings.TrimSpace(string(r[:MaxNameRunes]))
	}
	if s == "" {
		s = DefaultName
	}
	return s + Extension
}
