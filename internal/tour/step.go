/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package tour drives the first-run guided tour: a fixed sequence of steps,
// each pointing at one control of the window.
package tour

// AnchorID names a control a step points at.
type AnchorID string

const (
	AnchorTextInput   AnchorID = "text-input"
	AnchorDownloadBtn AnchorID = "download-btn"
)

// Placement is where the step bubble sits relative to its target.
type Placement string

const (
	PlacementTop    Placement = "top"
	PlacementBottom Placement = "bottom"
	PlacementLeft   Placement = "left"
	PlacementRight  Placement = "right"
)

// Step is one tour stop.
type Step struct {
	Target           AnchorID
	Content          string
	Placement        Placement
	SpotlightPadding int
}

// DefaultSteps returns the app's tour: the text field, then the download
// button.
func DefaultSteps() []Step {
	return []Step{
		{
			Target:           AnchorTextInput,
			Content:          "Type your name here. It will appear on the image.",
			Placement:        PlacementTop,
			SpotlightPadding: 8,
		},
		{
			Target:           AnchorDownloadBtn,
			Content:          "Click here to download the final image with your text.",
			Placement:        PlacementTop,
			SpotlightPadding: 8,
		},
	}
}
