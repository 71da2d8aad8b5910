/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package ui hosts the desktop window. The Fyne implementation is built with
// -tags fyne; other builds get a stub Run that explains how to enable it.
package ui

import (
	"errors"
	"fmt"

	"overlaycard/internal/config"
	"overlaycard/internal/export"
	"overlaycard/internal/telemetry"
	"overlaycard/internal/template"
	"overlaycard/internal/tour"
)

// Options carries what the window needs from the command line.
type Options struct {
	Config    config.AppConfig
	Template  template.Template
	Telemetry *telemetry.Client
}

// errSaveCanceled is returned by the dialog saver when the user closes the
// save dialog; the window treats it as "nothing happened".
var errSaveCanceled = errors.New("save canceled")

func exportMessage(res export.Result) string {
	return fmt.Sprintf("Saved %s (%dx%d, %d KB)", res.Location, res.Width, res.Height, (res.Bytes+1023)/1024)
}

// rect is an axis-aligned box in window coordinates.
type rect struct {
	X, Y, W, H float32
}

func (r rect) right() float32  { return r.X + r.W }
func (r rect) bottom() float32 { return r.Y + r.H }

// spotlight grows target by pad, clips it to the window and returns the hole
// together with the four dimming panels around it (top, bottom, left, right).
func spotlight(target rect, pad float32, winW, winH float32) (rect, [4]rect) {
	hole := rect{X: target.X - pad, Y: target.Y - pad, W: target.W + 2*pad, H: target.H + 2*pad}
	hole.X = clamp(hole.X, 0, winW)
	hole.Y = clamp(hole.Y, 0, winH)
	hole.W = clamp(target.X+target.W+pad, 0, winW) - hole.X
	hole.H = clamp(target.Y+target.H+pad, 0, winH) - hole.Y
	return hole, [4]rect{
		{X: 0, Y: 0, W: winW, H: hole.Y},
		{X: 0, Y: hole.bottom(), W: winW, H: winH - hole.bottom()},
		{X: 0, Y: hole.Y, W: hole.X, H: hole.H},
		{X: hole.right(), Y: hole.Y, W: winW - hole.right(), H: hole.H},
	}
}

// bubbleOrigin places a w x h bubble next to hole on the requested side and
// keeps it inside the window. A bubble that does not fit on its side flips to
// the opposite one.
func bubbleOrigin(hole rect, w, h float32, p tour.Placement, winW, winH float32) (float32, float32) {
	const gap = 10
	cx := hole.X + hole.W/2 - w/2
	cy := hole.Y + hole.H/2 - h/2
	var x, y float32
	switch p {
	case tour.PlacementBottom:
		x, y = cx, hole.bottom()+gap
		if y+h > winH {
			y = hole.Y - gap - h
		}
	case tour.PlacementLeft:
		x, y = hole.X-gap-w, cy
		if x < 0 {
			x = hole.right() + gap
		}
	case tour.PlacementRight:
		x, y = hole.right()+gap, cy
		if x+w > winW {
			x = hole.X - gap - w
		}
	default:
		x, y = cx, hole.Y-gap-h
		if y < 0 {
			y = hole.bottom() + gap
		}
	}
	return clamp(x, 0, max(winW-w, 0)), clamp(y, 0, max(winH-h, 0))
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
