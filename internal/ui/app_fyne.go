//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/layout"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"overlaycard/internal/crash"
	"overlaycard/internal/export"
	applog "overlaycard/internal/log"
	"overlaycard/internal/overlay"
	"overlaycard/internal/telemetry"
	"overlaycard/internal/textlayout"
	"overlaycard/internal/tour"
)

// Run opens the card editor window and blocks until it is closed.
func Run(opts Options) error {
	defer crash.Recover("")
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("template", opts.Template.Name))

	tel := opts.Telemetry
	fyneApp := app.NewWithID("dev.overlaycard")
	w := fyneApp.NewWindow("OverlayCard")
	prefs := fyneApp.Preferences()
	w.Resize(fyne.NewSize(
		float32(max(prefs.IntWithFallback("window.width", 720), 480)),
		float32(max(prefs.IntWithFallback("window.height", 900), 600)),
	))

	fonts := textlayout.NewFontLibrary()
	session := overlay.NewSession(&export.Engine{
		Saver:    dialogSaver(w, opts.Config.Export.OutputDir),
		FontWait: opts.Config.Export.FontWait(),
		Events:   tel,
	}, nil)
	comp, err := overlay.NewComposer(opts.Template, fonts, session.Text)
	if err != nil {
		return fmt.Errorf("prepare card: %w", err)
	}
	session.Attach(comp)

	// Preview
	first, err := comp.Render("")
	if err != nil {
		return fmt.Errorf("render preview: %w", err)
	}
	preview := canvas.NewImageFromImage(first)
	preview.FillMode = canvas.ImageFillContain
	preview.ScaleMode = canvas.ImageScaleSmooth
	preview.SetMinSize(fyne.NewSize(320, 400))

	var renderSeq atomic.Uint64
	refreshPreview := func(text string) {
		seq := renderSeq.Add(1)
		go func() {
			img, err := comp.Render(text)
			if err != nil {
				l.Error("preview render failed", slog.Any("err", err))
				return
			}
			fyne.Do(func() {
				if renderSeq.Load() != seq {
					return
				}
				preview.Image = img
				preview.Refresh()
			})
		}()
	}
	session.OnChange(refreshPreview)
	go func() {
		<-comp.FontsReady()
		if err := fonts.Err(); err != nil {
			l.Warn("template font unavailable, using builtin", slog.Any("err", err))
		}
		refreshPreview(session.Text())
	}()

	// Controls
	status := widget.NewLabel("Ready")
	entry := widget.NewEntry()
	entry.SetPlaceHolder(opts.Template.Text.Placeholder)
	entry.OnChanged = session.SetText

	var download *widget.Button
	download = widget.NewButtonWithIcon("Download", theme.DownloadIcon(), func() {
		download.Disable()
		status.SetText("Exporting…")
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			res, err := session.RequestExport(ctx)
			fyne.Do(func() {
				download.Enable()
				switch {
				case errors.Is(err, errSaveCanceled):
					status.SetText("Ready")
				case err != nil:
					l.Error("export failed", slog.Any("err", err))
					status.SetText("Export failed.")
					dialog.ShowError(err, w)
				default:
					status.SetText(exportMessage(res))
				}
			})
		}()
	})
	download.Importance = widget.HighImportance

	// Tour
	anchors := map[tour.AnchorID]fyne.CanvasObject{
		tour.AnchorTextInput:   entry,
		tour.AnchorDownloadBtn: download,
	}
	var ov *tourOverlay
	coord := tour.NewCoordinator(tour.DefaultSteps(),
		tour.WithDelay(opts.Config.General.TourDelay()),
		tour.WithAnchors(tour.AnchorTextInput, tour.AnchorDownloadBtn),
		tour.WithOnChange(func(tour.State) { fyne.Do(func() { ov.Refresh() }) }),
		tour.WithOnFinish(func(k tour.Kind) {
			name := telemetry.EventTourFinished
			if k == tour.KindSkipped {
				name = telemetry.EventTourSkipped
			}
			tel.Event(name, nil)
		}),
	)
	ov = newTourOverlay(coord, anchors)

	bottom := container.NewVBox(
		entry,
		container.NewHBox(status, layout.NewSpacer(), download),
	)
	content := container.NewBorder(nil, container.NewPadded(bottom), nil, nil, container.NewPadded(preview))
	w.SetContent(container.NewStack(content, ov))

	tourItem := fyne.NewMenuItem("Show Tour", coord.Start)
	tourItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyF1}
	exportItem := fyne.NewMenuItem("Download Image…", func() { download.OnTapped() })
	exportItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierShortcutDefault}
	w.SetMainMenu(fyne.NewMainMenu(
		fyne.NewMenu("File", exportItem),
		fyne.NewMenu("Help", tourItem),
	))
	w.Canvas().AddShortcut(exportItem.Shortcut, func(fyne.Shortcut) { download.OnTapped() })
	w.Canvas().Focus(entry)

	w.SetOnClosed(func() {
		coord.Unmount()
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		l.Info("window closed")
	})
	if !opts.Config.General.DisableTour {
		coord.Mount()
	}
	tel.Event(telemetry.EventAppStarted, map[string]any{"ui": true})
	w.ShowAndRun()
	return nil
}

// dialogSaver writes into dir when one is configured. Otherwise it asks the
// user where to save, proposing name, and blocks the exporting goroutine
// until the dialog is answered.
func dialogSaver(w fyne.Window, dir string) export.Saver {
	if dir != "" {
		return export.DirSaver{Dir: dir}
	}
	return export.SaverFunc(func(ctx context.Context, name string, data []byte) (string, error) {
		type result struct {
			loc string
			err error
		}
		done := make(chan result, 1)
		fyne.Do(func() {
			d := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
				if err != nil {
					done <- result{err: err}
					return
				}
				if uc == nil {
					done <- result{err: errSaveCanceled}
					return
				}
				_, werr := uc.Write(data)
				cerr := uc.Close()
				done <- result{loc: uc.URI().Path(), err: errors.Join(werr, cerr)}
			}, w)
			d.SetFileName(name)
			d.SetFilter(fstorage.NewExtensionFileFilter([]string{export.Extension}))
			d.Show()
		})
		select {
		case r := <-done:
			return r.loc, r.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
}

// tourOverlay dims the window around the current step's target and shows the
// step bubble next to it.
type tourOverlay struct {
	widget.BaseWidget
	coord   *tour.Coordinator
	anchors map[tour.AnchorID]fyne.CanvasObject
}

func newTourOverlay(c *tour.Coordinator, anchors map[tour.AnchorID]fyne.CanvasObject) *tourOverlay {
	o := &tourOverlay{coord: c, anchors: anchors}
	o.ExtendBaseWidget(o)
	return o
}

// targetRect returns the anchor bounds relative to the overlay.
func (o *tourOverlay) targetRect(id tour.AnchorID) (rect, bool) {
	obj, ok := o.anchors[id]
	if !ok || !obj.Visible() {
		return rect{}, false
	}
	d := fyne.CurrentApp().Driver()
	p := d.AbsolutePositionForObject(obj).Subtract(d.AbsolutePositionForObject(o))
	s := obj.Size()
	return rect{X: p.X, Y: p.Y, W: s.Width, H: s.Height}, true
}

func (o *tourOverlay) CreateRenderer() fyne.WidgetRenderer {
	dim := color.NRGBA{A: 140}
	r := &tourRenderer{o: o}
	for i := range r.dims {
		r.dims[i] = canvas.NewRectangle(dim)
	}
	r.ring = canvas.NewRectangle(color.Transparent)
	r.ring.StrokeColor = theme.Color(theme.ColorNamePrimary)
	r.ring.StrokeWidth = 2
	r.ring.CornerRadius = 6

	r.progress = widget.NewLabel("")
	r.progress.TextStyle = fyne.TextStyle{Bold: true}
	r.content = widget.NewLabel("")
	r.content.Wrapping = fyne.TextWrapWord
	r.back = widget.NewButton("Back", o.coord.Back)
	r.next = widget.NewButton("Next", o.coord.Next)
	r.next.Importance = widget.HighImportance
	skip := widget.NewButton("Skip", o.coord.Skip)
	skip.Importance = widget.LowImportance
	bg := canvas.NewRectangle(theme.Color(theme.ColorNameOverlayBackground))
	bg.CornerRadius = 8
	r.bubble = container.NewStack(bg, container.NewPadded(container.NewVBox(
		r.progress,
		r.content,
		container.NewHBox(skip, layout.NewSpacer(), r.back, r.next),
	)))

	r.objects = []fyne.CanvasObject{r.dims[0], r.dims[1], r.dims[2], r.dims[3], r.ring, r.bubble}
	return r
}

type tourRenderer struct {
	o        *tourOverlay
	dims     [4]*canvas.Rectangle
	ring     *canvas.Rectangle
	bubble   *fyne.Container
	progress *widget.Label
	content  *widget.Label
	back     *widget.Button
	next     *widget.Button
	objects  []fyne.CanvasObject
}

const bubbleWidth = 320

func (r *tourRenderer) Destroy()                     {}
func (r *tourRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *tourRenderer) MinSize() fyne.Size           { return fyne.NewSize(0, 0) }

func (r *tourRenderer) Refresh() {
	r.Layout(r.o.Size())
	canvas.Refresh(r.o)
}

func (r *tourRenderer) setVisible(v bool) {
	for _, obj := range r.objects {
		if v {
			obj.Show()
		} else {
			obj.Hide()
		}
	}
}

func (r *tourRenderer) Layout(size fyne.Size) {
	step, ok := r.o.coord.Current()
	if !ok {
		r.setVisible(false)
		return
	}
	target, ok := r.o.targetRect(step.Target)
	if !ok {
		applog.WithComponent("ui").Warn("tour target not rendered", slog.String("anchor", string(step.Target)))
		r.setVisible(false)
		return
	}
	r.setVisible(true)

	r.progress.SetText(r.o.coord.Progress())
	r.content.SetText(step.Content)
	if r.o.coord.State().StepIndex == 0 {
		r.back.Disable()
	} else {
		r.back.Enable()
	}
	if r.o.coord.IsLast() {
		r.next.SetText("Finish")
	} else {
		r.next.SetText("Next")
	}

	hole, dims := spotlight(target, float32(step.SpotlightPadding), size.Width, size.Height)
	for i, d := range dims {
		r.dims[i].Move(fyne.NewPos(d.X, d.Y))
		r.dims[i].Resize(fyne.NewSize(d.W, d.H))
	}
	r.ring.Move(fyne.NewPos(hole.X, hole.Y))
	r.ring.Resize(fyne.NewSize(hole.W, hole.H))

	bw := min(float32(bubbleWidth), size.Width)
	r.bubble.Resize(fyne.NewSize(bw, r.bubble.MinSize().Height))
	bh := r.bubble.MinSize().Height
	r.bubble.Resize(fyne.NewSize(bw, bh))
	x, y := bubbleOrigin(hole, bw, bh, step.Placement, size.Width, size.Height)
	r.bubble.Move(fyne.NewPos(x, y))
}
