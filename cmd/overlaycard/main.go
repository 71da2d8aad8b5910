/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"overlaycard/internal/config"
	"overlaycard/internal/crash"
	"overlaycard/internal/export"
	applog "overlaycard/internal/log"
	"overlaycard/internal/overlay"
	"overlaycard/internal/telemetry"
	"overlaycard/internal/template"
	"overlaycard/internal/textlayout"
	"overlaycard/internal/tour"
	"overlaycard/internal/ui"
	"overlaycard/internal/version"
)

func main() {
	defer crash.Recover("")
	err := newRootCmd().Execute()
	telemetry.Default().Flush(context.Background())
	_ = applog.Close()
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app is the state shared by all commands, filled in PersistentPreRunE.
type app struct {
	cfg config.AppConfig
	tel *telemetry.Client
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "overlaycard",
		Short:         "Type a line of text onto a card image and save it as PNG",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "overlaycard %s\n", version.String())
			},
		},
		newRenderCmd(a),
		newTourCmd(),
		newConfigCmd(a),
		&cobra.Command{
			Use:   "ui",
			Short: "Open the card editor window (build with -tags fyne)",
			RunE: func(cmd *cobra.Command, _ []string) error {
				tpl, err := loadTemplate(a.cfg.Template.Path)
				if err != nil {
					return err
				}
				return ui.Run(ui.Options{Config: a.cfg, Template: tpl, Telemetry: a.tel})
			},
		},
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	tc := telemetry.FromEnv()
	tc.OptIn = tc.OptIn || cfg.General.TelemetryOptIn
	a.tel = telemetry.New(tc)
	telemetry.SetDefault(a.tel)
	applog.WithComponent("cli").Debug("configured", slog.Bool("telemetry", a.tel.Enabled()))
	return nil
}

func loadTemplate(path string) (template.Template, error) {
	if path == "" {
		return template.Default(), nil
	}
	return template.Load(path)
}

func newRenderCmd(a *app) *cobra.Command {
	var (
		text     string
		outDir   string
		tplPath  string
		fontWait time.Duration
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a card headlessly and save it as PNG",
		Example: `  overlaycard render --text "Jane Doe"
  overlaycard render -t "Jane Doe" -o ./out --template card.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if tplPath == "" {
				tplPath = a.cfg.Template.Path
			}
			if outDir == "" {
				outDir = a.cfg.Export.ResolveOutputDir()
			}
			if !cmd.Flags().Changed("font-wait") {
				fontWait = a.cfg.Export.FontWait()
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			res, err := render(ctx, renderRequest{
				Text:     text,
				OutDir:   outDir,
				Template: tplPath,
				FontWait: fontWait,
				Events:   a.tel,
			})
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVarP(&text, "text", "t", "", "Overlay text (empty renders the plain background)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default: config export.output_dir or ~/Downloads)")
	cmd.Flags().StringVar(&tplPath, "template", "", "Card template JSON file (default: config template.path or built-in)")
	cmd.Flags().DurationVar(&fontWait, "font-wait", export.DefaultFontWait, "Upper bound to wait for template fonts")
	return cmd
}

type renderRequest struct {
	Text     string
	OutDir   string
	Template string
	FontWait time.Duration
	Events   export.EventSink
}

func render(ctx context.Context, req renderRequest) (export.Result, error) {
	tpl, err := loadTemplate(req.Template)
	if err != nil {
		return export.Result{}, err
	}
	if err := os.MkdirAll(req.OutDir, 0o755); err != nil {
		return export.Result{}, fmt.Errorf("create output dir: %w", err)
	}
	session := overlay.NewSession(&export.Engine{
		Saver:    export.DirSaver{Dir: req.OutDir},
		FontWait: req.FontWait,
		Events:   req.Events,
	}, nil)
	comp, err := overlay.NewComposer(tpl, textlayout.NewFontLibrary(), session.Text)
	if err != nil {
		return export.Result{}, err
	}
	session.Attach(comp)
	session.SetText(req.Text)
	return session.RequestExport(ctx)
}

func printResult(w io.Writer, res export.Result) {
	green := color.New(color.FgGreen)
	green.Fprint(w, "✓ ")
	fmt.Fprintf(w, "%s (%dx%d, %d bytes)\n", res.Location, res.Width, res.Height, res.Bytes)
}

func newTourCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tour",
		Short: "Print the guided tour steps",
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			cyan := color.New(color.FgCyan)
			steps := tour.DefaultSteps()
			for i, s := range steps {
				cyan.Fprintf(w, "%d/%d ", i+1, len(steps))
				fmt.Fprintf(w, "[%s] %s: %s\n", s.Target, s.Placement, s.Content)
			}
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := config.ConfigPath()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			color.New(color.FgCyan).Fprintf(w, "# %s\n", p)
			return yaml.NewEncoder(w).Encode(a.cfg)
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file if none exists",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := config.ConfigPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(p); err == nil {
				return fmt.Errorf("%s already exists", p)
			} else if !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := config.Save(config.Defaults()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", filepath.Clean(p))
			return nil
		},
	})
	return cmd
}
