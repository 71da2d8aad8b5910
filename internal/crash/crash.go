/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic in the CLI or window into a report file and an
// optional (opt-in) upload, then exits non-zero.
package crash

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"overlaycard/internal/config"
	applog "overlaycard/internal/log"
	"overlaycard/internal/telemetry"
	"overlaycard/internal/version"
)

var (
	exitFn             = os.Exit
	stderr   io.Writer = os.Stderr
	uploadFn           = func(b []byte) <-chan struct{} { return telemetry.Default().UploadCrash(b) }
)

const uploadWait = 2 * time.Second

// ReportDir is where crash reports go: a "crashes" folder next to the user
// config, or the temp dir when there is no config location.
func ReportDir() string {
	p, err := config.ConfigPath()
	if err != nil {
		return os.TempDir()
	}
	return filepath.Join(filepath.Dir(p), "crashes")
}

// Recover captures a panic, logs it with its stack, writes a report into dir
// and exits with code 2. An empty dir uses ReportDir.
//
// Usage: defer crash.Recover("")
func Recover(dir string) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	if dir == "" {
		dir = ReportDir()
	}
	path, report, err := writeReport(dir, r, stack)
	if err != nil {
		l.Error("crash report not written", slog.Any("err", err))
		_, _ = fmt.Fprintln(stderr, "A fatal error occurred and no crash report could be written.")
	} else {
		_, _ = fmt.Fprintf(stderr, "A fatal error occurred. A crash report was saved to: %s\n", path)
	}
	_, _ = fmt.Fprintf(stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)

	select {
	case <-uploadFn(report):
	case <-time.After(uploadWait):
	}
	_ = applog.Close()
	exitFn(2)
}

func writeReport(dir string, panicVal any, stack []byte) (string, []byte, error) {
	now := time.Now()
	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "OverlayCard Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", now.Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	_, _ = fmt.Fprintf(&buf, "Go: %s\n", runtime.Version())
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", stack)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", buf.Bytes(), fmt.Errorf("create crash dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", now.Format("20060102-150405.000")))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, buf.Bytes(), fmt.Errorf("write crash report: %w", err)
	}
	return path, buf.Bytes(), nil
}
