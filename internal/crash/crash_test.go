/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	path, report, err := writeReport(dir, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !bytes.Equal(b, report) {
		t.Fatal("returned report differs from file")
	}
	s := string(b)
	for _, want := range []string{"OverlayCard Crash Report", "Panic: boom", "stacktrace"} {
		if !strings.Contains(s, want) {
			t.Fatalf("report lacks %q:\n%s", want, s)
		}
	}
}

func TestReportDirFollowsConfig(t *testing.T) {
	cfgDir := t.TempDir()
	t.Setenv("OVC_CONFIG", filepath.Join(cfgDir, "config.yaml"))
	if got := ReportDir(); got != filepath.Join(cfgDir, "crashes") {
		t.Fatalf("ReportDir = %q", got)
	}
}

func TestRecover_WritesReportUploadsAndExits(t *testing.T) {
	var errOut bytes.Buffer
	code := 0
	var uploaded []byte
	oldExit, oldErr, oldUpload := exitFn, stderr, uploadFn
	exitFn = func(c int) { code = c }
	stderr = &errOut
	uploadFn = func(b []byte) <-chan struct{} {
		uploaded = b
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	t.Cleanup(func() { exitFn, stderr, uploadFn = oldExit, oldErr, oldUpload })

	dir := t.TempDir()
	func() {
		defer Recover(dir)
		panic("boom")
	}()

	if code != 2 {
		t.Fatalf("exit code = %d", code)
	}
	files, _ := filepath.Glob(filepath.Join(dir, "crash-*.log"))
	if len(files) != 1 {
		t.Fatalf("reports = %v", files)
	}
	if !bytes.Contains(uploaded, []byte("Panic: boom")) {
		t.Fatalf("uploaded %q", uploaded)
	}
	if !strings.Contains(errOut.String(), files[0]) {
		t.Fatalf("stderr does not name the report: %s", errOut.String())
	}
}

func TestRecover_NoPanicIsNoop(t *testing.T) {
	called := false
	oldExit := exitFn
	exitFn = func(int) { called = true }
	t.Cleanup(func() { exitFn = oldExit })
	func() {
		defer Recover(t.TempDir())
	}()
	if called {
		t.Fatal("exit called without panic")
	}
}
