/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry sends opt-in, anonymous usage events (export completed,
// tour finished or skipped) and optional crash reports. Nothing is sent unless
// the user opted in and an endpoint is configured.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	applog "overlaycard/internal/log"
	"overlaycard/internal/version"
)

// Event names emitted by the app.
const (
	EventExportCompleted = "export_completed"
	EventTourFinished    = "tour_finished"
	EventTourSkipped     = "tour_skipped"
	EventAppStarted      = "app_started"
)

const defaultTimeout = 1500 * time.Millisecond

// Config holds runtime configuration for telemetry and crash uploads.
//
// Environment variables (read by FromEnv):
// - OVC_TELEMETRY_OPT_IN: "1", "true", "yes" or "on" to enable
// - OVC_TELEMETRY_URL: endpoint JSON events are POSTed to
// - OVC_CRASH_UPLOAD_URL: endpoint crash reports are POSTed to
// - OVC_TELEMETRY_TIMEOUT_MS: request timeout, default 1500
// - OVC_TELEMETRY_DEBUG: if set, logs send attempts
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv("OVC_TELEMETRY_OPT_IN")),
		EventsURL:    strings.TrimSpace(os.Getenv("OVC_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("OVC_CRASH_UPLOAD_URL")),
		Timeout:      defaultTimeout,
		DebugLogging: os.Getenv("OVC_TELEMETRY_DEBUG") != "",
	}
	if ms := strings.TrimSpace(os.Getenv("OVC_TELEMETRY_TIMEOUT_MS")); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil && v > 0 {
			cfg.Timeout = v
		}
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

type envelope struct {
	Name    string         `json:"name"`
	TS      string         `json:"ts"`
	Session string         `json:"session"`
	Version string         `json:"version"`
	OS      string         `json:"os"`
	Arch    string         `json:"arch"`
	Props   map[string]any `json:"props,omitempty"`
}

// Client sends events on a background goroutine through a bounded queue;
// events are dropped when the queue is full or a request fails.
type Client struct {
	cfg     Config
	log     *slog.Logger
	cli     *http.Client
	session string // random per process, groups events of one run
	q       chan envelope
	pending atomic.Int64
	once    sync.Once
	closed  chan struct{}
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// Default returns the process-wide client, created from the environment on
// first use.
func Default() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(FromEnv())
	}
	return defaultClient
}

// SetDefault replaces the process-wide client.
func SetDefault(c *Client) {
	defaultMu.Lock()
	old := defaultClient
	defaultClient = c
	defaultMu.Unlock()
	if old != nil && old != c {
		old.Close()
	}
}

// New constructs a client and starts its sender.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c := &Client{
		cfg:     cfg,
		log:     applog.WithComponent("telemetry"),
		cli:     &http.Client{Timeout: cfg.Timeout},
		session: uuid.NewString(),
		q:       make(chan envelope, 64),
		closed:  make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether the user opted in and an events endpoint is set.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Event queues an event. Only scalar props are kept. It never blocks.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	e := envelope{
		Name:    name,
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
		Session: c.session,
		Version: version.String(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
		Props:   scalarProps(props),
	}
	c.pending.Add(1)
	select {
	case c.q <- e:
	default:
		c.pending.Add(-1)
		if c.cfg.DebugLogging {
			c.log.Debug("telemetry queue full, event dropped", slog.String("event", name))
		}
	}
}

func scalarProps(props map[string]any) map[string]any {
	if len(props) == 0 {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		switch x := v.(type) {
		case bool, int, int32, int64, uint, uint32, uint64, float32, float64:
			out[k] = x
		case time.Duration:
			out[k] = x.Milliseconds()
		case string:
			if len(x) <= 64 {
				out[k] = x
			}
		}
	}
	return out
}

// Flush waits until queued events were attempted, ctx ends or 500ms pass.
func (c *Client) Flush(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	deadline := time.NewTimer(500 * time.Millisecond)
	defer deadline.Stop()
	tick := time.NewTicker(25 * time.Millisecond)
	defer tick.Stop()
	for c.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			return
		case <-tick.C:
		}
	}
}

// Close stops the sender. Queued events are discarded.
func (c *Client) Close() { c.once.Do(func() { close(c.closed) }) }

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			return
		case e := <-c.q:
			c.post(c.cfg.EventsURL, "application/json", c.encode(e))
			c.pending.Add(-1)
		}
	}
}

func (c *Client) encode(e envelope) []byte {
	buf, err := json.Marshal(e)
	if err != nil {
		// unmarshalable props; send the bare event
		e.Props = nil
		buf, _ = json.Marshal(e)
	}
	return buf
}

func (c *Client) post(url, contentType string, body []byte) bool {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", "overlaycard/"+version.Version)
	resp, err := c.cli.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("telemetry send failed", slog.String("url", url), slog.Any("err", err))
		}
		return false
	}
	_ = resp.Body.Close()
	ok := resp.StatusCode < 300
	if c.cfg.DebugLogging {
		c.log.Debug("telemetry sent", slog.String("url", url), slog.Int("status", resp.StatusCode))
	}
	return ok
}

// UploadCrash posts a crash report to the crash endpoint if opted in. It
// returns immediately; the channel is closed once the attempt finished.
func (c *Client) UploadCrash(report []byte) <-chan struct{} {
	ch := make(chan struct{})
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		close(ch)
		return ch
	}
	b := append([]byte(nil), report...)
	go func() {
		defer close(ch)
		c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", b)
	}()
	return ch
}
