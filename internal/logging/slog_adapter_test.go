// Bookworm - Book Catalog and Hybrid Recommendation Service
// Copyright 2026 Bookworm Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookworm-app/bookworm

package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSlogHandlerRoutesThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	slogger := NewSlogLogger()
	slogger.Info("service started", "service", "api-layer")

	out := buf.String()
	if !strings.Contains(out, `"message":"service started"`) {
		t.Errorf("message missing:\n%s", out)
	}
	if !strings.Contains(out, `"service":"api-layer"`) {
		t.Errorf("attribute missing:\n%s", out)
	}
	if !strings.Contains(out, `"level":"info"`) {
		t.Errorf("level missing:\n%s", out)
	}
}

func TestSlogHandlerLevelMapping(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	slogger := NewSlogLogger()
	slogger.Debug("d")
	slogger.Warn("w")
	slogger.Error("e")

	out := buf.String()
	for _, level := range []string{"debug", "warn", "error"} {
		if !strings.Contains(out, `"level":"`+level+`"`) {
			t.Errorf("missing %s entry:\n%s", level, out)
		}
	}
}

func TestSlogHandlerWithAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	slogger := NewSlogLogger().With("supervisor", "bookworm").WithGroup("child")
	slogger.Info("restarting", slog.String("name", "http-server"))

	out := buf.String()
	if !strings.Contains(out, `"supervisor":"bookworm"`) {
		t.Errorf("bound attribute missing:\n%s", out)
	}
	if !strings.Contains(out, `"child.name":"http-server"`) {
		t.Errorf("group-prefixed attribute missing:\n%s", out)
	}
}

func TestSlogHandlerEnabled(t *testing.T) {
	Init(Config{Level: "warn", Format: "json", Output: &bytes.Buffer{}})
	t.Cleanup(func() { Init(DefaultConfig()) })

	handler := NewSlogHandler()
	if handler.Enabled(t.Context(), slog.LevelDebug) {
		t.Error("debug enabled at warn threshold")
	}
	if !handler.Enabled(t.Context(), slog.LevelError) {
		t.Error("error disabled at warn threshold")
	}
}
