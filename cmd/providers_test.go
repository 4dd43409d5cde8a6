package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/maximbilan/hivecouncil/internal/catalog"
	"github.com/maximbilan/hivecouncil/internal/config"
)

func TestRenderProviders(t *testing.T) {
	reg := newTestRegistry(t, &config.Config{AnthropicAPIKey: "sk-ant", AnthropicModel: "claude-3-5-haiku-20241022"})

	var buf bytes.Buffer
	renderProviders(&buf, reg.Describe())
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 6 {
		t.Fatalf("got %d lines, want header and 5 backends:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[1], "anthropic") || !strings.Contains(lines[1], "claude-3-5-haiku-20241022") || !strings.Contains(lines[1], "configured") {
		t.Errorf("first backend line = %q", lines[1])
	}
	if !strings.Contains(lines[3], "openai") || !strings.Contains(lines[3], "not configured") {
		t.Errorf("unconfigured line = %q", lines[3])
	}
}

func TestRenderModels(t *testing.T) {
	entry, ok := catalog.Lookup("openai")
	if !ok {
		t.Fatal("openai missing from catalog")
	}

	var buf bytes.Buffer
	renderModels(&buf, entry, "gpt-4o")
	if !strings.Contains(buf.String(), "gpt-4o (default, current)") {
		t.Errorf("output missing default marker:\n%s", buf.String())
	}

	buf.Reset()
	renderModels(&buf, entry, "ft:gpt-4o:custom")
	if !strings.Contains(buf.String(), "ft:gpt-4o:custom (current, not in catalog)") {
		t.Errorf("output missing custom model:\n%s", buf.String())
	}
}
