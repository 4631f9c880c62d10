package deps

import (
	"os"
	"path/filepath"
	"testing"

	"vidqueue/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected blank detail: %q", results[2].Detail)
	}
	if missing := Missing(results); len(missing) != 2 {
		t.Fatalf("expected 2 missing, got %d", len(missing))
	}
}

func TestRequirementsFollowConfig(t *testing.T) {
	cfg := config.Default()
	reqs := Requirements(&cfg)
	if len(reqs) != 3 {
		t.Fatalf("expected 3 requirements, got %d", len(reqs))
	}
	if !reqs[2].Optional {
		t.Fatal("vspipe should be optional when not configured")
	}

	cfg.Tools.VSPipe = "/opt/vs/vspipe"
	reqs = Requirements(&cfg)
	if reqs[2].Optional || reqs[2].Command != "/opt/vs/vspipe" {
		t.Fatalf("configured vspipe should be required, got %#v", reqs[2])
	}
}
