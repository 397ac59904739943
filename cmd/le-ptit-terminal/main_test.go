package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Thomah/le-ptit-terminal/internal/eventbrite"
)

func TestResolveStartupOptionsDefaultsWhenConfigMissing(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	opts, err := resolveStartupOptions(path, "")
	if err != nil {
		t.Fatalf("resolveStartupOptions returned error: %v", err)
	}
	if opts.baseURL != eventbrite.DefaultBaseURL {
		t.Fatalf("expected production endpoint, got %q", opts.baseURL)
	}
	if opts.configPath != path {
		t.Fatalf("expected config path %q, got %q", path, opts.configPath)
	}
	if opts.dbPath != filepath.Join(filepath.Dir(path), "snapshots.db") {
		t.Fatalf("expected snapshot db next to the config file, got %q", opts.dbPath)
	}
}

func TestResolveStartupOptionsReadsEndpointFromConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"api_base_url":"http://localhost:9000/v3"}`), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	opts, err := resolveStartupOptions(path, "")
	if err != nil {
		t.Fatalf("resolveStartupOptions returned error: %v", err)
	}
	if opts.baseURL != "http://localhost:9000/v3" {
		t.Fatalf("expected endpoint from config file, got %q", opts.baseURL)
	}
}

func TestResolveStartupOptionsFlagOverridesConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"api_base_url":"http://localhost:9000/v3"}`), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	opts, err := resolveStartupOptions(path, "http://127.0.0.1:4010/v3")
	if err != nil {
		t.Fatalf("resolveStartupOptions returned error: %v", err)
	}
	if opts.baseURL != "http://127.0.0.1:4010/v3" {
		t.Fatalf("expected --endpoint to win, got %q", opts.baseURL)
	}
}

func TestResolveStartupOptionsFailsOnCorruptConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, err := resolveStartupOptions(path, ""); err == nil {
		t.Fatalf("expected resolveStartupOptions to fail on corrupt config")
	}
}

func TestRootCmdRejectsPositionalArgs(t *testing.T) {
	t.Parallel()

	cmd := newRootCmd()
	cmd.SetArgs([]string{"unexpected"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected an error for positional arguments")
	}
}
