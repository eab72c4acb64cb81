package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/webitel/actorhost/internal/domain/env"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidatesRequiredKeys(t *testing.T) {
	path := writeConfig(t, "thread: 8\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for missing required keys (log, main)")
	}
}

func TestLoadSucceedsWithAllRequiredKeys(t *testing.T) {
	path := writeConfig(t, "thread: 8\nlog: \"\"\nmain: bootstrap\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Threads(); got != 8 {
		t.Fatalf("Threads() = %d, want 8", got)
	}
	if got := cfg.Main(); got != "bootstrap" {
		t.Fatalf("Main() = %q, want bootstrap", got)
	}
}

func TestThreadsDefaultsWhenUnset(t *testing.T) {
	path := writeConfig(t, "log: \"\"\nmain: bootstrap\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.Threads(); got != 4 {
		t.Fatalf("Threads() default = %d, want 4", got)
	}
}

func TestApplyToMirrorsKeysIntoEnvStore(t *testing.T) {
	path := writeConfig(t, "thread: 2\nlog: \"\"\nmain: bootstrap\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	store := env.New()
	cfg.ApplyTo(store)

	v, ok := store.Get("main")
	if !ok || v != "bootstrap" {
		t.Fatalf("env store main = (%q, %v), want (bootstrap, true)", v, ok)
	}
}
