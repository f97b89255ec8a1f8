package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestRunConfigValidateAcceptsValidFile(t *testing.T) {
	path := writeConfig(t, "modifier: alt\nevent_throttle_ms: 10\n")

	if rc := runConfig([]string{"validate", "--path", path}); rc != 0 {
		t.Fatalf("runConfig validate rc=%d, want 0", rc)
	}
}

func TestRunConfigValidateRejectsInvalidFile(t *testing.T) {
	path := writeConfig(t, "modifier: hyper\n")

	if rc := runConfig([]string{"validate", "--path", path}); rc != 1 {
		t.Fatalf("runConfig validate rc=%d, want 1", rc)
	}
}

func TestRunConfigPrintDefaults(t *testing.T) {
	if rc := runConfig([]string{"print", "--defaults"}); rc != 0 {
		t.Fatalf("runConfig print rc=%d, want 0", rc)
	}
}

func TestRunStatusFailsWithoutDaemon(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	if rc := runStatus(nil); rc != 1 {
		t.Fatalf("runStatus rc=%d, want 1", rc)
	}
}

func TestRunStatusRejectsArguments(t *testing.T) {
	if rc := runStatus([]string{"extra"}); rc != 2 {
		t.Fatalf("runStatus rc=%d, want 2", rc)
	}
}
