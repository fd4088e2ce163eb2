package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVersion(t *testing.T) {
	if version == "" {
		t.Error("version should not be empty")
	}
}

func TestResourcesFlagExists(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	if cmd.Flags().Lookup("resources") == nil {
		t.Error("expected flag --resources to exist")
	}
	if cmd.Flags().Lookup("dump-target") == nil {
		t.Error("expected flag --dump-target to exist")
	}
}

func writeFixture(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTranslateFixturePrintsUsingNamespacePreamble(t *testing.T) {
	fixture := writeFixture(t, "decls: []\n")

	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"--resources", "../../resources/builtins.yaml", fixture})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v (stderr: %s)", err, errOut.String())
	}

	if !strings.Contains(out.String(), "usingnamespace @import(\"builtins\")") {
		t.Errorf("expected preamble in output, got %q", out.String())
	}
}

func TestTranslateFixturePropagatesDiagnostics(t *testing.T) {
	fixture := writeFixture(t, "diagnostics:\n  - \"error: something upstream\"\ndecls: []\n")

	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"--resources", "../../resources/builtins.yaml", fixture})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(errOut.String(), "something upstream") {
		t.Errorf("expected diagnostic to be reported on stderr, got %q", errOut.String())
	}
}

func TestTranslateMissingFixtureErrors(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"--resources", "../../resources/builtins.yaml", "does-not-exist.yaml"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected an error for a missing fixture file")
	}
}

func TestDumpTargetFalseSuppressesOutput(t *testing.T) {
	fixture := writeFixture(t, "decls: []\n")

	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"--resources", "../../resources/builtins.yaml", "--dump-target=false", fixture})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("expected no stdout output, got %q", out.String())
	}
}
