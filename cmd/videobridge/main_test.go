package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"list", "capture", "play", "view"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered: %v", name, err)
		}
	}
	if root.PersistentFlags().Lookup("metrics-addr") == nil {
		t.Error("config flags not registered")
	}
}

func TestRootCmd_InvalidFlagsFailBeforeRun(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--volume", "3", "list"})

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "movie.volume") {
		t.Errorf("Execute() = %v, want a volume validation error", err)
	}
}

func TestRootCmd_BadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "videobridge.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", path, "list"})

	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "logging.level") {
		t.Errorf("Execute() = %v, want a logging.level error", err)
	}
}

func TestPlayRequiresArgument(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"play"})
	if err := root.Execute(); err == nil {
		t.Error("play without a movie succeeded")
	}
}
