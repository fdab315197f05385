package app

import (
	"bytes"
	"testing"
)

func TestNewRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand(&bytes.Buffer{})

	for _, name := range []Command{CommandServe, CommandWorker, CommandMigrate, CommandHealthcheck} {
		cmd, _, err := root.Find([]string{string(name)})
		if err != nil {
			t.Errorf("Find(%q) returned error: %v", name, err)
			continue
		}
		if cmd.Name() != string(name) {
			t.Errorf("Find(%q) = %q", name, cmd.Name())
		}
	}
}

func TestNewRootCommand_DefaultRunsServe(t *testing.T) {
	root := NewRootCommand(&bytes.Buffer{})
	if root.RunE == nil {
		t.Fatal("root command should run serve when no subcommand is given")
	}
}

func TestNewRootCommand_RejectsUnknownCommand(t *testing.T) {
	var buf bytes.Buffer
	root := NewRootCommand(&buf)
	root.SetArgs([]string{"unknown"})
	root.SetOut(&buf)
	root.SetErr(&buf)

	if err := root.Execute(); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestCommandString(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{CommandServe, "serve"},
		{CommandWorker, "worker"},
		{CommandMigrate, "migrate"},
		{CommandHealthcheck, "healthcheck"},
	}

	for _, tt := range tests {
		if got := string(tt.cmd); got != tt.want {
			t.Errorf("Command(%q) string = %q, want %q", tt.cmd, got, tt.want)
		}
	}
}
