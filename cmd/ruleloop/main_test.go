package main

import (
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

// newTestCmd mirrors the root command's persistent flags so openApp can be
// exercised directly.
func newTestCmd(t *testing.T) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().Bool("json", false, "")
	cmd.Flags().String("config", "", "")
	cmd.Flags().String("db", filepath.Join(t.TempDir(), "test.db"), "")
	cmd.Flags().String("user", "default", "")
	return cmd
}

func TestOpenAppWiresEverything(t *testing.T) {
	a, err := openApp(newTestCmd(t))
	if err != nil {
		t.Fatalf("openApp: %v", err)
	}

	if a.store == nil {
		t.Error("store not wired")
	}
	if a.cache == nil {
		t.Error("cache not wired")
	}
	if a.index == nil {
		t.Error("index not wired")
	}
	if a.rules == nil {
		t.Error("rule service not wired")
	}
	if a.sweeper == nil {
		t.Error("sweeper not wired")
	}

	// Every command defers close; it must shut down cleanly.
	a.close()
}

func TestNewVersionCmd(t *testing.T) {
	cmd := newVersionCmd()
	if cmd.Use != "version" {
		t.Errorf("Use = %q, want %q", cmd.Use, "version")
	}
}

func TestNewChatCmd(t *testing.T) {
	cmd := newChatCmd()
	if cmd.Flags().Lookup("conversation") == nil {
		t.Error("missing --conversation flag")
	}
}

func TestNewLearnCmd(t *testing.T) {
	cmd := newLearnCmd()
	if cmd.Flags().Lookup("interaction") == nil {
		t.Error("missing --interaction flag")
	}
}

func TestNewRulesCmd(t *testing.T) {
	cmd := newRulesCmd()

	want := map[string]bool{
		"list": false, "show <rule-id>": false, "add [content]": false,
		"edit <rule-id> <content>": false, "reinforce <rule-id>": false,
		"toggle <rule-id>": false, "archive <rule-id>": false,
		"delete <rule-id>": false,
	}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Use]; ok {
			want[sub.Use] = true
		}
	}
	for use, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", use)
		}
	}
}

func TestNewSweepCmd(t *testing.T) {
	cmd := newSweepCmd()
	if cmd.Flags().Lookup("watch") == nil {
		t.Error("missing --watch flag")
	}
}
