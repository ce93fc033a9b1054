package main

import (
	"testing"

	"github.com/projectdiscovery/gologger/levels"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]levels.Level{
		"":        levels.LevelInfo,
		"info":    levels.LevelInfo,
		"DEBUG":   levels.LevelDebug,
		"verbose": levels.LevelVerbose,
		"warn":    levels.LevelWarning,
		"silent":  levels.LevelSilent,
	}
	for in, want := range tests {
		got, err := parseLevel(in)
		if err != nil || got != want {
			t.Errorf("parseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := parseLevel("loud"); err == nil {
		t.Error("parseLevel(\"loud\") should fail")
	}
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{{"run"}, {"replay"}, {"events"}, {"show", "mac"}, {"show", "igmp"}, {"show", "ports"}, {"show", "console"}} {
		cmd, _, err := rootCmd.Find(path)
		if err != nil || cmd.Name() != path[len(path)-1] {
			t.Errorf("command %v not found: %v", path, err)
		}
	}
}
