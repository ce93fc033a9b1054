package console

import (
	"Go2NetSwitch/internal/switchtest"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func run(t *testing.T, input string) (string, bool) {
	t.Helper()
	var buf bytes.Buffer
	c := New(switchtest.SampleState(), "")
	c.SetOutput(&buf)
	quit := c.Execute(input)
	return buf.String(), quit
}

func TestExecute_ShowMac(t *testing.T) {
	out, quit := run(t, "show mac")
	if quit {
		t.Fatal("show mac must not quit")
	}
	for _, want := range []string{"aabb.cc00.0001", "aabb.cc00.0002", "eth1", "Total: 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestExecute_ShowIgmp(t *testing.T) {
	out, _ := run(t, "show igmp")
	for _, want := range []string{"239.1.1.1", "eth2", "eth0(3s), eth1(7s)", "Queriers: eth2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestExecute_ShowPorts(t *testing.T) {
	out, _ := run(t, "show ports")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header and 3 ports, got:\n%s", out)
	}
	if fields := strings.Fields(lines[2]); fields[0] != "eth1" || fields[5] != "1" {
		t.Errorf("unexpected eth1 row: %q", lines[2])
	}
}

func TestExecute_HelpAndErrors(t *testing.T) {
	out, _ := run(t, "help")
	if !strings.Contains(out, "show mac") {
		t.Errorf("help output:\n%s", out)
	}
	out, quit := run(t, "frobnicate")
	if quit || !strings.Contains(out, "Error:") {
		t.Errorf("unknown command: quit=%v output=%q", quit, out)
	}
	out, _ = run(t, "show mac extra")
	if !strings.Contains(out, "Error:") {
		t.Errorf("extra argument should be rejected: %q", out)
	}
}

func TestExecute_Quit(t *testing.T) {
	for _, cmd := range []string{"exit", "quit", "x", "  x  "} {
		if _, quit := run(t, cmd); !quit {
			t.Errorf("%q should quit", cmd)
		}
	}
	if _, quit := run(t, "   "); quit {
		t.Error("blank line should not quit")
	}
}

func TestCompleter(t *testing.T) {
	got := completer("show ")
	if len(got) != 3 {
		t.Errorf("completer(\"show \") = %v", got)
	}
	if got := completer("he"); len(got) != 1 || got[0] != "help" {
		t.Errorf("completer(\"he\") = %v", got)
	}
}

// scriptedPrompter returns its lines in order, then blocks until released.
type scriptedPrompter struct {
	lines   []string
	release chan struct{}
	history []string
}

func (p *scriptedPrompter) Prompt(string) (string, error) {
	if len(p.lines) == 0 {
		<-p.release
		return "", io.EOF
	}
	line := p.lines[0]
	p.lines = p.lines[1:]
	return line, nil
}

func (p *scriptedPrompter) AppendHistory(item string) {
	p.history = append(p.history, item)
}

func TestServe_RunsCommandsUntilExit(t *testing.T) {
	var buf bytes.Buffer
	c := New(switchtest.SampleState(), "")
	c.SetOutput(&buf)
	p := &scriptedPrompter{lines: []string{"show mac", "  ", "exit"}, release: make(chan struct{})}
	defer close(p.release)

	c.serve(context.Background(), p)

	if !strings.Contains(buf.String(), "aabb.cc00.0001") {
		t.Errorf("show mac output missing:\n%s", buf.String())
	}
	if len(p.history) != 2 || p.history[0] != "show mac" || p.history[1] != "exit" {
		t.Errorf("history = %q", p.history)
	}
}

func TestServe_ReturnsWhenContextIsDone(t *testing.T) {
	var buf bytes.Buffer
	c := New(switchtest.SampleState(), "")
	c.SetOutput(&buf)
	p := &scriptedPrompter{release: make(chan struct{})}
	defer close(p.release)

	ctx, cancel := context.WithCancel(context.Background())
	returned := make(chan struct{})
	go func() {
		c.serve(ctx, p)
		close(returned)
	}()
	cancel()

	select {
	case <-returned:
	case <-time.After(5 * time.Second):
		t.Fatal("serve kept waiting on a blocked prompt after cancellation")
	}
}
