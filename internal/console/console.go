// Package console implements the interactive shell of the switch.
package console

import (
	"Go2NetSwitch/internal/model"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
)

const prompt = "goswitch> "

// Console reads commands and prints the tables of a running switch.
type Console struct {
	state       model.SwitchState
	historyFile string
	out         io.Writer
}

// New creates a console over state. An empty historyFile disables history
// persistence.
func New(state model.SwitchState, historyFile string) *Console {
	return &Console{state: state, historyFile: historyFile, out: os.Stdout}
}

// SetOutput redirects command output, e.g. to a buffer in tests.
func (c *Console) SetOutput(w io.Writer) {
	c.out = w
}

// Run prompts until the user exits, input ends or ctx is done. Ctrl+C only
// aborts the current line. The terminal is restored and the history saved
// before Run returns.
func (c *Console) Run(ctx context.Context) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completer)

	c.loadHistory(line)
	defer c.saveHistory(line)

	c.serve(ctx, line)
}

// prompter is the part of *liner.State the command loop uses.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// serve runs the command loop until it ends or ctx is done. A prompt blocked
// on input is abandoned when ctx is done.
func (c *Console) serve(ctx context.Context, p prompter) {
	fmt.Fprintln(c.out, "Type 'help' for available commands or 'exit' to quit.")
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		c.loop(p)
	}()
	select {
	case <-finished:
	case <-ctx.Done():
		fmt.Fprintln(c.out)
	}
}

func (c *Console) loop(p prompter) {
	for {
		input, err := p.Prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(c.out, "Use 'exit' to quit")
				continue
			}
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		p.AppendHistory(input)
		if c.Execute(input) {
			return
		}
	}
}

func (c *Console) loadHistory(line *liner.State) {
	if c.historyFile == "" {
		return
	}
	if f, err := os.Open(c.historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
}

func (c *Console) saveHistory(line *liner.State) {
	if c.historyFile == "" {
		return
	}
	if f, err := os.Create(c.historyFile); err == nil {
		line.WriteHistory(f)
		f.Close()
	}
}

var commands = []string{"show mac", "show igmp", "show ports", "help", "exit", "quit"}

func completer(input string) []string {
	var out []string
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, strings.ToLower(input)) {
			out = append(out, cmd)
		}
	}
	return out
}

// Execute runs one command line and reports whether the console should quit.
func (c *Console) Execute(input string) bool {
	args := strings.Fields(input)
	if len(args) == 0 {
		return false
	}
	switch args[0] {
	case "exit", "quit", "x":
		return true
	}

	root := c.commandTree()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
	}
	return false
}

// commandTree is rebuilt for every line so no flag state leaks between
// commands.
func (c *Console) commandTree() *cobra.Command {
	root := &cobra.Command{
		Use:           "goswitch",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(c.out)
	root.SetErr(c.out)

	show := &cobra.Command{Use: "show", Short: "Show switch tables"}
	show.AddCommand(
		&cobra.Command{
			Use:     "mac",
			Aliases: []string{"mac-address-table"},
			Short:   "Show the MAC address table",
			Args:    cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				RenderMacTable(cmd.OutOrStdout(), c.state.MacTable())
			},
		},
		&cobra.Command{
			Use:   "igmp",
			Short: "Show the IGMP snooping table",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				RenderIgmpTable(cmd.OutOrStdout(), c.state.IgmpTable(), c.state.Queriers())
			},
		},
		&cobra.Command{
			Use:   "ports",
			Short: "Show port counters",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				RenderPorts(cmd.OutOrStdout(), c.state.PortStats())
			},
		},
	)
	root.AddCommand(show)

	root.SetHelpCommand(&cobra.Command{
		Use:   "help",
		Short: "Show available commands",
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "Available commands:")
			fmt.Fprintln(w, "  show mac     - Show the MAC address table")
			fmt.Fprintln(w, "  show igmp    - Show the IGMP snooping table and queriers")
			fmt.Fprintln(w, "  show ports   - Show port counters")
			fmt.Fprintln(w, "  help         - Show this help message")
			fmt.Fprintln(w, "  exit, quit, x - Leave the console")
		},
	})
	return root
}
