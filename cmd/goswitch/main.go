// Command goswitch runs a software Ethernet switch with IGMP snooping.
package main

import (
	"Go2NetSwitch/internal/config"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/levels"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "goswitch",
	Short:         "A software Ethernet switch with IGMP snooping",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every frame")
	rootCmd.AddCommand(runCmd, replayCmd, eventsCmd, showCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		gologger.Fatal().Msgf("%v", err)
	}
}

// loadConfig reads the configuration and applies its log level. --verbose
// overrides the configured level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if verbose {
		cfg.Log.Level = "verbose"
	}
	level, err := parseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	gologger.DefaultLogger.SetMaxLevel(level)
	return cfg, nil
}

func parseLevel(s string) (levels.Level, error) {
	switch strings.ToLower(s) {
	case "silent":
		return levels.LevelSilent, nil
	case "error":
		return levels.LevelError, nil
	case "warning", "warn":
		return levels.LevelWarning, nil
	case "", "info":
		return levels.LevelInfo, nil
	case "debug":
		return levels.LevelDebug, nil
	case "verbose":
		return levels.LevelVerbose, nil
	default:
		return levels.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// interrupted is closed on SIGINT or SIGTERM.
func interrupted() <-chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	return sigChan
}
