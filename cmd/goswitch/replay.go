package main

import (
	"Go2NetSwitch/internal/console"
	"os"

	"github.com/projectdiscovery/gologger"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Run the switch over pcap file ports and print the resulting tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !cmd.Flags().Changed("config") {
			configPath = "configs/replay.yaml"
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		m, err := startSwitch(cfg)
		if err != nil {
			return err
		}

		select {
		case <-m.Done():
			gologger.Info().Msgf("Replay finished.")
		case <-interrupted():
			gologger.Info().Msgf("Replay interrupted.")
		}
		m.Stop()

		console.RenderMacTable(os.Stdout, m.MacTable())
		console.RenderIgmpTable(os.Stdout, m.IgmpTable(), m.Queriers())
		console.RenderPorts(os.Stdout, m.PortStats())
		return nil
	},
}
