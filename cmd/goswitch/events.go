package main

import (
	"Go2NetSwitch/internal/events"
	"Go2NetSwitch/internal/model"
	"fmt"

	"github.com/projectdiscovery/gologger"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print table events published by a running switch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ecfg := cfg.Events
		if ecfg.NATSURL == "" {
			ecfg.NATSURL = "nats://127.0.0.1:4222"
		}
		if ecfg.Subject == "" {
			ecfg.Subject = "goswitch.events"
		}

		sub, err := events.NewSubscriber(ecfg)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer sub.Close()

		out := cmd.OutOrStdout()
		err = sub.Start(func(ev model.Event) {
			fmt.Fprintf(out, "%s %-15s mac=%s group=%s port=%s\n",
				ev.Time.Format("15:04:05.000"), ev.Kind, ev.MAC, ev.Group, ev.Port)
		})
		if err != nil {
			return fmt.Errorf("failed to subscribe: %w", err)
		}

		<-interrupted()
		gologger.Info().Msgf("Shutdown signal received.")
		return nil
	},
}
