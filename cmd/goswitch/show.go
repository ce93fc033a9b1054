package main

import (
	"Go2NetSwitch/internal/api"
	"Go2NetSwitch/internal/console"
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	showAddr    string
	showTimeout time.Duration
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the tables of a running switch over gRPC",
}

func init() {
	showCmd.PersistentFlags().StringVar(&showAddr, "addr", "localhost:50051", "gRPC address of the switch")
	showCmd.PersistentFlags().DurationVar(&showTimeout, "timeout", 5*time.Second, "request timeout")
	showCmd.AddCommand(
		&cobra.Command{
			Use:   "mac",
			Short: "Show the MAC address table",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withClient(func(ctx context.Context, c *api.Client) error {
					doc, err := c.ShowMacTable(ctx)
					if err != nil {
						return err
					}
					entries, err := api.DecodeMacTable(doc)
					if err != nil {
						return err
					}
					console.RenderMacTable(cmd.OutOrStdout(), entries)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "igmp",
			Short: "Show the IGMP snooping table",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withClient(func(ctx context.Context, c *api.Client) error {
					doc, err := c.ShowIgmpTable(ctx)
					if err != nil {
						return err
					}
					groups, queriers, err := api.DecodeIgmpTable(doc)
					if err != nil {
						return err
					}
					console.RenderIgmpTable(cmd.OutOrStdout(), groups, queriers)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "ports",
			Short: "Show port counters",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withClient(func(ctx context.Context, c *api.Client) error {
					doc, err := c.ShowPorts(ctx)
					if err != nil {
						return err
					}
					console.RenderPorts(cmd.OutOrStdout(), api.DecodePorts(doc))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "console",
			Short: "Open the interactive console against the switch",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				client, conn, err := api.Dial(showAddr)
				if err != nil {
					return err
				}
				defer conn.Close()
				ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				console.New(api.NewRemoteState(client, showTimeout), "").Run(ctx)
				return nil
			},
		},
	)
}

func withClient(fn func(context.Context, *api.Client) error) error {
	client, conn, err := api.Dial(showAddr)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), showTimeout)
	defer cancel()
	return fn(ctx, client)
}
