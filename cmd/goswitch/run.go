package main

import (
	"Go2NetSwitch/internal/api"
	"Go2NetSwitch/internal/capture"
	"Go2NetSwitch/internal/config"
	"Go2NetSwitch/internal/console"
	"Go2NetSwitch/internal/engine/manager"
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/projectdiscovery/gologger"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Switch frames between the configured ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		m, err := startSwitch(cfg)
		if err != nil {
			return err
		}
		defer m.Stop()
		servers := startAPI(cfg, m)
		defer servers.shutdown()

		if cfg.Console.Enabled {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			console.New(m, cfg.Console.HistoryFile).Run(ctx)
			if ctx.Err() != nil {
				gologger.Info().Msgf("Shutdown signal received, stopping switch...")
			}
			return nil
		}

		select {
		case <-interrupted():
			gologger.Info().Msgf("Shutdown signal received, stopping switch...")
		case <-m.Done():
			gologger.Info().Msgf("Every port has stopped.")
		}
		return nil
	},
}

func startSwitch(cfg *config.Config) (*manager.Manager, error) {
	ports, err := capture.OpenPorts(cfg.Switch)
	if errors.Is(err, config.ErrNoPorts) {
		return nil, errors.New("no ports to switch between: configure switch.ports or switch.interface_prefixes")
	}
	if err != nil {
		return nil, err
	}
	m, err := manager.NewManager(cfg, ports)
	if err != nil {
		for _, p := range ports {
			p.Close()
		}
		return nil, err
	}
	m.Start()
	return m, nil
}

type apiServers struct {
	http *api.HTTPServer
	grpc *api.GRPCServer
	once sync.Once
}

func startAPI(cfg *config.Config, m *manager.Manager) *apiServers {
	s := &apiServers{}
	if cfg.API.ListenAddr != "" {
		s.http = api.NewHTTPServer(cfg.API.ListenAddr, m)
		s.http.Start()
	}
	if cfg.API.GRPCAddr != "" {
		s.grpc = api.NewGRPCServer(cfg.API.GRPCAddr, m)
		if err := s.grpc.Start(); err != nil {
			gologger.Error().Msgf("%v", err)
			s.grpc = nil
		}
	}
	return s
}

func (s *apiServers) shutdown() {
	s.once.Do(s.stop)
}

func (s *apiServers) stop() {
	if s.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(ctx); err != nil {
			gologger.Warning().Msgf("%v", err)
		}
	}
	if s.grpc != nil {
		s.grpc.Stop()
	}
}
