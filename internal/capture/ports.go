package capture

import (
	"Go2NetSwitch/internal/config"
	"Go2NetSwitch/internal/model"
	"Go2NetSwitch/internal/port"
	pcapfile "Go2NetSwitch/pkg/pcap"
	"fmt"

	"github.com/projectdiscovery/gologger"
)

// OpenPorts opens every port of the switch config. Explicit ports are opened
// in order; otherwise every live interface matching the prefixes becomes a
// port. config.ErrNoPorts is returned when nothing could be opened.
func OpenPorts(cfg config.SwitchConfig) ([]*port.Port, error) {
	defs := cfg.Ports
	if len(defs) == 0 {
		names, err := FindInterfaces(cfg.InterfacePrefixes)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			defs = append(defs, config.PortDef{Name: name, Device: name})
		}
	}
	if len(defs) == 0 {
		return nil, config.ErrNoPorts
	}

	ports := make([]*port.Port, 0, len(defs))
	for i, def := range defs {
		dev, err := openDevice(cfg, def)
		if err != nil {
			for _, p := range ports {
				p.Close()
			}
			return nil, err
		}
		ports = append(ports, port.New(model.PortID(i), def.Name, dev))
		gologger.Info().Msgf("Port %d: %s (%s)", i, def.Name, describe(def))
	}
	return ports, nil
}

func openDevice(cfg config.SwitchConfig, def config.PortDef) (port.Device, error) {
	if def.IsFile() {
		dev, err := pcapfile.OpenFileDevice(def.Input, def.Output, uint32(cfg.SnapshotLen))
		if err != nil {
			return nil, fmt.Errorf("port %s: %w", def.Name, err)
		}
		return dev, nil
	}
	return OpenLive(def.Device, cfg.SnapshotLen, cfg.Promiscuous, cfg.ReadTimeoutDuration)
}

func describe(def config.PortDef) string {
	if !def.IsFile() {
		return "device " + def.Device
	}
	in, out := def.Input, def.Output
	if in == "" {
		in = "-"
	}
	if out == "" {
		out = "-"
	}
	return fmt.Sprintf("file in=%s out=%s", in, out)
}
