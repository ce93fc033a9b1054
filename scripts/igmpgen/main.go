// Command igmpgen writes a small IGMP snooping scenario as one pcap file per
// switch port, for use with "goswitch replay".
package main

import (
	"Go2NetSwitch/internal/switchtest"
	pcapfile "Go2NetSwitch/pkg/pcap"
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/projectdiscovery/gologger"
)

const (
	routerMAC = "02:00:00:00:00:fe"
	host1MAC  = "02:00:00:00:00:01"
	host2MAC  = "02:00:00:00:00:02"
	group     = "239.1.1.1"
)

func main() {
	outDir := flag.String("o", "test/data", "Output directory for the per-port pcap files")
	flag.Parse()

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		gologger.Fatal().Msgf("Failed to create output directory: %v", err)
	}

	scenario := map[string][][]byte{
		// Router: general query, then a data stream to the group.
		"eth0.pcap": {
			switchtest.IGMPFrame(routerMAC, "10.0.0.254", "224.0.0.1",
				switchtest.IGMPMessage(layers.IGMPMembershipQuery, "")),
			switchtest.UDPFrame(routerMAC, "", "10.0.0.254", group, []byte("stream-1")),
			switchtest.UDPFrame(routerMAC, "", "10.0.0.254", group, []byte("stream-2")),
		},
		// Host 1: ARP, a v2 join and later a leave.
		"eth1.pcap": {
			switchtest.EthernetFrame(host1MAC, "ff:ff:ff:ff:ff:ff", layers.EthernetTypeARP, make([]byte, 28)),
			switchtest.IGMPFrame(host1MAC, "10.0.0.1", group,
				switchtest.IGMPMessage(layers.IGMPMembershipReportV2, group)),
			switchtest.IGMPFrame(host1MAC, "10.0.0.1", "224.0.0.2",
				switchtest.IGMPMessage(layers.IGMPLeaveGroup, group)),
		},
		// Host 2: a v3 join of the group and of a second one.
		"eth2.pcap": {
			switchtest.IGMPFrame(host2MAC, "10.0.0.2", "224.0.0.22", switchtest.IGMPv3Report(
				switchtest.GroupRecord{Type: layers.IGMPToEx, Group: group},
				switchtest.GroupRecord{Type: layers.IGMPIsIn, Group: "239.2.2.2", Sources: []string{"10.0.0.254"}},
			)),
		},
	}

	start := time.Now()
	for name, frames := range scenario {
		path := filepath.Join(*outDir, name)
		if err := pcapfile.WriteFrames(path, start, frames); err != nil {
			gologger.Fatal().Msgf("Failed to write %s: %v", path, err)
		}
		gologger.Info().Msgf("Wrote %d frames into %s", len(frames), path)
	}
}
