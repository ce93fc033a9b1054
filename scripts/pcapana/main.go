// Command pcapana prints a one-line summary of every frame in a pcap file,
// e.g. the per-port output of "goswitch replay".
package main

import (
	"Go2NetSwitch/internal/engine/protocol"
	pcapfile "Go2NetSwitch/pkg/pcap"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/projectdiscovery/gologger"
)

func main() {
	limit := flag.Int("n", 0, "Stop after this many frames (0 for all)")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Println("Usage: go run ./scripts/pcapana [-n count] <path_to_pcap_file>")
		os.Exit(1)
	}

	dev, err := pcapfile.OpenFileDevice(flag.Arg(0), "", 65535)
	if err != nil {
		gologger.Fatal().Msgf("%v", err)
	}
	defer dev.Close()

	for i := 1; *limit == 0 || i <= *limit; i++ {
		data, ci, err := dev.ReadPacketData()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			gologger.Fatal().Msgf("Reading frame %d: %v", i, err)
		}
		fmt.Printf("[%s] #%d len=%d %s\n", ci.Timestamp.Format("15:04:05.000"), i, ci.Length, protocol.Describe(data))
	}
}
