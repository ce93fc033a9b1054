// Package capture opens live network interfaces as switch port devices.
package capture

import (
	"Go2NetSwitch/internal/port"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"
)

// FindInterfaces returns the names of the capturable devices whose name starts
// with one of prefixes, sorted.
func FindInterfaces(prefixes []string) ([]string, error) {
	devs, err := pcap.FindAllDevs()
	if err != nil {
		return nil, fmt.Errorf("failed to list capture devices: %w", err)
	}
	var names []string
	for _, dev := range devs {
		for _, prefix := range prefixes {
			if strings.HasPrefix(dev.Name, prefix) {
				names = append(names, dev.Name)
				break
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

// Device is a live capture handle that only sees inbound frames. The read
// timeout bounds how long a stop request can go unnoticed.
type Device struct {
	handle *pcap.Handle
}

// OpenLive opens the named interface for inbound capture and injection.
func OpenLive(name string, snaplen int32, promisc bool, timeout time.Duration) (*Device, error) {
	handle, err := pcap.OpenLive(name, snaplen, promisc, timeout)
	if err != nil {
		return nil, fmt.Errorf("error opening device %s: %w", name, err)
	}
	// Frames the switch injects must not come back as received.
	if err := handle.SetDirection(pcap.DirectionIn); err != nil {
		handle.Close()
		return nil, fmt.Errorf("error setting capture direction on %s: %w", name, err)
	}
	return &Device{handle: handle}, nil
}

func (d *Device) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	data, ci, err := d.handle.ReadPacketData()
	if err == pcap.NextErrorTimeoutExpired {
		return nil, ci, port.ErrReadTimeout
	}
	return data, ci, err
}

func (d *Device) WritePacketData(data []byte) error {
	return d.handle.WritePacketData(data)
}

func (d *Device) Close() {
	d.handle.Close()
}

var _ port.Device = (*Device)(nil)
