// Package protocol decodes frames with gopacket for display: logs, the text
// recorder and the replay summary. Forwarding never depends on it.
package protocol

import (
	"fmt"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// FrameInfo is a decoded summary of one Ethernet frame.
type FrameInfo struct {
	SrcMAC    string
	DstMAC    string
	EtherType layers.EthernetType
	Layers    []string

	SrcIP    string
	DstIP    string
	Protocol layers.IPProtocol

	// IGMPType is set for IGMP messages, Group for messages naming a group.
	IGMPType string
	Group    string
}

// ParseFrame uses gopacket to decode a raw frame and extract key information.
func ParseFrame(data []byte) (*FrameInfo, error) {
	packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.NoCopy)

	eth, ok := packet.Layer(layers.LayerTypeEthernet).(*layers.Ethernet)
	if !ok {
		return nil, fmt.Errorf("not an Ethernet frame")
	}
	info := &FrameInfo{
		SrcMAC:    eth.SrcMAC.String(),
		DstMAC:    eth.DstMAC.String(),
		EtherType: eth.EthernetType,
	}
	for _, l := range packet.Layers() {
		info.Layers = append(info.Layers, l.LayerType().String())
	}

	if ip, ok := packet.Layer(layers.LayerTypeIPv4).(*layers.IPv4); ok {
		info.SrcIP = ip.SrcIP.String()
		info.DstIP = ip.DstIP.String()
		info.Protocol = ip.Protocol
	}

	switch igmp := packet.Layer(layers.LayerTypeIGMP).(type) {
	case *layers.IGMPv1or2:
		info.IGMPType = igmp.Type.String()
		if !igmp.GroupAddress.IsUnspecified() {
			info.Group = igmp.GroupAddress.String()
		}
	case *layers.IGMP:
		info.IGMPType = igmp.Type.String()
		if igmp.Type == layers.IGMPMembershipReportV3 {
			groups := make([]string, len(igmp.GroupRecords))
			for i, r := range igmp.GroupRecords {
				groups[i] = r.MulticastAddress.String()
			}
			info.Group = strings.Join(groups, ",")
		} else if !igmp.GroupAddress.IsUnspecified() {
			info.Group = igmp.GroupAddress.String()
		}
	}

	if errLayer := packet.ErrorLayer(); errLayer != nil {
		return info, fmt.Errorf("partially decoded frame: %v", errLayer.Error())
	}
	return info, nil
}

// String renders the summary on one line.
func (f *FrameInfo) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s -> %s %s", f.SrcMAC, f.DstMAC, strings.Join(f.Layers, "/"))
	if f.SrcIP != "" {
		fmt.Fprintf(&b, " %s -> %s", f.SrcIP, f.DstIP)
	}
	if f.IGMPType != "" {
		fmt.Fprintf(&b, " %s", f.IGMPType)
		if f.Group != "" {
			fmt.Fprintf(&b, " group %s", f.Group)
		}
	}
	return b.String()
}

// Describe returns the one-line summary of data. Frames that only partially
// decode are summarized as far as they go.
func Describe(data []byte) string {
	info, err := ParseFrame(data)
	if info == nil {
		return fmt.Sprintf("undecodable frame (%d bytes): %v", len(data), err)
	}
	if err != nil {
		return info.String() + " [truncated]"
	}
	return info.String()
}
