package switchtest

import (
	"encoding/binary"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// MustMAC parses a MAC address or panics.
func MustMAC(s string) net.HardwareAddr {
	hw, err := net.ParseMAC(s)
	if err != nil {
		panic(err)
	}
	return hw
}

// MulticastMAC maps an IPv4 group onto its 01:00:5e Ethernet address.
func MulticastMAC(group net.IP) net.HardwareAddr {
	ip := group.To4()
	return net.HardwareAddr{0x01, 0x00, 0x5e, ip[1] & 0x7f, ip[2], ip[3]}
}

func serialize(ls ...gopacket.SerializableLayer) []byte {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, ls...); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// EthernetFrame builds a frame carrying an opaque payload of the given EtherType.
func EthernetFrame(src, dst string, etherType layers.EthernetType, payload []byte) []byte {
	eth := &layers.Ethernet{
		SrcMAC:       MustMAC(src),
		DstMAC:       MustMAC(dst),
		EthernetType: etherType,
	}
	return serialize(eth, gopacket.Payload(payload))
}

// UDPFrame builds an IPv4/UDP frame. dstMAC may be empty, in which case the
// multicast MAC of dstIP is used.
func UDPFrame(srcMAC, dstMAC, srcIP, dstIP string, payload []byte) []byte {
	dst := MulticastMAC(net.ParseIP(dstIP))
	if dstMAC != "" {
		dst = MustMAC(dstMAC)
	}
	eth := &layers.Ethernet{SrcMAC: MustMAC(srcMAC), DstMAC: dst, EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      16,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.ParseIP(srcIP).To4(),
		DstIP:    net.ParseIP(dstIP).To4(),
	}
	udp := &layers.UDP{SrcPort: 5000, DstPort: 5001}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		panic(err)
	}
	return serialize(eth, ip, udp, gopacket.Payload(payload))
}

// IGMPMessage encodes an 8-byte IGMPv2-format message (query, v2 report, leave).
func IGMPMessage(igmpType layers.IGMPType, group string) []byte {
	msg := make([]byte, 8)
	msg[0] = byte(igmpType)
	msg[1] = 100 // max response time, 10s
	if group != "" {
		copy(msg[4:8], net.ParseIP(group).To4())
	}
	binary.BigEndian.PutUint16(msg[2:4], checksum(msg))
	return msg
}

// GroupRecord is one IGMPv3 report record.
type GroupRecord struct {
	Type    layers.IGMPv3GroupRecordType
	Group   string
	Sources []string
}

// IGMPv3Report encodes an IGMPv3 membership report with the given records.
func IGMPv3Report(records ...GroupRecord) []byte {
	msg := make([]byte, 8)
	msg[0] = byte(layers.IGMPMembershipReportV3)
	binary.BigEndian.PutUint16(msg[6:8], uint16(len(records)))
	for _, r := range records {
		rec := make([]byte, 8, 8+4*len(r.Sources))
		rec[0] = byte(r.Type)
		binary.BigEndian.PutUint16(rec[2:4], uint16(len(r.Sources)))
		copy(rec[4:8], net.ParseIP(r.Group).To4())
		for _, s := range r.Sources {
			rec = append(rec, net.ParseIP(s).To4()...)
		}
		msg = append(msg, rec...)
	}
	binary.BigEndian.PutUint16(msg[2:4], checksum(msg))
	return msg
}

// IGMPFrame wraps an IGMP message into Ethernet and IPv4 headers. The
// destination MAC is derived from dstIP.
func IGMPFrame(srcMAC, srcIP, dstIP string, igmp []byte) []byte {
	eth := &layers.Ethernet{
		SrcMAC:       MustMAC(srcMAC),
		DstMAC:       MulticastMAC(net.ParseIP(dstIP)),
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      1,
		Protocol: layers.IPProtocolIGMP,
		SrcIP:    net.ParseIP(srcIP).To4(),
		DstIP:    net.ParseIP(dstIP).To4(),
	}
	return serialize(eth, ip, gopacket.Payload(igmp))
}

func checksum(b []byte) uint16 {
	var sum uint32
	for i := 0; i+1 < len(b); i += 2 {
		sum += uint32(b[i])<<8 | uint32(b[i+1])
	}
	if len(b)%2 == 1 {
		sum += uint32(b[len(b)-1]) << 8
	}
	for sum>>16 != 0 {
		sum = sum&0xffff + sum>>16
	}
	return ^uint16(sum)
}
