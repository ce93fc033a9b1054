package model

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"
)

// MacAddress is a 6-byte hardware address. It is comparable and can be used
// directly as a map key.
type MacAddress [6]byte

// BroadcastMAC is ff:ff:ff:ff:ff:ff.
var BroadcastMAC = MacAddress{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// ipv4MulticastOUI is the prefix of Ethernet addresses carrying IPv4 multicast.
var ipv4MulticastOUI = [3]byte{0x01, 0x00, 0x5e}

// MacFromBytes copies the first six bytes of b. The caller must ensure
// len(b) >= 6.
func MacFromBytes(b []byte) MacAddress {
	var m MacAddress
	copy(m[:], b[:6])
	return m
}

// ParseMAC accepts every format net.ParseMAC does, restricted to 48-bit addresses.
func ParseMAC(s string) (MacAddress, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return MacAddress{}, err
	}
	if len(hw) != 6 {
		return MacAddress{}, fmt.Errorf("not a 48-bit MAC address: %s", s)
	}
	return MacFromBytes(hw), nil
}

func (m MacAddress) String() string {
	return net.HardwareAddr(m[:]).String()
}

// Cisco renders the address as aaaa.bbbb.cccc.
func (m MacAddress) Cisco() string {
	return fmt.Sprintf("%02x%02x.%02x%02x.%02x%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// Compare orders addresses lexicographically by byte.
func (m MacAddress) Compare(o MacAddress) int {
	return bytes.Compare(m[:], o[:])
}

func (m MacAddress) Less(o MacAddress) bool {
	return m.Compare(o) < 0
}

func (m MacAddress) IsBroadcast() bool {
	return m == BroadcastMAC
}

// IsMulticast reports whether the address is in the IPv4 multicast range 01:00:5e.
func (m MacAddress) IsMulticast() bool {
	return m[0] == ipv4MulticastOUI[0] && m[1] == ipv4MulticastOUI[1] && m[2] == ipv4MulticastOUI[2]
}

// GroupID identifies a multicast group by its IPv4 address in host byte order.
type GroupID uint32

// GroupFromBytes decodes a big-endian IPv4 address. The caller must ensure
// len(b) >= 4.
func GroupFromBytes(b []byte) GroupID {
	return GroupID(binary.BigEndian.Uint32(b))
}

// ParseGroup parses a dotted-quad IPv4 address.
func ParseGroup(s string) (GroupID, error) {
	ip := net.ParseIP(s).To4()
	if ip == nil {
		return 0, fmt.Errorf("invalid IPv4 group address: %q", s)
	}
	return GroupFromBytes(ip), nil
}

func (g GroupID) IP() net.IP {
	ip := make(net.IP, 4)
	binary.BigEndian.PutUint32(ip, uint32(g))
	return ip
}

func (g GroupID) String() string {
	return g.IP().String()
}

func (g GroupID) IsZero() bool {
	return g == 0
}
