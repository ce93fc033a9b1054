package igmp

import (
	"Go2NetSwitch/internal/model"
	"encoding/binary"

	"github.com/google/gopacket/layers"
	"github.com/projectdiscovery/gologger"
)

// Verdict is the outcome of classifying a multicast frame.
type Verdict int

const (
	// Handled means the frame was forwarded by the table, or needs no forwarding.
	Handled Verdict = iota
	// Flood means the caller should flood the frame to every other port.
	Flood
	// Malformed means the frame is truncated; it must be dropped.
	Malformed
)

func (v Verdict) String() string {
	switch v {
	case Handled:
		return "handled"
	case Flood:
		return "flood"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

const (
	ethHeaderLen     = 14
	ipv4MinHeaderLen = 20
	igmpHeaderLen    = 8
	igmpv3RecordLen  = 8

	ipv4DstOffset = 16
)

// GroupRecord is one group record of an IGMPv3 membership report.
type GroupRecord struct {
	Type    layers.IGMPv3GroupRecordType
	Group   model.GroupID
	Sources int
}

// IsLeave reports whether the record removes the sender from the group:
// INCLUDE mode with an empty source list.
func (r GroupRecord) IsLeave() bool {
	return (r.Type == layers.IGMPIsIn || r.Type == layers.IGMPToIn) && r.Sources == 0
}

// Message is a decoded IGMP header. Records is only set for v3 reports.
type Message struct {
	Type    layers.IGMPType
	Group   model.GroupID
	Records []GroupRecord
}

// ParseMessage decodes an IGMP message. It returns false when b is shorter
// than the header or than the group records a v3 report declares.
func ParseMessage(b []byte) (Message, bool) {
	if len(b) < igmpHeaderLen {
		return Message{}, false
	}
	msg := Message{Type: layers.IGMPType(b[0])}
	if msg.Type != layers.IGMPMembershipReportV3 {
		msg.Group = model.GroupFromBytes(b[4:8])
		return msg, true
	}

	n := int(binary.BigEndian.Uint16(b[6:8]))
	off := igmpHeaderLen
	// The count comes off the wire; size the slice by what the bytes can hold.
	msg.Records = make([]GroupRecord, 0, min(n, (len(b)-igmpHeaderLen)/igmpv3RecordLen))
	for i := 0; i < n; i++ {
		if off+igmpv3RecordLen > len(b) {
			return Message{}, false
		}
		auxLen := int(b[off+1]) * 4
		sources := int(binary.BigEndian.Uint16(b[off+2 : off+4]))
		size := igmpv3RecordLen + sources*4 + auxLen
		if off+size > len(b) {
			return Message{}, false
		}
		msg.Records = append(msg.Records, GroupRecord{
			Type:    layers.IGMPv3GroupRecordType(b[off]),
			Group:   model.GroupFromBytes(b[off+4 : off+8]),
			Sources: sources,
		})
		off += size
	}
	return msg, true
}

// ProcessMulticastPacket classifies a frame sent to an IPv4 multicast MAC,
// updates snooping state from IGMP messages and forwards the frame where the
// table knows how to. The frame slice holds exactly the captured bytes.
func (t *Table) ProcessMulticastPacket(from model.PortID, frame []byte) Verdict {
	if len(frame) < ethHeaderLen {
		return Malformed
	}
	if layers.EthernetType(binary.BigEndian.Uint16(frame[12:14])) != layers.EthernetTypeIPv4 {
		return Flood
	}
	if len(frame) < ethHeaderLen+ipv4MinHeaderLen {
		return Malformed
	}
	ip := frame[ethHeaderLen:]
	ipHeaderLen := int(ip[0]&0x0f) * 4
	if ipHeaderLen < ipv4MinHeaderLen || len(ip) < ipHeaderLen {
		return Malformed
	}

	if layers.IPProtocol(ip[9]) == layers.IPProtocolIGMP {
		msg, ok := ParseMessage(ip[ipHeaderLen:])
		if !ok {
			return Malformed
		}
		return t.ProcessIGMP(from, frame, msg)
	}

	dst := model.GroupFromBytes(ip[ipv4DstOffset : ipv4DstOffset+4])
	if dst.IsZero() {
		return Flood
	}
	if _, known := t.SendToGroup(dst, frame, from); !known {
		// Unregistered multicast is flooded.
		return Flood
	}
	return Handled
}

// ProcessIGMP applies one IGMP message received on from and forwards frame.
func (t *Table) ProcessIGMP(from model.PortID, frame []byte, msg Message) Verdict {
	switch msg.Type {
	case layers.IGMPMembershipQuery:
		if msg.Group.IsZero() {
			t.AddQuerier(from)
			return Flood
		}
		t.SetQuerier(msg.Group, from)
		t.SendToGroup(msg.Group, frame, from)
		return Handled

	case layers.IGMPMembershipReportV2:
		if msg.Group.IsZero() {
			return Handled
		}
		t.EnsureGroup(msg.Group)
		t.AddMember(msg.Group, from)
		t.SendToQuerier(msg.Group, frame, from)
		return Handled

	case layers.IGMPMembershipReportV3:
		groups := make([]model.GroupID, 0, len(msg.Records))
		for _, r := range msg.Records {
			if r.Group.IsZero() {
				continue
			}
			if r.IsLeave() {
				t.RemoveMember(r.Group, from)
			} else {
				t.EnsureGroup(r.Group)
				t.AddMember(r.Group, from)
			}
			groups = append(groups, r.Group)
		}
		t.SendToQueriers(groups, frame, from)
		return Handled

	case layers.IGMPLeaveGroup:
		if msg.Group.IsZero() {
			return Handled
		}
		t.RemoveMember(msg.Group, from)
		t.SendToQuerier(msg.Group, frame, from)
		return Handled

	default:
		gologger.Verbose().Msgf("IgmpTable: ignoring IGMP type %#02x from %s", uint8(msg.Type), t.ports.Name(from))
		return Handled
	}
}
