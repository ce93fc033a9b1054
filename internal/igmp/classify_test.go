package igmp

import (
	"Go2NetSwitch/internal/switchtest"
	"testing"

	"github.com/google/gopacket/layers"
)

const (
	hostMAC   = "aa:aa:aa:aa:aa:01"
	routerMAC = "aa:aa:aa:aa:aa:fe"
)

func report(groupAddr string) []byte {
	return switchtest.IGMPFrame(hostMAC, "10.0.0.1", groupAddr,
		switchtest.IGMPMessage(layers.IGMPMembershipReportV2, groupAddr))
}

func TestProcessMulticastPacket_ReportCreatesGroupAndGoesToQueriers(t *testing.T) {
	table, fakes, _ := newTable(t)
	table.AddQuerier(0)

	frame := report("239.1.1.1")
	if v := table.ProcessMulticastPacket(1, frame); v != Handled {
		t.Fatalf("verdict = %s, want handled", v)
	}

	groups := table.Groups()
	if len(groups) != 1 || groups[0].Group.String() != "239.1.1.1" {
		t.Fatalf("expected group 239.1.1.1, got %+v", groups)
	}
	if names := memberNames(groups[0]); len(names) != 1 || names[0] != "eth1" {
		t.Fatalf("expected single member eth1, got %v", names)
	}
	if fakes[0].SentCount() != 1 {
		t.Errorf("report must be forwarded to the known querier set")
	}
	if fakes[2].SentCount() != 0 || fakes[3].SentCount() != 0 || fakes[1].SentCount() != 0 {
		t.Errorf("report leaked to non-querier ports")
	}
}

func TestProcessMulticastPacket_GeneralQuery(t *testing.T) {
	table, fakes, _ := newTable(t)
	query := switchtest.IGMPFrame(routerMAC, "10.0.0.254", "224.0.0.1",
		switchtest.IGMPMessage(layers.IGMPMembershipQuery, ""))

	if v := table.ProcessMulticastPacket(0, query); v != Flood {
		t.Fatalf("general query verdict = %s, want flood", v)
	}
	if q := table.Queriers(); len(q) != 1 || q[0] != "eth0" {
		t.Errorf("expected eth0 recorded as querier, got %v", q)
	}
	if table.Len() != 0 {
		t.Errorf("general query must not create groups")
	}
	for _, f := range fakes {
		if f.SentCount() != 0 {
			t.Errorf("classifier must leave flooding to the caller")
		}
	}
}

func TestProcessMulticastPacket_GroupSpecificQuery(t *testing.T) {
	table, fakes, _ := newTable(t)
	g := mustGroup(t, "239.1.1.1")
	table.EnsureGroup(g)
	table.AddMember(g, 2)
	table.AddMember(g, 3)

	query := switchtest.IGMPFrame(routerMAC, "10.0.0.254", "239.1.1.1",
		switchtest.IGMPMessage(layers.IGMPMembershipQuery, "239.1.1.1"))
	if v := table.ProcessMulticastPacket(0, query); v != Handled {
		t.Fatalf("verdict = %s, want handled", v)
	}

	if entry := table.Groups()[0]; entry.QuerierName != "eth0" {
		t.Errorf("expected eth0 bound as querier, got %q", entry.QuerierName)
	}
	if fakes[2].SentCount() != 1 || fakes[3].SentCount() != 1 || fakes[1].SentCount() != 0 {
		t.Errorf("group-specific query must reach the group's members only")
	}

	// With the querier known, reports go only there.
	for _, f := range fakes {
		f.Reset()
	}
	table.AddQuerier(1)
	table.ProcessMulticastPacket(2, report("239.1.1.1"))
	if fakes[0].SentCount() != 1 || fakes[1].SentCount() != 0 {
		t.Errorf("report must follow the group's querier, not the fallback set")
	}
}

func TestProcessMulticastPacket_Leave(t *testing.T) {
	table, fakes, _ := newTable(t)
	g := mustGroup(t, "239.1.1.1")
	table.SetQuerier(g, 0)
	table.AddMember(g, 1)
	table.AddMember(g, 2)

	leave := switchtest.IGMPFrame(hostMAC, "10.0.0.1", "224.0.0.2",
		switchtest.IGMPMessage(layers.IGMPLeaveGroup, "239.1.1.1"))
	if v := table.ProcessMulticastPacket(1, leave); v != Handled {
		t.Fatalf("verdict = %s, want handled", v)
	}
	if names := memberNames(table.Groups()[0]); len(names) != 1 || names[0] != "eth2" {
		t.Errorf("expected only eth2 left, got %v", names)
	}
	if fakes[0].SentCount() != 1 {
		t.Errorf("leave must be forwarded to the querier")
	}
}

func TestProcessMulticastPacket_V3Report(t *testing.T) {
	table, fakes, _ := newTable(t)
	table.AddQuerier(0)
	stay := mustGroup(t, "239.5.5.5")
	table.EnsureGroup(stay)
	table.AddMember(stay, 1)

	msg := switchtest.IGMPv3Report(
		switchtest.GroupRecord{Type: layers.IGMPToEx, Group: "239.3.3.3"},
		switchtest.GroupRecord{Type: layers.IGMPIsIn, Group: "239.4.4.4", Sources: []string{"10.1.1.1"}},
		switchtest.GroupRecord{Type: layers.IGMPToIn, Group: "239.5.5.5"},
	)
	frame := switchtest.IGMPFrame(hostMAC, "10.0.0.1", "224.0.0.22", msg)

	if v := table.ProcessMulticastPacket(1, frame); v != Handled {
		t.Fatalf("verdict = %s, want handled", v)
	}

	byGroup := make(map[string][]string)
	for _, e := range table.Groups() {
		byGroup[e.Group.String()] = memberNames(e)
	}
	if m := byGroup["239.3.3.3"]; len(m) != 1 || m[0] != "eth1" {
		t.Errorf("TO_EX({}) must join, got %v", m)
	}
	if m := byGroup["239.4.4.4"]; len(m) != 1 || m[0] != "eth1" {
		t.Errorf("IS_IN with sources must join, got %v", m)
	}
	if m := byGroup["239.5.5.5"]; len(m) != 0 {
		t.Errorf("TO_IN({}) must leave, got %v", m)
	}
	if fakes[0].SentCount() != 1 {
		t.Errorf("v3 report must be forwarded once to the querier, got %d", fakes[0].SentCount())
	}
}

func TestProcessMulticastPacket_Data(t *testing.T) {
	table, fakes, _ := newTable(t)
	g := mustGroup(t, "239.1.1.1")
	table.EnsureGroup(g)
	table.AddMember(g, 2)

	data := switchtest.UDPFrame(hostMAC, "", "10.0.0.1", "239.1.1.1", []byte("stream"))
	if v := table.ProcessMulticastPacket(0, data); v != Handled {
		t.Fatalf("verdict = %s, want handled", v)
	}
	if fakes[2].SentCount() != 1 || fakes[1].SentCount() != 0 || fakes[3].SentCount() != 0 {
		t.Errorf("data must reach group members only")
	}

	unknown := switchtest.UDPFrame(hostMAC, "", "10.0.0.1", "239.7.7.7", []byte("stream"))
	if v := table.ProcessMulticastPacket(0, unknown); v != Flood {
		t.Errorf("unregistered group verdict = %s, want flood", v)
	}

	zero := switchtest.UDPFrame(hostMAC, "01:00:5e:00:00:00", "10.0.0.1", "0.0.0.0", []byte("x"))
	if v := table.ProcessMulticastPacket(0, zero); v != Flood {
		t.Errorf("zero destination verdict = %s, want flood", v)
	}
}

func TestProcessMulticastPacket_NonIPv4Floods(t *testing.T) {
	table, _, _ := newTable(t)
	frame := switchtest.EthernetFrame(hostMAC, "01:00:5e:00:00:fb", layers.EthernetTypeARP, make([]byte, 28))
	if v := table.ProcessMulticastPacket(0, frame); v != Flood {
		t.Errorf("verdict = %s, want flood", v)
	}
}

func TestProcessMulticastPacket_UnknownIGMPType(t *testing.T) {
	table, fakes, _ := newTable(t)
	table.AddQuerier(0)
	frame := switchtest.IGMPFrame(hostMAC, "10.0.0.1", "239.1.1.1",
		switchtest.IGMPMessage(layers.IGMPMembershipReportV1, "239.1.1.1"))

	if v := table.ProcessMulticastPacket(1, frame); v != Handled {
		t.Fatalf("verdict = %s, want handled", v)
	}
	if table.Len() != 0 || fakes[0].SentCount() != 0 {
		t.Errorf("unsupported IGMP types must not change state or forward")
	}
}

func TestProcessMulticastPacket_Malformed(t *testing.T) {
	full := report("239.1.1.1")
	ipStart := 14

	longIHL := make([]byte, ipStart+24)
	copy(longIHL, full[:ipStart+20])
	longIHL[ipStart] = 0x4f // 60-byte header declared, 24 captured

	shortIHL := make([]byte, len(full))
	copy(shortIHL, full)
	shortIHL[ipStart] = 0x44

	v3 := switchtest.IGMPFrame(hostMAC, "10.0.0.1", "224.0.0.22", switchtest.IGMPv3Report(
		switchtest.GroupRecord{Type: layers.IGMPToEx, Group: "239.3.3.3"},
	))
	// Declare a second record that is not there.
	v3Truncated := make([]byte, ipStart+20+8+8)
	copy(v3Truncated, v3)
	v3Truncated[ipStart+20+7] = 2

	tests := []struct {
		name  string
		frame []byte
	}{
		{"shorter than ethernet header", full[:10]},
		{"shorter than ip header", full[:ipStart+12]},
		{"declared ip header exceeds capture", longIHL},
		{"ip header length below minimum", shortIHL},
		{"shorter than igmp header", full[:ipStart+20+4]},
		{"truncated v3 group records", v3Truncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := &switchtest.EventRecorder{}
			table, fakes, _ := newTable(t, WithEvents(events))
			table.AddQuerier(0)
			before := len(events.Events())

			if v := table.ProcessMulticastPacket(1, tt.frame); v != Malformed {
				t.Fatalf("verdict = %s, want malformed", v)
			}
			if table.Len() != 0 || len(events.Events()) != before {
				t.Errorf("malformed frame mutated state")
			}
			for _, f := range fakes {
				if f.SentCount() != 0 {
					t.Errorf("malformed frame was forwarded via %s", f.Name())
				}
			}
		})
	}
}

func TestParseMessage(t *testing.T) {
	msg, ok := ParseMessage(switchtest.IGMPMessage(layers.IGMPLeaveGroup, "239.1.1.1"))
	if !ok {
		t.Fatalf("ParseMessage failed")
	}
	if msg.Type != layers.IGMPLeaveGroup || msg.Group.String() != "239.1.1.1" {
		t.Errorf("unexpected message: %+v", msg)
	}

	msg, ok = ParseMessage(switchtest.IGMPv3Report(
		switchtest.GroupRecord{Type: layers.IGMPIsEx, Group: "239.1.1.1", Sources: []string{"10.0.0.1", "10.0.0.2"}},
		switchtest.GroupRecord{Type: layers.IGMPBlock, Group: "239.1.1.2", Sources: []string{"10.0.0.3"}},
	))
	if !ok {
		t.Fatalf("ParseMessage failed on v3 report")
	}
	if len(msg.Records) != 2 || msg.Records[0].Sources != 2 || msg.Records[1].Group.String() != "239.1.1.2" {
		t.Errorf("unexpected records: %+v", msg.Records)
	}
	if msg.Records[0].IsLeave() || msg.Records[1].IsLeave() {
		t.Errorf("records with sources must not be treated as leaves")
	}

	if _, ok := ParseMessage([]byte{0x11, 0, 0}); ok {
		t.Errorf("expected short message to be rejected")
	}
}

func TestProcessMulticastPacket_KnownGroupWithoutMembers(t *testing.T) {
	table, fakes, _ := newTable(t)
	g := mustGroup(t, "239.3.3.3")
	table.EnsureGroup(g)

	data := switchtest.UDPFrame(hostMAC, "", "10.0.0.1", "239.3.3.3", []byte("stream"))
	if v := table.ProcessMulticastPacket(0, data); v != Handled {
		t.Fatalf("verdict = %s, want handled", v)
	}
	for i, f := range fakes {
		if f.SentCount() != 0 {
			t.Errorf("eth%d got %d frames; a known group without members must not be flooded", i, f.SentCount())
		}
	}
}

func TestParseMessage_RecordCountBoundedByLength(t *testing.T) {
	// A v3 report header claiming 65535 records and carrying none.
	msg := []byte{byte(layers.IGMPMembershipReportV3), 0, 0, 0, 0, 0, 0xff, 0xff}
	if _, ok := ParseMessage(msg); ok {
		t.Fatalf("truncated v3 report must be rejected")
	}

	res := testing.Benchmark(func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			ParseMessage(msg)
		}
	})
	if bytes := res.AllocedBytesPerOp(); bytes > 64 {
		t.Errorf("ParseMessage allocated %d bytes per call for an empty v3 report", bytes)
	}
}
