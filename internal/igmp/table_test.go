package igmp

import (
	"Go2NetSwitch/internal/model"
	"Go2NetSwitch/internal/switchtest"
	"sync"
	"testing"
	"time"
)

func newTable(t *testing.T, opts ...Option) (*Table, []*switchtest.FakePort, *switchtest.Clock) {
	t.Helper()
	ports, fakes := switchtest.Ports("eth0", "eth1", "eth2", "eth3")
	clock := switchtest.NewClock()
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return NewTable(ports, opts...), fakes, clock
}

func mustGroup(t *testing.T, s string) model.GroupID {
	t.Helper()
	g, err := model.ParseGroup(s)
	if err != nil {
		t.Fatalf("ParseGroup(%q): %v", s, err)
	}
	return g
}

func memberNames(e model.GroupEntry) []string {
	names := make([]string, len(e.Members))
	for i, m := range e.Members {
		names[i] = m.PortName
	}
	return names
}

func TestTable_AddMemberUnknownGroupIsNoop(t *testing.T) {
	table, _, _ := newTable(t)
	g := mustGroup(t, "239.1.1.1")

	if table.AddMember(g, 1) {
		t.Fatalf("AddMember on unknown group must report false")
	}
	if table.Len() != 0 {
		t.Fatalf("expected no groups, got %d", table.Len())
	}

	if !table.EnsureGroup(g) {
		t.Fatalf("EnsureGroup must report creation")
	}
	if table.EnsureGroup(g) {
		t.Fatalf("EnsureGroup must be idempotent")
	}
	if !table.AddMember(g, 1) {
		t.Fatalf("AddMember on known group failed")
	}

	groups := table.Groups()
	if len(groups) != 1 || len(groups[0].Members) != 1 || groups[0].Members[0].PortName != "eth1" {
		t.Fatalf("unexpected groups: %+v", groups)
	}
	if groups[0].HasQuerier() {
		t.Errorf("new group must not have a querier")
	}
}

func TestTable_AddMemberRefreshesTimestamp(t *testing.T) {
	table, _, clock := newTable(t)
	g := mustGroup(t, "239.1.1.1")
	table.EnsureGroup(g)
	table.AddMember(g, 1)
	clock.Advance(20 * time.Second)
	table.AddMember(g, 1)

	members := table.Groups()[0].Members
	if len(members) != 1 {
		t.Fatalf("repeated report must not duplicate the member, got %d", len(members))
	}
	if members[0].Age != 0 {
		t.Errorf("expected refreshed age 0, got %s", members[0].Age)
	}
}

func TestTable_RemoveMember(t *testing.T) {
	table, _, _ := newTable(t)
	g := mustGroup(t, "239.1.1.1")
	table.EnsureGroup(g)
	table.AddMember(g, 1)
	table.AddMember(g, 2)
	table.AddMember(g, 3)

	if !table.RemoveMember(g, 2) {
		t.Fatalf("RemoveMember of existing member reported false")
	}
	if table.RemoveMember(g, 2) {
		t.Errorf("second RemoveMember must be a no-op")
	}
	if table.RemoveMember(mustGroup(t, "239.9.9.9"), 1) {
		t.Errorf("RemoveMember on unknown group must be a no-op")
	}

	names := memberNames(table.Groups()[0])
	if len(names) != 2 || names[0] != "eth1" || names[1] != "eth3" {
		t.Errorf("expected [eth1 eth3] in join order, got %v", names)
	}
}

func TestTable_SweepAgesOnlyStaleMembers(t *testing.T) {
	events := &switchtest.EventRecorder{}
	table, _, clock := newTable(t, WithEvents(events))
	g := mustGroup(t, "239.1.1.1")
	table.EnsureGroup(g)
	table.AddMember(g, 1)
	clock.Advance(20 * time.Second)
	table.AddMember(g, 2)
	clock.Advance(11 * time.Second)

	if removed := table.Sweep(); removed != 1 {
		t.Fatalf("expected one member aged out, got %d", removed)
	}

	groups := table.Groups()
	if len(groups) != 1 {
		t.Fatalf("empty or not, the group must persist; got %d groups", len(groups))
	}
	members := groups[0].Members
	if len(members) != 1 || members[0].PortName != "eth2" {
		t.Fatalf("expected only eth2 left, got %+v", members)
	}
	if members[0].Age != 11*time.Second {
		t.Errorf("sweep disturbed the surviving member's timestamp: age %s", members[0].Age)
	}

	kinds := events.Kinds()
	if kinds[len(kinds)-1] != model.EventMemberExpired {
		t.Errorf("expected member_expired event last, got %v", kinds)
	}

	clock.Advance(30 * time.Second)
	table.Sweep()
	if n := len(table.Groups()[0].Members); n != 0 {
		t.Errorf("expected group drained, %d members left", n)
	}
	if table.Len() != 1 {
		t.Errorf("drained group must not be purged")
	}
}

func TestTable_SweepBoundary(t *testing.T) {
	table, _, clock := newTable(t)
	g := mustGroup(t, "239.1.1.1")
	table.EnsureGroup(g)
	table.AddMember(g, 1)

	clock.Advance(29 * time.Second)
	if table.Sweep() != 0 {
		t.Fatalf("member removed at T+29")
	}
	clock.Advance(2 * time.Second)
	if table.Sweep() != 1 {
		t.Fatalf("member kept at T+31")
	}
}

func TestTable_SetQuerier(t *testing.T) {
	table, _, _ := newTable(t)
	g := mustGroup(t, "239.2.2.2")

	table.SetQuerier(g, 0)
	groups := table.Groups()
	if len(groups) != 1 || groups[0].Querier != 0 || groups[0].QuerierName != "eth0" {
		t.Fatalf("SetQuerier must create the group bound to eth0, got %+v", groups)
	}

	table.SetQuerier(g, 3)
	if q := table.Groups()[0].QuerierName; q != "eth3" {
		t.Errorf("SetQuerier must overwrite the querier, got %s", q)
	}
}

func TestTable_AddQuerierDeduplicates(t *testing.T) {
	table, _, _ := newTable(t)
	if !table.AddQuerier(0) || !table.AddQuerier(2) {
		t.Fatalf("new queriers must be reported")
	}
	if table.AddQuerier(0) {
		t.Errorf("duplicate querier must be ignored")
	}
	names := table.Queriers()
	if len(names) != 2 || names[0] != "eth0" || names[1] != "eth2" {
		t.Errorf("unexpected queriers: %v", names)
	}
}

func TestTable_SendToGroup(t *testing.T) {
	table, fakes, _ := newTable(t)
	g := mustGroup(t, "239.1.1.1")
	frame := []byte("data")

	if _, ok := table.SendToGroup(g, frame, model.NoPort); ok {
		t.Fatalf("SendToGroup on unknown group must report unknown")
	}

	table.EnsureGroup(g)
	table.AddMember(g, 1)
	table.AddMember(g, 2)

	sent, ok := table.SendToGroup(g, frame, 0)
	if !ok || sent != 2 {
		t.Fatalf("SendToGroup = %d, %v; want 2, true", sent, ok)
	}
	if fakes[1].SentCount() != 1 || fakes[2].SentCount() != 1 || fakes[3].SentCount() != 0 {
		t.Errorf("frame must reach members only")
	}

	// A member never receives its own traffic back.
	sent, _ = table.SendToGroup(g, frame, 1)
	if sent != 1 || fakes[1].SentCount() != 1 {
		t.Errorf("frame was reflected to its ingress member port")
	}
}

func TestTable_SendToQuerier(t *testing.T) {
	table, fakes, _ := newTable(t)
	g := mustGroup(t, "239.1.1.1")
	frame := []byte("report")

	table.AddQuerier(0)
	table.AddQuerier(3)
	table.EnsureGroup(g)
	table.AddMember(g, 1)

	// No querier bound to the group: every general querier gets the frame, members do not.
	if sent := table.SendToQuerier(g, frame, 2); sent != 2 {
		t.Fatalf("fallback sent %d frames, want 2", sent)
	}
	if fakes[0].SentCount() != 1 || fakes[3].SentCount() != 1 || fakes[1].SentCount() != 0 {
		t.Errorf("fallback must target the queriers set, not members")
	}

	for _, f := range fakes {
		f.Reset()
	}
	table.SetQuerier(g, 3)
	if sent := table.SendToQuerier(g, frame, 2); sent != 1 {
		t.Fatalf("known querier: sent %d frames, want 1", sent)
	}
	if fakes[3].SentCount() != 1 || fakes[0].SentCount() != 0 {
		t.Errorf("frame must go only to the group's querier")
	}
}

func TestTable_SendToQueriersUnion(t *testing.T) {
	table, fakes, _ := newTable(t)
	a, b := mustGroup(t, "239.1.1.1"), mustGroup(t, "239.1.1.2")
	table.SetQuerier(a, 0)
	table.SetQuerier(b, 0)

	if sent := table.SendToQueriers([]model.GroupID{a, b}, []byte("x"), 1); sent != 1 {
		t.Fatalf("shared querier must receive the frame once, sent %d", sent)
	}
	if fakes[0].SentCount() != 1 {
		t.Errorf("expected one frame on eth0, got %d", fakes[0].SentCount())
	}
}

func TestTable_ConcurrentAccess(t *testing.T) {
	table, _, _ := newTable(t)
	g := mustGroup(t, "239.1.1.1")
	table.EnsureGroup(g)

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(port model.PortID) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				table.AddMember(g, port)
				table.SendToGroup(g, []byte("x"), port)
				table.SendToQuerier(g, []byte("x"), port)
				if i%10 == 0 {
					table.RemoveMember(g, port)
					table.Sweep()
					table.Groups()
				}
			}
		}(model.PortID(p))
	}
	wg.Wait()

	if n := len(table.Groups()[0].Members); n > 4 {
		t.Errorf("member set grew past the port count: %d", n)
	}
}
