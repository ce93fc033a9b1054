// Package igmp implements IGMP snooping: multicast group membership learned
// from membership reports, querier tracking, and membership aging.
package igmp

import (
	"Go2NetSwitch/internal/model"
	"sort"
	"sync"
	"time"

	"github.com/projectdiscovery/gologger"
)

// DefaultTimeout is how long a member survives without a new report.
const DefaultTimeout = 30 * time.Second

type member struct {
	port     model.PortID
	lastSeen time.Time
}

type group struct {
	querier model.PortID
	members []member // in join order
}

func (g *group) find(port model.PortID) int {
	for i, m := range g.members {
		if m.port == port {
			return i
		}
	}
	return -1
}

// Table maps multicast groups to their querier and member ports, and keeps
// the set of every port a general query was seen on. One mutex guards all of
// it. Frames are transmitted after the lock is released.
type Table struct {
	mu       sync.Mutex
	groups   map[model.GroupID]*group
	queriers []model.PortID

	ports   *model.PortSet
	timeout time.Duration
	now     func() time.Time
	events  model.EventSink
}

// Option configures a Table.
type Option func(*Table)

// WithTimeout sets the membership aging threshold.
func WithTimeout(d time.Duration) Option {
	return func(t *Table) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Table) { t.now = now }
}

// WithEvents sets the sink that receives group and membership events.
func WithEvents(sink model.EventSink) Option {
	return func(t *Table) {
		if sink != nil {
			t.events = sink
		}
	}
}

// NewTable creates an empty snooping table over ports.
func NewTable(ports *model.PortSet, opts ...Option) *Table {
	t := &Table{
		groups:  make(map[model.GroupID]*group),
		ports:   ports,
		timeout: DefaultTimeout,
		now:     time.Now,
		events:  model.NopSink{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name identifies the table to the aging driver.
func (t *Table) Name() string {
	return "igmp"
}

// ensureLocked returns the group record, creating it without a querier if absent.
func (t *Table) ensureLocked(id model.GroupID, evs []model.Event) (*group, []model.Event) {
	g, ok := t.groups[id]
	if !ok {
		g = &group{querier: model.NoPort}
		t.groups[id] = g
		evs = append(evs, model.Event{Kind: model.EventGroupCreated, Time: t.now(), Group: id.String()})
	}
	return g, evs
}

func (t *Table) emit(evs []model.Event) {
	for _, ev := range evs {
		gologger.Debug().Msgf("IgmpTable: %s group=%s port=%s", ev.Kind, ev.Group, ev.Port)
		t.events.Emit(ev)
	}
}

// EnsureGroup creates the group if it does not exist and reports whether it did.
func (t *Table) EnsureGroup(id model.GroupID) bool {
	t.mu.Lock()
	_, evs := t.ensureLocked(id, nil)
	t.mu.Unlock()
	t.emit(evs)
	return len(evs) > 0
}

// SetQuerier creates the group if needed and binds its querier to port.
func (t *Table) SetQuerier(id model.GroupID, port model.PortID) {
	t.mu.Lock()
	g, evs := t.ensureLocked(id, nil)
	if g.querier != port {
		g.querier = port
		evs = append(evs, model.Event{Kind: model.EventQuerierSet, Time: t.now(), Group: id.String(), Port: t.ports.Name(port)})
	}
	t.mu.Unlock()
	t.emit(evs)
}

// AddMember adds port to a known group or refreshes its timestamp. Reports
// for unknown groups are dropped and false is returned.
func (t *Table) AddMember(id model.GroupID, port model.PortID) bool {
	t.mu.Lock()
	g, ok := t.groups[id]
	if !ok {
		t.mu.Unlock()
		gologger.Verbose().Msgf("IgmpTable: membership for unknown group %s dropped", id)
		return false
	}
	now := t.now()
	if i := g.find(port); i >= 0 {
		g.members[i].lastSeen = now
		t.mu.Unlock()
		return true
	}
	g.members = append(g.members, member{port: port, lastSeen: now})
	t.mu.Unlock()

	t.emit([]model.Event{{Kind: model.EventMemberJoined, Time: now, Group: id.String(), Port: t.ports.Name(port)}})
	return true
}

// RemoveMember removes port from the group. It reports whether the port was a member.
func (t *Table) RemoveMember(id model.GroupID, port model.PortID) bool {
	t.mu.Lock()
	g, ok := t.groups[id]
	if !ok {
		t.mu.Unlock()
		return false
	}
	i := g.find(port)
	if i < 0 {
		t.mu.Unlock()
		return false
	}
	g.members = append(g.members[:i], g.members[i+1:]...)
	t.mu.Unlock()

	t.emit([]model.Event{{Kind: model.EventMemberLeft, Time: t.now(), Group: id.String(), Port: t.ports.Name(port)}})
	return true
}

// AddQuerier records port as a general querier. It reports whether the port was new.
func (t *Table) AddQuerier(port model.PortID) bool {
	t.mu.Lock()
	for _, q := range t.queriers {
		if q == port {
			t.mu.Unlock()
			return false
		}
	}
	t.queriers = append(t.queriers, port)
	t.mu.Unlock()

	t.emit([]model.Event{{Kind: model.EventQuerierAdded, Time: t.now(), Port: t.ports.Name(port)}})
	return true
}

// SendToGroup sends frame to every member of the group except the port it
// came from. It returns false, without sending, for an unknown group.
func (t *Table) SendToGroup(id model.GroupID, frame []byte, from model.PortID) (int, bool) {
	t.mu.Lock()
	g, ok := t.groups[id]
	if !ok {
		t.mu.Unlock()
		return 0, false
	}
	targets := make([]model.PortID, 0, len(g.members))
	for _, m := range g.members {
		targets = append(targets, m.port)
	}
	t.mu.Unlock()

	return t.sendTo(targets, frame, from), true
}

// SendToQuerier sends frame to the group's querier. When the querier is not
// known, the frame goes to every general querier instead.
func (t *Table) SendToQuerier(id model.GroupID, frame []byte, from model.PortID) int {
	return t.SendToQueriers([]model.GroupID{id}, frame, from)
}

// SendToQueriers sends frame once to the union of the querier targets of
// every listed group. With no groups it falls back to the general queriers.
func (t *Table) SendToQueriers(ids []model.GroupID, frame []byte, from model.PortID) int {
	t.mu.Lock()
	var targets []model.PortID
	fallback := len(ids) == 0
	for _, id := range ids {
		if g, ok := t.groups[id]; ok && g.querier != model.NoPort {
			targets = appendUnique(targets, g.querier)
		} else {
			fallback = true
		}
	}
	if fallback {
		for _, q := range t.queriers {
			targets = appendUnique(targets, q)
		}
	}
	t.mu.Unlock()

	return t.sendTo(targets, frame, from)
}

func appendUnique(ids []model.PortID, id model.PortID) []model.PortID {
	for _, x := range ids {
		if x == id {
			return ids
		}
	}
	return append(ids, id)
}

func (t *Table) sendTo(targets []model.PortID, frame []byte, from model.PortID) int {
	sent := 0
	for _, id := range targets {
		if id == from {
			continue
		}
		p := t.ports.Lookup(id)
		if p == nil {
			continue
		}
		if _, err := p.Send(frame); err != nil {
			gologger.Verbose().Msgf("IgmpTable: send via %s failed: %v", p.Name(), err)
			continue
		}
		sent++
	}
	return sent
}

// Sweep drops every member whose last report is older than the timeout.
// Groups themselves are kept even when they become empty.
func (t *Table) Sweep() int {
	t.mu.Lock()
	now := t.now()
	var evs []model.Event
	for id, g := range t.groups {
		kept := g.members[:0]
		for _, m := range g.members {
			if now.Sub(m.lastSeen) > t.timeout {
				evs = append(evs, model.Event{Kind: model.EventMemberExpired, Time: now, Group: id.String(), Port: t.ports.Name(m.port)})
				continue
			}
			kept = append(kept, m)
		}
		g.members = kept
	}
	t.mu.Unlock()

	t.emit(evs)
	return len(evs)
}

// Groups returns a copy of every group record, ordered by group address.
func (t *Table) Groups() []model.GroupEntry {
	t.mu.Lock()
	now := t.now()
	out := make([]model.GroupEntry, 0, len(t.groups))
	for id, g := range t.groups {
		entry := model.GroupEntry{Group: id, Querier: g.querier, Members: make([]model.MemberEntry, 0, len(g.members))}
		if g.querier != model.NoPort {
			entry.QuerierName = t.ports.Name(g.querier)
		}
		for _, m := range g.members {
			entry.Members = append(entry.Members, model.MemberEntry{
				Port:     m.port,
				PortName: t.ports.Name(m.port),
				Age:      now.Sub(m.lastSeen),
			})
		}
		out = append(out, entry)
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Group < out[j].Group })
	return out
}

// Queriers returns the names of the general querier ports in discovery order.
func (t *Table) Queriers() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, len(t.queriers))
	for i, q := range t.queriers {
		names[i] = t.ports.Name(q)
	}
	return names
}

// Len returns the number of groups.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.groups)
}
