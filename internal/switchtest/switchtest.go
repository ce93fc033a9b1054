// Package switchtest provides in-memory ports, a manual clock and frame
// builders for tests of the forwarding core.
package switchtest

import (
	"Go2NetSwitch/internal/model"
	"errors"
	"sync"
	"time"
)

// ErrSendFailed is returned by a FakePort configured to fail.
var ErrSendFailed = errors.New("send failed")

// FakePort records every frame sent through it.
type FakePort struct {
	id   model.PortID
	name string

	mu       sync.Mutex
	sent     [][]byte
	received int
	fail     bool
}

func (p *FakePort) ID() model.PortID { return p.id }
func (p *FakePort) Name() string     { return p.name }

func (p *FakePort) Send(frame []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return 0, ErrSendFailed
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)
	p.sent = append(p.sent, cp)
	return len(frame), nil
}

func (p *FakePort) RecordReceive(int) {
	p.mu.Lock()
	p.received++
	p.mu.Unlock()
}

// SetFail makes every following Send return ErrSendFailed.
func (p *FakePort) SetFail(fail bool) {
	p.mu.Lock()
	p.fail = fail
	p.mu.Unlock()
}

// Sent returns copies of the frames sent so far.
func (p *FakePort) Sent() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.sent))
	copy(out, p.sent)
	return out
}

// SentCount returns how many frames were sent.
func (p *FakePort) SentCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

// Received returns how many frames were recorded as received.
func (p *FakePort) Received() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.received
}

// Reset forgets sent frames.
func (p *FakePort) Reset() {
	p.mu.Lock()
	p.sent = nil
	p.mu.Unlock()
}

// Ports builds fake ports with ids in argument order and the PortSet over them.
func Ports(names ...string) (*model.PortSet, []*FakePort) {
	fakes := make([]*FakePort, len(names))
	ports := make([]model.Port, len(names))
	for i, name := range names {
		fakes[i] = &FakePort{id: model.PortID(i), name: name}
		ports[i] = fakes[i]
	}
	set, err := model.NewPortSet(ports...)
	if err != nil {
		panic(err)
	}
	return set, fakes
}

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts at a fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// EventRecorder is a model.EventSink that keeps every event.
type EventRecorder struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *EventRecorder) Emit(ev model.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Kinds returns the kinds of the recorded events in order.
func (r *EventRecorder) Kinds() []model.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]model.EventKind, len(r.events))
	for i, ev := range r.events {
		kinds[i] = ev.Kind
	}
	return kinds
}

// Events returns a copy of the recorded events.
func (r *EventRecorder) Events() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Event, len(r.events))
	copy(out, r.events)
	return out
}

// State is a fixed model.SwitchState.
type State struct {
	Macs   []model.CamEntry
	Groups []model.GroupEntry
	Qs     []string
	Stats  []model.PortStats
}

func (s *State) MacTable() []model.CamEntry    { return s.Macs }
func (s *State) IgmpTable() []model.GroupEntry { return s.Groups }
func (s *State) Queriers() []string            { return s.Qs }
func (s *State) PortStats() []model.PortStats  { return s.Stats }

// SampleState returns a small switch with two learned addresses, one group
// with a querier and two members, and three ports.
func SampleState() *State {
	mac1, _ := model.ParseMAC("aa:bb:cc:00:00:01")
	mac2, _ := model.ParseMAC("aa:bb:cc:00:00:02")
	group, _ := model.ParseGroup("239.1.1.1")
	return &State{
		Macs: []model.CamEntry{
			{MAC: mac1, Port: 0, PortName: "eth0", Age: 5 * time.Second},
			{MAC: mac2, Port: 1, PortName: "eth1", Age: 12 * time.Second},
		},
		Groups: []model.GroupEntry{{
			Group:       group,
			Querier:     2,
			QuerierName: "eth2",
			Members: []model.MemberEntry{
				{Port: 0, PortName: "eth0", Age: 3 * time.Second},
				{Port: 1, PortName: "eth1", Age: 7 * time.Second},
			},
		}},
		Qs: []string{"eth2"},
		Stats: []model.PortStats{
			{Name: "eth0", SentFrames: 4, SentBytes: 400, RecvFrames: 10, RecvBytes: 1000},
			{Name: "eth1", SentFrames: 6, SentBytes: 600, RecvFrames: 2, RecvBytes: 128, TxErrors: 1},
			{Name: "eth2"},
		},
	}
}
