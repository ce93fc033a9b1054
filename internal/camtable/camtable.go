// Package camtable implements the MAC learning table of the switch: which
// port a hardware address was last seen on, with aging.
package camtable

import (
	"Go2NetSwitch/internal/model"
	"sort"
	"sync"
	"time"

	"github.com/projectdiscovery/gologger"
)

// DefaultTimeout is how long a record survives without being refreshed.
const DefaultTimeout = 60 * time.Second

// UpdateResult tells what Update did with the record.
type UpdateResult int

const (
	// Created means the address was unknown and a record was inserted.
	Created UpdateResult = iota
	// Refreshed means only the record's timestamp was renewed.
	Refreshed
	// Moved means the address was seen on a new port and the record was rebound to it.
	Moved
)

func (r UpdateResult) String() string {
	switch r {
	case Created:
		return "created"
	case Refreshed:
		return "refreshed"
	case Moved:
		return "moved"
	default:
		return "unknown"
	}
}

type record struct {
	port     model.PortID
	lastSeen time.Time
}

// CamTable maps MAC addresses to the port they were learned on. A single
// mutex guards the map for the duration of each operation.
type CamTable struct {
	mu      sync.Mutex
	records map[model.MacAddress]*record

	ports   *model.PortSet
	timeout time.Duration
	rebind  bool
	now     func() time.Time
	events  model.EventSink
}

// Option configures a CamTable.
type Option func(*CamTable)

// WithTimeout sets the eviction threshold.
func WithTimeout(d time.Duration) Option {
	return func(t *CamTable) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithRebind controls whether a MAC seen on a new port is moved to it. When
// false the first learned port is kept until the record ages out.
func WithRebind(rebind bool) Option {
	return func(t *CamTable) { t.rebind = rebind }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *CamTable) { t.now = now }
}

// WithEvents sets the sink that receives learn, move and age events.
func WithEvents(sink model.EventSink) Option {
	return func(t *CamTable) {
		if sink != nil {
			t.events = sink
		}
	}
}

// New creates an empty table flooding over ports.
func New(ports *model.PortSet, opts ...Option) *CamTable {
	t := &CamTable{
		records: make(map[model.MacAddress]*record),
		ports:   ports,
		timeout: DefaultTimeout,
		rebind:  true,
		now:     time.Now,
		events:  model.NopSink{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name identifies the table to the aging driver.
func (t *CamTable) Name() string {
	return "cam"
}

// Update inserts mac on port, or refreshes the existing record.
func (t *CamTable) Update(mac model.MacAddress, port model.PortID) UpdateResult {
	t.mu.Lock()
	now := t.now()
	rec, ok := t.records[mac]
	if !ok {
		t.records[mac] = &record{port: port, lastSeen: now}
		t.mu.Unlock()

		gologger.Debug().Msgf("CamTable: learned %s on %s", mac, t.ports.Name(port))
		t.events.Emit(model.Event{Kind: model.EventMacLearned, Time: now, MAC: mac.String(), Port: t.ports.Name(port)})
		return Created
	}

	rec.lastSeen = now
	if rec.port == port || !t.rebind {
		t.mu.Unlock()
		return Refreshed
	}
	old := rec.port
	rec.port = port
	t.mu.Unlock()

	gologger.Info().Msgf("CamTable: %s moved from %s to %s", mac, t.ports.Name(old), t.ports.Name(port))
	t.events.Emit(model.Event{Kind: model.EventMacMoved, Time: now, MAC: mac.String(), Port: t.ports.Name(port)})
	return Moved
}

// Lookup returns the port mac was learned on. It does not refresh the record.
func (t *CamTable) Lookup(mac model.MacAddress) (model.PortID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[mac]
	if !ok {
		return model.NoPort, false
	}
	return rec.port, true
}

// Flood sends frame out of every port except from and returns how many
// sends succeeded. Send errors are not propagated. The port set is immutable,
// so no table lock is held while transmitting.
func (t *CamTable) Flood(from model.PortID, frame []byte) int {
	sent := 0
	for _, p := range t.ports.All() {
		if p.ID() == from {
			continue
		}
		if _, err := p.Send(frame); err != nil {
			gologger.Verbose().Msgf("CamTable: flood via %s failed: %v", p.Name(), err)
			continue
		}
		sent++
	}
	return sent
}

// Sweep removes every record older than the timeout.
func (t *CamTable) Sweep() int {
	t.mu.Lock()
	now := t.now()
	var aged []model.Event
	for mac, rec := range t.records {
		if now.Sub(rec.lastSeen) > t.timeout {
			delete(t.records, mac)
			aged = append(aged, model.Event{Kind: model.EventMacAged, Time: now, MAC: mac.String(), Port: t.ports.Name(rec.port)})
		}
	}
	t.mu.Unlock()

	for _, ev := range aged {
		gologger.Debug().Msgf("CamTable: %s on %s aged out", ev.MAC, ev.Port)
		t.events.Emit(ev)
	}
	return len(aged)
}

// Entries returns a copy of every live record, ordered by address.
func (t *CamTable) Entries() []model.CamEntry {
	t.mu.Lock()
	now := t.now()
	entries := make([]model.CamEntry, 0, len(t.records))
	for mac, rec := range t.records {
		entries = append(entries, model.CamEntry{
			MAC:      mac,
			Port:     rec.port,
			PortName: t.ports.Name(rec.port),
			Age:      now.Sub(rec.lastSeen),
		})
	}
	t.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].MAC.Less(entries[j].MAC) })
	return entries
}

// Len returns the number of live records.
func (t *CamTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}
