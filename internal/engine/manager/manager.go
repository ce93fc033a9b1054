package manager

import (
	"Go2NetSwitch/internal/aging"
	"Go2NetSwitch/internal/camtable"
	"Go2NetSwitch/internal/config"
	"Go2NetSwitch/internal/dispatch"
	"Go2NetSwitch/internal/engine/protocol"
	"Go2NetSwitch/internal/events"
	"Go2NetSwitch/internal/factory"
	"Go2NetSwitch/internal/igmp"
	"Go2NetSwitch/internal/model"
	"Go2NetSwitch/internal/port"
	"Go2NetSwitch/internal/recorder"
	"Go2NetSwitch/internal/stats"
	"fmt"
	"sync"

	"github.com/google/gopacket"
	"github.com/projectdiscovery/gologger"
)

// Manager owns the switch: its ports, both tables, the dispatcher and the
// background loops around them.
type Manager struct {
	ports []*port.Port
	set   *model.PortSet

	cam        *camtable.CamTable
	igmp       *igmp.Table
	dispatcher *dispatch.Dispatcher
	aging      *aging.Driver

	recorder  *recorder.Recorder
	publisher *events.Publisher
	exporter  *stats.Exporter

	// traceFrames logs a decoded summary of every frame.
	traceFrames bool

	done      chan struct{}
	drained   chan struct{}
	captureWg sync.WaitGroup
	stopOnce  sync.Once
}

// Option adjusts a Manager under construction.
type Option func(*options)

type options struct {
	sink model.EventSink
}

// WithEventSink sends table events to sink instead of the configured NATS
// publisher.
func WithEventSink(sink model.EventSink) Option {
	return func(o *options) { o.sink = sink }
}

// NewManager builds the switch over already opened ports. Ports must be
// numbered 0..n-1 in slice order.
func NewManager(cfg *config.Config, ports []*port.Port, opts ...Option) (*Manager, error) {
	if len(ports) == 0 {
		return nil, config.ErrNoPorts
	}
	set, err := port.Set(ports)
	if err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	m := &Manager{
		ports:       ports,
		set:         set,
		traceFrames: cfg.Log.Level == "verbose",
		done:        make(chan struct{}),
		drained:     make(chan struct{}),
	}

	sink := o.sink
	if sink == nil && cfg.Events.Enabled {
		pub, err := events.NewPublisher(cfg.Events)
		if err != nil {
			gologger.Warning().Msgf("Events are enabled but NATS is unreachable: %v. Events will not be published.", err)
		} else {
			m.publisher = pub
			sink = pub
		}
	}
	if sink == nil {
		sink = model.NopSink{}
	}

	m.cam = camtable.New(set,
		camtable.WithTimeout(cfg.Aging.CamTimeoutDuration),
		camtable.WithRebind(cfg.Aging.MacMove != config.MacMovePin),
		camtable.WithEvents(sink),
	)
	m.igmp = igmp.NewTable(set,
		igmp.WithTimeout(cfg.Aging.IgmpTimeoutDuration),
		igmp.WithEvents(sink),
	)
	m.aging = aging.NewDriver(cfg.Aging.IntervalDuration, m.cam, m.igmp)

	var mirror dispatch.Mirror
	if cfg.Recorder.Enabled {
		rec, err := recorder.New(cfg.Recorder)
		if err != nil {
			m.closeSinks()
			return nil, fmt.Errorf("failed to create recorder: %w", err)
		}
		m.recorder = rec
		mirror = rec
	}
	m.dispatcher = dispatch.New(set, m.cam, m.igmp, mirror)

	writers, err := factory.CreateWriters(cfg.Stats)
	if err != nil {
		m.closeSinks()
		return nil, err
	}
	if len(writers) > 0 {
		m.exporter = stats.NewExporter(m.PortStats, writers...)
	}
	return m, nil
}

// Start launches the aging driver, the stats exporter and one capture
// goroutine per port.
func (m *Manager) Start() {
	m.aging.Start()
	if m.exporter != nil {
		m.exporter.Start()
	}

	m.captureWg.Add(len(m.ports))
	for _, p := range m.ports {
		go m.runCapture(p)
	}
	go func() {
		m.captureWg.Wait()
		close(m.drained)
	}()
	gologger.Info().Msgf("Switch started with %d ports.", len(m.ports))
}

func (m *Manager) runCapture(p *port.Port) {
	defer m.captureWg.Done()
	if err := p.Capture(m.done, m.handle); err != nil {
		gologger.Error().Msgf("Port %s stopped: %v", p.Name(), err)
	}
}

func (m *Manager) handle(p *port.Port, data []byte, ci gopacket.CaptureInfo) {
	action := m.dispatcher.Handle(p, data, ci.Length)
	if m.traceFrames {
		gologger.Verbose().Msgf("%s: %s [%s]", p.Name(), protocol.Describe(data), action)
	}
}

// Done is closed once every capture loop has returned, e.g. when all file
// ports reached the end of their input.
func (m *Manager) Done() <-chan struct{} {
	return m.drained
}

// Stop signals every loop, waits for the capture goroutines and the aging
// driver, then releases the ports and the optional sinks.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		gologger.Info().Msgf("Switch stopping...")
		close(m.done)

		gologger.Verbose().Msgf("Waiting for capture loops to finish...")
		m.captureWg.Wait()
		m.aging.Stop()
		if m.exporter != nil {
			m.exporter.Stop()
		}

		for _, p := range m.ports {
			p.Close()
		}
		m.closeSinks()
		gologger.Info().Msgf("Switch stopped.")
	})
}

func (m *Manager) closeSinks() {
	if m.recorder != nil {
		if err := m.recorder.Stop(); err != nil {
			gologger.Warning().Msgf("Recorder: %v", err)
		}
	}
	if m.publisher != nil {
		m.publisher.Close()
	}
}

// MacTable returns the learning table records.
func (m *Manager) MacTable() []model.CamEntry {
	return m.cam.Entries()
}

// IgmpTable returns the snooping table groups.
func (m *Manager) IgmpTable() []model.GroupEntry {
	return m.igmp.Groups()
}

// Queriers returns the names of the ports general queries were seen on.
func (m *Manager) Queriers() []string {
	return m.igmp.Queriers()
}

// PortStats returns the counters of every port in port order.
func (m *Manager) PortStats() []model.PortStats {
	out := make([]model.PortStats, len(m.ports))
	for i, p := range m.ports {
		out[i] = p.Stats()
	}
	return out
}

var _ model.SwitchState = (*Manager)(nil)
