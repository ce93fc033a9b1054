// Package stats periodically exports port counters to the configured writers.
package stats

import (
	"Go2NetSwitch/internal/model"
	"io"
	"sync"
	"time"

	"github.com/projectdiscovery/gologger"
)

// Source returns the current counters of every port.
type Source func() []model.PortStats

// Exporter runs one snapshot loop per writer.
type Exporter struct {
	writers []model.Writer
	source  Source

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	now      func() time.Time
}

// NewExporter creates an exporter. It does nothing until Start.
func NewExporter(source Source, writers ...model.Writer) *Exporter {
	return &Exporter{
		writers: writers,
		source:  source,
		done:    make(chan struct{}),
		now:     time.Now,
	}
}

// Start launches a snapshotter for each writer.
func (e *Exporter) Start() {
	for _, writer := range e.writers {
		e.wg.Add(1)
		go e.runSnapshotter(writer)
		gologger.Verbose().Msgf("Started stats snapshotter with interval %s", writer.GetInterval())
	}
}

func (e *Exporter) runSnapshotter(writer model.Writer) {
	defer e.wg.Done()
	interval := writer.GetInterval()
	if interval <= 0 {
		gologger.Warning().Msgf("Invalid interval %s for writer, snapshotter will not run.", interval)
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.snapshot(writer)
		case <-e.done:
			e.snapshot(writer)
			return
		}
	}
}

func (e *Exporter) snapshot(writer model.Writer) {
	if err := writer.Write(e.source(), e.now()); err != nil {
		gologger.Warning().Msgf("Error writing port stats snapshot: %v", err)
	}
}

// Stop takes a final snapshot for every writer, waits for the loops to exit
// and closes writers that hold connections.
func (e *Exporter) Stop() {
	e.stopOnce.Do(func() {
		close(e.done)
		e.wg.Wait()
		for _, w := range e.writers {
			if c, ok := w.(io.Closer); ok {
				if err := c.Close(); err != nil {
					gologger.Warning().Msgf("Error closing stats writer: %v", err)
				}
			}
		}
	})
}
