// Package aging runs the periodic sweeps of the switch tables.
package aging

import (
	"Go2NetSwitch/internal/model"
	"sync"
	"time"

	"github.com/projectdiscovery/gologger"
)

// Driver sweeps every registered table on a fixed interval until stopped.
// It holds the tables only through the Sweeper interface.
type Driver struct {
	interval time.Duration
	sweepers []model.Sweeper

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewDriver creates a driver for the given tables. A non-positive interval
// falls back to one second.
func NewDriver(interval time.Duration, sweepers ...model.Sweeper) *Driver {
	if interval <= 0 {
		interval = time.Second
	}
	return &Driver{
		interval: interval,
		sweepers: sweepers,
		done:     make(chan struct{}),
	}
}

// Start launches the sweep goroutine.
func (d *Driver) Start() {
	d.wg.Add(1)
	go d.run()
	gologger.Debug().Msgf("Aging driver started with interval %s for %d tables", d.interval, len(d.sweepers))
}

func (d *Driver) run() {
	defer d.wg.Done()
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.SweepAll()
		case <-d.done:
			gologger.Debug().Msgf("Aging driver shutting down.")
			return
		}
	}
}

// SweepAll runs one sweep of every table and returns the total number of
// removed entries.
func (d *Driver) SweepAll() int {
	total := 0
	for _, s := range d.sweepers {
		n := s.Sweep()
		if n > 0 {
			gologger.Debug().Msgf("Aging: %s sweep removed %d entries", s.Name(), n)
		}
		total += n
	}
	return total
}

// Stop signals the goroutine and waits for it to exit. It is safe to call
// more than once.
func (d *Driver) Stop() {
	d.stopOnce.Do(func() { close(d.done) })
	d.wg.Wait()
}
