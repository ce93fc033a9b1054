package model

import "time"

// Writer defines a generic interface for exporting port statistics snapshots.
type Writer interface {
	// Write persists one snapshot of every port's counters.
	Write(stats []PortStats, timestamp time.Time) error

	// GetInterval returns the configured snapshot interval for this writer.
	GetInterval() time.Duration
}
