package model

import "time"

// CamEntry is a display copy of one learning-table record.
type CamEntry struct {
	MAC      MacAddress
	Port     PortID
	PortName string
	Age      time.Duration
}

// MemberEntry is a group member and the time since its last report.
type MemberEntry struct {
	Port     PortID
	PortName string
	Age      time.Duration
}

// GroupEntry is a display copy of one snooping-table record.
type GroupEntry struct {
	Group       GroupID
	Querier     PortID
	QuerierName string // empty when no querier is known
	Members     []MemberEntry
}

// HasQuerier reports whether a querier has been observed for the group.
func (g GroupEntry) HasQuerier() bool {
	return g.Querier != NoPort
}

// PortStats holds the traffic counters of one port.
type PortStats struct {
	Name       string
	SentBytes  uint64
	SentFrames uint64
	RecvBytes  uint64
	RecvFrames uint64
	TxErrors   uint64
}

// SwitchState is the read-only view of a running switch used by the console
// and the API servers.
type SwitchState interface {
	MacTable() []CamEntry
	IgmpTable() []GroupEntry
	Queriers() []string
	PortStats() []PortStats
}
