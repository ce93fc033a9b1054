package model

import "time"

// EventKind names a forwarding-state change.
type EventKind string

const (
	EventMacLearned    EventKind = "mac_learned"
	EventMacMoved      EventKind = "mac_moved"
	EventMacAged       EventKind = "mac_aged"
	EventGroupCreated  EventKind = "group_created"
	EventQuerierSet    EventKind = "querier_set"
	EventQuerierAdded  EventKind = "querier_added"
	EventMemberJoined  EventKind = "member_joined"
	EventMemberLeft    EventKind = "member_left"
	EventMemberExpired EventKind = "member_expired"
)

// Event describes one table change. Fields that do not apply are left empty.
type Event struct {
	Kind  EventKind
	Time  time.Time
	MAC   string
	Group string
	Port  string
}

// EventSink receives table events. Emit is called outside table locks and
// must not block for long.
type EventSink interface {
	Emit(ev Event)
}

// NopSink discards events.
type NopSink struct{}

func (NopSink) Emit(Event) {}
