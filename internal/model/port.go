package model

import "fmt"

// PortID is the value identity of a switch port, assigned when the PortSet
// is built. Tables store PortIDs, never port references.
type PortID int

// NoPort marks an unset port reference, e.g. a group without a querier.
const NoPort PortID = -1

// Port is the collaborator the forwarding core transmits through.
// Send must be safe for concurrent use.
type Port interface {
	ID() PortID
	Name() string
	Send(frame []byte) (int, error)
	RecordReceive(wireLen int)
}

// PortSet is the fixed set of switch ports. It is immutable after
// construction, so it can be shared without locking.
type PortSet struct {
	ports []Port
}

// NewPortSet registers ports in order. Port i must report ID() == PortID(i).
func NewPortSet(ports ...Port) (*PortSet, error) {
	for i, p := range ports {
		if p.ID() != PortID(i) {
			return nil, fmt.Errorf("port %q has id %d, expected %d", p.Name(), p.ID(), i)
		}
	}
	out := make([]Port, len(ports))
	copy(out, ports)
	return &PortSet{ports: out}, nil
}

// Lookup returns nil for an unknown id.
func (s *PortSet) Lookup(id PortID) Port {
	if id < 0 || int(id) >= len(s.ports) {
		return nil
	}
	return s.ports[id]
}

// Name returns the port's name, or "-" for NoPort and unknown ids.
func (s *PortSet) Name(id PortID) string {
	if p := s.Lookup(id); p != nil {
		return p.Name()
	}
	return "-"
}

// All returns the ports in id order. The slice must not be modified.
func (s *PortSet) All() []Port {
	return s.ports
}

func (s *PortSet) Len() int {
	return len(s.ports)
}
