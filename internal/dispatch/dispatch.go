// Package dispatch implements the per-frame forwarding decision of the switch.
package dispatch

import (
	"Go2NetSwitch/internal/camtable"
	"Go2NetSwitch/internal/igmp"
	"Go2NetSwitch/internal/model"

	"github.com/projectdiscovery/gologger"
)

const ethHeaderLen = 14

// Action is what the dispatcher did with a frame.
type Action int

const (
	// Dropped frames were not sent anywhere.
	Dropped Action = iota
	// Forwarded frames went out exactly one port chosen by the learning table.
	Forwarded
	// Flooded frames went out every port except the ingress one.
	Flooded
	// Snooped frames were forwarded by the snooping table.
	Snooped
)

func (a Action) String() string {
	switch a {
	case Dropped:
		return "dropped"
	case Forwarded:
		return "forwarded"
	case Flooded:
		return "flooded"
	case Snooped:
		return "snooped"
	default:
		return "unknown"
	}
}

// Mirror receives a copy of every frame the dispatcher accepts.
type Mirror interface {
	Mirror(port string, frame []byte)
}

// Dispatcher ties the learning table and the snooping table together. It
// holds no state of its own and is safe for concurrent use by every port's
// capture goroutine.
type Dispatcher struct {
	cam    *camtable.CamTable
	igmp   *igmp.Table
	ports  *model.PortSet
	mirror Mirror
}

// New creates a Dispatcher. mirror may be nil.
func New(ports *model.PortSet, cam *camtable.CamTable, snoop *igmp.Table, mirror Mirror) *Dispatcher {
	return &Dispatcher{cam: cam, igmp: snoop, ports: ports, mirror: mirror}
}

// Handle processes one frame received on in. frame holds the captured bytes,
// wireLen the original length on the wire.
func (d *Dispatcher) Handle(in model.Port, frame []byte, wireLen int) Action {
	if wireLen <= 0 {
		wireLen = len(frame)
	}
	in.RecordReceive(wireLen)

	if len(frame) < ethHeaderLen {
		gologger.Verbose().Msgf("dispatch: runt frame of %d bytes on %s dropped", len(frame), in.Name())
		return Dropped
	}
	if d.mirror != nil {
		d.mirror.Mirror(in.Name(), frame)
	}

	from := in.ID()
	dst := model.MacFromBytes(frame[0:6])
	src := model.MacFromBytes(frame[6:12])
	d.cam.Update(src, from)

	switch {
	case dst.IsBroadcast():
		d.cam.Flood(from, frame)
		return Flooded

	case dst.IsMulticast():
		switch d.igmp.ProcessMulticastPacket(from, frame) {
		case igmp.Flood:
			d.cam.Flood(from, frame)
			return Flooded
		case igmp.Malformed:
			gologger.Verbose().Msgf("dispatch: malformed multicast frame from %s on %s dropped", src, in.Name())
			return Dropped
		default:
			return Snooped
		}

	default:
		out, ok := d.cam.Lookup(dst)
		if !ok {
			d.cam.Flood(from, frame)
			return Flooded
		}
		if out == from {
			return Dropped
		}
		p := d.ports.Lookup(out)
		if p == nil {
			return Dropped
		}
		if _, err := p.Send(frame); err != nil {
			gologger.Verbose().Msgf("dispatch: send to %s failed: %v", p.Name(), err)
		}
		return Forwarded
	}
}
