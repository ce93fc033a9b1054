// Package port implements the switch port over a packet device: a serialized
// transmit path with counters and the receive loop that feeds the dispatcher.
package port

import (
	"Go2NetSwitch/internal/model"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/gopacket"
	"github.com/projectdiscovery/gologger"
)

// ErrReadTimeout is returned by a Device whose read deadline expired with no
// frame available. The receive loop treats it as a chance to check for stop.
var ErrReadTimeout = errors.New("read timeout")

// Device is a frame source and sink, such as a live capture handle or a pair
// of pcap files.
type Device interface {
	gopacket.PacketDataSource
	WritePacketData(data []byte) error
	Close()
}

// Handler is invoked once per received frame, in arrival order.
type Handler func(p *Port, data []byte, ci gopacket.CaptureInfo)

// Port is one switch port. Send may be called from any goroutine; Capture is
// run by exactly one goroutine.
type Port struct {
	id     model.PortID
	name   string
	device Device

	sendMu     sync.Mutex
	sentBytes  uint64
	sentFrames uint64
	txErrors   uint64

	recvBytes  atomic.Uint64
	recvFrames atomic.Uint64
}

// New wraps a device. id must be the port's index in the PortSet.
func New(id model.PortID, name string, device Device) *Port {
	return &Port{id: id, name: name, device: device}
}

func (p *Port) ID() model.PortID { return p.id }
func (p *Port) Name() string     { return p.name }

// Send transmits one frame and returns the number of bytes written.
func (p *Port) Send(frame []byte) (int, error) {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	if err := p.device.WritePacketData(frame); err != nil {
		p.txErrors++
		return 0, fmt.Errorf("send on %s: %w", p.name, err)
	}
	p.sentBytes += uint64(len(frame))
	p.sentFrames++
	return len(frame), nil
}

// RecordReceive counts one received frame of wireLen bytes.
func (p *Port) RecordReceive(wireLen int) {
	p.recvBytes.Add(uint64(wireLen))
	p.recvFrames.Add(1)
}

// Stats returns a snapshot of the port's counters.
func (p *Port) Stats() model.PortStats {
	p.sendMu.Lock()
	s := model.PortStats{
		Name:       p.name,
		SentBytes:  p.sentBytes,
		SentFrames: p.sentFrames,
		TxErrors:   p.txErrors,
	}
	p.sendMu.Unlock()
	s.RecvBytes = p.recvBytes.Load()
	s.RecvFrames = p.recvFrames.Load()
	return s
}

// Capture reads frames until done is closed, the device reports io.EOF, or a
// read fails. It returns nil in the first two cases.
func (p *Port) Capture(done <-chan struct{}, handle Handler) error {
	for {
		select {
		case <-done:
			return nil
		default:
		}

		data, ci, err := p.device.ReadPacketData()
		switch {
		case err == nil:
			handle(p, data, ci)
		case errors.Is(err, ErrReadTimeout):
			continue
		case errors.Is(err, io.EOF):
			gologger.Verbose().Msgf("Port %s: end of input", p.name)
			return nil
		default:
			return fmt.Errorf("capture on %s: %w", p.name, err)
		}
	}
}

// Close releases the device. It must not be called while Capture or Send may
// still be running.
func (p *Port) Close() {
	p.device.Close()
}

// Set builds the PortSet over ports, which must be numbered 0..n-1 in order.
func Set(ports []*Port) (*model.PortSet, error) {
	generic := make([]model.Port, len(ports))
	for i, p := range ports {
		generic[i] = p
	}
	return model.NewPortSet(generic...)
}
