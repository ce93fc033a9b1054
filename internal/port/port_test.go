package port

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/gopacket"
)

type read struct {
	data []byte
	err  error
}

// scriptedDevice replays a fixed list of reads, then blocks with timeouts.
type scriptedDevice struct {
	mu       sync.Mutex
	reads    []read
	written  [][]byte
	writeErr error
	closed   bool
}

func (d *scriptedDevice) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.reads) == 0 {
		time.Sleep(time.Millisecond)
		return nil, gopacket.CaptureInfo{}, ErrReadTimeout
	}
	r := d.reads[0]
	d.reads = d.reads[1:]
	ci := gopacket.CaptureInfo{CaptureLength: len(r.data), Length: len(r.data)}
	return r.data, ci, r.err
}

func (d *scriptedDevice) WritePacketData(data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.writeErr != nil {
		return d.writeErr
	}
	d.written = append(d.written, data)
	return nil
}

func (d *scriptedDevice) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

func TestPort_SendCounts(t *testing.T) {
	dev := &scriptedDevice{}
	p := New(0, "eth0", dev)

	if n, err := p.Send(make([]byte, 60)); err != nil || n != 60 {
		t.Fatalf("Send = %d, %v; want 60, nil", n, err)
	}
	p.Send(make([]byte, 100))

	dev.writeErr = errors.New("link down")
	if _, err := p.Send(make([]byte, 60)); err == nil {
		t.Fatalf("expected send error")
	}

	s := p.Stats()
	if s.SentFrames != 2 || s.SentBytes != 160 || s.TxErrors != 1 {
		t.Errorf("unexpected stats: %+v", s)
	}
}

func TestPort_ConcurrentSend(t *testing.T) {
	dev := &scriptedDevice{}
	p := New(0, "eth0", dev)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.Send(make([]byte, 64))
				p.RecordReceive(64)
			}
		}()
	}
	wg.Wait()

	s := p.Stats()
	if s.SentFrames != 800 || s.SentBytes != 800*64 || s.RecvFrames != 800 {
		t.Errorf("lost updates under concurrency: %+v", s)
	}
}

func TestPort_CaptureUntilEOF(t *testing.T) {
	dev := &scriptedDevice{reads: []read{
		{data: []byte{1}},
		{err: ErrReadTimeout},
		{data: []byte{2}},
		{err: io.EOF},
	}}
	p := New(0, "eth0", dev)

	var got []byte
	err := p.Capture(make(chan struct{}), func(_ *Port, data []byte, _ gopacket.CaptureInfo) {
		got = append(got, data[0])
	})
	if err != nil {
		t.Fatalf("Capture returned %v, want nil at EOF", err)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("frames delivered out of order or lost: %v", got)
	}
}

func TestPort_CaptureStops(t *testing.T) {
	p := New(0, "eth0", &scriptedDevice{})
	done := make(chan struct{})
	result := make(chan error, 1)
	go func() {
		result <- p.Capture(done, func(*Port, []byte, gopacket.CaptureInfo) {})
	}()

	close(done)
	select {
	case err := <-result:
		if err != nil {
			t.Errorf("Capture returned %v after stop", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Capture did not observe the stop signal")
	}
}

func TestPort_CaptureError(t *testing.T) {
	boom := errors.New("device vanished")
	p := New(0, "eth0", &scriptedDevice{reads: []read{{err: boom}}})

	err := p.Capture(make(chan struct{}), func(*Port, []byte, gopacket.CaptureInfo) {})
	if !errors.Is(err, boom) {
		t.Errorf("Capture error = %v, want wrapped %v", err, boom)
	}
}

func TestSet(t *testing.T) {
	ports := []*Port{New(0, "eth0", &scriptedDevice{}), New(1, "eth1", &scriptedDevice{})}
	set, err := Set(ports)
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if set.Len() != 2 || set.Name(1) != "eth1" {
		t.Errorf("unexpected set")
	}

	if _, err := Set([]*Port{New(3, "eth3", &scriptedDevice{})}); err == nil {
		t.Errorf("expected error for misnumbered port")
	}
}
