// Package recorder mirrors received frames to disk through a buffered queue
// drained by a single writer goroutine, so the forwarding path never waits on
// file I/O and the file keeps arrival order.
package recorder

import (
	"Go2NetSwitch/internal/config"
	"Go2NetSwitch/internal/engine/protocol"
	"bufio"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/projectdiscovery/gologger"
)

// Frame is one mirrored frame.
type Frame struct {
	Time time.Time
	Port string
	Data []byte
}

type sink interface {
	write(f *Frame) error
	flush() error
}

// Recorder manages the goroutine that persists mirrored frames.
type Recorder struct {
	frames chan *Frame
	file   *os.File
	sink   sink

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup

	dropped atomic.Uint64
	now     func() time.Time
}

// New creates the output file under cfg.Path and starts the writer.
func New(cfg config.RecorderConfig) (*Recorder, error) {
	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create recorder directory: %w", err)
	}

	bufferSize := cfg.ChannelBufferSize
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	encoding := strings.ToLower(cfg.Encoding)
	if encoding == "" {
		encoding = "pcap"
	}

	file, err := createOutputFile(cfg.Path, encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to create recorder file: %w", err)
	}

	var s sink
	switch encoding {
	case "pcap":
		s, err = newPcapSink(file)
	case "text":
		s = newTextSink(file)
	case "gob":
		s = &gobSink{enc: gob.NewEncoder(file)}
	default:
		err = fmt.Errorf("unknown recorder encoding %q", cfg.Encoding)
	}
	if err != nil {
		file.Close()
		return nil, err
	}

	r := &Recorder{
		frames: make(chan *Frame, bufferSize),
		file:   file,
		sink:   s,
		now:    time.Now,
	}

	r.wg.Add(1)
	go r.run()
	gologger.Info().Msgf("Recorder started, encoding: %s, writing to: %s", encoding, file.Name())
	return r, nil
}

func createOutputFile(dir, encoding string) (*os.File, error) {
	ext := ".log"
	switch encoding {
	case "gob":
		ext = ".gob"
	case "pcap":
		ext = ".pcap"
	}
	fileName := fmt.Sprintf("%s%s", time.Now().Format("2006-01-02_15-04-05"), ext)
	return os.OpenFile(filepath.Join(dir, fileName), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
}

// Path returns the output file name.
func (r *Recorder) Path() string {
	return r.file.Name()
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for f := range r.frames {
		if err := r.sink.write(f); err != nil {
			gologger.Warning().Msgf("Recorder: error writing frame from %s: %v", f.Port, err)
		}
	}
}

// Mirror queues a copy of frame. It never blocks: when the queue is full the
// frame is dropped.
func (r *Recorder) Mirror(port string, frame []byte) {
	data := make([]byte, len(frame))
	copy(data, frame)
	r.Enqueue(&Frame{Time: r.now(), Port: port, Data: data})
}

// Enqueue hands a frame to the writer, dropping it when the queue is full or
// the recorder is stopped.
func (r *Recorder) Enqueue(f *Frame) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		return
	}
	select {
	case r.frames <- f:
	default:
		r.dropped.Add(1)
		gologger.Verbose().Msgf("Recorder: queue is full, dropping frame from %s", f.Port)
	}
}

// Stop drains the queue, flushes and closes the file.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	close(r.frames)
	r.mu.Unlock()

	r.wg.Wait()
	err := r.sink.flush()
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	gologger.Info().Msgf("Recorder stopped and file closed (%d frames dropped).", r.dropped.Load())
	return err
}

type pcapSink struct {
	w *pcapgo.Writer
}

func newPcapSink(w io.Writer) (*pcapSink, error) {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("failed to write pcap file header: %w", err)
	}
	return &pcapSink{w: pw}, nil
}

func (s *pcapSink) write(f *Frame) error {
	ci := gopacket.CaptureInfo{Timestamp: f.Time, CaptureLength: len(f.Data), Length: len(f.Data)}
	return s.w.WritePacket(ci, f.Data)
}

func (s *pcapSink) flush() error { return nil }

type textSink struct {
	w *bufio.Writer
}

func newTextSink(w io.Writer) *textSink {
	return &textSink{w: bufio.NewWriter(w)}
}

func (s *textSink) write(f *Frame) error {
	_, err := s.w.WriteString(FormatFrame(f) + "\n")
	return err
}

func (s *textSink) flush() error { return s.w.Flush() }

type gobSink struct {
	enc *gob.Encoder
}

func (s *gobSink) write(f *Frame) error { return s.enc.Encode(f) }
func (s *gobSink) flush() error         { return nil }

// FormatFrame renders one line: time, ingress port, length and the decoded
// frame summary.
func FormatFrame(f *Frame) string {
	return fmt.Sprintf("%s - %s, Len: %d, %s",
		f.Time.Format("2006-01-02 15:04:05.000"), f.Port, len(f.Data), protocol.Describe(f.Data))
}
