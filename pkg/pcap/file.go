// Package pcap provides switch port devices backed by pcap files, for running
// the switch offline.
package pcap

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

var now = time.Now

// FileDevice reads received frames from one pcap file and appends sent frames
// to another. Either side may be absent: without an input the device reports
// io.EOF at once, without an output sent frames are discarded.
type FileDevice struct {
	in     *os.File
	reader *pcapgo.Reader

	mu     sync.Mutex
	out    *os.File
	writer *pcapgo.Writer
}

// OpenFileDevice opens input for reading and creates output. Empty paths are
// allowed.
func OpenFileDevice(input, output string, snaplen uint32) (*FileDevice, error) {
	d := &FileDevice{}
	if input != "" {
		f, err := os.Open(input)
		if err != nil {
			return nil, fmt.Errorf("failed to open pcap input: %w", err)
		}
		r, err := pcapgo.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to read pcap header of %s: %w", input, err)
		}
		if r.LinkType() != layers.LinkTypeEthernet {
			f.Close()
			return nil, fmt.Errorf("pcap input %s has link type %s, expected Ethernet", input, r.LinkType())
		}
		d.in, d.reader = f, r
	}
	if output != "" {
		if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
			d.Close()
			return nil, fmt.Errorf("failed to create pcap output directory: %w", err)
		}
		f, err := os.Create(output)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("failed to create pcap output: %w", err)
		}
		w := pcapgo.NewWriter(f)
		if err := w.WriteFileHeader(snaplen, layers.LinkTypeEthernet); err != nil {
			f.Close()
			d.Close()
			return nil, fmt.Errorf("failed to write pcap header: %w", err)
		}
		d.out, d.writer = f, w
	}
	return d, nil
}

// ReadPacketData returns the next frame of the input file, or io.EOF.
func (d *FileDevice) ReadPacketData() ([]byte, gopacket.CaptureInfo, error) {
	if d.reader == nil {
		return nil, gopacket.CaptureInfo{}, io.EOF
	}
	data, ci, err := d.reader.ReadPacketData()
	if errors.Is(err, io.ErrUnexpectedEOF) {
		// A truncated trailing record ends the replay like a clean end of file.
		return nil, ci, io.EOF
	}
	return data, ci, err
}

// WritePacketData appends a frame to the output file.
func (d *FileDevice) WritePacketData(data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.writer == nil {
		return nil
	}
	ci := gopacket.CaptureInfo{
		Timestamp:     now(),
		CaptureLength: len(data),
		Length:        len(data),
	}
	return d.writer.WritePacket(ci, data)
}

// Close closes both files.
func (d *FileDevice) Close() {
	if d.in != nil {
		d.in.Close()
		d.in = nil
	}
	d.mu.Lock()
	if d.out != nil {
		d.out.Close()
		d.out = nil
		d.writer = nil
	}
	d.mu.Unlock()
}

// WriteFrames creates path as an Ethernet pcap file holding frames, spaced
// one millisecond apart starting at start.
func WriteFrames(path string, start time.Time, frames [][]byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		return fmt.Errorf("failed to write pcap header: %w", err)
	}
	for i, frame := range frames {
		ci := gopacket.CaptureInfo{
			Timestamp:     start.Add(time.Duration(i) * time.Millisecond),
			CaptureLength: len(frame),
			Length:        len(frame),
		}
		if err := w.WritePacket(ci, frame); err != nil {
			return fmt.Errorf("failed to write packet %d: %w", i, err)
		}
	}
	return nil
}
