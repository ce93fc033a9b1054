package stats

import (
	"Go2NetSwitch/internal/config"
	"Go2NetSwitch/internal/factory"
	"Go2NetSwitch/internal/model"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/projectdiscovery/gologger"
)

func init() {
	factory.RegisterWriter("text", func(def config.WriterDef, interval time.Duration) (model.Writer, error) {
		if def.Text.RootPath == "" {
			return nil, fmt.Errorf("text writer needs a root_path")
		}
		return NewTextWriter(def.Text.RootPath, interval), nil
	})
}

// TextWriter writes each snapshot to <root>/<timestamp>/port_stats.txt.
type TextWriter struct {
	rootPath string
	interval time.Duration
}

// NewTextWriter creates a new text writer for port counters.
func NewTextWriter(rootPath string, interval time.Duration) *TextWriter {
	return &TextWriter{rootPath: rootPath, interval: interval}
}

func (w *TextWriter) GetInterval() time.Duration {
	return w.interval
}

func (w *TextWriter) Write(stats []model.PortStats, timestamp time.Time) error {
	snapshotDir := filepath.Join(w.rootPath, timestamp.Format("2006-01-02_15-04-05"))
	if err := os.MkdirAll(snapshotDir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	filePath := filepath.Join(snapshotDir, "port_stats.txt")
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file '%s': %w", filePath, err)
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, "%-10s %12s %14s %12s %14s %10s\n",
		"PORT", "TX_FRAMES", "TX_BYTES", "RX_FRAMES", "RX_BYTES", "TX_ERRORS"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, s := range stats {
		if _, err := fmt.Fprintf(file, "%-10s %12d %14d %12d %14d %10d\n",
			s.Name, s.SentFrames, s.SentBytes, s.RecvFrames, s.RecvBytes, s.TxErrors); err != nil {
			return fmt.Errorf("failed to write port stats: %w", err)
		}
	}

	gologger.Verbose().Msgf("Wrote stats of %d ports to %s", len(stats), filePath)
	return nil
}
