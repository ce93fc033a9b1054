package stats

import (
	"Go2NetSwitch/internal/config"
	"Go2NetSwitch/internal/factory"
	"Go2NetSwitch/internal/model"
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/projectdiscovery/gologger"
)

const createPortStatsTableStatement = `
CREATE TABLE IF NOT EXISTS port_stats (
    Timestamp   DateTime,
    Port        String,
    SentFrames  UInt64,
    SentBytes   UInt64,
    RecvFrames  UInt64,
    RecvBytes   UInt64,
    TxErrors    UInt64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Port, Timestamp);
`

func init() {
	factory.RegisterWriter("clickhouse", func(def config.WriterDef, interval time.Duration) (model.Writer, error) {
		return NewClickHouseWriter(def.ClickHouse, interval)
	})
}

// ClickHouseWriter appends port counter snapshots to the port_stats table.
type ClickHouseWriter struct {
	conn     driver.Conn
	interval time.Duration
}

// NewClickHouseWriter connects and ensures the port_stats table exists.
func NewClickHouseWriter(cfg config.ClickHouseConfig, interval time.Duration) (*ClickHouseWriter, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), createPortStatsTableStatement); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create port_stats table: %w", err)
	}
	gologger.Info().Msgf("Connected to ClickHouse at %s:%d and ensured port_stats table exists.", cfg.Host, cfg.Port)

	return &ClickHouseWriter{conn: conn, interval: interval}, nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return conn, nil
}

func (w *ClickHouseWriter) GetInterval() time.Duration {
	return w.interval
}

func (w *ClickHouseWriter) Write(stats []model.PortStats, timestamp time.Time) error {
	batch, err := w.conn.PrepareBatch(context.Background(), "INSERT INTO port_stats")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, s := range stats {
		if err := batch.Append(timestamp, s.Name, s.SentFrames, s.SentBytes, s.RecvFrames, s.RecvBytes, s.TxErrors); err != nil {
			return fmt.Errorf("failed to append port stats to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	gologger.Verbose().Msgf("Wrote stats of %d ports to ClickHouse", len(stats))
	return nil
}

// Close closes the connection.
func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}
