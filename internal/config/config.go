package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNoPorts is returned when neither interface prefixes nor explicit ports are configured.
var ErrNoPorts = errors.New("no switch ports configured")

// MacMovePolicy controls what a learning-table refresh does when a known MAC
// is seen on a different port.
type MacMovePolicy string

const (
	// MacMoveRebind moves the record to the port the MAC was last seen on.
	MacMoveRebind MacMovePolicy = "rebind"
	// MacMovePin keeps the first learned port until the record ages out.
	MacMovePin MacMovePolicy = "pin"
)

// PortDef defines one switch port. A live port names a capture device; a
// file port reads frames from Input and writes sent frames to Output.
type PortDef struct {
	Name   string `yaml:"name"`
	Device string `yaml:"device"`
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
}

// IsFile reports whether the port is backed by pcap files instead of a device.
func (p PortDef) IsFile() bool {
	return p.Device == "" && (p.Input != "" || p.Output != "")
}

// SwitchConfig holds capture settings and the port list.
type SwitchConfig struct {
	// InterfacePrefixes selects live devices by name prefix when Ports is empty.
	InterfacePrefixes []string  `yaml:"interface_prefixes"`
	Ports             []PortDef `yaml:"ports"`
	SnapshotLen       int32     `yaml:"snapshot_len"`
	Promiscuous       bool      `yaml:"promiscuous"`
	ReadTimeout       string    `yaml:"read_timeout"`

	ReadTimeoutDuration time.Duration `yaml:"-"`
}

// AgingConfig holds the sweep interval and the two table timeouts.
type AgingConfig struct {
	Interval    string        `yaml:"interval"`
	CamTimeout  string        `yaml:"cam_timeout"`
	IgmpTimeout string        `yaml:"igmp_timeout"`
	MacMove     MacMovePolicy `yaml:"mac_move"`

	IntervalDuration    time.Duration `yaml:"-"`
	CamTimeoutDuration  time.Duration `yaml:"-"`
	IgmpTimeoutDuration time.Duration `yaml:"-"`
}

// RecorderConfig controls the optional mirror of received frames to disk.
type RecorderConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Path              string `yaml:"path"`
	Encoding          string `yaml:"encoding"` // "pcap" or "text"
	ChannelBufferSize int    `yaml:"channel_buffer_size"`
}

// EventsConfig holds the NATS settings for table event publishing.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// ClickHouseConfig holds the connection details for ClickHouse.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// TextWriterConfig holds the settings of the text statistics writer.
type TextWriterConfig struct {
	RootPath string `yaml:"root_path"`
}

// WriterDef defines one statistics writer.
type WriterDef struct {
	Type             string           `yaml:"type"`
	Enabled          bool             `yaml:"enabled"`
	SnapshotInterval string           `yaml:"snapshot_interval"`
	Text             TextWriterConfig `yaml:"text"`
	ClickHouse       ClickHouseConfig `yaml:"clickhouse"`
}

// StatsConfig lists the port statistics writers.
type StatsConfig struct {
	Writers []WriterDef `yaml:"writers"`
}

// APIConfig holds the listen addresses of the HTTP and gRPC servers. An empty
// address disables that server.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	GRPCAddr   string `yaml:"grpc_addr"`
}

// ConsoleConfig controls the interactive shell.
type ConsoleConfig struct {
	Enabled     bool   `yaml:"enabled"`
	HistoryFile string `yaml:"history_file"`
}

// LogConfig holds the logger settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Switch   SwitchConfig   `yaml:"switch"`
	Aging    AgingConfig    `yaml:"aging"`
	Recorder RecorderConfig `yaml:"recorder"`
	Events   EventsConfig   `yaml:"events"`
	Stats    StatsConfig    `yaml:"stats"`
	API      APIConfig      `yaml:"api"`
	Console  ConsoleConfig  `yaml:"console"`
	Log      LogConfig      `yaml:"log"`
}

// LoadConfig reads the configuration from a YAML file, fills defaults and
// validates it.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config data, fills defaults and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration that switches every eth* interface with the
// standard 60s/30s timeouts.
func Default() *Config {
	cfg := &Config{Switch: SwitchConfig{Promiscuous: true}}
	if err := cfg.Validate(); err != nil {
		panic(err) // defaults are always valid
	}
	return cfg
}

// Validate fills defaults and parses duration strings.
func (c *Config) Validate() error {
	if c.Switch.SnapshotLen <= 0 {
		c.Switch.SnapshotLen = 65535
	}
	if len(c.Switch.Ports) == 0 && len(c.Switch.InterfacePrefixes) == 0 {
		c.Switch.InterfacePrefixes = []string{"eth"}
	}
	for i, p := range c.Switch.Ports {
		if p.Name == "" {
			return fmt.Errorf("port #%d has no name", i)
		}
		if p.Device == "" && p.Input == "" && p.Output == "" {
			return fmt.Errorf("port %q needs a device or an input/output file", p.Name)
		}
	}

	var err error
	if c.Switch.ReadTimeoutDuration, err = parseDuration(c.Switch.ReadTimeout, 50*time.Millisecond); err != nil {
		return fmt.Errorf("invalid switch read_timeout: %w", err)
	}
	if c.Aging.IntervalDuration, err = parseDuration(c.Aging.Interval, time.Second); err != nil {
		return fmt.Errorf("invalid aging interval: %w", err)
	}
	if c.Aging.CamTimeoutDuration, err = parseDuration(c.Aging.CamTimeout, 60*time.Second); err != nil {
		return fmt.Errorf("invalid aging cam_timeout: %w", err)
	}
	if c.Aging.IgmpTimeoutDuration, err = parseDuration(c.Aging.IgmpTimeout, 30*time.Second); err != nil {
		return fmt.Errorf("invalid aging igmp_timeout: %w", err)
	}
	switch c.Aging.MacMove {
	case "":
		c.Aging.MacMove = MacMoveRebind
	case MacMoveRebind, MacMovePin:
	default:
		return fmt.Errorf("invalid aging mac_move %q, expected %q or %q", c.Aging.MacMove, MacMoveRebind, MacMovePin)
	}

	if c.Recorder.Enabled && c.Recorder.Path == "" {
		return fmt.Errorf("recorder is enabled but has no path")
	}
	if c.Events.Enabled {
		if c.Events.NATSURL == "" {
			c.Events.NATSURL = "nats://127.0.0.1:4222"
		}
		if c.Events.Subject == "" {
			c.Events.Subject = "goswitch.events"
		}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	return nil
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", s)
	}
	return d, nil
}
