package factory

import (
	"Go2NetSwitch/internal/config"
	"Go2NetSwitch/internal/model"
	"fmt"
	"time"

	"github.com/projectdiscovery/gologger"
)

// WriterFactory builds a statistics writer from its definition.
type WriterFactory func(def config.WriterDef, interval time.Duration) (model.Writer, error)

// registry holds the mapping of writer types to their factory functions.
var registry = make(map[string]WriterFactory)

// RegisterWriter registers a new writer type with its factory function.
func RegisterWriter(name string, factory WriterFactory) {
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("writer type '%s' already registered", name))
	}
	registry[name] = factory
}

// Registered reports whether a writer type is known.
func Registered(name string) bool {
	_, ok := registry[name]
	return ok
}

// CreateWriters builds every enabled writer of the stats config. Writers that
// fail to connect are skipped with a warning; an unknown type or a bad
// interval is a configuration error.
func CreateWriters(cfg config.StatsConfig) ([]model.Writer, error) {
	writers := make([]model.Writer, 0, len(cfg.Writers))
	for _, def := range cfg.Writers {
		if !def.Enabled {
			continue
		}
		factory, ok := registry[def.Type]
		if !ok {
			return nil, fmt.Errorf("unknown writer type: '%s'", def.Type)
		}

		interval := 10 * time.Second
		if def.SnapshotInterval != "" {
			var err error
			interval, err = time.ParseDuration(def.SnapshotInterval)
			if err != nil || interval <= 0 {
				return nil, fmt.Errorf("invalid snapshot_interval %q for writer type '%s'", def.SnapshotInterval, def.Type)
			}
		}

		writer, err := factory(def, interval)
		if err != nil {
			gologger.Warning().Msgf("failed to create writer type '%s': %v, skipping.", def.Type, err)
			continue
		}
		gologger.Info().Msgf("Created '%s' statistics writer with interval %s", def.Type, interval)
		writers = append(writers, writer)
	}
	return writers, nil
}
