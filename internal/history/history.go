// Package history loads the historical problem dataset that cluster and topic
// profiles and recommendations are drawn from.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/crimson-sun/advisor/internal/config"
	"github.com/crimson-sun/advisor/internal/model"
)

// ErrUnknownSource is returned when no source is registered under a name.
var ErrUnknownSource = errors.New("history: unknown source")

// Source loads a complete dataset in one call.
type Source interface {
	Load(ctx context.Context, cfg SourceConfig) (*model.Dataset, error)
}

// SourceConfig holds the location of the data. Table is only read by
// table-backed sources.
type SourceConfig struct {
	Path  string
	Table string
}

// Constructor creates a new Source instance.
type Constructor func() Source

var registry = map[string]Constructor{}

// Register adds a source constructor under the given name.
func Register(name string, ctor Constructor) {
	registry[name] = ctor
}

// Get returns the source constructor for the given name.
func Get(name string) (Constructor, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	return ctor, nil
}

// Sources returns the registered source names in sorted order.
func Sources() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load resolves name in the registry and loads the dataset from cfg.
func Load(ctx context.Context, name string, cfg SourceConfig) (*model.Dataset, error) {
	ctor, err := Get(name)
	if err != nil {
		return nil, err
	}
	ds, err := ctor().Load(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("history: %s: %w", name, err)
	}
	return ds, nil
}

// FromConfig loads the configured dataset. An empty source means no history
// and returns a nil dataset.
func FromConfig(ctx context.Context, cfg config.HistoryConfig) (*model.Dataset, error) {
	if cfg.Source == "" {
		return nil, nil
	}
	return Load(ctx, cfg.Source, SourceConfig{Path: cfg.Path, Table: cfg.Table})
}
