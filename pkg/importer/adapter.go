package importer

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hazyhaar/wardstats/pkg/aggregate"
	"github.com/hazyhaar/wardstats/pkg/topic"
)

// Dataset is what an adapter reads for one topic.
type Dataset struct {
	Rows    []aggregate.Row
	Summary *aggregate.Summary
}

// Adapter reads a topic's measurement rows from one file format.
type Adapter interface {
	// ID returns the adapter name used in manifests (e.g. "csv").
	ID() string
	// Description returns a human-readable description.
	Description() string
	// Import reads location (a local path or an http(s) URL) using the
	// column mapping of t.
	Import(ctx context.Context, t *topic.Topic, location string) (*Dataset, error)
}

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// Register adds an adapter to the global registry.
func Register(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	adapters[a.ID()] = a
}

// Get returns a registered adapter by ID.
func Get(id string) (Adapter, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[id]
	if !ok {
		return nil, fmt.Errorf("unknown import adapter: %q", id)
	}
	return a, nil
}

// All returns all registered adapters sorted by ID.
func All() []Adapter {
	registryMu.RLock()
	defer registryMu.RUnlock()
	result := make([]Adapter, 0, len(adapters))
	for _, a := range adapters {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })
	return result
}
