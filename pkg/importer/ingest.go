package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/wardstats/pkg/aggregate"
	"github.com/hazyhaar/wardstats/pkg/topic"
)

// Sink receives imported datasets. Rows and summary are replaced together.
type Sink interface {
	ReplaceDataset(ctx context.Context, topic string, rows []aggregate.Row, sum *aggregate.Summary) error
}

// Ingest reads a topic's dataset with the adapter named in its manifest and
// stores it. An empty location means the manifest's own location.
func Ingest(ctx context.Context, sink Sink, t *topic.Topic, location string) (*Dataset, error) {
	if location == "" {
		location = t.SourceLocation()
	}
	a, err := Get(t.Manifest.Source.Adapter)
	if err != nil {
		return nil, err
	}

	ds, err := a.Import(ctx, t, location)
	if err != nil {
		return nil, fmt.Errorf("import %s from %s: %w", t.ID(), location, err)
	}
	if ds.Rows == nil {
		ds.Rows = []aggregate.Row{}
	}

	if err := sink.ReplaceDataset(ctx, t.ID(), ds.Rows, ds.Summary); err != nil {
		return nil, fmt.Errorf("store %s: %w", t.ID(), err)
	}
	slog.Info("topic imported", "topic", t.ID(), "adapter", a.ID(), "rows", len(ds.Rows), "summary", ds.Summary.String())
	return ds, nil
}
