package importer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/wardstats/pkg/aggregate"
	"github.com/hazyhaar/wardstats/pkg/store"
	"github.com/hazyhaar/wardstats/pkg/topic"
)

func TestIngest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "data.csv"), []byte("Ward No,Religion,Population\n1,Hindu,10\n2,Hindu,5\n"))
	tp := religionTopic(dir, topic.SourceSpec{Adapter: "csv", Location: "data.csv"})

	st, err := store.Open(filepath.Join(t.TempDir(), "wardstats.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	ds, err := Ingest(ctx, st, tp, "")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(ds.Rows) != 2 {
		t.Errorf("imported %d rows, want 2", len(ds.Rows))
	}

	rows, err := st.Rows(ctx, "religion")
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != 2 || rows[1].Dimension("ward") != "2" {
		t.Errorf("stored rows = %+v", rows)
	}
	sum, err := st.Summary(ctx, "religion")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if v, ok := sum.Headline("total_population"); !ok || v != 40 {
		t.Errorf("stored summary = %v", sum)
	}
}

func TestIngest_UnknownAdapter(t *testing.T) {
	tp := religionTopic(t.TempDir(), topic.SourceSpec{Adapter: "parquet", Location: "data.parquet"})
	st, err := store.Open(filepath.Join(t.TempDir(), "wardstats.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	if _, err := Ingest(context.Background(), st, tp, ""); err == nil {
		t.Error("expected error for unknown adapter")
	}
}

type failingSink struct{ calls int }

func (s *failingSink) ReplaceDataset(context.Context, string, []aggregate.Row, *aggregate.Summary) error {
	s.calls++
	return errors.New("disk full")
}

func TestIngest_SinkError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "data.csv"), []byte("Ward No,Religion,Population\n1,Hindu,10\n"))
	tp := religionTopic(dir, topic.SourceSpec{Adapter: "csv", Location: "data.csv"})

	sink := &failingSink{}
	if _, err := Ingest(context.Background(), sink, tp, ""); err == nil {
		t.Fatal("expected error from sink")
	}
	if sink.calls != 1 {
		t.Errorf("sink called %d times, want one combined write", sink.calls)
	}
}
