package store

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hazyhaar/wardstats/pkg/aggregate"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "wardstats.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("db file not created: %v", err)
	}
	rows, err := s.Rows(context.Background(), "religion")
	if err != nil {
		t.Fatalf("Rows on empty db: %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Fatalf("expected empty non-nil rows, got %v", rows)
	}
}

func TestReplaceRows_RoundTrip(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	in := []aggregate.Row{
		aggregate.NewRow(10, "ward", "3", "category", "A"),
		{Dimensions: map[string]string{"ward": "1", "category": "B"}, Measure: aggregate.Missing()},
		{Dimensions: map[string]string{"ward": "2", "category": "C"}, Measure: aggregate.ParseQuantity("n/a")},
		aggregate.NewRow(2.5, "ward", "2", "category", "A"),
	}
	if err := s.ReplaceRows(ctx, "caste", in); err != nil {
		t.Fatalf("ReplaceRows: %v", err)
	}

	out, err := s.Rows(ctx, "caste")
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("rows = %d, want 4", len(out))
	}
	if out[0].Dimension("ward") != "3" || out[3].Dimension("ward") != "2" {
		t.Errorf("order not preserved: %+v", out)
	}
	if v, ok := out[0].Measure.Value(); !ok || v != 10 {
		t.Errorf("row 0 measure = %v %v", v, ok)
	}
	if !out[1].Measure.IsMissing() {
		t.Error("row 1 should be missing")
	}
	if out[2].Measure.Raw() != "n/a" {
		t.Errorf("row 2 raw = %q", out[2].Measure.Raw())
	}
	if v, _ := out[3].Measure.Value(); v != 2.5 {
		t.Errorf("row 3 measure = %v", v)
	}
}

func TestReplaceRows_Replaces(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	s.ReplaceRows(ctx, "wards", []aggregate.Row{aggregate.NewRow(1, "ward", "1"), aggregate.NewRow(2, "ward", "2")})
	s.ReplaceRows(ctx, "terrain", []aggregate.Row{aggregate.NewRow(9, "ward", "1")})
	if err := s.ReplaceRows(ctx, "wards", []aggregate.Row{aggregate.NewRow(5, "ward", "7")}); err != nil {
		t.Fatalf("ReplaceRows: %v", err)
	}

	rows, _ := s.Rows(ctx, "wards")
	if len(rows) != 1 || rows[0].Dimension("ward") != "7" {
		t.Errorf("rows = %+v", rows)
	}
	topics, err := s.Topics(ctx)
	if err != nil {
		t.Fatalf("Topics: %v", err)
	}
	if len(topics) != 2 || topics[0] != "terrain" || topics[1] != "wards" {
		t.Errorf("topics = %v", topics)
	}
}

func TestSummary(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	got, err := s.Summary(ctx, "religion")
	if err != nil || got != nil {
		t.Fatalf("absent summary = %v, %v; want nil, nil", got, err)
	}

	fetched := time.Unix(1700000000, 0)
	in := &aggregate.Summary{Totals: map[string]float64{"total": 120, "households": 30}, Origin: "manifest:religion", FetchedAt: fetched}
	if err := s.PutSummary(ctx, "religion", in); err != nil {
		t.Fatalf("PutSummary: %v", err)
	}
	got, err = s.Summary(ctx, "religion")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if got.Totals["total"] != 120 || got.Totals["households"] != 30 {
		t.Errorf("totals = %v", got.Totals)
	}
	if got.Origin != "manifest:religion" || !got.FetchedAt.Equal(fetched) {
		t.Errorf("origin/fetched = %q %v", got.Origin, got.FetchedAt)
	}

	if err := s.PutSummary(ctx, "religion", nil); err != nil {
		t.Fatalf("PutSummary(nil): %v", err)
	}
	if got, _ := s.Summary(ctx, "religion"); got != nil {
		t.Errorf("summary after clear = %v", got)
	}
}

func TestReplaceDataset_RollsBackOnSummaryError(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	old := []aggregate.Row{aggregate.NewRow(4, "ward", "1")}
	if err := s.ReplaceDataset(ctx, "religion", old, &aggregate.Summary{Totals: map[string]float64{"total": 4}}); err != nil {
		t.Fatalf("ReplaceDataset: %v", err)
	}

	fresh := []aggregate.Row{aggregate.NewRow(7, "ward", "2"), aggregate.NewRow(8, "ward", "3")}
	bad := &aggregate.Summary{Totals: map[string]float64{"total": math.Inf(1)}}
	if err := s.ReplaceDataset(ctx, "religion", fresh, bad); err == nil {
		t.Fatal("expected error for non-finite summary")
	}

	rows, err := s.Rows(ctx, "religion")
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != 1 || rows[0].Dimension("ward") != "1" {
		t.Errorf("rows after failed replace = %+v, want the previous dataset", rows)
	}
	if sum, _ := s.Summary(ctx, "religion"); sum == nil || sum.Totals["total"] != 4 {
		t.Errorf("summary after failed replace = %v", sum)
	}
}
