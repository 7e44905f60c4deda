package store

import (
	"context"
	"testing"
)

func TestSeedAndLocation(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	seeds := []SourceSeed{
		{Topic: "religion", Adapter: "csv", Location: "https://example.com/religion.csv"},
		{Topic: "occupation", Adapter: "xlsx", Location: "/data/occupation.xlsx"},
	}
	if err := s.SeedSources(ctx, seeds); err != nil {
		t.Fatalf("SeedSources: %v", err)
	}

	loc, err := s.SourceLocation(ctx, "religion")
	if err != nil {
		t.Fatalf("SourceLocation: %v", err)
	}
	if loc != "https://example.com/religion.csv" {
		t.Fatalf("location = %s", loc)
	}

	// Seeding again must not overwrite.
	if err := s.SeedSources(ctx, []SourceSeed{{Topic: "religion", Adapter: "csv", Location: "https://changed.example.com"}}); err != nil {
		t.Fatalf("SeedSources again: %v", err)
	}
	if loc, _ := s.SourceLocation(ctx, "religion"); loc != "https://example.com/religion.csv" {
		t.Fatalf("re-seed should not overwrite, got %s", loc)
	}

	if err := s.SetSourceLocation(ctx, "religion", "https://example.com/v2.csv"); err != nil {
		t.Fatalf("SetSourceLocation: %v", err)
	}
	if loc, _ := s.SourceLocation(ctx, "religion"); loc != "https://example.com/v2.csv" {
		t.Fatalf("location after set = %s", loc)
	}
}

func TestSetSourceLocation_NotFound(t *testing.T) {
	s := tempStore(t)
	if err := s.SetSourceLocation(context.Background(), "nonexistent", "x"); err == nil {
		t.Fatal("expected error for unknown topic")
	}
}

func TestUpdateCheck(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	s.SeedSources(ctx, []SourceSeed{{Topic: "wards", Adapter: "csv", Location: "https://example.com/wards.csv"}})

	if err := s.UpdateCheck(ctx, "wards", 200, ""); err != nil {
		t.Fatalf("UpdateCheck: %v", err)
	}
	sources, err := s.ListSources(ctx)
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("sources = %d, want 1", len(sources))
	}
	src := sources[0]
	if src.LastStatus == nil || *src.LastStatus != 200 {
		t.Fatalf("last_status = %v", src.LastStatus)
	}
	if src.LastCheck == nil || *src.LastCheck == 0 {
		t.Fatal("last_check not set")
	}
	if src.LastError != nil {
		t.Fatalf("last_error = %v", *src.LastError)
	}

	if err := s.UpdateCheck(ctx, "wards", 404, "not found"); err != nil {
		t.Fatalf("UpdateCheck with error: %v", err)
	}
	sources, _ = s.ListSources(ctx)
	if src := sources[0]; src.LastError == nil || *src.LastError != "not found" || *src.LastStatus != 404 {
		t.Fatalf("after failure = %+v", src)
	}
}

func TestListSources_Order(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	s.SeedSources(ctx, []SourceSeed{
		{Topic: "wards", Adapter: "csv", Location: "a"},
		{Topic: "birthplace", Adapter: "csv", Location: "b"},
	})
	sources, err := s.ListSources(ctx)
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	if len(sources) != 2 || sources[0].Topic != "birthplace" {
		t.Fatalf("sources = %+v", sources)
	}
}
