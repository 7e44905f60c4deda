package importer

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hazyhaar/wardstats/pkg/store"
)

func openSources(t *testing.T, seeds ...store.SourceSeed) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "wardstats.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.SeedSources(context.Background(), seeds); err != nil {
		t.Fatalf("SeedSources: %v", err)
	}
	return st
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func statuses(t *testing.T, st *store.Store) map[string]store.Source {
	t.Helper()
	sources, err := st.ListSources(context.Background())
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	out := make(map[string]store.Source)
	for _, src := range sources {
		out[src.Topic] = src
	}
	return out
}

func TestCheckAll_Mixed(t *testing.T) {
	srv200 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv200.Close()

	srv404 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv404.Close()

	srv500 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv500.Close()

	st := openSources(t,
		store.SourceSeed{Topic: "religion", Adapter: "csv", Location: srv200.URL},
		store.SourceSeed{Topic: "caste", Adapter: "csv", Location: srv404.URL},
		store.SourceSeed{Topic: "age", Adapter: "xlsx", Location: srv500.URL},
	)

	NewChecker(st, quietLogger(), time.Hour).CheckAll(context.Background())

	got := statuses(t, st)
	for topic, want := range map[string]int{"religion": 200, "caste": 404, "age": 500} {
		src := got[topic]
		if src.LastStatus == nil || *src.LastStatus != want {
			t.Errorf("%s: expected status %d, got %v", topic, want, src.LastStatus)
		}
	}
}

func TestCheckAll_NetworkError(t *testing.T) {
	st := openSources(t, store.SourceSeed{Topic: "dead", Adapter: "csv", Location: "http://127.0.0.1:1"})

	NewChecker(st, quietLogger(), time.Hour).CheckAll(context.Background())

	src := statuses(t, st)["dead"]
	if src.LastStatus == nil || *src.LastStatus != 0 {
		t.Errorf("expected status 0 for network error, got %v", src.LastStatus)
	}
	if src.LastError == nil || *src.LastError == "" {
		t.Error("expected non-empty last_error for network error")
	}
}

func TestCheckAll_LocalFiles(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "data.csv")
	os.WriteFile(present, []byte("ward,measure\n"), 0o644)

	st := openSources(t,
		store.SourceSeed{Topic: "present", Adapter: "csv", Location: present},
		store.SourceSeed{Topic: "absent", Adapter: "csv", Location: filepath.Join(dir, "gone.csv")},
	)

	NewChecker(st, quietLogger(), time.Hour).CheckAll(context.Background())

	got := statuses(t, st)
	if s := got["present"].LastStatus; s == nil || *s != 200 {
		t.Errorf("present: status = %v, want 200", s)
	}
	if s := got["absent"].LastStatus; s == nil || *s != 404 {
		t.Errorf("absent: status = %v, want 404", s)
	}
}

func TestCheckAll_EmptyDB(t *testing.T) {
	st := openSources(t)
	// Should not panic on empty DB.
	NewChecker(st, quietLogger(), time.Hour).CheckAll(context.Background())
}

func TestCheckAll_Redirect(t *testing.T) {
	// 301 is treated as reachable and recorded as-is.
	srv301 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "https://example.com/new")
		w.WriteHeader(http.StatusMovedPermanently)
	}))
	defer srv301.Close()

	st := openSources(t, store.SourceSeed{Topic: "moved", Adapter: "csv", Location: srv301.URL})
	NewChecker(st, quietLogger(), time.Hour).CheckAll(context.Background())

	src := statuses(t, st)["moved"]
	if src.LastStatus == nil || *src.LastStatus != 301 {
		t.Errorf("expected status 301, got %v", src.LastStatus)
	}
}
