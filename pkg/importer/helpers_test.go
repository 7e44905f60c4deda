package importer

import (
	"archive/zip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestDownloadFile(t *testing.T) {
	content := "hello world"
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(content))
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "test.txt")
	if err := downloadFile(context.Background(), ts.URL, dest); err != nil {
		t.Fatalf("downloadFile: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != content {
		t.Errorf("content = %q, want %q", string(data), content)
	}
}

func TestDownloadFile_Retry(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "retry.txt")
	if err := downloadFile(context.Background(), ts.URL, dest); err != nil {
		t.Fatalf("downloadFile with retries: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestDownloadFile_AllFail(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "fail.txt")
	if err := downloadFile(context.Background(), ts.URL, dest); err == nil {
		t.Error("expected error after all retries exhausted")
	}
}

func TestFetch_LocalPassthrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	got, cleanup, err := fetch(context.Background(), path)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	defer cleanup()
	if got != path {
		t.Errorf("path = %q, want %q", got, path)
	}
}

func TestFetch_Zip(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "bundle.zip")
	f, err := os.Create(archive)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	readme, _ := zw.Create("README.md")
	readme.Write([]byte("skip me"))
	data, _ := zw.Create("nested/data.csv")
	data.Write([]byte("ward,measure\n1,5\n"))
	zw.Close()
	f.Close()

	got, cleanup, err := fetch(context.Background(), archive)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if filepath.Base(got) != "data.csv" {
		t.Errorf("extracted %q, want data.csv", got)
	}
	content, err := os.ReadFile(got)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(content) != "ward,measure\n1,5\n" {
		t.Errorf("content = %q", content)
	}

	cleanup()
	if _, err := os.Stat(got); !os.IsNotExist(err) {
		t.Error("cleanup should remove extracted files")
	}
}

func TestFetch_Remote(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ward,measure\n"))
	}))
	defer ts.Close()

	got, cleanup, err := fetch(context.Background(), ts.URL+"/exports/religion.csv?v=2")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	defer cleanup()
	if filepath.Base(got) != "religion.csv" {
		t.Errorf("local name = %q, want religion.csv", filepath.Base(got))
	}
}
