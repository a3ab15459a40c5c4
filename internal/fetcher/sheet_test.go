package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestFetchSheetWritesBackup(t *testing.T) {
	payload := []byte("workbook bytes")

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write(payload)
	}))
	defer srv.Close()

	backupDir := t.TempDir()
	s := NewSheet(SheetOptions{
		URL:       srv.URL,
		BackupDir: backupDir,
		UserAgent: "zedfx/1.0",
	}, zerolog.Nop())
	s.now = func() time.Time { return time.Date(2024, time.June, 16, 8, 0, 0, 0, time.UTC) }

	content, err := s.FetchSheet(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(content) != string(payload) {
		t.Fatalf("wrong content %q", content)
	}
	if gotUA != "zedfx/1.0" {
		t.Fatalf("user agent not sent, got %q", gotUA)
	}

	backup, err := os.ReadFile(filepath.Join(backupDir, "raw_fx_data_20240616.xlsx"))
	if err != nil {
		t.Fatalf("backup not written: %v", err)
	}
	if string(backup) != string(payload) {
		t.Fatal("backup content differs from response")
	}
}

func TestFetchSheetRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewSheet(SheetOptions{URL: srv.URL, BackupDir: t.TempDir()}, zerolog.Nop())
	if _, err := s.FetchSheet(context.Background()); err == nil {
		t.Fatal("non-2xx status must be an error")
	}
}

func TestFetchSheetRequiresBackupDir(t *testing.T) {
	s := NewSheet(SheetOptions{URL: "http://example.invalid"}, zerolog.Nop())
	if _, err := s.FetchSheet(context.Background()); err == nil {
		t.Fatal("missing backup dir must be an error")
	}
}

func TestFetchSheetConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	s := NewSheet(SheetOptions{URL: srv.URL, BackupDir: t.TempDir()}, zerolog.Nop())
	if _, err := s.FetchSheet(context.Background()); err == nil {
		t.Fatal("connection failure must propagate")
	}
}
