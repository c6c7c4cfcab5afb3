package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestReadLevelHTTPJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"level": 812000, "station": "intake-3"}`))
	}))
	defer srv.Close()

	level, err := ReadLevel(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("ReadLevel failed: %v", err)
	}
	if level != 812000 {
		t.Errorf("level = %d, want 812000", level)
	}
}

func TestReadLevelHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := ReadLevel(context.Background(), srv.URL); err == nil {
		t.Errorf("ReadLevel succeeded against failing gauge, want error")
	}
}

func TestReadLevelFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gauge.txt")
	if err := os.WriteFile(path, []byte(" 425000\n"), 0o644); err != nil {
		t.Fatalf("write gauge file: %v", err)
	}

	level, err := ReadLevel(context.Background(), "file://"+path)
	if err != nil {
		t.Fatalf("ReadLevel failed: %v", err)
	}
	if level != 425000 {
		t.Errorf("level = %d, want 425000", level)
	}
}

func TestReadLevelFileGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gauge.txt")
	if err := os.WriteFile(path, []byte("not a number"), 0o644); err != nil {
		t.Fatalf("write gauge file: %v", err)
	}
	if _, err := ReadLevel(context.Background(), "file://"+path); err == nil {
		t.Errorf("ReadLevel parsed garbage, want error")
	}
}

func TestReadLevelUnknownScheme(t *testing.T) {
	if _, err := ReadLevel(context.Background(), "modbus://plc-7/register/40001"); err == nil {
		t.Errorf("ReadLevel accepted unknown scheme, want error")
	}
}

func TestRegisteredReaders(t *testing.T) {
	for _, scheme := range []string{"http", "https", "file"} {
		if _, ok := GetGaugeReader(scheme); !ok {
			t.Errorf("no gauge reader registered for %q", scheme)
		}
	}
}
