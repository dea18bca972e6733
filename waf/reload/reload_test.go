package reload

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestReloadAll(t *testing.T) {
	m, err := NewManager(Config{})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Stop()

	var calls int32
	if err := m.Register(Target{Name: "rules", Path: "/tmp/rules.yaml", Reload: func() error {
		atomic.AddInt32(&calls, 1)
		return nil
	}}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := m.Register(Target{Name: "catalog", Path: "/tmp/catalog.json", Reload: func() error {
		return errors.New("bad json")
	}}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	err = m.ReloadAll()
	if err == nil {
		t.Fatal("expected joined error from failing target")
	}
	if calls != 1 {
		t.Fatalf("expected rules reloaded once, got %d", calls)
	}
	if _, ok := m.GetLastReloadTime("rules"); !ok {
		t.Fatal("expected rules reload time")
	}
	if _, ok := m.GetLastReloadTime("catalog"); ok {
		t.Fatal("expected no reload time for failing target")
	}

	status := m.GetStatus()
	if errs := status["last_errors"].(map[string]string); errs["catalog"] != "bad json" {
		t.Fatalf("expected catalog error in status, got %v", errs)
	}
}

func TestRegisterValidates(t *testing.T) {
	m, _ := NewManager(Config{})
	defer m.Stop()
	if err := m.Register(Target{Name: "x"}); err == nil {
		t.Fatal("expected error for incomplete target")
	}
}

func TestDebounce(t *testing.T) {
	m, _ := NewManager(Config{DebounceTime: time.Hour})
	defer m.Stop()

	var calls int32
	_ = m.Register(Target{Name: "rules", Path: "/etc/topcompras/rules.yaml", Reload: func() error {
		atomic.AddInt32(&calls, 1)
		return nil
	}})

	m.handleFileChange("/etc/topcompras/rules.yaml")
	m.handleFileChange("/etc/topcompras/rules.yaml")
	m.handleFileChange("/etc/topcompras/other.yaml")

	if calls != 1 {
		t.Fatalf("expected one debounced reload, got %d", calls)
	}
}

func TestWatcherPicksUpWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guard-rules.yaml")
	if err := os.WriteFile(path, []byte("bans: []\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	m, err := NewManager(Config{WatchEnabled: true, DebounceTime: time.Millisecond})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Stop()

	reloaded := make(chan struct{}, 10)
	if err := m.Register(Target{Name: "rules", Path: path, Reload: func() error {
		reloaded <- struct{}{}
		return nil
	}}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := os.WriteFile(path, []byte("bans:\n  - identity: 1.2.3.4\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("expected watcher to trigger a reload")
	}
}

func TestHandlers(t *testing.T) {
	m, _ := NewManager(Config{})
	defer m.Stop()
	_ = m.Register(Target{Name: "rules", Path: "/x/rules.yaml", Reload: func() error { return nil }})

	rr := httptest.NewRecorder()
	m.Handler(rr, httptest.NewRequest("GET", "/reload", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	m.Handler(rr, httptest.NewRequest("POST", "/reload", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	m.StatusHandler(rr, httptest.NewRequest("GET", "/reload/status", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}
