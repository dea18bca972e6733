package blob

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// exerciseStore runs the behaviour every backend must share
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "vendas"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.Put(ctx, "vendas", []byte(`{"Minecraft":2}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, "vendas")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"Minecraft":2}` {
		t.Fatalf("expected stored document, got %s", got)
	}

	// callers may mutate what they got back
	got[0] = 'X'
	again, _ := s.Get(ctx, "vendas")
	if again[0] != '{' {
		t.Fatal("expected Get to return a copy")
	}

	if err := s.Put(ctx, "vendas", []byte(`{}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if got, _ := s.Get(ctx, "vendas"); string(got) != `{}` {
		t.Fatalf("expected overwrite, got %s", got)
	}

	if err := s.Delete(ctx, "vendas"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "vendas"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, "missing"); err != nil {
		t.Fatalf("expected deleting a missing key to succeed, got %v", err)
	}

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestBolt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "store.db")
	s, err := NewBolt(path)
	if err != nil {
		t.Fatalf("NewBolt: %v", err)
	}
	exerciseStore(t, s)

	if err := s.Put(context.Background(), "precos", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewBolt(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Get(context.Background(), "precos")
	if err != nil || string(got) != `{"a":1}` {
		t.Fatalf("expected persisted document, got %s (%v)", got, err)
	}
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	s, err := NewRedis(context.Background(), RedisOptions{Addr: addr, Prefix: "topcompras-test:"})
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{})
	if err != nil {
		t.Fatalf("Open memory: %v", err)
	}
	if _, ok := s.(*Memory); !ok {
		t.Fatalf("expected memory backend, got %T", s)
	}

	s, err = Open(ctx, Config{Backend: BackendBolt, BoltPath: filepath.Join(t.TempDir(), "x.db")})
	if err != nil {
		t.Fatalf("Open bolt: %v", err)
	}
	s.Close()

	if _, err := Open(ctx, Config{Backend: "mongo"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
