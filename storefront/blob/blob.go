// Package blob stores the storefront's shared JSON documents (sales,
// prices, feedbacks) behind one small key/value interface.
package blob

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get for a missing key
var ErrNotFound = errors.New("blob: key not found")

// Store is a key/value store of opaque documents
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Backend names accepted by Open
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendBolt   = "bolt"
)

// Config selects and configures a backend
type Config struct {
	Backend string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	BoltPath string
}

// Open builds the configured backend; an empty Backend means memory
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendRedis:
		return NewRedis(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
	case BackendBolt:
		return NewBolt(cfg.BoltPath)
	default:
		return nil, fmt.Errorf("blob: unknown backend %q", cfg.Backend)
	}
}
