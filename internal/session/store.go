// Package session holds short-lived per-admin counters shared by the HTTP
// server and the CLI, such as the rolling import quota.
package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/stateport/internal/config"
)

// CounterStore is a keyed counter whose value resets once its window elapses.
// The window starts at the first increment.
type CounterStore interface {
	// Get returns the current count, zero when the key is absent or expired.
	Get(ctx context.Context, key string) (int, error)
	// Incr adds one and returns the new count.
	Incr(ctx context.Context, key string, window time.Duration) (int, error)
	Close() error
}

// New builds the counter store selected by cfg.
func New(ctx context.Context, cfg config.SessionConfig) (CounterStore, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(ctx, cfg.RedisURL)
	default:
		return nil, fmt.Errorf("session: unknown backend %q", cfg.Backend)
	}
}
