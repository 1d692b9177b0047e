package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/stateport/internal/config"
)

func TestMemoryStore_WindowExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	n, err := store.Get(ctx, "admin:1")
	require.NoError(t, err)
	assert.Zero(t, n)

	for i := 1; i <= 3; i++ {
		n, err = store.Incr(ctx, "admin:1", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	now = now.Add(59 * time.Minute)
	n, _ = store.Get(ctx, "admin:1")
	assert.Equal(t, 3, n, "window still open")

	now = now.Add(time.Minute)
	n, _ = store.Get(ctx, "admin:1")
	assert.Zero(t, n, "window elapsed")

	n, _ = store.Incr(ctx, "admin:1", time.Hour)
	assert.Equal(t, 1, n)
}

func TestMemoryStore_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, _ = store.Incr(ctx, "a", time.Hour)
	_, _ = store.Incr(ctx, "a", time.Hour)
	_, _ = store.Incr(ctx, "b", time.Hour)

	a, _ := store.Get(ctx, "a")
	b, _ := store.Get(ctx, "b")
	assert.Equal(t, 2, a)
	assert.Equal(t, 1, b)
}

func TestNew_Backends(t *testing.T) {
	store, err := New(context.Background(), config.SessionConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	_, err = New(context.Background(), config.SessionConfig{Backend: "memcached"})
	assert.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	ctx := context.Background()

	store, err := NewRedisStore(ctx, url)
	require.NoError(t, err)
	defer store.Close()

	key := "stateport-test:" + uuid.NewString()
	n, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = store.Incr(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = store.Incr(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ttl, err := store.client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
