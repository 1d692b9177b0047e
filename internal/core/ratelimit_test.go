package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/stateport/internal/session"
)

type failingCounters struct{ session.CounterStore }

func (failingCounters) Get(context.Context, string) (int, error) {
	return 0, errors.New("redis: connection refused")
}

func TestImportRateLimiter_EnforcesQuota(t *testing.T) {
	ctx := context.Background()
	l := NewImportRateLimiter(session.NewMemoryStore(), 2, time.Hour)

	for i := 0; i < 2; i++ {
		v, err := l.Check(ctx, "7")
		require.NoError(t, err)
		require.True(t, v.Accepted)
		require.NoError(t, l.Increment(ctx, "7"))
	}

	v, err := l.Check(ctx, "7")
	require.NoError(t, err)
	assert.False(t, v.Accepted)
	assert.Equal(t, StageRateLimit, v.Stage)
	assert.Equal(t, KindRateLimited, v.Kind)
	assert.Equal(t, ReasonQuotaExceeded, v.Reason)

	v, err = l.Check(ctx, "8")
	require.NoError(t, err)
	assert.True(t, v.Accepted, "quota is per admin")
}

func TestImportRateLimiter_Disabled(t *testing.T) {
	ctx := context.Background()
	l := NewImportRateLimiter(failingCounters{}, 0, time.Hour)

	v, err := l.Check(ctx, "7")
	require.NoError(t, err)
	assert.True(t, v.Accepted)
	assert.NoError(t, l.Increment(ctx, "7"))
}

func TestImportRateLimiter_StoreError(t *testing.T) {
	l := NewImportRateLimiter(failingCounters{}, 5, time.Hour)
	_, err := l.Check(context.Background(), "7")
	assert.ErrorContains(t, err, "connection refused")
}
