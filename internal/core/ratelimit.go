package core

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/stateport/internal/session"
)

// quotaKeyPrefix namespaces import counters in the session store.
const quotaKeyPrefix = "import_quota:"

// ImportRateLimiter caps how many imports one admin may start per window.
// Check and Increment are separate calls, so two simultaneous requests from
// the same admin can both pass Check; the cap may be exceeded by one.
type ImportRateLimiter struct {
	counters session.CounterStore
	max      int
	window   time.Duration
}

// NewImportRateLimiter returns a limiter allowing max imports per window.
// A non-positive max disables the limit.
func NewImportRateLimiter(counters session.CounterStore, max int, window time.Duration) *ImportRateLimiter {
	return &ImportRateLimiter{counters: counters, max: max, window: window}
}

// Check reports whether adminID may start another import.
func (l *ImportRateLimiter) Check(ctx context.Context, adminID string) (Verdict, error) {
	if l == nil || l.max <= 0 {
		return Accept(StageRateLimit), nil
	}
	n, err := l.counters.Get(ctx, quotaKeyPrefix+adminID)
	if err != nil {
		return Verdict{}, fmt.Errorf("read import quota: %w", err)
	}
	if n >= l.max {
		return Reject(StageRateLimit, KindRateLimited, ReasonQuotaExceeded,
			fmt.Sprintf("%d imports in the last %s (limit %d)", n, l.window, l.max)), nil
	}
	return Accept(StageRateLimit), nil
}

// Increment counts one import for adminID.
func (l *ImportRateLimiter) Increment(ctx context.Context, adminID string) error {
	if l == nil || l.max <= 0 {
		return nil
	}
	if _, err := l.counters.Incr(ctx, quotaKeyPrefix+adminID, l.window); err != nil {
		return fmt.Errorf("count import: %w", err)
	}
	return nil
}
