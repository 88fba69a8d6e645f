package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"voting-service/internal/models"
	"voting-service/internal/util"
)

// Policy describes one rate limit: how many attempts fit in a window and
// how long an identifier stays blocked after exhausting them.
type Policy struct {
	MaxAttempts   int
	Window        time.Duration
	BlockDuration time.Duration
}

// Result reports the outcome of a single Check call.
type Result struct {
	Allowed     bool
	Remaining   int
	ResetTime   time.Time
	Blocked     bool
	BlockExpiry time.Time
}

// Store persists rate limit entries. Get returns (nil, nil) for an
// identifier with no entry.
type Store interface {
	Get(ctx context.Context, identifier string) (*models.RateLimitEntry, error)
	Put(ctx context.Context, entry *models.RateLimitEntry, ttl time.Duration) error
	Delete(ctx context.Context, identifier string) error
}

// Limiter applies sliding-window rate limits on top of a pluggable Store.
type Limiter struct {
	store Store
	now   func() time.Time
	locks sync.Map // identifier -> *sync.Mutex
}

func NewLimiter(store Store) *Limiter {
	return &Limiter{
		store: store,
		now:   time.Now,
	}
}

func (l *Limiter) lockFor(identifier string) *sync.Mutex {
	mu, _ := l.locks.LoadOrStore(identifier, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Check counts one attempt against the policy and reports whether the
// caller may proceed. Exhausting the window blocks the identifier for
// policy.BlockDuration.
func (l *Limiter) Check(ctx context.Context, identifier string, policy Policy) (*Result, error) {
	mu := l.lockFor(identifier)
	mu.Lock()
	defer mu.Unlock()

	now := l.now()

	entry, err := l.store.Get(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		entry = &models.RateLimitEntry{
			Identifier:      identifier,
			WindowResetTime: now.Add(policy.Window),
		}
	}

	if entry.IsBlocked {
		if now.Before(entry.BlockExpiry) {
			return &Result{
				Allowed:     false,
				Remaining:   0,
				ResetTime:   entry.WindowResetTime,
				Blocked:     true,
				BlockExpiry: entry.BlockExpiry,
			}, nil
		}
		// Block lapsed; start a clean window.
		entry.IsBlocked = false
		entry.BlockExpiry = time.Time{}
		entry.Count = 0
		entry.WindowResetTime = now.Add(policy.Window)
	}

	if !now.Before(entry.WindowResetTime) {
		entry.Count = 0
		entry.WindowResetTime = now.Add(policy.Window)
	}

	entry.Count++

	if entry.Count > policy.MaxAttempts {
		entry.IsBlocked = true
		entry.BlockExpiry = now.Add(policy.BlockDuration)

		if err := l.store.Put(ctx, entry, policy.BlockDuration); err != nil {
			return nil, err
		}

		util.Warn("Rate limit exceeded",
			zap.String("identifier", identifier),
			zap.Int("max_attempts", policy.MaxAttempts),
			zap.Time("block_expiry", entry.BlockExpiry))

		return &Result{
			Allowed:     false,
			Remaining:   0,
			ResetTime:   entry.WindowResetTime,
			Blocked:     true,
			BlockExpiry: entry.BlockExpiry,
		}, nil
	}

	ttl := entry.WindowResetTime.Sub(now)
	if err := l.store.Put(ctx, entry, ttl); err != nil {
		return nil, err
	}

	return &Result{
		Allowed:   true,
		Remaining: policy.MaxAttempts - entry.Count,
		ResetTime: entry.WindowResetTime,
	}, nil
}

// Reset clears any state for the identifier, including an active block.
func (l *Limiter) Reset(ctx context.Context, identifier string) error {
	mu := l.lockFor(identifier)
	mu.Lock()
	defer mu.Unlock()

	return l.store.Delete(ctx, identifier)
}
