package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func testPolicy() Policy {
	return Policy{
		MaxAttempts:   3,
		Window:        time.Minute,
		BlockDuration: 5 * time.Minute,
	}
}

func newTestLimiter(start time.Time) (*Limiter, *time.Time) {
	now := start
	l := NewLimiter(NewMemoryStore())
	l.now = func() time.Time { return now }
	return l, &now
}

func TestCheckAllowsUpToMax(t *testing.T) {
	l, _ := newTestLimiter(time.Now())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Check(ctx, "10.0.0.1", testPolicy())
		if err != nil {
			t.Fatalf("Check() error = %v", err)
		}
		if !res.Allowed {
			t.Fatalf("attempt %d denied, want allowed", i+1)
		}
		if res.Remaining != 3-(i+1) {
			t.Errorf("attempt %d remaining = %d, want %d", i+1, res.Remaining, 3-(i+1))
		}
	}
}

func TestCheckSaturationBlocks(t *testing.T) {
	l, now := newTestLimiter(time.Now())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := l.Check(ctx, "saturate", testPolicy()); err != nil {
			t.Fatalf("Check() error = %v", err)
		}
	}

	res, err := l.Check(ctx, "saturate", testPolicy())
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if res.Allowed {
		t.Fatal("4th attempt allowed, want denied")
	}
	if !res.Blocked {
		t.Fatal("4th attempt not marked blocked")
	}
	wantExpiry := now.Add(5 * time.Minute)
	if !res.BlockExpiry.Equal(wantExpiry) {
		t.Errorf("BlockExpiry = %v, want %v", res.BlockExpiry, wantExpiry)
	}

	// Still denied while the block holds, even after the window lapses.
	*now = now.Add(2 * time.Minute)
	res, err = l.Check(ctx, "saturate", testPolicy())
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if res.Allowed || !res.Blocked {
		t.Fatal("attempt during block allowed, want denied")
	}

	// After expiry the window starts clean.
	*now = now.Add(4 * time.Minute)
	res, err = l.Check(ctx, "saturate", testPolicy())
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !res.Allowed {
		t.Fatal("attempt after block expiry denied, want allowed")
	}
	if res.Remaining != 2 {
		t.Errorf("remaining after reset = %d, want 2", res.Remaining)
	}
}

func TestCheckWindowReset(t *testing.T) {
	l, now := newTestLimiter(time.Now())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := l.Check(ctx, "window", testPolicy()); err != nil {
			t.Fatalf("Check() error = %v", err)
		}
	}

	// A new window begins once the old one lapses; no block was tripped.
	*now = now.Add(61 * time.Second)
	res, err := l.Check(ctx, "window", testPolicy())
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !res.Allowed {
		t.Fatal("attempt in fresh window denied, want allowed")
	}
}

func TestResetClearsBlock(t *testing.T) {
	l, _ := newTestLimiter(time.Now())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := l.Check(ctx, "reset-me", testPolicy()); err != nil {
			t.Fatalf("Check() error = %v", err)
		}
	}

	if err := l.Reset(ctx, "reset-me"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	res, err := l.Check(ctx, "reset-me", testPolicy())
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !res.Allowed {
		t.Fatal("attempt after Reset denied, want allowed")
	}
}

func TestCheckIdentifiersIndependent(t *testing.T) {
	l, _ := newTestLimiter(time.Now())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := l.Check(ctx, "first", testPolicy()); err != nil {
			t.Fatalf("Check() error = %v", err)
		}
	}

	res, err := l.Check(ctx, "second", testPolicy())
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !res.Allowed {
		t.Fatal("unrelated identifier denied, want allowed")
	}
}

func TestCheckConcurrent(t *testing.T) {
	l := NewLimiter(NewMemoryStore())
	ctx := context.Background()
	policy := Policy{MaxAttempts: 10, Window: time.Minute, BlockDuration: time.Minute}

	var wg sync.WaitGroup
	allowed := make(chan bool, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := l.Check(ctx, "contended", policy)
			if err != nil {
				t.Errorf("Check() error = %v", err)
				return
			}
			allowed <- res.Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	got := 0
	for ok := range allowed {
		if ok {
			got++
		}
	}
	if got != 10 {
		t.Errorf("allowed = %d of 50 concurrent attempts, want exactly 10", got)
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	l := NewLimiter(s)
	l.now = func() time.Time { return now }

	if _, err := l.Check(ctx, "stale", testPolicy()); err != nil {
		t.Fatalf("Check() error = %v", err)
	}

	if removed := s.sweep(now.Add(2 * time.Minute)); removed != 1 {
		t.Errorf("sweep removed %d entries, want 1", removed)
	}

	entry, err := s.Get(ctx, "stale")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if entry != nil {
		t.Error("entry survived sweep, want removed")
	}
}
