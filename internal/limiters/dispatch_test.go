package limiters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg DispatchConfig) (*DispatchLimiter, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cleanup := func() {
		client.Close()
		mr.Close()
	}
	return NewDispatchLimiter(client, cfg), mr, cleanup
}

func TestDispatchLimiter_AllowsWithinBudget(t *testing.T) {
	l, _, done := newTestLimiter(t, DispatchConfig{Enabled: true, Max: 3, Window: time.Minute})
	defer done()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.Allow(ctx, "a@b.c"); err != nil {
			t.Fatalf("send %d within budget: %v", i+1, err)
		}
	}

	err := l.Allow(ctx, "a@b.c")
	if !errors.Is(err, ErrDispatchThrottled) {
		t.Fatalf("expected ErrDispatchThrottled past budget, got %v", err)
	}
}

func TestDispatchLimiter_BudgetIsPerEmail(t *testing.T) {
	l, _, done := newTestLimiter(t, DispatchConfig{Enabled: true, Max: 1, Window: time.Minute})
	defer done()
	ctx := context.Background()

	if err := l.Allow(ctx, "a@b.c"); err != nil {
		t.Fatalf("first address: %v", err)
	}
	if err := l.Allow(ctx, "x@y.z"); err != nil {
		t.Fatalf("second address must have its own budget: %v", err)
	}
}

func TestDispatchLimiter_WindowRollsOver(t *testing.T) {
	l, mr, done := newTestLimiter(t, DispatchConfig{Enabled: true, Max: 1, Window: time.Minute})
	defer done()
	ctx := context.Background()

	if err := l.Allow(ctx, "a@b.c"); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := l.Allow(ctx, "a@b.c"); !errors.Is(err, ErrDispatchThrottled) {
		t.Fatalf("expected throttle, got %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if err := l.Allow(ctx, "a@b.c"); err != nil {
		t.Fatalf("send after window rollover: %v", err)
	}
}

func TestDispatchLimiter_ResetClearsBudget(t *testing.T) {
	l, _, done := newTestLimiter(t, DispatchConfig{Enabled: true, Max: 1, Window: time.Minute})
	defer done()
	ctx := context.Background()

	if err := l.Allow(ctx, "a@b.c"); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := l.Reset(ctx, "a@b.c"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := l.Allow(ctx, "a@b.c"); err != nil {
		t.Fatalf("send after reset: %v", err)
	}
}

func TestDispatchLimiter_DisabledAllowsEverything(t *testing.T) {
	l, _, done := newTestLimiter(t, DispatchConfig{Enabled: false, Max: 1, Window: time.Minute})
	defer done()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := l.Allow(ctx, "a@b.c"); err != nil {
			t.Fatalf("disabled limiter denied send %d: %v", i+1, err)
		}
	}
}
