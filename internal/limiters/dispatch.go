package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DispatchConfig holds configuration for the OTP send throttle.
type DispatchConfig struct {
	Enabled bool
	Max     int
	Window  time.Duration
}

var (
	// ErrDispatchThrottled indicates the per-email send budget is exhausted.
	ErrDispatchThrottled = errors.New("otp dispatch throttled")
	// ErrDispatchUnavailable indicates the throttle backend is unreachable.
	ErrDispatchUnavailable = errors.New("otp dispatch throttle backend unavailable")
)

// DispatchLimiter caps how many OTP emails can be sent to one address within
// a rolling window, so resend cannot be used to reset the attempt counter
// indefinitely.
type DispatchLimiter struct {
	redis  redis.UniversalClient
	config DispatchConfig
}

// NewDispatchLimiter creates a new dispatch limiter.
func NewDispatchLimiter(redisClient redis.UniversalClient, cfg DispatchConfig) *DispatchLimiter {
	return &DispatchLimiter{redis: redisClient, config: cfg}
}

func (l *DispatchLimiter) key(email string) string {
	return "fod:" + email
}

// Allow consumes one send from the email's budget. It returns
// ErrDispatchThrottled once the window budget is exhausted.
func (l *DispatchLimiter) Allow(ctx context.Context, email string) error {
	if !l.config.Enabled || email == "" {
		return nil
	}

	count, err := l.redis.Incr(ctx, l.key(email)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDispatchUnavailable, err)
	}

	if count == 1 {
		// TTL on first send so the budget rolls over after the window.
		if err := l.redis.Expire(ctx, l.key(email), l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrDispatchUnavailable, err)
		}
	}

	if count > int64(l.config.Max) {
		return ErrDispatchThrottled
	}
	return nil
}

// Reset clears the send budget for an email (e.g. after successful
// verification).
func (l *DispatchLimiter) Reset(ctx context.Context, email string) error {
	if !l.config.Enabled || email == "" {
		return nil
	}

	if err := l.redis.Del(ctx, l.key(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrDispatchUnavailable, err)
	}
	return nil
}
