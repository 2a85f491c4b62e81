package stores

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*OTPChallengeStore, *miniredis.Miniredis, func()) {
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
	return NewOTPChallengeStore(client, "foc"), mr, cleanup
}

func newChallenge(email string, ttl time.Duration) *OTPChallenge {
	return &OTPChallenge{
		Email:     email,
		ExpiresAt: time.Now().Add(ttl).Unix(),
	}
}

func TestOTPStore_SaveAndGet(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()
	ctx := context.Background()

	if err := store.Save(ctx, newChallenge("a@b.c", 5*time.Minute), 5*time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Get(ctx, "a@b.c")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Email != "a@b.c" || got.Attempts != 0 || got.LockedUntil != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestOTPStore_GetMissing(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()

	_, err := store.Get(context.Background(), "nobody@b.c")
	if !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound, got %v", err)
	}
}

func TestOTPStore_ExpiredRecordIsDeleted(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()
	ctx := context.Background()

	record := &OTPChallenge{
		Email:     "a@b.c",
		ExpiresAt: time.Now().Add(-time.Second).Unix(),
	}
	if err := store.Save(ctx, record, time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := store.Get(ctx, "a@b.c"); !errors.Is(err, ErrChallengeExpired) {
		t.Fatalf("expected ErrChallengeExpired, got %v", err)
	}
	// Expiry removed the key entirely.
	if _, err := store.Get(ctx, "a@b.c"); !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound after cleanup, got %v", err)
	}
}

func TestOTPStore_MarkFailureIncrements(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()
	ctx := context.Background()

	if err := store.Save(ctx, newChallenge("a@b.c", 5*time.Minute), 5*time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}

	locked, attempts, err := store.MarkFailure(ctx, "a@b.c", 3, 15*time.Minute)
	if err != nil {
		t.Fatalf("mark failure: %v", err)
	}
	if locked || attempts != 1 {
		t.Fatalf("expected unlocked with 1 attempt, got locked=%v attempts=%d", locked, attempts)
	}

	got, err := store.Get(ctx, "a@b.c")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Attempts != 1 {
		t.Fatalf("persisted attempts %d, want 1", got.Attempts)
	}
}

func TestOTPStore_MarkFailureLocksAtCeiling(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()
	ctx := context.Background()

	if err := store.Save(ctx, newChallenge("a@b.c", 5*time.Minute), 5*time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}

	var locked bool
	for i := 0; i < 3; i++ {
		var err error
		locked, _, err = store.MarkFailure(ctx, "a@b.c", 3, 15*time.Minute)
		if err != nil {
			t.Fatalf("mark failure %d: %v", i+1, err)
		}
	}
	if !locked {
		t.Fatal("expected the third failure to lock the challenge")
	}

	got, err := store.Get(ctx, "a@b.c")
	if err != nil {
		t.Fatalf("get locked record: %v", err)
	}
	if !got.Locked(time.Now()) {
		t.Fatalf("expected a locked record, got %+v", got)
	}
}

func TestOTPStore_SaveOverwritesLock(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()
	ctx := context.Background()

	if err := store.Save(ctx, newChallenge("a@b.c", 5*time.Minute), 5*time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}
	for i := 0; i < 3; i++ {
		store.MarkFailure(ctx, "a@b.c", 3, 15*time.Minute)
	}

	// Reissue: fresh record, no lock, zero attempts.
	if err := store.Save(ctx, newChallenge("a@b.c", 5*time.Minute), 5*time.Minute); err != nil {
		t.Fatalf("reissue save: %v", err)
	}
	got, err := store.Get(ctx, "a@b.c")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Locked(time.Now()) || got.Attempts != 0 {
		t.Fatalf("reissue did not reset state: %+v", got)
	}
}

func TestOTPStore_Delete(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()
	ctx := context.Background()

	if err := store.Save(ctx, newChallenge("a@b.c", 5*time.Minute), 5*time.Minute); err != nil {
		t.Fatalf("save: %v", err)
	}

	removed, err := store.Delete(ctx, "a@b.c")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !removed {
		t.Fatal("expected delete to report a removed key")
	}

	removed, err = store.Delete(ctx, "a@b.c")
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if removed {
		t.Fatal("expected second delete to be a no-op")
	}
}

func TestOTPStore_MarkFailureMissing(t *testing.T) {
	store, _, done := newTestStore(t)
	defer done()

	_, _, err := store.MarkFailure(context.Background(), "nobody@b.c", 3, 15*time.Minute)
	if !errors.Is(err, ErrChallengeNotFound) {
		t.Fatalf("expected ErrChallengeNotFound, got %v", err)
	}
}

func TestOTPStore_RecordRoundTrip(t *testing.T) {
	record := &OTPChallenge{
		Email:       "long-address+tag@example.com",
		Attempts:    2,
		ExpiresAt:   time.Now().Add(time.Minute).Unix(),
		LockedUntil: time.Now().Add(10 * time.Minute).Unix(),
	}

	encoded, err := encodeOTPChallenge(record)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := decodeOTPChallenge(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *decoded != *record {
		t.Fatalf("round trip mismatch: %+v != %+v", decoded, record)
	}
}

func TestOTPStore_DecodeRejectsTruncated(t *testing.T) {
	record := newChallenge("a@b.c", time.Minute)
	encoded, err := encodeOTPChallenge(record)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	for cut := 1; cut < len(encoded); cut++ {
		if _, err := decodeOTPChallenge(encoded[:cut]); err == nil {
			t.Fatalf("decode accepted a record truncated to %d bytes", cut)
		}
	}
}
