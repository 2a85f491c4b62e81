package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	otpChallengeRecordVersion1 = 1
)

var (
	ErrChallengeNotFound = errors.New("otp challenge not found")
	ErrChallengeExpired  = errors.New("otp challenge expired")
	ErrChallengeBackend  = errors.New("otp challenge backend unavailable")
)

// OTPChallenge is the per-email second-factor state. The code itself lives
// with the backend that dispatched it; this record only tracks the local
// attempt budget. Attempts counts failed verifications; LockedUntil is
// non-zero once the attempt ceiling is hit and only a full reissue clears it.
type OTPChallenge struct {
	Email       string
	Attempts    uint16
	ExpiresAt   int64
	LockedUntil int64
}

// Locked reports whether the challenge is inside its lockout window at now.
func (c *OTPChallenge) Locked(now time.Time) bool {
	return c != nil && c.LockedUntil > 0 && now.Unix() < c.LockedUntil
}

type OTPChallengeStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewOTPChallengeStore(redisClient redis.UniversalClient, prefix string) *OTPChallengeStore {
	if prefix == "" {
		prefix = "foc"
	}
	return &OTPChallengeStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *OTPChallengeStore) key(email string) string {
	return s.prefix + ":" + email
}

// Save overwrites any prior challenge for the email. The key TTL covers the
// challenge lifetime; a later lockout extends it so the locked state outlives
// the code itself.
func (s *OTPChallengeStore) Save(ctx context.Context, record *OTPChallenge, ttl time.Duration) error {
	encoded, err := encodeOTPChallenge(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(record.Email), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	return nil
}

func (s *OTPChallengeStore) Get(ctx context.Context, email string) (*OTPChallenge, error) {
	data, err := s.redis.Get(ctx, s.key(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}

	record, err := decodeOTPChallenge(data)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if record.Locked(now) {
		// Lockout outranks code expiry; the record stays visible so callers
		// can report the locked state instead of "no challenge".
		return record, nil
	}
	if now.Unix() > record.ExpiresAt {
		_, _ = s.redis.Del(ctx, s.key(email)).Result()
		return nil, ErrChallengeExpired
	}
	return record, nil
}

func (s *OTPChallengeStore) Delete(ctx context.Context, email string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(email)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	return n > 0, nil
}

// MarkFailure increments the attempt counter under a transactional watch.
// Reaching maxAttempts sets the lockout and extends the key so the lock
// survives past the code TTL. Returns whether the lock engaged and the
// attempt count after the increment.
func (s *OTPChallengeStore) MarkFailure(
	ctx context.Context,
	email string,
	maxAttempts int,
	lockout time.Duration,
) (bool, int, error) {
	const maxRetries = 4
	key := s.key(email)

	for i := 0; i < maxRetries; i++ {
		var locked bool
		var attempts int
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeOTPChallenge(data)
			if err != nil {
				return err
			}
			now := time.Now()
			if !record.Locked(now) && now.Unix() > record.ExpiresAt {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrChallengeExpired
			}

			record.Attempts++
			attempts = int(record.Attempts)
			ttl := time.Until(time.Unix(record.ExpiresAt, 0))
			if attempts >= maxAttempts {
				locked = true
				record.LockedUntil = now.Add(lockout).Unix()
				if lockout > ttl {
					ttl = lockout
				}
			}
			if ttl <= 0 {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrChallengeExpired
			}

			updated, err := encodeOTPChallenge(record)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, ttl)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return false, 0, ErrChallengeNotFound
			}
			if errors.Is(err, ErrChallengeExpired) {
				return false, 0, err
			}
			return false, 0, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
		}
		return locked, attempts, nil
	}

	return false, 0, ErrChallengeNotFound
}

func encodeOTPChallenge(record *OTPChallenge) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(otpChallengeRecordVersion1)

	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.LockedUntil); err != nil {
		return nil, err
	}
	if len(record.Email) > 65535 {
		return nil, errors.New("otp challenge email length exceeded")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.Email))); err != nil {
		return nil, err
	}
	buf.WriteString(record.Email)

	return buf.Bytes(), nil
}

func decodeOTPChallenge(data []byte) (*OTPChallenge, error) {
	r := bytes.NewReader(data)

	version, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: truncated record", ErrChallengeBackend)
	}
	if version != otpChallengeRecordVersion1 {
		return nil, fmt.Errorf("%w: unknown record version %d", ErrChallengeBackend, version)
	}

	record := &OTPChallenge{}
	if err := binary.Read(r, binary.BigEndian, &record.Attempts); err != nil {
		return nil, fmt.Errorf("%w: truncated record", ErrChallengeBackend)
	}
	if err := binary.Read(r, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, fmt.Errorf("%w: truncated record", ErrChallengeBackend)
	}
	if err := binary.Read(r, binary.BigEndian, &record.LockedUntil); err != nil {
		return nil, fmt.Errorf("%w: truncated record", ErrChallengeBackend)
	}
	var emailLen uint16
	if err := binary.Read(r, binary.BigEndian, &emailLen); err != nil {
		return nil, fmt.Errorf("%w: truncated record", ErrChallengeBackend)
	}
	email := make([]byte, emailLen)
	if _, err := io.ReadFull(r, email); err != nil {
		return nil, fmt.Errorf("%w: truncated record", ErrChallengeBackend)
	}
	record.Email = string(email)

	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: trailing bytes in record", ErrChallengeBackend)
	}
	return record, nil
}
