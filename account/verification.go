package account

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// CodeLength is the number of digits in a verification code.
	CodeLength = 6
	// DefaultCodeTTL is how long a verification code stays valid.
	DefaultCodeTTL = 15 * time.Minute
	// DefaultMaxAttempts is how many wrong codes are accepted before the
	// pending code is discarded. It also caps how many codes are mailed
	// before the pending one expires.
	DefaultMaxAttempts = 5
	// DefaultResendInterval is the minimum time between two mailed codes.
	DefaultResendInterval = time.Minute
)

// PendingCode is a verification code waiting to be entered.
type PendingCode struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
	SentAt    time.Time `json:"sent_at"`
	Sends     int       `json:"sends"`
}

// resendAllowed reports whether a new code may be mailed while pc is pending.
// An expired code no longer limits anything.
func resendAllowed(pc PendingCode, now time.Time, interval time.Duration, maxSends int) bool {
	if !now.Before(pc.ExpiresAt) {
		return true
	}
	return now.Sub(pc.SentAt) >= interval && pc.Sends < maxSends
}

// CodeStore keeps pending verification codes keyed by username. Get
// returns ErrInvalidCode when no code is pending.
type CodeStore interface {
	Put(ctx context.Context, username string, pc PendingCode) error
	Get(ctx context.Context, username string) (PendingCode, error)
	Delete(ctx context.Context, username string) error
}

// GenerateCode returns a uniformly random six digit code.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}

// checkCode compares an entered code against a pending one and returns the
// pending code to store back (nil when it should be deleted).
func checkCode(pc PendingCode, entered string, now time.Time, maxAttempts int) (*PendingCode, error) {
	if !now.Before(pc.ExpiresAt) {
		return nil, ErrCodeExpired
	}
	if pc.Attempts >= maxAttempts {
		return nil, ErrTooManyAttempts
	}
	if subtle.ConstantTimeCompare([]byte(pc.Code), []byte(strings.TrimSpace(entered))) == 1 {
		return nil, nil
	}

	pc.Attempts++
	if pc.Attempts >= maxAttempts {
		return nil, ErrTooManyAttempts
	}
	return &pc, ErrInvalidCode
}

// MemoryCodeStore keeps codes in process memory.
type MemoryCodeStore struct {
	mu    sync.Mutex
	codes map[string]PendingCode
}

func NewMemoryCodeStore() *MemoryCodeStore {
	return &MemoryCodeStore{codes: make(map[string]PendingCode)}
}

func (s *MemoryCodeStore) Put(ctx context.Context, username string, pc PendingCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[strings.ToLower(username)] = pc
	return nil
}

func (s *MemoryCodeStore) Get(ctx context.Context, username string) (PendingCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pc, ok := s.codes[strings.ToLower(username)]
	if !ok {
		return PendingCode{}, ErrInvalidCode
	}
	return pc, nil
}

func (s *MemoryCodeStore) Delete(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, strings.ToLower(username))
	return nil
}

const redisCodePrefix = "memory-match:verify:"

// RedisCodeStore keeps codes in Redis, expiring with the code itself.
type RedisCodeStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedisCodeStore(client redis.UniversalClient) *RedisCodeStore {
	return &RedisCodeStore{client: client, now: time.Now}
}

func (s *RedisCodeStore) Put(ctx context.Context, username string, pc PendingCode) error {
	ttl := pc.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return ErrCodeExpired
	}
	data, err := json.Marshal(pc)
	if err != nil {
		return fmt.Errorf("failed to encode code: %w", err)
	}
	if err := s.client.Set(ctx, redisCodePrefix+strings.ToLower(username), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store code: %w", err)
	}
	return nil
}

func (s *RedisCodeStore) Get(ctx context.Context, username string) (PendingCode, error) {
	data, err := s.client.Get(ctx, redisCodePrefix+strings.ToLower(username)).Bytes()
	if errors.Is(err, redis.Nil) {
		return PendingCode{}, ErrInvalidCode
	}
	if err != nil {
		return PendingCode{}, fmt.Errorf("failed to read code: %w", err)
	}
	var pc PendingCode
	if err := json.Unmarshal(data, &pc); err != nil {
		return PendingCode{}, fmt.Errorf("failed to decode code: %w", err)
	}
	return pc, nil
}

func (s *RedisCodeStore) Delete(ctx context.Context, username string) error {
	if err := s.client.Del(ctx, redisCodePrefix+strings.ToLower(username)).Err(); err != nil {
		return fmt.Errorf("failed to delete code: %w", err)
	}
	return nil
}
