package repository

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/noah-isme/hazmat-api/pkg/errors"
)

// CodeRepository keeps emailed one-time login codes in Redis.
type CodeRepository struct {
	client *redis.Client
	prefix string
}

type storedCode struct {
	Hash     string `json:"hash"`
	Attempts int    `json:"attempts"`
}

// NewCodeRepository constructs the repository.
func NewCodeRepository(client *redis.Client) *CodeRepository {
	return &CodeRepository{client: client, prefix: "auth:code:"}
}

func (r *CodeRepository) key(email string) string {
	return r.prefix + strings.ToLower(strings.TrimSpace(email))
}

// Save stores a hash of code for email, replacing any previous code.
func (r *CodeRepository) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client not configured")
	}
	payload, err := json.Marshal(storedCode{Hash: hashCode(code)})
	if err != nil {
		return fmt.Errorf("marshal login code: %w", err)
	}
	if err := r.client.Set(ctx, r.key(email), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set login code: %w", err)
	}
	return nil
}

// Verify consumes the code on success. Wrong guesses count against maxAttempts,
// after which the code is discarded.
func (r *CodeRepository) Verify(ctx context.Context, email, code string, maxAttempts int) error {
	if r.client == nil {
		return appErrors.ErrInvalidCode
	}
	key := r.key(email)
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return appErrors.ErrInvalidCode
		}
		return fmt.Errorf("redis get login code: %w", err)
	}

	var stored storedCode
	if err := json.Unmarshal(raw, &stored); err != nil {
		return fmt.Errorf("unmarshal login code: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored.Hash), []byte(hashCode(code))) == 1 {
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis delete login code: %w", err)
		}
		return nil
	}

	stored.Attempts++
	if maxAttempts > 0 && stored.Attempts >= maxAttempts {
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis delete login code: %w", err)
		}
		return appErrors.ErrTooManyAttempts
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal login code: %w", err)
	}
	if err := r.client.Set(ctx, key, payload, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("redis update login code: %w", err)
	}
	return appErrors.ErrInvalidCode
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(code)))
	return hex.EncodeToString(sum[:])
}
