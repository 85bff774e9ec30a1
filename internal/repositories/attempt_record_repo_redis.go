package repositories

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/BradenHooton/portfolio-gate/internal/models"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport failures from the redis backend
var ErrRedisUnavailable = errors.New("redis unavailable")

const (
	fieldAttemptCount  = "attempt_count"
	fieldLastAttemptAt = "last_attempt_at"
	fieldLockedUntil   = "locked_until"
)

// RedisAttemptRecordRepository stores each attempt record as a hash.
// Keys expire once idle so stale addresses age out without a sweep.
type RedisAttemptRecordRepository struct {
	redis     redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// NewRedisAttemptRecordRepository creates a repository backed by the given client
func NewRedisAttemptRecordRepository(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *RedisAttemptRecordRepository {
	return &RedisAttemptRecordRepository{
		redis:     client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

func (r *RedisAttemptRecordRepository) key(clientAddress string) string {
	return r.keyPrefix + clientAddress
}

// Get returns the record for an address or models.ErrNotFound
func (r *RedisAttemptRecordRepository) Get(ctx context.Context, clientAddress string) (*models.AttemptRecord, error) {
	fields, err := r.redis.HGetAll(ctx, r.key(clientAddress)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, models.ErrNotFound
	}

	count, err := strconv.Atoi(fields[fieldAttemptCount])
	if err != nil {
		return nil, fmt.Errorf("corrupt attempt record %q: %w", clientAddress, err)
	}
	last, err := strconv.ParseInt(fields[fieldLastAttemptAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt attempt record %q: %w", clientAddress, err)
	}

	rec := &models.AttemptRecord{
		ClientAddress: clientAddress,
		AttemptCount:  count,
		LastAttemptAt: time.Unix(0, last).UTC(),
	}

	if raw := fields[fieldLockedUntil]; raw != "" && raw != "0" {
		locked, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt attempt record %q: %w", clientAddress, err)
		}
		lockedUntil := time.Unix(0, locked).UTC()
		rec.LockedUntil = &lockedUntil
	}

	return rec, nil
}

// Upsert writes the whole record and refreshes its expiry
func (r *RedisAttemptRecordRepository) Upsert(ctx context.Context, rec *models.AttemptRecord) error {
	var lockedUntil int64
	if rec.LockedUntil != nil {
		lockedUntil = rec.LockedUntil.UnixNano()
	}

	key := r.key(rec.ClientAddress)
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldAttemptCount, rec.AttemptCount,
			fieldLastAttemptAt, rec.LastAttemptAt.UnixNano(),
			fieldLockedUntil, lockedUntil,
		)
		pipe.Expire(ctx, key, r.expiryFor(rec))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// expiryFor keeps a locked record alive at least until its lock ends
func (r *RedisAttemptRecordRepository) expiryFor(rec *models.AttemptRecord) time.Duration {
	ttl := r.ttl
	if rec.LockedUntil != nil {
		if lockTTL := rec.LockedUntil.Sub(rec.LastAttemptAt) + r.ttl; lockTTL > ttl {
			ttl = lockTTL
		}
	}
	return ttl
}

// Delete removes the record for an address; deleting a missing record is not an error
func (r *RedisAttemptRecordRepository) Delete(ctx context.Context, clientAddress string) error {
	if err := r.redis.Del(ctx, r.key(clientAddress)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Ping checks the redis server is reachable
func (r *RedisAttemptRecordRepository) Ping(ctx context.Context) error {
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
