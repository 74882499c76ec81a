// Package store provides RoomStore backends: Redis for deployments and an
// in-memory implementation for tests and single-node local runs.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/vardhanngg/vibron-socket/internal/domain"
)

const defaultOpTimeout = 2 * time.Second

// Redis keeps each room as one JSON value under prefix+roomID, expiring via
// the key TTL. SET on every Put is what refreshes the window.
type Redis struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

func NewRedis(client *redis.Client, prefix string, timeout time.Duration) *Redis {
	if prefix == "" {
		prefix = "room:"
	}
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return &Redis{client: client, prefix: prefix, timeout: timeout}
}

// Ping verifies the backend is reachable. The process cannot serve without
// the store, so the caller treats a failure here as fatal.
func (r *Redis) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *Redis) key(id domain.RoomID) string { return r.prefix + string(id) }

func (r *Redis) Get(ctx context.Context, id domain.RoomID) (*domain.RoomState, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	raw, err := r.client.Get(ctx, r.key(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, fmt.Errorf("%w: get %s: %v", domain.ErrStoreUnavailable, id, err)
	}
	var state domain.RoomState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		// A corrupt record is as unusable as a missing backend.
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrStoreUnavailable, id, err)
	}
	return &state, nil
}

func (r *Redis) Put(ctx context.Context, id domain.RoomID, state *domain.RoomState, ttl time.Duration) error {
	b, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", domain.ErrStoreUnavailable, id, err)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.client.Set(ctx, r.key(id), b, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", domain.ErrStoreUnavailable, id, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, id domain.RoomID) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("%w: del %s: %v", domain.ErrStoreUnavailable, id, err)
	}
	return nil
}

// Keys scans for every room key under the prefix. SCAN over KEYS so a large
// keyspace never blocks the backend.
func (r *Redis) Keys(ctx context.Context) ([]domain.RoomID, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	var (
		out    []domain.RoomID
		cursor uint64
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: scan: %v", domain.ErrStoreUnavailable, err)
		}
		for _, k := range keys {
			id := k[len(r.prefix):]
			if _, err := domain.ParseRoomID(id); err != nil {
				log.Warn().Str("module", "store.redis").Str("key", k).Msg("skipping foreign key under room prefix")
				continue
			}
			out = append(out, domain.RoomID(id))
		}
		cursor = next
		if cursor == 0 {
			return out, nil
		}
	}
}
