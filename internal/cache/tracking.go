// Package cache holds the Redis-backed read models of the public order
// tracking page: the order view itself and the courier's last position.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PositionTTL bounds how long a courier position is shown after the last
// update. Deliveries rarely take longer.
const PositionTTL = 2 * time.Hour

// KV is the part of *redis.Client the cache uses.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Position is a courier location report.
type Position struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	RecordedAt time.Time `json:"recorded_at"`
}

// TrackingCache stores tracking views for ttl and positions for PositionTTL.
type TrackingCache struct {
	kv  KV
	ttl time.Duration
	log *zap.Logger
}

func NewTrackingCache(kv KV, ttl time.Duration, log *zap.Logger) *TrackingCache {
	return &TrackingCache{kv: kv, ttl: ttl, log: log}
}

func trackingKey(orderID uuid.UUID) string { return "comanda:tracking:" + orderID.String() }
func positionKey(orderID uuid.UUID) string { return "comanda:position:" + orderID.String() }

// Get decodes the cached view into dst. It reports false on a miss.
func (c *TrackingCache) Get(ctx context.Context, orderID uuid.UUID, dst any) (bool, error) {
	data, err := c.kv.Get(ctx, trackingKey(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get tracking: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		// A corrupt entry is treated as a miss and overwritten on the next Set.
		c.log.Warn("discarding undecodable tracking entry", zap.String("order_id", orderID.String()), zap.Error(err))
		return false, nil
	}
	return true, nil
}

func (c *TrackingCache) Set(ctx context.Context, orderID uuid.UUID, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal tracking: %w", err)
	}
	if err := c.kv.Set(ctx, trackingKey(orderID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set tracking: %w", err)
	}
	return nil
}

func (c *TrackingCache) Invalidate(ctx context.Context, orderID uuid.UUID) error {
	if err := c.kv.Del(ctx, trackingKey(orderID)).Err(); err != nil {
		return fmt.Errorf("invalidate tracking: %w", err)
	}
	return nil
}

func (c *TrackingCache) SetPosition(ctx context.Context, orderID uuid.UUID, pos Position) error {
	data, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("marshal position: %w", err)
	}
	if err := c.kv.Set(ctx, positionKey(orderID), data, PositionTTL).Err(); err != nil {
		return fmt.Errorf("set position: %w", err)
	}
	return nil
}

// Position returns the last reported position, or nil when none is stored.
func (c *TrackingCache) Position(ctx context.Context, orderID uuid.UUID) (*Position, error) {
	data, err := c.kv.Get(ctx, positionKey(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get position: %w", err)
	}
	var pos Position
	if err := json.Unmarshal(data, &pos); err != nil {
		return nil, fmt.Errorf("decode position: %w", err)
	}
	return &pos, nil
}
