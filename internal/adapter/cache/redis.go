// Package cache mirrors CV status snapshots in Redis and publishes lifecycle
// events. Every method degrades to a no-op while Redis is unreachable.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"cv-optimizer/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// Channel receives one JSON Event per applied status transition.
	Channel = "cv.status"

	keyPrefix = "cv:status:"

	// non-terminal snapshots change soon, keep them short-lived
	transientTTL = 5 * time.Second
)

type entry struct {
	Owner        string        `json:"owner"`
	Status       domain.Status `json:"status"`
	ErrorMessage *string       `json:"error_message"`
}

// Event is the payload published on Channel.
type Event struct {
	CVID         uuid.UUID     `json:"cv_id"`
	Owner        string        `json:"owner"`
	Status       domain.Status `json:"status"`
	ErrorMessage *string       `json:"error_message"`
	At           time.Time     `json:"at"`
}

type StatusCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	warnedUnavailable atomic.Bool
}

// NewStatusCache connects to redisURL. An empty URL or a failed ping yields a
// cache that bypasses Redis entirely.
func NewStatusCache(ctx context.Context, redisURL string, ttl time.Duration, logger *slog.Logger) *StatusCache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &StatusCache{ttl: ttl, logger: logger.With("component", "cache"), now: time.Now}
	if redisURL == "" {
		c.logger.Info("redis not configured, status cache disabled")
		return c
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		c.logger.Warn("invalid REDIS_URL, status cache disabled", "error", err)
		return c
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		c.logger.Warn("redis unavailable, bypassing status cache", "error", err)
		_ = client.Close()
		return c
	}
	c.client = client
	return c
}

func Key(id uuid.UUID) string { return keyPrefix + id.String() }

func (c *StatusCache) isUnavailable() bool {
	return c == nil || c.client == nil
}

func (c *StatusCache) warnUnavailableOnce(err error) {
	if c.warnedUnavailable.CompareAndSwap(false, true) {
		c.logger.Warn("redis unavailable, bypassing status cache", "error", err)
	}
}

func (c *StatusCache) GetStatus(ctx context.Context, id uuid.UUID) (*domain.StatusSnapshot, bool) {
	if c.isUnavailable() {
		return nil, false
	}
	b, err := c.client.Get(ctx, Key(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.warnUnavailableOnce(err)
		}
		return nil, false
	}
	var e entry
	if err := json.Unmarshal(b, &e); err != nil {
		c.logger.Warn("dropping unreadable status entry", "cv_id", id, "error", err)
		_ = c.client.Del(ctx, Key(id)).Err()
		return nil, false
	}
	return &domain.StatusSnapshot{ID: id, Owner: e.Owner, Status: e.Status, ErrorMessage: e.ErrorMessage}, true
}

func (c *StatusCache) SetStatus(ctx context.Context, s domain.StatusSnapshot) {
	if c.isUnavailable() {
		return
	}
	b, err := json.Marshal(entry{Owner: s.Owner, Status: s.Status, ErrorMessage: s.ErrorMessage})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, Key(s.ID), b, c.ttlFor(s.Status)).Err(); err != nil {
		c.warnUnavailableOnce(err)
	}
}

func (c *StatusCache) DeleteStatus(ctx context.Context, id uuid.UUID) {
	if c.isUnavailable() {
		return
	}
	if err := c.client.Del(ctx, Key(id)).Err(); err != nil {
		c.warnUnavailableOnce(err)
	}
}

func (c *StatusCache) Publish(ctx context.Context, s domain.StatusSnapshot) {
	if c.isUnavailable() {
		return
	}
	b, err := json.Marshal(Event{CVID: s.ID, Owner: s.Owner, Status: s.Status, ErrorMessage: s.ErrorMessage, At: c.now().UTC()})
	if err != nil {
		return
	}
	if err := c.client.Publish(ctx, Channel, b).Err(); err != nil {
		c.warnUnavailableOnce(err)
	}
}

// Ping reports whether Redis is reachable.
func (c *StatusCache) Ping(ctx context.Context) error {
	if c.isUnavailable() {
		return fmt.Errorf("redis unavailable")
	}
	return c.client.Ping(ctx).Err()
}

func (c *StatusCache) Close() error {
	if c.isUnavailable() {
		return nil
	}
	return c.client.Close()
}

func (c *StatusCache) ttlFor(s domain.Status) time.Duration {
	if s.IsTerminal() {
		return c.ttl
	}
	if c.ttl > 0 && c.ttl < transientTTL {
		return c.ttl
	}
	return transientTTL
}
