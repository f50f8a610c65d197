// internal/store/cache.go
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"cites-permits/internal/common/logger"
	"cites-permits/internal/models"
	"cites-permits/internal/outbox"
)

const cacheKeyPrefix = "application:"

// CachedStore is a read-through Redis decorator. The cache only serves
// Get; listings always hit Postgres. Cache failures degrade to the
// inner store and never fail a request.
type CachedStore struct {
	inner  ApplicationStore
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedStore(inner ApplicationStore, client *redis.Client, ttl time.Duration, log logger.Logger) *CachedStore {
	return &CachedStore{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "cached-store"}),
	}
}

func (c *CachedStore) Create(ctx context.Context, app *models.Application, msgs ...outbox.Message) error {
	if err := c.inner.Create(ctx, app, msgs...); err != nil {
		return err
	}
	c.put(ctx, app)
	return nil
}

func (c *CachedStore) Get(ctx context.Context, id string) (*models.Application, error) {
	raw, err := c.client.Get(ctx, cacheKeyPrefix+id).Result()
	if err == nil {
		var app models.Application
		if err := json.Unmarshal([]byte(raw), &app); err == nil {
			return &app, nil
		}
		// Unreadable entry, fall through and overwrite it.
		c.client.Del(ctx, cacheKeyPrefix+id)
	} else if err != redis.Nil {
		c.logger.Warn("cache read failed", map[string]interface{}{
			"error":         err,
			"applicationId": id,
		})
	}

	app, err := c.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.put(ctx, app)
	return app, nil
}

func (c *CachedStore) List(ctx context.Context, filter Filter, page, pageSize int) (*Page, error) {
	return c.inner.List(ctx, filter, page, pageSize)
}

func (c *CachedStore) UpdateStatus(ctx context.Context, id string, newStatus models.Status, notes string) (*models.Application, error) {
	app, err := c.inner.UpdateStatus(ctx, id, newStatus, notes)
	if err != nil {
		// The record may have changed under a conflict, drop the entry.
		c.client.Del(ctx, cacheKeyPrefix+id)
		return nil, err
	}
	c.put(ctx, app)
	return app, nil
}

func (c *CachedStore) put(ctx context.Context, app *models.Application) {
	raw, err := json.Marshal(app)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+app.ID, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", map[string]interface{}{
			"error":         err,
			"applicationId": app.ID,
		})
	}
}
