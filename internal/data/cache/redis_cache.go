package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/yungbote/earnedvalue-backend/internal/platform/logger"
)

type redisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	log    *logger.Logger
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration, baseLog *logger.Logger) ReportCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &redisCache{
		rdb:    rdb,
		ttl:    ttl,
		prefix: "ev:report",
		log:    baseLog.With("cache", "RedisReportCache"),
	}
}

func (c *redisCache) genKey(projectID uuid.UUID) string {
	return fmt.Sprintf("%s:gen:%s", c.prefix, projectID)
}

func (c *redisCache) viewKey(projectID uuid.UUID, gen int64, view string) string {
	return fmt.Sprintf("%s:%s:g%d:%s", c.prefix, projectID, gen, view)
}

func (c *redisCache) generation(ctx context.Context, projectID uuid.UUID) (int64, error) {
	gen, err := c.rdb.Get(ctx, c.genKey(projectID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *redisCache) Get(ctx context.Context, projectID uuid.UUID, view string, dst any) (bool, error) {
	gen, err := c.generation(ctx, projectID)
	if err != nil {
		return false, err
	}
	raw, err := c.rdb.Get(ctx, c.viewKey(projectID, gen, view)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.log.Warn("dropping undecodable report cache entry", "project_id", projectID, "view", view, "error", err)
		return false, nil
	}
	return true, nil
}

func (c *redisCache) Set(ctx context.Context, projectID uuid.UUID, view string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	gen, err := c.generation(ctx, projectID)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.viewKey(projectID, gen, view), raw, c.ttl).Err()
}

func (c *redisCache) InvalidateProject(ctx context.Context, projectID uuid.UUID) error {
	return c.rdb.Incr(ctx, c.genKey(projectID)).Err()
}
