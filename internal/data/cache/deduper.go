package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/earnedvalue-backend/internal/platform/logger"
)

// Deduper remembers handled message ids for ttl so redelivered broker
// messages are processed once.
type Deduper struct {
	rdb *redis.Client
	ttl time.Duration
	log *logger.Logger
}

func NewDeduper(rdb *redis.Client, ttl time.Duration, baseLog *logger.Logger) *Deduper {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &Deduper{rdb: rdb, ttl: ttl, log: baseLog.With("cache", "Deduper")}
}

// AcquireOnce reports whether this is the first time handler sees id.
// A nil Deduper, or an unreachable redis, lets every message through.
func (d *Deduper) AcquireOnce(ctx context.Context, handler, id string) bool {
	if d == nil || d.rdb == nil || id == "" {
		return true
	}
	key := fmt.Sprintf("ev:dedup:%s:%s", handler, id)
	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		d.log.Warn("redis dedup check failed, allowing processing", "handler", handler, "message_id", id, "error", err)
		return true
	}
	if !ok {
		d.log.Info("skipped duplicated message", "handler", handler, "message_id", id)
	}
	return ok
}

// Release forgets id so a failed message can be retried.
func (d *Deduper) Release(ctx context.Context, handler, id string) {
	if d == nil || d.rdb == nil || id == "" {
		return
	}
	_ = d.rdb.Del(ctx, fmt.Sprintf("ev:dedup:%s:%s", handler, id)).Err()
}
