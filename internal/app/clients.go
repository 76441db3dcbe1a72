package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/earnedvalue-backend/internal/config"
	"github.com/yungbote/earnedvalue-backend/internal/data/cache"
	"github.com/yungbote/earnedvalue-backend/internal/platform/logger"
	"github.com/yungbote/earnedvalue-backend/internal/realtime/bus"
)

// Clients holds the optional infrastructure. Without REDIS_ADDR the report
// cache is a no-op, the change bus is in-process and dedup is disabled.
type Clients struct {
	Redis   *goredis.Client
	Bus     bus.Bus
	Cache   cache.ReportCache
	Deduper *cache.Deduper
}

func wireClients(log *logger.Logger, cfg *config.Config) (Clients, error) {
	log.Info("Wiring clients...")

	addr := strings.TrimSpace(cfg.Redis.Addr)
	if addr == "" {
		log.Info("redis not configured; using in-process bus and no report cache")
		return Clients{Bus: bus.NewLocalBus(), Cache: cache.NewNoop()}, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return Clients{}, fmt.Errorf("redis ping: %w", err)
	}

	b, err := bus.NewRedisBus(log, bus.RedisConfig{
		Addr:     addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Channel:  cfg.Redis.Channel,
	})
	if err != nil {
		_ = rdb.Close()
		return Clients{}, fmt.Errorf("init redis bus: %w", err)
	}

	return Clients{
		Redis:   rdb,
		Bus:     b,
		Cache:   cache.NewRedisCache(rdb, cfg.EarnedValue.ReportCacheTTL, log),
		Deduper: cache.NewDeduper(rdb, cfg.MQ.DedupTTL, log),
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
