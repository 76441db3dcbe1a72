package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/earnedvalue-backend/internal/platform/logger"
	"github.com/yungbote/earnedvalue-backend/internal/realtime"
)

var errNoCallback = errors.New("onMsg callback required")

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Channel is the key prefix for per-project pub/sub channels.
	Channel string
}

const publishTimeout = 2 * time.Second

type redisBus struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
}

func NewRedisBus(log *logger.Logger, cfg RedisConfig) (Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	ch := strings.TrimSpace(cfg.Channel)
	if ch == "" {
		ch = "earned_value"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedisBus(log, rdb, ch), nil
}

func newRedisBus(log *logger.Logger, rdb *goredis.Client, prefix string) *redisBus {
	return &redisBus{
		log:    log.With("component", "realtime_bus", "prefix", prefix),
		rdb:    rdb,
		prefix: prefix,
	}
}

// redisChannel scopes each hub channel ("project:<id>") under the bus prefix
// so one replica can subscribe to every project with a single pattern.
func redisChannel(prefix, channel string) string {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = "all"
	}
	return prefix + ":" + channel
}

// decodeEvent parses a payload received from redis. Events this build does
// not know about are rejected so an older replica never forwards them to
// clients during a rolling deploy.
func decodeEvent(payload string) (realtime.SSEMessage, error) {
	var msg realtime.SSEMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return msg, err
	}
	if !msg.Event.Known() {
		return msg, fmt.Errorf("unknown event %q", msg.Event)
	}
	if strings.TrimSpace(msg.Channel) == "" {
		return msg, errors.New("missing channel")
	}
	return msg, nil
}

func (b *redisBus) Publish(ctx context.Context, msg realtime.SSEMessage) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis event bus not initialized")
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return b.rdb.Publish(pctx, redisChannel(b.prefix, msg.Channel), raw).Err()
}

func (b *redisBus) StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis event bus not initialized")
	}
	if onMsg == nil {
		return errNoCallback
	}

	sub := b.rdb.PSubscribe(ctx, b.prefix+":*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}
	b.log.Info("event forwarder started")

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					b.log.Warn("event forwarder subscription closed")
					return
				}
				msg, err := decodeEvent(m.Payload)
				if err != nil {
					b.log.Warn("dropping redis event", "redis_channel", m.Channel, "error", err)
					continue
				}
				onMsg(msg)
			}
		}
	}()
	return nil
}

func (b *redisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
