package bus

import (
	"context"
	"sync"

	"github.com/yungbote/earnedvalue-backend/internal/realtime"
)

// Bus fans earned-value events out to every API replica.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}

// localBus delivers in-process only. Used when no redis is configured and in tests.
type localBus struct {
	mu   sync.RWMutex
	subs []func(realtime.SSEMessage)
}

func NewLocalBus() Bus { return &localBus{} }

func (b *localBus) Publish(_ context.Context, msg realtime.SSEMessage) error {
	b.mu.RLock()
	subs := append([]func(realtime.SSEMessage){}, b.subs...)
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(msg)
	}
	return nil
}

func (b *localBus) StartForwarder(_ context.Context, onMsg func(m realtime.SSEMessage)) error {
	if onMsg == nil {
		return errNoCallback
	}
	b.mu.Lock()
	b.subs = append(b.subs, onMsg)
	b.mu.Unlock()
	return nil
}

func (b *localBus) Close() error { return nil }
