package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ReportCache stores derived report views per project. Entries are never
// updated in place: invalidation bumps a per-project generation so every key
// written before it becomes unreachable and expires on its own.
type ReportCache interface {
	Get(ctx context.Context, projectID uuid.UUID, view string, dst any) (bool, error)
	Set(ctx context.Context, projectID uuid.UUID, view string, v any) error
	InvalidateProject(ctx context.Context, projectID uuid.UUID) error
}

type noopCache struct{}

// NewNoop returns a cache that never hits.
func NewNoop() ReportCache { return noopCache{} }

func (noopCache) Get(context.Context, uuid.UUID, string, any) (bool, error) { return false, nil }
func (noopCache) Set(context.Context, uuid.UUID, string, any) error         { return nil }
func (noopCache) InvalidateProject(context.Context, uuid.UUID) error        { return nil }

const defaultTTL = 30 * time.Second
