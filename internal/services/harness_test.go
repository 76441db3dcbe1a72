package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yungbote/earnedvalue-backend/internal/data/aggregates"
	"github.com/yungbote/earnedvalue-backend/internal/data/repos"
	repotest "github.com/yungbote/earnedvalue-backend/internal/data/repos/testutil"
	"github.com/yungbote/earnedvalue-backend/internal/modules/earnedvalue"
	"github.com/yungbote/earnedvalue-backend/internal/platform/dbctx"
	"github.com/yungbote/earnedvalue-backend/internal/realtime"
	"github.com/yungbote/earnedvalue-backend/internal/realtime/bus"
)

// memCache is a map-backed ReportCache that counts invalidations.
type memCache struct {
	mu          sync.Mutex
	entries     map[string][]byte
	invalidated map[uuid.UUID]int
	hits        int
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}, invalidated: map[uuid.UUID]int{}}
}

func (c *memCache) key(projectID uuid.UUID, view string) string {
	return projectID.String() + "|" + view
}

func (c *memCache) Get(_ context.Context, projectID uuid.UUID, view string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[c.key(projectID, view)]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(raw, dst)
}

func (c *memCache) Set(_ context.Context, projectID uuid.UUID, view string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.entries[c.key(projectID, view)] = raw
	c.mu.Unlock()
	return nil
}

func (c *memCache) InvalidateProject(_ context.Context, projectID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := projectID.String() + "|"
	for k := range c.entries {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			delete(c.entries, k)
		}
	}
	c.invalidated[projectID]++
	return nil
}

func (c *memCache) invalidations(projectID uuid.UUID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidated[projectID]
}

// eventLog captures everything published on the local bus.
type eventLog struct {
	mu   sync.Mutex
	msgs []realtime.SSEMessage
}

func (l *eventLog) add(m realtime.SSEMessage) {
	l.mu.Lock()
	l.msgs = append(l.msgs, m)
	l.mu.Unlock()
}

func (l *eventLog) events() []realtime.SSEEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]realtime.SSEEvent, 0, len(l.msgs))
	for _, m := range l.msgs {
		out = append(out, m.Event)
	}
	return out
}

func (l *eventLog) last() realtime.SSEMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.msgs) == 0 {
		return realtime.SSEMessage{}
	}
	return l.msgs[len(l.msgs)-1]
}

type serviceHarness struct {
	ctx   context.Context
	db    *gorm.DB
	repos repos.Set
	cache *memCache
	log   *eventLog

	budgets    BudgetService
	components ComponentService
	reports    ReportService
	templates  TemplateService
}

func newServiceHarness(t *testing.T) *serviceHarness {
	t.Helper()
	db := repotest.DB(t)
	log := repotest.Logger(t)
	set := repos.NewSet(db, log)
	base := aggregates.BaseDeps{DB: db, Log: log}

	mc := newMemCache()
	events := &eventLog{}
	b := bus.NewLocalBus()
	if err := b.StartForwarder(context.Background(), events.add); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}
	notifier := NewChangeNotifier(log, mc, b)

	budgetAgg := aggregates.NewBudgetAggregate(aggregates.BudgetAggregateDeps{
		Base:        base,
		Budgets:     set.Budgets,
		Allocations: set.Allocations,
		Components:  set.Components,
		Templates:   set.Templates,
		Policy:      earnedvalue.DefaultWeightPolicy(),
	})
	evAgg := aggregates.NewEarnedValueAggregate(aggregates.EarnedValueAggregateDeps{
		Base:        base,
		Components:  set.Components,
		Templates:   set.Templates,
		Budgets:     set.Budgets,
		Allocations: set.Allocations,
	})
	tplAgg := aggregates.NewTemplateAggregate(aggregates.TemplateAggregateDeps{
		Base:      base,
		Templates: set.Templates,
	})

	return &serviceHarness{
		ctx:        context.Background(),
		db:         db,
		repos:      set,
		cache:      mc,
		log:        events,
		budgets:    NewBudgetService(db, log, set.Budgets, budgetAgg, notifier),
		components: NewComponentService(db, log, set, evAgg, notifier),
		reports:    NewReportService(db, log, set.Budgets, set.Allocations, mc),
		templates:  NewTemplateService(db, log, set.Templates, tplAgg, notifier),
	}
}

func (h *serviceHarness) dbc() dbctx.Context {
	return dbctx.Context{Ctx: h.ctx}
}

func wantDec(t *testing.T, label string, want string, got decimal.Decimal) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("%s: want=%s got=%s", label, want, got.String())
	}
}
