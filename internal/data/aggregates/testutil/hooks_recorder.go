package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/earnedvalue-backend/internal/data/aggregates"
)

// HooksRecorder captures aggregate hook signals in tests.
type HooksRecorder struct {
	mu sync.Mutex

	Operations    []OperationEvent
	Conflicts     []string
	Retries       []string
	Distributions []DistributionEvent
	Recalcs       []string
}

type OperationEvent struct {
	Name     string
	Status   string
	Duration time.Duration
}

type DistributionEvent struct {
	Components int
	Warnings   int
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) ObserveOperation(name, status string, dur time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Operations = append(h.Operations, OperationEvent{
		Name:     name,
		Status:   status,
		Duration: dur,
	})
}

func (h *HooksRecorder) IncConflict(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Conflicts = append(h.Conflicts, name)
}

func (h *HooksRecorder) IncRetry(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Retries = append(h.Retries, name)
}

func (h *HooksRecorder) ObserveDistribution(components, warnings int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Distributions = append(h.Distributions, DistributionEvent{Components: components, Warnings: warnings})
}

func (h *HooksRecorder) ObserveRecalc(status string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Recalcs = append(h.Recalcs, status)
}

// LastStatus returns the status of the most recent operation named op.
func (h *HooksRecorder) LastStatus(op string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.Operations) - 1; i >= 0; i-- {
		if h.Operations[i].Name == op {
			return h.Operations[i].Status
		}
	}
	return ""
}
