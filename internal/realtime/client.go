package realtime

import (
	"github.com/google/uuid"

	"github.com/yungbote/earnedvalue-backend/internal/platform/logger"
)

// SSEClient is one open event stream. A client with no event filter receives
// every event on its channels.
type SSEClient struct {
	ID       uuid.UUID
	ActorID  string
	Channels map[string]bool
	Events   map[SSEEvent]bool
	Outbound chan SSEMessage
	done     chan struct{}
	Logger   *logger.Logger
}

// Only restricts the client to the given events. Unknown names are ignored;
// it returns the events that were accepted.
func (c *SSEClient) Only(events ...SSEEvent) []SSEEvent {
	var accepted []SSEEvent
	for _, ev := range events {
		if !ev.Known() {
			continue
		}
		if c.Events == nil {
			c.Events = make(map[SSEEvent]bool)
		}
		c.Events[ev] = true
		accepted = append(accepted, ev)
	}
	return accepted
}

func (c *SSEClient) wants(ev SSEEvent) bool {
	return len(c.Events) == 0 || c.Events[ev]
}
