package milestones

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
)

const (
	ExchangeName    = "events"
	DLQExchangeName = "events.dlq"

	// RoutingKey is published by the field-update collaborator whenever a
	// component's milestones change upstream.
	RoutingKey = "component.milestones.changed"
)

type Mode string

const (
	ModeMerge   Mode = "merge"
	ModeReplace Mode = "replace"
)

// ChangedEvent is the body of a component.milestones.changed message.
type ChangedEvent struct {
	EventID     string                  `json:"event_id"`
	ComponentID uuid.UUID               `json:"component_id"`
	Mode        Mode                    `json:"mode,omitempty"`
	Milestones  progress.MilestoneState `json:"milestones"`
	Actor       string                  `json:"actor,omitempty"`
	OccurredAt  time.Time               `json:"occurred_at"`
}

// DecodeChangedEvent parses and checks a message body. An empty mode means merge.
func DecodeChangedEvent(body []byte) (ChangedEvent, error) {
	var ev ChangedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, fmt.Errorf("decode %s: %w", RoutingKey, err)
	}
	ev.EventID = strings.TrimSpace(ev.EventID)
	if ev.ComponentID == uuid.Nil {
		return ev, fmt.Errorf("decode %s: missing component_id", RoutingKey)
	}
	switch ev.Mode {
	case "":
		ev.Mode = ModeMerge
	case ModeMerge, ModeReplace:
	default:
		return ev, fmt.Errorf("decode %s: unknown mode %q", RoutingKey, ev.Mode)
	}
	return ev, nil
}
