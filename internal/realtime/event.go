package realtime

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventRoutineGenerated EventType = "routine.generated"
	EventRoutineAdjusted  EventType = "routine.adjusted"
	EventPlanChanged      EventType = "profile.plan_changed"
	EventQuotaRegistered  EventType = "quota.registered"
)

// Event is the payload published on the bus after a write commits.
type Event struct {
	Type       EventType      `json:"type"`
	UserID     uuid.UUID      `json:"user_id"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

func NewEvent(t EventType, userID uuid.UUID, data map[string]any) Event {
	return Event{Type: t, UserID: userID, Data: data, OccurredAt: time.Now().UTC()}
}
