package kafka

import (
	"time"

	"github.com/google/uuid"

	"ms-events/internal/models"
)

const (
	TypeCreated = "created"
	TypeUpdated = "updated"
	TypeDeleted = "deleted"
)

// LifecycleMessage is published after every successful write to an event.
type LifecycleMessage struct {
	MessageID  string        `json:"message_id"`
	Type       string        `json:"type"`
	EventID    int64         `json:"event_id"`
	Event      *models.Event `json:"event,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

func NewLifecycleMessage(typ string, eventID int64, event *models.Event, now time.Time) LifecycleMessage {
	return LifecycleMessage{
		MessageID:  uuid.NewString(),
		Type:       typ,
		EventID:    eventID,
		Event:      event,
		OccurredAt: now.UTC(),
	}
}

// TopicSet names the lifecycle topics, one per message type.
type TopicSet struct {
	Created string
	Updated string
	Deleted string
}

func Topics(prefix string) TopicSet {
	if prefix != "" {
		prefix += "."
	}
	return TopicSet{
		Created: prefix + "events.created",
		Updated: prefix + "events.updated",
		Deleted: prefix + "events.deleted",
	}
}

func (t TopicSet) All() []string {
	return []string{t.Created, t.Updated, t.Deleted}
}

func (t TopicSet) For(typ string) string {
	switch typ {
	case TypeCreated:
		return t.Created
	case TypeUpdated:
		return t.Updated
	default:
		return t.Deleted
	}
}
