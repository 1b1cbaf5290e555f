package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeEntryCreated     Type = "entry.created"
	TypeEntryUpdated     Type = "entry.updated"
	TypeEntryHidden      Type = "entry.hidden"
	TypeEntryUnhidden    Type = "entry.unhidden"
	TypeEntryTrashed     Type = "entry.trashed"
	TypeEntryRestored    Type = "entry.restored"
	TypeEntryMarked      Type = "entry.marked"
	TypeEntryPurged      Type = "entry.purged"
	TypeImageDeleted     Type = "image.deleted"
	TypeTaskEnqueued     Type = "task.enqueued"
	TypeTaskFailed       Type = "task.failed"
	TypeImageUnreachable Type = "image.unreachable"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
	ActorID   string `json:"actor_id,omitempty"`
}

// EntryPayload identifies the entry a lifecycle event is about.
type EntryPayload struct {
	EntryID uuid.UUID `json:"entry_id"`
	OwnerID uuid.UUID `json:"owner_id"`
}

type ImagePayload struct {
	ImageID int64     `json:"image_id"`
	EntryID uuid.UUID `json:"entry_id"`
}

func New(t Type, payload any, actor *uuid.UUID) Event {
	e := Event{
		ID:        uuid.NewString(),
		Type:      t,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if actor != nil {
		e.ActorID = actor.String()
	}
	return e
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func())
}
