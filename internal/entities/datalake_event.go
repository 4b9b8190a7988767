package entities

import (
	"time"

	"github.com/google/uuid"
)

// DatalakeEvent is the raw copy of every event published on the "events" topic.
type DatalakeEvent struct {
	ID          uuid.UUID `db:"event_id"`
	PublishedAt time.Time `db:"published_at"`
	EventName   string    `db:"event_name"`
	Payload     []byte    `db:"event_payload"`
}
