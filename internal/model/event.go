// internal/model/event.go
package model

import "time"

type EventStatus string

const (
	EventPublished   EventStatus = "published"
	EventUnpublished EventStatus = "unpublished" // recipient not subscribed
)

// Event is one audit-log row, appended after every delivery attempt.
type Event struct {
	ID          string      `db:"id" json:"id"` // ULID
	ContactID   int         `db:"contact_id" json:"contact_id"`
	ItemID      int         `db:"item_id" json:"item_id"`
	Destination string      `db:"destination" json:"destination"` // address the send targeted
	Status      EventStatus `db:"status" json:"status"`
	Action      string      `db:"action" json:"action"` // e.g. "send", "post"
	Payload     string      `db:"payload" json:"payload"`
	Channel     Channel     `db:"channel" json:"channel"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}
