// internal/repository/event_repository.go
package repository

import (
	"database/sql"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/relaycrm/dispatch-backend/internal/model"
)

type EventRepositoryInterface interface {
	Append(e *model.Event) error
}

type EventRepository struct {
	DB *sql.DB
}

// Append writes one audit row. The ULID is assigned here so callers can log it.
func (r *EventRepository) Append(e *model.Event) error {
	if e.ID == "" {
		e.ID = NewULID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	query := `
        INSERT INTO events (id, contact_id, item_id, destination, status, action, payload, channel, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	_, err := r.DB.Exec(query, e.ID, e.ContactID, e.ItemID, e.Destination,
		e.Status, e.Action, e.Payload, e.Channel, e.CreatedAt)
	return err
}

// NewULID returns a lexicographically sortable id for events and jobs.
func NewULID() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

var _ EventRepositoryInterface = (*EventRepository)(nil)
