// internal/repository/scheduled_dispatch_repository.go
package repository

import (
	"database/sql"
	"time"

	"github.com/relaycrm/dispatch-backend/internal/model"
)

type ScheduledDispatchRepositoryInterface interface {
	Create(d *model.ScheduledDispatch) error
	GetByID(id int) (*model.ScheduledDispatch, error)
	DueBetween(from, to time.Time) ([]model.ScheduledDispatch, error)
	MarkProcessing(id int) (bool, error)
	MarkPublished(id int) error
}

type ScheduledDispatchRepository struct {
	DB *sql.DB
}

func (r *ScheduledDispatchRepository) Create(d *model.ScheduledDispatch) error {
	d.CreatedAt = time.Now()
	if d.Status == "" {
		d.Status = model.ScheduleStatusScheduled
	}
	query := `
        INSERT INTO scheduled_dispatches (composition_id, channel, recipient, target_type, identity_id, subject, publish_date, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id
    `
	return r.DB.QueryRow(query, d.CompositionID, d.Channel, d.To, d.Type,
		d.IdentityID, d.Subject, d.PublishDate, d.Status, d.CreatedAt).Scan(&d.ID)
}

func (r *ScheduledDispatchRepository) GetByID(id int) (*model.ScheduledDispatch, error) {
	query := `
        SELECT id, composition_id, channel, recipient, target_type, identity_id, subject, publish_date, status, created_at
        FROM scheduled_dispatches WHERE id=$1
    `
	var d model.ScheduledDispatch
	err := r.DB.QueryRow(query, id).Scan(&d.ID, &d.CompositionID, &d.Channel, &d.To, &d.Type,
		&d.IdentityID, &d.Subject, &d.PublishDate, &d.Status, &d.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

// DueBetween selects dispatches still in "scheduled" whose publish date falls
// inside the lookahead window.
func (r *ScheduledDispatchRepository) DueBetween(from, to time.Time) ([]model.ScheduledDispatch, error) {
	query := `
        SELECT id, composition_id, channel, recipient, target_type, identity_id, subject, publish_date, status, created_at
        FROM scheduled_dispatches
        WHERE status='scheduled' AND publish_date >= $1 AND publish_date < $2
        ORDER BY publish_date
    `
	rows, err := r.DB.Query(query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	due := []model.ScheduledDispatch{}
	for rows.Next() {
		var d model.ScheduledDispatch
		if err := rows.Scan(&d.ID, &d.CompositionID, &d.Channel, &d.To, &d.Type,
			&d.IdentityID, &d.Subject, &d.PublishDate, &d.Status, &d.CreatedAt); err != nil {
			return nil, err
		}
		due = append(due, d)
	}
	return due, rows.Err()
}

// MarkProcessing flips scheduled→processing and reports whether this call won
// the flip. The WHERE guard keeps an overlapping tick from re-queueing the
// same dispatch.
func (r *ScheduledDispatchRepository) MarkProcessing(id int) (bool, error) {
	res, err := r.DB.Exec(
		`UPDATE scheduled_dispatches SET status='processing' WHERE id=$1 AND status='scheduled'`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *ScheduledDispatchRepository) MarkPublished(id int) error {
	_, err := r.DB.Exec(`UPDATE scheduled_dispatches SET status='published' WHERE id=$1`, id)
	return err
}

var _ ScheduledDispatchRepositoryInterface = (*ScheduledDispatchRepository)(nil)
