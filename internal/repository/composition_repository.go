// internal/repository/composition_repository.go
package repository

import (
	"database/sql"
	"time"

	appErrors "github.com/relaycrm/dispatch-backend/internal/errors"
	"github.com/relaycrm/dispatch-backend/internal/model"
)

type CompositionRepositoryInterface interface {
	GetByID(id int) (*model.Composition, error)
	UpdateStatus(id int, status model.CompositionStatus) error

	GetItem(compositionID int, channel model.Channel) (*model.CompositionItem, error)
	ListItems(compositionID int) ([]model.CompositionItem, error)
	UpdateItemStatus(itemID int, status model.ItemStatus) error

	GetTextBlocks() (map[string]string, error)
}

type CompositionRepository struct {
	DB *sql.DB
}

func (r *CompositionRepository) GetByID(id int) (*model.Composition, error) {
	query := `
        SELECT id, name, language, persona, model, body, status, created_at, updated_at
        FROM compositions WHERE id=$1
    `
	var c model.Composition
	err := r.DB.QueryRow(query, id).Scan(&c.ID, &c.Name, &c.Language, &c.Persona,
		&c.Model, &c.Body, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewValidation("composition with ID %d not found", id)
		}
		return nil, err
	}
	return &c, nil
}

func (r *CompositionRepository) UpdateStatus(id int, status model.CompositionStatus) error {
	_, err := r.DB.Exec(`UPDATE compositions SET status=$1, updated_at=$2 WHERE id=$3`, status, time.Now(), id)
	return err
}

// GetItem fetches the per-channel item. The channel is unique within its
// composition, so at most one row matches.
func (r *CompositionRepository) GetItem(compositionID int, channel model.Channel) (*model.CompositionItem, error) {
	query := `
        SELECT id, composition_id, channel, result, status, created_at, updated_at
        FROM composition_items
        WHERE composition_id=$1 AND channel=$2
    `
	var item model.CompositionItem
	err := r.DB.QueryRow(query, compositionID, channel).Scan(&item.ID, &item.CompositionID,
		&item.Channel, &item.Result, &item.Status, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	if err := r.loadAttachments(&item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *CompositionRepository) ListItems(compositionID int) ([]model.CompositionItem, error) {
	query := `
        SELECT id, composition_id, channel, result, status, created_at, updated_at
        FROM composition_items
        WHERE composition_id=$1
        ORDER BY id
    `
	rows, err := r.DB.Query(query, compositionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.CompositionItem{}
	for rows.Next() {
		var item model.CompositionItem
		if err := rows.Scan(&item.ID, &item.CompositionID, &item.Channel,
			&item.Result, &item.Status, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *CompositionRepository) UpdateItemStatus(itemID int, status model.ItemStatus) error {
	_, err := r.DB.Exec(`UPDATE composition_items SET status=$1, updated_at=$2 WHERE id=$3`, status, time.Now(), itemID)
	return err
}

func (r *CompositionRepository) loadAttachments(item *model.CompositionItem) error {
	rows, err := r.DB.Query(`SELECT id, item_id, file_name, url FROM attachments WHERE item_id=$1`, item.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var a model.Attachment
		if err := rows.Scan(&a.ID, &a.ItemID, &a.FileName, &a.URL); err != nil {
			return err
		}
		item.Attachments = append(item.Attachments, a)
	}
	return rows.Err()
}

// GetTextBlocks returns every shared text block keyed by name.
func (r *CompositionRepository) GetTextBlocks() (map[string]string, error) {
	rows, err := r.DB.Query(`SELECT name, content FROM text_blocks`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blocks := map[string]string{}
	for rows.Next() {
		var name, content string
		if err := rows.Scan(&name, &content); err != nil {
			return nil, err
		}
		blocks[name] = content
	}
	return blocks, rows.Err()
}

var _ CompositionRepositoryInterface = (*CompositionRepository)(nil)
