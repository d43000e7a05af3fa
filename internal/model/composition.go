// internal/model/composition.go
package model

import "time"

type CompositionStatus string

const (
	CompositionPending  CompositionStatus = "Pending"
	CompositionFinished CompositionStatus = "Finished"
)

type ItemStatus string

const (
	ItemStatusNone         ItemStatus = "None"
	ItemStatusNotPublished ItemStatus = "Not published"
	ItemStatusPublished    ItemStatus = "Published"
)

// Composition is one authored piece of content distributed across channels.
// Status becomes Finished once every requested channel has an item.
type Composition struct {
	ID        int               `db:"id" json:"id"`
	Name      string            `db:"name" json:"name"`
	Language  string            `db:"language" json:"language"`
	Persona   string            `db:"persona" json:"persona"`
	Model     string            `db:"model" json:"model"` // generation-model reference
	Body      string            `db:"body" json:"body"`
	Status    CompositionStatus `db:"status" json:"status"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt *time.Time        `db:"updated_at" json:"updated_at,omitempty"`
}

// CompositionItem is the per-channel rendered variant of a Composition.
// At most one item exists per channel per composition.
type CompositionItem struct {
	ID            int          `db:"id" json:"id"`
	CompositionID int          `db:"composition_id" json:"composition_id"`
	Channel       Channel      `db:"channel" json:"channel"`
	Result        string       `db:"result" json:"result"` // rendered per-channel text
	Status        ItemStatus   `db:"status" json:"status"`
	Attachments   []Attachment `json:"attachments,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     *time.Time   `db:"updated_at" json:"updated_at,omitempty"`
}

// Attachment is a file bound to a composition item.
type Attachment struct {
	ID       int    `db:"id" json:"id"`
	ItemID   int    `db:"item_id" json:"item_id"`
	FileName string `db:"file_name" json:"file_name"`
	URL      string `db:"url" json:"url"`
}

// TextBlock is a shared snippet the substitution engine can splice into
// rendered content via @text_block.<name> placeholders.
type TextBlock struct {
	ID      int    `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	Content string `db:"content" json:"content"`
}
