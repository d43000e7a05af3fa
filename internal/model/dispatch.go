// internal/model/dispatch.go
package model

import (
	"encoding/json"
	"time"
)

type TargetType string

const (
	TargetContact      TargetType = "contact"
	TargetList         TargetType = "list"
	TargetOrganization TargetType = "organization"
)

// DispatchRequest is the ephemeral payload driving one send-to-channels call.
// To is a contact id, a raw email/phone, a JSON array of those, or a list /
// organization id depending on Type.
type DispatchRequest struct {
	CompositionID int        `json:"composition_id"`
	Channels      []string   `json:"channels"`
	To            string     `json:"to"`
	Type          TargetType `json:"type"`
	From          string     `json:"from,omitempty"`
	Subject       string     `json:"subject,omitempty"`
	Interval      int        `json:"interval,omitempty"` // seconds between queued sends
	SearchMask    string     `json:"searchMask,omitempty"`
	IgnoreSubs    bool       `json:"ignore_subscriptions,omitempty"` // email only
	ScheduledAt   *time.Time `json:"scheduled_at,omitempty"`
}

// ToList splits To into individual identifiers. A JSON array fans out; a plain
// value is a single-element list.
func (r DispatchRequest) ToList() []string {
	var ids []string
	if err := json.Unmarshal([]byte(r.To), &ids); err == nil {
		return ids
	}
	if r.To == "" {
		return nil
	}
	return []string{r.To}
}

type ScheduleStatus string

const (
	ScheduleStatusScheduled  ScheduleStatus = "scheduled"
	ScheduleStatusProcessing ScheduleStatus = "processing"
	ScheduleStatusPublished  ScheduleStatus = "published"
)

// ScheduledDispatch defers one composition/channel dispatch to publish_date.
// It is re-queued at most once: the scheduler flips it to processing before
// publishing into the delay queue, so a second tick never re-selects it.
type ScheduledDispatch struct {
	ID            int            `db:"id" json:"id"`
	CompositionID int            `db:"composition_id" json:"composition_id"`
	Channel       Channel        `db:"channel" json:"channel"`
	To            string         `db:"recipient" json:"to"`
	Type          TargetType     `db:"target_type" json:"type"`
	IdentityID    int            `db:"identity_id" json:"identity_id"` // mail-from identity or social inbox account
	Subject       string         `db:"subject" json:"subject"`
	PublishDate   time.Time      `db:"publish_date" json:"publish_date"`
	Status        ScheduleStatus `db:"status" json:"status"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}
