// internal/model/contact.go
package model

import "time"

// Contact is the unit every recipient resolves to before sending.
type Contact struct {
	ID             int            `db:"id" json:"id"`
	FirstName      string         `db:"first_name" json:"first_name"`
	LastName       string         `db:"last_name" json:"last_name"`
	Email          string         `db:"email" json:"email"`
	Phone          string         `db:"phone" json:"phone"`
	MobilePhone    string         `db:"mobile_phone" json:"mobile_phone"`
	LinkedInURL    string         `db:"linkedin_url" json:"linkedin_url"`
	TelegramChatID int64          `db:"telegram_chat_id" json:"telegram_chat_id"`
	OrganizationID int            `db:"organization_id" json:"organization_id"`
	Subscriptions  []Subscription `json:"subscriptions,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// Identity returns the deduplication key for fan-out: email if present,
// otherwise phone.
func (c Contact) Identity() string {
	if c.Email != "" {
		return c.Email
	}
	return c.Phone
}

// SubscribedTo reports whether the contact has an active subscription for the
// given channel.
func (c Contact) SubscribedTo(ch Channel) bool {
	for _, s := range c.Subscriptions {
		if s.Channel == ch && s.Active {
			return true
		}
	}
	return false
}

// Subscription is a contact's explicit opt-in status for one channel.
type Subscription struct {
	ID        int     `db:"id" json:"id"`
	ContactID int     `db:"contact_id" json:"contact_id"`
	Channel   Channel `db:"channel" json:"channel"`
	Active    bool    `db:"active" json:"active"`
}
