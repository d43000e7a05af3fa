// internal/model/credential.go
package model

import "time"

type CredentialStatus string

const (
	CredentialDisconnected CredentialStatus = "disconnected" // required fields missing, or tokens pending first check
	CredentialInvalid      CredentialStatus = "invalid"      // last attempt failed
	CredentialActive       CredentialStatus = "active"       // last attempt succeeded
)

// ChannelCredential holds the external tokens/secrets for one channel and the
// outcome of the most recent check or send. Concurrent updates are
// last-write-wins; there is no optimistic concurrency control.
type ChannelCredential struct {
	ID           int              `db:"id" json:"id"`
	Channel      Channel          `db:"channel" json:"channel"`
	AccessToken  string           `db:"access_token" json:"-"`
	RefreshToken string           `db:"refresh_token" json:"-"`
	ClientID     string           `db:"client_id" json:"-"`
	ClientSecret string           `db:"client_secret" json:"-"`
	AccountID    string           `db:"account_id" json:"account_id"` // social inbox / sender account
	ExpiresAt    *time.Time       `db:"expires_at" json:"expires_at,omitempty"`
	Status       CredentialStatus `db:"status" json:"status"`
	ErrorMessage string           `db:"error_message" json:"error_message,omitempty"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// Complete reports whether the fields required to attempt a call are present.
// Unipile's hosted wizard reports only an account id; its calls authenticate
// with the service API key, not a per-account token.
func (c ChannelCredential) Complete() bool {
	if c.Channel == ChannelUnipile {
		return c.AccountID != ""
	}
	return c.AccessToken != ""
}

// SenderIdentity is a verified mail-from identity scheduled dispatches
// reference instead of carrying a raw address.
type SenderIdentity struct {
	ID    int    `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
}
