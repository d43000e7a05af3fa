// internal/repository/credential_repository.go
package repository

import (
	"database/sql"
	"time"

	"github.com/relaycrm/dispatch-backend/internal/model"
)

type CredentialRepositoryInterface interface {
	GetByChannel(channel model.Channel) (*model.ChannelCredential, error)
	List() ([]model.ChannelCredential, error)
	UpdateStatus(id int, status model.CredentialStatus, errorMessage string) error
	SaveTokens(channel model.Channel, accessToken, refreshToken string, expiresAt *time.Time, status model.CredentialStatus) error
	SaveAccount(channel model.Channel, accountID string, status model.CredentialStatus) error
	GetIdentity(id int) (*model.SenderIdentity, error)

	GetChannelSettings(channel model.Channel) (*model.ChannelSettings, error)
}

type CredentialRepository struct {
	DB *sql.DB
}

const credentialColumns = `id, channel, access_token, refresh_token, client_id, client_secret, account_id, expires_at, status, error_message, updated_at`

func (r *CredentialRepository) GetByChannel(channel model.Channel) (*model.ChannelCredential, error) {
	query := `SELECT ` + credentialColumns + ` FROM channel_credentials WHERE channel=$1`
	var c model.ChannelCredential
	err := r.DB.QueryRow(query, channel).Scan(&c.ID, &c.Channel, &c.AccessToken,
		&c.RefreshToken, &c.ClientID, &c.ClientSecret, &c.AccountID, &c.ExpiresAt,
		&c.Status, &c.ErrorMessage, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not configured
		}
		return nil, err
	}
	return &c, nil
}

func (r *CredentialRepository) List() ([]model.ChannelCredential, error) {
	rows, err := r.DB.Query(`SELECT ` + credentialColumns + ` FROM channel_credentials ORDER BY channel`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	creds := []model.ChannelCredential{}
	for rows.Next() {
		var c model.ChannelCredential
		if err := rows.Scan(&c.ID, &c.Channel, &c.AccessToken, &c.RefreshToken,
			&c.ClientID, &c.ClientSecret, &c.AccountID, &c.ExpiresAt,
			&c.Status, &c.ErrorMessage, &c.UpdatedAt); err != nil {
			return nil, err
		}
		creds = append(creds, c)
	}
	return creds, rows.Err()
}

// UpdateStatus records the outcome of the most recent check or send.
// Last write wins across concurrent checks.
func (r *CredentialRepository) UpdateStatus(id int, status model.CredentialStatus, errorMessage string) error {
	query := `UPDATE channel_credentials SET status=$1, error_message=$2, updated_at=$3 WHERE id=$4`
	_, err := r.DB.Exec(query, status, errorMessage, time.Now(), id)
	return err
}

// SaveTokens upserts the token pair a refresh or an OAuth callback produced.
func (r *CredentialRepository) SaveTokens(channel model.Channel, accessToken, refreshToken string, expiresAt *time.Time, status model.CredentialStatus) error {
	query := `
        INSERT INTO channel_credentials (channel, access_token, refresh_token, expires_at, status, error_message, updated_at)
        VALUES ($1, $2, $3, $4, $5, '', $6)
        ON CONFLICT (channel) DO UPDATE
        SET access_token=$2, refresh_token=$3, expires_at=$4, status=$5, error_message='', updated_at=$6
    `
	_, err := r.DB.Exec(query, channel, accessToken, refreshToken, expiresAt, status, time.Now())
	return err
}

// SaveAccount upserts the externally assigned account id for a channel that
// connects through a hosted wizard instead of a code exchange.
func (r *CredentialRepository) SaveAccount(channel model.Channel, accountID string, status model.CredentialStatus) error {
	query := `
        INSERT INTO channel_credentials (channel, account_id, status, error_message, updated_at)
        VALUES ($1, $2, $3, '', $4)
        ON CONFLICT (channel) DO UPDATE
        SET account_id=$2, status=$3, error_message='', updated_at=$4
    `
	_, err := r.DB.Exec(query, channel, accountID, status, time.Now())
	return err
}

func (r *CredentialRepository) GetIdentity(id int) (*model.SenderIdentity, error) {
	var ident model.SenderIdentity
	err := r.DB.QueryRow(`SELECT id, name, email FROM sender_identities WHERE id=$1`, id).
		Scan(&ident.ID, &ident.Name, &ident.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &ident, nil
}

func (r *CredentialRepository) GetChannelSettings(channel model.Channel) (*model.ChannelSettings, error) {
	query := `SELECT id, channel, interval_seconds, rate_per_second FROM channel_settings WHERE channel=$1`
	var s model.ChannelSettings
	err := r.DB.QueryRow(query, channel).Scan(&s.ID, &s.Channel, &s.IntervalSeconds, &s.RatePerSecond)
	if err != nil {
		if err == sql.ErrNoRows {
			return &model.ChannelSettings{Channel: channel}, nil // no limits configured
		}
		return nil, err
	}
	return &s, nil
}

var _ CredentialRepositoryInterface = (*CredentialRepository)(nil)
