// internal/repository/contact_repository.go
package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/relaycrm/dispatch-backend/internal/model"
)

type ContactRepositoryInterface interface {
	GetByID(id int) (*model.Contact, error)
	GetByEmail(email string) (*model.Contact, error)
	GetByPhone(phone string) (*model.Contact, error)
	CreateWithSubscription(c *model.Contact, channel model.Channel) error
	ListByList(listID, page, pageSize int) ([]model.Contact, model.PageInfo, error)
	ListByOrganization(orgID, page, pageSize int) ([]model.Contact, model.PageInfo, error)
	SearchIDs(mask string, page, pageSize int) ([]int, model.PageInfo, error)
}

type ContactRepository struct {
	DB *sql.DB
}

const contactColumns = `id, first_name, last_name, email, phone, mobile_phone, linkedin_url, telegram_chat_id, organization_id, created_at`

func (r *ContactRepository) GetByID(id int) (*model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id=$1`
	return r.scanOne(r.DB.QueryRow(query, id))
}

func (r *ContactRepository) GetByEmail(email string) (*model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE email=$1`
	return r.scanOne(r.DB.QueryRow(query, email))
}

func (r *ContactRepository) GetByPhone(phone string) (*model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE phone=$1 OR mobile_phone=$1`
	return r.scanOne(r.DB.QueryRow(query, phone))
}

func (r *ContactRepository) scanOne(row *sql.Row) (*model.Contact, error) {
	var c model.Contact
	err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
		&c.MobilePhone, &c.LinkedInURL, &c.TelegramChatID, &c.OrganizationID, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	if err := r.loadSubscriptions(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ContactRepository) loadSubscriptions(c *model.Contact) error {
	rows, err := r.DB.Query(`SELECT id, contact_id, channel, active FROM subscriptions WHERE contact_id=$1`, c.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var s model.Subscription
		if err := rows.Scan(&s.ID, &s.ContactID, &s.Channel, &s.Active); err != nil {
			return err
		}
		c.Subscriptions = append(c.Subscriptions, s)
	}
	return rows.Err()
}

// CreateWithSubscription inserts a contact known only by a raw identifier,
// together with an active default subscription for the requested channel.
func (r *ContactRepository) CreateWithSubscription(c *model.Contact, channel model.Channel) error {
	c.CreatedAt = time.Now()
	query := `
        INSERT INTO contacts (first_name, last_name, email, phone, mobile_phone, linkedin_url, telegram_chat_id, organization_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id
    `
	err := r.DB.QueryRow(query, c.FirstName, c.LastName, c.Email, c.Phone,
		c.MobilePhone, c.LinkedInURL, c.TelegramChatID, c.OrganizationID, c.CreatedAt).Scan(&c.ID)
	if err != nil {
		return err
	}

	var sub model.Subscription
	sub.ContactID = c.ID
	sub.Channel = channel
	sub.Active = true
	err = r.DB.QueryRow(
		`INSERT INTO subscriptions (contact_id, channel, active) VALUES ($1, $2, $3) RETURNING id`,
		sub.ContactID, sub.Channel, sub.Active,
	).Scan(&sub.ID)
	if err != nil {
		return err
	}
	c.Subscriptions = append(c.Subscriptions, sub)
	return nil
}

func (r *ContactRepository) ListByList(listID, page, pageSize int) ([]model.Contact, model.PageInfo, error) {
	where := `id IN (SELECT contact_id FROM list_members WHERE list_id=$1)`
	return r.listPage(where, listID, page, pageSize)
}

func (r *ContactRepository) ListByOrganization(orgID, page, pageSize int) ([]model.Contact, model.PageInfo, error) {
	return r.listPage(`organization_id=$1`, orgID, page, pageSize)
}

func (r *ContactRepository) listPage(where string, arg any, page, pageSize int) ([]model.Contact, model.PageInfo, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(
		`SELECT %s FROM contacts WHERE %s ORDER BY id LIMIT $2 OFFSET $3`,
		contactColumns, where,
	)
	rows, err := r.DB.Query(query, arg, pageSize, offset)
	if err != nil {
		return nil, model.PageInfo{}, err
	}
	defer rows.Close()

	contacts := []model.Contact{}
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
			&c.MobilePhone, &c.LinkedInURL, &c.TelegramChatID, &c.OrganizationID, &c.CreatedAt); err != nil {
			return nil, model.PageInfo{}, err
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, model.PageInfo{}, err
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM contacts WHERE %s`, where)
	if err := r.DB.QueryRow(countQuery, arg).Scan(&total); err != nil {
		return nil, model.PageInfo{}, err
	}

	for i := range contacts {
		if err := r.loadSubscriptions(&contacts[i]); err != nil {
			return nil, model.PageInfo{}, err
		}
	}

	info := model.PageInfo{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}
	return contacts, info, nil
}

// SearchIDs resolves a free-form search mask into raw contact ids for mass
// dispatch. The mask matches name, email and phone.
func (r *ContactRepository) SearchIDs(mask string, page, pageSize int) ([]int, model.PageInfo, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize
	pattern := "%" + mask + "%"

	query := `
        SELECT id FROM contacts
        WHERE first_name ILIKE $1 OR last_name ILIKE $1 OR email ILIKE $1 OR phone ILIKE $1
        ORDER BY id LIMIT $2 OFFSET $3
    `
	rows, err := r.DB.Query(query, pattern, pageSize, offset)
	if err != nil {
		return nil, model.PageInfo{}, err
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, model.PageInfo{}, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, model.PageInfo{}, err
	}

	var total int
	countQuery := `
        SELECT COUNT(*) FROM contacts
        WHERE first_name ILIKE $1 OR last_name ILIKE $1 OR email ILIKE $1 OR phone ILIKE $1
    `
	if err := r.DB.QueryRow(countQuery, pattern).Scan(&total); err != nil {
		return nil, model.PageInfo{}, err
	}

	info := model.PageInfo{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}
	return ids, info, nil
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)
