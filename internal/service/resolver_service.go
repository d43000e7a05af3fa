// internal/service/resolver_service.go
package service

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	appErrors "github.com/relaycrm/dispatch-backend/internal/errors"
	"github.com/relaycrm/dispatch-backend/internal/model"
	"github.com/relaycrm/dispatch-backend/internal/repository"
)

// searchPageSize is the fixed page size for free-form search resolution.
const searchPageSize = 200

// fanoutPageSize is used for list/organization pagination.
const fanoutPageSize = 100

// ResolverService expands a dispatch target into a de-duplicated recipient
// set. All recipients resolve to Contacts before anything is sent.
type ResolverService struct {
	Contacts repository.ContactRepositoryInterface
	Log      zerolog.Logger
}

// Resolve returns the contacts a request targets. A raw email/phone not yet
// known creates the contact with a default subscription for the channel, so
// repeated calls with the same identifier are idempotent. An empty result is
// success, not an error.
func (s *ResolverService) Resolve(req model.DispatchRequest, channel model.Channel) ([]model.Contact, error) {
	switch req.Type {
	case model.TargetContact:
		return s.resolveContacts(req.ToList(), channel)
	case model.TargetList:
		listID, err := strconv.Atoi(req.To)
		if err != nil {
			return nil, appErrors.NewValidation("invalid list id: %s", req.To)
		}
		return s.resolvePages(func(page int) ([]model.Contact, model.PageInfo, error) {
			return s.Contacts.ListByList(listID, page, fanoutPageSize)
		})
	case model.TargetOrganization:
		orgID, err := strconv.Atoi(req.To)
		if err != nil {
			return nil, appErrors.NewValidation("invalid organization id: %s", req.To)
		}
		return s.resolvePages(func(page int) ([]model.Contact, model.PageInfo, error) {
			return s.Contacts.ListByOrganization(orgID, page, fanoutPageSize)
		})
	}
	return nil, appErrors.NewValidation("unknown target type: %s", req.Type)
}

// resolveContacts fans an identifier list out over the single-contact path
// and de-duplicates by (email ?? phone), last write wins.
func (s *ResolverService) resolveContacts(identifiers []string, channel model.Channel) ([]model.Contact, error) {
	if len(identifiers) == 0 {
		return nil, appErrors.NewValidation("no recipient specified")
	}

	contacts := []model.Contact{}
	for _, ident := range identifiers {
		c, err := s.resolveOne(strings.TrimSpace(ident), channel)
		if err != nil {
			return nil, err
		}
		contacts = dedupAppend(contacts, *c)
	}
	return contacts, nil
}

func (s *ResolverService) resolveOne(ident string, channel model.Channel) (*model.Contact, error) {
	if id, err := strconv.Atoi(ident); err == nil {
		c, err := s.Contacts.GetByID(id)
		if err != nil {
			return nil, appErrors.NewStoreUnavailable(err)
		}
		if c == nil {
			return nil, appErrors.NewValidation("contact %d not found", id)
		}
		return c, nil
	}

	// Raw identifier: email when it carries an "@", phone otherwise.
	if strings.Contains(ident, "@") {
		c, err := s.Contacts.GetByEmail(ident)
		if err != nil {
			return nil, appErrors.NewStoreUnavailable(err)
		}
		if c != nil {
			return c, nil
		}
		created := &model.Contact{Email: ident}
		if err := s.Contacts.CreateWithSubscription(created, channel); err != nil {
			return nil, appErrors.NewStoreUnavailable(err)
		}
		s.Log.Info().Str("email", ident).Int("contact_id", created.ID).Msg("created contact from raw identifier")
		return created, nil
	}

	c, err := s.Contacts.GetByPhone(ident)
	if err != nil {
		return nil, appErrors.NewStoreUnavailable(err)
	}
	if c != nil {
		return c, nil
	}
	created := &model.Contact{Phone: ident}
	if err := s.Contacts.CreateWithSubscription(created, channel); err != nil {
		return nil, appErrors.NewStoreUnavailable(err)
	}
	s.Log.Info().Str("phone", ident).Int("contact_id", created.ID).Msg("created contact from raw identifier")
	return created, nil
}

// resolvePages accumulates every backing page, looping while the current page
// is below the reported total.
func (s *ResolverService) resolvePages(fetch func(page int) ([]model.Contact, model.PageInfo, error)) ([]model.Contact, error) {
	contacts := []model.Contact{}
	page := 1
	for {
		batch, info, err := fetch(page)
		if err != nil {
			return nil, appErrors.NewStoreUnavailable(err)
		}
		for _, c := range batch {
			contacts = dedupAppend(contacts, c)
		}
		if page >= info.TotalPages {
			break
		}
		page++
	}
	return contacts, nil
}

// ResolveSearchIDs walks every page of a free-form search at a fixed page
// size, returning raw contact ids for mass dispatch.
func (s *ResolverService) ResolveSearchIDs(mask string) ([]int, error) {
	ids := []int{}
	page := 1
	for {
		batch, info, err := s.Contacts.SearchIDs(mask, page, searchPageSize)
		if err != nil {
			return nil, appErrors.NewStoreUnavailable(err)
		}
		ids = append(ids, batch...)
		if page >= info.TotalPages {
			break
		}
		page++
	}
	return ids, nil
}

// dedupAppend keeps one contact per identity, last write wins, preserving
// first-seen order.
func dedupAppend(contacts []model.Contact, c model.Contact) []model.Contact {
	key := c.Identity()
	if key == "" {
		return append(contacts, c)
	}
	for i := range contacts {
		if contacts[i].Identity() == key {
			contacts[i] = c
			return contacts
		}
	}
	return append(contacts, c)
}
