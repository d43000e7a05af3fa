// internal/service/sender_messaging.go
package service

import (
	"context"
	"fmt"

	"github.com/relaycrm/dispatch-backend/internal/model"
	"github.com/relaycrm/dispatch-backend/internal/provider"
)

// SMSSender delivers to the contact's phone, falling back to mobile_phone.
type SMSSender struct {
	senderBase
}

func (s *SMSSender) Send(ctx context.Context, req model.DispatchRequest) (string, error) {
	item, err := s.item(req)
	if err != nil {
		return "", err
	}
	contacts, err := s.Resolver.Resolve(req, s.channel)
	if err != nil {
		return "", err
	}
	if len(contacts) == 0 {
		return noContactsMatched, nil
	}

	return "", s.deliver(ctx, item, contacts, deliverOpts{
		build: func(contact model.Contact, rendered string) (provider.Message, error) {
			to := contact.Phone
			if to == "" {
				to = contact.MobilePhone
			}
			if to == "" {
				return provider.Message{}, fmt.Errorf("contact %d has no phone number", contact.ID)
			}
			return provider.Message{From: req.From, To: to, Body: rendered}, nil
		},
	})
}

// WhatsAppSender prefers mobile_phone and carries the first attachment as
// media.
type WhatsAppSender struct {
	senderBase
}

func (s *WhatsAppSender) Send(ctx context.Context, req model.DispatchRequest) (string, error) {
	item, err := s.item(req)
	if err != nil {
		return "", err
	}
	contacts, err := s.Resolver.Resolve(req, s.channel)
	if err != nil {
		return "", err
	}
	if len(contacts) == 0 {
		return noContactsMatched, nil
	}
	attachments, err := s.fetchAttachments(ctx, item)
	if err != nil {
		return "", err
	}

	return "", s.deliver(ctx, item, contacts, deliverOpts{
		build: func(contact model.Contact, rendered string) (provider.Message, error) {
			to := contact.MobilePhone
			if to == "" {
				to = contact.Phone
			}
			if to == "" {
				return provider.Message{}, fmt.Errorf("contact %d has no mobile number", contact.ID)
			}
			return provider.Message{To: to, Body: rendered, Attachments: attachments}, nil
		},
	})
}

// UnipileSender messages LinkedIn profiles through the Unipile aggregator.
type UnipileSender struct {
	senderBase
}

func (s *UnipileSender) Send(ctx context.Context, req model.DispatchRequest) (string, error) {
	item, err := s.item(req)
	if err != nil {
		return "", err
	}
	contacts, err := s.Resolver.Resolve(req, s.channel)
	if err != nil {
		return "", err
	}
	if len(contacts) == 0 {
		return noContactsMatched, nil
	}

	return "", s.deliver(ctx, item, contacts, deliverOpts{
		build: func(contact model.Contact, rendered string) (provider.Message, error) {
			if contact.LinkedInURL == "" {
				return provider.Message{}, fmt.Errorf("contact %d has no linkedin profile", contact.ID)
			}
			return provider.Message{To: contact.LinkedInURL, Body: rendered}, nil
		},
	})
}

// LinkedInInvitationSender sends connection invitations, one per recipient.
// Unlike LinkedIn posts this is a per-recipient channel and stays gated.
type LinkedInInvitationSender struct {
	senderBase
}

func (s *LinkedInInvitationSender) Send(ctx context.Context, req model.DispatchRequest) (string, error) {
	item, err := s.item(req)
	if err != nil {
		return "", err
	}
	contacts, err := s.Resolver.Resolve(req, s.channel)
	if err != nil {
		return "", err
	}
	if len(contacts) == 0 {
		return noContactsMatched, nil
	}

	return "", s.deliver(ctx, item, contacts, deliverOpts{
		build: func(contact model.Contact, rendered string) (provider.Message, error) {
			if contact.LinkedInURL == "" {
				return provider.Message{}, fmt.Errorf("contact %d has no linkedin profile", contact.ID)
			}
			// The subject field routes the LinkedIn client onto its
			// invitation flow instead of a feed post.
			return provider.Message{To: contact.LinkedInURL, Subject: "invitation", Body: rendered}, nil
		},
	})
}

var (
	_ Sender = (*SMSSender)(nil)
	_ Sender = (*WhatsAppSender)(nil)
	_ Sender = (*UnipileSender)(nil)
	_ Sender = (*LinkedInInvitationSender)(nil)
)
