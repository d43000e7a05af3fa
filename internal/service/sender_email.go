// internal/service/sender_email.go
package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	appErrors "github.com/relaycrm/dispatch-backend/internal/errors"
	"github.com/relaycrm/dispatch-backend/internal/model"
	"github.com/relaycrm/dispatch-backend/internal/provider"
)

// EmailSender delivers a composition item as personalized email. Every
// outgoing body gets the unsubscribe footer and anchor styles inlined, since
// most mail clients strip <style> blocks.
type EmailSender struct {
	senderBase
}

func (s *EmailSender) ValidatePreconditions(req model.DispatchRequest) error {
	if req.From == "" {
		return appErrors.NewValidation("email channel requires a from address")
	}
	if req.Subject == "" {
		return appErrors.NewValidation("email channel requires a subject")
	}
	return nil
}

func (s *EmailSender) Send(ctx context.Context, req model.DispatchRequest) (string, error) {
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
		// The caller may explicitly opt out of subscription gating, an
		// escape hatch only email supports.
		ignoreGate: req.IgnoreSubs,
		build: func(contact model.Contact, rendered string) (provider.Message, error) {
			if contact.Email == "" {
				return provider.Message{}, fmt.Errorf("contact %d has no email address", contact.ID)
			}
			body := inlineLinkStyles(rendered)
			body += unsubscribeFooter(contact)
			return provider.Message{
				From:        req.From,
				To:          contact.Email,
				Subject:     req.Subject,
				Body:        body,
				Attachments: attachments,
			}, nil
		},
	})
}

var anchorWithoutStyle = regexp.MustCompile(`<a (?:[^>]*\b)?href=`)

const inlineAnchorStyle = `style="color:#2a6fb8;text-decoration:underline" `

// inlineLinkStyles rewrites bare anchors so links render consistently in
// clients that drop stylesheet blocks.
func inlineLinkStyles(html string) string {
	return anchorWithoutStyle.ReplaceAllStringFunc(html, func(m string) string {
		if strings.Contains(m, "style=") {
			return m
		}
		return strings.Replace(m, "<a ", "<a "+inlineAnchorStyle, 1)
	})
}

func unsubscribeFooter(contact model.Contact) string {
	return fmt.Sprintf(
		`<p style="font-size:11px;color:#999">If you no longer wish to receive these emails, `+
			`<a href="/unsubscribe?contact=%d&channel=Email" style="color:#999">unsubscribe here</a>.</p>`,
		contact.ID,
	)
}

var _ Sender = (*EmailSender)(nil)
