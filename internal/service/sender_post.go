// internal/service/sender_post.go
package service

import (
	"context"
	"strconv"

	appErrors "github.com/relaycrm/dispatch-backend/internal/errors"
	"github.com/relaycrm/dispatch-backend/internal/model"
	"github.com/relaycrm/dispatch-backend/internal/provider"
)

// Post channels publish once rather than delivering per recipient; on success
// the composition item flips to Published. Subscription gating does not apply.

// TwitterSender posts a tweet. The bearer token is refreshed before every
// send: Twitter access tokens are short-lived and a stale one fails the whole
// publication.
type TwitterSender struct {
	senderBase
}

func (s *TwitterSender) Send(ctx context.Context, req model.DispatchRequest) (string, error) {
	item, err := s.item(req)
	if err != nil {
		return "", err
	}
	if err := s.Credentials.EnsureFresh(ctx, model.ChannelTwitter); err != nil {
		return "", err
	}
	attachments, err := s.fetchAttachments(ctx, item)
	if err != nil {
		return "", err
	}
	body, err := s.renderForPost(item)
	if err != nil {
		return "", err
	}
	return "", s.publishOnce(ctx, item, provider.Message{Body: body, Attachments: attachments})
}

// LinkedInSender shares a feed post, uploading any attachments as assets.
type LinkedInSender struct {
	senderBase
}

func (s *LinkedInSender) Send(ctx context.Context, req model.DispatchRequest) (string, error) {
	item, err := s.item(req)
	if err != nil {
		return "", err
	}
	attachments, err := s.fetchAttachments(ctx, item)
	if err != nil {
		return "", err
	}
	body, err := s.renderForPost(item)
	if err != nil {
		return "", err
	}
	return "", s.publishOnce(ctx, item, provider.Message{Body: body, Attachments: attachments})
}

// TelegramSender posts into the channel chat configured on the credential.
type TelegramSender struct {
	senderBase
}

func (s *TelegramSender) Send(ctx context.Context, req model.DispatchRequest) (string, error) {
	item, err := s.item(req)
	if err != nil {
		return "", err
	}
	cred, err := s.credential(ctx)
	if err != nil {
		return "", err
	}
	chatID, err := strconv.ParseInt(cred.AccountID, 10, 64)
	if err != nil {
		return "", appErrors.NewCredential(s.channel.String(), "account_id %q is not a chat id", cred.AccountID)
	}
	attachments, err := s.fetchAttachments(ctx, item)
	if err != nil {
		return "", err
	}
	body, err := s.renderForPost(item)
	if err != nil {
		return "", err
	}
	return "", s.publishOnce(ctx, item, provider.Message{ChatID: chatID, Body: body, Attachments: attachments})
}

// BlogSender publishes the item as a blog post titled after the composition.
type BlogSender struct {
	senderBase
}

func (s *BlogSender) Send(ctx context.Context, req model.DispatchRequest) (string, error) {
	item, err := s.item(req)
	if err != nil {
		return "", err
	}
	comp, err := s.Compositions.GetByID(req.CompositionID)
	if err != nil {
		return "", appErrors.NewStoreUnavailable(err)
	}
	if comp == nil {
		return "", appErrors.NewValidation("composition %d not found", req.CompositionID)
	}
	body, err := s.renderForPost(item)
	if err != nil {
		return "", err
	}
	return "", s.publishOnce(ctx, item, provider.Message{Subject: comp.Name, Body: body})
}

var (
	_ Sender = (*TwitterSender)(nil)
	_ Sender = (*LinkedInSender)(nil)
	_ Sender = (*TelegramSender)(nil)
	_ Sender = (*BlogSender)(nil)
)
