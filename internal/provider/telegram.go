// internal/provider/telegram.go
package provider

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/relaycrm/dispatch-backend/internal/model"
)

// TelegramClient posts through the Bot API. No long polling: a bot instance
// is built per call from the stored token and used for the send only.
type TelegramClient struct{}

func (c *TelegramClient) bot(cred model.ChannelCredential) (*tele.Bot, error) {
	return tele.NewBot(tele.Settings{Token: cred.AccessToken})
}

func (c *TelegramClient) Send(ctx context.Context, cred model.ChannelCredential, msg Message) (string, error) {
	b, err := c.bot(cred)
	if err != nil {
		return "", err
	}

	recipient := &tele.Chat{ID: msg.ChatID}
	var sent *tele.Message
	if len(msg.Attachments) > 0 {
		a := msg.Attachments[0]
		photo := &tele.Photo{
			File:    tele.FromReader(bytes.NewReader(a.Data)),
			Caption: msg.Body,
		}
		sent, err = b.Send(recipient, photo)
	} else {
		sent, err = b.Send(recipient, msg.Body)
	}
	if err != nil {
		return "", err
	}
	return strconv.Itoa(sent.ID), nil
}

// Probe relies on NewBot's getMe call, the cheapest authenticated Bot API
// method: construction fails when the token no longer authenticates.
func (c *TelegramClient) Probe(ctx context.Context, cred model.ChannelCredential) error {
	if _, err := c.bot(cred); err != nil {
		return fmt.Errorf("telegram getMe failed: %w", err)
	}
	return nil
}

var _ Client = (*TelegramClient)(nil)
