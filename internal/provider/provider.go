// internal/provider/provider.go
package provider

import (
	"context"
	"time"

	"github.com/relaycrm/dispatch-backend/internal/model"
)

// The wire clients (SMTP, Graph API, Bot API, social APIs) sit outside the
// dispatch core. The core consumes them through these interfaces only:
// send(payload) -> id | error, plus one lightweight read-only probe used by
// credential health checks.

// Message is the channel-agnostic payload handed to a wire client. Senders
// fill only the fields their channel uses.
type Message struct {
	From        string
	To          string // email address, phone number or profile URL
	ChatID      int64  // Telegram
	Subject     string
	Body        string
	Attachments []Attachment
}

// Attachment carries fetched media bytes plus the sniffed MIME type.
type Attachment struct {
	FileName string
	MIME     string
	Data     []byte
}

// Tokens is the result of an OAuth exchange or refresh.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

// Client is the minimal surface every channel's wire client exposes.
type Client interface {
	// Send delivers one message and returns the provider-assigned id.
	Send(ctx context.Context, cred model.ChannelCredential, msg Message) (string, error)
	// Probe performs one lightweight read-only call proving the credential
	// still authenticates.
	Probe(ctx context.Context, cred model.ChannelCredential) error
}

// OAuthClient extends Client for channels whose credential lifecycle is
// managed through an external grant.
type OAuthClient interface {
	Client
	// AuthURL returns a one-time authorization URL for an interactive grant.
	AuthURL(state string) string
	// Exchange trades an authorization code for tokens.
	Exchange(ctx context.Context, code string) (Tokens, error)
	// Refresh trades a refresh token for a fresh token pair.
	Refresh(ctx context.Context, refreshToken string) (Tokens, error)
}

// Set bundles one wire client per channel for injection into the senders.
type Set struct {
	Email    Client
	SMS      Client
	WhatsApp Client
	Telegram Client
	Twitter  OAuthClient
	LinkedIn OAuthClient
	Unipile  OAuthClient
	Blog     Client
}

// ForChannel selects the wire client behind a channel variant. The switch is
// exhaustive over the closed enum; LinkedIn invitations ride the LinkedIn
// client.
func (s Set) ForChannel(c model.Channel) Client {
	switch c {
	case model.ChannelEmail:
		return s.Email
	case model.ChannelSMS:
		return s.SMS
	case model.ChannelWhatsApp:
		return s.WhatsApp
	case model.ChannelTelegram:
		return s.Telegram
	case model.ChannelTwitter:
		return s.Twitter
	case model.ChannelLinkedIn, model.ChannelLinkedInInvitations:
		return s.LinkedIn
	case model.ChannelUnipile:
		return s.Unipile
	case model.ChannelBlog:
		return s.Blog
	}
	return nil
}
