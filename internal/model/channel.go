// internal/model/channel.go
package model

import (
	"fmt"
	"strings"
)

// Channel is the closed set of communication media a composition can be
// distributed to. Unknown names are rejected at parse time, never at send time.
type Channel string

const (
	ChannelEmail               Channel = "Email"
	ChannelSMS                 Channel = "SMS"
	ChannelWhatsApp            Channel = "WhatsApp"
	ChannelTelegram            Channel = "Telegram"
	ChannelTwitter             Channel = "Twitter"
	ChannelLinkedIn            Channel = "LinkedIn"
	ChannelLinkedInInvitations Channel = "LinkedIn_Invitations"
	ChannelBlog                Channel = "Blog"
	ChannelUnipile             Channel = "Unipile"
)

// AllChannels returns every channel variant, in a stable order.
func AllChannels() []Channel {
	return []Channel{
		ChannelEmail,
		ChannelSMS,
		ChannelWhatsApp,
		ChannelTelegram,
		ChannelTwitter,
		ChannelLinkedIn,
		ChannelLinkedInInvitations,
		ChannelBlog,
		ChannelUnipile,
	}
}

// ParseChannel maps a wire name onto a Channel variant. Matching ignores
// case, so "email" and "Email" name the same channel.
func ParseChannel(name string) (Channel, error) {
	for _, c := range AllChannels() {
		if strings.EqualFold(string(c), name) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown channel: %q", name)
}

// IsPost reports whether the channel is a one-shot "post" channel: a single
// publication rather than a per-recipient delivery. Post channels skip
// subscription gating and flip their composition item to Published on success.
func (c Channel) IsPost() bool {
	switch c {
	case ChannelLinkedIn, ChannelTwitter, ChannelTelegram, ChannelBlog:
		return true
	}
	return false
}

// IsOAuth reports whether the channel's credential supports token refresh.
func (c Channel) IsOAuth() bool {
	return c == ChannelLinkedIn || c == ChannelTwitter || c == ChannelUnipile
}

func (c Channel) String() string { return string(c) }

// ChannelSettings carries per-channel limits.
type ChannelSettings struct {
	ID              int     `db:"id" json:"id"`
	Channel         Channel `db:"channel" json:"channel"`
	IntervalSeconds int     `db:"interval_seconds" json:"interval_seconds"` // sleep between queued sends
	RatePerSecond   float64 `db:"rate_per_second" json:"rate_per_second"`   // provider-side cap, 0 = unlimited
}
