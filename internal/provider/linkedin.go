// internal/provider/linkedin.go
package provider

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/relaycrm/dispatch-backend/internal/model"
)

// LinkedInClient covers both feed posts and connection invitations. Which one
// a send performs depends on Message.Subject: senders set it to "invitation"
// for the invitation flow (see the LinkedIn invitations sender).
type LinkedInClient struct {
	BaseURL      string // default https://api.linkedin.com
	ClientID     string
	ClientSecret string
	RedirectURL  string
	HTTP         *http.Client
}

const linkedInInvitationAction = "invitation"

func (c *LinkedInClient) base() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return "https://api.linkedin.com"
}

func (c *LinkedInClient) Send(ctx context.Context, cred model.ChannelCredential, msg Message) (string, error) {
	if msg.Subject == linkedInInvitationAction {
		return c.sendInvitation(ctx, cred, msg)
	}
	return c.sharePost(ctx, cred, msg)
}

func (c *LinkedInClient) sharePost(ctx context.Context, cred model.ChannelCredential, msg Message) (string, error) {
	author := "urn:li:person:" + cred.AccountID

	media := []map[string]any{}
	for _, a := range msg.Attachments {
		assetURN, err := c.uploadAsset(ctx, cred, author, a)
		if err != nil {
			return "", err
		}
		media = append(media, map[string]any{"status": "READY", "media": assetURN})
	}

	category := "NONE"
	if len(media) > 0 {
		category = "IMAGE"
	}
	body := map[string]any{
		"author":         author,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary":    map[string]any{"text": msg.Body},
				"shareMediaCategory": category,
				"media":              media,
			},
		},
		"visibility": map[string]any{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := doJSON(ctx, c.HTTP, http.MethodPost, c.base()+"/v2/ugcPosts", cred.AccessToken, body, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *LinkedInClient) sendInvitation(ctx context.Context, cred model.ChannelCredential, msg Message) (string, error) {
	// msg.To carries the invitee profile URL.
	body := map[string]any{
		"invitee": map[string]any{
			"com.linkedin.voyager.growth.invitation.InviteeProfile": map[string]any{
				"profileUrl": msg.To,
			},
		},
		"message": msg.Body,
	}
	if err := doJSON(ctx, c.HTTP, http.MethodPost, c.base()+"/v2/invitations", cred.AccessToken, body, nil); err != nil {
		return "", err
	}
	return msg.To, nil
}

func (c *LinkedInClient) uploadAsset(ctx context.Context, cred model.ChannelCredential, owner string, a Attachment) (string, error) {
	register := map[string]any{
		"registerUploadRequest": map[string]any{
			"recipes": []string{"urn:li:digitalmediaRecipe:feedshare-image"},
			"owner":   owner,
		},
	}
	var out struct {
		Value struct {
			Asset           string `json:"asset"`
			UploadMechanism map[string]struct {
				UploadURL string `json:"uploadUrl"`
			} `json:"uploadMechanism"`
		} `json:"value"`
	}
	err := doJSON(ctx, c.HTTP, http.MethodPost,
		c.base()+"/v2/assets?action=registerUpload", cred.AccessToken, register, &out)
	if err != nil {
		return "", err
	}

	uploadURL := ""
	for _, m := range out.Value.UploadMechanism {
		uploadURL = m.UploadURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(a.Data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", a.MIME)
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	resp.Body.Close()
	return out.Value.Asset, nil
}

// Probe reads the authenticated member profile.
func (c *LinkedInClient) Probe(ctx context.Context, cred model.ChannelCredential) error {
	return doJSON(ctx, c.HTTP, http.MethodGet, c.base()+"/v2/me", cred.AccessToken, nil, nil)
}

func (c *LinkedInClient) AuthURL(state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", c.ClientID)
	q.Set("redirect_uri", c.RedirectURL)
	q.Set("scope", "w_member_social r_liteprofile")
	q.Set("state", state)
	return "https://www.linkedin.com/oauth/v2/authorization?" + q.Encode()
}

func (c *LinkedInClient) Exchange(ctx context.Context, code string) (Tokens, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.RedirectURL)
	return c.token(ctx, form)
}

func (c *LinkedInClient) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return c.token(ctx, form)
}

func (c *LinkedInClient) token(ctx context.Context, form url.Values) (Tokens, error) {
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://www.linkedin.com/oauth/v2/accessToken", strings.NewReader(form.Encode()))
	if err != nil {
		return Tokens{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return decodeTokenResponse(c.HTTP, req)
}

var _ OAuthClient = (*LinkedInClient)(nil)
