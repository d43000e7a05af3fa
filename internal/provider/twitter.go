// internal/provider/twitter.go
package provider

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/relaycrm/dispatch-backend/internal/model"
)

// TwitterClient posts tweets through the v2 API with OAuth2 bearer tokens.
type TwitterClient struct {
	BaseURL      string // default https://api.twitter.com
	ClientID     string
	ClientSecret string
	RedirectURL  string
	HTTP         *http.Client
}

func (c *TwitterClient) base() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return "https://api.twitter.com"
}

func (c *TwitterClient) Send(ctx context.Context, cred model.ChannelCredential, msg Message) (string, error) {
	body := map[string]any{"text": msg.Body}
	if len(msg.Attachments) > 0 {
		ids := make([]string, 0, len(msg.Attachments))
		for _, a := range msg.Attachments {
			id, err := c.uploadMedia(ctx, cred, a)
			if err != nil {
				return "", err
			}
			ids = append(ids, id)
		}
		body["media"] = map[string]any{"media_ids": ids}
	}

	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	err := doJSON(ctx, c.HTTP, http.MethodPost, c.base()+"/2/tweets", cred.AccessToken, body, &out)
	if err != nil {
		return "", err
	}
	return out.Data.ID, nil
}

func (c *TwitterClient) uploadMedia(ctx context.Context, cred model.ChannelCredential, a Attachment) (string, error) {
	in := map[string]any{
		"media_category": "tweet_image",
		"media_type":     a.MIME,
		"media_data":     base64.StdEncoding.EncodeToString(a.Data),
	}
	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	err := doJSON(ctx, c.HTTP, http.MethodPost, c.base()+"/2/media/upload", cred.AccessToken, in, &out)
	if err != nil {
		return "", err
	}
	return out.Data.ID, nil
}

// Probe reads the authenticated user.
func (c *TwitterClient) Probe(ctx context.Context, cred model.ChannelCredential) error {
	return doJSON(ctx, c.HTTP, http.MethodGet, c.base()+"/2/users/me", cred.AccessToken, nil, nil)
}

func (c *TwitterClient) AuthURL(state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", c.ClientID)
	q.Set("redirect_uri", c.RedirectURL)
	q.Set("scope", "tweet.read tweet.write users.read offline.access")
	q.Set("state", state)
	q.Set("code_challenge", "challenge")
	q.Set("code_challenge_method", "plain")
	return "https://twitter.com/i/oauth2/authorize?" + q.Encode()
}

func (c *TwitterClient) Exchange(ctx context.Context, code string) (Tokens, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.RedirectURL)
	form.Set("code_verifier", "challenge")
	return c.token(ctx, form)
}

func (c *TwitterClient) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return c.token(ctx, form)
}

func (c *TwitterClient) token(ctx context.Context, form url.Values) (Tokens, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.base()+"/2/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return Tokens{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	basic := base64.StdEncoding.EncodeToString([]byte(c.ClientID + ":" + c.ClientSecret))
	req.Header.Set("Authorization", "Basic "+basic)

	return decodeTokenResponse(c.HTTP, req)
}

// decodeTokenResponse parses a standard OAuth2 token endpoint response.
func decodeTokenResponse(client *http.Client, req *http.Request) (Tokens, error) {
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Tokens{}, err
	}
	defer resp.Body.Close()

	var out struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
		Error        string `json:"error"`
		ErrorDesc    string `json:"error_description"`
	}
	if err := decodeJSONBody(resp, &out); err != nil {
		return Tokens{}, err
	}
	if out.Error != "" {
		return Tokens{}, &tokenError{code: out.Error, desc: out.ErrorDesc}
	}

	t := Tokens{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}
	if out.ExpiresIn > 0 {
		exp := time.Now().Add(time.Duration(out.ExpiresIn) * time.Second)
		t.ExpiresAt = &exp
	}
	return t, nil
}

type tokenError struct {
	code string
	desc string
}

func (e *tokenError) Error() string {
	if e.desc != "" {
		return e.code + ": " + e.desc
	}
	return e.code
}

var _ OAuthClient = (*TwitterClient)(nil)
