// internal/provider/unipile.go
package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/relaycrm/dispatch-backend/internal/model"
)

// UnipileClient speaks to the Unipile aggregator, which fronts LinkedIn
// messaging through hosted authentication rather than a raw OAuth grant.
type UnipileClient struct {
	BaseURL     string
	APIKey      string
	RedirectURL string
	HTTP        *http.Client
}

func (c *UnipileClient) Send(ctx context.Context, cred model.ChannelCredential, msg Message) (string, error) {
	body := map[string]any{
		"account_id":    cred.AccountID,
		"attendees_ids": []string{msg.To},
		"text":          msg.Body,
	}
	var out struct {
		ChatID string `json:"chat_id"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/chats", body, &out)
	if err != nil {
		return "", err
	}
	return out.ChatID, nil
}

// Probe lists the connected account, a read-only call.
func (c *UnipileClient) Probe(ctx context.Context, cred model.ChannelCredential) error {
	if cred.AccountID == "" {
		return fmt.Errorf("no unipile account connected")
	}
	return c.do(ctx, http.MethodGet, "/api/v1/accounts/"+cred.AccountID, nil, nil)
}

// AuthURL returns the hosted-auth wizard link. Unipile reports the connected
// account through a status webhook instead of an OAuth code exchange.
func (c *UnipileClient) AuthURL(state string) string {
	q := url.Values{}
	q.Set("redirect_url", c.RedirectURL)
	q.Set("state", state)
	return c.BaseURL + "/hosted/accounts/link?" + q.Encode()
}

// Exchange is a no-op for hosted auth; the account id arrives via webhook.
func (c *UnipileClient) Exchange(ctx context.Context, code string) (Tokens, error) {
	return Tokens{AccessToken: code}, nil
}

// Refresh is not supported by hosted auth; the wizard has to be rerun.
func (c *UnipileClient) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	return Tokens{}, fmt.Errorf("unipile accounts reconnect through the hosted wizard")
}

func (c *UnipileClient) do(ctx context.Context, method, path string, in, out any) error {
	// Unipile authenticates with a static X-API-KEY, not a bearer token.
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	req, err := newJSONRequest(ctx, method, c.BaseURL+path, in)
	if err != nil {
		return err
	}
	req.Header.Set("X-API-KEY", c.APIKey)
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeJSONBody(resp, out)
}

var _ OAuthClient = (*UnipileClient)(nil)
