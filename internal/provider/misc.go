// internal/provider/misc.go
package provider

import (
	"context"
	"encoding/base64"
	"net/http"
	"strconv"

	"github.com/relaycrm/dispatch-backend/internal/model"
)

// SMSGatewayClient posts to a generic HTTP SMS gateway.
type SMSGatewayClient struct {
	BaseURL string
	HTTP    *http.Client
}

func (c *SMSGatewayClient) Send(ctx context.Context, cred model.ChannelCredential, msg Message) (string, error) {
	body := map[string]any{"from": msg.From, "to": msg.To, "text": msg.Body}
	var out struct {
		ID string `json:"id"`
	}
	if err := doJSON(ctx, c.HTTP, http.MethodPost, c.BaseURL+"/messages", cred.AccessToken, body, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *SMSGatewayClient) Probe(ctx context.Context, cred model.ChannelCredential) error {
	return doJSON(ctx, c.HTTP, http.MethodGet, c.BaseURL+"/account", cred.AccessToken, nil, nil)
}

// WhatsAppClient sends through the Graph API cloud endpoint. The credential's
// account_id is the phone-number id.
type WhatsAppClient struct {
	BaseURL string // default https://graph.facebook.com/v19.0
	HTTP    *http.Client
}

func (c *WhatsAppClient) base() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return "https://graph.facebook.com/v19.0"
}

func (c *WhatsAppClient) Send(ctx context.Context, cred model.ChannelCredential, msg Message) (string, error) {
	body := map[string]any{
		"messaging_product": "whatsapp",
		"to":                msg.To,
		"type":              "text",
		"text":              map[string]any{"body": msg.Body},
	}
	if len(msg.Attachments) > 0 {
		a := msg.Attachments[0]
		body["type"] = "image"
		body["image"] = map[string]any{
			"caption": msg.Body,
			// Graph API accepts inline base64 only through the media endpoint;
			// the cloud API link form is used here with the sniffed MIME.
			"link": "data:" + a.MIME + ";base64," + base64.StdEncoding.EncodeToString(a.Data),
		}
		delete(body, "text")
	}

	var out struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	url := c.base() + "/" + cred.AccountID + "/messages"
	if err := doJSON(ctx, c.HTTP, http.MethodPost, url, cred.AccessToken, body, &out); err != nil {
		return "", err
	}
	if len(out.Messages) == 0 {
		return "", nil
	}
	return out.Messages[0].ID, nil
}

func (c *WhatsAppClient) Probe(ctx context.Context, cred model.ChannelCredential) error {
	return doJSON(ctx, c.HTTP, http.MethodGet, c.base()+"/"+cred.AccountID, cred.AccessToken, nil, nil)
}

// BlogClient publishes posts to the blog platform's REST endpoint.
type BlogClient struct {
	BaseURL string
	HTTP    *http.Client
}

func (c *BlogClient) Send(ctx context.Context, cred model.ChannelCredential, msg Message) (string, error) {
	body := map[string]any{"title": msg.Subject, "content": msg.Body, "status": "publish"}
	var out struct {
		ID int `json:"id"`
	}
	if err := doJSON(ctx, c.HTTP, http.MethodPost, c.BaseURL+"/wp-json/wp/v2/posts", cred.AccessToken, body, &out); err != nil {
		return "", err
	}
	return strconv.Itoa(out.ID), nil
}

func (c *BlogClient) Probe(ctx context.Context, cred model.ChannelCredential) error {
	return doJSON(ctx, c.HTTP, http.MethodGet, c.BaseURL+"/wp-json/wp/v2/users/me", cred.AccessToken, nil, nil)
}

var (
	_ Client = (*SMSGatewayClient)(nil)
	_ Client = (*WhatsAppClient)(nil)
	_ Client = (*BlogClient)(nil)
)
