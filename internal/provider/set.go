// internal/provider/set.go
package provider

import "net/http"

// SetConfig carries the per-provider endpoints and app secrets the wire
// clients need. Everything is optional; a channel with no configuration still
// gets a client and fails at call time with the provider's own error.
type SetConfig struct {
	HTTP *http.Client

	LinkedInClientID     string
	LinkedInClientSecret string
	LinkedInRedirectURL  string

	TwitterClientID     string
	TwitterClientSecret string
	TwitterRedirectURL  string

	UnipileBaseURL     string
	UnipileAPIKey      string
	UnipileRedirectURL string

	SMSGatewayURL   string
	WhatsAppBaseURL string
	BlogBaseURL     string
}

// NewSet wires one client per channel. All clients share the one HTTP client
// so connection pooling and timeouts are uniform.
func NewSet(cfg SetConfig) Set {
	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return Set{
		Email:    &SMTPClient{},
		SMS:      &SMSGatewayClient{BaseURL: cfg.SMSGatewayURL, HTTP: httpClient},
		WhatsApp: &WhatsAppClient{BaseURL: cfg.WhatsAppBaseURL, HTTP: httpClient},
		Telegram: &TelegramClient{},
		Twitter: &TwitterClient{
			ClientID:     cfg.TwitterClientID,
			ClientSecret: cfg.TwitterClientSecret,
			RedirectURL:  cfg.TwitterRedirectURL,
			HTTP:         httpClient,
		},
		LinkedIn: &LinkedInClient{
			ClientID:     cfg.LinkedInClientID,
			ClientSecret: cfg.LinkedInClientSecret,
			RedirectURL:  cfg.LinkedInRedirectURL,
			HTTP:         httpClient,
		},
		Unipile: &UnipileClient{
			BaseURL:     cfg.UnipileBaseURL,
			APIKey:      cfg.UnipileAPIKey,
			RedirectURL: cfg.UnipileRedirectURL,
			HTTP:        httpClient,
		},
		Blog: &BlogClient{BaseURL: cfg.BlogBaseURL, HTTP: httpClient},
	}
}
