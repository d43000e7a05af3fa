// internal/controller/dispatch_controller.go
package controller

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	appErrors "github.com/relaycrm/dispatch-backend/internal/errors"
	"github.com/relaycrm/dispatch-backend/internal/model"
	"github.com/relaycrm/dispatch-backend/internal/service"
)

// DispatchController exposes the send-to-channels surface: the dispatch entry
// point, the credential health sweep and the provider OAuth callbacks.
type DispatchController struct {
	Dispatcher     *service.DispatchService
	Credentials    *service.CredentialService
	HealthCheckURL string
	Log            zerolog.Logger
}

// Routes mounts every endpoint under /send-to-channels.
func (c *DispatchController) Routes(r chi.Router) {
	r.Post("/send-to-channels", c.SendToChannels)
	r.Get("/send-to-channels/health-check", c.HealthCheck)

	r.Get("/send-to-channels/get-callback-linkedin", c.getCallback(model.ChannelLinkedIn))
	r.Get("/send-to-channels/get-callback-twitter", c.getCallback(model.ChannelTwitter))
	r.Get("/send-to-channels/get-callback-unipile", c.getCallback(model.ChannelUnipile))

	// Providers differ on redirect method, so both verbs land here.
	r.HandleFunc("/send-to-channels/callback/linkedin", c.callback(model.ChannelLinkedIn))
	r.HandleFunc("/send-to-channels/callback/twitter", c.callback(model.ChannelTwitter))
	r.HandleFunc("/send-to-channels/callback/unipile", c.callback(model.ChannelUnipile))
	r.HandleFunc("/send-to-channels/callback/status-unipile", c.UnipileStatus)
}

// SendToChannels runs one dispatch request. Success answers 200 with a bare
// boolean; failures answer the taxonomy's status with {message}.
func (c *DispatchController) SendToChannels(w http.ResponseWriter, r *http.Request) {
	var req model.DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}

	res := c.Dispatcher.Dispatch(r.Context(), req)
	if !res.Success {
		writeMessage(w, res.Status, res.Message)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(true)
}

// HealthCheck sweeps every stored credential. The response is always 200;
// per-channel outcomes travel in the body.
func (c *DispatchController) HealthCheck(w http.ResponseWriter, r *http.Request) {
	results := c.Credentials.CheckAll(r.Context())
	body := map[string]string{}
	for ch, err := range results {
		if err != nil {
			body[ch.String()] = err.Error()
			continue
		}
		body[ch.String()] = "active"
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

// getCallback refreshes the channel's credential in place when possible,
// otherwise returns the authorization URL the operator must visit.
func (c *DispatchController) getCallback(ch model.Channel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		url, err := c.Credentials.RefreshOrAuthURL(r.Context(), ch)
		if err != nil {
			writeMessage(w, appErrors.HTTPStatus(err), err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if url == "" {
			json.NewEncoder(w).Encode(map[string]string{"message": "credential refreshed"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"url": url})
	}
}

// callback receives the provider redirect, trades the code for tokens and
// bounces the operator to the health-check page so the fresh status is
// visible immediately.
func (c *DispatchController) callback(ch model.Channel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			code = r.FormValue("code")
		}
		if err := c.Credentials.StoreCallbackTokens(r.Context(), ch, code); err != nil {
			c.Log.Error().Err(err).Str("channel", ch.String()).Msg("oauth callback failed")
			writeMessage(w, appErrors.HTTPStatus(err), err.Error())
			return
		}
		http.Redirect(w, r, c.HealthCheckURL, http.StatusFound)
	}
}

// UnipileStatus is the hosted-auth webhook: Unipile reports the connected
// account id here once the operator finishes the wizard.
func (c *DispatchController) UnipileStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AccountID string `json:"account_id"`
		Status    string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}
	if body.AccountID == "" {
		writeMessage(w, http.StatusBadRequest, "account_id is required")
		return
	}
	if err := c.Credentials.StoreAccount(r.Context(), model.ChannelUnipile, body.AccountID); err != nil {
		writeMessage(w, appErrors.HTTPStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
