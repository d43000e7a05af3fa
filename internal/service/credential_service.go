// internal/service/credential_service.go
package service

import (
	"context"

	"github.com/rs/zerolog"

	appErrors "github.com/relaycrm/dispatch-backend/internal/errors"
	"github.com/relaycrm/dispatch-backend/internal/model"
	"github.com/relaycrm/dispatch-backend/internal/observability"
	"github.com/relaycrm/dispatch-backend/internal/provider"
	"github.com/relaycrm/dispatch-backend/internal/repository"
)

// CredentialService owns the credential lifecycle: health checks against the
// live provider, token refresh, and the OAuth callback handshake. Status
// transitions are last-write-wins; two overlapping checks may race and the
// later UPDATE sticks.
type CredentialService struct {
	Credentials repository.CredentialRepositoryInterface
	Providers   provider.Set
	Log         zerolog.Logger
}

// Check probes one channel's credential and persists the resulting status.
// A missing or incomplete credential lands on disconnected, a failed probe on
// invalid with the provider's error text, a successful probe on active.
func (s *CredentialService) Check(ctx context.Context, channel model.Channel) error {
	cred, err := s.Credentials.GetByChannel(channel)
	if err != nil {
		return appErrors.NewStoreUnavailable(err)
	}
	if cred == nil {
		observability.CredentialChecks.WithLabelValues(channel.String(), string(model.CredentialDisconnected)).Inc()
		return appErrors.NewCredential(channel.String(), "no credential configured")
	}
	if !cred.Complete() {
		s.setStatus(cred, model.CredentialDisconnected, "credential is missing required fields")
		return appErrors.NewCredential(channel.String(), "credential is missing required fields")
	}
	client := s.Providers.ForChannel(channel)
	if err := client.Probe(ctx, *cred); err != nil {
		s.setStatus(cred, model.CredentialInvalid, err.Error())
		return appErrors.NewCredential(channel.String(), "health check failed: %v", err)
	}
	s.setStatus(cred, model.CredentialActive, "")
	return nil
}

// CheckAll probes every stored credential. Failures are collected per
// channel; a channel with no stored credential simply does not appear.
func (s *CredentialService) CheckAll(ctx context.Context) map[model.Channel]error {
	creds, err := s.Credentials.List()
	if err != nil {
		s.Log.Error().Err(err).Msg("credential check sweep: listing credentials failed")
		return nil
	}
	results := map[model.Channel]error{}
	for _, cred := range creds {
		results[cred.Channel] = s.Check(ctx, cred.Channel)
	}
	return results
}

// Require loads the channel's credential for a send. It does not probe; a
// stale active status is caught by the send itself.
func (s *CredentialService) Require(ctx context.Context, channel model.Channel) (*model.ChannelCredential, error) {
	cred, err := s.Credentials.GetByChannel(channel)
	if err != nil {
		return nil, appErrors.NewStoreUnavailable(err)
	}
	if cred == nil || !cred.Complete() {
		return nil, appErrors.NewCredential(channel.String(), "channel is not connected")
	}
	return cred, nil
}

// EnsureFresh refreshes the channel's access token in place before a send.
// Twitter access tokens expire within hours, so the post path calls this
// unconditionally rather than tracking expiry.
func (s *CredentialService) EnsureFresh(ctx context.Context, channel model.Channel) error {
	oc, err := s.oauth(channel)
	if err != nil {
		return err
	}
	cred, err := s.Require(ctx, channel)
	if err != nil {
		return err
	}
	if cred.RefreshToken == "" {
		return nil
	}
	tokens, err := oc.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		s.setStatus(cred, model.CredentialInvalid, err.Error())
		return appErrors.NewCredential(channel.String(), "token refresh failed: %v", err)
	}
	if err := s.Credentials.SaveTokens(channel, tokens.AccessToken, tokens.RefreshToken, tokens.ExpiresAt, model.CredentialActive); err != nil {
		return appErrors.NewStoreUnavailable(err)
	}
	return nil
}

// RefreshOrAuthURL repairs a channel's credential. With a refresh token on
// file it refreshes silently and returns an empty URL; otherwise it returns
// the authorization URL the operator must visit to re-grant access.
func (s *CredentialService) RefreshOrAuthURL(ctx context.Context, channel model.Channel) (string, error) {
	oc, err := s.oauth(channel)
	if err != nil {
		return "", err
	}
	cred, err := s.Credentials.GetByChannel(channel)
	if err != nil {
		return "", appErrors.NewStoreUnavailable(err)
	}
	if cred != nil && cred.RefreshToken != "" {
		if err := s.EnsureFresh(ctx, channel); err == nil {
			return "", nil
		}
		// fall through to an interactive grant when the refresh token is dead
	}
	return oc.AuthURL(repository.NewULID()), nil
}

// StoreCallbackTokens completes the OAuth callback: it trades the code for
// tokens and persists them as disconnected, pending the first health check.
func (s *CredentialService) StoreCallbackTokens(ctx context.Context, channel model.Channel, code string) error {
	oc, err := s.oauth(channel)
	if err != nil {
		return err
	}
	tokens, err := oc.Exchange(ctx, code)
	if err != nil {
		return appErrors.NewCredential(channel.String(), "code exchange failed: %v", err)
	}
	if err := s.Credentials.SaveTokens(channel, tokens.AccessToken, tokens.RefreshToken, tokens.ExpiresAt, model.CredentialDisconnected); err != nil {
		return appErrors.NewStoreUnavailable(err)
	}
	s.Log.Info().Str("channel", channel.String()).Msg("stored callback tokens")
	return nil
}

// StoreAccount records the externally assigned account id for a channel whose
// connection completes out of band (the Unipile hosted wizard reports it via
// webhook).
func (s *CredentialService) StoreAccount(ctx context.Context, channel model.Channel, accountID string) error {
	if err := s.Credentials.SaveAccount(channel, accountID, model.CredentialDisconnected); err != nil {
		return appErrors.NewStoreUnavailable(err)
	}
	s.Log.Info().Str("channel", channel.String()).Str("account_id", accountID).Msg("stored webhook account")
	return nil
}

func (s *CredentialService) oauth(channel model.Channel) (provider.OAuthClient, error) {
	if !channel.IsOAuth() {
		return nil, appErrors.NewCredential(channel.String(), "channel does not use an oauth grant")
	}
	oc, ok := s.Providers.ForChannel(channel).(provider.OAuthClient)
	if !ok {
		return nil, appErrors.NewCredential(channel.String(), "no oauth client configured")
	}
	return oc, nil
}

func (s *CredentialService) setStatus(cred *model.ChannelCredential, status model.CredentialStatus, errorMessage string) {
	observability.CredentialChecks.WithLabelValues(cred.Channel.String(), string(status)).Inc()
	if err := s.Credentials.UpdateStatus(cred.ID, status, errorMessage); err != nil {
		s.Log.Error().Err(err).Str("channel", cred.Channel.String()).Msg("persisting credential status failed")
	}
}
