package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/apautomationai/sledge-ai-sub001/internal/integration/domain"
	"github.com/apautomationai/sledge-ai-sub001/pkg/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
)

// oauthProviderConfig holds the consent-exchange config for one provider.
type oauthProviderConfig struct {
	conf *oauth2.Config
}

// OAuthConfigs builds the per-provider OAuth configs from the app config.
func OAuthConfigs(cfg *config.Config) map[string]oauthProviderConfig {
	return map[string]oauthProviderConfig{
		"gmail": {
			conf: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				RedirectURL:  cfg.GoogleRedirectURI,
				Endpoint:     google.Endpoint,
				Scopes: []string{
					"https://www.googleapis.com/auth/gmail.modify",
					"https://www.googleapis.com/auth/userinfo.email",
				},
			},
		},
		"outlook": {
			conf: &oauth2.Config{
				ClientID:     cfg.MicrosoftClientID,
				ClientSecret: cfg.MicrosoftClientSecret,
				RedirectURL:  cfg.MicrosoftRedirectURI,
				Endpoint:     microsoft.AzureADEndpoint("common"),
				Scopes:       []string{"offline_access", "Mail.ReadWrite", "User.Read"},
			},
		},
	}
}

// ConnectURL returns the provider consent URL for the OAuth redirect.
func (u *syncUsecase) ConnectURL(provider, state string) (string, error) {
	pc, ok := u.oauthConfigs[provider]
	if !ok {
		return "", fmt.Errorf("unsupported provider: %s", provider)
	}
	// access_type=offline + prompt=consent so Google returns a refresh token
	// on reconnect, not only on first consent. Microsoft ignores both.
	return pc.conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent")), nil
}

// HandleCallback exchanges the authorization code and creates or revives the
// (user, provider) integration row with a fresh checkpoint.
func (u *syncUsecase) HandleCallback(ctx context.Context, provider, userID, code string) (*domain.Integration, error) {
	pc, ok := u.oauthConfigs[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}

	token, err := pc.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %v", err)
	}

	email, providerID := fetchIdentity(ctx, provider, token)

	integration, err := u.integrationRepo.FindByUserAndProvider(userID, provider)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)

	if integration == nil {
		integration = &domain.Integration{
			UserID:       userID,
			Provider:     provider,
			Status:       domain.StatusSuccess,
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
			TokenExpiry:  token.Expiry,
			Email:        email,
			ProviderID:   providerID,
			Metadata: domain.Metadata{
				domain.MetaStartReading: now,
				domain.MetaLastRead:     now,
			},
		}
		if err := u.integrationRepo.Create(integration); err != nil {
			return nil, err
		}
		return integration, nil
	}

	integration.Status = domain.StatusSuccess
	integration.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		integration.RefreshToken = token.RefreshToken
	}
	integration.TokenExpiry = token.Expiry
	if email != "" {
		integration.Email = email
	}
	if providerID != "" {
		integration.ProviderID = providerID
	}
	if integration.Metadata == nil {
		integration.Metadata = domain.Metadata{}
	}
	// Reconnect keeps an existing checkpoint; only a first connect seeds one.
	if domain.ParseInstant(integration.Metadata[domain.MetaLastRead]).IsZero() {
		integration.Metadata[domain.MetaStartReading] = now
		integration.Metadata[domain.MetaLastRead] = now
	}
	delete(integration.Metadata, domain.MetaLastErrorMessage)
	delete(integration.Metadata, domain.MetaLastErrorAt)

	if err := u.integrationRepo.Update(integration); err != nil {
		return nil, err
	}
	return integration, nil
}

// fetchIdentity resolves the mailbox address and provider user ID behind a
// fresh token. Best-effort: a failure leaves both empty, the integration
// still works without them.
func fetchIdentity(ctx context.Context, provider string, token *oauth2.Token) (string, string) {
	switch provider {
	case "gmail":
		idToken, _ := token.Extra("id_token").(string)
		if idToken == "" {
			return "", ""
		}
		resp, err := http.Get("https://oauth2.googleapis.com/tokeninfo?id_token=" + idToken)
		if err != nil || resp.StatusCode != http.StatusOK {
			if resp != nil {
				resp.Body.Close()
			}
			return "", ""
		}
		defer resp.Body.Close()
		var info struct {
			Email string `json:"email"`
			Sub   string `json:"sub"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
			return "", ""
		}
		return info.Email, info.Sub
	case "outlook":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://graph.microsoft.com/v1.0/me", nil)
		if err != nil {
			return "", ""
		}
		req.Header.Set("Authorization", "Bearer "+token.AccessToken)
		resp, err := http.DefaultClient.Do(req)
		if err != nil || resp.StatusCode != http.StatusOK {
			if resp != nil {
				resp.Body.Close()
			}
			return "", ""
		}
		defer resp.Body.Close()
		var info struct {
			ID                string `json:"id"`
			Mail              string `json:"mail"`
			UserPrincipalName string `json:"userPrincipalName"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
			return "", ""
		}
		email := info.Mail
		if email == "" {
			email = info.UserPrincipalName
		}
		return email, info.ID
	}
	return "", ""
}
