package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apautomationai/sledge-ai-sub001/internal/integration/domain"
	"github.com/apautomationai/sledge-ai-sub001/internal/integration/repository"
	"github.com/apautomationai/sledge-ai-sub001/pkg/mailprovider"
)

// A token is considered unusable this close to (or past) its expiry.
const tokenExpirySkew = 60 * time.Second

// tokenManager keeps an integration's OAuth credential usable, refreshing
// lazily and at most once per pass.
type tokenManager struct {
	integrationRepo repository.IntegrationRepository
	health          *healthUpdater
}

func newTokenManager(integrationRepo repository.IntegrationRepository, health *healthUpdater) *tokenManager {
	return &tokenManager{
		integrationRepo: integrationRepo,
		health:          health,
	}
}

// EnsureUsable returns an access token good for the rest of the pass, or an
// error that is fatal for this pass. An auth-fatal refresh failure also
// pauses the integration; any other refresh failure leaves it active so a
// future pass can retry.
func (m *tokenManager) EnsureUsable(ctx context.Context, provider mailprovider.Provider, integration *domain.Integration, outcome *domain.SyncOutcome) (string, error) {
	if integration.AccessToken != "" && time.Until(integration.TokenExpiry) > tokenExpirySkew {
		return integration.AccessToken, nil
	}

	if integration.RefreshToken == "" {
		return "", errors.New("access token expired and no refresh token is available")
	}

	tokens, err := provider.RefreshToken(ctx, integration.RefreshToken)
	if err != nil {
		cause := ExtractMessage(err)
		outcome.AddFailure(domain.StageTokenRefresh, "", cause)
		if IsAuthFatal(err) {
			m.health.Pause(integration.ID, "Mailbox connection expired, please reconnect: "+cause, outcome)
		}
		return "", fmt.Errorf("token refresh failed: %s", cause)
	}

	integration.AccessToken = tokens.AccessToken
	if tokens.RefreshToken != "" {
		integration.RefreshToken = tokens.RefreshToken
	}
	integration.TokenExpiry = tokens.Expiry

	if err := m.integrationRepo.UpdateTokens(integration.ID, tokens.AccessToken, tokens.RefreshToken, tokens.Expiry); err != nil {
		// The refreshed token still works for this pass; only persistence lagged.
		outcome.AddFailure(domain.StageTokenRefresh, "", "failed to persist refreshed token: "+err.Error())
	} else if err := m.integrationRepo.MergeMetadata(integration.ID, domain.Metadata{
		domain.MetaLastErrorMessage: nil,
		domain.MetaLastErrorAt:      nil,
	}); err != nil {
		outcome.AddFailure(domain.StageTokenRefresh, "", "failed to clear error state: "+err.Error())
	}

	outcome.TokenRefreshed = true
	return tokens.AccessToken, nil
}
