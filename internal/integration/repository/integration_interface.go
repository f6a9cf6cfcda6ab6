package repository

import (
	"time"

	"github.com/apautomationai/sledge-ai-sub001/internal/integration/domain"
)

// IntegrationRepository is the checkpoint store: the integration row is the
// sole source of truth for where a mailbox sync left off.
type IntegrationRepository interface {
	Create(integration *domain.Integration) error
	FindByID(id string) (*domain.Integration, error)
	FindByUserAndProvider(userID, provider string) (*domain.Integration, error)
	FindActive() ([]*domain.Integration, error)
	Update(integration *domain.Integration) error
	UpdateTokens(id, accessToken, refreshToken string, expiry time.Time) error
	MergeMetadata(id string, patch domain.Metadata) error
	Pause(id, message string) error
	Resume(id string) error
	Disconnect(id string) error
}
