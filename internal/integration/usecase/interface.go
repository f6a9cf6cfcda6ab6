package usecase

import (
	"context"

	"github.com/apautomationai/sledge-ai-sub001/internal/integration/domain"
	"github.com/apautomationai/sledge-ai-sub001/internal/integration/dto"
)

// SyncUsecase defines the operations of the integration sync engine
type SyncUsecase interface {
	// RunPass executes one sync pass for the integration and returns the
	// structured outcome. The error is reserved for lookup failures before
	// the pass starts.
	RunPass(ctx context.Context, integrationID string) (*dto.SyncResponse, error)

	ConnectURL(provider, state string) (string, error)
	HandleCallback(ctx context.Context, provider, userID, code string) (*domain.Integration, error)

	GetIntegration(id string) (*domain.Integration, error)
	ListIntegrations(userID string) ([]*domain.Integration, error)
	ListActiveIntegrations() ([]*domain.Integration, error)
	Resume(id string) error
	Disconnect(id string) error
}
