package dto

import (
	"github.com/apautomationai/sledge-ai-sub001/internal/integration/domain"
)

// SyncResponse is the caller-facing result of one sync pass. The caller
// always receives this structured shape, never a bare error, so a dashboard
// can render stored/duplicate/failure counts even for a bad pass.
type SyncResponse struct {
	Success  bool                      `json:"success"`
	Message  string                    `json:"message"`
	Data     []domain.StoredAttachment `json:"data"`
	Metadata *domain.SyncOutcome       `json:"metadata"`
}

type IntegrationsResponse struct {
	Integrations []*domain.Integration `json:"integrations"`
}
