package usecase

import (
	"log"
	"time"

	"github.com/apautomationai/sledge-ai-sub001/internal/integration/domain"
	"github.com/apautomationai/sledge-ai-sub001/internal/integration/repository"
)

// healthUpdater turns sync outcomes into integration health and persists
// checkpoint updates.
type healthUpdater struct {
	integrationRepo repository.IntegrationRepository
}

func newHealthUpdater(integrationRepo repository.IntegrationRepository) *healthUpdater {
	return &healthUpdater{
		integrationRepo: integrationRepo,
	}
}

// Pause flips the integration to paused with a user-actionable message and
// marks the outcome. The repository makes the transition idempotent.
func (h *healthUpdater) Pause(integrationID, message string, outcome *domain.SyncOutcome) {
	outcome.Paused = true
	if err := h.integrationRepo.Pause(integrationID, message); err != nil {
		log.Printf("[SyncEngine] Failed to pause integration %s: %v", integrationID, err)
	}
}

// AdvanceCheckpoint folds the pass result into the integration metadata.
// lastRead only moves forward as far as work actually completed; lastReadAt
// always records that a pass ran, even a partially failed one.
func (h *healthUpdater) AdvanceCheckpoint(integrationID string, lastRead time.Time, storedAny bool) error {
	now := time.Now().UTC().Format(time.RFC3339)

	patch := domain.Metadata{
		domain.MetaLastReadAt: now,
	}
	if !lastRead.IsZero() {
		patch[domain.MetaLastRead] = lastRead.UTC().Format(time.RFC3339)
	}
	if storedAny {
		patch[domain.MetaLastProcessedAt] = now
	}

	return h.integrationRepo.MergeMetadata(integrationID, patch)
}
