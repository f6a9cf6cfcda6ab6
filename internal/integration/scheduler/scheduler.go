package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/apautomationai/sledge-ai-sub001/internal/integration/usecase"

	"github.com/go-co-op/gocron"
)

// SyncScheduler runs periodic sync passes over every active integration.
// Passes run sequentially inside one job, which is what guarantees the
// at-most-one-concurrent-pass-per-integration assumption the engine makes.
type SyncScheduler struct {
	scheduler   *gocron.Scheduler
	syncUsecase usecase.SyncUsecase
	interval    time.Duration
}

// NewSyncScheduler creates a new scheduler
func NewSyncScheduler(syncUsecase usecase.SyncUsecase, interval time.Duration) *SyncScheduler {
	return &SyncScheduler{
		scheduler:   gocron.NewScheduler(time.UTC),
		syncUsecase: syncUsecase,
		interval:    interval,
	}
}

// Start begins the scheduler loop
func (s *SyncScheduler) Start() {
	log.Printf("[Scheduler] Starting sync scheduler (interval: %s)", s.interval)

	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.runAll)
	if err != nil {
		log.Printf("[Scheduler] Error scheduling sync job: %v", err)
		return
	}

	s.scheduler.StartAsync()
}

// Stop halts all scheduled jobs
func (s *SyncScheduler) Stop() {
	log.Println("[Scheduler] Stopping sync scheduler")
	s.scheduler.Stop()
}

// runAll executes one pass per active integration, continuing past per-row
// failures so one broken mailbox cannot stall the rest.
func (s *SyncScheduler) runAll() {
	integrations, err := s.syncUsecase.ListActiveIntegrations()
	if err != nil {
		log.Printf("[Scheduler] Error finding active integrations: %v", err)
		return
	}

	if len(integrations) == 0 {
		return
	}

	log.Printf("[Scheduler] Running sync pass for %d active integrations", len(integrations))

	for _, integration := range integrations {
		resp, err := s.syncUsecase.RunPass(context.Background(), integration.ID)
		if err != nil {
			log.Printf("[Scheduler] Sync pass for integration %s failed: %v", integration.ID, err)
			continue
		}
		log.Printf("[Scheduler] Integration %s: %s (stored=%d duplicates=%d failures=%d)",
			integration.ID, resp.Message, resp.Metadata.StoredAttachments,
			resp.Metadata.DuplicatesSkipped, len(resp.Metadata.Failures))
	}
}
