package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/apautomationai/sledge-ai-sub001/internal/integration/domain"
	"github.com/apautomationai/sledge-ai-sub001/internal/integration/dto"
	"github.com/apautomationai/sledge-ai-sub001/internal/integration/repository"
	"github.com/apautomationai/sledge-ai-sub001/pkg/mailprovider"
	"github.com/apautomationai/sledge-ai-sub001/pkg/queue"
	"github.com/apautomationai/sledge-ai-sub001/pkg/storage"
)

// syncUsecase implements SyncUsecase interface
type syncUsecase struct {
	integrationRepo repository.IntegrationRepository
	attachmentRepo  repository.AttachmentRepository
	providers       map[string]mailprovider.Provider
	tokens          *tokenManager
	dedup           *deduplicator
	persist         *persister
	health          *healthUpdater
	oauthConfigs    map[string]oauthProviderConfig
	keyword         string
}

// NewSyncUsecase creates a new instance of syncUsecase. Providers are keyed
// by their Name(); one adapter instance serves every integration of that
// provider.
func NewSyncUsecase(
	integrationRepo repository.IntegrationRepository,
	attachmentRepo repository.AttachmentRepository,
	providers []mailprovider.Provider,
	uploader storage.Uploader,
	enqueuer queue.Enqueuer,
	oauthConfigs map[string]oauthProviderConfig,
	keyword string,
) SyncUsecase {
	providerMap := make(map[string]mailprovider.Provider, len(providers))
	for _, p := range providers {
		providerMap[p.Name()] = p
	}

	health := newHealthUpdater(integrationRepo)
	return &syncUsecase{
		integrationRepo: integrationRepo,
		attachmentRepo:  attachmentRepo,
		providers:       providerMap,
		tokens:          newTokenManager(integrationRepo, health),
		dedup:           newDeduplicator(attachmentRepo),
		persist:         newPersister(attachmentRepo, uploader, enqueuer),
		health:          health,
		oauthConfigs:    oauthConfigs,
		keyword:         keyword,
	}
}

// RunPass drives one end-to-end sync pass for an integration. The returned
// response is always structured; the error is reserved for lookup failures
// before the pass could start.
func (u *syncUsecase) RunPass(ctx context.Context, integrationID string) (*dto.SyncResponse, error) {
	integration, err := u.integrationRepo.FindByID(integrationID)
	if err != nil {
		return nil, err
	}
	if integration == nil {
		return nil, fmt.Errorf("integration %s not found", integrationID)
	}

	outcome := &domain.SyncOutcome{}

	// Precondition: the engine never guesses a starting point.
	checkpoint := domain.ParseInstant(integration.Metadata[domain.MetaLastRead])
	if checkpoint.IsZero() {
		outcome.ErrorMessage = "No last read date"
		return failResponse(outcome, "No last read date"), nil
	}

	provider, ok := u.providers[integration.Provider]
	if !ok {
		outcome.ErrorMessage = "unsupported provider: " + integration.Provider
		return failResponse(outcome, outcome.ErrorMessage), nil
	}

	token, err := u.tokens.EnsureUsable(ctx, provider, integration, outcome)
	if err != nil {
		outcome.ErrorMessage = err.Error()
		return failResponse(outcome, err.Error()), nil
	}

	refs, err := provider.ListMessages(ctx, token, mailprovider.ListFilter{
		Since:   checkpoint,
		Keyword: u.keyword,
	})
	if err != nil {
		cause := ExtractMessage(err)
		outcome.AddFailure(domain.StageListing, "", cause)
		if IsAuthFatal(err) {
			u.health.Pause(integration.ID, "Mailbox connection expired, please reconnect: "+cause, outcome)
		}
		outcome.ErrorMessage = cause
		return failResponse(outcome, cause), nil
	}
	outcome.MessagesSeen = len(refs)

	stored := make([]domain.StoredAttachment, 0)

	// Watermark bookkeeping: lastRead may only advance past messages that
	// completed, and never past one that failed and could be retried.
	var maxProcessed, minFailed time.Time
	failedUnknownTime := false
	markFailed := func(t time.Time) {
		if t.IsZero() {
			failedUnknownTime = true
			return
		}
		if minFailed.IsZero() || t.Before(minFailed) {
			minFailed = t
		}
	}

	fatal := false
	for _, ref := range refs {
		if ctx.Err() != nil {
			break
		}

		msg, err := provider.GetMessage(ctx, token, ref.ID)
		if err != nil {
			cause := ExtractMessage(err)
			outcome.AddFailure(domain.StageMessage, ref.ID, cause)
			if IsAuthFatal(err) {
				u.health.Pause(integration.ID, "Mailbox connection expired, please reconnect: "+cause, outcome)
				outcome.ErrorMessage = cause
				fatal = true
				break
			}
			markFailed(ref.ReceivedAt)
			continue
		}

		messageFailed := false
		for _, part := range msg.Attachments {
			if ctx.Err() != nil {
				messageFailed = true
				break
			}
			outcome.AttachmentsSeen++

			hashID := Fingerprint(msg.ID, part.Filename, part.MimeType, part.Size)
			exists, err := u.dedup.Exists(hashID, integration.UserID)
			if err != nil {
				outcome.AddFailure(domain.StageAttachment, msg.ID, err.Error())
				messageFailed = true
				continue
			}
			if exists {
				outcome.DuplicatesSkipped++
				continue
			}

			data, err := provider.GetAttachmentBytes(ctx, token, msg.ID, part.PartID)
			if err != nil {
				cause := ExtractMessage(err)
				outcome.AddFailure(domain.StageAttachment, msg.ID, cause)
				if IsAuthFatal(err) {
					u.health.Pause(integration.ID, "Mailbox connection expired, please reconnect: "+cause, outcome)
					outcome.ErrorMessage = cause
					fatal = true
					break
				}
				messageFailed = true
				continue
			}

			attachment := &domain.Attachment{
				HashID:   hashID,
				UserID:   integration.UserID,
				EmailID:  msg.ID,
				Filename: part.Filename,
				MimeType: part.MimeType,
				Sender:   msg.Sender,
				Receiver: msg.Receiver,
				Provider: integration.Provider,
			}

			wasStored, err := u.persist.Persist(ctx, data, attachment)
			if err != nil {
				outcome.AddFailure(domain.StageAttachment, msg.ID, ExtractMessage(err))
				messageFailed = true
			}
			if wasStored {
				outcome.StoredAttachments++
				stored = append(stored, domain.StoredAttachment{
					HashID:   attachment.HashID,
					EmailID:  attachment.EmailID,
					Filename: attachment.Filename,
					MimeType: attachment.MimeType,
					Sender:   attachment.Sender,
					Receiver: attachment.Receiver,
					FileURL:  attachment.FileURL,
					FileKey:  attachment.FileKey,
					Provider: attachment.Provider,
				})
			}
		}
		if fatal {
			break
		}
		if ctx.Err() != nil {
			messageFailed = true
		}

		if messageFailed {
			markFailed(msg.ReceivedAt)
			continue
		}

		outcome.MessagesProcessed++
		if msg.ReceivedAt.After(maxProcessed) {
			maxProcessed = msg.ReceivedAt
		}

		// Best-effort: failures here are recorded but never escalate.
		if len(msg.Attachments) > 0 {
			if err := provider.MarkRead(ctx, token, msg.ID); err != nil {
				outcome.AddFailure(domain.StageMarkRead, msg.ID, ExtractMessage(err))
			}
		}
	}

	if !fatal {
		// Partial progress must be visible to the next pass, so the
		// checkpoint update runs even when individual items failed (and on
		// cancellation).
		candidate := maxProcessed
		if failedUnknownTime {
			candidate = time.Time{}
		} else if !minFailed.IsZero() && !candidate.IsZero() && !minFailed.After(candidate) {
			candidate = minFailed.Add(-time.Second)
		}
		newLastRead := checkpoint
		if candidate.After(newLastRead) {
			newLastRead = candidate
		}
		if err := u.health.AdvanceCheckpoint(integration.ID, newLastRead, outcome.StoredAttachments > 0); err != nil {
			outcome.AddFailure(domain.StageCheckpoint, "", err.Error())
			log.Printf("[SyncEngine] Failed to advance checkpoint for integration %s: %v", integration.ID, err)
		}
	}

	return classify(outcome, stored), nil
}

// classify applies the result rules: a pass succeeds when it stored
// something, or when it cleanly found nothing new but saw duplicates.
func classify(outcome *domain.SyncOutcome, stored []domain.StoredAttachment) *dto.SyncResponse {
	if outcome.Paused || outcome.ErrorMessage != "" {
		message := outcome.ErrorMessage
		if message == "" {
			message = "Email sync failed"
		}
		return &dto.SyncResponse{
			Success:  false,
			Message:  message,
			Data:     stored,
			Metadata: outcome,
		}
	}

	switch {
	case outcome.StoredAttachments > 0:
		return &dto.SyncResponse{
			Success:  true,
			Message:  "Emails synced successfully",
			Data:     stored,
			Metadata: outcome,
		}
	case len(outcome.Failures) == 0 && outcome.DuplicatesSkipped > 0:
		return &dto.SyncResponse{
			Success:  true,
			Message:  "No new emails found",
			Data:     stored,
			Metadata: outcome,
		}
	case len(outcome.Failures) > 0:
		return &dto.SyncResponse{
			Success:  false,
			Message:  "Emails synced with partial errors",
			Data:     stored,
			Metadata: outcome,
		}
	default:
		return &dto.SyncResponse{
			Success:  false,
			Message:  "No new emails found",
			Data:     stored,
			Metadata: outcome,
		}
	}
}

func failResponse(outcome *domain.SyncOutcome, message string) *dto.SyncResponse {
	return &dto.SyncResponse{
		Success:  false,
		Message:  message,
		Data:     []domain.StoredAttachment{},
		Metadata: outcome,
	}
}

func (u *syncUsecase) GetIntegration(id string) (*domain.Integration, error) {
	return u.integrationRepo.FindByID(id)
}

func (u *syncUsecase) ListIntegrations(userID string) ([]*domain.Integration, error) {
	integrations := make([]*domain.Integration, 0)
	for name := range u.providers {
		integration, err := u.integrationRepo.FindByUserAndProvider(userID, name)
		if err != nil {
			return nil, err
		}
		if integration != nil {
			integrations = append(integrations, integration)
		}
	}
	return integrations, nil
}

func (u *syncUsecase) ListActiveIntegrations() ([]*domain.Integration, error) {
	return u.integrationRepo.FindActive()
}

func (u *syncUsecase) Resume(id string) error {
	return u.integrationRepo.Resume(id)
}

func (u *syncUsecase) Disconnect(id string) error {
	return u.integrationRepo.Disconnect(id)
}
