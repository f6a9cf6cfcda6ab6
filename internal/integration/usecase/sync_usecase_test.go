package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apautomationai/sledge-ai-sub001/internal/integration/domain"
	"github.com/apautomationai/sledge-ai-sub001/pkg/mailprovider"
)

var checkpointTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type syncFixture struct {
	usecase         SyncUsecase
	integrationRepo *fakeIntegrationRepo
	attachmentRepo  *fakeAttachmentRepo
	provider        *fakeProvider
	uploader        *fakeUploader
	enqueuer        *fakeEnqueuer
	integration     *domain.Integration
}

func newSyncFixture(integration *domain.Integration) *syncFixture {
	f := &syncFixture{
		integrationRepo: newFakeIntegrationRepo(integration),
		attachmentRepo:  &fakeAttachmentRepo{},
		provider:        newFakeProvider(),
		uploader:        newFakeUploader(),
		enqueuer:        &fakeEnqueuer{},
		integration:     integration,
	}
	f.usecase = NewSyncUsecase(
		f.integrationRepo,
		f.attachmentRepo,
		[]mailprovider.Provider{f.provider},
		f.uploader,
		f.enqueuer,
		nil,
		"invoice",
	)
	return f
}

func activeIntegration() *domain.Integration {
	return &domain.Integration{
		ID:           "int-1",
		UserID:       "user-1",
		Provider:     "gmail",
		Email:        "ap@example.test",
		Status:       domain.StatusSuccess,
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		TokenExpiry:  time.Now().Add(time.Hour),
		Metadata: domain.Metadata{
			domain.MetaLastRead: checkpointTime.Format(time.RFC3339),
		},
	}
}

func lastRead(t *testing.T, repo *fakeIntegrationRepo, id string) time.Time {
	t.Helper()
	return domain.ParseInstant(repo.integrations[id].Metadata[domain.MetaLastRead])
}

func TestRunPassUnknownIntegration(t *testing.T) {
	f := newSyncFixture(activeIntegration())

	_, err := f.usecase.RunPass(context.Background(), "does-not-exist")
	require.Error(t, err)
}

func TestRunPassMissingCheckpoint(t *testing.T) {
	integration := activeIntegration()
	integration.Metadata = domain.Metadata{}
	f := newSyncFixture(integration)

	resp, err := f.usecase.RunPass(context.Background(), integration.ID)
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.Equal(t, "No last read date", resp.Message)
	assert.Empty(t, resp.Data)
	assert.Zero(t, f.provider.listCalls, "no provider call may happen without a checkpoint")
	assert.Zero(t, f.provider.refreshCalls)
}

func TestRunPassStoresNewAttachments(t *testing.T) {
	f := newSyncFixture(activeIntegration())
	f.provider.addMessage("msg-1", checkpointTime.Add(time.Hour), "invoice-1.pdf")
	f.provider.addMessage("msg-2", checkpointTime.Add(2*time.Hour), "invoice-2.pdf")

	resp, err := f.usecase.RunPass(context.Background(), f.integration.ID)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "Emails synced successfully", resp.Message)
	assert.Len(t, resp.Data, 2)
	assert.Equal(t, 2, resp.Metadata.StoredAttachments)
	assert.Equal(t, 2, resp.Metadata.MessagesProcessed)
	assert.Empty(t, resp.Metadata.Failures)

	// One blob, one row and one queue message per attachment.
	assert.Len(t, f.uploader.uploads, 2)
	assert.Len(t, f.attachmentRepo.rows, 2)
	assert.Len(t, f.enqueuer.ids, 2)
	assert.ElementsMatch(t, []string{"msg-1", "msg-2"}, f.provider.markedRead)

	// Checkpoint advances to the newest processed message.
	assert.True(t, lastRead(t, f.integrationRepo, f.integration.ID).Equal(checkpointTime.Add(2*time.Hour)))
	assert.NotNil(t, f.integrationRepo.integrations[f.integration.ID].Metadata[domain.MetaLastProcessedAt])
}

func TestRunPassSkipsDuplicates(t *testing.T) {
	f := newSyncFixture(activeIntegration())
	f.provider.addMessage("msg-1", checkpointTime.Add(time.Hour), "invoice-1.pdf")
	f.provider.addMessage("msg-2", checkpointTime.Add(2*time.Hour), "invoice-2.pdf")

	msg2 := f.provider.messages["msg-2"]
	f.attachmentRepo.rows = append(f.attachmentRepo.rows, &domain.Attachment{
		ID:     "att-prior",
		HashID: Fingerprint("msg-2", msg2.Attachments[0].Filename, msg2.Attachments[0].MimeType, msg2.Attachments[0].Size),
		UserID: "user-1",
		Status: domain.AttachmentStatusStored,
	})

	resp, err := f.usecase.RunPass(context.Background(), f.integration.ID)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Metadata.StoredAttachments)
	assert.Equal(t, 1, resp.Metadata.DuplicatesSkipped)
	assert.Len(t, resp.Data, 1)
	assert.Equal(t, "msg-1", resp.Data[0].EmailID)
	assert.Len(t, f.uploader.uploads, 1, "duplicate must not be downloaded or uploaded again")

	// The duplicate message still counts as processed, so the checkpoint
	// moves past it.
	assert.True(t, lastRead(t, f.integrationRepo, f.integration.ID).Equal(checkpointTime.Add(2*time.Hour)))
}

func TestRunPassOnlyDuplicates(t *testing.T) {
	f := newSyncFixture(activeIntegration())
	f.provider.addMessage("msg-1", checkpointTime.Add(time.Hour), "invoice-1.pdf")

	msg1 := f.provider.messages["msg-1"]
	f.attachmentRepo.rows = append(f.attachmentRepo.rows, &domain.Attachment{
		ID:     "att-prior",
		HashID: Fingerprint("msg-1", msg1.Attachments[0].Filename, msg1.Attachments[0].MimeType, msg1.Attachments[0].Size),
		UserID: "user-1",
		Status: domain.AttachmentStatusStored,
	})

	resp, err := f.usecase.RunPass(context.Background(), f.integration.ID)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "No new emails found", resp.Message)
	assert.Empty(t, resp.Data)
}

func TestRunPassEmptyMailbox(t *testing.T) {
	f := newSyncFixture(activeIntegration())

	resp, err := f.usecase.RunPass(context.Background(), f.integration.ID)
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.Equal(t, "No new emails found", resp.Message)
	assert.Empty(t, resp.Data)
	assert.Equal(t, 0, resp.Metadata.MessagesSeen)

	// A clean pass still records that it ran.
	assert.NotNil(t, f.integrationRepo.integrations[f.integration.ID].Metadata[domain.MetaLastReadAt])
}

func TestRunPassTransientAttachmentFailure(t *testing.T) {
	f := newSyncFixture(activeIntegration())
	f.provider.addMessage("msg-1", checkpointTime.Add(time.Hour), "a.pdf", "b.pdf", "c.pdf")
	f.provider.bytesErr["msg-1:part-2"] = errors.New("temporarily unavailable")

	resp, err := f.usecase.RunPass(context.Background(), f.integration.ID)
	require.NoError(t, err)

	assert.True(t, resp.Success, "a pass that stored something succeeds despite partial failures")
	assert.Equal(t, "Emails synced successfully", resp.Message)
	assert.Equal(t, 2, resp.Metadata.StoredAttachments)
	require.Len(t, resp.Metadata.Failures, 1)
	assert.Equal(t, domain.StageAttachment, resp.Metadata.Failures[0].Stage)
	assert.Equal(t, "msg-1", resp.Metadata.Failures[0].EmailID)

	// The failed message is retryable, so lastRead must not move past it.
	assert.True(t, lastRead(t, f.integrationRepo, f.integration.ID).Equal(checkpointTime))
	assert.Empty(t, f.provider.markedRead, "a partially failed message must stay unread")
	assert.Equal(t, domain.StatusSuccess, f.integrationRepo.integrations[f.integration.ID].Status)
}

func TestRunPassTransientFailuresOnly(t *testing.T) {
	f := newSyncFixture(activeIntegration())
	f.provider.addMessage("msg-1", checkpointTime.Add(time.Hour), "a.pdf")
	f.provider.bytesErr["msg-1:part-1"] = errors.New("temporarily unavailable")

	resp, err := f.usecase.RunPass(context.Background(), f.integration.ID)
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.Equal(t, "Emails synced with partial errors", resp.Message)
	assert.Empty(t, resp.Data)
}

func TestRunPassFailedMessageBlocksCheckpoint(t *testing.T) {
	f := newSyncFixture(activeIntegration())
	failedAt := checkpointTime.Add(time.Hour)
	f.provider.addMessage("msg-old", failedAt, "a.pdf")
	f.provider.addMessage("msg-new", checkpointTime.Add(2*time.Hour), "b.pdf")
	f.provider.bytesErr["msg-old:part-1"] = errors.New("temporarily unavailable")

	resp, err := f.usecase.RunPass(context.Background(), f.integration.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Metadata.StoredAttachments)

	// msg-new succeeded, but lastRead stays strictly before the failed
	// msg-old so the next listing sees it again.
	got := lastRead(t, f.integrationRepo, f.integration.ID)
	assert.True(t, got.Before(failedAt))
	assert.True(t, got.Equal(failedAt.Add(-time.Second)))
}

func TestRunPassCheckpointMonotonic(t *testing.T) {
	integration := activeIntegration()
	integration.Metadata[domain.MetaLastRead] = checkpointTime.Add(24 * time.Hour).Format(time.RFC3339)
	f := newSyncFixture(integration)
	// The provider re-lists a message older than the checkpoint.
	f.provider.addMessage("msg-old", checkpointTime.Add(time.Hour), "a.pdf")

	_, err := f.usecase.RunPass(context.Background(), integration.ID)
	require.NoError(t, err)

	assert.True(t, lastRead(t, f.integrationRepo, integration.ID).Equal(checkpointTime.Add(24*time.Hour)),
		"lastRead never moves backwards")
}

func TestRunPassAuthFatalDuringFetch(t *testing.T) {
	f := newSyncFixture(activeIntegration())
	f.provider.addMessage("msg-1", checkpointTime.Add(time.Hour), "a.pdf")
	f.provider.addMessage("msg-2", checkpointTime.Add(2*time.Hour), "b.pdf")
	f.provider.msgErr["msg-2"] = mailprovider.NewError(401, "unauthorized", "Invalid Credentials", nil)

	resp, err := f.usecase.RunPass(context.Background(), f.integration.ID)
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.True(t, resp.Metadata.Paused)
	assert.Equal(t, 1, resp.Metadata.StoredAttachments, "work done before the fatal error is kept")
	assert.Equal(t, domain.StatusPaused, f.integrationRepo.integrations[f.integration.ID].Status)
	assert.Contains(t, f.integrationRepo.integrations[f.integration.ID].Metadata[domain.MetaLastErrorMessage], "reconnect")

	// A fatal abort must not advance the checkpoint.
	assert.True(t, lastRead(t, f.integrationRepo, f.integration.ID).Equal(checkpointTime))
}

func TestRunPassAuthFatalDuringListing(t *testing.T) {
	f := newSyncFixture(activeIntegration())
	f.provider.listErr = mailprovider.NewError(403, "forbidden", "Access denied", nil)

	resp, err := f.usecase.RunPass(context.Background(), f.integration.ID)
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.True(t, resp.Metadata.Paused)
	assert.Empty(t, resp.Data)
	assert.Equal(t, domain.StatusPaused, f.integrationRepo.integrations[f.integration.ID].Status)
}

func TestRunPassRefreshAuthFatal(t *testing.T) {
	integration := activeIntegration()
	integration.TokenExpiry = time.Now().Add(-time.Minute)
	f := newSyncFixture(integration)
	f.provider.refreshErr = mailprovider.NewError(400, "invalid_grant", "Token has been expired or revoked.", nil)

	resp, err := f.usecase.RunPass(context.Background(), integration.ID)
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.True(t, resp.Metadata.Paused)
	assert.Empty(t, resp.Data)
	assert.Equal(t, 1, f.provider.refreshCalls)
	assert.Zero(t, f.provider.listCalls, "a dead credential must stop the pass before listing")
	assert.Equal(t, domain.StatusPaused, f.integrationRepo.integrations[integration.ID].Status)
	require.Len(t, resp.Metadata.Failures, 1)
	assert.Equal(t, domain.StageTokenRefresh, resp.Metadata.Failures[0].Stage)
}

func TestRunPassRefreshTransientFailure(t *testing.T) {
	integration := activeIntegration()
	integration.TokenExpiry = time.Now().Add(-time.Minute)
	f := newSyncFixture(integration)
	f.provider.refreshErr = errors.New("connection reset by peer")

	resp, err := f.usecase.RunPass(context.Background(), integration.ID)
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.False(t, resp.Metadata.Paused)
	assert.Equal(t, domain.StatusSuccess, f.integrationRepo.integrations[integration.ID].Status,
		"a transient refresh failure leaves the integration active for retry")
}

func TestRunPassRefreshSuccess(t *testing.T) {
	integration := activeIntegration()
	integration.TokenExpiry = time.Now().Add(30 * time.Second) // inside the expiry skew
	f := newSyncFixture(integration)
	f.provider.refreshed = &mailprovider.TokenSet{
		AccessToken:  "new-access-token",
		RefreshToken: "new-refresh-token",
		Expiry:       time.Now().Add(time.Hour),
	}
	f.provider.addMessage("msg-1", checkpointTime.Add(time.Hour), "a.pdf")

	resp, err := f.usecase.RunPass(context.Background(), integration.ID)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.True(t, resp.Metadata.TokenRefreshed)
	assert.Equal(t, 1, f.integrationRepo.tokenUpdates)
	assert.Equal(t, "new-access-token", f.integrationRepo.integrations[integration.ID].AccessToken)
	assert.Equal(t, "new-refresh-token", f.integrationRepo.integrations[integration.ID].RefreshToken)
}

func TestRunPassExpiredWithoutRefreshToken(t *testing.T) {
	integration := activeIntegration()
	integration.TokenExpiry = time.Now().Add(-time.Minute)
	integration.RefreshToken = ""
	f := newSyncFixture(integration)

	resp, err := f.usecase.RunPass(context.Background(), integration.ID)
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.Zero(t, f.provider.refreshCalls)
	assert.Zero(t, f.provider.listCalls)
}

func TestRunPassMarkReadFailureDoesNotEscalate(t *testing.T) {
	f := newSyncFixture(activeIntegration())
	f.provider.addMessage("msg-1", checkpointTime.Add(time.Hour), "a.pdf")
	f.provider.markReadErr["msg-1"] = errors.New("modify failed")

	resp, err := f.usecase.RunPass(context.Background(), f.integration.ID)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Metadata.StoredAttachments)
	require.Len(t, resp.Metadata.Failures, 1)
	assert.Equal(t, domain.StageMarkRead, resp.Metadata.Failures[0].Stage)

	// Mark-read is best effort: the checkpoint still advances.
	assert.True(t, lastRead(t, f.integrationRepo, f.integration.ID).Equal(checkpointTime.Add(time.Hour)))
}

func TestRunPassEnqueueFailureKeepsRow(t *testing.T) {
	f := newSyncFixture(activeIntegration())
	f.provider.addMessage("msg-1", checkpointTime.Add(time.Hour), "a.pdf")
	f.enqueuer.err = errors.New("topic unavailable")

	resp, err := f.usecase.RunPass(context.Background(), f.integration.ID)
	require.NoError(t, err)

	// The row stands and counts as stored even though the enqueue failed;
	// the failure is still reported.
	assert.Equal(t, 1, resp.Metadata.StoredAttachments)
	assert.Len(t, f.attachmentRepo.rows, 1)
	require.Len(t, resp.Metadata.Failures, 1)
	assert.Equal(t, domain.StageAttachment, resp.Metadata.Failures[0].Stage)
}

func TestRunPassCancelledContext(t *testing.T) {
	f := newSyncFixture(activeIntegration())
	f.provider.addMessage("msg-1", checkpointTime.Add(time.Hour), "a.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := f.usecase.RunPass(ctx, f.integration.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, resp.Metadata.StoredAttachments)
	// Cancellation is not an auth failure and must not pause the mailbox.
	assert.Equal(t, domain.StatusSuccess, f.integrationRepo.integrations[f.integration.ID].Status)
	assert.True(t, lastRead(t, f.integrationRepo, f.integration.ID).Equal(checkpointTime))
}
