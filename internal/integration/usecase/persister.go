package usecase

import (
	"context"
	"fmt"

	"github.com/apautomationai/sledge-ai-sub001/internal/integration/domain"
	"github.com/apautomationai/sledge-ai-sub001/internal/integration/repository"
	"github.com/apautomationai/sledge-ai-sub001/pkg/queue"
	"github.com/apautomationai/sledge-ai-sub001/pkg/storage"
)

// persister stores one attachment as a best-effort-atomic unit: object
// upload, then row insert, then enqueue. The order guarantees a row never
// references missing bytes and nothing is enqueued before it is queryable.
// There is no cross-system transaction: a failure between upload and insert
// leaves an orphaned blob, which is accepted over losing uploaded content.
type persister struct {
	attachmentRepo repository.AttachmentRepository
	uploader       storage.Uploader
	enqueuer       queue.Enqueuer
}

func newPersister(attachmentRepo repository.AttachmentRepository, uploader storage.Uploader, enqueuer queue.Enqueuer) *persister {
	return &persister{
		attachmentRepo: attachmentRepo,
		uploader:       uploader,
		enqueuer:       enqueuer,
	}
}

// Persist runs the three steps. stored reports whether the row was written:
// a true/non-nil pair means the row stands but the enqueue step failed.
func (p *persister) Persist(ctx context.Context, data []byte, attachment *domain.Attachment) (stored bool, err error) {
	key := fmt.Sprintf("invoices/%s/%s/%s", attachment.UserID, attachment.HashID, attachment.Filename)

	url, err := p.uploader.Upload(ctx, data, key, attachment.MimeType)
	if err != nil {
		return false, fmt.Errorf("upload failed: %w", err)
	}

	attachment.FileKey = key
	attachment.FileURL = url
	if err := p.attachmentRepo.Create(attachment); err != nil {
		return false, fmt.Errorf("attachment insert failed: %w", err)
	}

	if err := p.enqueuer.Enqueue(ctx, attachment.ID); err != nil {
		return true, fmt.Errorf("enqueue failed: %w", err)
	}

	return true, nil
}
