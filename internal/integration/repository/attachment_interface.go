package repository

import (
	"github.com/apautomationai/sledge-ai-sub001/internal/integration/domain"
)

// AttachmentRepository persists stored attachment rows and answers
// fingerprint existence checks for the deduplicator.
type AttachmentRepository interface {
	Create(attachment *domain.Attachment) error
	FindByID(id string) (*domain.Attachment, error)
	Exists(hashID, userID string) (bool, error)
	SoftDelete(id string) error
}
