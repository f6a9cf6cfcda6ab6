package repository

import (
	"github.com/apautomationai/sledge-ai-sub001/internal/integration/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// attachmentRepository implements AttachmentRepository interface
type attachmentRepository struct {
	db *gorm.DB
}

// NewAttachmentRepository creates a new instance of attachmentRepository
func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &attachmentRepository{
		db: db,
	}
}

func (r *attachmentRepository) Create(attachment *domain.Attachment) error {
	if attachment.ID == "" {
		attachment.ID = uuid.New().String()
	}
	if attachment.Status == "" {
		attachment.Status = domain.AttachmentStatusStored
	}
	return r.db.Create(attachment).Error
}

func (r *attachmentRepository) FindByID(id string) (*domain.Attachment, error) {
	var attachment domain.Attachment
	err := r.db.Where("id = ?", id).First(&attachment).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &attachment, nil
}

// Exists reports whether a live attachment with this fingerprint is already
// stored for the user. Soft-deleted and skipped rows don't count, so a
// previously rejected attachment can be retried.
func (r *attachmentRepository) Exists(hashID, userID string) (bool, error) {
	var count int64
	err := r.db.Model(&domain.Attachment{}).
		Where("hash_id = ? AND user_id = ? AND is_deleted = ? AND status <> ?",
			hashID, userID, false, domain.AttachmentStatusSkipped).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *attachmentRepository) SoftDelete(id string) error {
	return r.db.Model(&domain.Attachment{}).Where("id = ?", id).Update("is_deleted", true).Error
}
