package domain

import "time"

// Attachment statuses. "skipped" marks a file the processing pipeline
// rejected; existence checks ignore it so the attachment can be retried.
const (
	AttachmentStatusStored  = "stored"
	AttachmentStatusSkipped = "skipped"
)

// Attachment is one uniquely-fingerprinted file stored for a user.
// (hash_id, user_id) is unique: re-encountering the same fingerprint for
// the same user is a no-op, not an update.
type Attachment struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	HashID    string    `json:"hash_id" gorm:"uniqueIndex:idx_hash_user;not null"`
	UserID    string    `json:"user_id" gorm:"uniqueIndex:idx_hash_user;index;not null"`
	EmailID   string    `json:"email_id"`
	Filename  string    `json:"filename"`
	MimeType  string    `json:"mime_type"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Provider  string    `json:"provider"`
	FileURL   string    `json:"file_url"`
	FileKey   string    `json:"file_key"`
	IsDeleted bool      `json:"is_deleted" gorm:"default:false"`
	Status    string    `json:"status" gorm:"default:stored"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
