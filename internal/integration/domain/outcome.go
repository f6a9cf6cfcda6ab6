package domain

// Failure stages recorded in a sync outcome.
const (
	StageTokenRefresh = "tokenRefresh"
	StageListing      = "listing"
	StageMessage      = "message"
	StageAttachment   = "attachment"
	StageMarkRead     = "markRead"
	StageCheckpoint   = "checkpoint"
)

// SyncFailure is one recorded non-fatal (or terminal) failure within a pass.
type SyncFailure struct {
	Stage   string `json:"stage"`
	EmailID string `json:"email_id,omitempty"`
	Cause   string `json:"cause"`
}

// SyncOutcome accumulates what one sync pass actually did. It is folded
// into Integration.Metadata at pass end and returned to the caller; it is
// never persisted as its own table.
type SyncOutcome struct {
	MessagesSeen      int           `json:"messages_seen"`
	MessagesProcessed int           `json:"messages_processed"`
	AttachmentsSeen   int           `json:"attachments_seen"`
	StoredAttachments int           `json:"stored_attachments"`
	DuplicatesSkipped int           `json:"duplicates_skipped"`
	Failures          []SyncFailure `json:"failures"`
	TokenRefreshed    bool          `json:"token_refreshed"`
	Paused            bool          `json:"paused"`
	ErrorMessage      string        `json:"error_message,omitempty"`
}

// AddFailure records a failure at the given stage.
func (o *SyncOutcome) AddFailure(stage, emailID, cause string) {
	o.Failures = append(o.Failures, SyncFailure{Stage: stage, EmailID: emailID, Cause: cause})
}

// StoredAttachment is the caller-facing projection of a newly stored row.
type StoredAttachment struct {
	HashID   string `json:"hash_id"`
	EmailID  string `json:"email_id"`
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	FileURL  string `json:"file_url"`
	FileKey  string `json:"file_key"`
	Provider string `json:"provider"`
}
