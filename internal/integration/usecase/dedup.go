package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/apautomationai/sledge-ai-sub001/internal/integration/repository"
)

// Fingerprint computes the stable content fingerprint for an attachment.
// It hashes metadata rather than byte content so duplicates can be detected
// without downloading them; an identical tuple is by definition the same
// file re-listed from the same message.
func Fingerprint(messageID, filename, mimeType string, size int64) string {
	joined := strings.Join([]string{messageID, filename, mimeType, strconv.FormatInt(size, 10)}, ":")
	sum := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(sum[:])
}

// deduplicator answers "have we already stored this file for this user".
type deduplicator struct {
	attachmentRepo repository.AttachmentRepository
}

func newDeduplicator(attachmentRepo repository.AttachmentRepository) *deduplicator {
	return &deduplicator{
		attachmentRepo: attachmentRepo,
	}
}

func (d *deduplicator) Exists(hashID, userID string) (bool, error) {
	return d.attachmentRepo.Exists(hashID, userID)
}
