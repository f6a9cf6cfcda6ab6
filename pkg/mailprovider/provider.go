package mailprovider

import (
	"context"
	"time"
)

// TokenSet carries the OAuth credentials for one integration.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// ListFilter narrows the candidate messages returned by ListMessages.
// Since is the checkpoint lower bound; Keyword is a provider-native
// subject/body match used to pre-filter invoice-like messages.
type ListFilter struct {
	Since   time.Time
	Keyword string
}

// MessageRef is a lightweight handle returned by ListMessages.
type MessageRef struct {
	ID         string
	ReceivedAt time.Time
}

// AttachmentPart describes one attachment inside a message.
type AttachmentPart struct {
	PartID   string
	Filename string
	MimeType string
	Size     int64
}

// Message is the fetched form of a MessageRef.
type Message struct {
	ID          string
	Subject     string
	Sender      string
	Receiver    string
	ReceivedAt  time.Time
	Attachments []AttachmentPart
}

// Provider is the capability surface the sync engine needs from a mail
// provider. Implementations are stateless; the access token is passed per
// call so one adapter instance can serve every integration of its provider.
type Provider interface {
	Name() string
	ListMessages(ctx context.Context, accessToken string, filter ListFilter) ([]MessageRef, error)
	GetMessage(ctx context.Context, accessToken, messageID string) (*Message, error)
	GetAttachmentBytes(ctx context.Context, accessToken, messageID, partID string) ([]byte, error)
	MarkRead(ctx context.Context, accessToken, messageID string) error
	RefreshToken(ctx context.Context, refreshToken string) (*TokenSet, error)
}
