package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/apautomationai/sledge-ai-sub001/internal/integration/domain"
	"github.com/apautomationai/sledge-ai-sub001/pkg/mailprovider"
)

type fakeIntegrationRepo struct {
	integrations map[string]*domain.Integration
	pauseCalls   int
	tokenUpdates int
}

func newFakeIntegrationRepo(integrations ...*domain.Integration) *fakeIntegrationRepo {
	repo := &fakeIntegrationRepo{integrations: make(map[string]*domain.Integration)}
	for _, i := range integrations {
		if i.Metadata == nil {
			i.Metadata = domain.Metadata{}
		}
		repo.integrations[i.ID] = i
	}
	return repo
}

func (r *fakeIntegrationRepo) Create(integration *domain.Integration) error {
	if integration.ID == "" {
		integration.ID = fmt.Sprintf("int-%d", len(r.integrations)+1)
	}
	r.integrations[integration.ID] = integration
	return nil
}

func (r *fakeIntegrationRepo) FindByID(id string) (*domain.Integration, error) {
	return r.integrations[id], nil
}

func (r *fakeIntegrationRepo) FindByUserAndProvider(userID, provider string) (*domain.Integration, error) {
	for _, i := range r.integrations {
		if i.UserID == userID && i.Provider == provider {
			return i, nil
		}
	}
	return nil, nil
}

func (r *fakeIntegrationRepo) FindActive() ([]*domain.Integration, error) {
	var active []*domain.Integration
	for _, i := range r.integrations {
		if i.Status == domain.StatusSuccess {
			active = append(active, i)
		}
	}
	return active, nil
}

func (r *fakeIntegrationRepo) Update(integration *domain.Integration) error {
	r.integrations[integration.ID] = integration
	return nil
}

func (r *fakeIntegrationRepo) UpdateTokens(id, accessToken, refreshToken string, expiry time.Time) error {
	r.tokenUpdates++
	i := r.integrations[id]
	i.AccessToken = accessToken
	if refreshToken != "" {
		i.RefreshToken = refreshToken
	}
	i.TokenExpiry = expiry
	return nil
}

func (r *fakeIntegrationRepo) MergeMetadata(id string, patch domain.Metadata) error {
	i := r.integrations[id]
	for k, v := range patch {
		if v == nil {
			delete(i.Metadata, k)
			continue
		}
		i.Metadata[k] = v
	}
	return nil
}

func (r *fakeIntegrationRepo) Pause(id, message string) error {
	r.pauseCalls++
	i := r.integrations[id]
	switch i.Status {
	case domain.StatusPaused, domain.StatusSuccess:
		i.Status = domain.StatusPaused
		i.Metadata[domain.MetaLastErrorMessage] = message
		i.Metadata[domain.MetaLastErrorAt] = time.Now().UTC().Format(time.RFC3339)
	}
	return nil
}

func (r *fakeIntegrationRepo) Resume(id string) error {
	i := r.integrations[id]
	i.Status = domain.StatusSuccess
	delete(i.Metadata, domain.MetaLastErrorMessage)
	delete(i.Metadata, domain.MetaLastErrorAt)
	return nil
}

func (r *fakeIntegrationRepo) Disconnect(id string) error {
	i := r.integrations[id]
	i.Status = domain.StatusDisconnected
	i.AccessToken = ""
	i.RefreshToken = ""
	return nil
}

type fakeAttachmentRepo struct {
	rows      []*domain.Attachment
	createErr error
	existsErr error
}

func (r *fakeAttachmentRepo) Create(attachment *domain.Attachment) error {
	if r.createErr != nil {
		return r.createErr
	}
	if attachment.ID == "" {
		attachment.ID = fmt.Sprintf("att-%d", len(r.rows)+1)
	}
	if attachment.Status == "" {
		attachment.Status = domain.AttachmentStatusStored
	}
	r.rows = append(r.rows, attachment)
	return nil
}

func (r *fakeAttachmentRepo) FindByID(id string) (*domain.Attachment, error) {
	for _, a := range r.rows {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (r *fakeAttachmentRepo) Exists(hashID, userID string) (bool, error) {
	if r.existsErr != nil {
		return false, r.existsErr
	}
	for _, a := range r.rows {
		if a.HashID == hashID && a.UserID == userID && !a.IsDeleted && a.Status != domain.AttachmentStatusSkipped {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAttachmentRepo) SoftDelete(id string) error {
	for _, a := range r.rows {
		if a.ID == id {
			a.IsDeleted = true
		}
	}
	return nil
}

type fakeProvider struct {
	name         string
	refs         []mailprovider.MessageRef
	listErr      error
	listCalls    int
	messages     map[string]*mailprovider.Message
	msgErr       map[string]error
	data         map[string][]byte
	bytesErr     map[string]error
	markReadErr  map[string]error
	markedRead   []string
	refreshed    *mailprovider.TokenSet
	refreshErr   error
	refreshCalls int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		name:        "gmail",
		messages:    make(map[string]*mailprovider.Message),
		msgErr:      make(map[string]error),
		data:        make(map[string][]byte),
		bytesErr:    make(map[string]error),
		markReadErr: make(map[string]error),
	}
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) ListMessages(ctx context.Context, accessToken string, filter mailprovider.ListFilter) ([]mailprovider.MessageRef, error) {
	p.listCalls++
	if p.listErr != nil {
		return nil, p.listErr
	}
	return p.refs, nil
}

func (p *fakeProvider) GetMessage(ctx context.Context, accessToken, messageID string) (*mailprovider.Message, error) {
	if err := p.msgErr[messageID]; err != nil {
		return nil, err
	}
	return p.messages[messageID], nil
}

func (p *fakeProvider) GetAttachmentBytes(ctx context.Context, accessToken, messageID, partID string) ([]byte, error) {
	key := messageID + ":" + partID
	if err := p.bytesErr[key]; err != nil {
		return nil, err
	}
	return p.data[key], nil
}

func (p *fakeProvider) MarkRead(ctx context.Context, accessToken, messageID string) error {
	if err := p.markReadErr[messageID]; err != nil {
		return err
	}
	p.markedRead = append(p.markedRead, messageID)
	return nil
}

func (p *fakeProvider) RefreshToken(ctx context.Context, refreshToken string) (*mailprovider.TokenSet, error) {
	p.refreshCalls++
	if p.refreshErr != nil {
		return nil, p.refreshErr
	}
	return p.refreshed, nil
}

// addMessage registers a message with one attachment per given filename.
func (p *fakeProvider) addMessage(id string, receivedAt time.Time, filenames ...string) {
	msg := &mailprovider.Message{
		ID:         id,
		Subject:    "Invoice " + id,
		Sender:     "billing@acme.test",
		Receiver:   "ap@example.test",
		ReceivedAt: receivedAt,
	}
	for i, name := range filenames {
		partID := fmt.Sprintf("part-%d", i+1)
		msg.Attachments = append(msg.Attachments, mailprovider.AttachmentPart{
			PartID:   partID,
			Filename: name,
			MimeType: "application/pdf",
			Size:     int64(1000 + i),
		})
		p.data[id+":"+partID] = []byte("pdf-bytes-" + name)
	}
	p.messages[id] = msg
	p.refs = append(p.refs, mailprovider.MessageRef{ID: id, ReceivedAt: receivedAt})
}

type fakeUploader struct {
	uploads map[string][]byte
	err     error
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{uploads: make(map[string][]byte)}
}

func (u *fakeUploader) Upload(ctx context.Context, data []byte, key, mimeType string) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	u.uploads[key] = data
	return "https://storage.test/" + key, nil
}

type fakeEnqueuer struct {
	ids []string
	err error
}

func (e *fakeEnqueuer) Enqueue(ctx context.Context, attachmentID string) error {
	if e.err != nil {
		return e.err
	}
	e.ids = append(e.ids, attachmentID)
	return nil
}
