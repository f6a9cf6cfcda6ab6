package repository

import (
	"time"

	"github.com/apautomationai/sledge-ai-sub001/internal/integration/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// integrationRepository implements IntegrationRepository interface
type integrationRepository struct {
	db *gorm.DB
}

// NewIntegrationRepository creates a new instance of integrationRepository
func NewIntegrationRepository(db *gorm.DB) IntegrationRepository {
	return &integrationRepository{
		db: db,
	}
}

func (r *integrationRepository) Create(integration *domain.Integration) error {
	if integration.ID == "" {
		integration.ID = uuid.New().String()
	}
	if integration.Metadata == nil {
		integration.Metadata = domain.Metadata{}
	}
	return r.db.Create(integration).Error
}

func (r *integrationRepository) FindByID(id string) (*domain.Integration, error) {
	var integration domain.Integration
	err := r.db.Where("id = ?", id).First(&integration).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &integration, nil
}

func (r *integrationRepository) FindByUserAndProvider(userID, provider string) (*domain.Integration, error) {
	var integration domain.Integration
	err := r.db.Where("user_id = ? AND provider = ?", userID, provider).First(&integration).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &integration, nil
}

// FindActive returns every integration eligible for a scheduled pass.
func (r *integrationRepository) FindActive() ([]*domain.Integration, error) {
	var integrations []*domain.Integration
	err := r.db.Where("status = ?", domain.StatusSuccess).Find(&integrations).Error
	if err != nil {
		return nil, err
	}
	return integrations, nil
}

func (r *integrationRepository) Update(integration *domain.Integration) error {
	return r.db.Save(integration).Error
}

func (r *integrationRepository) UpdateTokens(id, accessToken, refreshToken string, expiry time.Time) error {
	updates := map[string]interface{}{
		"access_token": accessToken,
		"token_expiry": expiry,
	}
	if refreshToken != "" {
		updates["refresh_token"] = refreshToken
	}
	return r.db.Model(&domain.Integration{}).Where("id = ?", id).Updates(updates).Error
}

// MergeMetadata merges patch into the row's metadata, preserving unknown
// keys. A nil patch value deletes the key. This is read-then-write; the
// caller guarantees at most one concurrent pass per integration.
func (r *integrationRepository) MergeMetadata(id string, patch domain.Metadata) error {
	integration, err := r.FindByID(id)
	if err != nil {
		return err
	}
	if integration == nil {
		return gorm.ErrRecordNotFound
	}

	merged := domain.Metadata{}
	for k, v := range integration.Metadata {
		merged[k] = v
	}
	for k, v := range patch {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}

	return r.db.Model(&domain.Integration{}).Where("id = ?", id).Update("metadata", merged).Error
}

// Pause transitions success -> paused and records the error message.
// Idempotent: an already-paused integration only gets its message refreshed,
// and no other status can be paused from.
func (r *integrationRepository) Pause(id, message string) error {
	integration, err := r.FindByID(id)
	if err != nil {
		return err
	}
	if integration == nil {
		return gorm.ErrRecordNotFound
	}

	patch := domain.Metadata{
		domain.MetaLastErrorMessage: message,
		domain.MetaLastErrorAt:      time.Now().UTC().Format(time.RFC3339),
	}

	switch integration.Status {
	case domain.StatusPaused:
		return r.MergeMetadata(id, patch)
	case domain.StatusSuccess:
		if err := r.db.Model(&domain.Integration{}).Where("id = ?", id).Update("status", domain.StatusPaused).Error; err != nil {
			return err
		}
		return r.MergeMetadata(id, patch)
	default:
		return nil
	}
}

// Resume is the explicit external action that un-pauses an integration.
func (r *integrationRepository) Resume(id string) error {
	if err := r.db.Model(&domain.Integration{}).Where("id = ?", id).Update("status", domain.StatusSuccess).Error; err != nil {
		return err
	}
	return r.MergeMetadata(id, domain.Metadata{
		domain.MetaLastErrorMessage: nil,
		domain.MetaLastErrorAt:      nil,
	})
}

// Disconnect is terminal: status flips and the credentials are wiped.
func (r *integrationRepository) Disconnect(id string) error {
	return r.db.Model(&domain.Integration{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":        domain.StatusDisconnected,
		"access_token":  "",
		"refresh_token": "",
	}).Error
}
