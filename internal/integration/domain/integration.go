package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Integration status values. paused always carries a lastErrorMessage in
// metadata; disconnected is terminal.
const (
	StatusNotConnected = "not_connected"
	StatusSuccess      = "success"
	StatusPaused       = "paused"
	StatusDisconnected = "disconnected"
)

// Metadata keys written by the sync engine.
const (
	MetaLastRead         = "lastRead"
	MetaLastReadAt       = "lastReadAt"
	MetaLastProcessedAt  = "lastProcessedAt"
	MetaLastErrorMessage = "lastErrorMessage"
	MetaLastErrorAt      = "lastErrorAt"
	MetaStartReading     = "startReading"
)

// Metadata is the free-form JSONB column on an integration row. Patches are
// merged into it, never replace it, so unknown keys survive.
type Metadata map[string]interface{}

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported metadata column type")
	}
	if len(data) == 0 {
		*m = Metadata{}
		return nil
	}
	return json.Unmarshal(data, m)
}

// Integration is one connected mailbox: one row per (user, provider).
type Integration struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	UserID       string    `json:"user_id" gorm:"index;uniqueIndex:idx_user_provider;not null"`
	Provider     string    `json:"provider" gorm:"uniqueIndex:idx_user_provider;not null"` // "gmail" or "outlook"
	Status       string    `json:"status" gorm:"default:not_connected"`
	AccessToken  string    `json:"-" gorm:"type:text"`
	RefreshToken string    `json:"-" gorm:"type:text"`
	TokenExpiry  time.Time `json:"token_expiry"`
	Email        string    `json:"email"`
	ProviderID   string    `json:"provider_id"`
	Metadata     Metadata  `json:"metadata" gorm:"type:jsonb"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ParseInstant normalizes a metadata timestamp that may be stored as
// epoch-millis, an RFC3339 string, or a time.Time. Returns the zero time
// when the value is absent or unparsable.
func ParseInstant(v interface{}) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed
		}
	case float64:
		if t > 0 {
			return time.UnixMilli(int64(t))
		}
	case int64:
		if t > 0 {
			return time.UnixMilli(t)
		}
	}
	return time.Time{}
}
