package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Photo processing lifecycle. A photo is created unprocessed, and a single
// tagging attempt moves it to tagged or failed. Failed photos may be retagged.
const (
	PhotoStatusUnprocessed = "unprocessed"
	PhotoStatusTagged      = "tagged"
	PhotoStatusFailed      = "failed"
)

// Error kinds recorded on failed tagging attempts.
const (
	TagErrContentUnavailable = "content_unavailable"
	TagErrTransientUpstream  = "transient_upstream"
	TagErrMalformedResponse  = "malformed_response"
)

type Photo struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User       *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	StorageKey string    `gorm:"column:storage_key;not null" json:"storage_key"`
	FileURL    string    `gorm:"column:file_url" json:"file_url"`
	MimeType   string    `gorm:"column:mime_type" json:"mime_type"`
	SizeBytes  int64     `gorm:"column:size_bytes" json:"size_bytes"`
	Status     string    `gorm:"column:status;not null;default:'unprocessed';index" json:"status"`

	// Annotations. All four are set together when Status becomes tagged and are
	// null in every other state.
	Caption       *string        `gorm:"column:caption" json:"caption,omitempty"`
	Emotions      datatypes.JSON `gorm:"type:jsonb;column:emotions" json:"emotions,omitempty"`
	EmotionEmojis datatypes.JSON `gorm:"type:jsonb;column:emotion_emojis" json:"emotion_emojis,omitempty"`
	Confidence    *float64       `gorm:"column:confidence" json:"confidence,omitempty"`

	ErrorKind   string `gorm:"column:error_kind" json:"error_kind,omitempty"`
	ErrorDetail string `gorm:"column:error_detail" json:"error_detail,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Photo) TableName() string { return "photo" }
