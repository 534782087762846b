package types

import (
	"time"

	"github.com/google/uuid"
)

// AICallLog records every vision-model call made by the tagging service,
// successful or not, for operator visibility.
type AICallLog struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PhotoID   *uuid.UUID `gorm:"type:uuid;index" json:"photo_id,omitempty"`
	UserID    *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	CallType  string     `gorm:"column:call_type;not null" json:"call_type"`
	Model     string     `gorm:"column:model;not null" json:"model"`
	Response  string     `gorm:"column:response" json:"response"`
	Success   bool       `gorm:"column:success;not null" json:"success"`
	Error     string     `gorm:"column:error" json:"error"`
	CreatedAt time.Time  `gorm:"not null;default:now()" json:"created_at"`
}

func (AICallLog) TableName() string { return "ai_call_log" }
