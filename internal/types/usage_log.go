package types

import (
	"time"

	"github.com/google/uuid"
)

// UsageLog is append-only: one row per inbound request or tagging invocation.
type UsageLog struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ServiceName string     `gorm:"column:service_name;not null;index" json:"service_name"`
	Endpoint    string     `gorm:"column:endpoint;not null" json:"endpoint"`
	UserID      *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;default:now();index" json:"created_at"`
}

func (UsageLog) TableName() string { return "usage_log" }
