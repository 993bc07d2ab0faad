package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	ActorTypeSystem = "system"

	TargetDocument = "document"
)

// AuditLog is one recorded change to a vendor resource.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	VendorID   snowflake.ID      `gorm:"column:vendor_id;not null;index" json:"vendor_id"`
	ActorRole  string            `gorm:"column:actor_role;type:text;not null" json:"actor_role"`
	Action     string            `gorm:"type:text;not null" json:"action"`
	TargetType string            `gorm:"column:target_type;type:text;not null" json:"target_type"`
	TargetID   string            `gorm:"column:target_id;type:text;not null" json:"target_id"`
	RequestID  *string           `gorm:"column:request_id;type:text" json:"request_id,omitempty"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"not null" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

// Entry is what callers hand to Record. Vendor, actor and request id come
// from the context when left empty.
type Entry struct {
	VendorID   snowflake.ID
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
}

type ListFilter struct {
	VendorID   snowflake.ID
	Action     string
	TargetType string
	TargetID   string
	StartAt    *time.Time
	EndAt      *time.Time
	Offset     int
	Limit      int
}
