package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// AuditLog records a state-changing action against a batch, event or
// compliance check, with enough context to reconstruct who did what.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	ActorID    string            `gorm:"index" json:"actor_id"`
	ActorRole  string            `json:"actor_role"`
	Action     string            `gorm:"index" json:"action"`
	TargetType string            `json:"target_type"`
	TargetID   string            `gorm:"index" json:"target_id"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// AuditCursor is the decoded keyset position for audit pagination.
type AuditCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}
