package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Actions recorded for billing activity.
const (
	ActionClientRegistered      = "client.registered"
	ActionProfileUpdated        = "client.profile_updated"
	ActionPaymentRequestCreated = "payment_request.created"
	ActionPaymentRequestPaid    = "payment_request.paid"
	ActionTariffCreated         = "tariff.created"
	ActionTariffUpdated         = "tariff.updated"
	ActionTariffDeleted         = "tariff.deleted"
)

// AuditLog captures an immutable record of a billing action.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	ActorID    *string           `gorm:"type:text"`
	Action     string            `gorm:"type:text;not null;index"`
	TargetType string            `gorm:"type:text;not null"`
	TargetID   *string           `gorm:"type:text"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }
