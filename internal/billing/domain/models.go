// Package domain contains the payment request lifecycle models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// DueDateOffsetDays is how long a client has to settle a request.
const DueDateOffsetDays = 30

// PaymentRequest is one billing cycle's meter reading and resulting
// amount due. AmountDue and PaymentDueDate are computed exactly once at
// creation and never recomputed; IsOverdue is written only by the
// reconciliation pass.
type PaymentRequest struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	ClientID       snowflake.ID    `gorm:"not null;index" json:"client_id"`
	MeterReading   decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"meter_reading"`
	RequestDate    time.Time       `gorm:"type:date;not null" json:"request_date"`
	PaymentDueDate time.Time       `gorm:"type:date;not null" json:"payment_due_date"`
	AmountDue      decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount_due"`
	IsPaid         bool            `gorm:"not null;default:false" json:"is_paid"`
	IsOverdue      bool            `gorm:"not null;default:false" json:"is_overdue"`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (PaymentRequest) TableName() string { return "payment_requests" }
