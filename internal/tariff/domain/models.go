// Package domain contains the tariff catalog models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// PaymentMethod selects the calculation rule applied to a meter reading.
type PaymentMethod string

const (
	// PaymentMethodPerKWh bills the reading multiplied by the unit price.
	PaymentMethodPerKWh PaymentMethod = "per_kwh"
	// PaymentMethodFixed bills a flat amount regardless of the reading.
	PaymentMethodFixed PaymentMethod = "fixed"
)

// Valid reports whether the method belongs to the known set.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodPerKWh, PaymentMethodFixed:
		return true
	default:
		return false
	}
}

// Tariff is a named pricing plan. Exactly one of PricePerKWh and
// FixedPayment is meaningful, selected by PaymentMethod.
type Tariff struct {
	ID            snowflake.ID     `gorm:"primaryKey" json:"id"`
	Name          string           `gorm:"type:text;not null" json:"name"`
	Description   string           `gorm:"type:text;not null;default:''" json:"description"`
	PaymentMethod PaymentMethod    `gorm:"type:text;not null" json:"payment_method"`
	PricePerKWh   *decimal.Decimal `gorm:"type:numeric(10,2)" json:"price_per_kwh,omitempty"`
	FixedPayment  *decimal.Decimal `gorm:"type:numeric(10,2)" json:"fixed_payment,omitempty"`
	IsHidden      bool             `gorm:"not null;default:false" json:"is_hidden"`
	CreatedAt     time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Tariff) TableName() string { return "tariffs" }
