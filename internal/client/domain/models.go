// Package domain contains the billing account models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	tariffdomain "github.com/smallgrid/voltera/internal/tariff/domain"
)

// ClientType is informational only and never affects pricing.
type ClientType string

const (
	ClientTypeIndividual ClientType = "individual"
	ClientTypeLegal      ClientType = "legal"
)

// Valid reports whether the type belongs to the known set.
func (t ClientType) Valid() bool {
	switch t {
	case ClientTypeIndividual, ClientTypeLegal:
		return true
	default:
		return false
	}
}

// Client is a billing account bound one-to-one to a user. TariffID is
// nullable: deleting a tariff clears the reference instead of cascading.
type Client struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	UserID         snowflake.ID  `gorm:"not null;uniqueIndex" json:"user_id"`
	ClientType     ClientType    `gorm:"type:text;not null" json:"client_type"`
	TariffID       *snowflake.ID `gorm:"index" json:"tariff_id,omitempty"`
	ContractNumber string        `gorm:"type:text;not null;uniqueIndex" json:"contract_number"`
	CreatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Tariff *tariffdomain.Tariff `gorm:"foreignKey:TariffID" json:"tariff,omitempty"`
}

// TableName sets the database table name.
func (Client) TableName() string { return "clients" }
