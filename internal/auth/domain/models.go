// Package domain contains identity models for login and registration.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// User is an authenticated account. Billing state lives on the client
// record linked one-to-one with the user.
type User struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Username     string       `gorm:"type:text;not null;uniqueIndex" json:"username"`
	Email        string       `gorm:"type:text;not null" json:"email"`
	FirstName    string       `gorm:"type:text;not null;default:''" json:"first_name"`
	LastName     string       `gorm:"type:text;not null;default:''" json:"last_name"`
	PasswordHash string       `gorm:"type:text;not null" json:"-"`
	IsAdmin      bool         `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }
