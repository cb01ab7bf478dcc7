// Package user defines the owning-user record. Tasks reference it only by
// its identifier for scoping.
package user

import (
	"time"
)

// User represents a registered user.
type User struct {
	UserID       uint   `gorm:"primaryKey;autoIncrement"`
	Name         string `gorm:"size:100;not null"`
	Email        string `gorm:"size:120;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:128;not null"`
	// NotifyChannel is the pub/sub channel reminders are published to.
	// Empty means the user opted out of reminders.
	NotifyChannel string `gorm:"size:255"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// Claims represents the verified identity attached to a request.
type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
}

// TokenPair represents access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}
