package models

import "time"

// User is an account. The email doubles as the login name; there is no
// separate username.
type User struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"type:varchar(190);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"-"`
}

func (User) TableName() string { return "users" }

// Participant is the chat-domain identity of a User, created in the same
// transaction as the account. It exists so chat tables never reference the
// account table directly and chat-specific fields have somewhere to live.
type Participant struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID    uint64    `gorm:"uniqueIndex;not null" json:"-"`
	User      User      `json:"-"`
	CreatedAt time.Time `json:"-"`
}

func (Participant) TableName() string { return "participants" }
