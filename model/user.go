package model

import "time"

// User represents a registered user.
type User struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Username     string    `json:"username" gorm:"size:100;uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"` // Not exposed in API responses
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName sets the table name.
func (User) TableName() string {
	return "users"
}

// UserRef is the trimmed user shape embedded in loop listings.
type UserRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
