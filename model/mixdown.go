package model

import "time"

// Mixdown records one exported mix of a room's enabled loops.
type Mixdown struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	RoomID    string    `json:"roomId" gorm:"size:36;index;not null"`
	UserID    int64     `json:"userId" gorm:"index;not null"`
	URL       string    `json:"url" gorm:"size:767;not null"`
	ObjectKey string    `json:"-" gorm:"size:255;not null"`
	Filename  string    `json:"filename" gorm:"size:255;not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"`
}

// TableName sets the table name.
func (Mixdown) TableName() string {
	return "mixdowns"
}
