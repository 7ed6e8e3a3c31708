package model

import "time"

// Room is a jam session: a tempo, a key signature and the loops
// collaborators record into it.
type Room struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Title     string    `json:"title" gorm:"size:100;not null"`
	BPM       int       `json:"bpm" gorm:"default:120"`
	KeySig    string    `json:"keySig" gorm:"size:10"`
	IsPublic  bool      `json:"isPublic" gorm:"default:false;index"`
	Code      string    `json:"code" gorm:"size:6;uniqueIndex;not null"` // invite code
	HostID    int64     `json:"hostId" gorm:"index;not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName sets the table name.
func (Room) TableName() string {
	return "rooms"
}

// RoomInfo is the room shape returned by the API, with the host's name joined in.
type RoomInfo struct {
	Room
	HostName  string `json:"hostName"`
	LoopCount int    `json:"loopCount"`
}
