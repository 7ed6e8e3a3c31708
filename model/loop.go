package model

import "time"

// Loop is one recorded clip inside a room. Enabled, volume and sort order
// are the collaborator-facing mix controls; the mixdown engine reads them
// but never writes them.
type Loop struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	RoomID    string    `json:"roomId" gorm:"size:36;index;not null"`
	UserID    int64     `json:"userId" gorm:"index;not null"`
	Name      string    `json:"name" gorm:"size:100;not null"`
	URL       string    `json:"url" gorm:"size:767;not null"`       // public blob URL
	ObjectKey string    `json:"-" gorm:"size:255;not null"`         // storage object name
	Enabled   bool      `json:"enabled" gorm:"default:true"`
	Volume    float64   `json:"volume" gorm:"default:1.0"`          // linear gain in [0,1]
	SortOrder int       `json:"order" gorm:"column:sort_order;default:0"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName sets the table name.
func (Loop) TableName() string {
	return "loops"
}

// LoopWithUser is the loop shape returned by listings, with the owner joined in.
type LoopWithUser struct {
	Loop
	User UserRef `json:"user" gorm:"-"`
}
