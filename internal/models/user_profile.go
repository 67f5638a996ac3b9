package models

import "time"

// UserProfile holds account metadata kept apart from the core identity record.
// Email is indexed but not unique at the store level; uniqueness is checked by
// the validation service before writes.
type UserProfile struct {
	BaseModel

	UserID uint   `gorm:"uniqueIndex;not null" json:"user_id"`
	Email  string `gorm:"index;size:254" json:"email"`

	Photo            []byte     `json:"-"`
	PhotoName        string     `gorm:"size:64" json:"photo_name,omitempty"`
	PhotoContentType string     `gorm:"size:128" json:"photo_content_type,omitempty"`
	PhotoSize        int64      `json:"photo_size,omitempty"`
	PhotoUpdatedAt   *time.Time `json:"photo_updated_at,omitempty"`
}
