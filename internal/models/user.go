package models

import (
	"strings"
	"time"
)

// AnonymousUserID identifies requests without an authenticated user. It is never persisted.
const AnonymousUserID uint = 0

// User is the core account identity.
type User struct {
	BaseModel

	Username string  `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email    *string `gorm:"index;size:254" json:"email,omitempty"`
	Password string  `gorm:"not null" json:"-"`

	EmailVerified      bool       `gorm:"not null;default:false" json:"email_verified"`
	VerificationCode   string     `gorm:"index;size:128" json:"-"`
	VerificationSentAt *time.Time `json:"-"`

	Profile *UserProfile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
}

// EmailAddress returns the trimmed email or an empty string when none is set.
func (u *User) EmailAddress() string {
	if u == nil || u.Email == nil {
		return ""
	}
	return strings.TrimSpace(*u.Email)
}

// HasEmail reports whether the user can receive mail.
func (u *User) HasEmail() bool {
	return u.EmailAddress() != ""
}

// IsAnonymous reports whether the user is the unsaved anonymous sentinel.
func (u *User) IsAnonymous() bool {
	return u == nil || u.ID == AnonymousUserID
}
