package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Profile is the public identity of a chat participant.
// Profiles are created at signup and never hard-deleted.
type Profile struct {
	// ID is the user identity (UUID) issued at signup.
	ID string `gorm:"primaryKey" json:"id"`
	// DisplayName is shown next to messages and typing indicators.
	DisplayName string `gorm:"type:text;not null" json:"display_name"`
	// PreferredLanguage decides which language messages are displayed in.
	PreferredLanguage string `gorm:"type:text;not null;default:'en'" json:"preferred_language"`
	// AvatarURL is an optional reference to an avatar image.
	AvatarURL string `gorm:"type:text" json:"avatar_url,omitempty"`
	// TelegramID links the profile to a Telegram chat when the bridge is used.
	TelegramID *int64 `gorm:"uniqueIndex" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// BeforeCreate is a GORM hook that assigns a UUID and the default
// language when they are not set yet.
func (p *Profile) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.PreferredLanguage == "" {
		p.PreferredLanguage = DefaultLanguage
	}
	return
}

// Language returns the preferred language, falling back to DefaultLanguage.
func (p *Profile) Language() string {
	if p == nil || p.PreferredLanguage == "" {
		return DefaultLanguage
	}
	return p.PreferredLanguage
}
