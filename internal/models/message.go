package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is an immutable chat message. Order within a room is defined by
// CreatedAt, with ties broken by the order the channel received them.
type Message struct {
	ID string `gorm:"primaryKey" json:"id"`
	// RoomID and CreatedAt share an index because history is always read per room in time order.
	RoomID   string `gorm:"type:text;not null;index:idx_room_created,priority:1" json:"room_id"`
	SenderID string `gorm:"type:text;not null" json:"sender_id"`
	Content  string `gorm:"type:text;not null" json:"content"`
	// SourceLanguage is the language the message was authored in.
	SourceLanguage string    `gorm:"type:text;not null" json:"source_language"`
	CreatedAt      time.Time `gorm:"index:idx_room_created,priority:2" json:"created_at"`
}

// BeforeCreate assigns a version 7 UUID. V7 ids sort in creation order
// (monotonic within a process), so history breaks created_at ties by id.
func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		m.ID = id.String()
	}
	return nil
}

// MessageTranslation is a permanent cache entry for one message in one language.
// There is at most one row per (message, target language).
type MessageTranslation struct {
	ID                string    `gorm:"primaryKey" json:"id"`
	MessageID         string    `gorm:"type:text;not null;uniqueIndex:idx_message_lang,priority:1" json:"message_id"`
	TargetLanguage    string    `gorm:"type:text;not null;uniqueIndex:idx_message_lang,priority:2" json:"target_language"`
	TranslatedContent string    `gorm:"type:text;not null" json:"translated_content"`
	CreatedAt         time.Time `json:"created_at"`
}

func (t *MessageTranslation) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return
}

// TypingSignal is an ephemeral "user is typing" notice. It is never persisted.
type TypingSignal struct {
	RoomID      string `json:"room_id"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}
