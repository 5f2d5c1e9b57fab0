package session

import (
	"babelchat/backend/internal/chathub"
	"babelchat/backend/internal/models"
	"time"
)

// State is the lifecycle of a View.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
)

// TranslationState is where one message is in its translation for this viewer.
type TranslationState string

const (
	Untranslated TranslationState = "untranslated"
	Translating  TranslationState = "translating"
	Translated   TranslationState = "translated"
	NotNeeded    TranslationState = "not_needed"
)

// Viewer identifies who is looking at a room.
type Viewer struct {
	UserID            string
	DisplayName       string
	PreferredLanguage string
	// SubscriberID identifies this view to the hub; reopening with the same
	// id replaces the previous subscription.
	SubscriberID string
}

type messageEntry struct {
	msg          models.Message
	state        TranslationState
	text         string
	fallback     bool
	showOriginal bool
}

func (e *messageEntry) displayText() string {
	if e.showOriginal || e.state != Translated {
		return e.msg.Content
	}
	return e.text
}

type typingEntry struct {
	name      string
	expiresAt time.Time
}

// MessageSnapshot is one rendered message.
type MessageSnapshot struct {
	ID               string           `json:"id"`
	SenderID         string           `json:"sender_id"`
	SenderName       string           `json:"sender_name"`
	Content          string           `json:"content"`
	SourceLanguage   string           `json:"source_language"`
	CreatedAt        time.Time        `json:"created_at"`
	TranslationState TranslationState `json:"translation_state"`
	DisplayText      string           `json:"display_text"`
	// Fallback is set when the translation service was unavailable and the original text is shown.
	Fallback        bool `json:"fallback,omitempty"`
	ShowingOriginal bool `json:"showing_original,omitempty"`
	Own             bool `json:"own"`
}

// ViewSnapshot is an immutable copy of a View's state.
type ViewSnapshot struct {
	State       State             `json:"state"`
	RoomID      string            `json:"room_id"`
	RoomName    string            `json:"room_name"`
	Language    string            `json:"language"`
	MemberCount int64             `json:"member_count"`
	Messages    []MessageSnapshot `json:"messages"`
	TypingUsers []string          `json:"typing_users"`
	Status      chathub.Status    `json:"status,omitempty"`
	StatusError string            `json:"status_error,omitempty"`
}

// Message returns the snapshot of one message.
func (s ViewSnapshot) Message(id string) (MessageSnapshot, bool) {
	for _, m := range s.Messages {
		if m.ID == id {
			return m, true
		}
	}
	return MessageSnapshot{}, false
}
