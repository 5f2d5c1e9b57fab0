package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Room is a named conversation channel with a visibility flag and an invite code.
type Room struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:text;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	IsPublic    bool      `gorm:"not null" json:"is_public"`
	CreatedBy   string    `gorm:"type:text;not null;index" json:"created_by"`
	InviteCode  string    `gorm:"type:text;not null;uniqueIndex" json:"invite_code"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

func (r *Room) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}

// RoomMember links a user to a room. A user appears at most once per room,
// which the composite unique index enforces.
type RoomMember struct {
	ID       string    `gorm:"primaryKey" json:"id"`
	RoomID   string    `gorm:"type:text;not null;uniqueIndex:idx_room_member,priority:1" json:"room_id"`
	UserID   string    `gorm:"type:text;not null;uniqueIndex:idx_room_member,priority:2;index" json:"user_id"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

func (m *RoomMember) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}

// RoomWithCount is the read model behind the public room directory.
type RoomWithCount struct {
	Room
	MemberCount int64 `json:"member_count"`
}
