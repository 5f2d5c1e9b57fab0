// Package rooms manages rooms and who belongs to them: creation, joining
// by id or invite code, leaving and the public room directory.
package rooms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"babelchat/backend/internal/config"
	"babelchat/backend/internal/models"
	"babelchat/backend/internal/storage"

	"github.com/jaevor/go-nanoid"
)

var (
	ErrInvalidInviteCode = errors.New("Invalid invite code")
	ErrRoomNotFound      = errors.New("room not found")
	ErrPrivateRoom       = errors.New("room is private, an invite code is required")
	ErrNotMember         = errors.New("not a member of this room")
	ErrInvalidRoomName   = errors.New("room name is required")
	ErrRoomNameTooLong   = fmt.Errorf("room name must be at most %d characters", config.MaxRoomNameLength)
	ErrDescriptionLong   = fmt.Errorf("room description must be at most %d characters", config.MaxRoomDescLength)
	errInviteExhausted   = errors.New("could not generate a unique invite code")
)

// Store is the persistence the service needs; storage.Service implements it.
type Store interface {
	CreateRoomWithOwner(ctx context.Context, room *models.Room) (*models.RoomMember, error)
	GetRoomByID(ctx context.Context, roomID string) (*models.Room, error)
	GetRoomByInviteCode(ctx context.Context, code string) (*models.Room, error)
	InviteCodeExists(ctx context.Context, code string) (bool, error)
	UpdateInviteCode(ctx context.Context, roomID, code string) error
	ListRoomsForUser(ctx context.Context, userID string) ([]models.Room, error)
	ListPublicRoomsWithCounts(ctx context.Context) ([]models.RoomWithCount, error)
	AddMember(ctx context.Context, roomID, userID string) (*models.RoomMember, bool, error)
	RemoveMember(ctx context.Context, roomID, userID string) (*models.RoomMember, bool, error)
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
	CountMembers(ctx context.Context, roomID string) (int64, error)
}

// EventPublisher fans membership changes out to room subscribers.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev models.Event) error
}

// CreateRoomInput carries the user-supplied fields of a new room.
type CreateRoomInput struct {
	Name        string
	Description string
	IsPublic    bool
	CreatorID   string
}

type Service struct {
	store   Store
	events  EventPublisher
	newCode func() string
}

// NewService builds the membership service. events may be nil.
func NewService(store Store, events EventPublisher) (*Service, error) {
	gen, err := nanoid.CustomASCII(config.InviteCodeAlphabet, config.InviteCodeLength)
	if err != nil {
		return nil, fmt.Errorf("invite code generator: %w", err)
	}
	return &Service{store: store, events: events, newCode: gen}, nil
}

// ListRoomsForUser returns the rooms userID is a member of, oldest first.
func (s *Service) ListRoomsForUser(ctx context.Context, userID string) ([]models.Room, error) {
	if userID == "" {
		return nil, models.ErrAuthenticationRequired
	}
	return s.store.ListRoomsForUser(ctx, userID)
}

func (s *Service) ListPublicRoomsWithMemberCounts(ctx context.Context) ([]models.RoomWithCount, error) {
	return s.store.ListPublicRoomsWithCounts(ctx)
}

// CreateRoom creates a room with a fresh invite code. The creator is a
// member from the moment the room exists.
func (s *Service) CreateRoom(ctx context.Context, in CreateRoomInput) (*models.Room, error) {
	if in.CreatorID == "" {
		return nil, models.ErrAuthenticationRequired
	}
	name := strings.TrimSpace(in.Name)
	desc := strings.TrimSpace(in.Description)
	switch {
	case name == "":
		return nil, ErrInvalidRoomName
	case utf8.RuneCountInString(name) > config.MaxRoomNameLength:
		return nil, ErrRoomNameTooLong
	case utf8.RuneCountInString(desc) > config.MaxRoomDescLength:
		return nil, ErrDescriptionLong
	}

	for attempt := 0; attempt < config.InviteCodeMaxRetries; attempt++ {
		code, err := s.uniqueCode(ctx)
		if err != nil {
			return nil, err
		}
		room := &models.Room{
			Name:        name,
			Description: desc,
			IsPublic:    in.IsPublic,
			CreatedBy:   in.CreatorID,
			InviteCode:  code,
		}
		_, err = s.store.CreateRoomWithOwner(ctx, room)
		if errors.Is(err, storage.ErrDuplicate) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create room: %w", err)
		}
		slog.Info("room_created", "room_id", room.ID, "created_by", room.CreatedBy, "public", room.IsPublic)
		return room, nil
	}
	return nil, errInviteExhausted
}

func (s *Service) uniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < config.InviteCodeMaxRetries; attempt++ {
		code := s.newCode()
		exists, err := s.store.InviteCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check invite code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", errInviteExhausted
}

// Join adds userID to a public room. Joining a room twice succeeds
// without side effects. Private rooms can only be joined by invite code.
func (s *Service) Join(ctx context.Context, roomID, userID string) error {
	if userID == "" {
		return models.ErrAuthenticationRequired
	}
	room, err := s.store.GetRoomByID(ctx, roomID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrRoomNotFound
	}
	if err != nil {
		return err
	}
	if !room.IsPublic {
		member, err := s.store.IsMember(ctx, roomID, userID)
		if err != nil {
			return err
		}
		if member {
			return nil
		}
		return ErrPrivateRoom
	}
	return s.addMember(ctx, room.ID, userID)
}

// JoinByInviteCode resolves an invite code and joins its room, returning
// the room so the caller can subscribe to it right away.
func (s *Service) JoinByInviteCode(ctx context.Context, code, userID string) (*models.Room, error) {
	if userID == "" {
		return nil, models.ErrAuthenticationRequired
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrInvalidInviteCode
	}
	room, err := s.store.GetRoomByInviteCode(ctx, code)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidInviteCode
	}
	if err != nil {
		return nil, err
	}
	if err := s.addMember(ctx, room.ID, userID); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *Service) addMember(ctx context.Context, roomID, userID string) error {
	member, inserted, err := s.store.AddMember(ctx, roomID, userID)
	if err != nil {
		return fmt.Errorf("join room: %w", err)
	}
	if !inserted {
		return nil
	}
	slog.Info("member_joined", "room_id", roomID, "user_id", userID)
	s.publish(ctx, models.MemberJoined{Member: *member})
	return nil
}

// Leave removes userID from a room. Leaving a room you are not in is a no-op.
func (s *Service) Leave(ctx context.Context, roomID, userID string) error {
	if userID == "" {
		return models.ErrAuthenticationRequired
	}
	member, removed, err := s.store.RemoveMember(ctx, roomID, userID)
	if err != nil {
		return fmt.Errorf("leave room: %w", err)
	}
	if removed {
		slog.Info("member_left", "room_id", roomID, "user_id", userID)
		s.publish(ctx, models.MemberLeft{Member: *member})
	}
	return nil
}

// RegenerateInviteCode replaces the invite code of a room; only members may do it.
func (s *Service) RegenerateInviteCode(ctx context.Context, roomID, userID string) (string, error) {
	if err := s.RequireMember(ctx, roomID, userID); err != nil {
		return "", err
	}
	code, err := s.uniqueCode(ctx)
	if err != nil {
		return "", err
	}
	if err := s.store.UpdateInviteCode(ctx, roomID, code); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", ErrRoomNotFound
		}
		return "", err
	}
	return code, nil
}

// RequireMember returns nil when userID belongs to roomID.
func (s *Service) RequireMember(ctx context.Context, roomID, userID string) error {
	if userID == "" {
		return models.ErrAuthenticationRequired
	}
	ok, err := s.store.IsMember(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotMember
	}
	return nil
}

// GetRoom returns a room together with its member count.
func (s *Service) GetRoom(ctx context.Context, roomID string) (*models.RoomWithCount, error) {
	room, err := s.store.GetRoomByID(ctx, roomID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	count, err := s.store.CountMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return &models.RoomWithCount{Room: *room, MemberCount: count}, nil
}

func (s *Service) publish(ctx context.Context, ev models.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEvent(ctx, ev); err != nil {
		slog.Warn("membership_event_publish_failed", "room_id", ev.EventRoomID(), "type", ev.EventType(), "error", err)
	}
}
