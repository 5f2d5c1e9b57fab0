package storage

import (
	"babelchat/backend/internal/models"
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateRoomWithOwner inserts the room and the creator's membership in one
// transaction, so a room is never visible without its creator as a member.
func (s *Service) CreateRoomWithOwner(ctx context.Context, room *models.Room) (*models.RoomMember, error) {
	member := &models.RoomMember{UserID: room.CreatedBy}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		member.RoomID = room.ID
		return tx.Create(member).Error
	})
	if err != nil {
		slog.Error("room_create_failed", "name", room.Name, "created_by", room.CreatedBy, "error", err)
		return nil, duplicate(err)
	}
	return member, nil
}

func (s *Service) GetRoomByID(ctx context.Context, roomID string) (*models.Room, error) {
	var room models.Room
	if err := s.DB.WithContext(ctx).Where("id = ?", roomID).First(&room).Error; err != nil {
		return nil, notFound(err)
	}
	return &room, nil
}

func (s *Service) GetRoomByInviteCode(ctx context.Context, code string) (*models.Room, error) {
	var room models.Room
	if err := s.DB.WithContext(ctx).Where("invite_code = ?", code).First(&room).Error; err != nil {
		return nil, notFound(err)
	}
	return &room, nil
}

func (s *Service) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.Room{}).Where("invite_code = ?", code).Count(&count).Error
	return count > 0, err
}

func (s *Service) UpdateInviteCode(ctx context.Context, roomID, code string) error {
	res := s.DB.WithContext(ctx).Model(&models.Room{}).
		Where("id = ?", roomID).
		Update("invite_code", code)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRoomsForUser returns the rooms userID belongs to, oldest first.
func (s *Service) ListRoomsForUser(ctx context.Context, userID string) ([]models.Room, error) {
	var rooms []models.Room
	err := s.DB.WithContext(ctx).
		Joins("JOIN room_members ON room_members.room_id = rooms.id").
		Where("room_members.user_id = ?", userID).
		Order("rooms.created_at ASC").
		Find(&rooms).Error
	if err != nil {
		slog.Error("rooms_for_user_failed", "user_id", userID, "error", err)
		return nil, err
	}
	return rooms, nil
}

// ListPublicRoomsWithCounts returns every public room with its member count,
// busiest rooms first.
func (s *Service) ListPublicRoomsWithCounts(ctx context.Context) ([]models.RoomWithCount, error) {
	var rooms []models.RoomWithCount
	err := s.DB.WithContext(ctx).
		Model(&models.Room{}).
		Select("rooms.*, COUNT(room_members.id) AS member_count").
		Joins("LEFT JOIN room_members ON room_members.room_id = rooms.id").
		Where("rooms.is_public = ?", true).
		Group("rooms.id").
		Order("member_count DESC, rooms.created_at ASC").
		Scan(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

// AddMember inserts a membership. The bool result is false when the user
// was already a member; that case is not an error.
func (s *Service) AddMember(ctx context.Context, roomID, userID string) (*models.RoomMember, bool, error) {
	member := &models.RoomMember{RoomID: roomID, UserID: userID}
	res := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(member)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		var existing models.RoomMember
		if err := s.DB.WithContext(ctx).Where("room_id = ? AND user_id = ?", roomID, userID).First(&existing).Error; err != nil {
			return nil, false, notFound(err)
		}
		return &existing, false, nil
	}
	return member, true, nil
}

// RemoveMember deletes a membership. The bool result is false when there was nothing to delete.
func (s *Service) RemoveMember(ctx context.Context, roomID, userID string) (*models.RoomMember, bool, error) {
	var member models.RoomMember
	err := s.DB.WithContext(ctx).Where("room_id = ? AND user_id = ?", roomID, userID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	res := s.DB.WithContext(ctx).Delete(&models.RoomMember{}, "id = ?", member.ID)
	if res.Error != nil {
		return nil, false, res.Error
	}
	return &member, res.RowsAffected > 0, nil
}

func (s *Service) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.RoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	return count > 0, err
}

func (s *Service) CountMembers(ctx context.Context, roomID string) (int64, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.RoomMember{}).Where("room_id = ?", roomID).Count(&count).Error
	return count, err
}
