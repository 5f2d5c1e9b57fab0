package storage

import (
	"babelchat/backend/internal/models"
	"context"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("storage: record not found")
	// ErrDuplicate is returned when an insert violates a unique index.
	ErrDuplicate = errors.New("storage: duplicate key")
)

// Storage is the persistence surface used by the rest of the service.
type Storage interface {
	CreateProfile(ctx context.Context, profile *models.Profile) error
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	GetProfiles(ctx context.Context, ids []string) ([]models.Profile, error)
	UpdateProfile(ctx context.Context, profile *models.Profile) error
	SaveProfileIfNotExists(ctx context.Context, telegramID int64, displayName string) (*models.Profile, error)

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

	SaveMessage(ctx context.Context, msg *models.Message) error
	GetChatHistory(ctx context.Context, roomID string, limit int) ([]models.Message, error)

	GetTranslation(ctx context.Context, messageID, lang string) (string, bool, error)
	GetTranslations(ctx context.Context, messageIDs []string, lang string) (map[string]string, error)
	SaveTranslation(ctx context.Context, tr *models.MessageTranslation) (bool, error)
}

// Service implements Storage on top of PostgreSQL (via gorm) and Redis.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
	}
}

// AutoMigrate creates or updates every table the service owns.
func (s *Service) AutoMigrate() error {
	return s.DB.AutoMigrate(
		&models.Profile{},
		&models.Room{},
		&models.RoomMember{},
		&models.Message{},
		&models.MessageTranslation{},
	)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// duplicate relies on gorm.Config.TranslateError being enabled.
func duplicate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

// CreateProfile stores a new profile.
func (s *Service) CreateProfile(ctx context.Context, profile *models.Profile) error {
	if err := s.DB.WithContext(ctx).Create(profile).Error; err != nil {
		slog.Error("profile_create_failed", "error", err)
		return err
	}
	return nil
}

func (s *Service) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

// GetProfiles returns the profiles for ids in no particular order. Unknown ids are skipped.
func (s *Service) GetProfiles(ctx context.Context, ids []string) ([]models.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var profiles []models.Profile
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// UpdateProfile persists the mutable profile fields.
func (s *Service) UpdateProfile(ctx context.Context, profile *models.Profile) error {
	res := s.DB.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ?", profile.ID).
		Updates(map[string]interface{}{
			"display_name":       profile.DisplayName,
			"preferred_language": profile.PreferredLanguage,
			"avatar_url":         profile.AvatarURL,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveProfileIfNotExists returns the profile linked to a Telegram chat, creating it on first contact.
func (s *Service) SaveProfileIfNotExists(ctx context.Context, telegramID int64, displayName string) (*models.Profile, error) {
	var profile models.Profile
	defaults := models.Profile{
		TelegramID:  &telegramID,
		DisplayName: displayName,
	}

	result := s.DB.WithContext(ctx).Where("telegram_id = ?", telegramID).FirstOrCreate(&profile, defaults)
	if result.Error != nil {
		slog.Error("profile_first_contact_failed", "telegram_id", telegramID, "error", result.Error)
		return nil, result.Error
	}
	if result.RowsAffected > 0 {
		slog.Info("profile_created", "profile_id", profile.ID, "telegram_id", telegramID)
	}
	return &profile, nil
}
