package storage

import (
	"babelchat/backend/internal/models"
	"context"
	"log/slog"

	"gorm.io/gorm/clause"
)

// SaveMessage inserts a message. ID and CreatedAt are filled in on msg.
func (s *Service) SaveMessage(ctx context.Context, msg *models.Message) error {
	if err := s.DB.WithContext(ctx).Create(msg).Error; err != nil {
		slog.Error("message_save_failed", "room_id", msg.RoomID, "error", err)
		return err
	}
	return nil
}

// GetChatHistory returns the latest limit messages of a room in ascending order.
func (s *Service) GetChatHistory(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	var history []models.Message
	err := s.DB.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&history).Error
	if err != nil {
		slog.Error("history_load_failed", "room_id", roomID, "error", err)
		return nil, err
	}

	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}
	return history, nil
}

// GetTranslation reads one cached translation.
func (s *Service) GetTranslation(ctx context.Context, messageID, lang string) (string, bool, error) {
	var rows []models.MessageTranslation
	err := s.DB.WithContext(ctx).
		Where("message_id = ? AND target_language = ?", messageID, lang).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return "", false, err
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	return rows[0].TranslatedContent, true, nil
}

// GetTranslations reads cached translations for many messages into one language.
func (s *Service) GetTranslations(ctx context.Context, messageIDs []string, lang string) (map[string]string, error) {
	out := make(map[string]string, len(messageIDs))
	if len(messageIDs) == 0 {
		return out, nil
	}
	var rows []models.MessageTranslation
	err := s.DB.WithContext(ctx).
		Where("message_id IN ? AND target_language = ?", messageIDs, lang).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.MessageID] = r.TranslatedContent
	}
	return out, nil
}

// SaveTranslation inserts a cache entry unless one already exists for the
// same (message, language). The bool result reports whether a row was written.
func (s *Service) SaveTranslation(ctx context.Context, tr *models.MessageTranslation) (bool, error) {
	res := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_id"}, {Name: "target_language"}},
			DoNothing: true,
		}).
		Create(tr)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
