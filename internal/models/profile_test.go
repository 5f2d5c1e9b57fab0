package models_test

import (
	"babelchat/backend/internal/models"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// TestProfileBeforeCreate_GeneratesUUID verifies that the BeforeCreate hook generates a valid UUID.
func TestProfileBeforeCreate_GeneratesUUID(t *testing.T) {
	profile := &models.Profile{DisplayName: "Ana"}

	assert.Empty(t, profile.ID, "Profile ID should be empty before BeforeCreate")

	err := profile.BeforeCreate(nil) // nil *gorm.DB is acceptable for this hook

	assert.NoError(t, err)
	parsed, parseErr := uuid.Parse(profile.ID)
	assert.NoError(t, parseErr, "Profile ID must be a valid UUID string")
	assert.NotEqual(t, uuid.Nil, parsed)
	assert.Equal(t, models.DefaultLanguage, profile.PreferredLanguage)
}

// TestProfileBeforeCreate_PreservesExistingValues verifies the hook doesn't overwrite set fields.
func TestProfileBeforeCreate_PreservesExistingValues(t *testing.T) {
	existingID := uuid.New().String()
	profile := &models.Profile{ID: existingID, PreferredLanguage: "ja"}

	err := profile.BeforeCreate(nil)

	assert.NoError(t, err)
	assert.Equal(t, existingID, profile.ID)
	assert.Equal(t, "ja", profile.PreferredLanguage)
}

func TestProfileLanguage_Fallback(t *testing.T) {
	var nilProfile *models.Profile
	assert.Equal(t, "en", nilProfile.Language())
	assert.Equal(t, "en", (&models.Profile{}).Language())
	assert.Equal(t, "hi", (&models.Profile{PreferredLanguage: "hi"}).Language())
}

// TestUniqueIndexTags guards the composite unique indexes that make joins and
// translation cache writes idempotent.
func TestUniqueIndexTags(t *testing.T) {
	memberType := reflect.TypeOf(models.RoomMember{})
	roomField, _ := memberType.FieldByName("RoomID")
	userField, _ := memberType.FieldByName("UserID")
	assert.Contains(t, roomField.Tag.Get("gorm"), "uniqueIndex:idx_room_member")
	assert.Contains(t, userField.Tag.Get("gorm"), "uniqueIndex:idx_room_member")

	trType := reflect.TypeOf(models.MessageTranslation{})
	msgField, _ := trType.FieldByName("MessageID")
	langField, _ := trType.FieldByName("TargetLanguage")
	assert.Contains(t, msgField.Tag.Get("gorm"), "uniqueIndex:idx_message_lang")
	assert.Contains(t, langField.Tag.Get("gorm"), "uniqueIndex:idx_message_lang")

	inviteField, _ := reflect.TypeOf(models.Room{}).FieldByName("InviteCode")
	assert.Contains(t, inviteField.Tag.Get("gorm"), "uniqueIndex")
}

func TestMessageBeforeCreate_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		m := &models.Message{RoomID: "room-1", Content: "hi"}
		assert.NoError(t, m.BeforeCreate(nil))
		assert.False(t, seen[m.ID], "duplicate message id generated")
		seen[m.ID] = true
	}
}

func BenchmarkProfileBeforeCreate(b *testing.B) {
	for i := 0; i < b.N; i++ {
		p := &models.Profile{}
		_ = p.BeforeCreate(nil)
	}
}
