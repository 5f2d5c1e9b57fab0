package handler

import (
	"babelchat/backend/internal/chathub"
	"babelchat/backend/internal/models"
	"babelchat/backend/internal/rooms"
	"babelchat/backend/internal/storage"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

var (
	errInvalidBody        = errors.New("invalid request body")
	errDisplayName        = errors.New("display name must be between 1 and 50 characters")
	errUnsupportedLang    = errors.New("unsupported language")
	errMissingRoom        = errors.New("room_id is required")
	errEmptyTranslateText = errors.New("content, sourceLocale and targetLocale are required")
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrAuthenticationRequired):
		return http.StatusUnauthorized
	case errors.Is(err, rooms.ErrInvalidInviteCode),
		errors.Is(err, rooms.ErrRoomNotFound),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, rooms.ErrPrivateRoom),
		errors.Is(err, rooms.ErrNotMember):
		return http.StatusForbidden
	case errors.Is(err, rooms.ErrInvalidRoomName),
		errors.Is(err, rooms.ErrRoomNameTooLong),
		errors.Is(err, rooms.ErrDescriptionLong),
		errors.Is(err, chathub.ErrEmptyMessage),
		errors.Is(err, chathub.ErrMessageTooLong),
		errors.Is(err, errInvalidBody),
		errors.Is(err, errDisplayName),
		errors.Is(err, errUnsupportedLang),
		errors.Is(err, errMissingRoom),
		errors.Is(err, errEmptyTranslateText):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request_failed", "path", c.FullPath(), "error", err)
		c.AbortWithStatusJSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
