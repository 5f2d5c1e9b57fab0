package handler

import (
	"babelchat/backend/internal/models"
	"babelchat/backend/internal/rooms"
	"babelchat/backend/internal/session"
	"babelchat/backend/internal/translation"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ProfileStore is the profile persistence used by the handlers.
type ProfileStore interface {
	CreateProfile(ctx context.Context, profile *models.Profile) error
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, profile *models.Profile) error
}

type RoomService interface {
	ListRoomsForUser(ctx context.Context, userID string) ([]models.Room, error)
	ListPublicRoomsWithMemberCounts(ctx context.Context) ([]models.RoomWithCount, error)
	CreateRoom(ctx context.Context, in rooms.CreateRoomInput) (*models.Room, error)
	Join(ctx context.Context, roomID, userID string) error
	JoinByInviteCode(ctx context.Context, code, userID string) (*models.Room, error)
	Leave(ctx context.Context, roomID, userID string) error
	RegenerateInviteCode(ctx context.Context, roomID, userID string) (string, error)
	RequireMember(ctx context.Context, roomID, userID string) error
}

type MessageChannel interface {
	PostMessage(ctx context.Context, roomID, senderID, content, sourceLang string) (*models.Message, error)
	History(ctx context.Context, roomID string) ([]models.Message, error)
}

type BatchTranslator interface {
	BatchTranslate(ctx context.Context, msgs []models.Message, lang string) map[string]translation.Result
}

// LanguageGateway backs the stateless /translate and /detect-language endpoints.
type LanguageGateway interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
	DetectLanguage(ctx context.Context, text string) string
}

// ProxyStatsSource reports translation proxy cache counters.
type ProxyStatsSource interface {
	Stats() translation.ProxyStats
}

type SessionOpener interface {
	Open(ctx context.Context, viewer session.Viewer, roomID string, onUpdate func(session.ViewSnapshot)) (*session.View, error)
}

// Handler holds the services behind the HTTP and WebSocket API.
type Handler struct {
	Profiles     ProfileStore
	Rooms        RoomService
	Hub          MessageChannel
	Translations BatchTranslator
	Gateway      LanguageGateway
	Sessions     SessionOpener
	// Proxy is optional; /translate/stats is only mounted when set.
	Proxy ProxyStatsSource

	jwtSecret []byte
}

func NewHandler(profiles ProfileStore, roomSvc RoomService, hub MessageChannel, translations BatchTranslator, gateway LanguageGateway, sessions SessionOpener, jwtSecret string) *Handler {
	return &Handler{
		Profiles:     profiles,
		Rooms:        roomSvc,
		Hub:          hub,
		Translations: translations,
		Gateway:      gateway,
		Sessions:     sessions,
		jwtSecret:    []byte(jwtSecret),
	}
}

// RegisterRoutes mounts every endpoint on r.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/languages", h.ListLanguages)
	r.POST("/translate", h.Translate)
	r.POST("/detect-language", h.DetectLanguage)
	if h.Proxy != nil {
		r.GET("/translate/stats", h.TranslationStats)
	}
	r.POST("/auth/profiles", h.CreateProfile)

	auth := r.Group("/", h.AuthMiddleware())
	auth.GET("/me", h.GetMe)
	auth.PATCH("/me", h.UpdateMe)

	auth.GET("/rooms", h.ListMyRooms)
	auth.GET("/rooms/public", h.ListPublicRooms)
	auth.POST("/rooms", h.CreateRoom)
	auth.POST("/rooms/join", h.JoinByInviteCode)
	auth.POST("/rooms/:id/join", h.JoinRoom)
	auth.DELETE("/rooms/:id/members/me", h.LeaveRoom)
	auth.POST("/rooms/:id/invite-code", h.RegenerateInviteCode)
	auth.GET("/rooms/:id/messages", h.ListMessages)
	auth.POST("/rooms/:id/messages", h.PostMessage)

	auth.GET("/ws", h.ServeWebSocket)
}
