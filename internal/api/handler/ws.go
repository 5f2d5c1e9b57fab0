package handler

import (
	"babelchat/backend/internal/session"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsers connect from the frontend origin; tighten this behind a known origin list in production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the connection and streams a live session view of
// one room to the client.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUser(c)
	roomID := c.Query("room_id")
	if roomID == "" {
		writeError(c, errMissingRoom)
		return
	}
	if err := h.Rooms.RequireMember(ctx, roomID, userID); err != nil {
		writeError(c, err)
		return
	}
	profile, err := h.Profiles.GetProfile(ctx, userID)
	if err != nil {
		writeError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		slog.Warn("ws_upgrade_failed", "user_id", userID, "error", err)
		return
	}

	client := newWSClient(conn, userID)
	viewer := session.Viewer{
		UserID:            userID,
		DisplayName:       profile.DisplayName,
		PreferredLanguage: profile.Language(),
		SubscriberID:      c.Query("subscriber_id"),
	}
	view, err := h.Sessions.Open(ctx, viewer, roomID, client.pushSnapshot)
	if err != nil {
		slog.Error("ws_session_open_failed", "user_id", userID, "room_id", roomID, "error", err)
		client.closeWithError(err)
		return
	}
	client.view = view
	client.pushSnapshot(view.Snapshot())

	slog.Info("ws_connected", "user_id", userID, "room_id", roomID)
	client.Run()
}
