package handler

import (
	"babelchat/backend/internal/models"
	"babelchat/backend/internal/rooms"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListMyRooms(c *gin.Context) {
	list, err := h.Rooms.ListRoomsForUser(c.Request.Context(), currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if list == nil {
		list = []models.Room{}
	}
	c.JSON(http.StatusOK, gin.H{"rooms": list})
}

func (h *Handler) ListPublicRooms(c *gin.Context) {
	list, err := h.Rooms.ListPublicRoomsWithMemberCounts(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if list == nil {
		list = []models.RoomWithCount{}
	}
	c.JSON(http.StatusOK, gin.H{"rooms": list})
}

type createRoomRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    bool   `json:"is_public"`
}

func (h *Handler) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errInvalidBody)
		return
	}
	room, err := h.Rooms.CreateRoom(c.Request.Context(), rooms.CreateRoomInput{
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		CreatorID:   currentUser(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (h *Handler) JoinRoom(c *gin.Context) {
	if err := h.Rooms.Join(c.Request.Context(), c.Param("id"), currentUser(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room_id": c.Param("id"), "joined": true})
}

type joinByInviteRequest struct {
	InviteCode string `json:"invite_code"`
}

func (h *Handler) JoinByInviteCode(c *gin.Context) {
	var req joinByInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errInvalidBody)
		return
	}
	room, err := h.Rooms.JoinByInviteCode(c.Request.Context(), req.InviteCode, currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *Handler) LeaveRoom(c *gin.Context) {
	if err := h.Rooms.Leave(c.Request.Context(), c.Param("id"), currentUser(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) RegenerateInviteCode(c *gin.Context) {
	code, err := h.Rooms.RegenerateInviteCode(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invite_code": code})
}
