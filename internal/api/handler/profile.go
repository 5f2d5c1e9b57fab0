package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetMe(c *gin.Context) {
	profile, err := h.Profiles.GetProfile(c.Request.Context(), currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

type updateProfileRequest struct {
	DisplayName       *string `json:"display_name"`
	PreferredLanguage *string `json:"preferred_language"`
	AvatarURL         *string `json:"avatar_url"`
}

// UpdateMe changes the fields present in the body and leaves the rest alone.
func (h *Handler) UpdateMe(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errInvalidBody)
		return
	}
	ctx := c.Request.Context()
	profile, err := h.Profiles.GetProfile(ctx, currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}

	name, lang := profile.DisplayName, profile.PreferredLanguage
	if req.DisplayName != nil {
		name = *req.DisplayName
	}
	if req.PreferredLanguage != nil {
		lang = *req.PreferredLanguage
	}
	name, lang, err = validateProfile(name, lang)
	if err != nil {
		writeError(c, err)
		return
	}
	profile.DisplayName = name
	profile.PreferredLanguage = lang
	if req.AvatarURL != nil {
		profile.AvatarURL = *req.AvatarURL
	}

	if err := h.Profiles.UpdateProfile(ctx, profile); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
