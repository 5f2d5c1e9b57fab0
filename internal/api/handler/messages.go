package handler

import (
	"babelchat/backend/internal/models"
	"babelchat/backend/internal/session"
	"net/http"

	"github.com/gin-gonic/gin"
)

type messageResponse struct {
	models.Message
	TranslatedText   string                   `json:"translated_text"`
	TranslationState session.TranslationState `json:"translation_state"`
	Fallback         bool                     `json:"fallback,omitempty"`
}

// viewerLanguage picks ?lang when given, otherwise the caller's preferred language.
func (h *Handler) viewerLanguage(c *gin.Context) (string, error) {
	if lang := c.Query("lang"); lang != "" {
		return models.NormalizeLanguage(lang), nil
	}
	profile, err := h.Profiles.GetProfile(c.Request.Context(), currentUser(c))
	if err != nil {
		return "", err
	}
	return profile.Language(), nil
}

// ListMessages returns the room history with every message resolved for the viewer.
func (h *Handler) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	roomID := c.Param("id")
	if err := h.Rooms.RequireMember(ctx, roomID, currentUser(c)); err != nil {
		writeError(c, err)
		return
	}
	lang, err := h.viewerLanguage(c)
	if err != nil {
		writeError(c, err)
		return
	}

	history, err := h.Hub.History(ctx, roomID)
	if err != nil {
		writeError(c, err)
		return
	}
	results := h.Translations.BatchTranslate(ctx, history, lang)

	out := make([]messageResponse, len(history))
	for i, m := range history {
		r := results[m.ID]
		state := session.Translated
		if r.NotNeeded {
			state = session.NotNeeded
		}
		out[i] = messageResponse{Message: m, TranslatedText: r.Text, TranslationState: state, Fallback: r.Fallback}
	}
	c.JSON(http.StatusOK, gin.H{"language": lang, "messages": out})
}

type postMessageRequest struct {
	Content        string `json:"content"`
	SourceLanguage string `json:"source_language"`
}

// PostMessage stores a message authored in the caller's preferred language
// unless the body names another one.
func (h *Handler) PostMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errInvalidBody)
		return
	}
	ctx := c.Request.Context()
	roomID := c.Param("id")
	userID := currentUser(c)
	if err := h.Rooms.RequireMember(ctx, roomID, userID); err != nil {
		writeError(c, err)
		return
	}

	lang := req.SourceLanguage
	if lang == "" {
		profile, err := h.Profiles.GetProfile(ctx, userID)
		if err != nil {
			writeError(c, err)
			return
		}
		lang = profile.Language()
	}

	msg, err := h.Hub.PostMessage(ctx, roomID, userID, req.Content, lang)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}
