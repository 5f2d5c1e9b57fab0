package handler

import (
	"babelchat/backend/internal/models"
	"babelchat/backend/internal/translation"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type translateRequest struct {
	Content      string `json:"content"`
	SourceLocale string `json:"sourceLocale"`
	TargetLocale string `json:"targetLocale"`
}

// Translate is the stateless translation endpoint. It fails open: when the
// provider is unavailable the original content comes back with fallback set.
func (h *Handler) Translate(c *gin.Context) {
	var req translateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errInvalidBody)
		return
	}
	if strings.TrimSpace(req.Content) == "" || req.SourceLocale == "" || req.TargetLocale == "" {
		writeError(c, errEmptyTranslateText)
		return
	}

	text, err := h.Gateway.Translate(c.Request.Context(), req.Content, req.SourceLocale, req.TargetLocale)
	if err != nil && !errors.Is(err, translation.ErrTranslationUnavailable) {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"translatedText": text, "fallback": err != nil})
}

type detectRequest struct {
	Text string `json:"text"`
}

func (h *Handler) DetectLanguage(c *gin.Context) {
	var req detectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errInvalidBody)
		return
	}
	c.JSON(http.StatusOK, gin.H{"locale": h.Gateway.DetectLanguage(c.Request.Context(), req.Text)})
}

func (h *Handler) ListLanguages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"languages": models.SupportedLanguages})
}

func (h *Handler) TranslationStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.Proxy.Stats())
}
