package handler

import (
	"babelchat/backend/internal/config"
	"babelchat/backend/internal/models"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
)

const ctxUserID = "userID"

const maxDisplayName = 50

// generateJWT signs a token whose subject is the profile id.
func (h *Handler) generateJWT(userID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(config.TokenTTL).Unix(),
		"iss": config.TokenIssuer,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.jwtSecret)
}

func (h *Handler) parseJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return h.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(config.TokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}

// bearerToken reads the Authorization header, or the token query parameter
// for WebSocket clients that cannot set headers.
func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	return c.Query("token")
}

// AuthMiddleware rejects requests without a valid token and stores the
// caller's profile id in the context.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			writeError(c, models.ErrAuthenticationRequired)
			return
		}
		userID, err := h.parseJWT(token)
		if err != nil {
			writeError(c, models.ErrAuthenticationRequired)
			return
		}
		c.Set(ctxUserID, userID)
		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

type createProfileRequest struct {
	DisplayName       string `json:"display_name"`
	PreferredLanguage string `json:"preferred_language"`
	AvatarURL         string `json:"avatar_url"`
}

func validateProfile(displayName, lang string) (string, string, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" || utf8.RuneCountInString(displayName) > maxDisplayName {
		return "", "", errDisplayName
	}
	if lang == "" {
		lang = models.DefaultLanguage
	}
	if !models.IsSupportedLanguage(lang) {
		return "", "", errUnsupportedLang
	}
	return displayName, models.NormalizeLanguage(lang), nil
}

// CreateProfile registers a profile and returns a token for it.
func (h *Handler) CreateProfile(c *gin.Context) {
	var req createProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errInvalidBody)
		return
	}
	name, lang, err := validateProfile(req.DisplayName, req.PreferredLanguage)
	if err != nil {
		writeError(c, err)
		return
	}

	profile := &models.Profile{DisplayName: name, PreferredLanguage: lang, AvatarURL: req.AvatarURL}
	if err := h.Profiles.CreateProfile(c.Request.Context(), profile); err != nil {
		writeError(c, err)
		return
	}

	token, err := h.generateJWT(profile.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token, "profile": profile})
}
