package handler

import (
	"babelchat/backend/internal/chathub"
	"babelchat/backend/internal/models"
	"babelchat/backend/internal/rooms"
	"babelchat/backend/internal/storage"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{models.ErrAuthenticationRequired, http.StatusUnauthorized},
		{rooms.ErrInvalidInviteCode, http.StatusNotFound},
		{fmt.Errorf("lookup: %w", storage.ErrNotFound), http.StatusNotFound},
		{rooms.ErrPrivateRoom, http.StatusForbidden},
		{rooms.ErrNotMember, http.StatusForbidden},
		{chathub.ErrMessageTooLong, http.StatusBadRequest},
		{errUnsupportedLang, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestJWTRoundTrip(t *testing.T) {
	h := &Handler{jwtSecret: []byte("secret")}
	token, err := h.generateJWT("user-1")
	assert.NoError(t, err)

	sub, err := h.parseJWT(token)
	assert.NoError(t, err)
	assert.Equal(t, "user-1", sub)

	other := &Handler{jwtSecret: []byte("other")}
	_, err = other.parseJWT(token)
	assert.Error(t, err)
}
