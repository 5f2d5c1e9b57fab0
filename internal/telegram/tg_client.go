package telegram

import (
	"babelchat/backend/internal/models"
	"babelchat/backend/internal/session"
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var errNotInRoom = errors.New("not in a room")

// Client is one Telegram chat taking part in at most one room at a time.
type Client struct {
	chatID  int64
	service *BotService

	mu        sync.Mutex
	profile   models.Profile
	view      *session.View
	since     time.Time
	forwarded map[string]bool
}

func newClient(chatID int64, profile *models.Profile, s *BotService) *Client {
	return &Client{
		chatID:    chatID,
		service:   s,
		profile:   *profile,
		forwarded: make(map[string]bool),
	}
}

func (c *Client) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile.ID
}

func (c *Client) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile.DisplayName
}

func (c *Client) Language() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile.Language()
}

// RoomID returns the current room, or "" outside any room.
func (c *Client) RoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view == nil {
		return ""
	}
	return c.view.RoomID()
}

// Enter opens a session view on roomID, replacing any previous one. Only
// messages created from now on are forwarded to the chat.
func (c *Client) Enter(ctx context.Context, roomID string) error {
	c.Exit()

	c.mu.Lock()
	viewer := session.Viewer{
		UserID:            c.profile.ID,
		DisplayName:       c.profile.DisplayName,
		PreferredLanguage: c.profile.Language(),
	}
	c.since = time.Now()
	c.forwarded = make(map[string]bool)
	c.mu.Unlock()

	view, err := c.service.Sessions.Open(ctx, viewer, roomID, c.forward)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.view = view
	c.mu.Unlock()
	return nil
}

// Exit closes the current view, if any.
func (c *Client) Exit() {
	c.mu.Lock()
	view := c.view
	c.view = nil
	c.mu.Unlock()
	if view != nil {
		view.Close()
	}
}

// SetLanguage stores the new preferred language and reopens the current
// room so messages are translated into it.
func (c *Client) SetLanguage(ctx context.Context, lang string) error {
	c.mu.Lock()
	updated := c.profile
	c.mu.Unlock()
	updated.PreferredLanguage = lang
	if err := c.service.Profiles.UpdateProfile(ctx, &updated); err != nil {
		return err
	}

	c.mu.Lock()
	c.profile = updated
	c.mu.Unlock()

	if roomID := c.RoomID(); roomID != "" {
		return c.Enter(ctx, roomID)
	}
	return nil
}

func (c *Client) Post(ctx context.Context, text string) error {
	c.mu.Lock()
	view := c.view
	c.mu.Unlock()
	if view == nil {
		return errNotInRoom
	}
	_, err := view.Send(ctx, text)
	return err
}

// forward sends every new message from other users once its translation
// has settled.
func (c *Client) forward(snap session.ViewSnapshot) {
	c.mu.Lock()
	var out []string
	lang := c.profile.Language()
	for _, m := range snap.Messages {
		if m.Own || c.forwarded[m.ID] || m.CreatedAt.Before(c.since) {
			continue
		}
		if m.TranslationState != session.Translated && m.TranslationState != session.NotNeeded {
			continue
		}
		c.forwarded[m.ID] = true

		text := m.SenderName + ": " + m.DisplayText
		if m.SenderName == "" {
			text = m.DisplayText
		}
		if m.Fallback {
			text += "\n" + c.service.Localizer.GetString(lang, "original_note")
		}
		out = append(out, text)
	}
	c.mu.Unlock()

	for _, text := range out {
		c.service.reply(c.chatID, text)
	}
	if len(out) > 0 {
		slog.Debug("telegram_forwarded", "chat_id", c.chatID, "count", len(out))
	}
}
