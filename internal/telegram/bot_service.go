// Package telegram bridges Telegram chats into BabelChat rooms. Each chat
// gets its own profile and, while in a room, a session view whose
// translated messages are forwarded to the chat.
package telegram

import (
	"babelchat/backend/internal/localization"
	"babelchat/backend/internal/models"
	"babelchat/backend/internal/rooms"
	"babelchat/backend/internal/session"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender delivers outgoing messages; *tgbotapi.BotAPI implements it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type ProfileStore interface {
	SaveProfileIfNotExists(ctx context.Context, telegramID int64, displayName string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, profile *models.Profile) error
}

type RoomService interface {
	JoinByInviteCode(ctx context.Context, code, userID string) (*models.Room, error)
	Leave(ctx context.Context, roomID, userID string) error
}

type SessionOpener interface {
	Open(ctx context.Context, viewer session.Viewer, roomID string, onUpdate func(session.ViewSnapshot)) (*session.View, error)
}

// BotService receives Telegram updates and routes them to rooms.
type BotService struct {
	BotAPI    *tgbotapi.BotAPI
	sender    Sender
	Profiles  ProfileStore
	Rooms     RoomService
	Sessions  SessionOpener
	Localizer *localization.Localizer

	mu    sync.Mutex
	chats map[int64]*Client
}

// NewBotService authorizes against the Bot API.
func NewBotService(token string, profiles ProfileStore, roomSvc RoomService, sessions SessionOpener, localizer *localization.Localizer) (*BotService, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	slog.Info("telegram_authorized", "account", bot.Self.UserName)

	s := NewBotServiceWithSender(bot, profiles, roomSvc, sessions, localizer)
	s.BotAPI = bot
	return s, nil
}

// NewBotServiceWithSender builds a service that sends through sender and
// has no update loop of its own.
func NewBotServiceWithSender(sender Sender, profiles ProfileStore, roomSvc RoomService, sessions SessionOpener, localizer *localization.Localizer) *BotService {
	return &BotService{
		sender:    sender,
		Profiles:  profiles,
		Rooms:     roomSvc,
		Sessions:  sessions,
		Localizer: localizer,
		chats:     make(map[int64]*Client),
	}
}

// Run is the main loop for receiving Telegram updates. It returns when ctx is done.
func (s *BotService) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.BotAPI.GetUpdatesChan(u)
	slog.Info("telegram_polling_started")

	for {
		select {
		case <-ctx.Done():
			s.BotAPI.StopReceivingUpdates()
			s.Close()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			s.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate processes one update.
func (s *BotService) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil {
		return
	}
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			s.handleStart(ctx, msg)
		case "help":
			s.handleHelp(ctx, msg)
		case "lang", "language":
			s.handleLanguage(ctx, msg)
		case "join":
			s.handleJoin(ctx, msg)
		case "leave":
			s.handleLeave(ctx, msg)
		default:
			s.handleHelp(ctx, msg)
		}
		return
	}
	s.handleText(ctx, msg)
}

func displayName(msg *tgbotapi.Message) string {
	if msg.From == nil {
		return "Telegram"
	}
	if name := strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName); name != "" {
		return name
	}
	if msg.From.UserName != "" {
		return msg.From.UserName
	}
	return "Telegram"
}

// client returns the chat's client, creating its profile on first contact.
func (s *BotService) client(ctx context.Context, msg *tgbotapi.Message) (*Client, error) {
	chatID := msg.Chat.ID
	s.mu.Lock()
	c, ok := s.chats[chatID]
	s.mu.Unlock()
	if ok {
		return c, nil
	}

	profile, err := s.Profiles.SaveProfileIfNotExists(ctx, chatID, displayName(msg))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.chats[chatID]; ok {
		return c, nil
	}
	c = newClient(chatID, profile, s)
	s.chats[chatID] = c
	return c, nil
}

func (s *BotService) reply(chatID int64, text string) {
	if _, err := s.sender.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		slog.Error("telegram_send_failed", "chat_id", chatID, "error", err)
	}
}

func (s *BotService) languageList() string {
	codes := make([]string, len(models.SupportedLanguages))
	for i, l := range models.SupportedLanguages {
		codes[i] = l.Code
	}
	return strings.Join(codes, ", ")
}

func (s *BotService) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	c, err := s.client(ctx, msg)
	if err != nil {
		slog.Error("telegram_profile_failed", "chat_id", msg.Chat.ID, "error", err)
		return
	}
	lang := c.Language()
	s.reply(c.chatID, s.Localizer.Format(lang, "welcome", c.Name()))
}

func (s *BotService) handleHelp(ctx context.Context, msg *tgbotapi.Message) {
	c, err := s.client(ctx, msg)
	if err != nil {
		slog.Error("telegram_profile_failed", "chat_id", msg.Chat.ID, "error", err)
		return
	}
	s.reply(c.chatID, s.Localizer.Format(c.Language(), "help", s.languageList()))
}

func (s *BotService) handleLanguage(ctx context.Context, msg *tgbotapi.Message) {
	c, err := s.client(ctx, msg)
	if err != nil {
		slog.Error("telegram_profile_failed", "chat_id", msg.Chat.ID, "error", err)
		return
	}
	code := strings.TrimSpace(msg.CommandArguments())
	if code == "" {
		s.reply(c.chatID, s.Localizer.Format(c.Language(), "usage_lang", s.languageList()))
		return
	}
	if !models.IsSupportedLanguage(code) {
		s.reply(c.chatID, s.Localizer.Format(c.Language(), "language_unsupported", s.languageList()))
		return
	}
	lang := models.NormalizeLanguage(code)
	if err := c.SetLanguage(ctx, lang); err != nil {
		slog.Error("telegram_language_update_failed", "chat_id", c.chatID, "error", err)
		return
	}
	s.reply(c.chatID, s.Localizer.Format(lang, "language_changed", models.LanguageName(lang)))
}

func (s *BotService) handleJoin(ctx context.Context, msg *tgbotapi.Message) {
	c, err := s.client(ctx, msg)
	if err != nil {
		slog.Error("telegram_profile_failed", "chat_id", msg.Chat.ID, "error", err)
		return
	}
	code := strings.TrimSpace(msg.CommandArguments())
	if code == "" {
		s.reply(c.chatID, s.Localizer.GetString(c.Language(), "usage_join"))
		return
	}

	room, err := s.Rooms.JoinByInviteCode(ctx, code, c.UserID())
	if errors.Is(err, rooms.ErrInvalidInviteCode) {
		s.reply(c.chatID, s.Localizer.GetString(c.Language(), "invalid_invite"))
		return
	}
	if err != nil {
		slog.Error("telegram_join_failed", "chat_id", c.chatID, "error", err)
		return
	}
	if err := c.Enter(ctx, room.ID); err != nil {
		slog.Error("telegram_view_open_failed", "chat_id", c.chatID, "room_id", room.ID, "error", err)
		return
	}
	s.reply(c.chatID, s.Localizer.Format(c.Language(), "joined_room", room.Name))
}

func (s *BotService) handleLeave(ctx context.Context, msg *tgbotapi.Message) {
	c, err := s.client(ctx, msg)
	if err != nil {
		slog.Error("telegram_profile_failed", "chat_id", msg.Chat.ID, "error", err)
		return
	}
	roomID := c.RoomID()
	if roomID == "" {
		s.reply(c.chatID, s.Localizer.GetString(c.Language(), "not_in_room"))
		return
	}
	c.Exit()
	if err := s.Rooms.Leave(ctx, roomID, c.UserID()); err != nil {
		slog.Error("telegram_leave_failed", "chat_id", c.chatID, "room_id", roomID, "error", err)
		return
	}
	s.reply(c.chatID, s.Localizer.GetString(c.Language(), "left_room"))
}

func (s *BotService) handleText(ctx context.Context, msg *tgbotapi.Message) {
	s.mu.Lock()
	c, ok := s.chats[msg.Chat.ID]
	s.mu.Unlock()
	if !ok {
		// Unknown chats are greeted instead of silently dropped.
		s.handleStart(ctx, msg)
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	if err := c.Post(ctx, text); err != nil {
		if errors.Is(err, errNotInRoom) {
			s.reply(c.chatID, s.Localizer.GetString(c.Language(), "not_in_room"))
			return
		}
		slog.Warn("telegram_post_failed", "chat_id", c.chatID, "error", err)
		s.reply(c.chatID, s.Localizer.GetString(c.Language(), "send_failed"))
	}
}

// Close closes every open view.
func (s *BotService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.chats {
		c.Exit()
	}
}
