// Package session drives what one user sees in one room: history and live
// messages, each translated into the viewer's language, plus typing
// indicators and member count.
package session

import (
	"babelchat/backend/internal/chathub"
	"babelchat/backend/internal/config"
	"babelchat/backend/internal/models"
	"babelchat/backend/internal/translation"
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// Channel is the realtime side of a room; chathub.Hub implements it.
type Channel interface {
	Subscribe(roomID, subscriberID, userID string, handlers chathub.Handlers) *chathub.Subscription
	History(ctx context.Context, roomID string) ([]models.Message, error)
	PostMessage(ctx context.Context, roomID, senderID, content, sourceLang string) (*models.Message, error)
	BroadcastTyping(ctx context.Context, signal models.TypingSignal) error
}

// Translator resolves message translations; translation.Service implements it.
type Translator interface {
	Lookup(ctx context.Context, msg models.Message, lang string) (string, bool)
	TranslateMessage(ctx context.Context, msg models.Message, lang string) translation.Result
}

// RoomReader loads room details; rooms.Service implements it.
type RoomReader interface {
	GetRoom(ctx context.Context, roomID string) (*models.RoomWithCount, error)
}

// ProfileReader resolves sender display names; storage.Service implements it.
type ProfileReader interface {
	GetProfiles(ctx context.Context, ids []string) ([]models.Profile, error)
}

type Controller struct {
	channel    Channel
	translator Translator
	rooms      RoomReader
	profiles   ProfileReader

	typingWindow  time.Duration
	sweepInterval time.Duration
	now           func() time.Time
	sem           *semaphore.Weighted
}

type Option func(*Controller)

// WithClock replaces time.Now for typing expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithSweepInterval(d time.Duration) Option {
	return func(c *Controller) { c.sweepInterval = d }
}

// WithConcurrency bounds the translations in flight across all views.
func WithConcurrency(n int) Option {
	return func(c *Controller) { c.sem = semaphore.NewWeighted(int64(n)) }
}

func NewController(channel Channel, translator Translator, rooms RoomReader, profiles ProfileReader, typingWindow time.Duration, opts ...Option) *Controller {
	if typingWindow <= 0 {
		typingWindow = config.DefaultTypingWindow
	}
	c := &Controller{
		channel:       channel,
		translator:    translator,
		rooms:         rooms,
		profiles:      profiles,
		typingWindow:  typingWindow,
		sweepInterval: config.TypingSweepInterval,
		now:           time.Now,
		sem:           semaphore.NewWeighted(config.DefaultTranslationConcurrency),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open subscribes to a room, loads its history and returns a Ready view.
// onUpdate receives a fresh snapshot whenever the view changes; calls are
// serialized and coalesced so only the latest state is guaranteed to arrive.
func (c *Controller) Open(ctx context.Context, viewer Viewer, roomID string, onUpdate func(ViewSnapshot)) (*View, error) {
	if viewer.UserID == "" {
		return nil, models.ErrAuthenticationRequired
	}
	room, err := c.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	v := newView(ctx, c, viewer, room, onUpdate)
	if err := v.load(ctx); err != nil {
		v.Close()
		return nil, err
	}
	go v.notifyLoop()
	go v.sweepLoop()
	return v, nil
}
