// Package chathub is the realtime message channel: it persists chat
// messages, fans room events out through a Broker and delivers them to
// per-room subscriptions in order.
package chathub

import (
	"babelchat/backend/internal/config"
	"babelchat/backend/internal/models"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

var (
	// ErrChannelSubscription is reported through CHANNEL_ERROR when the broker connection fails.
	ErrChannelSubscription = errors.New("channel subscription failed")
	// ErrSlowConsumer is reported through CHANNEL_ERROR when a subscription falls behind.
	ErrSlowConsumer    = errors.New("subscriber fell behind and was dropped")
	ErrEmptyMessage    = errors.New("message content is empty")
	ErrMessageTooLong  = fmt.Errorf("message content must be at most %d characters", config.MaxMessageLength)
	errListenerStopped = errors.New("listener stopped")
)

// MessageStore persists messages; storage.Service implements it.
type MessageStore interface {
	SaveMessage(ctx context.Context, msg *models.Message) error
	GetChatHistory(ctx context.Context, roomID string, limit int) ([]models.Message, error)
}

// Options tune a Hub. Zero values take the defaults from config.
type Options struct {
	HistoryLimit  int
	Buffer        int
	RelistenDelay time.Duration
}

type Hub struct {
	broker Broker
	store  MessageStore
	opts   Options

	mu        sync.RWMutex
	rooms     map[string]map[string]*Subscription
	listening bool
	roomLocks map[string]*sync.Mutex

	readyOnce sync.Once
	readyCh   chan struct{}
}

func NewHub(broker Broker, store MessageStore, opts Options) *Hub {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = config.DefaultHistoryLimit
	}
	if opts.Buffer <= 0 {
		opts.Buffer = config.SubscriptionBuffer
	}
	if opts.RelistenDelay <= 0 {
		opts.RelistenDelay = config.RelistenDelay
	}
	return &Hub{
		broker:    broker,
		store:     store,
		opts:      opts,
		rooms:     make(map[string]map[string]*Subscription),
		roomLocks: make(map[string]*sync.Mutex),
		readyCh:   make(chan struct{}),
	}
}

// Ready is closed the first time the broker subscription is confirmed.
func (h *Hub) Ready() <-chan struct{} {
	return h.readyCh
}

// Run listens on the broker until ctx is done. When the broker fails, every
// open subscription gets CHANNEL_ERROR and is dropped; the hub listens again
// after a delay so that later subscribers can connect.
func (h *Hub) Run(ctx context.Context) error {
	slog.Info("hub_started")
	for {
		err := h.broker.Listen(ctx, h.onListening, h.deliver)
		if ctx.Err() != nil {
			h.closeAll()
			slog.Info("hub_stopped")
			return nil
		}
		if err == nil {
			err = errListenerStopped
		}
		slog.Error("hub_listen_failed", "error", err)
		h.failAll(fmt.Errorf("%w: %v", ErrChannelSubscription, err))

		select {
		case <-ctx.Done():
			h.closeAll()
			return nil
		case <-time.After(h.opts.RelistenDelay):
		}
	}
}

func (h *Hub) onListening() {
	h.mu.Lock()
	h.listening = true
	for _, subs := range h.rooms {
		for _, s := range subs {
			s.enqueue(delivery{status: StatusSubscribed})
		}
	}
	h.mu.Unlock()
	h.readyOnce.Do(func() { close(h.readyCh) })
	slog.Info("hub_listening")
}

// deliver runs on the listen goroutine, so events reach each subscription in broker order.
func (h *Hub) deliver(ev models.Event) {
	var typingUser string
	if t, ok := ev.(models.TypingBroadcast); ok {
		typingUser = t.Signal.UserID
	}

	var slow []*Subscription
	h.mu.RLock()
	for _, s := range h.rooms[ev.EventRoomID()] {
		if typingUser != "" && s.UserID == typingUser {
			continue
		}
		if !s.enqueue(delivery{event: ev}) {
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range slow {
		slog.Warn("subscription_dropped", "room_id", s.RoomID, "subscriber_id", s.SubscriberID, "reason", "slow_consumer")
		h.remove(s)
		s.finish(StatusChannelError, ErrSlowConsumer)
	}
}

// Subscribe registers handlers for roomID. A previous subscription with the
// same subscriberID in that room is closed first. An empty subscriberID gets
// a generated one.
func (h *Hub) Subscribe(roomID, subscriberID, userID string, handlers Handlers) *Subscription {
	if subscriberID == "" {
		subscriberID = uuid.NewString()
	}
	s := newSubscription(h, roomID, subscriberID, userID, handlers, h.opts.Buffer)

	h.mu.Lock()
	subs, ok := h.rooms[roomID]
	if !ok {
		subs = make(map[string]*Subscription)
		h.rooms[roomID] = subs
	}
	if previous := subs[subscriberID]; previous != nil {
		previous.finish(StatusClosed, nil)
	}
	subs[subscriberID] = s
	if h.listening {
		s.enqueue(delivery{status: StatusSubscribed})
	}
	h.mu.Unlock()

	slog.Debug("subscribed", "room_id", roomID, "subscriber_id", subscriberID, "user_id", userID)
	return s
}

// Unsubscribe tears a subscription down and delivers CLOSED to it.
func (h *Hub) Unsubscribe(s *Subscription) {
	h.remove(s)
	s.finish(StatusClosed, nil)
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.rooms[s.RoomID]
	if subs[s.SubscriberID] == s {
		delete(subs, s.SubscriberID)
		if len(subs) == 0 {
			delete(h.rooms, s.RoomID)
		}
	}
}

func (h *Hub) failAll(err error) {
	for _, s := range h.detachAll() {
		s.finish(StatusChannelError, err)
	}
}

func (h *Hub) closeAll() {
	for _, s := range h.detachAll() {
		s.finish(StatusClosed, nil)
	}
}

func (h *Hub) detachAll() []*Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listening = false
	var all []*Subscription
	for _, subs := range h.rooms {
		for _, s := range subs {
			all = append(all, s)
		}
	}
	h.rooms = make(map[string]map[string]*Subscription)
	return all
}

// SubscriberCount returns the number of live subscriptions for a room.
func (h *Hub) SubscriberCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) roomLock(roomID string) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.roomLocks[roomID]
	if !ok {
		l = &sync.Mutex{}
		h.roomLocks[roomID] = l
	}
	return l
}

// PostMessage persists a message and publishes it to the room. Posts to the
// same room are serialized so publish order matches creation order.
func (h *Hub) PostMessage(ctx context.Context, roomID, senderID, content, sourceLang string) (*models.Message, error) {
	if senderID == "" {
		return nil, models.ErrAuthenticationRequired
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > config.MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	msg := &models.Message{
		RoomID:         roomID,
		SenderID:       senderID,
		Content:        content,
		SourceLanguage: models.NormalizeLanguage(sourceLang),
	}

	lock := h.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	if err := h.store.SaveMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}
	// The row is the source of truth; a lost publish only delays the message to the next history load.
	if err := h.broker.Publish(ctx, models.MessageInserted{Message: *msg}); err != nil {
		slog.Warn("message_publish_failed", "room_id", roomID, "message_id", msg.ID, "error", err)
	}
	return msg, nil
}

// BroadcastTyping publishes a typing signal. It is never stored and the
// sender's own subscriptions never receive it.
func (h *Hub) BroadcastTyping(ctx context.Context, signal models.TypingSignal) error {
	if signal.UserID == "" {
		return models.ErrAuthenticationRequired
	}
	return h.broker.Publish(ctx, models.TypingBroadcast{Signal: signal})
}

// PublishEvent publishes a membership event to its room.
func (h *Hub) PublishEvent(ctx context.Context, ev models.Event) error {
	return h.broker.Publish(ctx, ev)
}

// History returns the latest messages of a room, oldest first.
func (h *Hub) History(ctx context.Context, roomID string) ([]models.Message, error) {
	return h.store.GetChatHistory(ctx, roomID, h.opts.HistoryLimit)
}
