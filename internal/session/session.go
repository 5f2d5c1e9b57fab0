package session

import (
	"babelchat/backend/internal/chathub"
	"babelchat/backend/internal/models"
	"babelchat/backend/internal/translation"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// ErrViewClosed is returned by operations on a closed View.
var ErrViewClosed = errors.New("view is closed")

// View is one viewer's live, translated window onto a room.
type View struct {
	c      *Controller
	viewer Viewer
	lang   string
	room   models.Room
	// bg carries the values of the opening context but never its cancellation,
	// so translations that finish after Close still reach the cache.
	bg context.Context

	onUpdate  func(ViewSnapshot)
	dirty     chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	mu          sync.Mutex
	state       State
	memberCount int64
	messages    []*messageEntry
	byID        map[string]*messageEntry
	names       map[string]string
	typing      map[string]typingEntry
	status      chathub.Status
	statusErr   error
	sub         *chathub.Subscription
	closed      bool
}

func newView(ctx context.Context, c *Controller, viewer Viewer, room *models.RoomWithCount, onUpdate func(ViewSnapshot)) *View {
	lang := models.NormalizeLanguage(viewer.PreferredLanguage)
	if lang == "" {
		lang = models.DefaultLanguage
	}
	return &View{
		c:           c,
		viewer:      viewer,
		lang:        lang,
		room:        room.Room,
		bg:          context.WithoutCancel(ctx),
		onUpdate:    onUpdate,
		dirty:       make(chan struct{}, 1),
		done:        make(chan struct{}),
		state:       StateLoading,
		memberCount: room.MemberCount,
		byID:        make(map[string]*messageEntry),
		names:       map[string]string{viewer.UserID: viewer.DisplayName},
		typing:      make(map[string]typingEntry),
	}
}

// load subscribes before reading history so that nothing posted in between
// is missed; live messages that are also in the history are merged by id.
func (v *View) load(ctx context.Context) error {
	v.mu.Lock()
	v.state = StateLoading
	v.mu.Unlock()

	sub := v.c.channel.Subscribe(v.room.ID, v.viewer.SubscriberID, v.viewer.UserID, v.handlers())
	v.mu.Lock()
	v.sub = sub
	v.mu.Unlock()

	history, err := v.c.channel.History(ctx, v.room.ID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	v.resolveNames(ctx, history)

	v.mu.Lock()
	for _, m := range history {
		v.addLocked(m)
	}
	v.state = StateReady
	for _, e := range v.messages {
		if e.state == Untranslated {
			v.startTranslationLocked(e)
		}
	}
	count := len(v.messages)
	v.mu.Unlock()

	slog.Debug("view_ready", "room_id", v.room.ID, "user_id", v.viewer.UserID, "lang", v.lang, "messages", count)
	v.notify()
	return nil
}

func (v *View) handlers() chathub.Handlers {
	return chathub.Handlers{
		OnMessage:      v.onMessage,
		OnMemberJoined: func(models.RoomMember) { v.adjustMembers(1) },
		OnMemberLeft:   func(models.RoomMember) { v.adjustMembers(-1) },
		OnTyping:       v.onTyping,
		OnStatus:       v.onStatus,
	}
}

func (v *View) onMessage(m models.Message) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	e := v.addLocked(m)
	start := e != nil && v.state == StateReady && e.state == Untranslated
	_, known := v.names[m.SenderID]
	if !known {
		v.names[m.SenderID] = ""
	} else if start {
		v.startTranslationLocked(e)
	}
	v.mu.Unlock()

	if !known {
		// An unknown sender's name is resolved before the translation lands.
		go func() {
			v.fetchName(m.SenderID)
			if start {
				v.translate(m)
			}
		}()
	}
	v.notify()
}

// addLocked inserts m in creation order, keeping arrival order for equal
// timestamps. It returns nil when the message is already present.
func (v *View) addLocked(m models.Message) *messageEntry {
	if _, ok := v.byID[m.ID]; ok {
		return nil
	}
	e := &messageEntry{msg: m, state: Untranslated}
	if !translation.NeedsTranslation(m.SourceLanguage, v.lang) {
		e.state = NotNeeded
	}
	v.byID[m.ID] = e

	i := len(v.messages)
	for i > 0 && v.messages[i-1].msg.CreatedAt.After(m.CreatedAt) {
		i--
	}
	v.messages = append(v.messages, nil)
	copy(v.messages[i+1:], v.messages[i:])
	v.messages[i] = e
	return e
}

func (v *View) startTranslationLocked(e *messageEntry) {
	go v.translate(e.msg)
}

func (v *View) translate(msg models.Message) {
	if v.isClosed() {
		return
	}
	if text, ok := v.c.translator.Lookup(v.bg, msg, v.lang); ok {
		v.apply(msg.ID, translation.Result{Text: text, FromCache: true})
		return
	}

	v.mu.Lock()
	if e := v.byID[msg.ID]; e != nil && e.state == Untranslated && !v.closed {
		e.state = Translating
	}
	v.mu.Unlock()
	v.notify()

	if err := v.c.sem.Acquire(v.bg, 1); err != nil {
		return
	}
	res := v.c.translator.TranslateMessage(v.bg, msg, v.lang)
	v.c.sem.Release(1)
	v.apply(msg.ID, res)
}

func (v *View) apply(messageID string, res translation.Result) {
	v.mu.Lock()
	e := v.byID[messageID]
	if v.closed || e == nil {
		v.mu.Unlock()
		return
	}
	e.text = res.Text
	e.fallback = res.Fallback
	e.state = Translated
	if res.NotNeeded {
		e.state = NotNeeded
	}
	v.mu.Unlock()
	v.notify()
}

func (v *View) adjustMembers(delta int64) {
	v.mu.Lock()
	v.memberCount += delta
	if v.memberCount < 0 {
		v.memberCount = 0
	}
	v.mu.Unlock()
	v.notify()
}

func (v *View) onTyping(sig models.TypingSignal) {
	if sig.UserID == v.viewer.UserID {
		return
	}
	v.mu.Lock()
	v.typing[sig.UserID] = typingEntry{name: sig.DisplayName, expiresAt: v.c.now().Add(v.c.typingWindow)}
	v.mu.Unlock()
	v.notify()
}

func (v *View) onStatus(st chathub.Status, err error) {
	v.mu.Lock()
	v.status = st
	v.statusErr = err
	v.mu.Unlock()
	if st == chathub.StatusChannelError {
		slog.Warn("view_channel_error", "room_id", v.room.ID, "user_id", v.viewer.UserID, "error", err)
	}
	v.notify()
}

// sweepLocked drops expired typing entries and reports whether any were removed.
func (v *View) sweepLocked() bool {
	now := v.c.now()
	removed := false
	for id, t := range v.typing {
		if !now.Before(t.expiresAt) {
			delete(v.typing, id)
			removed = true
		}
	}
	return removed
}

func (v *View) typingNamesLocked() []string {
	v.sweepLocked()
	names := make([]string, 0, len(v.typing))
	for _, t := range v.typing {
		names = append(names, t.name)
	}
	sort.Strings(names)
	return names
}

// TypingUsers returns the display names of users typing right now.
func (v *View) TypingUsers() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.typingNamesLocked()
}

func (v *View) resolveNames(ctx context.Context, msgs []models.Message) {
	if v.c.profiles == nil {
		return
	}
	v.mu.Lock()
	var ids []string
	seen := make(map[string]bool)
	for _, m := range msgs {
		if _, ok := v.names[m.SenderID]; !ok && !seen[m.SenderID] {
			seen[m.SenderID] = true
			ids = append(ids, m.SenderID)
		}
	}
	v.mu.Unlock()
	if len(ids) == 0 {
		return
	}

	profiles, err := v.c.profiles.GetProfiles(ctx, ids)
	if err != nil {
		slog.Warn("sender_names_failed", "room_id", v.room.ID, "error", err)
		return
	}
	v.mu.Lock()
	for _, p := range profiles {
		v.names[p.ID] = p.DisplayName
	}
	v.mu.Unlock()
}

func (v *View) fetchName(userID string) {
	if v.c.profiles == nil {
		return
	}
	profiles, err := v.c.profiles.GetProfiles(v.bg, []string{userID})
	if err != nil || len(profiles) == 0 {
		return
	}
	v.mu.Lock()
	v.names[userID] = profiles[0].DisplayName
	v.mu.Unlock()
	v.notify()
}

func (v *View) notify() {
	select {
	case v.dirty <- struct{}{}:
	default:
	}
}

func (v *View) notifyLoop() {
	for {
		select {
		case <-v.done:
			return
		case <-v.dirty:
			if v.onUpdate != nil {
				v.onUpdate(v.Snapshot())
			}
		}
	}
}

func (v *View) sweepLoop() {
	ticker := time.NewTicker(v.c.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-v.done:
			return
		case <-ticker.C:
			v.mu.Lock()
			removed := v.sweepLocked()
			v.mu.Unlock()
			if removed {
				v.notify()
			}
		}
	}
}

// Snapshot returns a copy of the current state.
func (v *View) Snapshot() ViewSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	snap := ViewSnapshot{
		State:       v.state,
		RoomID:      v.room.ID,
		RoomName:    v.room.Name,
		Language:    v.lang,
		MemberCount: v.memberCount,
		Messages:    make([]MessageSnapshot, len(v.messages)),
		TypingUsers: v.typingNamesLocked(),
		Status:      v.status,
	}
	if v.statusErr != nil {
		snap.StatusError = v.statusErr.Error()
	}
	for i, e := range v.messages {
		snap.Messages[i] = MessageSnapshot{
			ID:               e.msg.ID,
			SenderID:         e.msg.SenderID,
			SenderName:       v.names[e.msg.SenderID],
			Content:          e.msg.Content,
			SourceLanguage:   e.msg.SourceLanguage,
			CreatedAt:        e.msg.CreatedAt,
			TranslationState: e.state,
			DisplayText:      e.displayText(),
			Fallback:         e.fallback,
			ShowingOriginal:  e.showOriginal,
			Own:              e.msg.SenderID == v.viewer.UserID,
		}
	}
	return snap
}

// ToggleOriginal flips between translated and original text for one message.
// It reports false for an unknown message id.
func (v *View) ToggleOriginal(messageID string) bool {
	v.mu.Lock()
	e, ok := v.byID[messageID]
	if ok {
		e.showOriginal = !e.showOriginal
	}
	v.mu.Unlock()
	if ok {
		v.notify()
	}
	return ok
}

// Send posts content to the room in the viewer's language.
func (v *View) Send(ctx context.Context, content string) (*models.Message, error) {
	if v.isClosed() {
		return nil, ErrViewClosed
	}
	msg, err := v.c.channel.PostMessage(ctx, v.room.ID, v.viewer.UserID, content, v.lang)
	if err != nil {
		return nil, err
	}
	v.onMessage(*msg)
	return msg, nil
}

// Typing tells the other members of the room that the viewer is typing.
func (v *View) Typing(ctx context.Context) error {
	if v.isClosed() {
		return ErrViewClosed
	}
	return v.c.channel.BroadcastTyping(ctx, models.TypingSignal{
		RoomID:      v.room.ID,
		UserID:      v.viewer.UserID,
		DisplayName: v.viewer.DisplayName,
	})
}

// Reconnect replaces the subscription after a CHANNEL_ERROR and reloads history.
func (v *View) Reconnect(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	old := v.sub
	v.mu.Unlock()
	if old != nil {
		old.Close()
	}
	return v.load(ctx)
}

func (v *View) RoomID() string { return v.room.ID }

func (v *View) Language() string { return v.lang }

func (v *View) isClosed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

// Close unsubscribes and stops updates. Translations already in flight
// still write their results to the cache.
func (v *View) Close() {
	v.closeOnce.Do(func() {
		v.mu.Lock()
		v.closed = true
		sub := v.sub
		v.mu.Unlock()
		if sub != nil {
			sub.Close()
		}
		close(v.done)
	})
}
