package chathub

import (
	"babelchat/backend/internal/models"
	"sync"
)

// Status is the connection state reported to a subscription's OnStatus handler.
type Status string

const (
	StatusSubscribed   Status = "SUBSCRIBED"
	StatusChannelError Status = "CHANNEL_ERROR"
	StatusClosed       Status = "CLOSED"
)

// Handlers are the callbacks of one subscription. Nil handlers are skipped.
// All callbacks of a subscription run on the same goroutine, in hub order.
type Handlers struct {
	OnMessage      func(models.Message)
	OnMemberJoined func(models.RoomMember)
	OnMemberLeft   func(models.RoomMember)
	OnTyping       func(models.TypingSignal)
	OnStatus       func(Status, error)
}

type delivery struct {
	event  models.Event
	status Status
}

// Subscription receives the events of one room for one subscriber.
type Subscription struct {
	RoomID       string
	SubscriberID string
	UserID       string

	hub      *Hub
	handlers Handlers
	queue    chan delivery
	done     chan struct{}
	exited   chan struct{}

	once     sync.Once
	terminal Status
	err      error
}

func newSubscription(h *Hub, roomID, subscriberID, userID string, handlers Handlers, buffer int) *Subscription {
	s := &Subscription{
		RoomID:       roomID,
		SubscriberID: subscriberID,
		UserID:       userID,
		hub:          h,
		handlers:     handlers,
		queue:        make(chan delivery, buffer),
		done:         make(chan struct{}),
		exited:       make(chan struct{}),
	}
	go s.loop()
	return s
}

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.Unsubscribe(s)
}

// Done is closed once the final status has been delivered.
func (s *Subscription) Done() <-chan struct{} {
	return s.exited
}

// enqueue reports false when the queue is full.
func (s *Subscription) enqueue(d delivery) bool {
	select {
	case <-s.done:
		return true
	default:
	}
	select {
	case s.queue <- d:
		return true
	default:
		return false
	}
}

func (s *Subscription) finish(status Status, err error) {
	s.once.Do(func() {
		s.terminal = status
		s.err = err
		close(s.done)
	})
}

func (s *Subscription) loop() {
	defer close(s.exited)
	for {
		select {
		case <-s.done:
			if s.terminal != StatusClosed {
				s.drain()
			}
			s.status(s.terminal, s.err)
			return
		case d := <-s.queue:
			s.dispatch(d)
		}
	}
}

// drain flushes what was queued before a failure so the error is reported last.
func (s *Subscription) drain() {
	for {
		select {
		case d := <-s.queue:
			s.dispatch(d)
		default:
			return
		}
	}
}

func (s *Subscription) dispatch(d delivery) {
	if d.event == nil {
		s.status(d.status, nil)
		return
	}
	switch ev := d.event.(type) {
	case models.MessageInserted:
		if s.handlers.OnMessage != nil {
			s.handlers.OnMessage(ev.Message)
		}
	case models.MemberJoined:
		if s.handlers.OnMemberJoined != nil {
			s.handlers.OnMemberJoined(ev.Member)
		}
	case models.MemberLeft:
		if s.handlers.OnMemberLeft != nil {
			s.handlers.OnMemberLeft(ev.Member)
		}
	case models.TypingBroadcast:
		if s.handlers.OnTyping != nil {
			s.handlers.OnTyping(ev.Signal)
		}
	}
}

func (s *Subscription) status(st Status, err error) {
	if s.handlers.OnStatus != nil {
		s.handlers.OnStatus(st, err)
	}
}
