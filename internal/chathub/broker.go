package chathub

import (
	"babelchat/backend/internal/models"
	"context"
	"errors"
	"sync"
)

// Broker moves room events between publishers and the hub's listen loop.
// storage.RedisBroker is the multi-instance implementation.
type Broker interface {
	Publish(ctx context.Context, ev models.Event) error
	// Listen blocks, calling deliver for every event in publish order, until
	// ctx is done (nil) or the transport fails (non-nil).
	Listen(ctx context.Context, ready func(), deliver func(models.Event)) error
}

var errBrokerClosed = errors.New("local broker closed")

// LocalBroker is an in-process Broker for single-node runs and tests.
// Events published while nobody listens are dropped, like Redis Pub/Sub.
type LocalBroker struct {
	mu        sync.Mutex
	listeners map[*localListener]struct{}
}

type localListener struct {
	events chan models.Event
	fail   chan error
	stop   chan struct{}
}

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{listeners: make(map[*localListener]struct{})}
}

func (b *LocalBroker) Publish(ctx context.Context, ev models.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for l := range b.listeners {
		select {
		case l.events <- ev:
		case <-l.stop:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *LocalBroker) Listen(ctx context.Context, ready func(), deliver func(models.Event)) error {
	l := &localListener{
		events: make(chan models.Event, 1024),
		fail:   make(chan error, 1),
		stop:   make(chan struct{}),
	}
	b.mu.Lock()
	b.listeners[l] = struct{}{}
	b.mu.Unlock()
	defer func() {
		close(l.stop)
		b.mu.Lock()
		delete(b.listeners, l)
		b.mu.Unlock()
	}()

	if ready != nil {
		ready()
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-l.fail:
			return err
		case ev := <-l.events:
			deliver(ev)
		}
	}
}

// Fail breaks every active Listen call with err, simulating a lost connection.
func (b *LocalBroker) Fail(err error) {
	if err == nil {
		err = errBrokerClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for l := range b.listeners {
		select {
		case l.fail <- err:
		default:
		}
	}
}
