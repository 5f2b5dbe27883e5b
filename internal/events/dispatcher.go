package events

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrDispatcherClosed is returned by Publish after Close.
var ErrDispatcherClosed = errors.New("event dispatcher closed")

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
	// Close stops accepting events and waits for in-flight handlers.
	Close(ctx context.Context) error
}

// Option customizes the in-memory dispatcher.
type Option func(*inMemoryDispatcher)

// WithAsync runs handlers on their own goroutines so Publish never blocks
// the caller.
func WithAsync(async bool) Option {
	return func(d *inMemoryDispatcher) {
		d.async = async
	}
}

type inMemoryDispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
	closed    bool
	async     bool
	inflight  sync.WaitGroup
	logger    *zap.Logger
}

// NewInMemoryDispatcher creates a dispatcher instance. Handler errors and
// panics are logged and never reach the publisher.
func NewInMemoryDispatcher(logger *zap.Logger, opts ...Option) Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &inMemoryDispatcher{
		listeners: make(map[EventType][]EventHandler),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return ErrDispatcherClosed
	}
	handlers := append([]EventHandler{}, d.listeners[event.Type]...)
	if d.async {
		d.inflight.Add(len(handlers))
	}
	d.mu.RUnlock()

	// handlers outlive the request that published the event
	ctx = context.WithoutCancel(ctx)
	for _, handler := range handlers {
		if d.async {
			go func(h EventHandler) {
				defer d.inflight.Done()
				d.invoke(ctx, h, event)
			}(handler)
			continue
		}
		d.invoke(ctx, handler, event)
	}
	return nil
}

func (d *inMemoryDispatcher) invoke(ctx context.Context, handler EventHandler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked",
				zap.String("event_type", string(event.Type)),
				zap.String("entity_id", event.EntityID),
				zap.Any("panic", r))
		}
	}()
	if err := handler(ctx, event); err != nil {
		d.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("entity_id", event.EntityID),
			zap.Error(err))
	}
}

// Subscribe registers a handler for the given event type.
func (d *inMemoryDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}

func (d *inMemoryDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
