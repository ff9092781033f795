// Package memory provides an in-memory verdict publisher. It offers a
// lightweight, non-persistent sink suitable for testing and development
// environments where no broker is available.
package memory

import (
	"context"
	"errors"
	"sync"

	domain "github.com/ahrav/pdfguard/internal/domain/inspection"
)

var _ domain.VerdictPublisher = (*Publisher)(nil)

// ErrClosed is returned when publishing after Close.
var ErrClosed = errors.New("publisher closed")

// Handler consumes a published verdict event.
type Handler func(domain.VerdictEvent) error

// Publisher fans verdict events out to in-process subscribers.
type Publisher struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
	closed   bool
}

// NewPublisher creates a publisher with no subscribers.
func NewPublisher() *Publisher {
	return &Publisher{handlers: make(map[int]Handler)}
}

// Subscribe registers handler until ctx is done.
func (p *Publisher) Subscribe(ctx context.Context, handler Handler) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.handlers[id] = handler
	p.mu.Unlock()

	go func() {
		<-ctx.Done()
		p.mu.Lock()
		delete(p.handlers, id)
		p.mu.Unlock()
	}()
	return nil
}

// PublishVerdict delivers evt to every subscriber, stopping at the first error.
// Handlers run without the lock held.
func (p *Publisher) PublishVerdict(ctx context.Context, evt domain.VerdictEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrClosed
	}
	handlers := make([]Handler, 0, len(p.handlers))
	for _, h := range p.handlers {
		handlers = append(handlers, h)
	}
	p.mu.RUnlock()

	for _, h := range handlers {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := h(evt); err != nil {
			return err
		}
	}
	return nil
}

// Close drops all subscribers and rejects further publishes.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	clear(p.handlers)
	return nil
}
