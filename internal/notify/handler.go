package notify

import (
	"context"
	"sync"

	"github.com/adil-adysh/plan-flow/internal/domain"
)

// Handler dispatches a triggered TaskEvent to one notification channel.
type Handler interface {
	Handle(ctx context.Context, event TaskEvent) error
	Channel() string
}

// Registry maps notify channels to their handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler. Safe to call concurrently.
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[h.Channel()] = h
}

// Get returns the handler for the given channel, or
// domain.InvalidNotifyChannelError if none is registered.
func (r *Registry) Get(channel string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[channel]
	if !ok {
		return nil, &domain.InvalidNotifyChannelError{Channel: channel}
	}
	return h, nil
}
