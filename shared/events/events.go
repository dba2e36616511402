// Package events carries form change notifications from the write path to
// live subscribers. Delivery is best effort: a slow subscriber drops events
// and falls back to polling.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	applog "insureportal-backend/shared/logger"
)

type Type string

const (
	FormCreated Type = "form.created"
	FormUpdated Type = "form.updated"
	FormDeleted Type = "form.deleted"
)

type Event struct {
	Type           Type      `json:"type"`
	FormID         uuid.UUID `json:"formId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	CreatedByID    uuid.UUID `json:"createdById"`
	Status         string    `json:"status"`
	Version        int       `json:"version"`
	UpdatedAt      time.Time `json:"updatedAt"`
	ActorID        uuid.UUID `json:"actorId"`
}

// Publisher is implemented by the local Hub and the redis bridge.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Hub fans events out to in-process subscribers.
type Hub struct {
	mutex       sync.RWMutex
	subscribers map[uint64]chan Event
	nextID      uint64
	bufferSize  int
}

func NewHub(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Hub{
		subscribers: make(map[uint64]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers a subscriber. The returned cancel func closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Event, h.bufferSize)
	h.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mutex.Lock()
			defer h.mutex.Unlock()
			delete(h.subscribers, id)
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber without blocking.
func (h *Hub) Publish(_ context.Context, event Event) error {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for id, ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			applog.Warn().Uint64("subscriber", id).Str("event", string(event.Type)).Msg("⚠️ Subscriber queue full, dropping event")
		}
	}
	return nil
}

// SubscriberCount returns the number of live subscribers
func (h *Hub) SubscriberCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.subscribers)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
