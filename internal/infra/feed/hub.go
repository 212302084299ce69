// Package feed carries row-level change events from the store to the
// realtime observer, standing in for a managed database's change feed.
package feed

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"parishd/internal/domain"
)

// Hub is an in-process change feed: the store publishes after every
// committed mutation, subscribers classify on the hub's dispatch goroutine.
// Delivery is asynchronous so mutations never block on classification, and
// per-table ordering follows publication order.
type Hub struct {
	logger *zap.Logger

	mu       sync.Mutex
	handlers map[string]map[string]func(domain.ChangeEvent)
	events   chan domain.ChangeEvent
	stop     chan struct{}
	done     chan struct{}
	started  bool
	stopped  bool
}

func NewHub(logger *zap.Logger, buffer int) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = domain.DefaultFeedBuffer
	}
	return &Hub{
		logger:   logger.Named("feed"),
		handlers: make(map[string]map[string]func(domain.ChangeEvent)),
		events:   make(chan domain.ChangeEvent, buffer),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the dispatch goroutine.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		return
	}
	h.started = true
	h.mu.Unlock()

	go h.dispatch()
}

// Stop ends dispatch. Events still buffered are dropped; the row store
// remains authoritative for anything missed.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.started || h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()

	close(h.stop)
	<-h.done
}

// Subscribe registers a handler for one table's events.
func (h *Hub) Subscribe(table string, handler func(domain.ChangeEvent)) (func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return nil, domain.ErrFeedStopped
	}

	token := uuid.NewString()
	set, ok := h.handlers[table]
	if !ok {
		set = make(map[string]func(domain.ChangeEvent))
		h.handlers[table] = set
	}
	set[token] = handler

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.handlers[table]; ok {
			delete(set, token)
			if len(set) == 0 {
				delete(h.handlers, table)
			}
		}
	}
	return cancel, nil
}

// Publish enqueues one event. When the buffer is full the event is dropped
// with a log line: the live-notification path is explicitly at-most-once.
func (h *Hub) Publish(ev domain.ChangeEvent) {
	select {
	case h.events <- ev:
	default:
		h.logger.Warn("change event dropped, feed buffer full",
			zap.String("table", ev.Table),
			zap.String("op", string(ev.Op)),
		)
	}
}

func (h *Hub) dispatch() {
	defer close(h.done)
	for {
		select {
		case ev := <-h.events:
			for _, handler := range h.snapshot(ev.Table) {
				handler(ev)
			}
		case <-h.stop:
			return
		}
	}
}

func (h *Hub) snapshot(table string) []func(domain.ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.handlers[table]
	handlers := make([]func(domain.ChangeEvent), 0, len(set))
	for _, handler := range set {
		handlers = append(handlers, handler)
	}
	return handlers
}
