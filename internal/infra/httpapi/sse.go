package httpapi

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"parishd/internal/domain"
)

// Frame is one server-sent event ready to write to a stream.
type Frame struct {
	Event string
	Data  []byte
}

// SSETransport implements the transport collaborator over server-sent
// events: every named channel fans frames out to the HTTP streams attached
// to it. A channel starts in the connecting state and becomes joined when
// the first stream attaches; a lagging stream drops frames rather than
// blocking the sender.
type SSETransport struct {
	logger *zap.Logger
	buffer int

	mu       sync.Mutex
	channels map[string]*sseChannel
}

func NewSSETransport(logger *zap.Logger, buffer int) *SSETransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = domain.DefaultStreamBuffer
	}
	return &SSETransport{
		logger:   logger.Named("sse"),
		buffer:   buffer,
		channels: make(map[string]*sseChannel),
	}
}

// Open returns the named channel, allocating it on first use.
func (t *SSETransport) Open(name string) (domain.TransportChannel, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ch, ok := t.channels[name]; ok && ch.State() != domain.ChannelClosed {
		return ch, nil
	}
	ch := &sseChannel{
		name:   name,
		buffer: t.buffer,
		state:  domain.ChannelConnecting,
		subs:   make(map[chan Frame]struct{}),
	}
	t.channels[name] = ch
	return ch, nil
}

// Attach adds an HTTP stream to the named channel. The channel must already
// be open; attaching marks it joined.
func (t *SSETransport) Attach(name string) (<-chan Frame, func(), error) {
	t.mu.Lock()
	ch, ok := t.channels[name]
	t.mu.Unlock()
	if !ok {
		return nil, nil, domain.E(domain.CodeNotFound, "sse.attach", name, domain.ErrInvalidChannel)
	}
	return ch.attach()
}

type sseChannel struct {
	name   string
	buffer int

	mu    sync.Mutex
	state domain.ChannelState
	subs  map[chan Frame]struct{}
}

func (c *sseChannel) Name() string { return c.name }

func (c *sseChannel) State() domain.ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Send marshals the payload once and fans the frame out to every attached
// stream. Streams that cannot keep up miss the frame; the next one catches
// them up.
func (c *sseChannel) Send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return domain.E(domain.CodeInternal, "sse.send", "", err)
	}
	frame := Frame{Event: event, Data: data}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == domain.ChannelClosed {
		return domain.E(domain.CodeUnavailable, "sse.send", c.name, domain.ErrChannelClosed)
	}
	for sub := range c.subs {
		select {
		case sub <- frame:
		default:
		}
	}
	return nil
}

func (c *sseChannel) attach() (<-chan Frame, func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == domain.ChannelClosed {
		return nil, nil, domain.E(domain.CodeUnavailable, "sse.attach", c.name, domain.ErrChannelClosed)
	}

	sub := make(chan Frame, c.buffer)
	c.subs[sub] = struct{}{}
	c.state = domain.ChannelJoined

	detach := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if _, ok := c.subs[sub]; ok {
			delete(c.subs, sub)
			close(sub)
		}
	}
	return sub, detach, nil
}

func (c *sseChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == domain.ChannelClosed {
		return nil
	}
	c.state = domain.ChannelClosed
	for sub := range c.subs {
		close(sub)
	}
	c.subs = make(map[chan Frame]struct{})
	return nil
}
