package realtime

import (
	"context"
	"sync"

	"parishd/internal/domain"
)

// fakeTransport records channel opens and sends for assertions.
type fakeTransport struct {
	mu           sync.Mutex
	channels     map[string]*fakeChannel
	openCounts   map[string]int
	openErr      error
	initialState domain.ChannelState
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		channels:     make(map[string]*fakeChannel),
		openCounts:   make(map[string]int),
		initialState: domain.ChannelJoined,
	}
}

func (t *fakeTransport) Open(name string) (domain.TransportChannel, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.openCounts[name]++
	if t.openErr != nil {
		err := t.openErr
		t.openErr = nil
		return nil, err
	}
	if ch, ok := t.channels[name]; ok && ch.State() != domain.ChannelClosed {
		return ch, nil
	}
	ch := &fakeChannel{name: name, state: t.initialState}
	t.channels[name] = ch
	return ch, nil
}

func (t *fakeTransport) channel(name string) *fakeChannel {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.channels[name]
}

func (t *fakeTransport) opens(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.openCounts[name]
}

type fakeSend struct {
	event   string
	payload any
}

type fakeChannel struct {
	mu      sync.Mutex
	name    string
	state   domain.ChannelState
	sends   []fakeSend
	sendErr error
}

func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) State() domain.ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *fakeChannel) setState(state domain.ChannelState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

func (c *fakeChannel) setSendErr(err error) {
	c.mu.Lock()
	c.sendErr = err
	c.mu.Unlock()
}

func (c *fakeChannel) Send(event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	if c.state == domain.ChannelClosed {
		return domain.ErrChannelClosed
	}
	c.sends = append(c.sends, fakeSend{event: event, payload: payload})
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = domain.ChannelClosed
	return nil
}

func (c *fakeChannel) sent() []fakeSend {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]fakeSend(nil), c.sends...)
}

// notifications extracts the notifications sent under one event name.
func (c *fakeChannel) notifications(event string) []domain.Notification {
	var out []domain.Notification
	for _, send := range c.sent() {
		if send.event != event {
			continue
		}
		if n, ok := send.payload.(domain.Notification); ok {
			out = append(out, n)
		}
	}
	return out
}

func (c *fakeChannel) notificationTypes(event string) []domain.NotificationType {
	var types []domain.NotificationType
	for _, n := range c.notifications(event) {
		types = append(types, n.Type)
	}
	return types
}

// fakeFeed hands events to handlers synchronously, keeping classification
// tests deterministic.
type fakeFeed struct {
	mu       sync.Mutex
	handlers map[string][]func(domain.ChangeEvent)
	subErr   error
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{handlers: make(map[string][]func(domain.ChangeEvent))}
}

func (f *fakeFeed) Subscribe(table string, handler func(domain.ChangeEvent)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subErr != nil {
		return nil, f.subErr
	}
	f.handlers[table] = append(f.handlers[table], handler)
	return func() {}, nil
}

func (f *fakeFeed) emit(ev domain.ChangeEvent) {
	f.mu.Lock()
	handlers := append(([]func(domain.ChangeEvent))(nil), f.handlers[ev.Table]...)
	f.mu.Unlock()
	for _, handler := range handlers {
		handler(ev)
	}
}

// fakeReader serves a fixed active-member snapshot.
type fakeReader struct {
	mu   sync.Mutex
	rows []domain.MemberTally
	err  error
}

func (r *fakeReader) ActiveMembers(context.Context) ([]domain.MemberTally, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return append([]domain.MemberTally(nil), r.rows...), nil
}
