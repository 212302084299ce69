package realtime

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"parishd/internal/domain"
)

// Registry owns every named transport channel: the per-member channels and
// the shared admin broadcast channel. Channels are created lazily, reused
// while referenced, and evicted on Close. No other component holds a channel
// handle across calls.
type Registry struct {
	logger    *zap.Logger
	transport domain.Transport
	metrics   *Metrics

	mu       sync.Mutex
	channels map[string]domain.TransportChannel
}

func NewRegistry(transport domain.Transport, logger *zap.Logger, metrics *Metrics) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		logger:    logger.Named("registry"),
		transport: transport,
		metrics:   metrics,
		channels:  make(map[string]domain.TransportChannel),
	}
}

// UserChannel returns the open channel for a member, creating it on first
// need. Concurrent calls for the same member yield the same channel.
func (r *Registry) UserChannel(memberID string) (domain.TransportChannel, error) {
	return r.getOrCreate(domain.UserChannelName(memberID))
}

// AdminChannel returns the shared admin broadcast channel, creating it on
// first need.
func (r *Registry) AdminChannel() (domain.TransportChannel, error) {
	return r.getOrCreate(domain.AdminChannelName)
}

// getOrCreate holds the registry lock across the transport open so at most
// one channel per name can ever exist. A failed open is logged and never
// cached: the next call retries creation.
func (r *Registry) getOrCreate(name string) (domain.TransportChannel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ch, ok := r.channels[name]; ok && ch.State() != domain.ChannelClosed {
		return ch, nil
	}

	ch, err := r.transport.Open(name)
	if err != nil {
		r.logger.Error("channel open failed", zap.String("channel", name), zap.Error(err))
		delete(r.channels, name)
		return nil, domain.E(domain.CodeUnavailable, "registry.open", "", err)
	}

	r.channels[name] = ch
	r.metrics.ObserveChannelOpened()
	r.logger.Info("channel opened", zap.String("channel", name))
	return ch, nil
}

// Lookup returns the channel for a name without creating one.
func (r *Registry) Lookup(name string) (domain.TransportChannel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[name]
	return ch, ok
}

// Close tears down the named channel and removes the entry. Closing an
// absent or already-closed name is a no-op.
func (r *Registry) Close(name string) {
	r.mu.Lock()
	ch, ok := r.channels[name]
	delete(r.channels, name)
	r.mu.Unlock()
	if !ok {
		return
	}

	if err := ch.Close(); err != nil {
		r.logger.Warn("channel close failed", zap.String("channel", name), zap.Error(err))
	}
	r.metrics.ObserveChannelClosed()
	r.logger.Info("channel closed", zap.String("channel", name))
}

// CloseAll tears down every channel, for shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	channels := r.channels
	r.channels = make(map[string]domain.TransportChannel)
	r.mu.Unlock()

	for name, ch := range channels {
		if err := ch.Close(); err != nil {
			r.logger.Warn("channel close failed", zap.String("channel", name), zap.Error(err))
		}
		r.metrics.ObserveChannelClosed()
	}
}

// Names returns the open channel names in sorted order, for diagnostics.
func (r *Registry) Names() []string {
	r.mu.Lock()
	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	r.mu.Unlock()

	sort.Strings(names)
	return names
}

// snapshot returns the current channel handles for iteration outside the
// lock, e.g. the heartbeat sweep.
func (r *Registry) snapshot() []domain.TransportChannel {
	r.mu.Lock()
	defer r.mu.Unlock()
	channels := make([]domain.TransportChannel, 0, len(r.channels))
	for _, ch := range r.channels {
		channels = append(channels, ch)
	}
	return channels
}
