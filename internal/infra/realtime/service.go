package realtime

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"parishd/internal/domain"
)

// Options captures the collaborators and settings for a Service.
type Options struct {
	Transport   domain.Transport
	Feed        domain.ChangeFeed
	StatsReader domain.StatsReader
	Logger      *zap.Logger
	Metrics     *Metrics
	Branches    []string
	Heartbeat   time.Duration
	OnDeliver   DeliveryHook
}

// ConnectionStatus is the diagnostic snapshot served by the status endpoint.
type ConnectionStatus struct {
	Channels    []string       `json:"channels"`
	Subscribers map[string]int `json:"subscribers"`
}

// Service is the realtime notification fan-out core: one long-lived instance
// constructed at process start and handed to every collaborator that needs
// it. Lifecycle is explicit so tests can run isolated instances.
type Service struct {
	logger      *zap.Logger
	registry    *Registry
	subscribers *SubscriberTable
	dispatcher  *Dispatcher
	observer    *Observer
	stats       *Aggregator
	heartbeat   time.Duration
}

func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("realtime")

	registry := NewRegistry(opts.Transport, logger, opts.Metrics)
	subscribers := NewSubscriberTable()
	dispatcher := NewDispatcher(registry, subscribers, logger, opts.Metrics)
	if opts.OnDeliver != nil {
		dispatcher.SetDeliveryHook(opts.OnDeliver)
	}
	stats := NewAggregator(opts.StatsReader, dispatcher, opts.Branches, logger)
	observer := NewObserver(opts.Feed, dispatcher, stats, logger, opts.Metrics)

	heartbeat := opts.Heartbeat
	if heartbeat <= 0 {
		heartbeat = domain.DefaultHeartbeatSeconds * time.Second
	}

	return &Service{
		logger:      logger,
		registry:    registry,
		subscribers: subscribers,
		dispatcher:  dispatcher,
		observer:    observer,
		stats:       stats,
		heartbeat:   heartbeat,
	}
}

// Start attaches the change-feed listeners and begins the heartbeat sweep.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("starting realtime service")
	if err := s.observer.Start(); err != nil {
		return err
	}
	s.dispatcher.StartHeartbeat(s.heartbeat)
	return nil
}

// Stop detaches listeners, stops heartbeats, and tears down every channel.
func (s *Service) Stop() {
	s.logger.Info("stopping realtime service")
	s.dispatcher.StopHeartbeat()
	s.observer.Stop()
	s.registry.CloseAll()
	s.subscribers.Clear()
}

// Subscribe registers a local callback for a member's notifications and
// opens that member's channel as a side effect. It never fails: a channel
// open error is logged and the local registration still stands. The returned
// handle undoes exactly this registration; calling it more than once is a
// no-op after the first call.
func (s *Service) Subscribe(memberID string, cb Callback) func() {
	token := s.subscribers.Add(memberID, cb)
	if _, err := s.registry.UserChannel(memberID); err != nil {
		s.logger.Warn("user channel unavailable, local delivery only",
			zap.String("member", memberID), zap.Error(err))
	}
	s.logger.Info("member subscribed", zap.String("member", memberID))

	var once sync.Once
	return func() {
		once.Do(func() { s.unsubscribe(memberID, token) })
	}
}

// unsubscribe removes one callback; removing the last one for a member
// evicts the member entry and closes the member's channel.
func (s *Service) unsubscribe(memberID, token string) {
	if empty := s.subscribers.Remove(memberID, token); empty {
		s.registry.Close(domain.UserChannelName(memberID))
	}
	s.logger.Info("member unsubscribed", zap.String("member", memberID))
}

// NotifyUser delivers one notification to a member's sessions.
func (s *Service) NotifyUser(memberID string, n domain.Notification) DeliveryResult {
	return s.dispatcher.NotifyUser(memberID, n)
}

// BroadcastToAdmins delivers one notification on the admin channel.
func (s *Service) BroadcastToAdmins(n domain.Notification) DeliveryResult {
	return s.dispatcher.BroadcastToAdmins(n)
}

// SendNotification routes a notification by target kind.
func (s *Service) SendNotification(kind domain.TargetKind, targetID string, n domain.Notification) (DeliveryResult, error) {
	return s.dispatcher.SendNotification(kind, targetID, n)
}

// Stats rebuilds the dashboard rollup without broadcasting.
func (s *Service) Stats(ctx context.Context) (domain.DashboardStats, error) {
	return s.stats.Compute(ctx)
}

// RefreshStats rebuilds the rollup and broadcasts it to admins.
func (s *Service) RefreshStats(ctx context.Context) (domain.DashboardStats, error) {
	return s.stats.Recompute(ctx)
}

// EnsureAdminChannel opens the admin broadcast channel if absent, so a
// listener can attach before any broadcast happened.
func (s *Service) EnsureAdminChannel() error {
	_, err := s.registry.AdminChannel()
	return err
}

// Status reports open channel names and per-member callback-set sizes.
func (s *Service) Status() ConnectionStatus {
	return ConnectionStatus{
		Channels:    s.registry.Names(),
		Subscribers: s.subscribers.Counts(),
	}
}
