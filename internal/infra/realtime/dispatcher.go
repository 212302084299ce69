package realtime

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"parishd/internal/domain"
)

// DeliveryResult reports what one dispatch attempt actually did. Callers are
// free to ignore it; the send path never panics and never returns a hard
// failure for a transport problem.
type DeliveryResult struct {
	LocalDelivered int
	TransportErr   error
}

// DeliveryHook observes every notification placed on a named channel.
// Used for the persistent inbox; failures are the hook's own problem.
type DeliveryHook func(channel string, n domain.Notification)

type heartbeatPayload struct {
	Timestamp time.Time `json:"timestamp"`
}

// Dispatcher fans a notification out to the local subscriber table and the
// transport channel for its target. Local delivery and the transport push
// are independent: neither is skipped because the other failed.
type Dispatcher struct {
	logger      *zap.Logger
	registry    *Registry
	subscribers *SubscriberTable
	metrics     *Metrics
	onDeliver   DeliveryHook

	mu            sync.Mutex
	heartbeatTick *time.Ticker
	stopHeartbeat chan struct{}
}

func NewDispatcher(registry *Registry, subscribers *SubscriberTable, logger *zap.Logger, metrics *Metrics) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		logger:      logger.Named("dispatcher"),
		registry:    registry,
		subscribers: subscribers,
		metrics:     metrics,
	}
}

// SetDeliveryHook installs the per-delivery observer. Call before Start.
func (d *Dispatcher) SetDeliveryHook(hook DeliveryHook) {
	d.onDeliver = hook
}

// NotifyUser delivers to every currently subscribed local callback for the
// member (snapshot semantics) and additionally pushes on the member's
// transport channel if one is open. It never creates a channel.
func (d *Dispatcher) NotifyUser(memberID string, n domain.Notification) DeliveryResult {
	var result DeliveryResult

	for _, cb := range d.subscribers.Snapshot(memberID) {
		cb(n)
		result.LocalDelivered++
	}
	d.metrics.ObserveLocalDeliveries(result.LocalDelivered)

	channelName := domain.UserChannelName(memberID)
	if ch, ok := d.registry.Lookup(channelName); ok {
		if err := ch.Send(domain.EventNotification, n); err != nil {
			d.logger.Warn("transport push failed",
				zap.String("channel", channelName),
				zap.String("type", string(n.Type)),
				zap.Error(err),
			)
			d.metrics.ObserveTransportFailure()
			result.TransportErr = err
		}
	}

	if d.onDeliver != nil {
		d.onDeliver(channelName, n)
	}

	d.metrics.ObserveNotification(string(n.Type), string(domain.TargetUser))
	return result
}

// BroadcastToAdmins pushes on the shared admin channel. Admins all listen on
// that one channel; no per-admin subscriber lookup happens here.
func (d *Dispatcher) BroadcastToAdmins(n domain.Notification) DeliveryResult {
	var result DeliveryResult

	ch, err := d.registry.AdminChannel()
	if err != nil {
		result.TransportErr = err
	} else if err := ch.Send(domain.EventAdminNotification, n); err != nil {
		d.logger.Warn("admin broadcast failed",
			zap.String("type", string(n.Type)),
			zap.Error(err),
		)
		d.metrics.ObserveTransportFailure()
		result.TransportErr = err
	}

	if d.onDeliver != nil {
		d.onDeliver(domain.AdminChannelName, n)
	}

	d.metrics.ObserveNotification(string(n.Type), string(domain.TargetAdmin))
	d.logger.Debug("broadcast to admins", zap.String("type", string(n.Type)))
	return result
}

// SendNotification routes by target kind: TargetUser requires a member id,
// TargetAdmin ignores it.
func (d *Dispatcher) SendNotification(kind domain.TargetKind, targetID string, n domain.Notification) (DeliveryResult, error) {
	switch kind {
	case domain.TargetUser:
		if targetID == "" {
			return DeliveryResult{}, domain.E(domain.CodeInvalidArgument, "dispatcher.send", "", domain.ErrMemberRequired)
		}
		return d.NotifyUser(targetID, n), nil
	case domain.TargetAdmin:
		return d.BroadcastToAdmins(n), nil
	default:
		return DeliveryResult{}, domain.E(domain.CodeInvalidArgument, "dispatcher.send", string(kind), domain.ErrUnknownTarget)
	}
}

// StartHeartbeat begins the periodic liveness sweep: every interval, one
// heartbeat payload per channel currently in the joined state. Channels
// still connecting are skipped, not queued.
func (d *Dispatcher) StartHeartbeat(interval time.Duration) {
	if interval <= 0 {
		interval = domain.DefaultHeartbeatSeconds * time.Second
	}
	d.mu.Lock()
	if d.heartbeatTick != nil {
		d.mu.Unlock()
		return
	}
	d.heartbeatTick = time.NewTicker(interval)
	d.stopHeartbeat = make(chan struct{})
	tick := d.heartbeatTick
	stop := d.stopHeartbeat
	d.mu.Unlock()

	go func() {
		for {
			select {
			case <-tick.C:
				d.sweepHeartbeat()
			case <-stop:
				return
			}
		}
	}()
}

// StopHeartbeat ends the liveness sweep.
func (d *Dispatcher) StopHeartbeat() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.heartbeatTick == nil {
		return
	}
	d.heartbeatTick.Stop()
	d.heartbeatTick = nil
	close(d.stopHeartbeat)
	d.stopHeartbeat = nil
}

func (d *Dispatcher) sweepHeartbeat() {
	payload := heartbeatPayload{Timestamp: time.Now().UTC()}
	for _, ch := range d.registry.snapshot() {
		if ch.State() != domain.ChannelJoined {
			continue
		}
		if err := ch.Send(domain.EventHeartbeat, payload); err != nil {
			d.logger.Debug("heartbeat send failed", zap.String("channel", ch.Name()), zap.Error(err))
			d.metrics.ObserveTransportFailure()
			continue
		}
		d.metrics.ObserveHeartbeat()
	}
}
