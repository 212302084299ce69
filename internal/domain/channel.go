package domain

// ChannelState is the lifecycle state of a transport channel.
type ChannelState string

const (
	// ChannelConnecting means the channel is open but no remote listener has
	// joined yet. Heartbeats skip channels in this state.
	ChannelConnecting ChannelState = "connecting"
	// ChannelJoined means at least one remote listener completed attach.
	ChannelJoined ChannelState = "joined"
	// ChannelClosed means the channel was torn down; sends fail.
	ChannelClosed ChannelState = "closed"
)

// Channel name and event literals shared with transport clients.
const (
	AdminChannelName = "admin-broadcast"

	EventNotification      = "notification"
	EventAdminNotification = "admin-notification"
	EventHeartbeat         = "heartbeat"
)

// UserChannelName returns the per-member channel name.
func UserChannelName(memberID string) string {
	return "user-" + memberID
}

// TransportChannel is one named broadcast surface on the transport.
type TransportChannel interface {
	Name() string
	State() ChannelState
	// Send publishes one event on the channel. It never blocks indefinitely;
	// failures are returned, not retried.
	Send(event string, payload any) error
	Close() error
}

// Transport is the collaborator owning the wire-level broadcast surfaces.
type Transport interface {
	// Open allocates the named channel. Opening an already-open name returns
	// the existing handle.
	Open(name string) (TransportChannel, error)
}
