package domain

// ChangeOp is the row-level mutation kind reported by the change feed.
type ChangeOp string

const (
	OpInsert ChangeOp = "INSERT"
	OpUpdate ChangeOp = "UPDATE"
	OpDelete ChangeOp = "DELETE"
)

// Table names on the change feed.
const (
	TableMembers = "members"
	TableAdmins  = "administrators"
)

// ChangeEvent mirrors one row-level mutation from the source-of-truth store.
// Row snapshots are loosely typed, matching the feed's wire payloads: a
// classifier must treat missing or mistyped fields as a malformed event.
type ChangeEvent struct {
	Op    ChangeOp       `json:"eventType"`
	Table string         `json:"table"`
	New   map[string]any `json:"new,omitempty"`
	Old   map[string]any `json:"old,omitempty"`
}

// ChangeFeed is the collaborator delivering row-level change events.
// Subscribe registers a handler for one table and returns a cancel func.
// Handlers for a single table are invoked in publication order.
type ChangeFeed interface {
	Subscribe(table string, handler func(ChangeEvent)) (func(), error)
}

// ChangePublisher is the producing side of the feed, implemented by the hub
// and consumed by the store after each committed mutation.
type ChangePublisher interface {
	Publish(ChangeEvent)
}
