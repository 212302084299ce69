package realtime

import (
	"sync"

	"github.com/google/uuid"

	"parishd/internal/domain"
)

// Callback is a local in-process delivery handle.
type Callback func(domain.Notification)

// SubscriberTable maps member identity to the set of local callbacks
// interested in that member's notifications. A member can hold several
// callbacks at once (one per open session).
type SubscriberTable struct {
	mu   sync.Mutex
	subs map[string]map[string]Callback
}

func NewSubscriberTable() *SubscriberTable {
	return &SubscriberTable{
		subs: make(map[string]map[string]Callback),
	}
}

// Add registers a callback and returns the token that undoes exactly this
// registration.
func (t *SubscriberTable) Add(memberID string, cb Callback) string {
	token := uuid.NewString()
	t.mu.Lock()
	set, ok := t.subs[memberID]
	if !ok {
		set = make(map[string]Callback)
		t.subs[memberID] = set
	}
	set[token] = cb
	t.mu.Unlock()
	return token
}

// Remove deregisters one callback. It reports whether the member's callback
// set became empty, which is the caller's cue to evict the member's channel.
func (t *SubscriberTable) Remove(memberID, token string) (empty bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.subs[memberID]
	if !ok {
		return false
	}
	if _, ok := set[token]; !ok {
		return false
	}
	delete(set, token)
	if len(set) > 0 {
		return false
	}
	delete(t.subs, memberID)
	return true
}

// Snapshot copies the member's callback set before any invocation, so a
// callback that unsubscribes itself mid-notify cannot corrupt iteration.
func (t *SubscriberTable) Snapshot(memberID string) []Callback {
	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.subs[memberID]
	if !ok {
		return nil
	}
	callbacks := make([]Callback, 0, len(set))
	for _, cb := range set {
		callbacks = append(callbacks, cb)
	}
	return callbacks
}

// Count returns the member's current callback-set size.
func (t *SubscriberTable) Count(memberID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs[memberID])
}

// Counts returns callback-set sizes per member, for diagnostics.
func (t *SubscriberTable) Counts() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	counts := make(map[string]int, len(t.subs))
	for memberID, set := range t.subs {
		counts[memberID] = len(set)
	}
	return counts
}

// Clear drops all registrations, for shutdown.
func (t *SubscriberTable) Clear() {
	t.mu.Lock()
	t.subs = make(map[string]map[string]Callback)
	t.mu.Unlock()
}
