package realtime

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"parishd/internal/domain"
)

type observerHarness struct {
	transport   *fakeTransport
	subscribers *SubscriberTable
	feed        *fakeFeed
	reader      *fakeReader
	observer    *Observer
}

func newObserverHarness(t *testing.T) *observerHarness {
	t.Helper()
	transport := newFakeTransport()
	registry := NewRegistry(transport, nil, nil)
	subscribers := NewSubscriberTable()
	dispatcher := NewDispatcher(registry, subscribers, nil, nil)
	reader := &fakeReader{}
	stats := NewAggregator(reader, dispatcher, nil, nil)
	feed := newFakeFeed()
	observer := NewObserver(feed, dispatcher, stats, nil, nil)
	require.NoError(t, observer.Start())
	t.Cleanup(observer.Stop)
	return &observerHarness{
		transport:   transport,
		subscribers: subscribers,
		feed:        feed,
		reader:      reader,
		observer:    observer,
	}
}

func (h *observerHarness) adminNotifications() []domain.Notification {
	ch := h.transport.channel(domain.AdminChannelName)
	if ch == nil {
		return nil
	}
	return ch.notifications(domain.EventAdminNotification)
}

func (h *observerHarness) adminTypes() []domain.NotificationType {
	var types []domain.NotificationType
	for _, n := range h.adminNotifications() {
		types = append(types, n.Type)
	}
	return types
}

func testMemberRow(overrides map[string]any) map[string]any {
	row := map[string]any{
		"id":              "m9",
		"name":            "Ada",
		"email":           "ada@example.org",
		"branch":          domain.BranchEZCC,
		"phone":           "555-0100",
		"bio":             "",
		"approval_status": "pending",
		"created_at":      time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	for k, v := range overrides {
		row[k] = v
	}
	return row
}

func TestObserver_MemberInsert(t *testing.T) {
	h := newObserverHarness(t)

	h.feed.emit(domain.ChangeEvent{
		Op:    domain.OpInsert,
		Table: domain.TableMembers,
		New:   testMemberRow(nil),
	})

	notifications := h.adminNotifications()
	require.Len(t, notifications, 2)

	require.Equal(t, domain.NotifyNewMemberRegistration, notifications[0].Type)
	data, ok := notifications[0].Data.(domain.RegistrationData)
	require.True(t, ok)
	require.Equal(t, "m9", data.MemberID)
	require.Equal(t, "Ada", data.Name)
	require.Equal(t, "ada@example.org", data.Email)
	require.Equal(t, domain.BranchEZCC, data.Branch)
	require.Equal(t, "New member registration: Ada", notifications[0].Message)

	// Every member event is followed by a fresh rollup broadcast.
	require.Equal(t, domain.NotifyDashboardStats, notifications[1].Type)
}

func TestObserver_MemberDeleteDescribesOldRow(t *testing.T) {
	h := newObserverHarness(t)

	h.feed.emit(domain.ChangeEvent{
		Op:    domain.OpDelete,
		Table: domain.TableMembers,
		Old:   testMemberRow(nil),
	})

	notifications := h.adminNotifications()
	require.Len(t, notifications, 2)
	require.Equal(t, domain.NotifyMemberDeleted, notifications[0].Type)
	data, ok := notifications[0].Data.(domain.DeletionData)
	require.True(t, ok)
	require.Equal(t, "m9", data.MemberID)
	require.Equal(t, "ada@example.org", data.Email)
	require.Equal(t, domain.NotifyDashboardStats, notifications[1].Type)
}

func TestObserver_StatusChangeReachesMemberAndAdmins(t *testing.T) {
	h := newObserverHarness(t)

	var personal []domain.Notification
	h.subscribers.Add("m9", func(n domain.Notification) { personal = append(personal, n) })

	approvedAt := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	h.feed.emit(domain.ChangeEvent{
		Op:    domain.OpUpdate,
		Table: domain.TableMembers,
		Old:   testMemberRow(nil),
		New: testMemberRow(map[string]any{
			"approval_status": "approved",
			"approved_by":     "admin-1",
			"approved_at":     approvedAt,
		}),
	})

	require.Len(t, personal, 1)
	require.Equal(t, domain.NotifyApprovalStatusChange, personal[0].Type)
	data, ok := personal[0].Data.(domain.StatusChangeData)
	require.True(t, ok)
	require.Equal(t, domain.StatusPending, data.OldStatus)
	require.Equal(t, domain.StatusApproved, data.NewStatus)
	require.Equal(t, "admin-1", data.ApprovedBy)
	require.NotNil(t, data.ApprovedAt)
	require.True(t, data.ApprovedAt.Equal(approvedAt))

	// Admins see the identical status notification before the rollup.
	admin := h.adminNotifications()
	require.Len(t, admin, 2)
	require.Equal(t, personal[0], admin[0])
	require.Equal(t, domain.NotifyDashboardStats, admin[1].Type)
}

func TestObserver_UpdateFieldSubsets(t *testing.T) {
	// Exercise every combination of a status flip and edits to three tracked
	// profile fields within one update event.
	fields := []string{"name", "branch", "phone"}
	for mask := 0; mask < 16; mask++ {
		statusFlip := mask&8 != 0
		var edited []string
		for i, field := range fields {
			if mask&(1<<i) != 0 {
				edited = append(edited, field)
			}
		}

		t.Run(fmt.Sprintf("mask_%02d", mask), func(t *testing.T) {
			h := newObserverHarness(t)

			overrides := map[string]any{}
			if statusFlip {
				overrides["approval_status"] = "approved"
			}
			for _, field := range edited {
				overrides[field] = "changed-" + field
			}

			h.feed.emit(domain.ChangeEvent{
				Op:    domain.OpUpdate,
				Table: domain.TableMembers,
				Old:   testMemberRow(nil),
				New:   testMemberRow(overrides),
			})

			var want []domain.NotificationType
			if statusFlip {
				want = append(want, domain.NotifyApprovalStatusChange)
			}
			if len(edited) > 0 {
				want = append(want, domain.NotifyProfileUpdate)
			}
			want = append(want, domain.NotifyDashboardStats)
			require.Equal(t, want, h.adminTypes())

			if len(edited) > 0 {
				var profile domain.ProfileUpdateData
				for _, n := range h.adminNotifications() {
					if n.Type == domain.NotifyProfileUpdate {
						profile = n.Data.(domain.ProfileUpdateData)
					}
				}
				require.Len(t, profile.Changes, len(edited))
				for _, change := range profile.Changes {
					require.Contains(t, edited, change.Field)
					require.Equal(t, "changed-"+change.Field, change.To)
				}
			}
		})
	}
}

func TestObserver_UntrackedFieldChangeIsSilent(t *testing.T) {
	h := newObserverHarness(t)

	h.feed.emit(domain.ChangeEvent{
		Op:    domain.OpUpdate,
		Table: domain.TableMembers,
		Old:   testMemberRow(nil),
		New:   testMemberRow(map[string]any{"email": "new@example.org"}),
	})

	// Only the rollup goes out: email is not a tracked profile field.
	require.Equal(t, []domain.NotificationType{domain.NotifyDashboardStats}, h.adminTypes())
}

func TestObserver_MalformedEventsDroppedWhole(t *testing.T) {
	cases := map[string]domain.ChangeEvent{
		"insert missing id": {
			Op:    domain.OpInsert,
			Table: domain.TableMembers,
			New:   testMemberRow(map[string]any{"id": nil}),
		},
		"insert missing status": {
			Op:    domain.OpInsert,
			Table: domain.TableMembers,
			New:   testMemberRow(map[string]any{"approval_status": nil}),
		},
		"insert mistyped id": {
			Op:    domain.OpInsert,
			Table: domain.TableMembers,
			New:   testMemberRow(map[string]any{"id": 42}),
		},
		"update missing old row": {
			Op:    domain.OpUpdate,
			Table: domain.TableMembers,
			New:   testMemberRow(nil),
		},
		"delete missing old row": {
			Op:    domain.OpDelete,
			Table: domain.TableMembers,
		},
	}

	for name, ev := range cases {
		t.Run(name, func(t *testing.T) {
			h := newObserverHarness(t)
			h.feed.emit(ev)

			// The event itself yields nothing; the rollup still refreshes
			// because a member row did change.
			require.Equal(t, []domain.NotificationType{domain.NotifyDashboardStats}, h.adminTypes())
		})
	}
}

func TestObserver_UnknownOpIgnored(t *testing.T) {
	h := newObserverHarness(t)

	h.feed.emit(domain.ChangeEvent{
		Op:    domain.ChangeOp("TRUNCATE"),
		Table: domain.TableMembers,
		New:   testMemberRow(nil),
	})

	require.Empty(t, h.adminTypes())
}

func TestObserver_AdminTableChanges(t *testing.T) {
	h := newObserverHarness(t)

	h.feed.emit(domain.ChangeEvent{
		Op:    domain.OpInsert,
		Table: domain.TableAdmins,
		New:   map[string]any{"id": "a1", "name": "Pastor Kim"},
	})
	h.feed.emit(domain.ChangeEvent{
		Op:    domain.OpDelete,
		Table: domain.TableAdmins,
		Old:   map[string]any{"id": "a2", "name": "Deacon Lee"},
	})

	notifications := h.adminNotifications()
	require.Len(t, notifications, 2)

	insert := notifications[0].Data.(domain.AdminChangeData)
	require.Equal(t, domain.OpInsert, insert.Event)
	require.Equal(t, "a1", insert.AdminID)

	deleted := notifications[1].Data.(domain.AdminChangeData)
	require.Equal(t, domain.OpDelete, deleted.Event)
	require.Equal(t, "a2", deleted.AdminID)
	require.Equal(t, "Deacon Lee", deleted.Name)
}

func TestObserver_AdminEventMissingIDDropped(t *testing.T) {
	h := newObserverHarness(t)

	h.feed.emit(domain.ChangeEvent{
		Op:    domain.OpInsert,
		Table: domain.TableAdmins,
		New:   map[string]any{"name": "nameless"},
	})

	require.Empty(t, h.adminTypes())
}
