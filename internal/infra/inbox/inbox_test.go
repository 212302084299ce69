package inbox

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"parishd/internal/domain"
)

func newTestInbox(t *testing.T) *Inbox {
	t.Helper()
	i, err := Open(filepath.Join(t.TempDir(), "inbox.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { i.Close() })
	return i
}

func TestInbox_AppendAndRecent(t *testing.T) {
	i := newTestInbox(t)

	for n := 0; n < 3; n++ {
		i.Append("user-m1", domain.NewNotification(domain.NotifyInfo, domain.ManualData{
			Message: fmt.Sprintf("message %d", n),
		}))
	}

	recent, err := i.Recent("user-m1", 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)

	// Newest first.
	require.Equal(t, "message 2", recent[0].Message)
	require.Equal(t, "message 0", recent[2].Message)
	require.Equal(t, domain.NotifyInfo, recent[0].Type)
}

func TestInbox_RecentHonorsLimit(t *testing.T) {
	i := newTestInbox(t)

	for n := 0; n < 5; n++ {
		i.Append("user-m1", domain.NewNotification(domain.NotifyInfo, domain.ManualData{
			Message: fmt.Sprintf("message %d", n),
		}))
	}

	recent, err := i.Recent("user-m1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, "message 4", recent[0].Message)
	require.Equal(t, "message 3", recent[1].Message)
}

func TestInbox_RecentUnknownChannel(t *testing.T) {
	i := newTestInbox(t)

	recent, err := i.Recent("user-nobody", 10)
	require.NoError(t, err)
	require.Empty(t, recent)
}

func TestInbox_UnreadCounter(t *testing.T) {
	i := newTestInbox(t)

	count, err := i.UnreadCount("user-m1")
	require.NoError(t, err)
	require.Zero(t, count)

	i.Append("user-m1", domain.NewNotification(domain.NotifyInfo, nil))
	i.Append("user-m1", domain.NewNotification(domain.NotifyWarning, nil))
	i.Append(domain.AdminChannelName, domain.NewNotification(domain.NotifyInfo, nil))

	count, err = i.UnreadCount("user-m1")
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	// Counters are per channel.
	count, err = i.UnreadCount(domain.AdminChannelName)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestInbox_MarkAllRead(t *testing.T) {
	i := newTestInbox(t)

	i.Append("user-m1", domain.NewNotification(domain.NotifyInfo, nil))
	i.Append("user-m1", domain.NewNotification(domain.NotifyInfo, nil))
	require.NoError(t, i.MarkAllRead("user-m1"))

	count, err := i.UnreadCount("user-m1")
	require.NoError(t, err)
	require.Zero(t, count)

	// History survives the reset.
	recent, err := i.Recent("user-m1", 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	// New deliveries count from zero again.
	i.Append("user-m1", domain.NewNotification(domain.NotifyInfo, nil))
	count, err = i.UnreadCount("user-m1")
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestInbox_ClosedOperations(t *testing.T) {
	i := newTestInbox(t)
	require.NoError(t, i.Close())
	require.NoError(t, i.Close())

	// Append after close is a silent no-op.
	i.Append("user-m1", domain.NewNotification(domain.NotifyInfo, nil))

	_, err := i.UnreadCount("user-m1")
	require.ErrorIs(t, err, domain.ErrInboxClosed)
	require.ErrorIs(t, i.MarkAllRead("user-m1"), domain.ErrInboxClosed)
	_, err = i.Recent("user-m1", 1)
	require.ErrorIs(t, err, domain.ErrInboxClosed)
}
