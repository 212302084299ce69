package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNotificationType_Valid(t *testing.T) {
	valid := []NotificationType{
		NotifyNewMemberRegistration, NotifyApprovalStatusChange, NotifyProfileUpdate,
		NotifyMemberDeleted, NotifyAdminChange, NotifyDashboardStats,
		NotifyInfo, NotifyWarning, NotifySuccess, NotifyError,
		NotifyAnnouncement, NotifyBroadcast,
	}
	for _, tag := range valid {
		require.True(t, tag.Valid(), string(tag))
	}

	require.False(t, NotificationType("").Valid())
	require.False(t, NotificationType("NOISE").Valid())
	require.False(t, NotificationType("info").Valid())
}

func TestNewNotification_DerivesMessage(t *testing.T) {
	cases := []struct {
		tag     NotificationType
		data    any
		message string
	}{
		{NotifyNewMemberRegistration, RegistrationData{Name: "Ada"}, "New member registration: Ada"},
		{NotifyApprovalStatusChange, StatusChangeData{Name: "Ada", NewStatus: StatusApproved}, "Member approved: Ada"},
		{NotifyProfileUpdate, ProfileUpdateData{Name: "Ada"}, "Profile updated: Ada"},
		{NotifyMemberDeleted, DeletionData{Name: "Ada"}, "Member deleted: Ada"},
		{NotifyAdminChange, AdminChangeData{Event: OpInsert, Name: "Kim"}, "Administrator record INSERT: Kim"},
		{NotifyDashboardStats, DashboardStats{}, "Dashboard statistics updated"},
		{NotifyInfo, ManualData{Message: "custom text"}, "custom text"},
		{NotifyBroadcast, BroadcastData{Message: "meet at ten"}, "meet at ten"},
		{NotifyWarning, nil, "WARNING"},
	}

	for _, tc := range cases {
		n := NewNotification(tc.tag, tc.data)
		require.Equal(t, tc.tag, n.Type)
		require.Equal(t, tc.message, n.Message)
		require.False(t, n.Timestamp.IsZero())
		require.Equal(t, time.UTC, n.Timestamp.Location())
	}
}

func TestNotification_WireShape(t *testing.T) {
	n := Notification{
		Type:      NotifyApprovalStatusChange,
		Data:      StatusChangeData{MemberID: "m1", OldStatus: StatusPending, NewStatus: StatusApproved},
		Timestamp: time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC),
		Message:   "Member approved: Ada",
	}

	raw, err := json.Marshal(n)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(raw, &wire))
	require.Len(t, wire, 4)
	require.Equal(t, "APPROVAL_STATUS_CHANGE", wire["type"])
	require.Equal(t, "2026-08-31T10:30:00Z", wire["timestamp"])
	require.Equal(t, "Member approved: Ada", wire["message"])

	data := wire["data"].(map[string]any)
	require.Equal(t, "m1", data["memberId"])
	require.Equal(t, "pending", data["oldStatus"])
	require.Equal(t, "approved", data["newStatus"])

	// Optional approval fields stay off the wire when unset.
	require.NotContains(t, data, "approvedBy")
	require.NotContains(t, data, "approvedAt")
	require.NotContains(t, data, "rejectionReason")
}

func TestTargetKind_Valid(t *testing.T) {
	require.True(t, TargetUser.Valid())
	require.True(t, TargetAdmin.Valid())
	require.False(t, TargetKind("group").Valid())
	require.False(t, TargetKind("").Valid())
}

func TestApprovalStatus_Valid(t *testing.T) {
	require.True(t, StatusPending.Valid())
	require.True(t, StatusApproved.Valid())
	require.True(t, StatusRejected.Valid())
	require.False(t, ApprovalStatus("waiting").Valid())
}

func TestUserChannelName(t *testing.T) {
	require.Equal(t, "user-m1", UserChannelName("m1"))
	require.Equal(t, "admin-broadcast", AdminChannelName)
}
