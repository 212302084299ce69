package domain

import (
	"fmt"
	"time"
)

// NotificationType is the closed tag identifying a notification's semantic kind.
type NotificationType string

const (
	// NotifyNewMemberRegistration announces a fresh registration to admins.
	NotifyNewMemberRegistration NotificationType = "NEW_MEMBER_REGISTRATION"
	// NotifyApprovalStatusChange announces an approval-state transition.
	NotifyApprovalStatusChange NotificationType = "APPROVAL_STATUS_CHANGE"
	// NotifyProfileUpdate announces a non-status profile edit to admins.
	NotifyProfileUpdate NotificationType = "PROFILE_UPDATE"
	// NotifyMemberDeleted announces a member row removal.
	NotifyMemberDeleted NotificationType = "MEMBER_DELETED"
	// NotifyAdminChange announces any administrator-table change.
	NotifyAdminChange NotificationType = "ADMIN_CHANGE"
	// NotifyDashboardStats carries a freshly recomputed stats rollup.
	NotifyDashboardStats NotificationType = "DASHBOARD_STATS_UPDATE"

	// Admin-originated tags for manual sends.
	NotifyInfo         NotificationType = "INFO"
	NotifyWarning      NotificationType = "WARNING"
	NotifySuccess      NotificationType = "SUCCESS"
	NotifyError        NotificationType = "ERROR"
	NotifyAnnouncement NotificationType = "ANNOUNCEMENT"
	NotifyBroadcast    NotificationType = "BROADCAST_MESSAGE"
)

// Valid reports whether the type belongs to the closed tag set. It is the
// runtime exhaustiveness check behind every externally supplied type string.
func (t NotificationType) Valid() bool {
	switch t {
	case NotifyNewMemberRegistration, NotifyApprovalStatusChange, NotifyProfileUpdate,
		NotifyMemberDeleted, NotifyAdminChange, NotifyDashboardStats,
		NotifyInfo, NotifyWarning, NotifySuccess, NotifyError,
		NotifyAnnouncement, NotifyBroadcast:
		return true
	}
	return false
}

// Notification is the unit of information fanned out to subscribers. It is
// immutable after construction: build one with NewNotification and never
// modify it once handed to the dispatcher.
//
// Wire shape is a stable contract and must round-trip unchanged:
// {type, data, timestamp (RFC 3339), message}.
type Notification struct {
	Type      NotificationType `json:"type"`
	Data      any              `json:"data"`
	Timestamp time.Time        `json:"timestamp"`
	Message   string           `json:"message"`
}

// NewNotification stamps the creation time and derives the human-readable
// message from the type and payload.
func NewNotification(t NotificationType, data any) Notification {
	return Notification{
		Type:      t,
		Data:      data,
		Timestamp: time.Now().UTC(),
		Message:   deriveMessage(t, data),
	}
}

func deriveMessage(t NotificationType, data any) string {
	switch d := data.(type) {
	case RegistrationData:
		return fmt.Sprintf("New member registration: %s", d.Name)
	case StatusChangeData:
		return fmt.Sprintf("Member %s: %s", d.NewStatus, d.Name)
	case ProfileUpdateData:
		return fmt.Sprintf("Profile updated: %s", d.Name)
	case DeletionData:
		return fmt.Sprintf("Member deleted: %s", d.Name)
	case AdminChangeData:
		return fmt.Sprintf("Administrator record %s: %s", d.Event, d.Name)
	case DashboardStats:
		return "Dashboard statistics updated"
	case ManualData:
		return d.Message
	case BroadcastData:
		return d.Message
	default:
		return string(t)
	}
}

// FieldChange records one tracked profile field transition.
type FieldChange struct {
	Field string `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// RegistrationData is the payload for NEW_MEMBER_REGISTRATION.
type RegistrationData struct {
	MemberID  string    `json:"memberId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Branch    string    `json:"branch"`
	CreatedAt time.Time `json:"createdAt"`
}

// StatusChangeData is the payload for APPROVAL_STATUS_CHANGE.
type StatusChangeData struct {
	MemberID        string         `json:"memberId"`
	Name            string         `json:"name"`
	Email           string         `json:"email"`
	OldStatus       ApprovalStatus `json:"oldStatus"`
	NewStatus       ApprovalStatus `json:"newStatus"`
	ApprovedBy      string         `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time     `json:"approvedAt,omitempty"`
	RejectionReason string         `json:"rejectionReason,omitempty"`
}

// ProfileUpdateData is the payload for PROFILE_UPDATE.
type ProfileUpdateData struct {
	MemberID string        `json:"memberId"`
	Name     string        `json:"name"`
	Changes  []FieldChange `json:"changes"`
}

// DeletionData is the payload for MEMBER_DELETED.
type DeletionData struct {
	MemberID string `json:"memberId"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// AdminChangeData is the payload for ADMIN_CHANGE.
type AdminChangeData struct {
	Event   ChangeOp `json:"event"`
	AdminID string   `json:"adminId"`
	Name    string   `json:"name"`
}

// ManualData is the payload for admin-originated direct notifications.
type ManualData struct {
	Message    string `json:"message"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
}

// BroadcastData is the payload for BROADCAST_MESSAGE.
type BroadcastData struct {
	Message        string `json:"message"`
	SenderID       string `json:"senderId"`
	SenderName     string `json:"senderName"`
	Priority       string `json:"priority"`
	TargetAudience string `json:"targetAudience"`
}

// TargetKind selects the routing path for SendNotification.
type TargetKind string

const (
	// TargetUser delivers to a single member's subscribers and channel.
	TargetUser TargetKind = "user"
	// TargetAdmin delivers on the shared admin broadcast channel.
	TargetAdmin TargetKind = "admin"
)

// Valid reports whether the target kind is known.
func (k TargetKind) Valid() bool {
	return k == TargetUser || k == TargetAdmin
}
