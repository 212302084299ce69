package realtime

import (
	"context"
	"time"

	"go.uber.org/zap"

	"parishd/internal/domain"
)

// profileFields are the tracked non-status member columns. A change to any
// of them makes the update a PROFILE_UPDATE.
var profileFields = []string{"name", "bio", "branch", "phone"}

// Observer attaches once, at service start, to the change feed for the
// member and administrator tables and classifies every event into zero or
// more notifications plus targets. Malformed events are logged and dropped
// whole; no partial notification is ever emitted.
type Observer struct {
	logger     *zap.Logger
	feed       domain.ChangeFeed
	dispatcher *Dispatcher
	stats      *Aggregator
	metrics    *Metrics

	cancels []func()
}

func NewObserver(feed domain.ChangeFeed, dispatcher *Dispatcher, stats *Aggregator, logger *zap.Logger, metrics *Metrics) *Observer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Observer{
		logger:     logger.Named("observer"),
		feed:       feed,
		dispatcher: dispatcher,
		stats:      stats,
		metrics:    metrics,
	}
}

// Start subscribes to both tables. A feed connection error is logged, not
// fatal: the feed owns its reconnection policy and classification resumes
// with the event stream. Missed events are an accepted gap; the row store
// stays authoritative.
func (o *Observer) Start() error {
	cancelMembers, err := o.feed.Subscribe(domain.TableMembers, o.handleMemberChange)
	if err != nil {
		o.logger.Error("member feed subscription failed", zap.Error(err))
		return err
	}
	o.cancels = append(o.cancels, cancelMembers)

	cancelAdmins, err := o.feed.Subscribe(domain.TableAdmins, o.handleAdminChange)
	if err != nil {
		o.logger.Error("admin feed subscription failed", zap.Error(err))
		return err
	}
	o.cancels = append(o.cancels, cancelAdmins)

	o.logger.Info("change feed listeners attached")
	return nil
}

// Stop detaches the feed listeners.
func (o *Observer) Stop() {
	for _, cancel := range o.cancels {
		cancel()
	}
	o.cancels = nil
}

func (o *Observer) handleMemberChange(ev domain.ChangeEvent) {
	o.logger.Debug("member table change", zap.String("op", string(ev.Op)))

	switch ev.Op {
	case domain.OpInsert:
		o.memberInserted(ev)
	case domain.OpUpdate:
		o.memberUpdated(ev)
	case domain.OpDelete:
		o.memberDeleted(ev)
	default:
		o.dropEvent(ev, "unknown op")
		return
	}

	// Rollups can shift on any member event, including edits that only flip
	// activity flags, so every event triggers a full recompute.
	o.stats.Recompute(context.Background())
}

func (o *Observer) memberInserted(ev domain.ChangeEvent) {
	row, err := parseMemberRow(ev.New)
	if err != nil {
		o.dropEvent(ev, err.Error())
		return
	}

	o.dispatcher.BroadcastToAdmins(domain.NewNotification(domain.NotifyNewMemberRegistration, domain.RegistrationData{
		MemberID:  row.id,
		Name:      row.name,
		Email:     row.email,
		Branch:    row.branch,
		CreatedAt: row.createdAt,
	}))
}

func (o *Observer) memberUpdated(ev domain.ChangeEvent) {
	newRow, err := parseMemberRow(ev.New)
	if err != nil {
		o.dropEvent(ev, err.Error())
		return
	}
	oldRow, err := parseMemberRow(ev.Old)
	if err != nil {
		o.dropEvent(ev, err.Error())
		return
	}

	// A status flip and profile edits in the same update each emit their own
	// notification; they are never merged.
	if oldRow.status != newRow.status {
		change := domain.NewNotification(domain.NotifyApprovalStatusChange, domain.StatusChangeData{
			MemberID:        newRow.id,
			Name:            newRow.name,
			Email:           newRow.email,
			OldStatus:       oldRow.status,
			NewStatus:       newRow.status,
			ApprovedBy:      newRow.approvedBy,
			ApprovedAt:      newRow.approvedAt,
			RejectionReason: newRow.rejectionReason,
		})
		o.dispatcher.NotifyUser(newRow.id, change)
		o.dispatcher.BroadcastToAdmins(change)
	}

	if changes := diffProfile(ev.Old, ev.New); len(changes) > 0 {
		o.dispatcher.BroadcastToAdmins(domain.NewNotification(domain.NotifyProfileUpdate, domain.ProfileUpdateData{
			MemberID: newRow.id,
			Name:     newRow.name,
			Changes:  changes,
		}))
	}
}

func (o *Observer) memberDeleted(ev domain.ChangeEvent) {
	row, err := parseMemberRow(ev.Old)
	if err != nil {
		o.dropEvent(ev, err.Error())
		return
	}

	o.dispatcher.BroadcastToAdmins(domain.NewNotification(domain.NotifyMemberDeleted, domain.DeletionData{
		MemberID: row.id,
		Name:     row.name,
		Email:    row.email,
	}))
}

// handleAdminChange emits ADMIN_CHANGE for any event on the administrator
// table. Deletes describe the old row, everything else the new one.
func (o *Observer) handleAdminChange(ev domain.ChangeEvent) {
	o.logger.Debug("admin table change", zap.String("op", string(ev.Op)))

	row := ev.New
	if ev.Op == domain.OpDelete {
		row = ev.Old
	}
	id, ok := rowString(row, "id")
	if !ok {
		o.dropEvent(ev, "missing id")
		return
	}
	name, _ := rowString(row, "name")

	o.dispatcher.BroadcastToAdmins(domain.NewNotification(domain.NotifyAdminChange, domain.AdminChangeData{
		Event:   ev.Op,
		AdminID: id,
		Name:    name,
	}))
}

func (o *Observer) dropEvent(ev domain.ChangeEvent, reason string) {
	o.metrics.ObserveDroppedEvent()
	o.logger.Error("change event dropped",
		zap.String("table", ev.Table),
		zap.String("op", string(ev.Op)),
		zap.String("reason", reason),
	)
}

// memberRow is the parsed view of a member change-feed row.
type memberRow struct {
	id              string
	name            string
	email           string
	branch          string
	status          domain.ApprovalStatus
	approvedBy      string
	rejectionReason string
	approvedAt      *time.Time
	createdAt       time.Time
}

func parseMemberRow(row map[string]any) (memberRow, error) {
	id, ok := rowString(row, "id")
	if !ok || id == "" {
		return memberRow{}, domain.ErrMalformedChange
	}
	status, ok := rowString(row, "approval_status")
	if !ok {
		return memberRow{}, domain.ErrMalformedChange
	}

	parsed := memberRow{
		id:     id,
		status: domain.ApprovalStatus(status),
	}
	parsed.name, _ = rowString(row, "name")
	parsed.email, _ = rowString(row, "email")
	parsed.branch, _ = rowString(row, "branch")
	parsed.approvedBy, _ = rowString(row, "approved_by")
	parsed.rejectionReason, _ = rowString(row, "rejection_reason")
	parsed.approvedAt = rowTime(row, "approved_at")
	if created := rowTime(row, "created_at"); created != nil {
		parsed.createdAt = *created
	}
	return parsed, nil
}

func diffProfile(oldRow, newRow map[string]any) []domain.FieldChange {
	var changes []domain.FieldChange
	for _, field := range profileFields {
		oldVal, _ := rowString(oldRow, field)
		newVal, _ := rowString(newRow, field)
		if oldVal != newVal {
			changes = append(changes, domain.FieldChange{Field: field, From: oldVal, To: newVal})
		}
	}
	return changes
}

func rowString(row map[string]any, key string) (string, bool) {
	if row == nil {
		return "", false
	}
	value, ok := row[key]
	if !ok || value == nil {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}

func rowTime(row map[string]any, key string) *time.Time {
	if row == nil {
		return nil
	}
	switch v := row[key].(type) {
	case time.Time:
		return &v
	case *time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return &t
		}
	}
	return nil
}
