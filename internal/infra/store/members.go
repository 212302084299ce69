package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"parishd/internal/domain"
)

// MemberFilter controls filtering and pagination for member listings.
type MemberFilter struct {
	Branch   string
	Status   domain.ApprovalStatus
	Search   string
	IsActive *bool
	Page     int
	Limit    int
}

// MemberPage is one page of a member listing.
type MemberPage struct {
	Members    []domain.Member `json:"members"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	Total      int             `json:"total"`
	TotalPages int             `json:"totalPages"`
}

// CreateMember inserts a new pending member and reports the insert on the
// change feed.
func (s *Store) CreateMember(ctx context.Context, m domain.Member) (domain.Member, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Role == "" {
		m.Role = domain.RoleMember
	}
	if m.ApprovalStatus == "" {
		m.ApprovalStatus = domain.StatusPending
	}
	now := time.Now().UTC()
	m.IsActive = true
	m.CreatedAt = now
	m.UpdatedAt = now

	const query = `
		INSERT INTO members (
			id, name, email, phone, bio, branch, role,
			approval_status, is_active, approved_by, approved_at,
			rejection_reason, created_at, updated_at
		) VALUES (
			:id, :name, :email, :phone, :bio, :branch, :role,
			:approval_status, :is_active, :approved_by, :approved_at,
			:rejection_reason, :created_at, :updated_at
		)`

	if _, err := s.db.NamedExecContext(ctx, query, m); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.Member{}, domain.E(domain.CodeAlreadyExists, "store.create_member", m.Email, domain.ErrEmailTaken)
		}
		return domain.Member{}, fmt.Errorf("inserting member: %w", err)
	}

	s.publish(domain.ChangeEvent{
		Op:    domain.OpInsert,
		Table: domain.TableMembers,
		New:   memberRow(m),
	})
	return m, nil
}

// UpdateMember applies a profile edit and reports old and new rows on the
// change feed.
func (s *Store) UpdateMember(ctx context.Context, m domain.Member) (domain.Member, error) {
	old, err := s.GetMember(ctx, m.ID)
	if err != nil {
		return domain.Member{}, err
	}

	m.CreatedAt = old.CreatedAt
	m.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE members SET
			name = :name, email = :email, phone = :phone, bio = :bio,
			branch = :branch, role = :role, approval_status = :approval_status,
			is_active = :is_active, approved_by = :approved_by,
			approved_at = :approved_at, rejection_reason = :rejection_reason,
			updated_at = :updated_at
		WHERE id = :id`

	if _, err := s.db.NamedExecContext(ctx, query, m); err != nil {
		return domain.Member{}, fmt.Errorf("updating member: %w", err)
	}

	s.publish(domain.ChangeEvent{
		Op:    domain.OpUpdate,
		Table: domain.TableMembers,
		New:   memberRow(m),
		Old:   memberRow(old),
	})
	return m, nil
}

// ApproveMember transitions a pending member to approved, stamping the
// acting admin.
func (s *Store) ApproveMember(ctx context.Context, memberID, adminID string) (domain.Member, error) {
	return s.transition(ctx, memberID, func(m *domain.Member) {
		now := time.Now().UTC()
		m.ApprovalStatus = domain.StatusApproved
		m.ApprovedBy = adminID
		m.ApprovedAt = &now
		m.RejectionReason = ""
	})
}

// RejectMember transitions a pending member to rejected with a reason.
func (s *Store) RejectMember(ctx context.Context, memberID, adminID, reason string) (domain.Member, error) {
	return s.transition(ctx, memberID, func(m *domain.Member) {
		m.ApprovalStatus = domain.StatusRejected
		m.ApprovedBy = adminID
		m.ApprovedAt = nil
		m.RejectionReason = reason
	})
}

func (s *Store) transition(ctx context.Context, memberID string, apply func(*domain.Member)) (domain.Member, error) {
	old, err := s.GetMember(ctx, memberID)
	if err != nil {
		return domain.Member{}, err
	}
	if old.ApprovalStatus != domain.StatusPending {
		return domain.Member{}, domain.E(domain.CodeFailedPrecond, "store.transition", memberID, domain.ErrNotPending)
	}

	updated := old
	apply(&updated)
	updated.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE members SET
			approval_status = :approval_status, approved_by = :approved_by,
			approved_at = :approved_at, rejection_reason = :rejection_reason,
			updated_at = :updated_at
		WHERE id = :id`

	if _, err := s.db.NamedExecContext(ctx, query, updated); err != nil {
		return domain.Member{}, fmt.Errorf("updating approval status: %w", err)
	}

	s.publish(domain.ChangeEvent{
		Op:    domain.OpUpdate,
		Table: domain.TableMembers,
		New:   memberRow(updated),
		Old:   memberRow(old),
	})
	return updated, nil
}

// DeleteMember removes a member row and reports the delete with the old row.
func (s *Store) DeleteMember(ctx context.Context, memberID string) error {
	old, err := s.GetMember(ctx, memberID)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM members WHERE id = ?", memberID); err != nil {
		return fmt.Errorf("deleting member: %w", err)
	}

	s.publish(domain.ChangeEvent{
		Op:    domain.OpDelete,
		Table: domain.TableMembers,
		Old:   memberRow(old),
	})
	return nil
}

// GetMember fetches one member by id.
func (s *Store) GetMember(ctx context.Context, memberID string) (domain.Member, error) {
	var m domain.Member
	err := s.db.GetContext(ctx, &m, "SELECT * FROM members WHERE id = ?", memberID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Member{}, domain.E(domain.CodeNotFound, "store.get_member", memberID, domain.ErrMemberNotFound)
	}
	if err != nil {
		return domain.Member{}, fmt.Errorf("fetching member: %w", err)
	}
	return m, nil
}

// ListMembers returns one page of members matching the filter, newest first.
func (s *Store) ListMembers(ctx context.Context, filter MemberFilter) (MemberPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = domain.DefaultListPageSize
	}
	if filter.Limit > domain.MaxListPageSize {
		filter.Limit = domain.MaxListPageSize
	}

	where, args := memberWhere(filter)

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM members"+where, args...); err != nil {
		return MemberPage{}, fmt.Errorf("counting members: %w", err)
	}

	query := "SELECT * FROM members" + where + " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	members := []domain.Member{}
	if err := s.db.SelectContext(ctx, &members, query, args...); err != nil {
		return MemberPage{}, fmt.Errorf("listing members: %w", err)
	}

	totalPages := (total + filter.Limit - 1) / filter.Limit
	return MemberPage{
		Members:    members,
		Page:       filter.Page,
		Limit:      filter.Limit,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

func memberWhere(filter MemberFilter) (string, []any) {
	var clauses []string
	var args []any

	if filter.Branch != "" {
		clauses = append(clauses, "branch = ?")
		args = append(args, filter.Branch)
	}
	if filter.Status != "" {
		clauses = append(clauses, "approval_status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.IsActive != nil {
		clauses = append(clauses, "is_active = ?")
		args = append(args, *filter.IsActive)
	}
	if filter.Search != "" {
		clauses = append(clauses, "(name LIKE ? OR email LIKE ?)")
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ActiveMembers implements the stats reader: the full active-member
// projection re-read on every rollup recompute.
func (s *Store) ActiveMembers(ctx context.Context) ([]domain.MemberTally, error) {
	rows := []domain.MemberTally{}
	err := s.db.SelectContext(ctx, &rows,
		"SELECT approval_status, branch, created_at FROM members WHERE is_active = 1")
	if err != nil {
		return nil, fmt.Errorf("reading active members: %w", err)
	}
	return rows, nil
}

// memberRow converts a member to the loosely typed row shape the change
// feed carries on the wire.
func memberRow(m domain.Member) map[string]any {
	row := map[string]any{
		"id":               m.ID,
		"name":             m.Name,
		"email":            m.Email,
		"phone":            m.Phone,
		"bio":              m.Bio,
		"branch":           m.Branch,
		"role":             string(m.Role),
		"approval_status":  string(m.ApprovalStatus),
		"is_active":        m.IsActive,
		"approved_by":      m.ApprovedBy,
		"rejection_reason": m.RejectionReason,
		"created_at":       m.CreatedAt,
		"updated_at":       m.UpdatedAt,
	}
	if m.ApprovedAt != nil {
		row["approved_at"] = *m.ApprovedAt
	}
	return row
}
