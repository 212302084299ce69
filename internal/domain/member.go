package domain

import "time"

// ApprovalStatus tracks where a member sits in the admin approval workflow.
type ApprovalStatus string

const (
	// StatusPending indicates a registration awaiting admin review.
	StatusPending ApprovalStatus = "pending"
	// StatusApproved indicates an admin accepted the registration.
	StatusApproved ApprovalStatus = "approved"
	// StatusRejected indicates an admin declined the registration.
	StatusRejected ApprovalStatus = "rejected"
)

// Valid reports whether the status is one of the closed set.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Role identifies a portal actor's permission level.
type Role string

const (
	RoleMember     Role = "user"
	RoleAdmin      Role = "admin"
	RolePastor     Role = "pastor"
	RoleSuperAdmin Role = "super_admin"
)

// Branch names for the two congregations.
const (
	BranchEZCC  = "branch1(EZCC)"
	BranchNEZCC = "branch2(NEZCC)"
)

// DefaultBranches returns the branch list used when the config names none.
func DefaultBranches() []string {
	return []string{BranchEZCC, BranchNEZCC}
}

// Member is a row in the membership table, the source of truth for the portal.
type Member struct {
	ID              string         `db:"id" json:"id"`
	Name            string         `db:"name" json:"name"`
	Email           string         `db:"email" json:"email"`
	Phone           string         `db:"phone" json:"phone,omitempty"`
	Bio             string         `db:"bio" json:"bio,omitempty"`
	Branch          string         `db:"branch" json:"branch"`
	Role            Role           `db:"role" json:"role"`
	ApprovalStatus  ApprovalStatus `db:"approval_status" json:"approvalStatus"`
	IsActive        bool           `db:"is_active" json:"isActive"`
	ApprovedBy      string         `db:"approved_by" json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time     `db:"approved_at" json:"approvedAt,omitempty"`
	RejectionReason string         `db:"rejection_reason" json:"rejectionReason,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updatedAt"`
}

// Admin is a row in the administrator table.
type Admin struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Role      Role      `db:"role" json:"role"`
	Branch    string    `db:"branch" json:"branch,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
