package domain

import (
	"context"
	"time"
)

// MemberTally is the row projection the stats aggregator re-reads on every
// recompute: just enough columns to rebuild the rollup from scratch.
type MemberTally struct {
	ApprovalStatus ApprovalStatus `db:"approval_status"`
	Branch         string         `db:"branch"`
	CreatedAt      time.Time      `db:"created_at"`
}

// StatsReader is the row-store query collaborator used by the aggregator.
type StatsReader interface {
	// ActiveMembers returns the full active-member snapshot. No incremental
	// variant exists: rollups are always rebuilt whole to avoid drift.
	ActiveMembers(ctx context.Context) ([]MemberTally, error)
}

// DashboardStats is the derived rollup pushed to admins after every relevant
// change. It is never partially updated.
type DashboardStats struct {
	TotalMembers        int            `json:"totalMembers"`
	PendingMembers      int            `json:"pendingMembers"`
	ApprovedMembers     int            `json:"approvedMembers"`
	RejectedMembers     int            `json:"rejectedMembers"`
	BranchStats         map[string]int `json:"branchStats"`
	RecentRegistrations int            `json:"recentRegistrations"`
}

// RecentRegistrationWindow is the trailing window for RecentRegistrations.
const RecentRegistrationWindow = 30 * 24 * time.Hour
